package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale is the header record of one checkout. Total is the amount due after
// Discount. CustomerID is zero for walk-in customers.
type Sale struct {
	ID            uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	InvoiceNumber string          `gorm:"size:20" json:"invoiceNumber"`
	Date          time.Time       `gorm:"index:idx_sales_date" json:"date"`
	CustomerID    uint            `gorm:"index:idx_sales_customer_id" json:"customerId"`
	Username      string          `gorm:"size:100" json:"username"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total"`
	Discount      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount"`
	Paid          decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"paid"`
}

func (Sale) TableName() string {
	return "sales"
}

func (s Sale) PrimaryKey() uint {
	return s.ID
}

// Remaining is the part of the total the customer did not pay at checkout.
func (s Sale) Remaining() decimal.Decimal {
	rest := s.Total.Sub(s.Paid)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

// SaleItem is one line of a sale. The store does not enforce the reference
// to Sale: deleting a sale leaves its items behind unless the caller removes
// them first.
type SaleItem struct {
	ID          uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	SaleID      uint            `gorm:"not null;index:idx_sale_items_sale_id" json:"saleId"`
	ProductID   uint            `json:"productId"`
	ProductName string          `gorm:"size:255" json:"productName"`
	Quantity    decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0" json:"quantity"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"price"`
	Total       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total"`
}

func (SaleItem) TableName() string {
	return "sale_items"
}

func (i SaleItem) PrimaryKey() uint {
	return i.ID
}

// Debt is an outstanding balance owed by a customer.
type Debt struct {
	ID         uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	CustomerID uint            `gorm:"not null;index:idx_debts_customer_id" json:"customerId"`
	SaleID     uint            `json:"saleId"`
	Amount     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"amount"`
	Paid       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"paid"`
	Date       time.Time       `json:"date"`
	Note       string          `gorm:"size:500" json:"note"`
}

func (Debt) TableName() string {
	return "debts"
}

func (d Debt) PrimaryKey() uint {
	return d.ID
}

// Outstanding returns Amount minus Paid, never below zero.
func (d Debt) Outstanding() decimal.Decimal {
	rest := d.Amount.Sub(d.Paid)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}
