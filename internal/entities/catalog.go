package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExpiryDateLayout is the calendar format of Product.ExpiryDate.
const ExpiryDateLayout = "2006-01-02"

type Product struct {
	ID         uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	Name       string          `gorm:"size:255;not null;uniqueIndex:idx_products_name" json:"name"`
	Barcode    string          `gorm:"size:64;index:idx_products_barcode" json:"barcode"`
	Family     string          `gorm:"size:255" json:"family"`
	Size       string          `gorm:"size:64" json:"size"`
	Unit       string          `gorm:"size:32" json:"unit"`
	BuyPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"buyPrice"`
	SellPrice  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"sellPrice"`
	Quantity   decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0" json:"quantity"`
	ExpiryDate string          `gorm:"size:10" json:"expiryDate"` // YYYY-MM-DD, empty when the product does not expire
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

func (Product) TableName() string {
	return "products"
}

func (p Product) PrimaryKey() uint {
	return p.ID
}

// Expiry parses ExpiryDate. ok is false when the product has no usable date.
func (p Product) Expiry(loc *time.Location) (t time.Time, ok bool) {
	if p.ExpiryDate == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(ExpiryDateLayout, p.ExpiryDate, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Family is a product category.
type Family struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"size:255;not null;uniqueIndex:idx_families_name" json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Family) TableName() string {
	return "families"
}

func (f Family) PrimaryKey() uint {
	return f.ID
}

type Customer struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"size:255" json:"name"`
	Phone     string    `gorm:"size:50" json:"phone"`
	Address   string    `gorm:"size:500" json:"address"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Customer) TableName() string {
	return "customers"
}

func (c Customer) PrimaryKey() uint {
	return c.ID
}

type Supplier struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"size:255" json:"name"`
	Phone     string    `gorm:"size:50" json:"phone"`
	Address   string    `gorm:"size:500" json:"address"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Supplier) TableName() string {
	return "suppliers"
}

func (s Supplier) PrimaryKey() uint {
	return s.ID
}
