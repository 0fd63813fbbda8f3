// Package sales records checkouts and the customer debts they leave behind.
//
// A checkout is a chain of independent single-record writes: invoice number,
// sale header, each line item, the optional debt and each stock adjustment.
// Nothing spans collections atomically, so a failure part way leaves the
// earlier records in place. Checkout then returns ErrIncompleteCheckout
// together with the receipt of what was written.
//
// The store does not cascade deletes either. DeleteSale removes the line
// items first and the header last.
package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mrlokans/posdz/internal/catalog"
	"github.com/mrlokans/posdz/internal/database"
	"github.com/mrlokans/posdz/internal/entities"
	"github.com/mrlokans/posdz/internal/invoice"
)

var (
	ErrEmptySale          = errors.New("sale has no items")
	ErrUnknownProduct     = errors.New("unknown product")
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidDay         = errors.New("day must be YYYY-MM-DD")
	ErrCustomerRequired   = errors.New("a customer is required for an unpaid remainder")
	ErrUnknownCustomer    = errors.New("unknown customer")
	ErrSaleNotFound       = errors.New("sale not found")
	ErrDebtNotFound       = errors.New("debt not found")
	ErrOverpayment        = errors.New("payment exceeds the outstanding amount")
	ErrIncompleteCheckout = errors.New("checkout was only partly recorded")
)

// Recorder receives sale events for the operation log.
type Recorder interface {
	LogCheckout(username string, saleID uint, invoiceNumber string, err error)
	LogSaleDelete(username string, saleID uint, invoiceNumber string, err error)
	LogDebtPayment(username string, debtID uint, amount string, err error)
}

// LineInput is one scanned product. A zero Price sells at the product's
// current sell price.
type LineInput struct {
	ProductID uint            `json:"productId"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// CheckoutRequest describes a basket at the till. Paid nil means paid in
// full.
type CheckoutRequest struct {
	CustomerID uint             `json:"customerId"`
	Username   string           `json:"-"`
	Items      []LineInput      `json:"items"`
	Discount   decimal.Decimal  `json:"discount"`
	Paid       *decimal.Decimal `json:"paid"`
	Note       string           `json:"note"`
}

// Receipt is a sale with its line items and, for credit sales, its debt.
type Receipt struct {
	Sale   entities.Sale       `json:"sale"`
	Items  []entities.SaleItem `json:"items"`
	Debt   *entities.Debt      `json:"debt,omitempty"`
	Change decimal.Decimal     `json:"change"`
}

// Balance is what a customer owes across all their debts.
type Balance struct {
	CustomerID  uint            `json:"customerId"`
	Amount      decimal.Decimal `json:"amount"`
	Paid        decimal.Decimal `json:"paid"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Debts       []entities.Debt `json:"debts"`
}

type Service struct {
	db        *database.Database
	sequencer *invoice.Sequencer
	catalog   *catalog.Service
	recorder  Recorder
}

// NewService creates a sales service. recorder may be nil.
func NewService(db *database.Database, sequencer *invoice.Sequencer, catalog *catalog.Service, recorder Recorder) *Service {
	return &Service{
		db:        db,
		sequencer: sequencer,
		catalog:   catalog,
		recorder:  recorder,
	}
}

type pricedLine struct {
	product entities.Product
	item    entities.SaleItem
}

// Checkout mints an invoice number and records the basket.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*Receipt, error) {
	lines, subtotal, err := s.price(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	if req.Discount.IsNegative() || req.Discount.GreaterThan(subtotal) {
		return nil, fmt.Errorf("%w: discount %s", ErrInvalidAmount, req.Discount)
	}
	total := subtotal.Sub(req.Discount)

	tendered := total
	if req.Paid != nil {
		tendered = *req.Paid
	}
	if tendered.IsNegative() {
		return nil, fmt.Errorf("%w: paid %s", ErrInvalidAmount, tendered)
	}
	paid := decimal.Min(tendered, total)
	change := tendered.Sub(paid)
	remaining := total.Sub(paid)

	if remaining.IsPositive() {
		if req.CustomerID == 0 {
			return nil, ErrCustomerRequired
		}
		_, found, err := s.db.Customers().Get(ctx, req.CustomerID)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("%w: %d", ErrUnknownCustomer, req.CustomerID)
		}
	}

	number, err := s.sequencer.Next(ctx)
	if err != nil {
		s.logCheckout(req.Username, 0, "", err)
		return nil, err
	}

	now := s.db.Now().UTC()
	receipt := &Receipt{
		Sale: entities.Sale{
			InvoiceNumber: number,
			Date:          now,
			CustomerID:    req.CustomerID,
			Username:      req.Username,
			Total:         total,
			Discount:      req.Discount,
			Paid:          paid,
		},
		Items:  make([]entities.SaleItem, 0, len(lines)),
		Change: change,
	}

	if _, err := s.db.Sales().Add(ctx, &receipt.Sale); err != nil {
		s.logCheckout(req.Username, 0, number, err)
		return nil, err
	}

	if err := s.record(ctx, receipt, lines, remaining, req.Note, now); err != nil {
		zap.L().Error("checkout left partial records",
			zap.String("invoice", number), zap.Uint("sale_id", receipt.Sale.ID), zap.Error(err))
		s.logCheckout(req.Username, receipt.Sale.ID, number, err)
		return receipt, fmt.Errorf("%w: %w", ErrIncompleteCheckout, err)
	}

	s.logCheckout(req.Username, receipt.Sale.ID, number, nil)
	return receipt, nil
}

// record writes everything after the header: items, debt, stock.
func (s *Service) record(ctx context.Context, receipt *Receipt, lines []pricedLine, remaining decimal.Decimal, note string, now time.Time) error {
	for _, line := range lines {
		item := line.item
		item.SaleID = receipt.Sale.ID
		if _, err := s.db.SaleItems().Add(ctx, &item); err != nil {
			return err
		}
		receipt.Items = append(receipt.Items, item)
	}

	if remaining.IsPositive() {
		debt := &entities.Debt{
			CustomerID: receipt.Sale.CustomerID,
			SaleID:     receipt.Sale.ID,
			Amount:     remaining,
			Date:       now,
			Note:       note,
		}
		if _, err := s.db.Debts().Add(ctx, debt); err != nil {
			return err
		}
		receipt.Debt = debt
	}

	for _, line := range lines {
		if _, err := s.catalog.AdjustStock(ctx, line.product.ID, line.item.Quantity.Neg()); err != nil {
			return err
		}
	}
	return nil
}

// price resolves every line against the catalog.
func (s *Service) price(ctx context.Context, inputs []LineInput) ([]pricedLine, decimal.Decimal, error) {
	if len(inputs) == 0 {
		return nil, decimal.Zero, ErrEmptySale
	}

	lines := make([]pricedLine, 0, len(inputs))
	subtotal := decimal.Zero
	for _, in := range inputs {
		if !in.Quantity.IsPositive() {
			return nil, decimal.Zero, fmt.Errorf("%w: product %d", ErrInvalidQuantity, in.ProductID)
		}
		if in.Price.IsNegative() {
			return nil, decimal.Zero, fmt.Errorf("%w: price %s", ErrInvalidAmount, in.Price)
		}

		product, found, err := s.db.Products().Get(ctx, in.ProductID)
		if err != nil {
			if errors.Is(err, database.ErrInvalidKey) {
				return nil, decimal.Zero, fmt.Errorf("%w: %d", ErrUnknownProduct, in.ProductID)
			}
			return nil, decimal.Zero, err
		}
		if !found {
			return nil, decimal.Zero, fmt.Errorf("%w: %d", ErrUnknownProduct, in.ProductID)
		}

		price := in.Price
		if price.IsZero() {
			price = product.SellPrice
		}
		lineTotal := price.Mul(in.Quantity).Round(2)
		subtotal = subtotal.Add(lineTotal)

		lines = append(lines, pricedLine{
			product: *product,
			item: entities.SaleItem{
				ProductID:   product.ID,
				ProductName: product.Name,
				Quantity:    in.Quantity,
				Price:       price,
				Total:       lineTotal,
			},
		})
	}
	return lines, subtotal, nil
}

// GetSale returns a sale with its items and debt.
func (s *Service) GetSale(ctx context.Context, id uint) (*Receipt, error) {
	sale, found, err := s.db.Sales().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrSaleNotFound
	}

	items, err := s.db.SaleItems().GetByIndex(ctx, "saleId", id)
	if err != nil {
		return nil, err
	}
	receipt := &Receipt{Sale: *sale, Items: items}

	if sale.CustomerID != 0 {
		debts, err := s.db.Debts().GetByIndex(ctx, "customerId", sale.CustomerID)
		if err != nil {
			return nil, err
		}
		for i := range debts {
			if debts[i].SaleID == id {
				receipt.Debt = &debts[i]
				break
			}
		}
	}
	return receipt, nil
}

// DeleteSale removes a sale's line items and then its header. Debts and
// stock are left as they are.
func (s *Service) DeleteSale(ctx context.Context, id uint, username string) error {
	sale, found, err := s.db.Sales().Get(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return ErrSaleNotFound
	}

	err = s.deleteSale(ctx, id)
	if s.recorder != nil {
		s.recorder.LogSaleDelete(username, id, sale.InvoiceNumber, err)
	}
	return err
}

func (s *Service) deleteSale(ctx context.Context, id uint) error {
	items, err := s.db.SaleItems().GetByIndex(ctx, "saleId", id)
	if err != nil {
		return err
	}
	for _, item := range items {
		if err := s.db.SaleItems().Delete(ctx, item.ID); err != nil {
			return err
		}
	}
	return s.db.Sales().Delete(ctx, id)
}

// ListByDay returns the sales made on day (YYYY-MM-DD in the database's
// location), oldest first.
func (s *Service) ListByDay(ctx context.Context, day string) ([]entities.Sale, error) {
	start, err := time.ParseInLocation(entities.DayLayout, day, s.db.Location())
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDay, day)
	}
	end := start.AddDate(0, 0, 1)

	sales := make([]entities.Sale, 0)
	err = s.db.DB.WithContext(ctx).
		Where("date >= ? AND date < ?", start.UTC(), end.UTC()).
		Order("date, id").
		Find(&sales).Error
	if err != nil {
		return nil, database.Classify(err)
	}
	return sales, nil
}

// CustomerBalance sums every debt of a customer.
func (s *Service) CustomerBalance(ctx context.Context, customerID uint) (*Balance, error) {
	debts, err := s.db.Debts().GetByIndex(ctx, "customerId", customerID)
	if err != nil {
		return nil, err
	}

	balance := &Balance{
		CustomerID:  customerID,
		Amount:      decimal.Zero,
		Paid:        decimal.Zero,
		Outstanding: decimal.Zero,
		Debts:       debts,
	}
	for _, d := range debts {
		balance.Amount = balance.Amount.Add(d.Amount)
		balance.Paid = balance.Paid.Add(d.Paid)
		balance.Outstanding = balance.Outstanding.Add(d.Outstanding())
	}
	return balance, nil
}

// PayDebt records a payment against one debt and returns the updated debt.
func (s *Service) PayDebt(ctx context.Context, debtID uint, amount decimal.Decimal, username string) (*entities.Debt, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: payment %s", ErrInvalidAmount, amount)
	}

	var debt entities.Debt
	err := s.db.WriteTx(ctx, entities.CollectionDebts, func(tx *gorm.DB) error {
		if err := tx.First(&debt, debtID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDebtNotFound
			}
			return database.Classify(err)
		}
		if amount.GreaterThan(debt.Outstanding()) {
			return fmt.Errorf("%w: outstanding %s", ErrOverpayment, debt.Outstanding())
		}

		debt.Paid = debt.Paid.Add(amount)
		return database.Classify(tx.Model(&debt).Update("paid", debt.Paid).Error)
	})

	if s.recorder != nil && !errors.Is(err, ErrDebtNotFound) {
		s.recorder.LogDebtPayment(username, debtID, amount.StringFixed(2), err)
	}
	if err != nil {
		return nil, err
	}
	return &debt, nil
}

func (s *Service) logCheckout(username string, saleID uint, number string, err error) {
	if s.recorder != nil {
		s.recorder.LogCheckout(username, saleID, number, err)
	}
}
