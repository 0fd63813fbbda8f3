// Package catalog answers the product questions asked at the till: which
// product a scanned barcode names, what is running out and what expires soon.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mrlokans/posdz/internal/database"
	"github.com/mrlokans/posdz/internal/entities"
	"github.com/mrlokans/posdz/internal/settingsstore"
)

var (
	ErrBarcodeRequired = errors.New("barcode is required")
	ErrProductNotFound = errors.New("product not found")
)

// ExpiryAlert is a product whose expiry date falls inside the alert window.
// DaysLeft is negative once the product has expired.
type ExpiryAlert struct {
	Product  entities.Product `json:"product"`
	DaysLeft int              `json:"daysLeft"`
}

// Alerts groups the stock warnings shown on the dashboard.
type Alerts struct {
	LowStock []entities.Product `json:"lowStock"`
	Expiring []ExpiryAlert      `json:"expiring"`
}

type Service struct {
	db       *database.Database
	products *database.ProductCollection
	settings *settingsstore.SettingsStore
}

func NewService(db *database.Database, settings *settingsstore.SettingsStore) *Service {
	return &Service{
		db:       db,
		products: db.Products(),
		settings: settings,
	}
}

// FindByBarcode returns the first product carrying code. found is false when
// no product does.
func (s *Service) FindByBarcode(ctx context.Context, code string) (*entities.Product, bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, false, ErrBarcodeRequired
	}

	matches, err := s.products.GetByIndex(ctx, "barcode", code)
	if err != nil {
		return nil, false, err
	}
	if len(matches) == 0 {
		return nil, false, nil
	}
	return &matches[0], true, nil
}

// LowStock returns products whose quantity is at or below the lowStockAlert
// setting, lowest first.
func (s *Service) LowStock(ctx context.Context) ([]entities.Product, error) {
	cfg, err := s.settings.Load(ctx)
	if err != nil {
		return nil, err
	}
	all, err := s.products.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return lowStock(all, decimal.NewFromInt(int64(cfg.LowStockAlert))), nil
}

func lowStock(products []entities.Product, threshold decimal.Decimal) []entities.Product {
	out := make([]entities.Product, 0)
	for _, p := range products {
		if p.Quantity.LessThanOrEqual(threshold) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Quantity.LessThan(out[j].Quantity)
	})
	return out
}

// Expiring returns products expiring within the expiryAlertDays setting,
// already expired ones included, soonest first.
func (s *Service) Expiring(ctx context.Context) ([]ExpiryAlert, error) {
	cfg, err := s.settings.Load(ctx)
	if err != nil {
		return nil, err
	}
	all, err := s.products.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return expiring(all, s.db.Now().In(s.db.Location()), cfg.ExpiryAlertDays), nil
}

func expiring(products []entities.Product, now time.Time, windowDays int) []ExpiryAlert {
	loc := now.Location()
	out := make([]ExpiryAlert, 0)
	for _, p := range products {
		expiry, ok := p.Expiry(loc)
		if !ok {
			continue
		}
		left := daysBetween(now, expiry)
		if left <= windowDays {
			out = append(out, ExpiryAlert{Product: p, DaysLeft: left})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DaysLeft < out[j].DaysLeft
	})
	return out
}

// daysBetween counts calendar days from a to b, ignoring clock time and DST.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	from := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	to := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// Alerts runs LowStock and Expiring over one settings read.
func (s *Service) Alerts(ctx context.Context) (Alerts, error) {
	cfg, err := s.settings.Load(ctx)
	if err != nil {
		return Alerts{}, err
	}
	all, err := s.products.GetAll(ctx)
	if err != nil {
		return Alerts{}, err
	}
	return Alerts{
		LowStock: lowStock(all, decimal.NewFromInt(int64(cfg.LowStockAlert))),
		Expiring: expiring(all, s.db.Now().In(s.db.Location()), cfg.ExpiryAlertDays),
	}, nil
}

// AdjustStock adds delta to a product's quantity and returns the new
// quantity. Stock may go negative: the till never refuses a sale over it.
func (s *Service) AdjustStock(ctx context.Context, productID uint, delta decimal.Decimal) (decimal.Decimal, error) {
	var quantity decimal.Decimal
	err := s.db.WriteTx(ctx, entities.CollectionProducts, func(tx *gorm.DB) error {
		var p entities.Product
		if err := tx.First(&p, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %d", ErrProductNotFound, productID)
			}
			return database.Classify(err)
		}

		quantity = p.Quantity.Add(delta)
		if err := tx.Model(&p).Update("quantity", quantity).Error; err != nil {
			return database.Classify(err)
		}
		return nil
	})
	return quantity, err
}
