// Package backup exports the point of sale data to a single JSON document and
// restores it.
//
// The document carries users, products, families, customers, suppliers,
// sales, saleItems, debts and settings, plus a timestamp and a version.
// The operation log and the invoice counter are not part of it. Restore puts
// every record back under its own key; records missing from the document are
// left alone.
package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mrlokans/posdz/internal/database"
	"github.com/mrlokans/posdz/internal/entities"
)

// Version is written into every document.
const Version = "2.0.0"

const fileNamePrefix = "POSDZ_backup_"

var ErrUnsupportedDocument = errors.New("not a backup document")

// Document is the backup file layout.
type Document struct {
	Users     []entities.User     `json:"users"`
	Products  []entities.Product  `json:"products"`
	Families  []entities.Family   `json:"families"`
	Customers []entities.Customer `json:"customers"`
	Suppliers []entities.Supplier `json:"suppliers"`
	Sales     []entities.Sale     `json:"sales"`
	SaleItems []entities.SaleItem `json:"saleItems"`
	Debts     []entities.Debt     `json:"debts"`
	Settings  []entities.Setting  `json:"settings"`
	Timestamp time.Time           `json:"timestamp"`
	Version   string              `json:"version"`
}

// Result counts the records handled per collection.
type Result struct {
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
}

func (r *Result) add(collection string, n int) {
	if r.Counts == nil {
		r.Counts = make(map[string]int)
	}
	r.Counts[collection] += n
	r.Total += n
}

// Recorder receives backup events for the operation log.
type Recorder interface {
	LogBackup(username, fileName string, err error)
	LogRestore(username string, records int, err error)
}

type Service struct {
	db       *database.Database
	dir      string
	recorder Recorder
}

// NewService creates a backup service writing files into dir. recorder may
// be nil.
func NewService(db *database.Database, dir string, recorder Recorder) *Service {
	return &Service{db: db, dir: dir, recorder: recorder}
}

// FileName returns the backup file name for the day of t.
func FileName(t time.Time) string {
	return fileNamePrefix + t.Format(entities.DayLayout) + ".json"
}

func exportAll[K database.Key, T any, P interface {
	*T
	database.Record[K]
}](ctx context.Context, c *database.Collection[K, T, P], res *Result) ([]T, error) {
	records, err := c.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	res.add(c.Name(), len(records))
	return records, nil
}

// Export reads every backed up collection.
func (s *Service) Export(ctx context.Context) (*Document, *Result, error) {
	doc := &Document{
		Timestamp: s.db.Now().UTC(),
		Version:   Version,
	}
	res := &Result{}

	var err error
	if doc.Users, err = exportAll(ctx, s.db.Users(), res); err != nil {
		return nil, nil, err
	}
	if doc.Products, err = exportAll(ctx, s.db.Products(), res); err != nil {
		return nil, nil, err
	}
	if doc.Families, err = exportAll(ctx, s.db.Families(), res); err != nil {
		return nil, nil, err
	}
	if doc.Customers, err = exportAll(ctx, s.db.Customers(), res); err != nil {
		return nil, nil, err
	}
	if doc.Suppliers, err = exportAll(ctx, s.db.Suppliers(), res); err != nil {
		return nil, nil, err
	}
	if doc.Sales, err = exportAll(ctx, s.db.Sales(), res); err != nil {
		return nil, nil, err
	}
	if doc.SaleItems, err = exportAll(ctx, s.db.SaleItems(), res); err != nil {
		return nil, nil, err
	}
	if doc.Debts, err = exportAll(ctx, s.db.Debts(), res); err != nil {
		return nil, nil, err
	}
	if doc.Settings, err = exportAll(ctx, s.db.Settings(), res); err != nil {
		return nil, nil, err
	}
	return doc, res, nil
}

func restoreAll[K database.Key, T any, P interface {
	*T
	database.Record[K]
}](ctx context.Context, c *database.Collection[K, T, P], records []T, res *Result) error {
	for i := range records {
		if _, err := c.Put(ctx, P(&records[i])); err != nil {
			return fmt.Errorf("restore %s record %d: %w", c.Name(), i, err)
		}
		res.add(c.Name(), 1)
	}
	return nil
}

// Restore puts every record of doc. It stops at the first failing record;
// the result counts what was written before it.
func (s *Service) Restore(ctx context.Context, doc *Document) (*Result, error) {
	res := &Result{}
	if doc == nil || doc.Version == "" {
		return res, ErrUnsupportedDocument
	}

	steps := []func() error{
		func() error { return restoreAll(ctx, s.db.Users(), doc.Users, res) },
		func() error { return restoreAll(ctx, s.db.Families(), doc.Families, res) },
		func() error { return restoreAll(ctx, s.db.Products(), doc.Products, res) },
		func() error { return restoreAll(ctx, s.db.Customers(), doc.Customers, res) },
		func() error { return restoreAll(ctx, s.db.Suppliers(), doc.Suppliers, res) },
		func() error { return restoreAll(ctx, s.db.Sales(), doc.Sales, res) },
		func() error { return restoreAll(ctx, s.db.SaleItems(), doc.SaleItems, res) },
		func() error { return restoreAll(ctx, s.db.Debts(), doc.Debts, res) },
		func() error { return restoreAll(ctx, s.db.Settings(), doc.Settings, res) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return res, err
		}
	}
	return res, nil
}

// Encode writes doc as indented JSON.
func Encode(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Decode reads a document.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedDocument, err)
	}
	if doc.Version == "" {
		return nil, ErrUnsupportedDocument
	}
	return &doc, nil
}

// WriteFile exports into the backup directory and returns the file path.
// The file is written next to its final name and renamed into place.
func (s *Service) WriteFile(ctx context.Context) (string, *Result, error) {
	doc, res, err := s.Export(ctx)
	if err != nil {
		return "", nil, err
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := FileName(doc.Timestamp.In(s.db.Location()))
	target := filepath.Join(s.dir, name)

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return "", nil, err
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, doc); err != nil {
		tmp.Close()
		return "", nil, err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", nil, err
	}
	if err := tmp.Close(); err != nil {
		return "", nil, err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", nil, err
	}
	return target, res, nil
}

// Run writes a backup file on behalf of username and records it.
func (s *Service) Run(ctx context.Context, username string) (string, *Result, error) {
	path, res, err := s.WriteFile(ctx)
	if s.recorder != nil {
		name := ""
		if path != "" {
			name = filepath.Base(path)
		}
		s.recorder.LogBackup(username, name, err)
	}
	if err != nil {
		zap.L().Error("backup failed", zap.Error(err))
		return "", nil, err
	}
	zap.L().Info("backup written", zap.String("path", path), zap.Int("records", res.Total))
	return path, res, nil
}

// RestoreFile restores the document at path on behalf of username.
func (s *Service) RestoreFile(ctx context.Context, path, username string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := Decode(f)
	if err != nil {
		return nil, err
	}
	return s.RestoreDocument(ctx, doc, username)
}

// RestoreDocument restores doc on behalf of username and records it.
func (s *Service) RestoreDocument(ctx context.Context, doc *Document, username string) (*Result, error) {
	res, err := s.Restore(ctx, doc)
	if s.recorder != nil {
		s.recorder.LogRestore(username, res.Total, err)
	}
	if err != nil {
		zap.L().Error("restore stopped", zap.Int("restored", res.Total), zap.Error(err))
		return res, err
	}
	zap.L().Info("backup restored", zap.Int("records", res.Total))
	return res, nil
}
