package database

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mrlokans/posdz/internal/entities"
)

// SchemaVersion is written to PRAGMA user_version once EnsureSchema has run.
const SchemaVersion = 1

// index is a secondary lookup path. Logical names are what callers pass to
// GetByIndex; Name is the sqlite index declared on the model.
type index struct {
	Logical string
	Name    string
	Column  string
	Unique  bool
}

type collectionSpec struct {
	name       string
	model      any
	primaryKey string
	indexes    []index
}

func (s *collectionSpec) index(logical string) (index, bool) {
	for _, idx := range s.indexes {
		if idx.Logical == logical {
			return idx, true
		}
	}
	return index{}, false
}

var collections = []*collectionSpec{
	{
		name: entities.CollectionUsers, model: &entities.User{}, primaryKey: "id",
		indexes: []index{{Logical: "username", Name: "idx_users_username", Column: "username", Unique: true}},
	},
	{
		name: entities.CollectionProducts, model: &entities.Product{}, primaryKey: "id",
		indexes: []index{
			{Logical: "name", Name: "idx_products_name", Column: "name", Unique: true},
			{Logical: "barcode", Name: "idx_products_barcode", Column: "barcode"},
		},
	},
	{
		name: entities.CollectionFamilies, model: &entities.Family{}, primaryKey: "id",
		indexes: []index{{Logical: "name", Name: "idx_families_name", Column: "name", Unique: true}},
	},
	{name: entities.CollectionCustomers, model: &entities.Customer{}, primaryKey: "id"},
	{name: entities.CollectionSuppliers, model: &entities.Supplier{}, primaryKey: "id"},
	{
		name: entities.CollectionSales, model: &entities.Sale{}, primaryKey: "id",
		indexes: []index{
			{Logical: "date", Name: "idx_sales_date", Column: "date"},
			{Logical: "customerId", Name: "idx_sales_customer_id", Column: "customer_id"},
		},
	},
	{
		name: entities.CollectionSaleItems, model: &entities.SaleItem{}, primaryKey: "id",
		indexes: []index{{Logical: "saleId", Name: "idx_sale_items_sale_id", Column: "sale_id"}},
	},
	{
		name: entities.CollectionDebts, model: &entities.Debt{}, primaryKey: "id",
		indexes: []index{{Logical: "customerId", Name: "idx_debts_customer_id", Column: "customer_id"}},
	},
	{name: entities.CollectionSettings, model: &entities.Setting{}, primaryKey: "key"},
	{name: entities.CollectionLogs, model: &entities.LogEntry{}, primaryKey: "id"},
	{name: entities.CollectionCounter, model: &entities.Counter{}, primaryKey: "id"},
}

func lookupCollection(name string) (*collectionSpec, bool) {
	for _, spec := range collections {
		if spec.name == name {
			return spec, true
		}
	}
	return nil, false
}

// CollectionNames lists every collection in declaration order.
func CollectionNames() []string {
	names := make([]string, len(collections))
	for i, spec := range collections {
		names[i] = spec.name
	}
	return names
}

// IndexNames lists the logical index names of a collection.
func IndexNames(collection string) ([]string, error) {
	spec, ok := lookupCollection(collection)
	if !ok {
		return nil, ErrUnknownCollection
	}
	names := make([]string, len(spec.indexes))
	for i, idx := range spec.indexes {
		names[i] = idx.Logical
	}
	return names, nil
}

// EnsureSchema creates every missing table, column and index. Existing
// objects are never dropped or altered, so running it on an up to date
// database does nothing.
func (d *Database) EnsureSchema(ctx context.Context) error {
	db := d.DB.WithContext(ctx)
	migrator := db.Migrator()

	for _, spec := range collections {
		if !migrator.HasTable(spec.model) {
			if err := migrator.CreateTable(spec.model); err != nil {
				return fmt.Errorf("%w: create collection %s: %v", ErrStorageUnavailable, spec.name, err)
			}
			zap.L().Info("created collection", zap.String("collection", spec.name))
			continue
		}

		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(spec.model); err != nil {
			return fmt.Errorf("parse model for %s: %w", spec.name, err)
		}
		for _, column := range stmt.Schema.DBNames {
			if migrator.HasColumn(spec.model, column) {
				continue
			}
			if err := migrator.AddColumn(spec.model, column); err != nil {
				return fmt.Errorf("%w: add column %s.%s: %v", ErrStorageUnavailable, spec.name, column, err)
			}
			zap.L().Info("added column", zap.String("collection", spec.name), zap.String("column", column))
		}

		for _, idx := range spec.indexes {
			if migrator.HasIndex(spec.model, idx.Name) {
				continue
			}
			if err := migrator.CreateIndex(spec.model, idx.Name); err != nil {
				return fmt.Errorf("%w: create index %s: %v", ErrStorageUnavailable, idx.Name, err)
			}
			zap.L().Info("created index", zap.String("collection", spec.name), zap.String("index", idx.Name))
		}
	}

	version, err := d.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if version < SchemaVersion {
		if err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)).Error; err != nil {
			return fmt.Errorf("%w: set user_version: %v", ErrStorageUnavailable, err)
		}
	}
	return nil
}

// SchemaVersion reads PRAGMA user_version.
func (d *Database) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := d.DB.WithContext(ctx).Raw("PRAGMA user_version").Scan(&version).Error; err != nil {
		return 0, fmt.Errorf("%w: read user_version: %v", ErrStorageUnavailable, err)
	}
	return version, nil
}
