package database

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/cast"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/posdz/internal/entities"
)

// Key is the primary key type of a collection: auto ids or string keys.
type Key interface {
	~uint | ~string
}

// Record is implemented by every stored model.
type Record[K Key] interface {
	TableName() string
	PrimaryKey() K
}

// Collection is the access layer over one collection. Every call is its own
// atomic unit; nothing spans two collections.
type Collection[K Key, T any, P interface {
	*T
	Record[K]
}] struct {
	db   *Database
	spec *collectionSpec
}

type (
	UserCollection     = Collection[uint, entities.User, *entities.User]
	ProductCollection  = Collection[uint, entities.Product, *entities.Product]
	FamilyCollection   = Collection[uint, entities.Family, *entities.Family]
	CustomerCollection = Collection[uint, entities.Customer, *entities.Customer]
	SupplierCollection = Collection[uint, entities.Supplier, *entities.Supplier]
	SaleCollection     = Collection[uint, entities.Sale, *entities.Sale]
	SaleItemCollection = Collection[uint, entities.SaleItem, *entities.SaleItem]
	DebtCollection     = Collection[uint, entities.Debt, *entities.Debt]
	SettingCollection  = Collection[string, entities.Setting, *entities.Setting]
	LogCollection      = Collection[uint, entities.LogEntry, *entities.LogEntry]
	CounterCollection  = Collection[uint, entities.Counter, *entities.Counter]
)

func newCollection[K Key, T any, P interface {
	*T
	Record[K]
}](d *Database, name string) *Collection[K, T, P] {
	spec, ok := lookupCollection(name)
	if !ok {
		panic("database: collection not registered: " + name)
	}
	return &Collection[K, T, P]{db: d, spec: spec}
}

func (d *Database) Users() *UserCollection {
	return newCollection[uint, entities.User, *entities.User](d, entities.CollectionUsers)
}

func (d *Database) Products() *ProductCollection {
	return newCollection[uint, entities.Product, *entities.Product](d, entities.CollectionProducts)
}

func (d *Database) Families() *FamilyCollection {
	return newCollection[uint, entities.Family, *entities.Family](d, entities.CollectionFamilies)
}

func (d *Database) Customers() *CustomerCollection {
	return newCollection[uint, entities.Customer, *entities.Customer](d, entities.CollectionCustomers)
}

func (d *Database) Suppliers() *SupplierCollection {
	return newCollection[uint, entities.Supplier, *entities.Supplier](d, entities.CollectionSuppliers)
}

func (d *Database) Sales() *SaleCollection {
	return newCollection[uint, entities.Sale, *entities.Sale](d, entities.CollectionSales)
}

func (d *Database) SaleItems() *SaleItemCollection {
	return newCollection[uint, entities.SaleItem, *entities.SaleItem](d, entities.CollectionSaleItems)
}

func (d *Database) Debts() *DebtCollection {
	return newCollection[uint, entities.Debt, *entities.Debt](d, entities.CollectionDebts)
}

func (d *Database) Settings() *SettingCollection {
	return newCollection[string, entities.Setting, *entities.Setting](d, entities.CollectionSettings)
}

func (d *Database) Logs() *LogCollection {
	return newCollection[uint, entities.LogEntry, *entities.LogEntry](d, entities.CollectionLogs)
}

func (d *Database) Counter() *CounterCollection {
	return newCollection[uint, entities.Counter, *entities.Counter](d, entities.CollectionCounter)
}

// Name returns the collection name.
func (c *Collection[K, T, P]) Name() string {
	return c.spec.name
}

// Indexes returns the logical index names accepted by GetByIndex.
func (c *Collection[K, T, P]) Indexes() []string {
	names := make([]string, len(c.spec.indexes))
	for i, idx := range c.spec.indexes {
		names[i] = idx.Logical
	}
	return names
}

func (c *Collection[K, T, P]) pkEquals(key K) clause.Eq {
	return clause.Eq{Column: clause.Column{Name: c.spec.primaryKey}, Value: key}
}

func (c *Collection[K, T, P]) byKey() clause.OrderByColumn {
	return clause.OrderByColumn{Column: clause.Column{Name: c.spec.primaryKey}}
}

// Get returns the record stored under key. A missing record is not an
// error: found is false and rec is nil.
func (c *Collection[K, T, P]) Get(ctx context.Context, key K) (rec *T, found bool, err error) {
	var zero K
	if key == zero {
		return nil, false, opError("get", c.spec.name, ErrInvalidKey)
	}

	var out T
	err = c.db.DB.WithContext(ctx).Where(c.pkEquals(key)).Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, opError("get", c.spec.name, err)
	}
	return &out, true, nil
}

// GetAll returns every record ordered by primary key.
func (c *Collection[K, T, P]) GetAll(ctx context.Context) ([]T, error) {
	out := make([]T, 0)
	if err := c.db.DB.WithContext(ctx).Order(c.byKey()).Find(&out).Error; err != nil {
		return nil, opError("getAll", c.spec.name, err)
	}
	return out, nil
}

// GetByIndex returns the records whose indexed field equals value, ordered
// by primary key. A string value is converted to the field's type first, so
// callers holding only text (query strings, CLI args) can match time and
// integer columns.
func (c *Collection[K, T, P]) GetByIndex(ctx context.Context, indexName string, value any) ([]T, error) {
	idx, ok := c.spec.index(indexName)
	if !ok {
		return nil, opError("getByIndex", c.spec.name, ErrUnknownIndex)
	}

	value, err := c.indexValue(idx, value)
	if err != nil {
		return nil, opError("getByIndex", c.spec.name, err)
	}

	out := make([]T, 0)
	err = c.db.DB.WithContext(ctx).
		Where(clause.Eq{Column: clause.Column{Name: idx.Column}, Value: value}).
		Order(c.byKey()).
		Find(&out).Error
	if err != nil {
		return nil, opError("getByIndex", c.spec.name, err)
	}
	return out, nil
}

var timeType = reflect.TypeOf(time.Time{})

// indexValue converts a string value to the Go type of the indexed field.
// Other values pass through unchanged.
func (c *Collection[K, T, P]) indexValue(idx index, value any) (any, error) {
	text, ok := value.(string)
	if !ok {
		return value, nil
	}

	stmt := &gorm.Statement{DB: c.db.DB}
	if err := stmt.Parse(c.spec.model); err != nil {
		return nil, err
	}
	field := stmt.Schema.LookUpField(idx.Column)
	if field == nil {
		return text, nil
	}

	ft := field.FieldType
	for ft.Kind() == reflect.Pointer {
		ft = ft.Elem()
	}

	var (
		converted any
		err       error
	)
	switch {
	case ft == timeType:
		converted, err = cast.ToTimeInDefaultLocationE(text, c.db.Location())
	case ft.Kind() >= reflect.Int && ft.Kind() <= reflect.Int64:
		converted, err = cast.ToInt64E(text)
	case ft.Kind() >= reflect.Uint && ft.Kind() <= reflect.Uint64:
		converted, err = cast.ToUint64E(text)
	default:
		return text, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s value %q", ErrInvalidKey, idx.Logical, text)
	}
	return converted, nil
}

// Put inserts rec or replaces the record with the same primary key. A zero
// auto id inserts a new record and assigns it. A collision on a unique
// secondary index with another record still fails with
// ErrUniquenessViolation.
func (c *Collection[K, T, P]) Put(ctx context.Context, rec P) (K, error) {
	var zero K
	if rec == nil {
		return zero, opError("put", c.spec.name, ErrNilRecord)
	}
	if err := c.checkWritableKey(rec); err != nil {
		return zero, opError("put", c.spec.name, err)
	}

	err := c.write(ctx, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(rec).Error
	})
	if err != nil {
		return zero, opError("put", c.spec.name, err)
	}
	return rec.PrimaryKey(), nil
}

// Add inserts rec and fails with ErrUniquenessViolation if its primary key
// or any unique index value is already taken.
func (c *Collection[K, T, P]) Add(ctx context.Context, rec P) (K, error) {
	var zero K
	if rec == nil {
		return zero, opError("add", c.spec.name, ErrNilRecord)
	}
	if err := c.checkWritableKey(rec); err != nil {
		return zero, opError("add", c.spec.name, err)
	}

	err := c.write(ctx, func(tx *gorm.DB) error {
		return tx.Create(rec).Error
	})
	if err != nil {
		return zero, opError("add", c.spec.name, err)
	}
	return rec.PrimaryKey(), nil
}

// Delete removes the record under key. Deleting a missing key succeeds.
func (c *Collection[K, T, P]) Delete(ctx context.Context, key K) error {
	var zero K
	if key == zero {
		return opError("delete", c.spec.name, ErrInvalidKey)
	}

	err := c.write(ctx, func(tx *gorm.DB) error {
		return tx.Where(c.pkEquals(key)).Delete(P(new(T))).Error
	})
	return opError("delete", c.spec.name, err)
}

// Count returns the number of records.
func (c *Collection[K, T, P]) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := c.db.DB.WithContext(ctx).Model(P(new(T))).Count(&n).Error; err != nil {
		return 0, opError("count", c.spec.name, err)
	}
	return n, nil
}

// checkWritableKey rejects records that cannot be keyed: string keys must be
// set by the caller, auto ids may be zero.
func (c *Collection[K, T, P]) checkWritableKey(rec P) error {
	var zero K
	if _, isString := any(zero).(string); isString && rec.PrimaryKey() == zero {
		return ErrInvalidKey
	}
	return nil
}

func (c *Collection[K, T, P]) write(ctx context.Context, fn func(tx *gorm.DB) error) error {
	release, err := c.db.locks.acquire(ctx, c.spec.name)
	if err != nil {
		return err
	}
	defer release()

	return c.db.DB.WithContext(ctx).Transaction(fn)
}
