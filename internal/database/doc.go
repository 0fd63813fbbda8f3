// Package database is the local persistence layer of the point of sale.
//
// # Architecture
//
//	database/
//	├── database.go      # Open (sqlite via gorm), pragmas, clock
//	├── schema.go        # Collection registry, EnsureSchema, user_version
//	├── collection.go    # Generic Collection access layer
//	├── locks.go         # Per-collection write locks, WriteTx
//	├── errors.go        # Error taxonomy
//	├── seed.go          # Default seeder
//	└── settings/        # Settings key/value repository
//
// # Collections
//
// Every collection is a table with either an auto id (sqlite AUTOINCREMENT,
// never reused) or a caller supplied string key (settings). The counter
// collection holds a single row keyed by entities.CounterID.
//
//	db, err := database.NewDatabase(ctx, "./posdz.db")
//	id, err := db.Products().Add(ctx, &entities.Product{Name: "Milk"})
//	p, found, err := db.Products().Get(ctx, id)
//	byCode, err := db.Products().GetByIndex(ctx, "barcode", "6130000000000")
//
// # Atomicity
//
// Each Put, Add and Delete runs in its own transaction under the write lock
// of its collection. Nothing spans two collections: a sale header and its
// items are separate writes, and deleting a sale does not delete its items.
// Callers that need both must do both.
//
// # Errors
//
// Get never reports a missing record as an error. Write collisions return
// ErrUniquenessViolation, engine failures ErrStorageUnavailable, and a busy
// collection ErrLockTimeout, all wrapped in *OpError.
package database
