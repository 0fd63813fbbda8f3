package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

var (
	// ErrUniquenessViolation is returned when a write collides with a primary
	// key or a unique index. The collection is left unchanged.
	ErrUniquenessViolation = errors.New("uniqueness violation")

	// ErrStorageUnavailable wraps engine failures: the file cannot be opened,
	// the disk is full, the database is corrupt.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrLockTimeout is returned when a collection write lock could not be
	// acquired within the configured wait.
	ErrLockTimeout = errors.New("timed out waiting for collection lock")

	ErrUnknownCollection = errors.New("unknown collection")
	ErrUnknownIndex      = errors.New("unknown index")
	ErrInvalidKey        = errors.New("invalid key")
	ErrNilRecord         = errors.New("nil record")
)

// OpError describes a failed access-layer operation.
type OpError struct {
	Op         string // get, getAll, getByIndex, put, add, delete, count, tx
	Collection string
	Err        error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// IsUniquenessViolation reports whether err is a primary key or unique index
// collision, either already classified or straight from the driver.
func IsUniquenessViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUniquenessViolation) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// Classify maps an engine error onto the taxonomy. Errors that already
// belong to it, and context errors, are returned unchanged.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUniquenessViolation),
		errors.Is(err, ErrStorageUnavailable),
		errors.Is(err, ErrLockTimeout),
		errors.Is(err, ErrUnknownCollection),
		errors.Is(err, ErrUnknownIndex),
		errors.Is(err, ErrInvalidKey),
		errors.Is(err, ErrNilRecord),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	case IsUniquenessViolation(err):
		return fmt.Errorf("%w: %v", ErrUniquenessViolation, err)
	default:
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
}

func opError(op, collection string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Collection: collection, Err: Classify(err)}
}
