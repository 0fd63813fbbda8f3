// Package invoice mints daily invoice numbers.
//
// Numbers run #001, #002, ... within a calendar day and restart at #001 on
// the first call of a new day. The counter row is read, advanced and written
// inside one transaction under the counter collection's write lock, so
// concurrent callers never receive the same number for the same day.
package invoice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/posdz/internal/database"
	"github.com/mrlokans/posdz/internal/entities"
)

type Sequencer struct {
	db  *database.Database
	now func() time.Time
	loc *time.Location
}

type Option func(*Sequencer)

// WithClock replaces the clock used to decide the current day.
func WithClock(now func() time.Time) Option {
	return func(s *Sequencer) { s.now = now }
}

// WithLocation sets the time zone whose midnight starts a new day.
func WithLocation(loc *time.Location) Option {
	return func(s *Sequencer) { s.loc = loc }
}

// NewSequencer creates a sequencer over db. Clock and location default to
// the database's.
func NewSequencer(db *database.Database, opts ...Option) *Sequencer {
	s := &Sequencer{
		db:  db,
		now: db.Now,
		loc: db.Location(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Format renders n as an invoice number: "#" and at least three digits.
func Format(n int64) string {
	return fmt.Sprintf("#%03d", n)
}

func (s *Sequencer) today() string {
	return s.now().In(s.loc).Format(entities.DayLayout)
}

// Next issues the next number for today.
func (s *Sequencer) Next(ctx context.Context) (string, error) {
	today := s.today()
	var issued int64

	err := s.db.WriteTx(ctx, entities.CollectionCounter, func(tx *gorm.DB) error {
		counter, err := load(tx, today)
		if err != nil {
			return err
		}

		if counter.LastReset != today {
			zap.L().Info("invoice counter rolled over",
				zap.String("from", counter.LastReset), zap.String("to", today))
			counter.Number = 1
			counter.LastReset = today
		}
		if counter.Number < 1 {
			counter.Number = 1
		}

		issued = counter.Number
		counter.Number++
		return save(tx, counter)
	})
	if err != nil {
		return "", fmt.Errorf("next invoice number: %w", err)
	}
	return Format(issued), nil
}

// Reset forces the counter to {1, today}; the next call to Next returns #001.
func (s *Sequencer) Reset(ctx context.Context) error {
	counter := &entities.Counter{ID: entities.CounterID, Number: 1, LastReset: s.today()}

	err := s.db.WriteTx(ctx, entities.CollectionCounter, func(tx *gorm.DB) error {
		return save(tx, counter)
	})
	if err != nil {
		return fmt.Errorf("reset invoice counter: %w", err)
	}
	zap.L().Info("invoice counter reset", zap.String("day", counter.LastReset))
	return nil
}

// Current returns the stored counter, or what Next would start from when the
// row is missing.
func (s *Sequencer) Current(ctx context.Context) (entities.Counter, error) {
	counter, found, err := s.db.Counter().Get(ctx, entities.CounterID)
	if err != nil {
		return entities.Counter{}, err
	}
	if !found {
		return entities.Counter{ID: entities.CounterID, Number: 1, LastReset: s.today()}, nil
	}
	return *counter, nil
}

// Peek returns the number Next would issue now without consuming it.
func (s *Sequencer) Peek(ctx context.Context) (string, error) {
	counter, err := s.Current(ctx)
	if err != nil {
		return "", err
	}
	if counter.LastReset != s.today() || counter.Number < 1 {
		return Format(1), nil
	}
	return Format(counter.Number), nil
}

func load(tx *gorm.DB, today string) (*entities.Counter, error) {
	var counter entities.Counter
	err := tx.Take(&counter, entities.CounterID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &entities.Counter{ID: entities.CounterID, Number: 1, LastReset: today}, nil
	}
	if err != nil {
		return nil, database.Classify(err)
	}
	return &counter, nil
}

func save(tx *gorm.DB, counter *entities.Counter) error {
	err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(counter).Error
	return database.Classify(err)
}
