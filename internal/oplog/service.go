// Package oplog records what operators did at the till: checkouts, deletions,
// debt payments, settings changes, counter resets, logins and backups.
package oplog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mrlokans/posdz/internal/database/logs"
	"github.com/mrlokans/posdz/internal/entities"
)

const maxErrorLength = 500

// Service provides high-level operation logging.
type Service struct {
	repo    *logs.Repository
	pending sync.WaitGroup
}

// NewService creates a new operation log service.
func NewService(repo *logs.Repository) *Service {
	return &Service{repo: repo}
}

// Log records an entry synchronously.
func (s *Service) Log(ctx context.Context, entry *entities.LogEntry) error {
	if entry.Status == "" {
		entry.Status = entities.LogStatusSuccess
	}
	entry.Error = truncate(entry.Error, maxErrorLength)
	return s.repo.Append(ctx, entry)
}

// LogAsync records an entry in the background. A failed write is logged and
// dropped; it never fails the operation being recorded.
func (s *Service) LogAsync(entry entities.LogEntry) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.Log(context.Background(), &entry); err != nil {
			zap.L().Warn("failed to write operation log entry",
				zap.String("action", string(entry.Action)), zap.Error(err))
		}
	}()
}

// Wait blocks until every LogAsync write has finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

// Recent returns a page of entries, newest first, with the total count.
func (s *Service) Recent(ctx context.Context, action entities.LogAction, limit, offset int) ([]entities.LogEntry, int64, error) {
	return s.repo.Recent(ctx, action, limit, offset)
}

// Prune removes entries older than retention.
func (s *Service) Prune(ctx context.Context, now time.Time, retention time.Duration) (int64, error) {
	return s.repo.DeleteOlderThan(ctx, now.Add(-retention))
}

// LogCheckout records a completed or failed checkout.
func (s *Service) LogCheckout(username string, saleID uint, invoiceNumber string, err error) {
	entry := entities.LogEntry{
		Action:      entities.LogActionCheckout,
		Description: "Sale " + invoiceNumber,
		Username:    username,
		EntityType:  entities.CollectionSales,
	}
	if saleID != 0 {
		entry.EntityID = &saleID
	}
	s.LogAsync(withError(entry, err))
}

// LogSaleDelete records the removal of a sale and its items.
func (s *Service) LogSaleDelete(username string, saleID uint, invoiceNumber string, err error) {
	s.LogAsync(withError(entities.LogEntry{
		Action:      entities.LogActionSaleDelete,
		Description: "Deleted sale " + invoiceNumber,
		Username:    username,
		EntityType:  entities.CollectionSales,
		EntityID:    &saleID,
	}, err))
}

// LogDebtPayment records a payment against a debt.
func (s *Service) LogDebtPayment(username string, debtID uint, amount string, err error) {
	s.LogAsync(withError(entities.LogEntry{
		Action:      entities.LogActionDebtPayment,
		Description: "Paid " + amount,
		Username:    username,
		EntityType:  entities.CollectionDebts,
		EntityID:    &debtID,
	}, err))
}

// LogSettings records a settings change.
func (s *Service) LogSettings(username string, keys []string) {
	s.LogAsync(entities.LogEntry{
		Action:      entities.LogActionSettings,
		Description: fmt.Sprintf("Updated settings: %v", keys),
		Username:    username,
		EntityType:  entities.CollectionSettings,
	})
}

// LogCounterReset records a manual invoice counter reset.
func (s *Service) LogCounterReset(username string, err error) {
	s.LogAsync(withError(entities.LogEntry{
		Action:      entities.LogActionCounterReset,
		Description: "Invoice counter reset",
		Username:    username,
		EntityType:  entities.CollectionCounter,
	}, err))
}

// LogBackup records a backup export.
func (s *Service) LogBackup(username, fileName string, err error) {
	s.LogAsync(withError(entities.LogEntry{
		Action:      entities.LogActionBackup,
		Description: "Backup " + fileName,
		Username:    username,
	}, err))
}

// LogRestore records a backup restore.
func (s *Service) LogRestore(username string, records int, err error) {
	s.LogAsync(withError(entities.LogEntry{
		Action:      entities.LogActionRestore,
		Description: fmt.Sprintf("Restored %d records", records),
		Username:    username,
	}, err))
}

func withError(entry entities.LogEntry, err error) entities.LogEntry {
	entry.Status = entities.LogStatusSuccess
	if err != nil {
		entry.Status = entities.LogStatusFailed
		entry.Error = err.Error()
	}
	return entry
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
