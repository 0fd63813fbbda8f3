package entities

import "time"

type LogAction string

const (
	LogActionCheckout     LogAction = "checkout"
	LogActionSaleDelete   LogAction = "sale_delete"
	LogActionDebtPayment  LogAction = "debt_payment"
	LogActionSettings     LogAction = "settings"
	LogActionCounterReset LogAction = "counter_reset"
	LogActionLogin        LogAction = "login"
	LogActionLogout       LogAction = "logout"
	LogActionBackup       LogAction = "backup"
	LogActionRestore      LogAction = "restore"
	LogActionUser         LogAction = "user"
)

type LogStatus string

const (
	LogStatusSuccess LogStatus = "success"
	LogStatusFailed  LogStatus = "failed"
)

// LogEntry is one row of the append-only operation log.
type LogEntry struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Action      LogAction `gorm:"size:50" json:"action"`
	Description string    `gorm:"size:500" json:"description"`
	Username    string    `gorm:"size:100" json:"username"`
	EntityType  string    `gorm:"size:50" json:"entityType,omitempty"` // "sale", "debt", "setting", ...
	EntityID    *uint     `json:"entityId,omitempty"`
	Status      LogStatus `gorm:"size:20" json:"status"`
	Error       string    `gorm:"size:500" json:"error,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (LogEntry) TableName() string {
	return "logs"
}

func (l LogEntry) PrimaryKey() uint {
	return l.ID
}
