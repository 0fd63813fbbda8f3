package entities

// DayLayout formats the calendar day stored in Counter.LastReset.
const DayLayout = "2006-01-02"

// Counter is the invoice sequencer state. Exactly one row exists, keyed by
// CounterID.
type Counter struct {
	ID        uint   `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Number    int64  `json:"number"`
	LastReset string `gorm:"size:10" json:"lastReset"` // YYYY-MM-DD
}

func (Counter) TableName() string {
	return "counter"
}

func (c Counter) PrimaryKey() uint {
	return c.ID
}
