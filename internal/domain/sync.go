package domain

import "time"

// Trigger identifies what started a sync run.
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerScheduled Trigger = "scheduled"
)

// RunStatus is the outcome recorded for a sync run log entry.
type RunStatus string

const (
	RunPending RunStatus = "pending"
	RunSuccess RunStatus = "success"
	RunError   RunStatus = "error"
)

// Interval is the scheduled sync frequency.
type Interval string

const (
	IntervalHourly     Interval = "hourly"
	IntervalTwiceDaily Interval = "twicedaily"
	IntervalDaily      Interval = "daily"
	IntervalWeekly     Interval = "weekly"
)

func (i Interval) Valid() bool {
	switch i {
	case IntervalHourly, IntervalTwiceDaily, IntervalDaily, IntervalWeekly:
		return true
	}
	return false
}

func (i Interval) Duration() time.Duration {
	switch i {
	case IntervalHourly:
		return time.Hour
	case IntervalTwiceDaily:
		return 12 * time.Hour
	case IntervalWeekly:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Settings is the importer configuration read at the start of every run.
type Settings struct {
	APIToken    string
	PostType    string
	PostStatus  Status
	SyncEnabled bool
	Interval    Interval
}

// SyncResult is what a trigger receives back from a run. Per-record errors
// are collected in Errors and do not flip Success.
type SyncResult struct {
	Success  bool     `json:"success"`
	Imported int      `json:"imported"`
	Updated  int      `json:"updated"`
	Errors   []string `json:"errors,omitempty"`
	Message  string   `json:"message"`
}

// RunLog is one append-only sync run log entry; never mutated after insert.
type RunLog struct {
	ID           int64     `db:"id" json:"id"`
	Trigger      Trigger   `db:"trigger_source" json:"trigger_source"`
	Status       RunStatus `db:"status" json:"status"`
	Message      string    `db:"message" json:"message"`
	ErrorDetail  *string   `db:"error_detail" json:"error_detail,omitempty"`
	CreatedCount int       `db:"created_count" json:"created_count"`
	UpdatedCount int       `db:"updated_count" json:"updated_count"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
