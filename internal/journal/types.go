package journal

import "time"

// Outcome classifies how an apply attempt ended.
type Outcome string

const (
	OutcomeSuccess       Outcome = "success"
	OutcomeFailed        Outcome = "failed"
	OutcomeRolledBack    Outcome = "rolled_back"
	OutcomeUnrecoverable Outcome = "unrecoverable"
)

// Record is one apply attempt against one installation target.
type Record struct {
	ID          string
	Timestamp   time.Time
	Kind        string
	VersionID   string
	Root        string
	AssetID     string
	ContentHash string
	Outcome     Outcome
	Reason      string
	BackupRef   string
}
