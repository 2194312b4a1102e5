package application

import "time"

// Change operations carried by RecordsChanged.
const (
	OpCreated  = "created"
	OpUpdated  = "updated"
	OpDeleted  = "deleted"
	OpReplaced = "replaced"
)

// RecordsChanged is published after every successful write to the registry.
// RecordID is empty for OpReplaced.
type RecordsChanged struct {
	Op       string
	RecordID string
	At       time.Time
}
