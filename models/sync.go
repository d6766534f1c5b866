package models

import "time"

// SyncStatus is the process-wide synchronization state shown to the user.
type SyncStatus string

const (
	StatusSynced  SyncStatus = "synced"
	StatusSyncing SyncStatus = "syncing"
	StatusOffline SyncStatus = "offline"
	StatusError   SyncStatus = "error"
)

// Valid reports whether s is one of the four known statuses. Frames arriving
// over the wire with an unknown status are ignored rather than adopted.
func (s SyncStatus) Valid() bool {
	switch s {
	case StatusSynced, StatusSyncing, StatusOffline, StatusError:
		return true
	}
	return false
}

// SyncSnapshot is a point-in-time copy of the coordinator state, safe to
// hand to observers without further locking.
type SyncSnapshot struct {
	Offline      bool       `json:"offline"`
	Status       SyncStatus `json:"status"`
	LastSyncAt   *time.Time `json:"last_sync_at,omitempty"`
	PendingCount int        `json:"pending_count"`
}
