package models

// Frame is one message on the sync-status WebSocket. The protocol is a small
// discriminated union over Type; unknown types that carry an explicit Status
// are adopted verbatim, everything else is dropped.
type Frame struct {
	Type      string     `json:"type"`
	Timestamp string     `json:"timestamp,omitempty"`
	Status    SyncStatus `json:"status,omitempty"`
}

const (
	FrameSync = "sync"
	FrameAck  = "ack"
	FramePing = "ping"
	FramePong = "pong"
)
