// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artem Voskov

// Package channel maintains the long-lived WebSocket the server pushes sync
// events over. The channel is advisory: losing it does not flip the client
// offline, and every event it delivers is also recoverable by polling, so
// the read loop drops anything it cannot parse instead of failing.
package channel

import (
	"context"
	"time"

	"github.com/avoskov/archivemind/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/channel_mock.go -package=mock

// Connectivity is the lifecycle surface the coordinator drives. Start and
// Stop are idempotent; Stop blocks until the read loop has fully torn down.
type Connectivity interface {
	Start(ctx context.Context)
	Stop()
	Connected() bool
}

// EventSink receives the decoded push events plus the socket lifecycle.
// Implemented by the sync coordinator.
type EventSink interface {
	// OnConnected fires once per established socket, after any reconnect.
	OnConnected(at time.Time)

	// OnDisconnected fires when an established socket is lost for any
	// reason other than a deliberate Stop.
	OnDisconnected()

	// OnSync signals that remote data changed and local reads should
	// refresh. ts is the server's event time.
	OnSync(ts time.Time)

	// OnAck acknowledges that previously flushed changes were applied.
	OnAck(ts time.Time)

	// OnStatus adopts a server-announced sync status verbatim.
	OnStatus(status models.SyncStatus)
}
