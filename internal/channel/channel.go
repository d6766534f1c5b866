// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artem Voskov

package channel

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/avoskov/archivemind/internal/config"
	"github.com/avoskov/archivemind/internal/logger"
	"github.com/avoskov/archivemind/models"
)

const defaultMaxReconnectDelay = 30 * time.Second

// Channel is the WebSocket push channel. One read loop runs at a time; on
// connection loss it tears the socket down completely before dialing again
// with exponential backoff.
type Channel struct {
	url      string
	dialer   *websocket.Dialer
	sink     EventSink
	log      *logger.Logger
	maxDelay time.Duration

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	connected atomic.Bool
}

func New(cfg config.Channel, sink EventSink, log *logger.Logger) *Channel {
	maxDelay := cfg.MaxReconnectDelay
	if maxDelay <= 0 {
		maxDelay = defaultMaxReconnectDelay
	}
	return &Channel{
		url:      cfg.URL,
		dialer:   websocket.DefaultDialer,
		sink:     sink,
		log:      log,
		maxDelay: maxDelay,
	}
}

// Start launches the connect/read loop. Calling Start on a running channel
// is a no-op.
func (c *Channel) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.run(runCtx, c.done)
	c.log.Info().Str("func", "Channel.Start").Str("url", c.url).Msg("connectivity channel started")
}

// Stop tears the channel down and waits for the read loop to exit. Calling
// Stop on a stopped channel is a no-op.
func (c *Channel) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	c.log.Info().Str("func", "Channel.Stop").Msg("connectivity channel stopped")
}

// Connected reports whether a socket is currently established.
func (c *Channel) Connected() bool {
	return c.connected.Load()
}

func (c *Channel) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	bo := c.newReconnectBackoff()
	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			wait := bo.NextBackOff()
			c.log.Debug().
				Str("func", "Channel.run").
				Dur("retry_in", wait).
				Err(err).
				Msg("dial failed, will reconnect")
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			continue
		}

		bo.Reset()
		c.connected.Store(true)
		c.sink.OnConnected(time.Now().UTC())
		c.serve(ctx, conn)
		c.connected.Store(false)
		_ = conn.Close()
		if ctx.Err() == nil {
			c.sink.OnDisconnected()
		}
	}
}

// serve reads frames until the socket breaks or ctx is cancelled. The
// closer goroutine unblocks ReadMessage on cancellation.
func (c *Channel) serve(ctx context.Context, conn *websocket.Conn) {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.log.Debug().Str("func", "Channel.serve").Err(err).Msg("socket closed, reconnecting")
			}
			return
		}
		c.handleFrame(conn, data)
	}
}

func (c *Channel) handleFrame(conn *websocket.Conn, data []byte) {
	var frame models.Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		// Malformed frames are dropped: the channel is advisory and a bad
		// frame must never take the read loop down.
		c.log.Debug().Str("func", "Channel.handleFrame").Err(err).Msg("dropping malformed frame")
		return
	}

	switch frame.Type {
	case models.FrameSync:
		c.sink.OnSync(frameTime(frame))
	case models.FrameAck:
		c.sink.OnAck(frameTime(frame))
	case models.FramePing:
		pong := models.Frame{Type: models.FramePong, Timestamp: time.Now().UTC().Format(time.RFC3339)}
		if err := conn.WriteJSON(pong); err != nil {
			c.log.Debug().Str("func", "Channel.handleFrame").Err(err).Msg("pong write failed")
		}
	case models.FramePong:
		// Reply to our own keepalive; nothing to do.
	default:
		if frame.Status.Valid() {
			c.sink.OnStatus(frame.Status)
			return
		}
		c.log.Debug().Str("func", "Channel.handleFrame").Str("type", frame.Type).Msg("dropping unknown frame")
	}
}

// frameTime parses the frame's server timestamp, falling back to local time
// when it is absent or unparseable.
func frameTime(frame models.Frame) time.Time {
	if frame.Timestamp == "" {
		return time.Now().UTC()
	}
	ts, err := time.Parse(time.RFC3339, frame.Timestamp)
	if err != nil {
		return time.Now().UTC()
	}
	return ts
}

// newReconnectBackoff builds the dial retry policy: 1s doubling up to the
// configured ceiling, no jitter, never giving up.
func (c *Channel) newReconnectBackoff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxInterval = c.maxDelay
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}
