// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artem Voskov

package service

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/avoskov/archivemind/internal/adapter"
	"github.com/avoskov/archivemind/internal/logger"
	"github.com/avoskov/archivemind/internal/store"
	"github.com/avoskov/archivemind/internal/utils"
	"github.com/avoskov/archivemind/models"
)

// Coordinator owns the offline/online transitions and the durable queue
// replay. It is also the push channel's EventSink.
type Coordinator struct {
	state   *State
	queue   store.QueueRepository
	blobs   store.BlobRepository
	durable store.CacheRepository
	client  adapter.RequestClient
	channel ConnectivityChannel
	cache   *Cache
	log     *logger.Logger
	clock   func() time.Time

	// flushMu serializes replay: two overlapping flushes could reorder
	// changes, which the queue's FIFO contract forbids.
	flushMu sync.Mutex

	hookMu    sync.Mutex
	onDrained func(ctx context.Context)
}

func NewCoordinator(
	state *State,
	queue store.QueueRepository,
	blobs store.BlobRepository,
	durable store.CacheRepository,
	client adapter.RequestClient,
	ch ConnectivityChannel,
	cache *Cache,
	log *logger.Logger,
) *Coordinator {
	return &Coordinator{
		state:   state,
		queue:   queue,
		blobs:   blobs,
		durable: durable,
		client:  client,
		channel: ch,
		cache:   cache,
		log:     log,
		clock:   time.Now,
	}
}

// AttachChannel binds the push channel after construction. The channel and
// the coordinator reference each other (the coordinator is the channel's
// event sink), so one side has to bind late. Must be called before any
// SetOffline transition.
func (c *Coordinator) AttachChannel(ch ConnectivityChannel) {
	c.channel = ch
}

// OnDrained registers the hook invoked after the queue fully drains (and
// after a server-pushed sync event): the mutation layer uses it to refetch
// authoritative data.
func (c *Coordinator) OnDrained(fn func(ctx context.Context)) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.onDrained = fn
}

// SetOffline flips the device between offline and online mode.
//
// Going offline stops the push channel; all subsequent mutations queue
// locally. Coming back online restarts the channel and immediately flushes
// the queue, then uploads any media captured while offline.
func (c *Coordinator) SetOffline(ctx context.Context, offline bool) {
	if c.state.Offline() == offline {
		return
	}

	c.state.SetOffline(offline)
	c.log.Info().Str("func", "Coordinator.SetOffline").Bool("offline", offline).Msg("connectivity changed")

	if offline {
		if c.channel != nil {
			c.channel.Stop()
		}
		return
	}

	if c.channel != nil {
		c.channel.Start(ctx)
	}
	flushed, idMap, err := c.FlushPendingChanges(ctx)
	if err != nil {
		c.log.Err(err).Str("func", "Coordinator.SetOffline").Int("flushed", flushed).Msg("flush stopped early")
		return
	}
	if _, err := c.FlushMediaBlobs(ctx, idMap); err != nil {
		c.log.Err(err).Str("func", "Coordinator.SetOffline").Msg("media flush stopped early")
	}
}

// QueueChange persists a change and republishes the pending counter from a
// fresh store recount.
func (c *Coordinator) QueueChange(ctx context.Context, change models.PendingChange) error {
	if err := c.queue.Enqueue(ctx, change); err != nil {
		return err
	}
	c.SyncPendingCount(ctx)
	return nil
}

// SyncPendingCount recounts the queue from the store and publishes the
// result. Counting failures leave the previous value in place.
func (c *Coordinator) SyncPendingCount(ctx context.Context) int {
	n, err := c.queue.Count(ctx)
	if err != nil {
		c.log.Err(err).Str("func", "Coordinator.SyncPendingCount").Msg("queue count failed")
		return c.state.Snapshot().PendingCount
	}
	c.state.SetPendingCount(n)
	return n
}

// FlushPendingChanges replays the queue in insertion order. Replay halts on
// the first failure so a later change never lands before an earlier stuck
// one. Returns the number of flushed changes and the temp-id map collected
// from replayed creates.
func (c *Coordinator) FlushPendingChanges(ctx context.Context) (int, map[string]string, error) {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	changes, err := c.queue.List(ctx)
	if err != nil {
		return 0, nil, err
	}
	if len(changes) == 0 {
		return 0, nil, nil
	}

	c.state.SetStatus(models.StatusSyncing)

	idMap := make(map[string]string)
	flushed := 0
	var replayErr error

	for _, change := range changes {
		replayed := remapChange(change, idMap)

		var body any
		if len(replayed.Body) > 0 {
			body = replayed.Body
		}
		reply, err := c.client.Do(ctx, string(replayed.Method), replayed.TargetURL, body)
		if err != nil {
			replayErr = err
			c.log.Err(err).
				Str("func", "Coordinator.FlushPendingChanges").
				Str("change_id", change.ID).
				Int("flushed", flushed).
				Msg("replay halted")
			break
		}

		if replayed.Method == models.MethodPost && utils.IsTempID(replayed.ResourceID) {
			c.resolveTempID(ctx, replayed, reply, idMap)
		}

		if err := c.queue.Remove(ctx, change.ID); err != nil {
			// The change was applied remotely; a dangling queue row would
			// replay it twice. Halt and surface.
			replayErr = err
			break
		}
		flushed++
	}

	remaining := c.SyncPendingCount(ctx)
	if remaining == 0 {
		c.state.RecordSync(c.clock())
		c.fireDrained(ctx)
	} else {
		c.state.SetStatus(models.StatusError)
	}

	return flushed, idMap, replayErr
}

// resolveTempID harvests the server-assigned id from a replayed create and
// rewrites the temp id everywhere it can still occur: later queued changes,
// queued media blob owners, the durable cache row, and the in-memory cache.
func (c *Coordinator) resolveTempID(ctx context.Context, change models.PendingChange, reply *adapter.Reply, idMap map[string]string) {
	var created struct {
		ID string `json:"id"`
	}
	if err := reply.DecodeData(&created); err != nil || created.ID == "" || created.ID == change.ResourceID {
		return
	}

	oldID, newID := change.ResourceID, created.ID
	idMap[oldID] = newID

	if err := c.queue.RewriteResource(ctx, oldID, newID); err != nil {
		c.log.Err(err).Str("func", "Coordinator.resolveTempID").Msg("queue rewrite failed")
	}
	if err := c.blobs.RewriteOwner(ctx, oldID, newID); err != nil {
		c.log.Err(err).Str("func", "Coordinator.resolveTempID").Msg("blob owner rewrite failed")
	}
	if err := c.durable.ReplaceID(ctx, change.Kind, oldID, newID); err != nil {
		c.log.Err(err).Str("func", "Coordinator.resolveTempID").Msg("cache rekey failed")
	}
	if c.cache != nil {
		c.cache.ReplaceID(change.Kind, oldID, newID)
	}

	c.log.Debug().
		Str("func", "Coordinator.resolveTempID").
		Str("temp_id", oldID).
		Str("server_id", newID).
		Msg("temp id resolved")
}

// FlushMediaBlobs uploads every queued media blob, oldest first, stopping on
// the first failure. idMap (from the preceding change flush) remaps owners
// whose durable rewrite this process has not observed yet.
func (c *Coordinator) FlushMediaBlobs(ctx context.Context, idMap map[string]string) (int, error) {
	queued, err := c.blobs.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	uploaded := 0
	for _, blob := range queued {
		if newID, ok := idMap[blob.OwnerResourceID]; ok {
			blob.OwnerResourceID = newID
		}
		if utils.IsTempID(blob.OwnerResourceID) {
			// The owning create has not replayed yet; keep the blob queued.
			continue
		}

		if _, err := c.client.UploadMedia(ctx, "/media", blob); err != nil {
			return uploaded, err
		}
		if err := c.blobs.Remove(ctx, blob.ID); err != nil {
			return uploaded, err
		}
		uploaded++
	}
	return uploaded, nil
}

// QueueBlob persists a media blob captured while offline.
func (c *Coordinator) QueueBlob(ctx context.Context, blob models.MediaBlob) error {
	return c.blobs.Store(ctx, blob)
}

// ── channel.EventSink ──

// OnConnected marks the channel (re-)established: synced, lastSync now.
func (c *Coordinator) OnConnected(at time.Time) {
	c.state.RecordSync(at)
}

// OnDisconnected degrades gracefully: losing the push channel alone does not
// flip the device offline, status stays synced.
func (c *Coordinator) OnDisconnected() {
	if !c.state.Offline() {
		c.state.SetStatus(models.StatusSynced)
	}
}

// OnSync reacts to a server push that remote data changed: mark syncing and
// refresh local reads. The state stays syncing until an ack (or a drained
// flush) settles it.
func (c *Coordinator) OnSync(_ time.Time) {
	c.state.SetStatus(models.StatusSyncing)
	c.fireDrained(context.Background())
}

// OnAck records a server acknowledgement of flushed changes.
func (c *Coordinator) OnAck(ts time.Time) {
	c.state.RecordSync(ts)
}

// OnStatus adopts a server-announced status verbatim.
func (c *Coordinator) OnStatus(status models.SyncStatus) {
	c.state.SetStatus(status)
}

func (c *Coordinator) fireDrained(ctx context.Context) {
	c.hookMu.Lock()
	fn := c.onDrained
	c.hookMu.Unlock()
	if fn != nil {
		fn(ctx)
	}
}

// remapChange substitutes already-resolved temp ids into a change loaded
// before the resolution happened. The durable rows were rewritten too; this
// covers the copy already in memory for the current pass.
func remapChange(change models.PendingChange, idMap map[string]string) models.PendingChange {
	for oldID, newID := range idMap {
		change.TargetURL = strings.ReplaceAll(change.TargetURL, oldID, newID)
		if change.ResourceID == oldID {
			change.ResourceID = newID
		}
		if len(change.Body) > 0 {
			change.Body = bytes.ReplaceAll(change.Body, []byte(oldID), []byte(newID))
		}
	}
	return change
}
