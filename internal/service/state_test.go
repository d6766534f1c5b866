package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoskov/archivemind/models"
)

func TestState_Defaults(t *testing.T) {
	s := NewState()

	snap := s.Snapshot()
	assert.False(t, snap.Offline)
	assert.Equal(t, models.StatusSynced, snap.Status)
	assert.Nil(t, snap.LastSyncAt)
	assert.Zero(t, snap.PendingCount)
}

func TestState_SetOfflineFlipsStatus(t *testing.T) {
	s := NewState()

	s.SetOffline(true)
	assert.True(t, s.Offline())
	assert.Equal(t, models.StatusOffline, s.Status())

	s.SetOffline(false)
	assert.False(t, s.Offline())
	assert.Equal(t, models.StatusSynced, s.Status())
}

func TestState_RecordSync(t *testing.T) {
	s := NewState()
	s.SetStatus(models.StatusError)

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s.RecordSync(at)

	snap := s.Snapshot()
	assert.Equal(t, models.StatusSynced, snap.Status)
	require.NotNil(t, snap.LastSyncAt)
	assert.True(t, snap.LastSyncAt.Equal(at))
}

func TestState_InvalidStatusIgnored(t *testing.T) {
	s := NewState()
	s.SetStatus("bogus")
	assert.Equal(t, models.StatusSynced, s.Status())
}

func TestState_SubscribePublishesSnapshots(t *testing.T) {
	s := NewState()
	ch, unsubscribe := s.Subscribe()

	s.SetPendingCount(3)

	select {
	case snap := <-ch:
		assert.Equal(t, 3, snap.PendingCount)
	case <-time.After(time.Second):
		t.Fatal("no snapshot published")
	}

	unsubscribe()
	_, open := <-ch
	assert.False(t, open, "unsubscribe must close the channel")

	// Publishing after unsubscribe must not panic.
	s.SetPendingCount(4)
}

func TestState_SlowSubscriberNeverBlocks(t *testing.T) {
	s := NewState()
	_, unsubscribe := s.Subscribe()
	defer unsubscribe()

	// Overflow the buffer; the publisher must drop, not block.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			s.SetPendingCount(i)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}
}
