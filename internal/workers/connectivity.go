// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artem Voskov

package workers

import (
	"context"
	"sync"
	"time"

	"github.com/avoskov/archivemind/internal/adapter"
	"github.com/avoskov/archivemind/internal/logger"
)

const defaultProbeInterval = 20 * time.Second

// ConnectivityWatcher probes the API health endpoint on a ticker and flips
// the coordinator between online and offline. It is the process-level
// replacement for a platform connectivity signal: reachability is decided by
// whether the server answers, not by a network interface flag.
//
// A reachable server that answers with an error still counts as online -
// only a transport-level failure (no response, breaker open) means offline.
type ConnectivityWatcher struct {
	prober   HealthProber
	coord    OfflineController
	interval time.Duration
	log      *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewConnectivityWatcher(prober HealthProber, coord OfflineController, interval time.Duration, log *logger.Logger) *ConnectivityWatcher {
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	return &ConnectivityWatcher{
		prober:   prober,
		coord:    coord,
		interval: interval,
		log:      log,
	}
}

// Run implements Worker.
func (w *ConnectivityWatcher) Run() {
	w.Start(context.Background())
}

// Start launches the probe loop. It stops any previously running loop first.
// The first probe fires immediately so startup does not wait a full interval
// to learn the connectivity state.
func (w *ConnectivityWatcher) Start(ctx context.Context) {
	w.Stop()

	w.mu.Lock()
	probeCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()

		w.probe(probeCtx)

		t := time.NewTicker(w.interval)
		defer t.Stop()
		for {
			select {
			case <-probeCtx.Done():
				return
			case <-t.C:
				w.probe(probeCtx)
			}
		}
	}()
}

// Stop cancels the probe loop and blocks until it has exited. Safe to call
// when the watcher is not running.
func (w *ConnectivityWatcher) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}

func (w *ConnectivityWatcher) probe(ctx context.Context) {
	err := w.prober.Probe(ctx)
	offline := adapter.IsNetworkUnavailable(err) || adapter.IsBreakerOpen(err)

	if err != nil && !offline {
		w.log.Debug().Str("func", "ConnectivityWatcher.probe").Err(err).Msg("health probe failed but server is reachable")
	}
	w.coord.SetOffline(ctx, offline)
}

// HealthProbe adapts the request client into a HealthProber.
type HealthProbe struct {
	Client adapter.RequestClient
}

func (p HealthProbe) Probe(ctx context.Context) error {
	_, err := p.Client.Do(ctx, "GET", "/health", nil)
	return err
}
