// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artem Voskov

package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/avoskov/archivemind/internal/adapter"
	"github.com/avoskov/archivemind/internal/channel"
	"github.com/avoskov/archivemind/internal/config"
	"github.com/avoskov/archivemind/internal/logger"
	"github.com/avoskov/archivemind/internal/service"
	"github.com/avoskov/archivemind/internal/store"
	"github.com/avoskov/archivemind/internal/workers"
	"github.com/avoskov/archivemind/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewLogger("archivemind-client")

	cfg, err := config.GetClientConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open local store")
	}
	defer func() { _ = db.Close() }()

	session := adapter.NewSession(store.NewSessionRepository(db, log))

	client := adapter.New(adapter.Config{
		BaseURL:          cfg.API.BaseURL,
		Timeout:          cfg.API.RequestTimeout,
		RetryBaseDelay:   cfg.API.RetryBaseDelay,
		MaxRetries:       cfg.API.MaxRetries,
		BreakerThreshold: cfg.API.BreakerThreshold,
		BreakerCooldown:  cfg.API.BreakerCooldown,
	}, session, log)
	client.OnAuthExpired(func() {
		log.Warn().Str("func", "main").Msg("session expired, re-authentication required")
	})

	state := service.NewState()
	cache := service.NewCache()
	queue := store.NewQueueRepository(db, log)
	blobs := store.NewBlobRepository(db, log)
	durable := store.NewCacheRepository(db, log)

	coord := service.NewCoordinator(state, queue, blobs, durable, client, nil, cache, log)
	ch := channel.New(cfg.Channel, coord, log)
	coord.AttachChannel(ch)

	notes := service.NewNoteService(cache, durable, coord, client, state, log)
	entities := service.NewEntityService(cache, durable, coord, client, state, log)

	coord.OnDrained(func(ctx context.Context) {
		cache.InvalidateKind(models.KindNote)
		cache.InvalidateKind(models.KindEntity)
		if _, err := notes.List(ctx); err != nil {
			log.Debug().Err(err).Str("func", "main").Msg("notes refresh failed")
		}
		if _, err := entities.List(ctx); err != nil {
			log.Debug().Err(err).Str("func", "main").Msg("entities refresh failed")
		}
	})

	// Changes queued by a previous run are still pending; surface them
	// before anything else happens.
	coord.SyncPendingCount(ctx)

	updates, unsubscribe := state.Subscribe()
	defer unsubscribe()
	go func() {
		for snap := range updates {
			log.Info().
				Str("status", string(snap.Status)).
				Bool("offline", snap.Offline).
				Int("pending", snap.PendingCount).
				Msg("sync state changed")
		}
	}()

	watcher := workers.NewConnectivityWatcher(
		workers.HealthProbe{Client: client},
		coord,
		cfg.Sync.ProbeInterval,
		log,
	)
	workers.NewWorkers(
		workers.NewChannelSupervisor(ctx, ch),
		watcher,
	).Run()

	log.Info().Str("api", cfg.API.BaseURL).Str("ws", cfg.Channel.URL).Msg("sync core running")

	<-ctx.Done()
	log.Info().Msg("shutting down")
	watcher.Stop()
	ch.Stop()
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}
	if buildDate == "" {
		buildDate = "N/A"
	}
	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
