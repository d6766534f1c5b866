// Package workers provides abstractions for managing and running
// background workers in the application.
// It defines the Worker interface and a Workers aggregate that allows
// running multiple workers in a unified way.
package workers

import "context"

//go:generate mockgen -source=interfaces.go -destination=../mock/workers_mock.go -package=mock

// Worker is the interface that must be implemented by any background worker.
// It defines a single Run method that starts the worker's execution.
//
// Implementations are expected to block for the duration of their work
// or spawn goroutines internally.
type Worker interface {
	Run()
}

// OfflineController is the coordinator surface the connectivity watcher
// drives.
type OfflineController interface {
	SetOffline(ctx context.Context, offline bool)
}

// HealthProber checks whether the remote API is reachable. Satisfied by the
// adapter client via a thin wrapper.
type HealthProber interface {
	Probe(ctx context.Context) error
}
