// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artem Voskov

// Package service holds the offline coordinator and the optimistic mutation
// layer: the glue between the durable store, the resilient request client,
// and the push channel.
package service

import "context"

//go:generate mockgen -source=interfaces.go -destination=../mock/service_mock.go -package=mock

// ConnectivityChannel is the lifecycle surface of the push channel as the
// coordinator sees it. Satisfied by *channel.Channel.
type ConnectivityChannel interface {
	Start(ctx context.Context)
	Stop()
}
