// Copyright (c) 2023 xCherryIO Organization
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"time"

	"github.com/xcherryio/timers/router"
)

// Engine owns the dispatch loop and exposes the scheduling API.
// Construction performs no I/O; Start spawns the poll loop and the
// handler workers; Stop drains them within the configured grace period.
type Engine interface {
	// IncludeRouter merges the router's routes into the engine's registry.
	// Must be called before Start; any topic collision fails the merge.
	IncludeRouter(r *router.Router) error

	// SetTimer schedules (or overwrites) the timer identified by
	// (topic, timerId) to fire activationPeriod from now.
	// The payload is serialized by the codec; it is validated against the
	// topic's schema at dispatch time, not here.
	SetTimer(ctx context.Context, topic, timerId string, payload interface{}, activationPeriod time.Duration) error

	// RemoveTimer cancels the timer. Removing a nonexistent timer is a no-op.
	RemoveTimer(ctx context.Context, topic, timerId string) error

	Start() error
	// RunForever starts the engine and blocks until the context is
	// cancelled or Stop is called, then shuts down gracefully.
	RunForever(ctx context.Context) error
	Stop(ctx context.Context) error
}

// DispatchTaskProcessor runs dispatch tasks with bounded concurrency
type DispatchTaskProcessor interface {
	Start() error
	Stop(ctx context.Context) error
	// Submit enqueues a due timer key for dispatch, blocking for
	// backpressure when all workers are busy and the buffer is full.
	// Returns false when the submit context got cancelled while waiting.
	Submit(ctx context.Context, timerKey string) bool
}
