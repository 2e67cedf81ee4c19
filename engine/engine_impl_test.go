// Copyright (c) 2023 xCherryIO Organization
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xcherryio/timers/config"
	"github.com/xcherryio/timers/persistence"
	"github.com/xcherryio/timers/router"
	"github.com/xcherryio/timers/timerpayload"
)

func TestIncludeRouterAfterStart(t *testing.T) {
	store := newFakeTimerStore()
	eng := newTestEngine(t, newTestConfig(), store)

	require.NoError(t, eng.Start())
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = eng.Stop(stopCtx)
	}()

	r := router.New()
	require.NoError(t, r.Handle("late", timerpayload.NewJSONSchema(testPayload{}),
		func(ctx context.Context, payload interface{}) error { return nil }))

	assert.ErrorIs(t, eng.IncludeRouter(r), ErrEngineStarted)
}

func TestDoubleStart(t *testing.T) {
	store := newFakeTimerStore()
	eng := newTestEngine(t, newTestConfig(), store)

	require.NoError(t, eng.Start())
	assert.ErrorIs(t, eng.Start(), ErrEngineStarted)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, eng.Stop(stopCtx))
}

func TestStopIsIdempotent(t *testing.T) {
	store := newFakeTimerStore()
	eng := newTestEngine(t, newTestConfig(), store)
	require.NoError(t, eng.Start())

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, eng.Stop(stopCtx))
	require.NoError(t, eng.Stop(stopCtx))
}

func TestStopBeforeStart(t *testing.T) {
	store := newFakeTimerStore()
	eng := newTestEngine(t, newTestConfig(), store)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, eng.Stop(stopCtx))
}

func TestStopCancelsInFlightHandlerAndReleasesLease(t *testing.T) {
	cfg := newTestConfig()
	cfg.TimerService.ShutdownGrace = config.Duration(50 * time.Millisecond)

	store := newFakeTimerStore()
	handlerStarted := make(chan struct{})

	r := router.New()
	require.NoError(t, r.Handle("slow", timerpayload.NewJSONSchema(testPayload{}),
		func(ctx context.Context, payload interface{}) error {
			close(handlerStarted)
			// block until the engine cancels us after the grace period
			<-ctx.Done()
			return ctx.Err()
		}))

	eng := newTestEngine(t, cfg, store)
	require.NoError(t, eng.IncludeRouter(r))
	require.NoError(t, eng.Start())

	require.NoError(t, eng.SetTimer(context.Background(), "slow", "t1", testPayload{Message: "x"}, 0))

	select {
	case <-handlerStarted:
	case <-time.After(3 * time.Second):
		t.Fatal("handler was never invoked")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	stopBegan := time.Now()
	require.NoError(t, eng.Stop(stopCtx))
	// the grace period elapsed before cancellation kicked in
	assert.GreaterOrEqual(t, time.Since(stopBegan), 50*time.Millisecond)

	// the cancelled task went through the failure path and released its lease
	assert.False(t, store.lockHeld(persistence.ConsumeLeaseKey("slow--t1")))
	// the timer survives for redelivery by another worker
	assert.Equal(t, 1, store.timerCount())
}

func TestRunForeverStopsOnContextCancel(t *testing.T) {
	store := newFakeTimerStore()
	eng := newTestEngine(t, newTestConfig(), store)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- eng.RunForever(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("RunForever did not return after context cancellation")
	}
}
