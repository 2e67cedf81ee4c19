// Copyright (c) 2023 xCherryIO Organization
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"sync"

	"github.com/xcherryio/timers/common/log"
	"github.com/xcherryio/timers/config"
	"github.com/xcherryio/timers/persistence"
	"github.com/xcherryio/timers/router"
)

type engineImpl struct {
	cfg      config.Config
	store    persistence.TimerStore
	registry *router.Router
	locks    *lockManager
	logger   log.Logger

	mu        sync.Mutex
	started   bool
	stopped   bool
	stopChan  chan struct{}
	processor DispatchTaskProcessor

	loopCancel   context.CancelFunc
	loopDoneChan chan struct{}
}

// NewEngine constructs an engine. No I/O happens until Start.
func NewEngine(cfg config.Config, store persistence.TimerStore, logger log.Logger) Engine {
	return &engineImpl{
		cfg:      cfg,
		store:    store,
		registry: router.New(),
		locks:    newLockManager(store, logger),
		logger:   logger,

		stopChan:     make(chan struct{}),
		loopDoneChan: make(chan struct{}),
	}
}

func (e *engineImpl) IncludeRouter(r *router.Router) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return ErrEngineStarted
	}
	return e.registry.Include(r)
}

func (e *engineImpl) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return ErrEngineStarted
	}
	e.started = true

	e.processor = NewDispatchTaskProcessor(e.cfg, e.store, e.locks, e.registry, e.logger)
	if err := e.processor.Start(); err != nil {
		return err
	}

	loopCtx, loopCancel := context.WithCancel(context.Background())
	e.loopCancel = loopCancel

	loop := newDispatchLoop(loopCtx, e.cfg, e.store, e.processor, e.logger)
	go func() {
		defer close(e.loopDoneChan)
		loop.run()
	}()

	e.logger.Info("timer engine started")
	return nil
}

func (e *engineImpl) RunForever(ctx context.Context) error {
	if err := e.Start(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-e.stopChan:
		// Stop was called directly; it owns the shutdown
		return nil
	}
	stopCtx, cancel := context.WithTimeout(
		context.Background(), (e.cfg.TimerService.ShutdownGrace + e.cfg.TimerService.PollInterval).Duration())
	defer cancel()
	return e.Stop(stopCtx)
}

// Stop signals the loop to exit at the next safe point, then drains the
// in-flight dispatch tasks within the shutdown grace period.
func (e *engineImpl) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.mu.Unlock()
		return nil
	}
	e.stopped = true
	close(e.stopChan)
	e.mu.Unlock()

	e.loopCancel()
	<-e.loopDoneChan

	err := e.processor.Stop(ctx)
	e.logger.Info("timer engine stopped")
	return err
}
