// Copyright (c) 2023 xCherryIO Organization
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xcherryio/timers/common/log"
	"github.com/xcherryio/timers/common/log/tag"
	"github.com/xcherryio/timers/config"
	"github.com/xcherryio/timers/persistence"
	"github.com/xcherryio/timers/router"
)

type dispatchTask struct {
	timerKey string
}

// dispatchTaskProcessor fans due timers out to a bounded pool of workers.
// Each task claims the timer's consume lease before touching it, so across
// the whole fleet at most one worker dispatches a given timer per lease TTL.
type dispatchTaskProcessor struct {
	// taskCtx is passed to handlers; it is cancelled only after the
	// shutdown grace period so in-flight handlers get a chance to finish
	taskCtx    context.Context
	taskCancel context.CancelFunc

	cfg      config.Config
	store    persistence.TimerStore
	locks    *lockManager
	registry *router.Router
	logger   log.Logger

	taskToProcessChan chan dispatchTask
	workerWaitGroup   sync.WaitGroup
}

func NewDispatchTaskProcessor(
	cfg config.Config, store persistence.TimerStore, locks *lockManager,
	registry *router.Router, logger log.Logger,
) DispatchTaskProcessor {
	taskCtx, taskCancel := context.WithCancel(context.Background())
	return &dispatchTaskProcessor{
		taskCtx:    taskCtx,
		taskCancel: taskCancel,

		cfg:      cfg,
		store:    store,
		locks:    locks,
		registry: registry,
		logger:   logger,

		taskToProcessChan: make(chan dispatchTask, cfg.TimerService.BatchSize),
	}
}

func (p *dispatchTaskProcessor) Start() error {
	concurrency := p.cfg.TimerService.Concurrency

	for i := 0; i < concurrency; i++ {
		p.workerWaitGroup.Add(1)
		go func() {
			defer p.workerWaitGroup.Done()
			for task := range p.taskToProcessChan {
				p.processDispatchTask(task)
			}
		}()
	}
	return nil
}

func (p *dispatchTaskProcessor) Submit(ctx context.Context, timerKey string) bool {
	select {
	case p.taskToProcessChan <- dispatchTask{timerKey: timerKey}:
		return true
	case <-ctx.Done():
		return false
	}
}

// Stop closes the intake and waits for the workers to drain. When the
// shutdown grace period (or the caller's deadline) passes first, the task
// context is cancelled so handlers can exit cooperatively; their failure
// path releases the consume leases, leaving no timer stranded.
func (p *dispatchTaskProcessor) Stop(ctx context.Context) error {
	close(p.taskToProcessChan)

	drained := make(chan struct{})
	go func() {
		p.workerWaitGroup.Wait()
		close(drained)
	}()

	graceTimer := time.NewTimer(p.cfg.TimerService.ShutdownGrace.Duration())
	defer graceTimer.Stop()
	select {
	case <-drained:
		return nil
	case <-graceTimer.C:
	case <-ctx.Done():
	}

	p.logger.Warn("shutdown grace exceeded, cancelling in-flight dispatch tasks")
	p.taskCancel()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatch tasks did not finish before shutdown deadline: %w", ctx.Err())
	}
}

// processDispatchTask runs the per-timer dispatch pipeline:
// lease -> payload -> route -> validate -> invoke -> delete.
// Nothing here is fatal to the engine; every failure is logged and either
// retried on a later poll (lease released) or left for the operator.
func (p *dispatchTaskProcessor) processDispatchTask(task dispatchTask) {
	ctx := p.taskCtx
	svcCfg := p.cfg.TimerService
	leaseKey := persistence.ConsumeLeaseKey(task.timerKey)

	leaseToken, acquired, err := p.locks.tryAcquireConsumeLease(ctx, leaseKey, svcCfg.ConsumeLeaseTTL.Duration())
	if err != nil {
		p.logger.Error("failed to acquire consume lease, will retry on next poll",
			tag.TimerKey(task.timerKey), tag.Error(err))
		return
	}
	if !acquired {
		// another worker is dispatching this timer
		p.logger.Debug("timer is locked", tag.TimerKey(task.timerKey))
		return
	}

	payloadResp, err := p.store.GetPayload(ctx, persistence.GetPayloadRequest{Key: task.timerKey})
	if err != nil {
		p.logger.Error("failed to fetch payload, will retry on next poll",
			tag.TimerKey(task.timerKey), tag.Error(err))
		p.locks.releaseLock(leaseKey, leaseToken)
		return
	}
	if !payloadResp.Exists {
		// another worker already dispatched and cleaned up; leave the
		// lease to expire
		p.logger.Debug("no payload found for timer", tag.TimerKey(task.timerKey))
		return
	}

	topic, timerId, ok := persistence.SplitTimerKey(svcCfg.Separator, task.timerKey)
	if !ok {
		p.logger.Error("corrupted timeline entry without separator, abandoning",
			tag.TimerKey(task.timerKey))
		return
	}

	route, ok := p.registry.Lookup(topic)
	if !ok {
		// leaving the entry visible beats silently dropping user data;
		// the operator has to register the handler or remove the timer
		p.logger.Warn("handler is not found for timer, leaving the entry",
			tag.Topic(topic), tag.TimerId(timerId), tag.Error(ErrHandlerNotFound))
		p.locks.releaseLock(leaseKey, leaseToken)
		return
	}

	value, err := route.Schema.Validate(payloadResp.Payload)
	if err != nil {
		p.logger.Error("failed to parse payload, leaving the entry",
			tag.Topic(topic), tag.TimerId(timerId), tag.Error(err))
		p.locks.releaseLock(leaseKey, leaseToken)
		return
	}

	if err := invokeHandler(ctx, route.Handler, value); err != nil {
		p.logger.Error("handler failed, timer will be retried",
			tag.Topic(topic), tag.TimerId(timerId), tag.Error(err))
		p.locks.releaseLock(leaseKey, leaseToken)
		return
	}

	_, err = p.store.DeleteTimer(ctx, persistence.DeleteTimerRequest{Key: task.timerKey})
	if err != nil {
		// the handler already ran; releasing the lease makes the timer
		// eligible again, which is the at-least-once contract
		p.logger.Error("failed to delete dispatched timer",
			tag.Topic(topic), tag.TimerId(timerId), tag.Error(err))
		p.locks.releaseLock(leaseKey, leaseToken)
		return
	}
	// success: the lease is NOT released. A worker whose clock lags and
	// still sees the timeline entry must keep failing the lease until the
	// deletion becomes visible to it.
	p.logger.Debug("timer dispatched", tag.Topic(topic), tag.TimerId(timerId))
}

func invokeHandler(ctx context.Context, handler router.HandlerFunc, payload interface{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return err
	}
	return handler(ctx, payload)
}
