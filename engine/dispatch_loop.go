// Copyright (c) 2023 xCherryIO Organization
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"time"

	"github.com/xcherryio/timers/common/log"
	"github.com/xcherryio/timers/common/log/tag"
	"github.com/xcherryio/timers/config"
	"github.com/xcherryio/timers/persistence"
)

// dispatchLoop polls the timeline for due timers and feeds them to the
// processor. A short poll sleeps for the poll interval; a full batch means
// the timeline is saturated and the loop re-polls immediately. Store
// failures back off exponentially (capped) and never stop the loop.
type dispatchLoop struct {
	loopCtx   context.Context
	cfg       config.Config
	store     persistence.TimerStore
	processor DispatchTaskProcessor
	logger    log.Logger
}

func newDispatchLoop(
	loopCtx context.Context, cfg config.Config, store persistence.TimerStore,
	processor DispatchTaskProcessor, logger log.Logger,
) *dispatchLoop {
	return &dispatchLoop{
		loopCtx:   loopCtx,
		cfg:       cfg,
		store:     store,
		processor: processor,
		logger:    logger,
	}
}

func (l *dispatchLoop) run() {
	svcCfg := l.cfg.TimerService
	failedPolls := 0

	for {
		if l.loopCtx.Err() != nil {
			l.logger.Info("dispatch loop is being closed")
			return
		}

		resp, err := l.store.GetDueTimers(l.loopCtx, persistence.GetDueTimersRequest{
			NowMillis: time.Now().UnixMilli(),
			Limit:     svcCfg.BatchSize,
		})
		if err != nil {
			if l.loopCtx.Err() != nil {
				l.logger.Info("dispatch loop is being closed")
				return
			}
			failedPolls++
			backoff := GetNextPollBackoff(failedPolls, svcCfg.PollInterval.Duration())
			l.logger.Error("failed to poll due timers, backing off",
				tag.Error(err), tag.Backoff(backoff))
			if !l.sleep(backoff) {
				return
			}
			continue
		}
		failedPolls = 0

		for _, timer := range resp.Timers {
			if !l.processor.Submit(l.loopCtx, timer.Key) {
				return
			}
		}

		if len(resp.Timers) >= svcCfg.BatchSize {
			// saturated: more due timers are likely waiting
			continue
		}
		if !l.sleep(svcCfg.PollInterval.Duration()) {
			return
		}
	}
}

// sleep returns false when the loop context got cancelled while sleeping
func (l *dispatchLoop) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-l.loopCtx.Done():
		return false
	case <-timer.C:
		return true
	}
}
