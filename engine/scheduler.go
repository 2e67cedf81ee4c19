// Copyright (c) 2023 xCherryIO Organization
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/xcherryio/timers/common/log/tag"
	"github.com/xcherryio/timers/persistence"
	"github.com/xcherryio/timers/timerpayload"
)

// The write path. Both operations take the per-timer lock so that two
// concurrent writes to the same (topic, timerId) are linearized: the later
// SetTimer's outcome is the one dispatch observes. The timer lock is
// orthogonal to the consume lease; a write may proceed while a dispatch is
// in flight, and the dispatcher keeps using the payload it already fetched.

func (e *engineImpl) SetTimer(
	ctx context.Context, topic, timerId string, payload interface{}, activationPeriod time.Duration,
) error {
	svcCfg := e.cfg.TimerService

	timerKey, err := persistence.JoinTimerKey(svcCfg.Separator, topic, timerId)
	if err != nil {
		return err
	}
	if svcCfg.RejectUnknownTopics {
		if _, ok := e.registry.Lookup(topic); !ok {
			return fmt.Errorf("%w: %v", ErrHandlerNotFound, topic)
		}
	}

	payloadBytes, err := timerpayload.Encode(payload)
	if err != nil {
		return err
	}

	lockKey := persistence.TimerLockKey(timerKey)
	token, err := e.locks.acquireTimerLock(ctx, lockKey, svcCfg.TimerLockTTL.Duration(), svcCfg.LockAcquireTimeout.Duration())
	if err != nil {
		return err
	}
	defer e.locks.releaseLock(lockKey, token)

	if activationPeriod < 0 {
		activationPeriod = 0
	}
	deadlineMillis := time.Now().Add(activationPeriod).UnixMilli()
	err = e.store.AddTimer(ctx, persistence.AddTimerRequest{
		Key:            timerKey,
		DeadlineMillis: deadlineMillis,
		Payload:        payloadBytes,
	})
	if err != nil {
		return err
	}

	e.logger.Debug("timer scheduled",
		tag.Topic(topic), tag.TimerId(timerId), tag.Deadline(deadlineMillis))
	return nil
}

func (e *engineImpl) RemoveTimer(ctx context.Context, topic, timerId string) error {
	svcCfg := e.cfg.TimerService

	timerKey, err := persistence.JoinTimerKey(svcCfg.Separator, topic, timerId)
	if err != nil {
		return err
	}

	lockKey := persistence.TimerLockKey(timerKey)
	token, err := e.locks.acquireTimerLock(ctx, lockKey, svcCfg.TimerLockTTL.Duration(), svcCfg.LockAcquireTimeout.Duration())
	if err != nil {
		return err
	}
	defer e.locks.releaseLock(lockKey, token)

	resp, err := e.store.DeleteTimer(ctx, persistence.DeleteTimerRequest{Key: timerKey})
	if err != nil {
		return err
	}
	if resp.Removed {
		e.logger.Debug("timer removed", tag.Topic(topic), tag.TimerId(timerId))
	}
	// removing a nonexistent timer is a no-op, not an error
	return nil
}
