// Copyright (c) 2023 xCherryIO Organization
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/xcherryio/timers/common/log"
	"github.com/xcherryio/timers/common/log/tag"
	"github.com/xcherryio/timers/common/uuid"
	"github.com/xcherryio/timers/persistence"
)

const releaseLockTimeout = 5 * time.Second

// lockManager implements the two lock flavors on top of the store's
// exclusive-create + compare-and-delete primitives.
//
// The timer lock serializes scheduler writes per timer: blocking acquire
// with backoff until lockAcquireTimeout. The consume lease claims a due
// timer for dispatch: one non-blocking attempt, and on successful dispatch
// the lease is deliberately left to expire so a lagging worker cannot
// re-dispatch a timer whose deletion it has not yet observed.
type lockManager struct {
	store  persistence.TimerStore
	logger log.Logger
}

func newLockManager(store persistence.TimerStore, logger log.Logger) *lockManager {
	return &lockManager{
		store:  store,
		logger: logger,
	}
}

// acquireTimerLock blocks until the lock is held or acquireTimeout passed.
// The returned token must be passed to releaseLock.
func (m *lockManager) acquireTimerLock(
	ctx context.Context, lockKey string, ttl, acquireTimeout time.Duration,
) (string, error) {
	token := uuid.MustNewUUIDString()
	deadline := time.Now().Add(acquireTimeout)

	for attempts := 1; ; attempts++ {
		resp, err := m.store.AcquireLock(ctx, persistence.AcquireLockRequest{
			LockKey: lockKey,
			Token:   token,
			TTL:     ttl,
		})
		if err != nil {
			return "", err
		}
		if resp.Acquired {
			return token, nil
		}

		retryIn := getNextLockRetryInterval(attempts)
		if time.Now().Add(retryIn).After(deadline) {
			return "", fmt.Errorf("%w: %v", ErrLockAcquireTimeout, lockKey)
		}
		timer := time.NewTimer(retryIn)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}
}

// tryAcquireConsumeLease makes a single exclusive-create attempt.
// Not acquired means another worker is dispatching this timer.
func (m *lockManager) tryAcquireConsumeLease(
	ctx context.Context, leaseKey string, ttl time.Duration,
) (token string, acquired bool, err error) {
	token = uuid.MustNewUUIDString()
	resp, err := m.store.AcquireLock(ctx, persistence.AcquireLockRequest{
		LockKey: leaseKey,
		Token:   token,
		TTL:     ttl,
	})
	if err != nil {
		return "", false, err
	}
	return token, resp.Acquired, nil
}

// releaseLock is a compare-and-delete on the fencing token, so a holder
// whose TTL expired cannot delete a successor's lock. It runs on its own
// context: a shutdown-cancelled task must still be able to release its
// lease. Release failures are logged, not propagated: the lock will expire
// on its own.
func (m *lockManager) releaseLock(lockKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseLockTimeout)
	defer cancel()
	err := m.store.ReleaseLock(ctx, persistence.ReleaseLockRequest{
		LockKey: lockKey,
		Token:   token,
	})
	if err != nil {
		m.logger.Warn("failed to release lock, leaving it to expire",
			tag.Value(lockKey), tag.Error(err))
	}
}
