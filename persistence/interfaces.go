// Copyright (c) 2023 xCherryIO Organization
// SPDX-License-Identifier: Apache-2.0

package persistence

import (
	"context"
)

// TimerStore is for operating on the backing key/value store.
// The store keeps two keys: a sorted-set timeline scored by deadline,
// and a hash from timer key to payload bytes. Implementations must make
// AddTimer/DeleteTimer atomic across both keys, and ReleaseLock atomic
// with respect to the token comparison.
type (
	TimerStore interface {
		Close() error

		AddTimer(ctx context.Context, request AddTimerRequest) error
		DeleteTimer(ctx context.Context, request DeleteTimerRequest) (*DeleteTimerResponse, error)

		GetDueTimers(ctx context.Context, request GetDueTimersRequest) (*GetDueTimersResponse, error)
		GetPayload(ctx context.Context, request GetPayloadRequest) (*GetPayloadResponse, error)
		GetAllTimers(ctx context.Context) (*GetAllTimersResponse, error)

		// AcquireLock is a single non-blocking exclusive-create attempt.
		// Blocking acquisition is built on top by the caller.
		AcquireLock(ctx context.Context, request AcquireLockRequest) (*AcquireLockResponse, error)
		// ReleaseLock deletes the lock key only when it still holds the
		// given token. Releasing a lock owned by someone else is a no-op.
		ReleaseLock(ctx context.Context, request ReleaseLockRequest) error
	}
)
