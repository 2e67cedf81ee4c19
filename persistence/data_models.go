// Copyright (c) 2023 xCherryIO Organization
// SPDX-License-Identifier: Apache-2.0

package persistence

import (
	"time"
)

type (
	AddTimerRequest struct {
		Key            string
		DeadlineMillis int64
		Payload        []byte
	}

	DeleteTimerRequest struct {
		Key string
	}

	DeleteTimerResponse struct {
		// Removed is false when the timer didn't exist
		Removed bool
	}

	GetDueTimersRequest struct {
		// NowMillis is the upper bound (inclusive) on the deadline score
		NowMillis int64
		// Limit caps the number of returned timers; ordered by ascending deadline
		Limit int
	}

	GetDueTimersResponse struct {
		Timers []DueTimer
	}

	DueTimer struct {
		Key            string
		DeadlineMillis int64
	}

	GetPayloadRequest struct {
		Key string
	}

	GetPayloadResponse struct {
		// Exists is false when another worker already deleted the timer
		Exists  bool
		Payload []byte
	}

	GetAllTimersResponse struct {
		// TimelineKeys are all timeline members ordered by ascending deadline
		TimelineKeys []string
		// Payloads maps timer key to its serialized payload
		Payloads map[string][]byte
	}

	AcquireLockRequest struct {
		LockKey string
		// Token is the fencing token identifying this holder
		Token string
		TTL   time.Duration
	}

	AcquireLockResponse struct {
		Acquired bool
	}

	ReleaseLockRequest struct {
		LockKey string
		Token   string
	}
)
