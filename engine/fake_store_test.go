// Copyright (c) 2023 xCherryIO Organization
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/xcherryio/timers/persistence"
)

// fakeTimerStore is an in-memory TimerStore for engine tests, honoring the
// same contract as the Redis implementation: atomic pair writes/deletes and
// TTL'ed exclusive-create locks.
type fakeTimerStore struct {
	mu       sync.Mutex
	timeline map[string]int64
	payloads map[string][]byte
	locks    map[string]fakeLockEntry

	// pollFailures makes the next N GetDueTimers calls fail
	pollFailures int
}

type fakeLockEntry struct {
	token     string
	expiresAt time.Time
}

func newFakeTimerStore() *fakeTimerStore {
	return &fakeTimerStore{
		timeline: map[string]int64{},
		payloads: map[string][]byte{},
		locks:    map[string]fakeLockEntry{},
	}
}

func (s *fakeTimerStore) Close() error {
	return nil
}

func (s *fakeTimerStore) AddTimer(ctx context.Context, request persistence.AddTimerRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeline[request.Key] = request.DeadlineMillis
	s.payloads[request.Key] = request.Payload
	return nil
}

func (s *fakeTimerStore) DeleteTimer(
	ctx context.Context, request persistence.DeleteTimerRequest,
) (*persistence.DeleteTimerResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, removed := s.timeline[request.Key]
	delete(s.timeline, request.Key)
	delete(s.payloads, request.Key)
	return &persistence.DeleteTimerResponse{Removed: removed}, nil
}

func (s *fakeTimerStore) GetDueTimers(
	ctx context.Context, request persistence.GetDueTimersRequest,
) (*persistence.GetDueTimersResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pollFailures > 0 {
		s.pollFailures--
		return nil, fmt.Errorf("injected poll failure")
	}

	var timers []persistence.DueTimer
	for key, deadline := range s.timeline {
		if deadline <= request.NowMillis {
			timers = append(timers, persistence.DueTimer{Key: key, DeadlineMillis: deadline})
		}
	}
	sort.Slice(timers, func(i, j int) bool {
		if timers[i].DeadlineMillis != timers[j].DeadlineMillis {
			return timers[i].DeadlineMillis < timers[j].DeadlineMillis
		}
		return timers[i].Key < timers[j].Key
	})
	if len(timers) > request.Limit {
		timers = timers[:request.Limit]
	}
	return &persistence.GetDueTimersResponse{Timers: timers}, nil
}

func (s *fakeTimerStore) GetPayload(
	ctx context.Context, request persistence.GetPayloadRequest,
) (*persistence.GetPayloadResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.payloads[request.Key]
	if !ok {
		return &persistence.GetPayloadResponse{Exists: false}, nil
	}
	return &persistence.GetPayloadResponse{Exists: true, Payload: payload}, nil
}

func (s *fakeTimerStore) GetAllTimers(ctx context.Context) (*persistence.GetAllTimersResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.timeline))
	for key := range s.timeline {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if s.timeline[keys[i]] != s.timeline[keys[j]] {
			return s.timeline[keys[i]] < s.timeline[keys[j]]
		}
		return keys[i] < keys[j]
	})
	payloads := make(map[string][]byte, len(s.payloads))
	for key, payload := range s.payloads {
		payloads[key] = payload
	}
	return &persistence.GetAllTimersResponse{TimelineKeys: keys, Payloads: payloads}, nil
}

func (s *fakeTimerStore) AcquireLock(
	ctx context.Context, request persistence.AcquireLockRequest,
) (*persistence.AcquireLockResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, held := s.locks[request.LockKey]
	if held && time.Now().Before(entry.expiresAt) {
		return &persistence.AcquireLockResponse{Acquired: false}, nil
	}
	s.locks[request.LockKey] = fakeLockEntry{
		token:     request.Token,
		expiresAt: time.Now().Add(request.TTL),
	}
	return &persistence.AcquireLockResponse{Acquired: true}, nil
}

func (s *fakeTimerStore) ReleaseLock(ctx context.Context, request persistence.ReleaseLockRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.locks[request.LockKey]; ok && entry.token == request.Token {
		delete(s.locks, request.LockKey)
	}
	return nil
}

// test helpers

func (s *fakeTimerStore) timerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timeline)
}

func (s *fakeTimerStore) payloadOf(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.payloads[key]
	return payload, ok
}

func (s *fakeTimerStore) deadlineOf(key string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deadline, ok := s.timeline[key]
	return deadline, ok
}

func (s *fakeTimerStore) lockHeld(lockKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.locks[lockKey]
	return ok && time.Now().Before(entry.expiresAt)
}

func (s *fakeTimerStore) holdLock(lockKey string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locks[lockKey] = fakeLockEntry{
		token:     "held-by-test",
		expiresAt: time.Now().Add(ttl),
	}
}

func (s *fakeTimerStore) dropPayload(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.payloads, key)
}

func (s *fakeTimerStore) setPollFailures(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pollFailures = n
}
