// Copyright (c) 2023 xCherryIO Organization
// SPDX-License-Identifier: Apache-2.0

package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/xcherryio/timers/common/log"
	"github.com/xcherryio/timers/config"
	"github.com/xcherryio/timers/persistence"
)

type timerStoreImpl struct {
	client      redis.UniversalClient
	timelineKey string
	payloadsKey string
	logger      log.Logger
}

// NewTimerStore returns a TimerStore backed by Redis. A single address in
// cfg.Redis.Addrs gives a standalone client, multiple addresses a cluster
// client (go-redis decides via UniversalClient).
func NewTimerStore(cfg config.Config, logger log.Logger) (persistence.TimerStore, error) {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    cfg.Redis.Addrs,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis %v: %w", cfg.Redis.Addrs, err)
	}
	return &timerStoreImpl{
		client:      client,
		timelineKey: cfg.TimerService.TimelineKey,
		payloadsKey: cfg.TimerService.PayloadsKey,
		logger:      logger,
	}, nil
}

// NewTimerStoreWithClient wraps an existing client, e.g. one shared with
// the application. Close will close the given client.
func NewTimerStoreWithClient(
	client redis.UniversalClient, timelineKey, payloadsKey string, logger log.Logger,
) persistence.TimerStore {
	return &timerStoreImpl{
		client:      client,
		timelineKey: timelineKey,
		payloadsKey: payloadsKey,
		logger:      logger,
	}
}

func (s *timerStoreImpl) Close() error {
	return s.client.Close()
}

func (s *timerStoreImpl) AddTimer(ctx context.Context, request persistence.AddTimerRequest) error {
	err := addTimerScript.Run(ctx, s.client,
		[]string{s.timelineKey, s.payloadsKey},
		request.DeadlineMillis, request.Key, request.Payload,
	).Err()
	if err != nil {
		return fmt.Errorf("failed to write timer %v: %w", request.Key, err)
	}
	return nil
}

func (s *timerStoreImpl) DeleteTimer(
	ctx context.Context, request persistence.DeleteTimerRequest,
) (*persistence.DeleteTimerResponse, error) {
	removed, err := deleteTimerScript.Run(ctx, s.client,
		[]string{s.timelineKey, s.payloadsKey},
		request.Key,
	).Int()
	if err != nil {
		return nil, fmt.Errorf("failed to delete timer %v: %w", request.Key, err)
	}
	return &persistence.DeleteTimerResponse{
		Removed: removed > 0,
	}, nil
}

func (s *timerStoreImpl) GetDueTimers(
	ctx context.Context, request persistence.GetDueTimersRequest,
) (*persistence.GetDueTimersResponse, error) {
	members, err := s.client.ZRangeByScoreWithScores(ctx, s.timelineKey, &redis.ZRangeBy{
		Min:    "0",
		Max:    strconv.FormatInt(request.NowMillis, 10),
		Offset: 0,
		Count:  int64(request.Limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to poll timeline: %w", err)
	}

	timers := make([]persistence.DueTimer, 0, len(members))
	for _, member := range members {
		key, ok := member.Member.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected timeline member type %T", member.Member)
		}
		timers = append(timers, persistence.DueTimer{
			Key:            key,
			DeadlineMillis: int64(member.Score),
		})
	}
	return &persistence.GetDueTimersResponse{Timers: timers}, nil
}

func (s *timerStoreImpl) GetPayload(
	ctx context.Context, request persistence.GetPayloadRequest,
) (*persistence.GetPayloadResponse, error) {
	payload, err := s.client.HGet(ctx, s.payloadsKey, request.Key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &persistence.GetPayloadResponse{Exists: false}, nil
		}
		return nil, fmt.Errorf("failed to fetch payload of %v: %w", request.Key, err)
	}
	return &persistence.GetPayloadResponse{
		Exists:  true,
		Payload: payload,
	}, nil
}

func (s *timerStoreImpl) GetAllTimers(ctx context.Context) (*persistence.GetAllTimersResponse, error) {
	keys, err := s.client.ZRange(ctx, s.timelineKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read timeline: %w", err)
	}
	fields, err := s.client.HGetAll(ctx, s.payloadsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read payloads: %w", err)
	}

	payloads := make(map[string][]byte, len(fields))
	for key, payload := range fields {
		payloads[key] = []byte(payload)
	}
	return &persistence.GetAllTimersResponse{
		TimelineKeys: keys,
		Payloads:     payloads,
	}, nil
}

func (s *timerStoreImpl) AcquireLock(
	ctx context.Context, request persistence.AcquireLockRequest,
) (*persistence.AcquireLockResponse, error) {
	acquired, err := s.client.SetNX(ctx, request.LockKey, request.Token, request.TTL).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %v: %w", request.LockKey, err)
	}
	return &persistence.AcquireLockResponse{Acquired: acquired}, nil
}

func (s *timerStoreImpl) ReleaseLock(ctx context.Context, request persistence.ReleaseLockRequest) error {
	err := releaseLockScript.Run(ctx, s.client,
		[]string{request.LockKey},
		request.Token,
	).Err()
	if err != nil {
		return fmt.Errorf("failed to release lock %v: %w", request.LockKey, err)
	}
	return nil
}
