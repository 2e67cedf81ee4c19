// Copyright (c) 2023 xCherryIO Organization
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type (
	Config struct {
		// Log is the logging config
		Log Logger `yaml:"log"`

		// Redis is the config for connecting to the backing Redis store
		Redis RedisConfig `yaml:"redis"`

		// TimerService is the config for the timer dispatch engine
		TimerService TimerServiceConfig `yaml:"timerService"`

		// AdminService is the config for the optional admin/inspection HTTP server
		AdminService AdminServiceConfig `yaml:"adminService"`
	}

	RedisConfig struct {
		// Addrs is the list of Redis server addresses in "host:port" form.
		// A single address gives a standalone client; multiple addresses a cluster client.
		Addrs []string `yaml:"addrs"`
		// Username/Password are the optional AUTH credentials
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		// DB is the database number, only used for standalone clients
		DB int `yaml:"db"`
		// PoolSize is the maximum number of connections, default is per go-redis
		PoolSize int `yaml:"poolSize"`
	}

	TimerServiceConfig struct {
		// TimelineKey is the sorted-set key holding timer deadlines.
		// The member is "topic<separator>timerId" and the score is the
		// deadline in epoch milliseconds.
		// Default is "timers_timeline".
		TimelineKey string `yaml:"timelineKey"`
		// PayloadsKey is the hash key holding the serialized payload per timer.
		// A timer exists in the timeline iff its payload exists in this hash.
		// Default is "timers_payloads".
		PayloadsKey string `yaml:"payloadsKey"`
		// Separator joins topic and timerId into the store member.
		// Neither topic nor timerId may contain it. Default is "--".
		Separator string `yaml:"separator"`
		// PollInterval is the idle sleep between polls when the last poll
		// returned fewer than BatchSize timers. When a poll returns a full
		// batch the loop re-polls immediately. Default is 1 second.
		PollInterval Duration `yaml:"pollInterval"`
		// BatchSize is the maximum number of due timers fetched per poll.
		// Default is 128.
		BatchSize int `yaml:"batchSize"`
		// Concurrency is the maximum number of in-flight handler invocations
		// per worker instance. Default is 64.
		Concurrency int `yaml:"concurrency"`
		// TimerLockTTL is the TTL on the per-timer write lock taken by
		// SetTimer/RemoveTimer. Default is 5 seconds.
		TimerLockTTL Duration `yaml:"timerLockTTL"`
		// ConsumeLeaseTTL is the TTL on the per-timer dispatch lease. It
		// bounds how long a crashed worker can block redelivery. Default is
		// 30 seconds.
		ConsumeLeaseTTL Duration `yaml:"consumeLeaseTTL"`
		// LockAcquireTimeout is how long SetTimer/RemoveTimer wait for the
		// timer lock before failing. Default is 5 seconds.
		LockAcquireTimeout Duration `yaml:"lockAcquireTimeout"`
		// ShutdownGrace is how long Stop waits for in-flight handlers before
		// cancelling their context. Default is 10 seconds.
		ShutdownGrace Duration `yaml:"shutdownGrace"`
		// RejectUnknownTopics makes SetTimer fail when the topic has no
		// registered handler, instead of deferring the failure to dispatch
		// time. Default is false.
		RejectUnknownTopics bool `yaml:"rejectUnknownTopics"`
	}

	AdminServiceConfig struct {
		// Enabled starts the admin HTTP server when true
		Enabled bool `yaml:"enabled"`
		// Address is the TCP address for the server to listen on, in "host:port" form
		Address string `yaml:"address"`
		// ReadTimeout/WriteTimeout map into http.Server
		ReadTimeout  Duration `yaml:"readTimeout"`
		WriteTimeout Duration `yaml:"writeTimeout"`
	}
)

const (
	DefaultTimelineKey        = "timers_timeline"
	DefaultPayloadsKey        = "timers_payloads"
	DefaultSeparator          = "--"
	DefaultPollInterval       = time.Second
	DefaultBatchSize          = 128
	DefaultConcurrency        = 64
	DefaultTimerLockTTL       = 5 * time.Second
	DefaultConsumeLeaseTTL    = 30 * time.Second
	DefaultLockAcquireTimeout = 5 * time.Second
	DefaultShutdownGrace      = 10 * time.Second
)

// NewConfig returns a new decoded Config object from the yaml file
func NewConfig(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	config := &Config{}
	d := yaml.NewDecoder(file)
	if err := d.Decode(config); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) String() string {
	out, err := json.Marshal(c)
	if err != nil {
		return fmt.Sprintf("config: %v", *c)
	}
	return string(out)
}

func (c *Config) ValidateAndSetDefaults() error {
	if len(c.Redis.Addrs) == 0 {
		return fmt.Errorf("redis.addrs must not be empty")
	}
	return c.TimerService.ValidateAndSetDefaults()
}

func (c *TimerServiceConfig) ValidateAndSetDefaults() error {
	if c.TimelineKey == "" {
		c.TimelineKey = DefaultTimelineKey
	}
	if c.PayloadsKey == "" {
		c.PayloadsKey = DefaultPayloadsKey
	}
	if c.TimelineKey == c.PayloadsKey {
		return fmt.Errorf("timelineKey and payloadsKey must differ")
	}
	if c.Separator == "" {
		c.Separator = DefaultSeparator
	}
	if c.PollInterval <= 0 {
		c.PollInterval = Duration(DefaultPollInterval)
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative")
	}
	if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.TimerLockTTL <= 0 {
		c.TimerLockTTL = Duration(DefaultTimerLockTTL)
	}
	if c.ConsumeLeaseTTL <= 0 {
		c.ConsumeLeaseTTL = Duration(DefaultConsumeLeaseTTL)
	}
	if c.LockAcquireTimeout <= 0 {
		c.LockAcquireTimeout = Duration(DefaultLockAcquireTimeout)
	}
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = Duration(DefaultShutdownGrace)
	}
	return nil
}
