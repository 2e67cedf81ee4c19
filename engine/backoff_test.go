// Copyright (c) 2023 xCherryIO Organization
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetNextPollBackoff(t *testing.T) {
	interval := time.Second

	assert.Equal(t, time.Second, GetNextPollBackoff(1, interval))
	assert.Equal(t, 2*time.Second, GetNextPollBackoff(2, interval))
	assert.Equal(t, 4*time.Second, GetNextPollBackoff(3, interval))
	assert.Equal(t, 16*time.Second, GetNextPollBackoff(5, interval))
	// capped at 30 seconds no matter how many failures
	assert.Equal(t, 30*time.Second, GetNextPollBackoff(6, interval))
	assert.Equal(t, 30*time.Second, GetNextPollBackoff(100, interval))
}

func TestGetNextPollBackoffClampsAttempts(t *testing.T) {
	assert.Equal(t, time.Second, GetNextPollBackoff(0, time.Second))
	assert.Equal(t, time.Second, GetNextPollBackoff(-3, time.Second))
}

func TestGetNextLockRetryInterval(t *testing.T) {
	assert.Equal(t, 10*time.Millisecond, getNextLockRetryInterval(1))
	assert.Equal(t, 20*time.Millisecond, getNextLockRetryInterval(2))
	assert.Equal(t, 160*time.Millisecond, getNextLockRetryInterval(5))
	assert.Equal(t, 160*time.Millisecond, getNextLockRetryInterval(50))
}
