// Copyright (c) 2023 xCherryIO Organization
// SPDX-License-Identifier: Apache-2.0

package redis

import (
	"github.com/redis/go-redis/v9"
)

// The timeline member and the payload hash field must never disagree, so
// every write that touches both keys runs as a single script.

// KEYS[1] = timeline, KEYS[2] = payloads
// ARGV[1] = deadline millis, ARGV[2] = timer key, ARGV[3] = payload bytes
var addTimerScript = redis.NewScript(`
redis.call('ZADD', KEYS[1], ARGV[1], ARGV[2])
redis.call('HSET', KEYS[2], ARGV[2], ARGV[3])
return 1
`)

// KEYS[1] = timeline, KEYS[2] = payloads
// ARGV[1] = timer key
// returns 1 when the timeline member existed
var deleteTimerScript = redis.NewScript(`
local removed = redis.call('ZREM', KEYS[1], ARGV[1])
redis.call('HDEL', KEYS[2], ARGV[1])
return removed
`)

// KEYS[1] = lock key
// ARGV[1] = fencing token of the caller
// deletes the lock only when the caller still owns it
var releaseLockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`)
