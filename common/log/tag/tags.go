// Copyright (c) 2023 xCherryIO Organization
// SPDX-License-Identifier: Apache-2.0

package tag

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

const LoggingCallAtKey = "logging-call-at"

// Tag is the interface for logging system
type Tag struct {
	// keep this field private
	field zap.Field
}

// Field returns a zap field
func (t *Tag) Field() zap.Field {
	return t.field
}

func newStringTag(key string, value string) Tag {
	return Tag{
		field: zap.String(key, value),
	}
}

func newInt64Tag(key string, value int64) Tag {
	return Tag{
		field: zap.Int64(key, value),
	}
}

func newIntTag(key string, value int) Tag {
	return Tag{
		field: zap.Int(key, value),
	}
}

func newDurationTag(key string, value time.Duration) Tag {
	return Tag{
		field: zap.Duration(key, value),
	}
}

func newObjectTag(key string, value interface{}) Tag {
	return Tag{
		field: zap.String(key, fmt.Sprintf("%v", value)),
	}
}

func newErrorTag(key string, value error) Tag {
	//NOTE zap already chosen "error" as key
	return Tag{
		field: zap.Error(value),
	}
}

// TAGS

func Error(err error) Tag {
	return newErrorTag("error", err)
}

func Service(sv string) Tag {
	return newStringTag("service", sv)
}

func Topic(topic string) Tag {
	return newStringTag("topic", topic)
}

func TimerId(id string) Tag {
	return newStringTag("timerId", id)
}

func TimerKey(key string) Tag {
	return newStringTag("timerKey", key)
}

func Deadline(millis int64) Tag {
	return newInt64Tag("deadlineMillis", millis)
}

func BatchSize(n int) Tag {
	return newIntTag("batchSize", n)
}

func Backoff(d time.Duration) Tag {
	return newDurationTag("backoff", d)
}

func Value(v interface{}) Tag {
	return newObjectTag("value", v)
}
