// Copyright (c) 2023 xCherryIO Organization
// SPDX-License-Identifier: Apache-2.0

package log

import (
	"github.com/xcherryio/timers/common/log/tag"
)

// Logger is the logging abstraction used across the library.
// The msg should be static; anything dynamic goes into tags, e.g.
//
//	logger.Info("timer dispatched", tag.Topic("billing"), tag.TimerId("invoice-42"))
type Logger interface {
	Debug(msg string, tags ...tag.Tag)
	Info(msg string, tags ...tag.Tag)
	Warn(msg string, tags ...tag.Tag)
	Error(msg string, tags ...tag.Tag)
	Fatal(msg string, tags ...tag.Tag)
	WithTags(tags ...tag.Tag) Logger
}
