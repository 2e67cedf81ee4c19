// Copyright (c) 2023 xCherryIO Organization
// SPDX-License-Identifier: Apache-2.0

package log

import (
	"fmt"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xcherryio/timers/common/log/tag"
)

const (
	skipForDefaultLogger = 3
	// we put a default message when it is empty so that the log can be searchable/filterable
	defaultMsgForEmpty = "none"
)

type loggerImpl struct {
	zapLogger *zap.Logger
	skip      int
}

func NewLogger(zapLogger *zap.Logger) Logger {
	return &loggerImpl{
		zapLogger: zapLogger,
		skip:      skipForDefaultLogger,
	}
}

// NewDevelopmentLogger returns a logger at debug level logging into STDERR
func NewDevelopmentLogger() Logger {
	zapLogger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return NewLogger(zapLogger)
}

func (lg *loggerImpl) buildFieldsWithCallat(tags []tag.Tag) []zap.Field {
	fs := lg.buildFields(tags)
	fs = append(fs, zap.String(tag.LoggingCallAtKey, caller(lg.skip)))
	return fs
}

func (lg *loggerImpl) buildFields(tags []tag.Tag) []zap.Field {
	fs := make([]zap.Field, 0, len(tags))
	for _, t := range tags {
		f := t.Field()
		if f.Key == "" {
			// ignore empty field(which can be constructed manually)
			continue
		}
		fs = append(fs, f)

		if obj, ok := f.Interface.(zapcore.ObjectMarshaler); ok && f.Type == zapcore.ErrorType {
			fs = append(fs, zap.Object(f.Key+"-details", obj))
		}
	}
	return fs
}

// implement the Logger interface

func (lg *loggerImpl) Debug(msg string, tags ...tag.Tag) {
	lg.zapLogger.Debug(setDefaultMsg(msg), lg.buildFieldsWithCallat(tags)...)
}

func (lg *loggerImpl) Info(msg string, tags ...tag.Tag) {
	lg.zapLogger.Info(setDefaultMsg(msg), lg.buildFieldsWithCallat(tags)...)
}

func (lg *loggerImpl) Warn(msg string, tags ...tag.Tag) {
	lg.zapLogger.Warn(setDefaultMsg(msg), lg.buildFieldsWithCallat(tags)...)
}

func (lg *loggerImpl) Error(msg string, tags ...tag.Tag) {
	lg.zapLogger.Error(setDefaultMsg(msg), lg.buildFieldsWithCallat(tags)...)
}

func (lg *loggerImpl) Fatal(msg string, tags ...tag.Tag) {
	lg.zapLogger.Fatal(setDefaultMsg(msg), lg.buildFieldsWithCallat(tags)...)
}

func (lg *loggerImpl) WithTags(tags ...tag.Tag) Logger {
	return &loggerImpl{
		zapLogger: lg.zapLogger.With(lg.buildFields(tags)...),
		skip:      lg.skip,
	}
}

func caller(skip int) string {
	_, path, lineno, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%v:%v", filepath.Base(path), lineno)
}

func setDefaultMsg(msg string) string {
	if msg == "" {
		return defaultMsgForEmpty
	}
	return msg
}
