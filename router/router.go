// Copyright (c) 2023 xCherryIO Organization
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"runtime"
	"sort"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/xcherryio/timers/timerpayload"
)

// ErrDuplicateHandler is returned when two routes claim the same topic,
// either within one router or when merging routers. It is fatal at startup.
var ErrDuplicateHandler = errors.New("a handler is already registered for the topic")

// HandlerFunc is invoked with the schema-validated payload value.
// Returning an error makes the timer eligible for redelivery on a later
// poll, so handlers must be idempotent.
type HandlerFunc func(ctx context.Context, payload interface{}) error

// Route binds a topic to its payload schema and handler
type Route struct {
	Topic   string
	Schema  timerpayload.Schema
	Handler HandlerFunc
}

// Router maps topics to routes. Build and merge routers during startup;
// once the engine starts the registry is read-only and needs no locking.
type Router struct {
	routes map[string]Route
}

func New() *Router {
	return &Router{
		routes: map[string]Route{},
	}
}

// Handle registers a handler for the topic. An empty topic derives the
// topic from the handler function's own name, snake_cased, e.g.
// OrderExpired -> "order_expired" (for a method value, the method name).
// Anonymous functions have no usable name and must pass an explicit topic.
func (r *Router) Handle(topic string, schema timerpayload.Schema, handler HandlerFunc) error {
	if schema == nil || handler == nil {
		return fmt.Errorf("schema and handler must not be nil")
	}
	if topic == "" {
		derived, err := deriveTopic(handler)
		if err != nil {
			return err
		}
		topic = derived
	}
	if _, ok := r.routes[topic]; ok {
		return fmt.Errorf("%w: %v", ErrDuplicateHandler, topic)
	}
	r.routes[topic] = Route{
		Topic:   topic,
		Schema:  schema,
		Handler: handler,
	}
	return nil
}

// Include merges all routes of the other router into this one.
// Any topic collision fails the whole merge before anything is copied.
func (r *Router) Include(other *Router) error {
	for topic := range other.routes {
		if _, ok := r.routes[topic]; ok {
			return fmt.Errorf("%w: %v", ErrDuplicateHandler, topic)
		}
	}
	for topic, route := range other.routes {
		r.routes[topic] = route
	}
	return nil
}

func (r *Router) Lookup(topic string) (Route, bool) {
	route, ok := r.routes[topic]
	return route, ok
}

// Topics returns the registered topics in sorted order
func (r *Router) Topics() []string {
	topics := make([]string, 0, len(r.routes))
	for topic := range r.routes {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

// anonymousFuncPattern matches the name segments the runtime assigns to
// function literals: "func1" in "pkg.TestX.func1", or a bare index for
// nested literals ("pkg.TestX.func1.1")
var anonymousFuncPattern = regexp.MustCompile(`^(func\d+|\d+)$`)

// deriveTopic resolves the handler function's own name via the runtime.
// The full symbol is "path/to/pkg.Name" (with "(*recv).Name-fm" for method
// values); only the bare name survives, snake_cased into a topic.
func deriveTopic(handler HandlerFunc) (string, error) {
	fn := runtime.FuncForPC(reflect.ValueOf(handler).Pointer())
	if fn == nil {
		return "", fmt.Errorf("cannot resolve the handler function name, pass an explicit topic")
	}
	name := fn.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	segments := strings.Split(name, ".")
	name = strings.TrimSuffix(segments[len(segments)-1], "-fm")
	if name == "" || anonymousFuncPattern.MatchString(name) {
		return "", fmt.Errorf("cannot derive a topic from an anonymous handler function, pass an explicit topic")
	}
	return strcase.ToSnake(name), nil
}
