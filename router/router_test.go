// Copyright (c) 2023 xCherryIO Organization
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xcherryio/timers/timerpayload"
)

type someSchema struct {
	Message string `json:"message"`
}

type anotherSchema struct {
	Count int `json:"count"`
}

func noopHandler(ctx context.Context, payload interface{}) error {
	return nil
}

func orderExpired(ctx context.Context, payload interface{}) error {
	return nil
}

type cartService struct{}

func (s *cartService) AbandonCart(ctx context.Context, payload interface{}) error {
	return nil
}

func TestRegisterHandler(t *testing.T) {
	r := New()

	err := r.Handle("test_timer", timerpayload.NewJSONSchema(someSchema{}), noopHandler)
	assert.NoError(t, err)

	route, ok := r.Lookup("test_timer")
	assert.True(t, ok)
	assert.Equal(t, "test_timer", route.Topic)
	assert.NotNil(t, route.Schema)
	assert.NotNil(t, route.Handler)
	assert.Equal(t, []string{"test_timer"}, r.Topics())
}

func TestRegisterMultipleHandlers(t *testing.T) {
	r := New()

	assert.NoError(t, r.Handle("handler1", timerpayload.NewJSONSchema(someSchema{}), noopHandler))
	assert.NoError(t, r.Handle("handler2", timerpayload.NewJSONSchema(anotherSchema{}), noopHandler))

	assert.Equal(t, []string{"handler1", "handler2"}, r.Topics())
}

func TestRegisterDuplicateHandler(t *testing.T) {
	r := New()

	assert.NoError(t, r.Handle("dup", timerpayload.NewJSONSchema(someSchema{}), noopHandler))
	err := r.Handle("dup", timerpayload.NewJSONSchema(anotherSchema{}), noopHandler)
	assert.ErrorIs(t, err, ErrDuplicateHandler)
}

func TestDerivedTopicFromHandlerName(t *testing.T) {
	r := New()

	err := r.Handle("", timerpayload.NewJSONSchema(someSchema{}), orderExpired)
	assert.NoError(t, err)

	_, ok := r.Lookup("order_expired")
	assert.True(t, ok)
}

func TestDerivedTopicFromMethodValue(t *testing.T) {
	r := New()
	svc := &cartService{}

	err := r.Handle("", timerpayload.NewJSONSchema(someSchema{}), svc.AbandonCart)
	assert.NoError(t, err)

	_, ok := r.Lookup("abandon_cart")
	assert.True(t, ok)
}

func TestDerivedTopicRejectsAnonymousHandler(t *testing.T) {
	r := New()

	err := r.Handle("", timerpayload.NewJSONSchema(someSchema{}),
		func(ctx context.Context, payload interface{}) error { return nil })
	assert.Error(t, err)
	assert.Empty(t, r.Topics())
}

func TestIncludeRouters(t *testing.T) {
	r1 := New()
	assert.NoError(t, r1.Handle("some_topic", timerpayload.NewJSONSchema(someSchema{}), noopHandler))

	r2 := New()
	assert.NoError(t, r2.Handle("another_topic", timerpayload.NewJSONSchema(anotherSchema{}), noopHandler))

	assert.NoError(t, r1.Include(r2))
	assert.Equal(t, []string{"another_topic", "some_topic"}, r1.Topics())
}

func TestIncludeCollision(t *testing.T) {
	r1 := New()
	assert.NoError(t, r1.Handle("same", timerpayload.NewJSONSchema(someSchema{}), noopHandler))

	r2 := New()
	assert.NoError(t, r2.Handle("same", timerpayload.NewJSONSchema(anotherSchema{}), noopHandler))

	assert.ErrorIs(t, r1.Include(r2), ErrDuplicateHandler)
}

func TestLookupUnknownTopic(t *testing.T) {
	r := New()
	_, ok := r.Lookup("missing")
	assert.False(t, ok)
}

func TestHandleRejectsNil(t *testing.T) {
	r := New()
	assert.Error(t, r.Handle("x", nil, noopHandler))
	assert.Error(t, r.Handle("x", timerpayload.NewJSONSchema(someSchema{}), nil))
}
