// Copyright (c) 2023 xCherryIO Organization
// SPDX-License-Identifier: Apache-2.0

package timerpayload

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrEncode is returned by Encode for payloads the codec cannot serialize
	ErrEncode = errors.New("failed to encode payload")
	// ErrPayloadDecode is returned by Schema.Validate for malformed bytes
	ErrPayloadDecode = errors.New("failed to decode payload")
	// ErrPayloadValidation is returned by Schema.Validate when the decoded
	// value violates the schema's constraints
	ErrPayloadValidation = errors.New("payload failed schema validation")
)

// Schema decodes payload bytes into a typed value and validates it.
// Neither error kind is retried by the dispatcher.
type Schema interface {
	// Validate returns the decoded value on success. The dynamic type is a
	// pointer to a new zero value of the prototype's type; field values of
	// the prototype itself are not copied.
	Validate(payload []byte) (interface{}, error)
}

var structValidator = validator.New()

type jsonSchema struct {
	prototype reflect.Type
}

// NewJSONSchema builds a Schema from a prototype struct (value or pointer).
// Decoding is JSON; validation uses the prototype's `validate` struct tags.
func NewJSONSchema(prototype interface{}) Schema {
	t := reflect.TypeOf(prototype)
	if t == nil {
		panic("schema prototype must not be nil")
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return &jsonSchema{prototype: t}
}

func (s *jsonSchema) Validate(payload []byte) (interface{}, error) {
	value := reflect.New(s.prototype).Interface()
	if err := json.Unmarshal(payload, value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadDecode, err)
	}
	if s.prototype.Kind() == reflect.Struct {
		if err := structValidator.Struct(value); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPayloadValidation, err)
		}
	}
	return value, nil
}

// Encode serializes a payload for storage
func Encode(payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return data, nil
}
