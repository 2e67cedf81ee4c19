// Copyright (c) 2023 xCherryIO Organization
// SPDX-License-Identifier: Apache-2.0

package uuid

import (
	"github.com/google/uuid"
)

// MustNewUUIDString returns a random v4 UUID in string form.
// Used for lock fencing tokens: each lock holder gets a unique token so
// that an expired holder cannot release a successor's lock.
func MustNewUUIDString() string {
	newUuid, err := uuid.NewRandom()
	if err != nil {
		panic(err)
	}
	return newUuid.String()
}
