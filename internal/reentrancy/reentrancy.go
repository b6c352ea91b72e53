// Copyright 2026 Karn Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package reentrancy provides the per-component reentrancy lock. The lock
// is a flag stored in the component's key scope, so it is part of the unit
// of work: a failed invocation rolls the acquisition back with everything else.
package reentrancy

import (
	"errors"

	"github.com/karn-labs/karn/database"
	"github.com/karn-labs/karn/database/types"
)

var ErrReentrancyDetected = errors.New("reentrancy detected")

// lockTag is reserved in every scope that uses a guard
const lockTag types.KeyTag = 0xff

type Guard struct {
	key []byte
}

func New(scope string) *Guard {
	return &Guard{key: types.SingletonKey(scope, lockTag)}
}

// Enter acquires the lock, failing if it is already held
func (g *Guard) Enter(txn *database.Txn) error {
	held, err := txn.HasKey(g.key)
	if err != nil {
		return err
	}
	if held {
		return ErrReentrancyDetected
	}
	return txn.SetValue(g.key, true)
}

// Exit releases the lock. It is not called on error paths: the failed unit
// of work discards the lock together with every other write
func (g *Guard) Exit(txn *database.Txn) error {
	return txn.DeleteKey(g.key)
}

// Held reports whether the lock is currently held
func (g *Guard) Held(txn *database.Txn) (bool, error) {
	return txn.HasKey(g.key)
}
