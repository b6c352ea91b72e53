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

package governance

import (
	"fmt"
	"sort"
	"sync"

	"github.com/karn-labs/karn/auth"
	"github.com/karn-labs/karn/database"
	"github.com/karn-labs/karn/database/models"
)

// Action is a command carried by a proposal
type Action = models.Action

// Target is a component proposal actions can be addressed to. Operations
// run inside the executing transaction with the governor as caller
type Target interface {
	Invoke(
		txn *database.Txn,
		caller auth.Address,
		operation string,
		args []string,
	) error
}

// Dispatcher routes actions to targets by name
type Dispatcher struct {
	targets map[string]Target
	mu      sync.RWMutex
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{targets: make(map[string]Target)}
}

// Register adds a target, replacing any target of the same name
func (d *Dispatcher) Register(name string, target Target) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.targets[name] = target
}

// Targets returns the registered target names in order
func (d *Dispatcher) Targets() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ret := make([]string, 0, len(d.targets))
	for name := range d.targets {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

func (d *Dispatcher) lookup(name string) (Target, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	target, ok := d.targets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, name)
	}
	return target, nil
}

// Dispatch runs one action
func (d *Dispatcher) Dispatch(
	txn *database.Txn,
	caller auth.Address,
	a Action,
) error {
	target, err := d.lookup(a.Target)
	if err != nil {
		return err
	}
	if err := target.Invoke(txn, caller, a.Operation, a.Args); err != nil {
		return fmt.Errorf("%s.%s: %w", a.Target, a.Operation, err)
	}
	return nil
}

// Validate checks that every action names a registered target
func (d *Dispatcher) Validate(actions []Action) error {
	for i, a := range actions {
		if _, err := d.lookup(a.Target); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
	}
	return nil
}
