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

// Package action parses the string arguments of proposal actions
package action

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/karn-labs/karn/auth"
)

var (
	ErrUnknownOperation = errors.New("unknown operation")
	ErrInvalidArguments = errors.New("invalid action arguments")
)

// Args wraps the argument list of one action
type Args []string

// Expect checks the argument count
func (a Args) Expect(n int) error {
	if len(a) != n {
		return fmt.Errorf("%w: expected %d arguments, got %d", ErrInvalidArguments, n, len(a))
	}
	return nil
}

func (a Args) Address(i int) (auth.Address, error) {
	if i >= len(a) || a[i] == "" {
		return "", fmt.Errorf("%w: argument %d must be an address", ErrInvalidArguments, i)
	}
	return auth.Address(a[i]), nil
}

func (a Args) Uint64(i int) (uint64, error) {
	if i >= len(a) {
		return 0, fmt.Errorf("%w: missing argument %d", ErrInvalidArguments, i)
	}
	v, err := strconv.ParseUint(a[i], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: argument %d: %w", ErrInvalidArguments, i, err)
	}
	return v, nil
}

func (a Args) Bool(i int) (bool, error) {
	if i >= len(a) {
		return false, fmt.Errorf("%w: missing argument %d", ErrInvalidArguments, i)
	}
	v, err := strconv.ParseBool(a[i])
	if err != nil {
		return false, fmt.Errorf("%w: argument %d: %w", ErrInvalidArguments, i, err)
	}
	return v, nil
}

// Amount parses a base 10 integer of any size
func (a Args) Amount(i int) (*big.Int, error) {
	if i >= len(a) {
		return nil, fmt.Errorf("%w: missing argument %d", ErrInvalidArguments, i)
	}
	v, ok := new(big.Int).SetString(a[i], 10)
	if !ok {
		return nil, fmt.Errorf("%w: argument %d is not an integer: %q", ErrInvalidArguments, i, a[i])
	}
	return v, nil
}

func (a Args) String(i int) (string, error) {
	if i >= len(a) {
		return "", fmt.Errorf("%w: missing argument %d", ErrInvalidArguments, i)
	}
	return a[i], nil
}

// Unknown returns the error for an operation a target does not support
func Unknown(target, operation string) error {
	return fmt.Errorf("%w: %s.%s", ErrUnknownOperation, target, operation)
}
