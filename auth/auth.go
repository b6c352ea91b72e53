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

// Package auth implements the authorization boundary: principals,
// capability checks and signed vouchers.
package auth

import (
	"errors"
	"fmt"
)

// Address identifies a principal: a member, a component or an external account
type Address string

func (a Address) String() string {
	return string(a)
}

var ErrNotAuthorized = errors.New("not authorized")

// Error reports a failed capability check
type Error struct {
	Required Address
	Caller   Address
}

func (e *Error) Error() string {
	return fmt.Sprintf(
		"not authorized: caller %q, required %q",
		e.Caller,
		e.Required,
	)
}

func (e *Error) Unwrap() error {
	return ErrNotAuthorized
}

// Require checks that the caller is the required principal
func Require(caller, required Address) error {
	if required == "" || caller != required {
		return &Error{Required: required, Caller: caller}
	}
	return nil
}
