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

package reputation

import (
	"errors"

	"github.com/karn-labs/karn/auth"
	"github.com/karn-labs/karn/internal/reentrancy"
)

var (
	ErrAlreadyInitialized = errors.New("reputation ledger already initialized")
	ErrNotInitialized     = errors.New("reputation ledger not initialized")
	ErrNotMember          = errors.New("account is not a member")
	ErrAlreadyRegistered  = errors.New("account already registered")
	ErrMintNotAuthorized  = errors.New("caller may not mint this badge")
	ErrBadgeNotMintable   = errors.New("badge is not mintable")
	ErrUnknownBadgeType   = errors.New("unknown badge type")
	ErrUnknownToken       = errors.New("unknown token")
	ErrInvalidBadgeID     = errors.New("badge id outside of category ranges")
	ErrMathOverflow       = errors.New("reputation level overflow")

	ErrNotAuthorized      = auth.ErrNotAuthorized
	ErrInvalidSignature   = auth.ErrInvalidSignature
	ErrNonceReused        = auth.ErrNonceReused
	ErrSignatureExpired   = auth.ErrSignatureExpired
	ErrReentrancyDetected = reentrancy.ErrReentrancyDetected
)
