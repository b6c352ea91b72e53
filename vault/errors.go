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

package vault

import (
	"errors"

	"github.com/karn-labs/karn/auth"
	"github.com/karn-labs/karn/internal/reentrancy"
)

var (
	ErrAlreadyInitialized    = errors.New("vault already initialized")
	ErrNotInitialized        = errors.New("vault not initialized")
	ErrInsufficientShares    = errors.New("insufficient shares")
	ErrInsufficientAssets    = errors.New("insufficient assets")
	ErrInsufficientClaimable = errors.New("insufficient claimable balance")
	ErrZeroAmount            = errors.New("amount must be positive")
	ErrMathOverflow          = errors.New("vault amount overflow")
	ErrBelowMinimumDeposit   = errors.New("first deposit below minimum")
	ErrInvalidLab            = errors.New("invalid lab amounts")
	ErrUnknownLab            = errors.New("unknown lab")
	ErrLabNotActive          = errors.New("lab is not active")
	ErrLabExhausted          = errors.New("lab funds fully allocated")

	ErrNotAuthorized      = auth.ErrNotAuthorized
	ErrReentrancyDetected = reentrancy.ErrReentrancyDetected
)
