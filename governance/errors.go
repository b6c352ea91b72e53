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
	"errors"

	"github.com/karn-labs/karn/auth"
	"github.com/karn-labs/karn/internal/reentrancy"
)

var (
	ErrAlreadyInitialized     = errors.New("governor already initialized")
	ErrNotInitialized         = errors.New("governor not initialized")
	ErrProposalNotFound       = errors.New("proposal not found")
	ErrVotingNotStarted       = errors.New("voting has not started")
	ErrVotingEnded            = errors.New("voting has ended")
	ErrAlreadyVoted           = errors.New("already voted")
	ErrNoVotingPower          = errors.New("no voting power")
	ErrBelowProposalThreshold = errors.New("voting power below proposal threshold")
	ErrProposalNotSucceeded   = errors.New("proposal has not succeeded")
	ErrAlreadyExecuted        = errors.New("proposal already executed")
	ErrNotMember              = errors.New("proposer is not a member")
	ErrInvalidConfig          = errors.New("invalid governance config")
	ErrUnknownTarget          = errors.New("unknown action target")
	ErrMathOverflow           = errors.New("vote tally overflow")

	ErrNotAuthorized      = auth.ErrNotAuthorized
	ErrReentrancyDetected = reentrancy.ErrReentrancyDetected
)
