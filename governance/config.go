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

import "fmt"

// Config is the voting policy. It can only be changed by an executed
// proposal.
type Config struct {
	// VotingDelay is the number of seconds between proposal creation and
	// the start of voting
	VotingDelay uint64 `cbor:"1,keyasint" yaml:"votingDelay"`
	// VotingPeriod is the number of seconds voting stays open
	VotingPeriod uint64 `cbor:"2,keyasint" yaml:"votingPeriod"`
	// ProposalThreshold is the current voting power needed to propose
	ProposalThreshold uint64 `cbor:"3,keyasint" yaml:"proposalThreshold"`
	// ApprovalPercentage is the share of cast votes that must be in favor
	ApprovalPercentage uint64 `cbor:"4,keyasint" yaml:"approvalPercentage"`
	// ParticipationPercentage is the turnout, relative to the total
	// reputation at creation, below which a proposal fails
	ParticipationPercentage uint64 `cbor:"5,keyasint" yaml:"participationPercentage"`
}

func DefaultConfig() Config {
	return Config{
		VotingDelay:             24 * 60 * 60,
		VotingPeriod:            7 * 24 * 60 * 60,
		ProposalThreshold:       100,
		ApprovalPercentage:      51,
		ParticipationPercentage: 4,
	}
}

func (c Config) Validate() error {
	if c.VotingPeriod == 0 {
		return fmt.Errorf("%w: voting period must not be zero", ErrInvalidConfig)
	}
	if c.ApprovalPercentage > 100 {
		return fmt.Errorf("%w: approval percentage %d above 100", ErrInvalidConfig, c.ApprovalPercentage)
	}
	if c.ParticipationPercentage > 100 {
		return fmt.Errorf(
			"%w: participation percentage %d above 100",
			ErrInvalidConfig,
			c.ParticipationPercentage,
		)
	}
	if c.VotingDelay > ^uint64(0)-c.VotingPeriod {
		return fmt.Errorf("%w: voting window overflows", ErrInvalidConfig)
	}
	return nil
}
