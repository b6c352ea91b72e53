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
	"math"
	"math/bits"

	"github.com/karn-labs/karn/database/models"
)

type State uint8

const (
	StatePending State = iota
	StateActive
	StateDefeated
	StateSucceeded
	StateExecuted
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateActive:
		return "active"
	case StateDefeated:
		return "defeated"
	case StateSucceeded:
		return "succeeded"
	case StateExecuted:
		return "executed"
	default:
		return "unknown"
	}
}

// Closed reports whether voting on a proposal in this state is over
func (s State) Closed() bool {
	return s >= StateDefeated
}

// Resolve computes the state of a proposal at time now.
//
// After voting closes a proposal needs two things to pass: turnout of at
// least cfg.ParticipationPercentage of the reputation that existed at
// creation, and at least cfg.ApprovalPercentage of the cast weight in
// favor. Both percentages truncate.
func Resolve(p *models.Proposal, cfg Config, now uint64) State {
	switch {
	case p.Executed:
		return StateExecuted
	case now < p.StartTime:
		return StatePending
	case now <= p.EndTime:
		return StateActive
	}
	forVotes := uint64(p.ForVotes)
	total, carry := bits.Add64(forVotes, uint64(p.AgainstVotes), 0)
	if carry != 0 {
		total = math.MaxUint64
	}
	if total == 0 {
		return StateDefeated
	}
	totalReputation := uint64(p.TotalReputationAtCreation)
	if totalReputation == 0 {
		return StateDefeated
	}
	if percentOf(total, totalReputation) < cfg.ParticipationPercentage {
		return StateDefeated
	}
	if percentOf(forVotes, total) >= cfg.ApprovalPercentage {
		return StateSucceeded
	}
	return StateDefeated
}

// percentOf returns part*100/whole, saturating when the quotient does not
// fit in 64 bits
func percentOf(part, whole uint64) uint64 {
	hi, lo := bits.Mul64(part, 100)
	if hi >= whole {
		return math.MaxUint64
	}
	q, _ := bits.Div64(hi, lo, whole)
	return q
}
