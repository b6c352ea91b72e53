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

package governance_test

import (
	"testing"

	"github.com/karn-labs/karn/database/models"
	"github.com/karn-labs/karn/database/types"
	"github.com/karn-labs/karn/governance"
	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	cfg := governance.DefaultConfig()
	base := models.Proposal{
		StartTime:                 100,
		EndTime:                   200,
		TotalReputationAtCreation: 100,
	}
	testDefs := []struct {
		name     string
		now      uint64
		forVotes uint64
		against  uint64
		totalRep uint64
		executed bool
		expected governance.State
	}{
		{name: "before start", now: 99, forVotes: 50, totalRep: 100, expected: governance.StatePending},
		{name: "at start", now: 100, totalRep: 100, expected: governance.StateActive},
		{name: "at end", now: 200, forVotes: 50, totalRep: 100, expected: governance.StateActive},
		{name: "no votes", now: 201, totalRep: 100, expected: governance.StateDefeated},
		{name: "single voter of five", now: 201, forVotes: 5, totalRep: 5, expected: governance.StateSucceeded},
		{name: "turnout below threshold", now: 201, forVotes: 3, totalRep: 100, expected: governance.StateDefeated},
		{name: "turnout at threshold", now: 201, forVotes: 4, totalRep: 100, expected: governance.StateSucceeded},
		// 399*100/10000 truncates to 3
		{name: "turnout truncates", now: 201, forVotes: 399, totalRep: 10000, expected: governance.StateDefeated},
		{name: "approval at threshold", now: 201, forVotes: 51, against: 49, totalRep: 100, expected: governance.StateSucceeded},
		{name: "approval below threshold", now: 201, forVotes: 50, against: 50, totalRep: 100, expected: governance.StateDefeated},
		// 101*100/199 truncates to 50
		{name: "approval truncates", now: 201, forVotes: 101, against: 98, totalRep: 1000, expected: governance.StateDefeated},
		{name: "turnout above total", now: 201, forVotes: 500, totalRep: 100, expected: governance.StateSucceeded},
		{name: "no reputation at creation", now: 201, forVotes: 10, totalRep: 0, expected: governance.StateDefeated},
		{name: "executed", now: 150, forVotes: 10, totalRep: 10, executed: true, expected: governance.StateExecuted},
		{name: "huge tally", now: 201, forVotes: ^uint64(0) / 2, totalRep: 3, expected: governance.StateSucceeded},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			p := base
			p.ForVotes = types.Uint64(testDef.forVotes)
			p.AgainstVotes = types.Uint64(testDef.against)
			p.TotalReputationAtCreation = types.Uint64(testDef.totalRep)
			p.Executed = testDef.executed
			assert.Equal(t, testDef.expected, governance.Resolve(&p, cfg, testDef.now))
		})
	}
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, governance.DefaultConfig().Validate())
	cfg := governance.DefaultConfig()
	cfg.VotingPeriod = 0
	assert.ErrorIs(t, cfg.Validate(), governance.ErrInvalidConfig)
	cfg = governance.DefaultConfig()
	cfg.ApprovalPercentage = 101
	assert.ErrorIs(t, cfg.Validate(), governance.ErrInvalidConfig)
	cfg = governance.DefaultConfig()
	cfg.ParticipationPercentage = 200
	assert.ErrorIs(t, cfg.Validate(), governance.ErrInvalidConfig)
	cfg = governance.DefaultConfig()
	cfg.VotingDelay = ^uint64(0)
	assert.ErrorIs(t, cfg.Validate(), governance.ErrInvalidConfig)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "succeeded", governance.StateSucceeded.String())
	assert.True(t, governance.StateDefeated.Closed())
	assert.False(t, governance.StateActive.Closed())
}
