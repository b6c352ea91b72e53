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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const day = 24 * 60 * 60

func TestPowerDecay(t *testing.T) {
	t0 := uint64(1_000_000)
	expiry := t0 + DecayWindow
	testDefs := []struct {
		name     string
		at       uint64
		expected uint64
	}{
		{name: "at grant", at: t0, expected: 100},
		{name: "half window", at: t0 + 90*day, expected: 52},
		{name: "at expiry", at: t0 + 180*day, expected: 5},
		{name: "after expiry", at: t0 + 200*day, expected: 5},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			assert.Equal(t, testDef.expected, Power(100, 0, expiry, testDef.at))
		})
	}
}

func TestPowerEdgeCases(t *testing.T) {
	// No level, no power
	assert.Equal(t, uint64(0), Power(0, 50, 100, 0))
	// Level below floor still yields the floor
	assert.Equal(t, MemberFloor, Power(3, 0, DecayWindow, 0))
	// Permanent level only raises the post-expiry floor
	assert.Equal(t, uint64(40), Power(100, 40, 1000, 1000))
	assert.Equal(t, uint64(100), Power(100, 40, DecayWindow, 0))
	// Timestamps before the grant never exceed the granted level
	assert.Equal(t, uint64(100), Power(100, 0, 10+DecayWindow, 0))
}

func TestPowerNoOverflow(t *testing.T) {
	level := ^uint64(0)
	p := Power(level, 0, DecayWindow, 0)
	assert.Equal(t, level, p)
	p = Power(level, 0, DecayWindow, DecayWindow/2)
	assert.Greater(t, p, level/2-MemberFloor)
	assert.Less(t, p, level)
}

func TestPowerProperties(t *testing.T) {
	levels := []uint64{1, 5, 6, 100, 12345, 1 << 40}
	for _, level := range levels {
		expiry := DecayWindow + 500
		prev := Power(level, 0, expiry, 0)
		for ts := uint64(0); ts <= expiry+day; ts += day / 2 {
			p := Power(level, 0, expiry, ts)
			require.GreaterOrEqual(t, p, MemberFloor, "level %d at %d", level, ts)
			require.LessOrEqual(t, p, prev, "level %d at %d", level, ts)
			prev = p
		}
	}
}

func TestCategoryOf(t *testing.T) {
	testDefs := []struct {
		id       uint64
		category Category
		invalid  bool
	}{
		{id: 0, category: CategoryMember},
		{id: 1, category: CategoryFounder},
		{id: 2, invalid: true},
		{id: 9, invalid: true},
		{id: 10, category: CategoryLeadership},
		{id: 19, category: CategoryLeadership},
		{id: 20, category: CategoryTrack},
		{id: 59, category: CategoryTrack},
		{id: 60, category: CategoryCommunity},
		{id: 70, category: CategoryGovernance},
		{id: 79, category: CategoryGovernance},
		{id: 80, invalid: true},
	}
	for _, testDef := range testDefs {
		category, err := CategoryOf(testDef.id)
		if testDef.invalid {
			assert.ErrorIs(t, err, ErrInvalidBadgeID, "id %d", testDef.id)
			continue
		}
		require.NoError(t, err, "id %d", testDef.id)
		assert.Equal(t, testDef.category, category, "id %d", testDef.id)
	}
}
