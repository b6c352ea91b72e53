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

import "math/bits"

const (
	// MemberFloor is the voting power every member keeps regardless of decay
	MemberFloor uint64 = 5
	// DecayWindow is the number of seconds after a grant until the granted
	// level has decayed to the floor (180 days)
	DecayWindow uint64 = 180 * 24 * 60 * 60
	// LeadershipThreshold is the level from which a member may mint Track badges
	LeadershipThreshold uint64 = 10
)

// Power computes the voting power of a member record at time t.
//
// The level above the floor decays linearly from the last grant until
// expiry. Once expired, power is the larger of the permanent level and the
// floor. A zero level means no power at all.
func Power(level, permanentLevel, expiry, t uint64) uint64 {
	if level == 0 {
		return 0
	}
	if t >= expiry {
		return max(permanentLevel, MemberFloor)
	}
	var extra uint64
	if level > MemberFloor {
		extra = level - MemberFloor
	}
	remaining := min(expiry-t, DecayWindow)
	// remaining <= DecayWindow, so the quotient never exceeds extra and
	// Div64 cannot panic on overflow
	hi, lo := bits.Mul64(extra, remaining)
	bonus, _ := bits.Div64(hi, lo, DecayWindow)
	return MemberFloor + bonus
}
