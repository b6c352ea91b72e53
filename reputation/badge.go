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

import "fmt"

// Category decides who may mint a badge
type Category uint8

const (
	CategoryMember Category = iota
	CategoryFounder
	CategoryLeadership
	CategoryTrack
	CategoryCommunity
	CategoryGovernance
)

const (
	MemberBadgeID  uint64 = 0
	FounderBadgeID uint64 = 1
)

func (c Category) String() string {
	switch c {
	case CategoryMember:
		return "member"
	case CategoryFounder:
		return "founder"
	case CategoryLeadership:
		return "leadership"
	case CategoryTrack:
		return "track"
	case CategoryCommunity:
		return "community"
	case CategoryGovernance:
		return "governance"
	default:
		return fmt.Sprintf("category(%d)", uint8(c))
	}
}

// CategoryOf maps a badge id to its category. Ids outside the reserved
// ranges are invalid
func CategoryOf(badgeID uint64) (Category, error) {
	switch {
	case badgeID == MemberBadgeID:
		return CategoryMember, nil
	case badgeID == FounderBadgeID:
		return CategoryFounder, nil
	case badgeID >= 10 && badgeID <= 19:
		return CategoryLeadership, nil
	case badgeID >= 20 && badgeID <= 59:
		return CategoryTrack, nil
	case badgeID >= 60 && badgeID <= 69:
		return CategoryCommunity, nil
	case badgeID >= 70 && badgeID <= 79:
		return CategoryGovernance, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrInvalidBadgeID, badgeID)
	}
}

// BadgeType describes a kind of badge. Rarity is the level it grants
type BadgeType struct {
	ID       uint64   `cbor:"1,keyasint"`
	Rarity   uint64   `cbor:"2,keyasint"`
	Metadata string   `cbor:"3,keyasint"`
	Category Category `cbor:"4,keyasint"`
}

// Token is a minted badge instance
type Token struct {
	ID      uint64 `cbor:"1,keyasint"`
	BadgeID uint64 `cbor:"2,keyasint"`
	Owner   string `cbor:"3,keyasint"`
}

// Member is the reputation record of an account
type Member struct {
	Level          uint64 `cbor:"1,keyasint"`
	PermanentLevel uint64 `cbor:"2,keyasint"`
	Expiry         uint64 `cbor:"3,keyasint"`
	Verified       bool   `cbor:"4,keyasint"`
}

// PowerAt returns the voting power of the record at time t
func (m Member) PowerAt(t uint64) uint64 {
	return Power(m.Level, m.PermanentLevel, m.Expiry, t)
}
