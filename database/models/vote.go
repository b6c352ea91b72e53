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

package models

import "github.com/karn-labs/karn/database/types"

// Vote is the single vote cast by a voter on a proposal
type Vote struct {
	ID         uint         `gorm:"primarykey"`
	ProposalID uint64       `gorm:"index:idx_vote_proposal;uniqueIndex:idx_vote_unique,priority:1;not null"`
	Voter      string       `gorm:"uniqueIndex:idx_vote_unique,priority:2;not null"`
	Support    bool         `gorm:"not null"`
	Weight     types.Uint64 `gorm:"not null"`
	CastTime   uint64       `gorm:"not null"`
}

// TableName returns the table name
func (Vote) TableName() string {
	return "proposal_vote"
}
