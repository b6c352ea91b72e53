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

// Action is an opaque command carried by a proposal and dispatched to a
// named target when the proposal executes
type Action struct {
	Target    string   `json:"target"    yaml:"target"`
	Operation string   `json:"operation" yaml:"operation"`
	Args      []string `json:"args"      yaml:"args"`
}

// Proposal is a governance proposal. Once Executed is set the record is
// never modified again.
type Proposal struct {
	ID                        uint64       `gorm:"primaryKey;autoIncrement:false"`
	Proposer                  string       `gorm:"index;not null"`
	Description               string       `gorm:"not null"`
	Actions                   []Action     `gorm:"serializer:json"`
	CreationTime              uint64       `gorm:"not null"`
	StartTime                 uint64       `gorm:"index;not null"`
	EndTime                   uint64       `gorm:"index;not null"`
	ForVotes                  types.Uint64 `gorm:"not null"`
	AgainstVotes              types.Uint64 `gorm:"not null"`
	TotalReputationAtCreation types.Uint64 `gorm:"not null"`
	ReputationSnapshot        types.Uint64 `gorm:"not null"`
	Executed                  bool         `gorm:"index;not null"`
	ExecutedTime              *uint64
}

// TableName returns the table name
func (Proposal) TableName() string {
	return "proposal"
}

// TotalVotes returns the sum of for and against weights
func (p *Proposal) TotalVotes() uint64 {
	return uint64(p.ForVotes) + uint64(p.AgainstVotes)
}
