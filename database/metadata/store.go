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

package metadata

import (
	"github.com/karn-labs/karn/database/models"
	"github.com/karn-labs/karn/database/types"
	"gorm.io/gorm"
)

// MetadataStore holds the relational records of the governance system. All
// methods accept a transaction from Transaction(); a nil transaction runs
// against the database directly.
type MetadataStore interface {
	// Database
	Close() error
	DB() *gorm.DB
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(int64, types.Txn) error
	Transaction() types.Txn

	// Proposals
	GetProposal(uint64, types.Txn) (*models.Proposal, error)
	GetProposals(types.Txn) ([]models.Proposal, error)
	GetPendingExecutionProposals(types.Txn) ([]models.Proposal, error)
	SetProposal(*models.Proposal, types.Txn) error
	GetVote(uint64, string, types.Txn) (*models.Vote, error)
	GetVotes(uint64, types.Txn) ([]models.Vote, error)
	AddVote(*models.Vote, types.Txn) error

	// Labs
	GetLab(uint64, types.Txn) (*models.Lab, error)
	GetLabs(types.Txn) ([]models.Lab, error)
	SetLab(*models.Lab, types.Txn) error
}
