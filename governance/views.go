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
	"github.com/karn-labs/karn/database"
	"github.com/karn-labs/karn/database/models"
)

func (e *Engine) Config(txn *database.Txn) (Config, error) {
	cfg, err := e.config(txn)
	if err != nil {
		return Config{}, err
	}
	return *cfg, nil
}

func (e *Engine) Initialized(txn *database.Txn) (bool, error) {
	_, err := e.config(txn)
	if errors.Is(err, ErrNotInitialized) {
		return false, nil
	}
	return err == nil, err
}

func (e *Engine) Proposal(txn *database.Txn, proposalID uint64) (*models.Proposal, error) {
	return e.proposal(txn, proposalID)
}

// Proposals returns every proposal ordered by id
func (e *Engine) Proposals(txn *database.Txn) ([]models.Proposal, error) {
	return txn.DB().Metadata().GetProposals(txn.Metadata())
}

// OpenProposals returns the proposals that have not been executed
func (e *Engine) OpenProposals(txn *database.Txn) ([]models.Proposal, error) {
	return txn.DB().Metadata().GetPendingExecutionProposals(txn.Metadata())
}

// ProposalCount returns the id of the latest proposal
func (e *Engine) ProposalCount(txn *database.Txn) (uint64, error) {
	var count uint64
	if _, err := txn.GetValue(proposalCountKey, &count); err != nil {
		return 0, err
	}
	return count, nil
}

func (e *Engine) HasVoted(
	txn *database.Txn,
	proposalID uint64,
	voter auth.Address,
) (bool, error) {
	vote, err := txn.DB().Metadata().GetVote(proposalID, string(voter), txn.Metadata())
	if err != nil {
		return false, err
	}
	return vote != nil, nil
}

// Votes returns the votes on a proposal in the order they were cast
func (e *Engine) Votes(txn *database.Txn, proposalID uint64) ([]models.Vote, error) {
	if _, err := e.proposal(txn, proposalID); err != nil {
		return nil, err
	}
	return txn.DB().Metadata().GetVotes(proposalID, txn.Metadata())
}
