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
	"fmt"

	"github.com/karn-labs/karn/database"
	"github.com/karn-labs/karn/database/models"
	"github.com/karn-labs/karn/database/types"
)

const (
	keyTagConfig        types.KeyTag = 1
	keyTagProposalCount types.KeyTag = 2
)

var (
	configKey        = types.SingletonKey(types.GovernorKeyScope, keyTagConfig)
	proposalCountKey = types.SingletonKey(types.GovernorKeyScope, keyTagProposalCount)
)

func (e *Engine) config(txn *database.Txn) (*Config, error) {
	var cfg Config
	found, err := txn.GetValue(configKey, &cfg)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotInitialized
	}
	return &cfg, nil
}

func (e *Engine) setConfig(txn *database.Txn, cfg *Config) error {
	return txn.SetValue(configKey, cfg)
}

func (e *Engine) nextProposalID(txn *database.Txn) (uint64, error) {
	var count uint64
	if _, err := txn.GetValue(proposalCountKey, &count); err != nil {
		return 0, err
	}
	count++
	if err := txn.SetValue(proposalCountKey, count); err != nil {
		return 0, err
	}
	return count, nil
}

func (e *Engine) proposal(txn *database.Txn, proposalID uint64) (*models.Proposal, error) {
	proposal, err := txn.DB().Metadata().GetProposal(proposalID, txn.Metadata())
	if err != nil {
		return nil, err
	}
	if proposal == nil {
		return nil, fmt.Errorf("%w: %d", ErrProposalNotFound, proposalID)
	}
	return proposal, nil
}
