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

package vault

import (
	"fmt"
	"math/big"

	"github.com/karn-labs/karn/auth"
	"github.com/karn-labs/karn/database"
	"github.com/karn-labs/karn/database/models"
	"github.com/karn-labs/karn/database/types"
)

const (
	keyTagConfig      types.KeyTag = 1
	keyTagTotalShares types.KeyTag = 2
	keyTagShares      types.KeyTag = 3
	keyTagRestricted  types.KeyTag = 4
	keyTagClaimable   types.KeyTag = 5
	keyTagLabCounter  types.KeyTag = 6
)

type vaultConfig struct {
	Reputation        string   `cbor:"1,keyasint"`
	Governor          string   `cbor:"2,keyasint"`
	MinInitialDeposit *big.Int `cbor:"3,keyasint"`
}

func (v *Vault) config(txn *database.Txn) (*vaultConfig, error) {
	var cfg vaultConfig
	found, err := txn.GetValue(
		types.SingletonKey(types.VaultKeyScope, keyTagConfig),
		&cfg,
	)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotInitialized
	}
	if cfg.MinInitialDeposit == nil {
		cfg.MinInitialDeposit = new(big.Int)
	}
	return &cfg, nil
}

func (v *Vault) setConfig(txn *database.Txn, cfg *vaultConfig) error {
	return txn.SetValue(
		types.SingletonKey(types.VaultKeyScope, keyTagConfig),
		cfg,
	)
}

// getAmount reads an amount, treating a missing key as zero
func getAmount(txn *database.Txn, key []byte) (*big.Int, error) {
	ret := new(big.Int)
	if _, err := txn.GetValue(key, &ret); err != nil {
		return nil, err
	}
	if ret == nil {
		ret = new(big.Int)
	}
	return ret, nil
}

func sharesKey(account auth.Address) []byte {
	return types.AccountKey(types.VaultKeyScope, keyTagShares, string(account))
}

func claimableKey(account auth.Address) []byte {
	return types.AccountKey(types.VaultKeyScope, keyTagClaimable, string(account))
}

var (
	totalSharesKey = types.SingletonKey(types.VaultKeyScope, keyTagTotalShares)
	restrictedKey  = types.SingletonKey(types.VaultKeyScope, keyTagRestricted)
	labCounterKey  = types.SingletonKey(types.VaultKeyScope, keyTagLabCounter)
)

func (v *Vault) nextLabID(txn *database.Txn) (uint64, error) {
	var counter uint64
	if _, err := txn.GetValue(labCounterKey, &counter); err != nil {
		return 0, err
	}
	counter++
	if err := txn.SetValue(labCounterKey, counter); err != nil {
		return 0, err
	}
	return counter, nil
}

func (v *Vault) lab(txn *database.Txn, labID uint64) (*models.Lab, error) {
	lab, err := txn.DB().Metadata().GetLab(labID, txn.Metadata())
	if err != nil {
		return nil, err
	}
	if lab == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLab, labID)
	}
	return lab, nil
}
