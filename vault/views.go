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
	"errors"
	"math/big"

	"github.com/karn-labs/karn/auth"
	"github.com/karn-labs/karn/database"
	"github.com/karn-labs/karn/database/models"
)

// Balance returns the full asset balance of the vault, restricted funds
// included
func (v *Vault) Balance(txn *database.Txn) (*big.Int, error) {
	return v.assets.Balance(txn, v.address)
}

// TotalAssets returns the spendable balance: the asset balance less the
// restricted reserve
func (v *Vault) TotalAssets(txn *database.Txn) (*big.Int, error) {
	balance, err := v.assets.Balance(txn, v.address)
	if err != nil {
		return nil, err
	}
	restricted, err := getAmount(txn, restrictedKey)
	if err != nil {
		return nil, err
	}
	spendable := new(big.Int).Sub(balance, restricted)
	if spendable.Sign() < 0 {
		return new(big.Int), nil
	}
	return spendable, nil
}

func (v *Vault) TotalShares(txn *database.Txn) (*big.Int, error) {
	return getAmount(txn, totalSharesKey)
}

func (v *Vault) SharesOf(txn *database.Txn, account auth.Address) (*big.Int, error) {
	return getAmount(txn, sharesKey(account))
}

func (v *Vault) ClaimableOf(txn *database.Txn, account auth.Address) (*big.Int, error) {
	return getAmount(txn, claimableKey(account))
}

func (v *Vault) RestrictedReserve(txn *database.Txn) (*big.Int, error) {
	return getAmount(txn, restrictedKey)
}

func (v *Vault) totals(txn *database.Txn) (*big.Int, *big.Int, error) {
	totalAssets, err := v.TotalAssets(txn)
	if err != nil {
		return nil, nil, err
	}
	totalShares, err := v.TotalShares(txn)
	if err != nil {
		return nil, nil, err
	}
	return totalAssets, totalShares, nil
}

// ConvertToAssets values shares at the current exchange rate
func (v *Vault) ConvertToAssets(txn *database.Txn, shares *big.Int) (*big.Int, error) {
	totalAssets, totalShares, err := v.totals(txn)
	if err != nil {
		return nil, err
	}
	return ConvertToAssets(shares, totalAssets, totalShares), nil
}

// ConvertToShares values assets in shares at the current exchange rate
func (v *Vault) ConvertToShares(txn *database.Txn, assets *big.Int) (*big.Int, error) {
	totalAssets, totalShares, err := v.totals(txn)
	if err != nil {
		return nil, err
	}
	return ConvertToShares(assets, totalAssets, totalShares), nil
}

// PreviewWithdraw returns the assets a withdrawal of shares would pay
func (v *Vault) PreviewWithdraw(txn *database.Txn, shares *big.Int) (*big.Int, error) {
	return v.ConvertToAssets(txn, shares)
}

func (v *Vault) Lab(txn *database.Txn, labID uint64) (*models.Lab, error) {
	return v.lab(txn, labID)
}

func (v *Vault) Labs(txn *database.Txn) ([]models.Lab, error) {
	return txn.DB().Metadata().GetLabs(txn.Metadata())
}

func (v *Vault) Governor(txn *database.Txn) (auth.Address, error) {
	cfg, err := v.config(txn)
	if err != nil {
		return "", err
	}
	return auth.Address(cfg.Governor), nil
}

// Reputation returns the principal allowed to deposit shares
func (v *Vault) Reputation(txn *database.Txn) (auth.Address, error) {
	cfg, err := v.config(txn)
	if err != nil {
		return "", err
	}
	return auth.Address(cfg.Reputation), nil
}

func (v *Vault) MinInitialDeposit(txn *database.Txn) (*big.Int, error) {
	cfg, err := v.config(txn)
	if err != nil {
		return nil, err
	}
	return cfg.MinInitialDeposit, nil
}

func (v *Vault) Initialized(txn *database.Txn) (bool, error) {
	_, err := v.config(txn)
	if errors.Is(err, ErrNotInitialized) {
		return false, nil
	}
	return err == nil, err
}
