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

// Package asset provides the fungible asset ledger the vault holds custody
// through. The vault only depends on the Ledger interface.
package asset

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/karn-labs/karn/auth"
	"github.com/karn-labs/karn/database"
	"github.com/karn-labs/karn/database/types"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("amount must be positive")
)

// Ledger is the asset ledger consumed by the vault
type Ledger interface {
	Balance(txn *database.Txn, account auth.Address) (*big.Int, error)
	Transfer(txn *database.Txn, from, to auth.Address, amount *big.Int) error
}

const (
	keyTagBalance types.KeyTag = 1
	keyTagSupply  types.KeyTag = 2
)

// KVLedger is a Ledger stored in the asset key scope of the database
type KVLedger struct{}

func NewKVLedger() *KVLedger {
	return &KVLedger{}
}

func balanceKey(account auth.Address) []byte {
	return types.AccountKey(types.AssetKeyScope, keyTagBalance, string(account))
}

func (l *KVLedger) Balance(txn *database.Txn, account auth.Address) (*big.Int, error) {
	return l.get(txn, balanceKey(account))
}

// Supply returns the total amount ever minted
func (l *KVLedger) Supply(txn *database.Txn) (*big.Int, error) {
	return l.get(txn, types.SingletonKey(types.AssetKeyScope, keyTagSupply))
}

func (l *KVLedger) get(txn *database.Txn, key []byte) (*big.Int, error) {
	ret := new(big.Int)
	if _, err := txn.GetValue(key, &ret); err != nil {
		return nil, err
	}
	if ret == nil {
		ret = new(big.Int)
	}
	return ret, nil
}

func (l *KVLedger) Transfer(
	txn *database.Txn,
	from, to auth.Address,
	amount *big.Int,
) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	fromBalance, err := l.Balance(txn, from)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return fmt.Errorf(
			"%w: %s holds %s, needs %s",
			ErrInsufficientBalance,
			from,
			fromBalance,
			amount,
		)
	}
	if from == to {
		return nil
	}
	toBalance, err := l.Balance(txn, to)
	if err != nil {
		return err
	}
	if err := txn.SetValue(balanceKey(from), fromBalance.Sub(fromBalance, amount)); err != nil {
		return err
	}
	return txn.SetValue(balanceKey(to), toBalance.Add(toBalance, amount))
}

// Mint creates new units for an account. Only the host calls this, when
// loading genesis balances
func (l *KVLedger) Mint(txn *database.Txn, to auth.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	balance, err := l.Balance(txn, to)
	if err != nil {
		return err
	}
	supply, err := l.Supply(txn)
	if err != nil {
		return err
	}
	if err := txn.SetValue(balanceKey(to), balance.Add(balance, amount)); err != nil {
		return err
	}
	return txn.SetValue(
		types.SingletonKey(types.AssetKeyScope, keyTagSupply),
		supply.Add(supply, amount),
	)
}
