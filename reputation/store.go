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

import (
	"crypto/ed25519"
	"fmt"
	"math"

	"github.com/karn-labs/karn/auth"
	"github.com/karn-labs/karn/database"
	"github.com/karn-labs/karn/database/types"
)

const (
	keyTagConfig     types.KeyTag = 1
	keyTagSupply     types.KeyTag = 2
	keyTagBadgeType  types.KeyTag = 3
	keyTagToken      types.KeyTag = 4
	keyTagMember     types.KeyTag = 5
	keyTagNonce      types.KeyTag = 6
	keyTagCheckpoint types.KeyTag = 7
	keyTagSequence   types.KeyTag = 8
)

// ledgerConfig holds the addresses and keys set at initialization
type ledgerConfig struct {
	Governor string `cbor:"1,keyasint"`
	Vault    string `cbor:"2,keyasint"`
	Signer   []byte `cbor:"3,keyasint"`
}

func (l *Ledger) config(txn *database.Txn) (*ledgerConfig, error) {
	var cfg ledgerConfig
	found, err := txn.GetValue(
		types.SingletonKey(types.ReputationKeyScope, keyTagConfig),
		&cfg,
	)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotInitialized
	}
	return &cfg, nil
}

func (l *Ledger) setConfig(txn *database.Txn, cfg *ledgerConfig) error {
	return txn.SetValue(
		types.SingletonKey(types.ReputationKeyScope, keyTagConfig),
		cfg,
	)
}

func (l *Ledger) signerKey(cfg *ledgerConfig) ed25519.PublicKey {
	return ed25519.PublicKey(cfg.Signer)
}

func (l *Ledger) totalSupply(txn *database.Txn) (uint64, error) {
	var supply uint64
	if _, err := txn.GetValue(
		types.SingletonKey(types.ReputationKeyScope, keyTagSupply),
		&supply,
	); err != nil {
		return 0, err
	}
	return supply, nil
}

func (l *Ledger) setTotalSupply(txn *database.Txn, supply uint64) error {
	return txn.SetValue(
		types.SingletonKey(types.ReputationKeyScope, keyTagSupply),
		supply,
	)
}

func (l *Ledger) badgeType(txn *database.Txn, badgeID uint64) (*BadgeType, error) {
	var bt BadgeType
	found, err := txn.GetValue(
		types.IDKey(types.ReputationKeyScope, keyTagBadgeType, badgeID),
		&bt,
	)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBadgeType, badgeID)
	}
	return &bt, nil
}

func (l *Ledger) setBadgeType(txn *database.Txn, bt *BadgeType) error {
	return txn.SetValue(
		types.IDKey(types.ReputationKeyScope, keyTagBadgeType, bt.ID),
		bt,
	)
}

func (l *Ledger) token(txn *database.Txn, tokenID uint64) (*Token, error) {
	var token Token
	found, err := txn.GetValue(
		types.IDKey(types.ReputationKeyScope, keyTagToken, tokenID),
		&token,
	)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %d", ErrUnknownToken, tokenID)
	}
	return &token, nil
}

// member returns the record of an account, or nil if it has never been granted a badge
func (l *Ledger) member(txn *database.Txn, account auth.Address) (*Member, error) {
	var m Member
	found, err := txn.GetValue(
		types.AccountKey(types.ReputationKeyScope, keyTagMember, string(account)),
		&m,
	)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &m, nil
}

// checkpointSeq returns the sequence number of the latest checkpoint
func (l *Ledger) checkpointSeq(txn *database.Txn) (uint64, error) {
	var seq uint64
	if _, err := txn.GetValue(
		types.SingletonKey(types.ReputationKeyScope, keyTagSequence),
		&seq,
	); err != nil {
		return 0, err
	}
	return seq, nil
}

func checkpointKey(account auth.Address, t, seq uint64) []byte {
	return types.AccountUint64PairKey(
		types.ReputationKeyScope,
		keyTagCheckpoint,
		string(account),
		t,
		seq,
	)
}

// setMember stores the record and a checkpoint of it keyed by the current
// time and the next checkpoint sequence number. Historical power queries
// read from the checkpoints.
func (l *Ledger) setMember(txn *database.Txn, account auth.Address, m *Member) error {
	if err := txn.SetValue(
		types.AccountKey(types.ReputationKeyScope, keyTagMember, string(account)),
		m,
	); err != nil {
		return err
	}
	seq, err := l.checkpointSeq(txn)
	if err != nil {
		return err
	}
	if seq == math.MaxUint64 {
		return ErrMathOverflow
	}
	seq++
	if err := txn.SetValue(
		types.SingletonKey(types.ReputationKeyScope, keyTagSequence),
		seq,
	); err != nil {
		return err
	}
	return txn.SetValue(checkpointKey(account, l.clock.Now(), seq), m)
}

// memberAt returns the record of an account as of the latest checkpoint
// at or before time t and sequence number seq, or nil if there is none
func (l *Ledger) memberAt(
	txn *database.Txn,
	account auth.Address,
	t uint64,
	seq uint64,
) (*Member, error) {
	prefix := types.AccountPrefix(
		types.ReputationKeyScope,
		keyTagCheckpoint,
		string(account),
	)
	iter, err := txn.NewIterator(types.BlobIteratorOptions{
		Prefix:  prefix,
		Reverse: true,
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	// Reverse seek lands on the greatest key at or before (t, seq)
	iter.Seek(checkpointKey(account, t, seq))
	if !iter.ValidForPrefix(prefix) {
		return nil, nil
	}
	val, err := iter.Item().ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	var m Member
	if err := database.DecodeValue(val, &m); err != nil {
		return nil, fmt.Errorf("decode checkpoint: %w", err)
	}
	return &m, nil
}

func nonceKey(account auth.Address, nonce uint64) []byte {
	return types.AccountUint64Key(
		types.ReputationKeyScope,
		keyTagNonce,
		string(account),
		nonce,
	)
}

// consumeVoucher checks a voucher and burns its nonce
func (l *Ledger) consumeVoucher(
	txn *database.Txn,
	cfg *ledgerConfig,
	v *auth.Voucher,
	purpose string,
) error {
	if err := v.CheckExpiry(l.clock.Now()); err != nil {
		return err
	}
	used, err := txn.HasKey(nonceKey(v.Account, v.Nonce))
	if err != nil {
		return err
	}
	if used {
		return fmt.Errorf("%w: %d", ErrNonceReused, v.Nonce)
	}
	if err := v.Verify(purpose, l.signerKey(cfg)); err != nil {
		return err
	}
	return txn.SetValue(nonceKey(v.Account, v.Nonce), true)
}

func checkedAdd(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrMathOverflow
	}
	return a + b, nil
}

func saturatingSub(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return 0
}
