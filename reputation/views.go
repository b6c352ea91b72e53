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
	"errors"
	"math"

	"github.com/karn-labs/karn/auth"
	"github.com/karn-labs/karn/database"
)

// Member returns the current record of an account, or nil for an account
// that never held a badge
func (l *Ledger) Member(txn *database.Txn, account auth.Address) (*Member, error) {
	if _, err := l.config(txn); err != nil {
		return nil, err
	}
	return l.member(txn, account)
}

func (l *Ledger) LevelOf(txn *database.Txn, account auth.Address) (uint64, error) {
	m, err := l.member(txn, account)
	if err != nil || m == nil {
		return 0, err
	}
	return m.Level, nil
}

func (l *Ledger) PermanentLevelOf(txn *database.Txn, account auth.Address) (uint64, error) {
	m, err := l.member(txn, account)
	if err != nil || m == nil {
		return 0, err
	}
	return m.PermanentLevel, nil
}

// ExpiryOf returns the decay expiry of an account, or 0 once it has passed
func (l *Ledger) ExpiryOf(txn *database.Txn, account auth.Address) (uint64, error) {
	m, err := l.member(txn, account)
	if err != nil || m == nil {
		return 0, err
	}
	if m.Expiry > l.clock.Now() {
		return m.Expiry, nil
	}
	return 0, nil
}

func (l *Ledger) IsVerified(txn *database.Txn, account auth.Address) (bool, error) {
	m, err := l.member(txn, account)
	if err != nil || m == nil {
		return false, err
	}
	return m.Verified, nil
}

// HasVotingPower reports whether the account holds any level
func (l *Ledger) HasVotingPower(txn *database.Txn, account auth.Address) (bool, error) {
	level, err := l.LevelOf(txn, account)
	return level > 0, err
}

// PowerNow returns the voting power of an account at the current ledger time
func (l *Ledger) PowerNow(txn *database.Txn, account auth.Address) (uint64, error) {
	m, err := l.member(txn, account)
	if err != nil || m == nil {
		return 0, err
	}
	return m.PowerAt(l.clock.Now()), nil
}

// PowerAt returns the voting power an account had at time t. It reads the
// record as it stood at t, so grants made after t never count
func (l *Ledger) PowerAt(
	txn *database.Txn,
	account auth.Address,
	t uint64,
) (uint64, error) {
	return l.PowerAtSnapshot(txn, account, t, math.MaxUint64)
}

// Snapshot returns a marker of the current reputation state. Grants made
// after it, even within the same second, are excluded by PowerAtSnapshot
func (l *Ledger) Snapshot(txn *database.Txn) (uint64, error) {
	return l.checkpointSeq(txn)
}

// PowerAtSnapshot returns the voting power at time t of the record as it
// stood when snapshot was taken
func (l *Ledger) PowerAtSnapshot(
	txn *database.Txn,
	account auth.Address,
	t uint64,
	snapshot uint64,
) (uint64, error) {
	m, err := l.memberAt(txn, account, t, snapshot)
	if err != nil || m == nil {
		return 0, err
	}
	return m.PowerAt(t), nil
}

// TotalSupply returns the number of tokens ever minted. Revocations do not
// reduce it
func (l *Ledger) TotalSupply(txn *database.Txn) (uint64, error) {
	return l.totalSupply(txn)
}

// TotalReputationLowerBound returns total supply times the member floor, a
// lower bound of the total voting power that needs no member enumeration
func (l *Ledger) TotalReputationLowerBound(txn *database.Txn) (uint64, error) {
	supply, err := l.totalSupply(txn)
	if err != nil {
		return 0, err
	}
	if supply > ^uint64(0)/MemberFloor {
		return ^uint64(0), nil
	}
	return supply * MemberFloor, nil
}

// OwnerOf returns the owner of a token
func (l *Ledger) OwnerOf(txn *database.Txn, tokenID uint64) (auth.Address, error) {
	token, err := l.token(txn, tokenID)
	if err != nil {
		return "", err
	}
	return auth.Address(token.Owner), nil
}

// BadgeOf returns the badge type id of a token
func (l *Ledger) BadgeOf(txn *database.Txn, tokenID uint64) (uint64, error) {
	token, err := l.token(txn, tokenID)
	if err != nil {
		return 0, err
	}
	return token.BadgeID, nil
}

func (l *Ledger) BadgeType(txn *database.Txn, badgeID uint64) (*BadgeType, error) {
	return l.badgeType(txn, badgeID)
}

func (l *Ledger) Governor(txn *database.Txn) (auth.Address, error) {
	cfg, err := l.config(txn)
	if err != nil {
		return "", err
	}
	return auth.Address(cfg.Governor), nil
}

func (l *Ledger) Vault(txn *database.Txn) (auth.Address, error) {
	cfg, err := l.config(txn)
	if err != nil {
		return "", err
	}
	return auth.Address(cfg.Vault), nil
}

func (l *Ledger) SignerKey(txn *database.Txn) (ed25519.PublicKey, error) {
	cfg, err := l.config(txn)
	if err != nil {
		return nil, err
	}
	return l.signerKey(cfg), nil
}

// Initialized reports whether Initialize has run
func (l *Ledger) Initialized(txn *database.Txn) (bool, error) {
	_, err := l.config(txn)
	if errors.Is(err, ErrNotInitialized) {
		return false, nil
	}
	return err == nil, err
}
