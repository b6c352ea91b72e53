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
	"github.com/karn-labs/karn/auth"
	"github.com/karn-labs/karn/database"
	"github.com/karn-labs/karn/internal/action"
)

// TargetName is the name proposal actions address the ledger by
const TargetName = "reputation"

// Invoke runs a governance action against the ledger with caller as the
// authorizing principal
func (l *Ledger) Invoke(
	txn *database.Txn,
	caller auth.Address,
	operation string,
	args []string,
) error {
	a := action.Args(args)
	switch operation {
	case "set_badge_type":
		if err := a.Expect(3); err != nil {
			return err
		}
		badgeID, err := a.Uint64(0)
		if err != nil {
			return err
		}
		rarity, err := a.Uint64(1)
		if err != nil {
			return err
		}
		return l.SetBadgeType(txn, caller, badgeID, rarity, a[2])
	case "mint":
		if err := a.Expect(2); err != nil {
			return err
		}
		account, err := a.Address(0)
		if err != nil {
			return err
		}
		badgeID, err := a.Uint64(1)
		if err != nil {
			return err
		}
		_, err = l.Mint(txn, caller, account, badgeID)
		return err
	case "revoke":
		if err := a.Expect(1); err != nil {
			return err
		}
		tokenID, err := a.Uint64(0)
		if err != nil {
			return err
		}
		return l.Revoke(txn, caller, tokenID)
	case "set_verified":
		if err := a.Expect(2); err != nil {
			return err
		}
		account, err := a.Address(0)
		if err != nil {
			return err
		}
		verified, err := a.Bool(1)
		if err != nil {
			return err
		}
		return l.SetVerified(txn, caller, account, verified)
	case "update_governor":
		if err := a.Expect(1); err != nil {
			return err
		}
		governor, err := a.Address(0)
		if err != nil {
			return err
		}
		return l.UpdateGovernor(txn, caller, governor)
	case "update_vault":
		if err := a.Expect(1); err != nil {
			return err
		}
		vault, err := a.String(0)
		if err != nil {
			return err
		}
		return l.UpdateVault(txn, caller, auth.Address(vault))
	default:
		return action.Unknown(TargetName, operation)
	}
}
