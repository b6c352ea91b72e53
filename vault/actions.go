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
	"github.com/karn-labs/karn/auth"
	"github.com/karn-labs/karn/database"
	"github.com/karn-labs/karn/internal/action"
)

// TargetName is the name proposal actions address the vault by
const TargetName = "vault"

// Invoke runs a governance action against the vault with caller as the
// authorizing principal
func (v *Vault) Invoke(
	txn *database.Txn,
	caller auth.Address,
	operation string,
	args []string,
) error {
	a := action.Args(args)
	switch operation {
	case "transfer":
		if err := a.Expect(2); err != nil {
			return err
		}
		receiver, err := a.Address(0)
		if err != nil {
			return err
		}
		amount, err := a.Amount(1)
		if err != nil {
			return err
		}
		return v.Transfer(txn, caller, receiver, amount)
	case "withdraw":
		if err := a.Expect(3); err != nil {
			return err
		}
		owner, err := a.Address(0)
		if err != nil {
			return err
		}
		receiver, err := a.Address(1)
		if err != nil {
			return err
		}
		shares, err := a.Amount(2)
		if err != nil {
			return err
		}
		_, err = v.Withdraw(txn, caller, owner, receiver, shares)
		return err
	case "approve_scholarship":
		if err := a.Expect(2); err != nil {
			return err
		}
		labID, err := a.Uint64(0)
		if err != nil {
			return err
		}
		recipient, err := a.Address(1)
		if err != nil {
			return err
		}
		return v.ApproveScholarship(txn, caller, labID, recipient)
	case "cancel_lab":
		if err := a.Expect(1); err != nil {
			return err
		}
		labID, err := a.Uint64(0)
		if err != nil {
			return err
		}
		_, err = v.CancelLab(txn, caller, labID)
		return err
	case "update_governor":
		if err := a.Expect(1); err != nil {
			return err
		}
		governor, err := a.Address(0)
		if err != nil {
			return err
		}
		return v.UpdateGovernor(txn, caller, governor)
	default:
		return action.Unknown(TargetName, operation)
	}
}
