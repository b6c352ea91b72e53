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
	"github.com/karn-labs/karn/event"
)

// FundLab moves total from the funder into the vault and reserves it for
// scholarships of perRecipient each. Reserved funds are excluded from the
// spendable balance until they are claimed or the lab is cancelled
func (v *Vault) FundLab(
	txn *database.Txn,
	funder auth.Address,
	total *big.Int,
	perRecipient *big.Int,
) (uint64, error) {
	if _, err := v.config(txn); err != nil {
		return 0, err
	}
	if err := checkPositive(total); err != nil {
		return 0, err
	}
	if err := checkPositive(perRecipient); err != nil {
		return 0, err
	}
	if perRecipient.Cmp(total) > 0 {
		return 0, fmt.Errorf(
			"%w: per recipient amount %s exceeds total %s",
			ErrInvalidLab,
			perRecipient,
			total,
		)
	}
	if err := v.guard.Enter(txn); err != nil {
		return 0, err
	}
	restricted, err := getAmount(txn, restrictedKey)
	if err != nil {
		return 0, err
	}
	if restricted, err = checkedAdd(restricted, total); err != nil {
		return 0, err
	}
	if err := v.assets.Transfer(txn, funder, v.address, total); err != nil {
		return 0, fmt.Errorf("fund lab: %w", err)
	}
	if err := txn.SetValue(restrictedKey, restricted); err != nil {
		return 0, err
	}
	labID, err := v.nextLabID(txn)
	if err != nil {
		return 0, err
	}
	lab := &models.Lab{
		ID:                 labID,
		Funder:             string(funder),
		TotalAmount:        types.NewAmount(total),
		PerRecipientAmount: types.NewAmount(perRecipient),
		AllocatedAmount:    types.NewAmount(nil),
		Status:             models.LabStatusActive,
		CreatedTime:        v.clock.Now(),
	}
	if err := txn.DB().Metadata().SetLab(lab, txn.Metadata()); err != nil {
		return 0, err
	}
	if err := v.guard.Exit(txn); err != nil {
		return 0, err
	}
	v.logger.Info(
		"lab funded",
		"lab", labID,
		"funder", funder,
		"total", total,
		"per_recipient", perRecipient,
	)
	v.bus.PublishOnCommit(txn, event.LabFundedEventType, event.LabFundedEvent{
		LabID:              labID,
		Funder:             string(funder),
		TotalAmount:        new(big.Int).Set(total),
		PerRecipientAmount: new(big.Int).Set(perRecipient),
	})
	return labID, nil
}

// ApproveScholarship allocates one per-recipient amount of a lab to
// recipient's claimable balance. No assets move. Governor only
func (v *Vault) ApproveScholarship(
	txn *database.Txn,
	caller auth.Address,
	labID uint64,
	recipient auth.Address,
) error {
	cfg, err := v.config(txn)
	if err != nil {
		return err
	}
	if err := auth.Require(caller, auth.Address(cfg.Governor)); err != nil {
		return err
	}
	lab, err := v.lab(txn, labID)
	if err != nil {
		return err
	}
	if lab.Status != models.LabStatusActive {
		return fmt.Errorf("%w: lab %d is %s", ErrLabNotActive, labID, lab.Status)
	}
	total := lab.TotalAmount.Big()
	amount := lab.PerRecipientAmount.Big()
	allocated, err := checkedAdd(lab.AllocatedAmount.Big(), amount)
	if err != nil {
		return err
	}
	if allocated.Cmp(total) > 0 {
		return fmt.Errorf(
			"%w: lab %d has %s of %s left",
			ErrLabExhausted,
			labID,
			new(big.Int).Sub(total, lab.AllocatedAmount.Big()),
			amount,
		)
	}
	claimable, err := getAmount(txn, claimableKey(recipient))
	if err != nil {
		return err
	}
	if claimable, err = checkedAdd(claimable, amount); err != nil {
		return err
	}
	if err := txn.SetValue(claimableKey(recipient), claimable); err != nil {
		return err
	}
	lab.AllocatedAmount = types.NewAmount(allocated)
	if allocated.Cmp(total) == 0 {
		lab.Status = models.LabStatusCompleted
	}
	if err := txn.DB().Metadata().SetLab(lab, txn.Metadata()); err != nil {
		return err
	}
	v.logger.Info(
		"scholarship approved",
		"lab", labID,
		"recipient", recipient,
		"amount", amount,
	)
	v.bus.PublishOnCommit(txn, event.ScholarshipApprovedEventType, event.ScholarshipApprovedEvent{
		LabID:     labID,
		Recipient: string(recipient),
		Amount:    amount,
	})
	return nil
}

// WithdrawScholarship pays out part or all of the caller's claimable
// balance. The caller authorizes itself, no governance step is involved
func (v *Vault) WithdrawScholarship(
	txn *database.Txn,
	caller auth.Address,
	amount *big.Int,
) error {
	if _, err := v.config(txn); err != nil {
		return err
	}
	if err := checkPositive(amount); err != nil {
		return err
	}
	if err := v.guard.Enter(txn); err != nil {
		return err
	}
	claimable, err := getAmount(txn, claimableKey(caller))
	if err != nil {
		return err
	}
	if claimable.Cmp(amount) < 0 {
		return fmt.Errorf(
			"%w: %s may claim %s, requested %s",
			ErrInsufficientClaimable,
			caller,
			claimable,
			amount,
		)
	}
	restricted, err := getAmount(txn, restrictedKey)
	if err != nil {
		return err
	}
	if restricted.Cmp(amount) < 0 {
		return fmt.Errorf("%w: restricted reserve %s", ErrInsufficientAssets, restricted)
	}
	if err := txn.SetValue(claimableKey(caller), claimable.Sub(claimable, amount)); err != nil {
		return err
	}
	if err := txn.SetValue(restrictedKey, restricted.Sub(restricted, amount)); err != nil {
		return err
	}
	if err := v.assets.Transfer(txn, v.address, caller, amount); err != nil {
		return err
	}
	if err := v.guard.Exit(txn); err != nil {
		return err
	}
	v.logger.Info("scholarship withdrawn", "recipient", caller, "amount", amount)
	if v.metrics != nil {
		txn.OnCommit(v.metrics.scholarshipWithdrawals.Inc)
	}
	v.bus.PublishOnCommit(txn, event.ScholarshipWithdrawnEventType, event.ScholarshipWithdrawnEvent{
		Recipient: string(caller),
		Amount:    new(big.Int).Set(amount),
	})
	return nil
}

// CancelLab closes an active lab and refunds the unallocated remainder to
// its funder. Approved scholarships stay claimable. Governor only
func (v *Vault) CancelLab(
	txn *database.Txn,
	caller auth.Address,
	labID uint64,
) (*big.Int, error) {
	cfg, err := v.config(txn)
	if err != nil {
		return nil, err
	}
	if err := auth.Require(caller, auth.Address(cfg.Governor)); err != nil {
		return nil, err
	}
	lab, err := v.lab(txn, labID)
	if err != nil {
		return nil, err
	}
	if lab.Status != models.LabStatusActive {
		return nil, fmt.Errorf("%w: lab %d is %s", ErrLabNotActive, labID, lab.Status)
	}
	if err := v.guard.Enter(txn); err != nil {
		return nil, err
	}
	refund, err := checkedSub(lab.TotalAmount.Big(), lab.AllocatedAmount.Big())
	if err != nil {
		return nil, err
	}
	lab.Status = models.LabStatusCancelled
	if err := txn.DB().Metadata().SetLab(lab, txn.Metadata()); err != nil {
		return nil, err
	}
	if refund.Sign() > 0 {
		restricted, err := getAmount(txn, restrictedKey)
		if err != nil {
			return nil, err
		}
		if restricted, err = checkedSub(restricted, refund); err != nil {
			return nil, err
		}
		if restricted.Sign() < 0 {
			return nil, fmt.Errorf("%w: restricted reserve below lab remainder", ErrInsufficientAssets)
		}
		if err := txn.SetValue(restrictedKey, restricted); err != nil {
			return nil, err
		}
		if err := v.assets.Transfer(txn, v.address, auth.Address(lab.Funder), refund); err != nil {
			return nil, err
		}
	}
	if err := v.guard.Exit(txn); err != nil {
		return nil, err
	}
	v.logger.Info("lab cancelled", "lab", labID, "refund", refund)
	v.bus.PublishOnCommit(txn, event.LabCancelledEventType, event.LabCancelledEvent{
		LabID:  labID,
		Funder: lab.Funder,
		Refund: new(big.Int).Set(refund),
	})
	return refund, nil
}
