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

// Package vault keeps the share bookkeeping of the treasury and the escrow
// accounts ("labs") funded into it. The underlying asset is held by the
// vault address on an asset.Ledger; shares are proportional claims only
// and are never redeemable without governance.
package vault

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"

	"github.com/karn-labs/karn/asset"
	"github.com/karn-labs/karn/auth"
	"github.com/karn-labs/karn/clock"
	"github.com/karn-labs/karn/database"
	"github.com/karn-labs/karn/database/types"
	"github.com/karn-labs/karn/event"
	"github.com/karn-labs/karn/internal/reentrancy"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultAddress is the account the vault holds assets under
const DefaultAddress auth.Address = "karn:vault"

type Vault struct {
	logger  *slog.Logger
	clock   clock.Clock
	assets  asset.Ledger
	bus     *event.EventBus
	guard   *reentrancy.Guard
	metrics *vaultMetrics
	address auth.Address
}

type VaultOptionFunc func(*Vault)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) VaultOptionFunc {
	return func(v *Vault) {
		v.logger = logger
	}
}

// WithClock specifies the clock used to timestamp labs
func WithClock(c clock.Clock) VaultOptionFunc {
	return func(v *Vault) {
		v.clock = c
	}
}

// WithAssetLedger specifies the ledger holding the vault's assets
func WithAssetLedger(assets asset.Ledger) VaultOptionFunc {
	return func(v *Vault) {
		v.assets = assets
	}
}

// WithEventBus specifies the bus that committed changes are published on
func WithEventBus(bus *event.EventBus) VaultOptionFunc {
	return func(v *Vault) {
		v.bus = bus
	}
}

// WithPromRegistry specifies the prometheus registry to use for metrics
func WithPromRegistry(registry prometheus.Registerer) VaultOptionFunc {
	return func(v *Vault) {
		if registry != nil {
			v.metrics = newVaultMetrics(registry)
		}
	}
}

// WithAddress specifies the account the vault holds assets under
func WithAddress(address auth.Address) VaultOptionFunc {
	return func(v *Vault) {
		v.address = address
	}
}

func New(opts ...VaultOptionFunc) *Vault {
	v := &Vault{
		clock:   clock.System{},
		address: DefaultAddress,
		guard:   reentrancy.New(types.VaultKeyScope),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if v.assets == nil {
		v.assets = asset.NewKVLedger()
	}
	v.logger = v.logger.With("component", "vault")
	return v
}

// Address returns the account the vault holds assets under
func (v *Vault) Address() auth.Address {
	return v.address
}

// GenesisParams configure a new vault
type GenesisParams struct {
	// Reputation is the only principal allowed to deposit shares
	Reputation auth.Address
	Governor   auth.Address
	// MinInitialDeposit defaults to DefaultMinInitialDeposit when nil
	MinInitialDeposit *big.Int
}

func (v *Vault) Initialize(txn *database.Txn, params GenesisParams) error {
	if _, err := v.config(txn); err == nil {
		return ErrAlreadyInitialized
	} else if !errors.Is(err, ErrNotInitialized) {
		return err
	}
	if params.Reputation == "" || params.Governor == "" {
		return fmt.Errorf("%w: reputation and governor addresses are required", ErrNotInitialized)
	}
	minDeposit := params.MinInitialDeposit
	if minDeposit == nil {
		minDeposit = big.NewInt(DefaultMinInitialDeposit)
	}
	if minDeposit.Sign() < 0 {
		return fmt.Errorf("%w: negative minimum deposit", ErrZeroAmount)
	}
	if err := checkRange(minDeposit); err != nil {
		return err
	}
	if err := v.setConfig(txn, &vaultConfig{
		Reputation:        string(params.Reputation),
		Governor:          string(params.Governor),
		MinInitialDeposit: minDeposit,
	}); err != nil {
		return err
	}
	if err := txn.SetValue(totalSharesKey, new(big.Int)); err != nil {
		return err
	}
	v.logger.Info(
		"vault initialized",
		"reputation", params.Reputation,
		"governor", params.Governor,
		"min_initial_deposit", minDeposit,
	)
	return nil
}

// Deposit credits shares to receiver. Only the reputation ledger may
// deposit, and the first deposit into an empty vault must reach the
// configured minimum
func (v *Vault) Deposit(
	txn *database.Txn,
	caller auth.Address,
	receiver auth.Address,
	shares *big.Int,
) error {
	cfg, err := v.config(txn)
	if err != nil {
		return err
	}
	if err := auth.Require(caller, auth.Address(cfg.Reputation)); err != nil {
		return err
	}
	if err := checkPositive(shares); err != nil {
		return err
	}
	total, err := getAmount(txn, totalSharesKey)
	if err != nil {
		return err
	}
	if total.Sign() == 0 && shares.Cmp(cfg.MinInitialDeposit) < 0 {
		return fmt.Errorf(
			"%w: %s < %s",
			ErrBelowMinimumDeposit,
			shares,
			cfg.MinInitialDeposit,
		)
	}
	balance, err := getAmount(txn, sharesKey(receiver))
	if err != nil {
		return err
	}
	if balance, err = checkedAdd(balance, shares); err != nil {
		return err
	}
	if total, err = checkedAdd(total, shares); err != nil {
		return err
	}
	if err := txn.SetValue(sharesKey(receiver), balance); err != nil {
		return err
	}
	if err := txn.SetValue(totalSharesKey, total); err != nil {
		return err
	}
	v.logger.Debug("shares deposited", "receiver", receiver, "shares", shares)
	if v.metrics != nil {
		txn.OnCommit(v.metrics.deposits.Inc)
	}
	v.bus.PublishOnCommit(txn, event.VaultDepositEventType, event.VaultDepositEvent{
		Receiver: string(receiver),
		Shares:   new(big.Int).Set(shares),
	})
	return nil
}

// Transfer moves spendable assets out of the vault. Governor only, so it
// only happens as the effect of an executed proposal
func (v *Vault) Transfer(
	txn *database.Txn,
	caller auth.Address,
	receiver auth.Address,
	amount *big.Int,
) error {
	cfg, err := v.config(txn)
	if err != nil {
		return err
	}
	if err := auth.Require(caller, auth.Address(cfg.Governor)); err != nil {
		return err
	}
	if err := checkPositive(amount); err != nil {
		return err
	}
	if err := v.guard.Enter(txn); err != nil {
		return err
	}
	spendable, err := v.TotalAssets(txn)
	if err != nil {
		return err
	}
	if spendable.Cmp(amount) < 0 {
		return fmt.Errorf(
			"%w: spendable %s, requested %s",
			ErrInsufficientAssets,
			spendable,
			amount,
		)
	}
	if err := v.assets.Transfer(txn, v.address, receiver, amount); err != nil {
		return err
	}
	if err := v.guard.Exit(txn); err != nil {
		return err
	}
	v.logger.Info("treasury transfer", "receiver", receiver, "amount", amount)
	if v.metrics != nil {
		txn.OnCommit(v.metrics.transfers.Inc)
	}
	v.bus.PublishOnCommit(txn, event.VaultTransferEventType, event.VaultTransferEvent{
		Receiver: string(receiver),
		Amount:   new(big.Int).Set(amount),
	})
	return nil
}

// Withdraw burns shares of owner and pays their asset value to receiver.
// Governor only: shares cannot be redeemed by their holder directly
func (v *Vault) Withdraw(
	txn *database.Txn,
	caller auth.Address,
	owner auth.Address,
	receiver auth.Address,
	shares *big.Int,
) (*big.Int, error) {
	cfg, err := v.config(txn)
	if err != nil {
		return nil, err
	}
	if err := auth.Require(caller, auth.Address(cfg.Governor)); err != nil {
		return nil, err
	}
	if err := checkPositive(shares); err != nil {
		return nil, err
	}
	if err := v.guard.Enter(txn); err != nil {
		return nil, err
	}
	balance, err := getAmount(txn, sharesKey(owner))
	if err != nil {
		return nil, err
	}
	if balance.Cmp(shares) < 0 {
		return nil, fmt.Errorf(
			"%w: %s holds %s, requested %s",
			ErrInsufficientShares,
			owner,
			balance,
			shares,
		)
	}
	assets, err := v.PreviewWithdraw(txn, shares)
	if err != nil {
		return nil, err
	}
	if assets.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s shares are worth nothing", ErrInsufficientAssets, shares)
	}
	total, err := getAmount(txn, totalSharesKey)
	if err != nil {
		return nil, err
	}
	if balance, err = checkedSub(balance, shares); err != nil {
		return nil, err
	}
	if total, err = checkedSub(total, shares); err != nil {
		return nil, err
	}
	if err := txn.SetValue(sharesKey(owner), balance); err != nil {
		return nil, err
	}
	if err := txn.SetValue(totalSharesKey, total); err != nil {
		return nil, err
	}
	if err := v.assets.Transfer(txn, v.address, receiver, assets); err != nil {
		return nil, err
	}
	if err := v.guard.Exit(txn); err != nil {
		return nil, err
	}
	v.logger.Info(
		"shares withdrawn",
		"owner", owner,
		"receiver", receiver,
		"shares", shares,
		"assets", assets,
	)
	if v.metrics != nil {
		txn.OnCommit(v.metrics.withdrawals.Inc)
	}
	v.bus.PublishOnCommit(txn, event.VaultWithdrawEventType, event.VaultWithdrawEvent{
		Owner:    string(owner),
		Receiver: string(receiver),
		Shares:   new(big.Int).Set(shares),
		Assets:   new(big.Int).Set(assets),
	})
	return assets, nil
}

// UpdateGovernor hands the governor role to a new principal. Governor only
func (v *Vault) UpdateGovernor(
	txn *database.Txn,
	caller auth.Address,
	governor auth.Address,
) error {
	cfg, err := v.config(txn)
	if err != nil {
		return err
	}
	if err := auth.Require(caller, auth.Address(cfg.Governor)); err != nil {
		return err
	}
	if governor == "" {
		return fmt.Errorf("%w: empty governor", auth.ErrNotAuthorized)
	}
	cfg.Governor = string(governor)
	v.logger.Info("governor updated", "governor", governor)
	return v.setConfig(txn, cfg)
}
