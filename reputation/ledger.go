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

// Package reputation implements the reputation ledger: badge grants,
// decaying voting power and historical power snapshots.
package reputation

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"

	"github.com/karn-labs/karn/auth"
	"github.com/karn-labs/karn/clock"
	"github.com/karn-labs/karn/database"
	"github.com/karn-labs/karn/database/types"
	"github.com/karn-labs/karn/event"
	"github.com/karn-labs/karn/internal/reentrancy"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultAddress is the principal the ledger acts as when calling the vault
const DefaultAddress auth.Address = "karn:reputation"

// ShareIssuer receives the vault share deposit made for every mint
type ShareIssuer interface {
	Deposit(
		txn *database.Txn,
		caller auth.Address,
		receiver auth.Address,
		shares *big.Int,
	) error
}

type Ledger struct {
	logger  *slog.Logger
	clock   clock.Clock
	vault   ShareIssuer
	bus     *event.EventBus
	guard   *reentrancy.Guard
	metrics *ledgerMetrics
	address auth.Address
}

type LedgerOptionFunc func(*Ledger)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) LedgerOptionFunc {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// WithClock specifies the ledger clock
func WithClock(c clock.Clock) LedgerOptionFunc {
	return func(l *Ledger) {
		l.clock = c
	}
}

// WithShareIssuer specifies the vault that receives mint deposits
func WithShareIssuer(vault ShareIssuer) LedgerOptionFunc {
	return func(l *Ledger) {
		l.vault = vault
	}
}

// WithEventBus specifies the bus that committed changes are published on
func WithEventBus(bus *event.EventBus) LedgerOptionFunc {
	return func(l *Ledger) {
		l.bus = bus
	}
}

// WithPromRegistry specifies the prometheus registry to use for metrics
func WithPromRegistry(registry prometheus.Registerer) LedgerOptionFunc {
	return func(l *Ledger) {
		if registry != nil {
			l.metrics = newLedgerMetrics(registry)
		}
	}
}

// WithAddress specifies the principal of the ledger itself
func WithAddress(address auth.Address) LedgerOptionFunc {
	return func(l *Ledger) {
		l.address = address
	}
}

func New(opts ...LedgerOptionFunc) *Ledger {
	l := &Ledger{
		clock:   clock.System{},
		address: DefaultAddress,
		guard:   reentrancy.New(types.ReputationKeyScope),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	l.logger = l.logger.With("component", "reputation")
	return l
}

// Address returns the principal of the ledger itself
func (l *Ledger) Address() auth.Address {
	return l.address
}

// GenesisParams configure a new ledger
type GenesisParams struct {
	Governor   auth.Address
	Vault      auth.Address
	SignerKey  ed25519.PublicKey
	BadgeTypes []BadgeType
	// Founders receive the Founder badge, the only grant that also raises
	// the permanent level
	Founders []auth.Address
}

// Initialize stores the ledger configuration, registers the initial badge
// types and mints the Founder badge to every founder
func (l *Ledger) Initialize(txn *database.Txn, params GenesisParams) error {
	if _, err := l.config(txn); err == nil {
		return ErrAlreadyInitialized
	} else if !errors.Is(err, ErrNotInitialized) {
		return err
	}
	if params.Governor == "" {
		return fmt.Errorf("%w: no governor", ErrNotInitialized)
	}
	if len(params.SignerKey) != ed25519.PublicKeySize {
		return fmt.Errorf(
			"signer key must be %d bytes, got %d",
			ed25519.PublicKeySize,
			len(params.SignerKey),
		)
	}
	cfg := &ledgerConfig{
		Governor: string(params.Governor),
		Vault:    string(params.Vault),
		Signer:   params.SignerKey,
	}
	if err := l.setConfig(txn, cfg); err != nil {
		return err
	}
	if err := l.setTotalSupply(txn, 0); err != nil {
		return err
	}
	for _, bt := range params.BadgeTypes {
		category, err := CategoryOf(bt.ID)
		if err != nil {
			return err
		}
		bt.Category = category
		if err := l.setBadgeType(txn, &bt); err != nil {
			return err
		}
	}
	for _, founder := range params.Founders {
		if _, err := l.mintInternal(txn, cfg, founder, FounderBadgeID, true); err != nil {
			return fmt.Errorf("mint founder badge to %s: %w", founder, err)
		}
	}
	l.logger.Info(
		"reputation ledger initialized",
		"governor", params.Governor,
		"badge_types", len(params.BadgeTypes),
		"founders", len(params.Founders),
	)
	return nil
}

// SetBadgeType creates or updates a badge type. Governor only
func (l *Ledger) SetBadgeType(
	txn *database.Txn,
	caller auth.Address,
	badgeID uint64,
	rarity uint64,
	metadata string,
) error {
	cfg, err := l.config(txn)
	if err != nil {
		return err
	}
	if err := auth.Require(caller, auth.Address(cfg.Governor)); err != nil {
		return err
	}
	category, err := CategoryOf(badgeID)
	if err != nil {
		return err
	}
	return l.setBadgeType(txn, &BadgeType{
		ID:       badgeID,
		Rarity:   rarity,
		Metadata: metadata,
		Category: category,
	})
}

// Mint grants a badge on behalf of caller. Who may mint depends on the
// badge category: Leadership and Governance badges need the governor,
// Track badges the governor or a member at the leadership threshold,
// Community badges any member. Member and Founder badges cannot be minted
// here.
func (l *Ledger) Mint(
	txn *database.Txn,
	caller auth.Address,
	account auth.Address,
	badgeID uint64,
) (uint64, error) {
	cfg, err := l.config(txn)
	if err != nil {
		return 0, err
	}
	category, err := CategoryOf(badgeID)
	if err != nil {
		return 0, err
	}
	isGovernor := auth.Require(caller, auth.Address(cfg.Governor)) == nil
	switch category {
	case CategoryMember, CategoryFounder:
		return 0, fmt.Errorf("%w: %s badge %d", ErrBadgeNotMintable, category, badgeID)
	case CategoryLeadership, CategoryGovernance:
		if !isGovernor {
			return 0, fmt.Errorf("%w: %s badges are minted by governance", ErrMintNotAuthorized, category)
		}
	case CategoryTrack:
		if !isGovernor {
			level, err := l.LevelOf(txn, caller)
			if err != nil {
				return 0, err
			}
			if level < LeadershipThreshold {
				return 0, fmt.Errorf(
					"%w: caller level %d below leadership threshold %d",
					ErrMintNotAuthorized,
					level,
					LeadershipThreshold,
				)
			}
		}
	case CategoryCommunity:
		if !isGovernor {
			level, err := l.LevelOf(txn, caller)
			if err != nil {
				return 0, err
			}
			if level == 0 {
				return 0, fmt.Errorf("%w: caller is not a member", ErrMintNotAuthorized)
			}
		}
	}
	return l.mintInternal(txn, cfg, account, badgeID, false)
}

// SelfRegister mints the Member badge to caller, authorized by a
// registration voucher issued for caller
func (l *Ledger) SelfRegister(
	txn *database.Txn,
	caller auth.Address,
	voucher auth.Voucher,
) (uint64, error) {
	cfg, err := l.config(txn)
	if err != nil {
		return 0, err
	}
	if err := auth.Require(caller, voucher.Account); err != nil {
		return 0, err
	}
	if err := l.consumeVoucher(txn, cfg, &voucher, auth.PurposeRegister); err != nil {
		return 0, err
	}
	m, err := l.member(txn, caller)
	if err != nil {
		return 0, err
	}
	if m != nil {
		return 0, fmt.Errorf("%w: %s", ErrAlreadyRegistered, caller)
	}
	return l.mintInternal(txn, cfg, caller, MemberBadgeID, false)
}

// GuardianMint mints a Track or Community badge authorized by a mint
// voucher. The voucher binds account and badge
func (l *Ledger) GuardianMint(
	txn *database.Txn,
	voucher auth.Voucher,
) (uint64, error) {
	cfg, err := l.config(txn)
	if err != nil {
		return 0, err
	}
	category, err := CategoryOf(voucher.BadgeID)
	if err != nil {
		return 0, err
	}
	switch category {
	case CategoryTrack, CategoryCommunity:
	case CategoryMember, CategoryFounder:
		return 0, fmt.Errorf("%w: %s badge %d", ErrBadgeNotMintable, category, voucher.BadgeID)
	default:
		return 0, fmt.Errorf("%w: %s badges are minted by governance", ErrMintNotAuthorized, category)
	}
	if err := l.consumeVoucher(txn, cfg, &voucher, auth.PurposeMint); err != nil {
		return 0, err
	}
	return l.mintInternal(txn, cfg, voucher.Account, voucher.BadgeID, false)
}

func (l *Ledger) mintInternal(
	txn *database.Txn,
	cfg *ledgerConfig,
	account auth.Address,
	badgeID uint64,
	permanent bool,
) (uint64, error) {
	if account == "" {
		return 0, fmt.Errorf("%w: empty account", ErrNotMember)
	}
	bt, err := l.badgeType(txn, badgeID)
	if err != nil {
		return 0, err
	}
	m, err := l.member(txn, account)
	if err != nil {
		return 0, err
	}
	if m == nil {
		m = &Member{}
	}
	if m.Level, err = checkedAdd(m.Level, bt.Rarity); err != nil {
		return 0, err
	}
	if permanent {
		if m.PermanentLevel, err = checkedAdd(m.PermanentLevel, bt.Rarity); err != nil {
			return 0, err
		}
	}
	if m.Expiry, err = checkedAdd(l.clock.Now(), DecayWindow); err != nil {
		return 0, err
	}
	if err := l.setMember(txn, account, m); err != nil {
		return 0, err
	}
	supply, err := l.totalSupply(txn)
	if err != nil {
		return 0, err
	}
	tokenID := supply + 1
	if err := l.setTotalSupply(txn, tokenID); err != nil {
		return 0, err
	}
	token := &Token{ID: tokenID, BadgeID: badgeID, Owner: string(account)}
	if err := txn.SetValue(
		types.IDKey(types.ReputationKeyScope, keyTagToken, tokenID),
		token,
	); err != nil {
		return 0, err
	}
	if err := l.depositShares(txn, cfg, account, bt.Rarity); err != nil {
		return 0, err
	}
	l.logger.Debug(
		"badge minted",
		"account", account,
		"badge", badgeID,
		"token", tokenID,
		"level", m.Level,
	)
	if l.metrics != nil {
		txn.OnCommit(func() {
			l.metrics.badgesMinted.WithLabelValues(bt.Category.String()).Inc()
		})
	}
	l.bus.PublishOnCommit(txn, event.BadgeMintedEventType, event.BadgeMintedEvent{
		Account: string(account),
		TokenID: tokenID,
		BadgeID: badgeID,
		Rarity:  bt.Rarity,
	})
	return tokenID, nil
}

// depositShares credits vault shares equal to the badge rarity. Nothing is
// deposited while no vault is configured
func (l *Ledger) depositShares(
	txn *database.Txn,
	cfg *ledgerConfig,
	account auth.Address,
	rarity uint64,
) error {
	if cfg.Vault == "" || l.vault == nil || rarity == 0 {
		return nil
	}
	if err := l.guard.Enter(txn); err != nil {
		return err
	}
	shares := new(big.Int).SetUint64(rarity)
	if err := l.vault.Deposit(txn, l.address, account, shares); err != nil {
		return fmt.Errorf("deposit shares: %w", err)
	}
	return l.guard.Exit(txn)
}

// Revoke burns a token and removes its rarity from the owner's level and
// permanent level. Governor only
func (l *Ledger) Revoke(
	txn *database.Txn,
	caller auth.Address,
	tokenID uint64,
) error {
	cfg, err := l.config(txn)
	if err != nil {
		return err
	}
	if err := auth.Require(caller, auth.Address(cfg.Governor)); err != nil {
		return err
	}
	token, err := l.token(txn, tokenID)
	if err != nil {
		return err
	}
	bt, err := l.badgeType(txn, token.BadgeID)
	if err != nil {
		return err
	}
	owner := auth.Address(token.Owner)
	m, err := l.member(txn, owner)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("%w: %s", ErrNotMember, owner)
	}
	m.Level = saturatingSub(m.Level, bt.Rarity)
	m.PermanentLevel = saturatingSub(m.PermanentLevel, bt.Rarity)
	if err := l.setMember(txn, owner, m); err != nil {
		return err
	}
	if err := txn.DeleteKey(
		types.IDKey(types.ReputationKeyScope, keyTagToken, tokenID),
	); err != nil {
		return err
	}
	l.logger.Info(
		"badge revoked",
		"account", owner,
		"badge", token.BadgeID,
		"token", tokenID,
		"level", m.Level,
	)
	if l.metrics != nil {
		txn.OnCommit(func() {
			l.metrics.badgesRevoked.WithLabelValues(bt.Category.String()).Inc()
		})
	}
	l.bus.PublishOnCommit(txn, event.BadgeRevokedEventType, event.BadgeRevokedEvent{
		Account: token.Owner,
		TokenID: tokenID,
		BadgeID: token.BadgeID,
	})
	return nil
}

// SetVerified flags a member as verified. Governor only
func (l *Ledger) SetVerified(
	txn *database.Txn,
	caller auth.Address,
	account auth.Address,
	verified bool,
) error {
	cfg, err := l.config(txn)
	if err != nil {
		return err
	}
	if err := auth.Require(caller, auth.Address(cfg.Governor)); err != nil {
		return err
	}
	m, err := l.member(txn, account)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("%w: %s", ErrNotMember, account)
	}
	m.Verified = verified
	if err := l.setMember(txn, account, m); err != nil {
		return err
	}
	l.bus.PublishOnCommit(txn, event.MemberVerifiedEventType, event.MemberVerifiedEvent{
		Account:  string(account),
		Verified: verified,
	})
	return nil
}

// UpdateGovernor hands governance authority to a new principal. Governor only
func (l *Ledger) UpdateGovernor(
	txn *database.Txn,
	caller auth.Address,
	governor auth.Address,
) error {
	cfg, err := l.config(txn)
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
	l.logger.Info("governor updated", "governor", governor)
	return l.setConfig(txn, cfg)
}

// UpdateVault changes the vault that mint deposits go to. An empty address
// stops deposits. Governor only
func (l *Ledger) UpdateVault(
	txn *database.Txn,
	caller auth.Address,
	vault auth.Address,
) error {
	cfg, err := l.config(txn)
	if err != nil {
		return err
	}
	if err := auth.Require(caller, auth.Address(cfg.Governor)); err != nil {
		return err
	}
	cfg.Vault = string(vault)
	l.logger.Info("vault updated", "vault", vault)
	return l.setConfig(txn, cfg)
}
