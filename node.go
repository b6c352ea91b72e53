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

package karn

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/karn-labs/karn/asset"
	"github.com/karn-labs/karn/auth"
	"github.com/karn-labs/karn/clock"
	"github.com/karn-labs/karn/database"
	"github.com/karn-labs/karn/database/models"
	"github.com/karn-labs/karn/event"
	"github.com/karn-labs/karn/governance"
	"github.com/karn-labs/karn/reputation"
	"github.com/karn-labs/karn/vault"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const defaultShutdownTimeout = 10 * time.Second

// Node is the host of the three components. Every state changing call runs
// as one unit of work, and calls are serialized.
type Node struct {
	config         Config
	db             *database.Database
	eventBus       *event.EventBus
	assets         *asset.KVLedger
	vault          *vault.Vault
	reputation     *reputation.Ledger
	governance     *governance.Engine
	tracerProvider *sdktrace.TracerProvider
	mu             sync.RWMutex
	shutdownOnce   sync.Once
}

func New(cfg Config) (*Node, error) {
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.clock == nil {
		cfg.clock = clock.System{}
	}
	logger := cfg.logger.With("component", "node")
	db, err := database.New(
		database.WithLogger(cfg.logger),
		database.WithDataDir(cfg.dataDir),
		database.WithPromRegistry(cfg.promRegistry),
		database.WithBlobCacheSizes(cfg.blockCacheSize, cfg.indexCacheSize),
	)
	if err != nil {
		var dbErr database.CommitTimestampError
		if !errors.As(err, &dbErr) {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		// A crash between the blob and metadata commits leaves the stores out
		// of step. Nothing here can repair that, so refuse to start
		if db != nil {
			_ = db.Close()
		}
		return nil, fmt.Errorf(
			"database stores are inconsistent, restore %s from a backup: %w",
			cfg.dataDir,
			err,
		)
	}
	n := &Node{
		config:   cfg,
		db:       db,
		eventBus: event.NewEventBus(cfg.promRegistry, cfg.logger),
		assets:   asset.NewKVLedger(),
	}
	n.vault = vault.New(
		vault.WithLogger(cfg.logger),
		vault.WithClock(cfg.clock),
		vault.WithAssetLedger(n.assets),
		vault.WithEventBus(n.eventBus),
		vault.WithPromRegistry(cfg.promRegistry),
	)
	n.reputation = reputation.New(
		reputation.WithLogger(cfg.logger),
		reputation.WithClock(cfg.clock),
		reputation.WithShareIssuer(n.vault),
		reputation.WithEventBus(n.eventBus),
		reputation.WithPromRegistry(cfg.promRegistry),
	)
	n.governance = governance.New(
		governance.WithLogger(cfg.logger),
		governance.WithClock(cfg.clock),
		governance.WithReputation(n.reputation),
		governance.WithTarget(reputation.TargetName, n.reputation),
		governance.WithTarget(vault.TargetName, n.vault),
		governance.WithEventBus(n.eventBus),
		governance.WithPromRegistry(cfg.promRegistry),
	)
	if err := n.setupTracing(); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info(
		"node started",
		"data_dir", cfg.dataDir,
		"targets", n.governance.Dispatcher().Targets(),
	)
	return n, nil
}

// Close stops event delivery and closes the database. It is safe to call
// more than once
func (n *Node) Close() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	timeout := n.config.shutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	logger := n.config.logger.With("component", "node")

	// Phase 1: wait for in-flight units of work
	n.mu.Lock()
	defer n.mu.Unlock()

	// Phase 2: stop event delivery
	var err error
	stopped := make(chan struct{})
	go func() {
		n.eventBus.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		err = errors.Join(err, fmt.Errorf("event bus stop: %w", ctx.Err()))
	}

	// Phase 3: close storage
	if dbErr := n.db.Close(); dbErr != nil {
		err = errors.Join(err, fmt.Errorf("database close: %w", dbErr))
	}

	// Phase 4: flush spans
	if traceErr := n.shutdownTracing(ctx); traceErr != nil {
		err = errors.Join(err, fmt.Errorf("tracer shutdown: %w", traceErr))
	}
	if err != nil {
		logger.Error("shutdown completed with errors", "error", err)
		return err
	}
	logger.Info("node stopped")
	return nil
}

// Update runs fn as one unit of work. Any error rolls back every write made
// by fn, and post-commit hooks such as event delivery only run on success
func (n *Node) Update(fn func(txn *database.Txn) error) error {
	return n.update("update", fn)
}

func (n *Node) update(op string, fn func(txn *database.Txn) error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.traced(op, func() error {
		txn := n.db.Transaction(true)
		return txn.Do(fn)
	})
}

// View runs fn against a read-only snapshot
func (n *Node) View(fn func(txn *database.Txn) error) error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	txn := n.db.Transaction(false)
	defer txn.Release()
	return fn(txn)
}

func (n *Node) Database() *database.Database {
	return n.db
}

func (n *Node) EventBus() *event.EventBus {
	return n.eventBus
}

func (n *Node) Assets() *asset.KVLedger {
	return n.assets
}

func (n *Node) Reputation() *reputation.Ledger {
	return n.reputation
}

func (n *Node) Vault() *vault.Vault {
	return n.vault
}

func (n *Node) Governance() *governance.Engine {
	return n.governance
}

// GenesisParams describe the initial state of a new node
type GenesisParams struct {
	SignerKey  ed25519.PublicKey
	BadgeTypes []reputation.BadgeType
	Founders   []auth.Address
	// Balances are minted on the asset ledger before anything else
	Balances map[auth.Address]*big.Int
	// Governance defaults to governance.DefaultConfig when left empty
	Governance governance.Config
}

// Initialize sets up all components in one unit of work. Founders receive
// their badge, and with it the first vault shares, so the Founder badge
// rarity must reach the vault's minimum initial deposit
func (n *Node) Initialize(params GenesisParams) error {
	if len(params.Founders) == 0 {
		return errors.New("genesis needs at least one founder")
	}
	govConfig := params.Governance
	if govConfig == (governance.Config{}) {
		govConfig = governance.DefaultConfig()
	}
	return n.update("initialize", func(txn *database.Txn) error {
		for account, amount := range params.Balances {
			if err := n.assets.Mint(txn, account, amount); err != nil {
				return fmt.Errorf("genesis balance of %s: %w", account, err)
			}
		}
		if err := n.vault.Initialize(txn, vault.GenesisParams{
			Reputation:        n.reputation.Address(),
			Governor:          n.governance.Address(),
			MinInitialDeposit: n.config.minInitialDeposit,
		}); err != nil {
			return fmt.Errorf("initialize vault: %w", err)
		}
		if err := n.reputation.Initialize(txn, reputation.GenesisParams{
			Governor:   n.governance.Address(),
			Vault:      n.vault.Address(),
			SignerKey:  params.SignerKey,
			BadgeTypes: params.BadgeTypes,
			Founders:   params.Founders,
		}); err != nil {
			return fmt.Errorf("initialize reputation: %w", err)
		}
		if err := n.governance.Initialize(txn, govConfig); err != nil {
			return fmt.Errorf("initialize governance: %w", err)
		}
		return nil
	})
}

// Initialized reports whether genesis has been applied
func (n *Node) Initialized() (bool, error) {
	var ret bool
	err := n.View(func(txn *database.Txn) error {
		var err error
		ret, err = n.governance.Initialized(txn)
		return err
	})
	return ret, err
}

func (n *Node) SelfRegister(caller auth.Address, voucher auth.Voucher) (uint64, error) {
	var tokenID uint64
	err := n.update("self_register", func(txn *database.Txn) error {
		var err error
		tokenID, err = n.reputation.SelfRegister(txn, caller, voucher)
		return err
	})
	return tokenID, err
}

func (n *Node) Mint(caller, account auth.Address, badgeID uint64) (uint64, error) {
	var tokenID uint64
	err := n.update("mint", func(txn *database.Txn) error {
		var err error
		tokenID, err = n.reputation.Mint(txn, caller, account, badgeID)
		return err
	})
	return tokenID, err
}

func (n *Node) GuardianMint(voucher auth.Voucher) (uint64, error) {
	var tokenID uint64
	err := n.update("guardian_mint", func(txn *database.Txn) error {
		var err error
		tokenID, err = n.reputation.GuardianMint(txn, voucher)
		return err
	})
	return tokenID, err
}

func (n *Node) Revoke(caller auth.Address, tokenID uint64) error {
	return n.update("revoke", func(txn *database.Txn) error {
		return n.reputation.Revoke(txn, caller, tokenID)
	})
}

func (n *Node) Propose(
	proposer auth.Address,
	description string,
	actions []governance.Action,
) (uint64, error) {
	var proposalID uint64
	err := n.update("propose", func(txn *database.Txn) error {
		var err error
		proposalID, err = n.governance.Propose(txn, proposer, description, actions)
		return err
	})
	return proposalID, err
}

// CastVote returns the weight the vote was counted with
func (n *Node) CastVote(voter auth.Address, proposalID uint64, support bool) (uint64, error) {
	var weight uint64
	err := n.update("cast_vote", func(txn *database.Txn) error {
		var err error
		weight, err = n.governance.CastVote(txn, voter, proposalID, support)
		return err
	})
	return weight, err
}

func (n *Node) Execute(proposalID uint64) error {
	return n.update("execute", func(txn *database.Txn) error {
		return n.governance.Execute(txn, proposalID)
	})
}

func (n *Node) FundLab(funder auth.Address, total, perRecipient *big.Int) (uint64, error) {
	var labID uint64
	err := n.update("fund_lab", func(txn *database.Txn) error {
		var err error
		labID, err = n.vault.FundLab(txn, funder, total, perRecipient)
		return err
	})
	return labID, err
}

func (n *Node) WithdrawScholarship(caller auth.Address, amount *big.Int) error {
	return n.update("withdraw_scholarship", func(txn *database.Txn) error {
		return n.vault.WithdrawScholarship(txn, caller, amount)
	})
}

// Power returns the voting power of account at t
func (n *Node) Power(account auth.Address, t uint64) (uint64, error) {
	var power uint64
	err := n.View(func(txn *database.Txn) error {
		var err error
		power, err = n.reputation.PowerAt(txn, account, t)
		return err
	})
	return power, err
}

func (n *Node) Member(account auth.Address) (*reputation.Member, error) {
	var ret *reputation.Member
	err := n.View(func(txn *database.Txn) error {
		var err error
		ret, err = n.reputation.Member(txn, account)
		return err
	})
	return ret, err
}

// ProposalStatus is a proposal together with its resolved state
type ProposalStatus struct {
	Proposal models.Proposal
	State    governance.State
}

func (n *Node) Proposal(proposalID uint64) (*ProposalStatus, error) {
	var ret *ProposalStatus
	err := n.View(func(txn *database.Txn) error {
		p, err := n.governance.Proposal(txn, proposalID)
		if err != nil {
			return err
		}
		state, err := n.governance.State(txn, proposalID)
		if err != nil {
			return err
		}
		ret = &ProposalStatus{Proposal: *p, State: state}
		return nil
	})
	return ret, err
}

func (n *Node) Proposals() ([]ProposalStatus, error) {
	var ret []ProposalStatus
	err := n.View(func(txn *database.Txn) error {
		cfg, err := n.governance.Config(txn)
		if err != nil {
			return err
		}
		proposals, err := n.governance.Proposals(txn)
		if err != nil {
			return err
		}
		now := n.config.clock.Now()
		for i := range proposals {
			ret = append(ret, ProposalStatus{
				Proposal: proposals[i],
				State:    governance.Resolve(&proposals[i], cfg, now),
			})
		}
		return nil
	})
	return ret, err
}

// VaultStatus summarizes the vault books
type VaultStatus struct {
	Balance           *big.Int
	TotalAssets       *big.Int
	TotalShares       *big.Int
	RestrictedReserve *big.Int
	Labs              []models.Lab
}

func (n *Node) VaultStatus() (*VaultStatus, error) {
	ret := &VaultStatus{}
	err := n.View(func(txn *database.Txn) error {
		var err error
		if ret.Balance, err = n.vault.Balance(txn); err != nil {
			return err
		}
		if ret.TotalAssets, err = n.vault.TotalAssets(txn); err != nil {
			return err
		}
		if ret.TotalShares, err = n.vault.TotalShares(txn); err != nil {
			return err
		}
		if ret.RestrictedReserve, err = n.vault.RestrictedReserve(txn); err != nil {
			return err
		}
		ret.Labs, err = n.vault.Labs(txn)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// AccountStatus is what one account holds across the vault and asset ledger
type AccountStatus struct {
	Shares    *big.Int
	Value     *big.Int
	Claimable *big.Int
	Balance   *big.Int
}

func (n *Node) Account(account auth.Address) (*AccountStatus, error) {
	ret := &AccountStatus{}
	err := n.View(func(txn *database.Txn) error {
		var err error
		if ret.Shares, err = n.vault.SharesOf(txn, account); err != nil {
			return err
		}
		if ret.Value, err = n.vault.ConvertToAssets(txn, ret.Shares); err != nil {
			return err
		}
		if ret.Claimable, err = n.vault.ClaimableOf(txn, account); err != nil {
			return err
		}
		ret.Balance, err = n.assets.Balance(txn, account)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// Now returns the ledger clock reading
func (n *Node) Now() uint64 {
	return n.config.clock.Now()
}
