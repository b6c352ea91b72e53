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

// Package governance implements the proposal engine: reputation weighted
// proposals with snapshot voting, dual threshold resolution and atomic
// execution of the proposal's actions.
package governance

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/karn-labs/karn/auth"
	"github.com/karn-labs/karn/clock"
	"github.com/karn-labs/karn/database"
	"github.com/karn-labs/karn/database/models"
	"github.com/karn-labs/karn/database/types"
	"github.com/karn-labs/karn/event"
	"github.com/karn-labs/karn/internal/reentrancy"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultAddress is the principal executed actions are authorized as
const DefaultAddress auth.Address = "karn:governor"

// ReputationSource provides the voting power proposals are weighted by
type ReputationSource interface {
	LevelOf(txn *database.Txn, account auth.Address) (uint64, error)
	PowerNow(txn *database.Txn, account auth.Address) (uint64, error)
	Snapshot(txn *database.Txn) (uint64, error)
	PowerAtSnapshot(txn *database.Txn, account auth.Address, t uint64, snapshot uint64) (uint64, error)
	TotalReputationLowerBound(txn *database.Txn) (uint64, error)
}

type Engine struct {
	logger     *slog.Logger
	clock      clock.Clock
	reputation ReputationSource
	targets    *Dispatcher
	bus        *event.EventBus
	guard      *reentrancy.Guard
	metrics    *engineMetrics
	address    auth.Address
}

type EngineOptionFunc func(*Engine)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) EngineOptionFunc {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock specifies the clock proposals are timed with
func WithClock(c clock.Clock) EngineOptionFunc {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithReputation specifies the source of voting power
func WithReputation(source ReputationSource) EngineOptionFunc {
	return func(e *Engine) {
		e.reputation = source
	}
}

// WithTarget registers a target proposal actions can address
func WithTarget(name string, target Target) EngineOptionFunc {
	return func(e *Engine) {
		e.targets.Register(name, target)
	}
}

// WithEventBus specifies the bus that committed changes are published on
func WithEventBus(bus *event.EventBus) EngineOptionFunc {
	return func(e *Engine) {
		e.bus = bus
	}
}

// WithPromRegistry specifies the prometheus registry to use for metrics
func WithPromRegistry(registry prometheus.Registerer) EngineOptionFunc {
	return func(e *Engine) {
		if registry != nil {
			e.metrics = newEngineMetrics(registry)
		}
	}
}

// WithAddress specifies the principal of the engine itself
func WithAddress(address auth.Address) EngineOptionFunc {
	return func(e *Engine) {
		e.address = address
	}
}

func New(opts ...EngineOptionFunc) *Engine {
	e := &Engine{
		clock:   clock.System{},
		address: DefaultAddress,
		targets: NewDispatcher(),
		guard:   reentrancy.New(types.GovernorKeyScope),
	}
	// The engine is always addressable, config changes go through it
	e.targets.Register(TargetName, e)
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	e.logger = e.logger.With("component", "governance")
	return e
}

// Address returns the principal executed actions are authorized as
func (e *Engine) Address() auth.Address {
	return e.address
}

// Dispatcher returns the action dispatcher, for registering targets
func (e *Engine) Dispatcher() *Dispatcher {
	return e.targets
}

func (e *Engine) Initialize(txn *database.Txn, cfg Config) error {
	if _, err := e.config(txn); err == nil {
		return ErrAlreadyInitialized
	} else if !errors.Is(err, ErrNotInitialized) {
		return err
	}
	if e.reputation == nil {
		return fmt.Errorf("%w: no reputation source", ErrNotInitialized)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := e.setConfig(txn, &cfg); err != nil {
		return err
	}
	if err := txn.SetValue(proposalCountKey, uint64(0)); err != nil {
		return err
	}
	e.logger.Info(
		"governor initialized",
		"voting_delay", cfg.VotingDelay,
		"voting_period", cfg.VotingPeriod,
		"proposal_threshold", cfg.ProposalThreshold,
	)
	return nil
}

// UpdateConfig replaces the voting policy. Only the engine itself may call
// it, which means only an executed proposal can
func (e *Engine) UpdateConfig(
	txn *database.Txn,
	caller auth.Address,
	cfg Config,
) error {
	if _, err := e.config(txn); err != nil {
		return err
	}
	if err := auth.Require(caller, e.address); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.logger.Info(
		"governance config updated",
		"voting_delay", cfg.VotingDelay,
		"voting_period", cfg.VotingPeriod,
		"proposal_threshold", cfg.ProposalThreshold,
		"approval_percentage", cfg.ApprovalPercentage,
		"participation_percentage", cfg.ParticipationPercentage,
	)
	return e.setConfig(txn, &cfg)
}

// Propose creates a proposal. The proposer must be a member whose current
// power reaches the proposal threshold. Voting opens after the voting
// delay, and votes are weighted by power at the creation time
func (e *Engine) Propose(
	txn *database.Txn,
	proposer auth.Address,
	description string,
	actions []Action,
) (uint64, error) {
	cfg, err := e.config(txn)
	if err != nil {
		return 0, err
	}
	if err := e.targets.Validate(actions); err != nil {
		return 0, err
	}
	if err := e.guard.Enter(txn); err != nil {
		return 0, err
	}
	level, err := e.reputation.LevelOf(txn, proposer)
	if err != nil {
		return 0, err
	}
	if level == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNotMember, proposer)
	}
	power, err := e.reputation.PowerNow(txn, proposer)
	if err != nil {
		return 0, err
	}
	if power < cfg.ProposalThreshold {
		return 0, fmt.Errorf(
			"%w: %d < %d",
			ErrBelowProposalThreshold,
			power,
			cfg.ProposalThreshold,
		)
	}
	totalReputation, err := e.reputation.TotalReputationLowerBound(txn)
	if err != nil {
		return 0, err
	}
	snapshot, err := e.reputation.Snapshot(txn)
	if err != nil {
		return 0, err
	}
	proposalID, err := e.nextProposalID(txn)
	if err != nil {
		return 0, err
	}
	now := e.clock.Now()
	if now > ^uint64(0)-cfg.VotingDelay-cfg.VotingPeriod {
		return 0, fmt.Errorf("%w: voting window overflows", ErrInvalidConfig)
	}
	proposal := &models.Proposal{
		ID:                        proposalID,
		Proposer:                  string(proposer),
		Description:               description,
		Actions:                   actions,
		CreationTime:              now,
		StartTime:                 now + cfg.VotingDelay,
		EndTime:                   now + cfg.VotingDelay + cfg.VotingPeriod,
		TotalReputationAtCreation: types.Uint64(totalReputation),
		ReputationSnapshot:        types.Uint64(snapshot),
	}
	if err := txn.DB().Metadata().SetProposal(proposal, txn.Metadata()); err != nil {
		return 0, err
	}
	if err := e.guard.Exit(txn); err != nil {
		return 0, err
	}
	e.logger.Info(
		"proposal created",
		"proposal", proposalID,
		"proposer", proposer,
		"actions", len(actions),
		"start", proposal.StartTime,
		"end", proposal.EndTime,
	)
	if e.metrics != nil {
		txn.OnCommit(e.metrics.proposalsCreated.Inc)
	}
	e.bus.PublishOnCommit(txn, event.ProposalCreatedEventType, event.ProposalCreatedEvent{
		ProposalID: proposalID,
		Proposer:   string(proposer),
		StartTime:  proposal.StartTime,
		EndTime:    proposal.EndTime,
	})
	return proposalID, nil
}

// CastVote records the vote of voter, weighted by the voter's power at
// the proposal's creation time. Power acquired later never counts, even
// within the same second as creation
func (e *Engine) CastVote(
	txn *database.Txn,
	voter auth.Address,
	proposalID uint64,
	support bool,
) (uint64, error) {
	if _, err := e.config(txn); err != nil {
		return 0, err
	}
	proposal, err := e.proposal(txn, proposalID)
	if err != nil {
		return 0, err
	}
	now := e.clock.Now()
	if now < proposal.StartTime {
		return 0, fmt.Errorf(
			"%w: proposal %d opens at %d",
			ErrVotingNotStarted,
			proposalID,
			proposal.StartTime,
		)
	}
	if now > proposal.EndTime {
		return 0, fmt.Errorf(
			"%w: proposal %d closed at %d",
			ErrVotingEnded,
			proposalID,
			proposal.EndTime,
		)
	}
	voted, err := e.HasVoted(txn, proposalID, voter)
	if err != nil {
		return 0, err
	}
	if voted {
		return 0, fmt.Errorf("%w: %s on proposal %d", ErrAlreadyVoted, voter, proposalID)
	}
	if err := e.guard.Enter(txn); err != nil {
		return 0, err
	}
	weight, err := e.reputation.PowerAtSnapshot(
		txn,
		voter,
		proposal.CreationTime,
		uint64(proposal.ReputationSnapshot),
	)
	if err != nil {
		return 0, err
	}
	if weight == 0 {
		return 0, fmt.Errorf("%w: %s at %d", ErrNoVotingPower, voter, proposal.CreationTime)
	}
	if support {
		if uint64(proposal.ForVotes) > ^uint64(0)-weight {
			return 0, ErrMathOverflow
		}
		proposal.ForVotes += types.Uint64(weight)
	} else {
		if uint64(proposal.AgainstVotes) > ^uint64(0)-weight {
			return 0, ErrMathOverflow
		}
		proposal.AgainstVotes += types.Uint64(weight)
	}
	metadata := txn.DB().Metadata()
	if err := metadata.SetProposal(proposal, txn.Metadata()); err != nil {
		return 0, err
	}
	if err := metadata.AddVote(&models.Vote{
		ProposalID: proposalID,
		Voter:      string(voter),
		Support:    support,
		Weight:     types.Uint64(weight),
		CastTime:   now,
	}, txn.Metadata()); err != nil {
		return 0, err
	}
	if err := e.guard.Exit(txn); err != nil {
		return 0, err
	}
	e.logger.Debug(
		"vote cast",
		"proposal", proposalID,
		"voter", voter,
		"support", support,
		"weight", weight,
	)
	if e.metrics != nil {
		txn.OnCommit(e.metrics.votesCast.Inc)
	}
	e.bus.PublishOnCommit(txn, event.VoteCastEventType, event.VoteCastEvent{
		ProposalID: proposalID,
		Voter:      string(voter),
		Support:    support,
		Weight:     weight,
	})
	return weight, nil
}

// State returns the current state of a proposal
func (e *Engine) State(txn *database.Txn, proposalID uint64) (State, error) {
	cfg, err := e.config(txn)
	if err != nil {
		return 0, err
	}
	proposal, err := e.proposal(txn, proposalID)
	if err != nil {
		return 0, err
	}
	return Resolve(proposal, *cfg, e.clock.Now()), nil
}

// Execute runs the actions of a succeeded proposal. The proposal is marked
// executed before any action runs, and a failing action fails the whole
// execution
func (e *Engine) Execute(txn *database.Txn, proposalID uint64) error {
	cfg, err := e.config(txn)
	if err != nil {
		return err
	}
	proposal, err := e.proposal(txn, proposalID)
	if err != nil {
		return err
	}
	if proposal.Executed {
		return fmt.Errorf("%w: %d", ErrAlreadyExecuted, proposalID)
	}
	now := e.clock.Now()
	if state := Resolve(proposal, *cfg, now); state != StateSucceeded {
		return fmt.Errorf("%w: proposal %d is %s", ErrProposalNotSucceeded, proposalID, state)
	}
	if err := e.guard.Enter(txn); err != nil {
		return err
	}
	proposal.Executed = true
	proposal.ExecutedTime = &now
	if err := txn.DB().Metadata().SetProposal(proposal, txn.Metadata()); err != nil {
		return err
	}
	for i, a := range proposal.Actions {
		if err := e.targets.Dispatch(txn, e.address, a); err != nil {
			return fmt.Errorf("proposal %d action %d: %w", proposalID, i, err)
		}
	}
	if err := e.guard.Exit(txn); err != nil {
		return err
	}
	e.logger.Info(
		"proposal executed",
		"proposal", proposalID,
		"actions", len(proposal.Actions),
	)
	if e.metrics != nil {
		txn.OnCommit(e.metrics.proposalsExecuted.Inc)
	}
	e.bus.PublishOnCommit(txn, event.ProposalExecutedEventType, event.ProposalExecutedEvent{
		ProposalID:  proposalID,
		ActionCount: len(proposal.Actions),
	})
	return nil
}
