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

package node

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/karn-labs/karn"
	"github.com/karn-labs/karn/database"
	"github.com/karn-labs/karn/database/types"
	"github.com/karn-labs/karn/event"
	"github.com/karn-labs/karn/governance"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
)

const keyTagResolved types.KeyTag = 1

// Sweeper periodically resolves proposals whose voting window has closed.
// Each closed proposal is announced once with a proposal.resolved event,
// and the number of proposals per state is exported as a gauge.
type Sweeper struct {
	node   *karn.Node
	logger *slog.Logger
	cron   *cron.Cron
	states *prometheus.GaugeVec
}

func NewSweeper(
	n *karn.Node,
	schedule string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*Sweeper, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	s := &Sweeper{
		node:   n,
		logger: logger.With("component", "sweeper"),
		cron:   cron.New(),
		states: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "karn_governance_proposals",
				Help: "number of proposals by state",
			},
			[]string{"state"},
		),
	}
	if promRegistry != nil {
		if err := promRegistry.Register(s.states); err != nil {
			return nil, fmt.Errorf("register sweeper metrics: %w", err)
		}
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) run() {
	resolved, err := s.Sweep()
	if err != nil {
		s.logger.Error("proposal sweep failed", "error", err)
		return
	}
	if resolved > 0 {
		s.logger.Info("proposals resolved", "count", resolved)
	}
}

// Sweep runs one pass and returns the number of newly resolved proposals
func (s *Sweeper) Sweep() (int, error) {
	var resolved int
	counts := make(map[governance.State]int)
	engine := s.node.Governance()
	bus := s.node.EventBus()
	err := s.node.Update(func(txn *database.Txn) error {
		cfg, err := engine.Config(txn)
		if err != nil {
			return err
		}
		proposals, err := engine.Proposals(txn)
		if err != nil {
			return err
		}
		now := s.node.Now()
		for i := range proposals {
			p := &proposals[i]
			state := governance.Resolve(p, cfg, now)
			counts[state]++
			if !state.Closed() {
				continue
			}
			key := types.IDKey(types.SystemKeyScope, keyTagResolved, p.ID)
			seen, err := txn.HasKey(key)
			if err != nil {
				return err
			}
			if seen {
				continue
			}
			if err := txn.SetValue(key, state.String()); err != nil {
				return err
			}
			bus.PublishOnCommit(txn, event.ProposalResolvedEventType, event.ProposalResolvedEvent{
				ProposalID: p.ID,
				State:      state.String(),
			})
			resolved++
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, governance.ErrNotInitialized) {
			return 0, nil
		}
		return 0, err
	}
	for _, state := range []governance.State{
		governance.StatePending,
		governance.StateActive,
		governance.StateDefeated,
		governance.StateSucceeded,
		governance.StateExecuted,
	} {
		s.states.WithLabelValues(state.String()).Set(float64(counts[state]))
	}
	return resolved, nil
}
