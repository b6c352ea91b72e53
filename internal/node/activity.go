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
	"io"
	"log/slog"

	"github.com/karn-labs/karn/event"
)

// activityEventTypes are the committed events written to the activity log
var activityEventTypes = []event.EventType{
	event.BadgeMintedEventType,
	event.BadgeRevokedEventType,
	event.MemberVerifiedEventType,
	event.ProposalCreatedEventType,
	event.VoteCastEventType,
	event.ProposalExecutedEventType,
	event.ProposalResolvedEventType,
	event.VaultDepositEventType,
	event.VaultTransferEventType,
	event.VaultWithdrawEventType,
	event.LabFundedEventType,
	event.LabCancelledEventType,
	event.ScholarshipApprovedEventType,
	event.ScholarshipWithdrawnEventType,
}

// ActivityLog writes one log line per committed domain event, in commit order
type ActivityLog struct {
	bus    *event.EventBus
	logger *slog.Logger
	id     event.SubscriptionID
	done   chan struct{}
}

func NewActivityLog(bus *event.EventBus, logger *slog.Logger) *ActivityLog {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &ActivityLog{
		bus:    bus,
		logger: logger.With("component", "activity"),
		done:   make(chan struct{}),
	}
}

func (a *ActivityLog) Start() {
	id, events := a.bus.Subscribe(activityEventTypes...)
	a.id = id
	go a.run(events)
}

func (a *ActivityLog) run(events <-chan event.Event) {
	defer close(a.done)
	for evt := range events {
		a.logger.Info(
			string(evt.Type),
			"event_id", evt.ID,
			"data", evt.Data,
		)
	}
}

// Stop ends the subscription and waits for buffered events to be written.
// Stopping the event bus first is fine
func (a *ActivityLog) Stop() {
	a.bus.Unsubscribe(a.id)
	<-a.done
}
