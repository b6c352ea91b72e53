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

package event

import (
	"math/big"

	"github.com/karn-labs/karn/database"
)

const (
	BadgeMintedEventType          EventType = "badge.minted"
	BadgeRevokedEventType         EventType = "badge.revoked"
	MemberVerifiedEventType       EventType = "member.verified"
	ProposalCreatedEventType      EventType = "proposal.created"
	VoteCastEventType             EventType = "vote.cast"
	ProposalExecutedEventType     EventType = "proposal.executed"
	ProposalResolvedEventType     EventType = "proposal.resolved"
	VaultDepositEventType         EventType = "vault.deposit"
	VaultTransferEventType        EventType = "vault.transfer"
	VaultWithdrawEventType        EventType = "vault.withdraw"
	LabFundedEventType            EventType = "lab.funded"
	LabCancelledEventType         EventType = "lab.cancelled"
	ScholarshipApprovedEventType  EventType = "scholarship.approved"
	ScholarshipWithdrawnEventType EventType = "scholarship.withdrawn"
)

type BadgeMintedEvent struct {
	Account string
	TokenID uint64
	BadgeID uint64
	Rarity  uint64
}

type BadgeRevokedEvent struct {
	Account string
	TokenID uint64
	BadgeID uint64
}

type MemberVerifiedEvent struct {
	Account  string
	Verified bool
}

type ProposalCreatedEvent struct {
	Proposer   string
	ProposalID uint64
	StartTime  uint64
	EndTime    uint64
}

type VoteCastEvent struct {
	Voter      string
	ProposalID uint64
	Weight     uint64
	Support    bool
}

type ProposalExecutedEvent struct {
	ProposalID  uint64
	ActionCount int
}

type ProposalResolvedEvent struct {
	State      string
	ProposalID uint64
}

type VaultDepositEvent struct {
	Shares   *big.Int
	Receiver string
}

type VaultTransferEvent struct {
	Amount   *big.Int
	Receiver string
}

type VaultWithdrawEvent struct {
	Shares   *big.Int
	Assets   *big.Int
	Owner    string
	Receiver string
}

type LabFundedEvent struct {
	TotalAmount        *big.Int
	PerRecipientAmount *big.Int
	Funder             string
	LabID              uint64
}

type LabCancelledEvent struct {
	Refund *big.Int
	Funder string
	LabID  uint64
}

type ScholarshipApprovedEvent struct {
	Amount    *big.Int
	Recipient string
	LabID     uint64
}

type ScholarshipWithdrawnEvent struct {
	Amount    *big.Int
	Recipient string
}

// PublishOnCommit queues an event for delivery once txn commits. Nothing is
// published if the transaction rolls back. It is a no-op on a nil bus.
func (e *EventBus) PublishOnCommit(
	txn *database.Txn,
	eventType EventType,
	data any,
) {
	if e == nil {
		return
	}
	evt := NewEvent(eventType, data)
	txn.OnCommit(func() {
		e.Enqueue(evt)
	})
}
