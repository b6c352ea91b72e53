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

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/karn-labs/karn"
	"github.com/karn-labs/karn/governance"
	"github.com/spf13/cobra"
)

// parseAction reads an action written as target.operation[:arg,arg...].
// A trailing colon passes one empty argument
func parseAction(s string) (governance.Action, error) {
	var a governance.Action
	head, argList, hasArgs := strings.Cut(s, ":")
	target, operation, ok := strings.Cut(head, ".")
	if !ok || target == "" || operation == "" {
		return a, fmt.Errorf("invalid action %q: want target.operation[:arg,...]", s)
	}
	a.Target = target
	a.Operation = operation
	if hasArgs {
		a.Args = strings.Split(argList, ",")
	}
	return a, nil
}

func parseProposalID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid proposal id %q: %w", s, err)
	}
	return id, nil
}

func proposeCommand() *cobra.Command {
	var (
		description string
		actions     []string
	)
	cmd := &cobra.Command{
		Use:   "propose",
		Short: "Create a proposal",
		Example: "  karn propose --as alice -m 'pay bob' " +
			"--action vault.transfer:bob,200",
		RunE: func(cmd *cobra.Command, args []string) error {
			proposer, err := caller()
			if err != nil {
				return err
			}
			parsed := make([]governance.Action, 0, len(actions))
			for _, s := range actions {
				a, err := parseAction(s)
				if err != nil {
					return err
				}
				parsed = append(parsed, a)
			}
			return withNode(cmd, func(n *karn.Node) error {
				proposalID, err := n.Propose(proposer, description, parsed)
				if err != nil {
					return err
				}
				return printJSON(map[string]uint64{"proposal": proposalID})
			})
		},
	}
	cmd.Flags().StringVarP(&description, "description", "m", "", "proposal description")
	cmd.Flags().StringArrayVar(&actions, "action", nil, "action as target.operation[:arg,...], repeatable")
	return cmd
}

func voteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "vote <proposal> yes|no",
		Short: "Vote on a proposal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			voter, err := caller()
			if err != nil {
				return err
			}
			proposalID, err := parseProposalID(args[0])
			if err != nil {
				return err
			}
			var support bool
			switch strings.ToLower(args[1]) {
			case "yes", "for":
				support = true
			case "no", "against":
			default:
				return fmt.Errorf("invalid vote %q: want yes or no", args[1])
			}
			return withNode(cmd, func(n *karn.Node) error {
				weight, err := n.CastVote(voter, proposalID, support)
				if err != nil {
					return err
				}
				return printJSON(map[string]any{
					"proposal": proposalID,
					"support":  support,
					"weight":   weight,
				})
			})
		},
	}
}

func executeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "execute <proposal>",
		Short: "Execute a succeeded proposal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proposalID, err := parseProposalID(args[0])
			if err != nil {
				return err
			}
			return withNode(cmd, func(n *karn.Node) error {
				return n.Execute(proposalID)
			})
		},
	}
}

type proposalOutput struct {
	ID           uint64              `json:"id"`
	State        string              `json:"state"`
	Proposer     string              `json:"proposer"`
	Description  string              `json:"description"`
	Actions      []governance.Action `json:"actions"`
	StartTime    uint64              `json:"startTime"`
	EndTime      uint64              `json:"endTime"`
	ForVotes     uint64              `json:"forVotes"`
	AgainstVotes uint64              `json:"againstVotes"`
	Reputation   uint64              `json:"totalReputationAtCreation"`
}

func newProposalOutput(s karn.ProposalStatus) proposalOutput {
	p := s.Proposal
	return proposalOutput{
		ID:           p.ID,
		State:        s.State.String(),
		Proposer:     p.Proposer,
		Description:  p.Description,
		Actions:      p.Actions,
		StartTime:    p.StartTime,
		EndTime:      p.EndTime,
		ForVotes:     uint64(p.ForVotes),
		AgainstVotes: uint64(p.AgainstVotes),
		Reputation:   uint64(p.TotalReputationAtCreation),
	}
}

func proposalCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proposal",
		Short: "Inspect proposals",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show <proposal>",
			Short: "Show one proposal",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				proposalID, err := parseProposalID(args[0])
				if err != nil {
					return err
				}
				return withNode(cmd, func(n *karn.Node) error {
					status, err := n.Proposal(proposalID)
					if err != nil {
						return err
					}
					return printJSON(newProposalOutput(*status))
				})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List all proposals",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withNode(cmd, func(n *karn.Node) error {
					statuses, err := n.Proposals()
					if err != nil {
						return err
					}
					out := make([]proposalOutput, 0, len(statuses))
					for _, s := range statuses {
						out = append(out, newProposalOutput(s))
					}
					return printJSON(out)
				})
			},
		},
	)
	return cmd
}
