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
	"math/big"

	"github.com/karn-labs/karn"
	"github.com/karn-labs/karn/auth"
	"github.com/spf13/cobra"
)

func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

type labOutput struct {
	ID           uint64 `json:"id"`
	Funder       string `json:"funder"`
	Status       string `json:"status"`
	Total        string `json:"total"`
	PerRecipient string `json:"perRecipient"`
	Allocated    string `json:"allocated"`
}

func vaultCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Inspect the vault, fund labs and claim scholarships",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show vault totals and labs",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withNode(cmd, func(n *karn.Node) error {
					vs, err := n.VaultStatus()
					if err != nil {
						return err
					}
					labs := make([]labOutput, 0, len(vs.Labs))
					for _, lab := range vs.Labs {
						labs = append(labs, labOutput{
							ID:           lab.ID,
							Funder:       lab.Funder,
							Status:       lab.Status.String(),
							Total:        lab.TotalAmount.Big().String(),
							PerRecipient: lab.PerRecipientAmount.Big().String(),
							Allocated:    lab.AllocatedAmount.Big().String(),
						})
					}
					return printJSON(map[string]any{
						"balance":           vs.Balance.String(),
						"totalAssets":       vs.TotalAssets.String(),
						"totalShares":       vs.TotalShares.String(),
						"restrictedReserve": vs.RestrictedReserve.String(),
						"labs":              labs,
					})
				})
			},
		},
		&cobra.Command{
			Use:   "shares <account>",
			Short: "Show the shares, claimable amount and balance of an account",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withNode(cmd, func(n *karn.Node) error {
					acct, err := n.Account(auth.Address(args[0]))
					if err != nil {
						return err
					}
					return printJSON(map[string]string{
						"account":   args[0],
						"shares":    acct.Shares.String(),
						"value":     acct.Value.String(),
						"claimable": acct.Claimable.String(),
						"balance":   acct.Balance.String(),
					})
				})
			},
		},
		&cobra.Command{
			Use:   "fund-lab <total> <per-recipient>",
			Short: "Escrow funds from the --as principal for scholarships",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				funder, err := caller()
				if err != nil {
					return err
				}
				total, err := parseAmount(args[0])
				if err != nil {
					return err
				}
				perRecipient, err := parseAmount(args[1])
				if err != nil {
					return err
				}
				return withNode(cmd, func(n *karn.Node) error {
					labID, err := n.FundLab(funder, total, perRecipient)
					if err != nil {
						return err
					}
					return printJSON(map[string]uint64{"lab": labID})
				})
			},
		},
		&cobra.Command{
			Use:   "claim <amount>",
			Short: "Withdraw approved scholarship funds to the --as principal",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				recipient, err := caller()
				if err != nil {
					return err
				}
				amount, err := parseAmount(args[0])
				if err != nil {
					return err
				}
				return withNode(cmd, func(n *karn.Node) error {
					return n.WithdrawScholarship(recipient, amount)
				})
			},
		},
	)
	return cmd
}
