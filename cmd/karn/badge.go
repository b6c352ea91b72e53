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

	"github.com/karn-labs/karn"
	"github.com/karn-labs/karn/auth"
	"github.com/spf13/cobra"
)

func badgeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "badge",
		Short: "Mint, grant and revoke badges",
	}
	var voucherPath string
	grant := &cobra.Command{
		Use:   "grant",
		Short: "Mint a track or community badge with a mint voucher",
		RunE: func(cmd *cobra.Command, args []string) error {
			voucher, err := readVoucher(voucherPath)
			if err != nil {
				return err
			}
			return withNode(cmd, func(n *karn.Node) error {
				tokenID, err := n.GuardianMint(voucher)
				if err != nil {
					return err
				}
				return printJSON(map[string]any{"account": voucher.Account, "token": tokenID})
			})
		},
	}
	grant.Flags().StringVar(&voucherPath, "voucher", "-", "voucher JSON file, - for stdin")
	cmd.AddCommand(
		&cobra.Command{
			Use:   "mint <account> <badge>",
			Short: "Mint a badge as the --as principal",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				minter, err := caller()
				if err != nil {
					return err
				}
				badgeID, err := strconv.ParseUint(args[1], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid badge id %q: %w", args[1], err)
				}
				return withNode(cmd, func(n *karn.Node) error {
					tokenID, err := n.Mint(minter, auth.Address(args[0]), badgeID)
					if err != nil {
						return err
					}
					return printJSON(map[string]any{"account": args[0], "token": tokenID})
				})
			},
		},
		&cobra.Command{
			Use:   "revoke <token>",
			Short: "Burn a badge token",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				revoker, err := caller()
				if err != nil {
					return err
				}
				tokenID, err := strconv.ParseUint(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid token id %q: %w", args[0], err)
				}
				return withNode(cmd, func(n *karn.Node) error {
					return n.Revoke(revoker, tokenID)
				})
			},
		},
		grant,
	)
	return cmd
}

func powerCommand() *cobra.Command {
	var at uint64
	cmd := &cobra.Command{
		Use:   "power <account>",
		Short: "Show the voting power of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account := auth.Address(args[0])
			return withNode(cmd, func(n *karn.Node) error {
				t := at
				if t == 0 {
					t = n.Now()
				}
				power, err := n.Power(account, t)
				if err != nil {
					return err
				}
				out := map[string]any{"account": account, "at": t, "power": power}
				member, err := n.Member(account)
				if err != nil {
					return err
				}
				if member != nil {
					out["level"] = member.Level
					out["permanentLevel"] = member.PermanentLevel
					out["expiry"] = member.Expiry
					out["verified"] = member.Verified
				}
				return printJSON(out)
			})
		},
	}
	cmd.Flags().Uint64Var(&at, "at", 0, "unix time to evaluate power at, default now")
	return cmd
}
