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
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/karn-labs/karn"
	"github.com/karn-labs/karn/auth"
	"github.com/karn-labs/karn/internal/config"
	"github.com/karn-labs/karn/internal/node"
	"github.com/spf13/cobra"
)

func initCommand() *cobra.Command {
	var genesisPath string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Apply a genesis document to a new node",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				return fmt.Errorf("no config found in context")
			}
			if genesisPath == "" {
				genesisPath = cfg.GenesisFile
			}
			logger := commonRun(os.Stderr)
			n, err := node.OpenWithGenesis(cfg, logger, nil, genesisPath)
			if err != nil {
				return err
			}
			return n.Close()
		},
	}
	cmd.Flags().StringVar(&genesisPath, "genesis", "", "path to the genesis document")
	return cmd
}

func readVoucher(path string) (auth.Voucher, error) {
	var v auth.Voucher
	var buf []byte
	var err error
	if path == "-" {
		buf, err = io.ReadAll(os.Stdin)
	} else {
		buf, err = os.ReadFile(path)
	}
	if err != nil {
		return v, fmt.Errorf("read voucher: %w", err)
	}
	if err := json.Unmarshal(buf, &v); err != nil {
		return v, fmt.Errorf("parse voucher: %w", err)
	}
	return v, nil
}

func registerCommand() *cobra.Command {
	var voucherPath string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Claim the member badge with a registration voucher",
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := caller()
			if err != nil {
				return err
			}
			voucher, err := readVoucher(voucherPath)
			if err != nil {
				return err
			}
			return withNode(cmd, func(n *karn.Node) error {
				tokenID, err := n.SelfRegister(account, voucher)
				if err != nil {
					return err
				}
				return printJSON(map[string]any{"account": account, "token": tokenID})
			})
		},
	}
	cmd.Flags().StringVar(&voucherPath, "voucher", "-", "voucher JSON file, - for stdin")
	return cmd
}

func voucherCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "voucher",
		Short: "Development helpers for the voucher signer",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "keygen",
			Short: "Generate a signer seed and its public key",
			RunE: func(cmd *cobra.Command, args []string) error {
				signer, err := auth.GenerateSigner()
				if err != nil {
					return err
				}
				return printJSON(map[string]string{
					"seed":      hex.EncodeToString(signer.Seed()),
					"signerKey": hex.EncodeToString(signer.PublicKey()),
				})
			},
		},
		voucherSignCommand(),
	)
	return cmd
}

func voucherSignCommand() *cobra.Command {
	var (
		seedHex string
		account string
		badgeID uint64
		nonce   uint64
		expiry  uint64
		mint    bool
	)
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a registration voucher, or a mint voucher with --mint",
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := hex.DecodeString(seedHex)
			if err != nil {
				return fmt.Errorf("invalid seed: %w", err)
			}
			signer, err := auth.NewSigner(seed)
			if err != nil {
				return err
			}
			if account == "" {
				return fmt.Errorf("--account is required")
			}
			var v auth.Voucher
			if mint {
				v = signer.SignMint(auth.Address(account), badgeID, nonce, expiry)
			} else {
				v = signer.SignRegistration(auth.Address(account), nonce, expiry)
			}
			return printJSON(v)
		},
	}
	cmd.Flags().StringVar(&seedHex, "seed", "", "hex encoded signer seed")
	cmd.Flags().StringVar(&account, "account", "", "account the voucher is issued to")
	cmd.Flags().Uint64Var(&badgeID, "badge", 0, "badge id, mint vouchers only")
	cmd.Flags().Uint64Var(&nonce, "nonce", 0, "single use nonce")
	cmd.Flags().Uint64Var(&expiry, "expiry", 0, "unix time after which the voucher is rejected")
	cmd.Flags().BoolVar(&mint, "mint", false, "sign a mint voucher")
	return cmd
}
