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

// Package genesis loads the document describing the initial state of a
// node: badge types, founders, asset balances and the voting policy.
package genesis

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/karn-labs/karn"
	"github.com/karn-labs/karn/auth"
	"github.com/karn-labs/karn/governance"
	"github.com/karn-labs/karn/reputation"
	"gopkg.in/yaml.v3"
)

type BadgeType struct {
	ID       uint64 `yaml:"id"`
	Rarity   uint64 `yaml:"rarity"`
	Metadata string `yaml:"metadata"`
}

type Genesis struct {
	// SignerKey is the hex encoded ed25519 public key vouchers are checked against
	SignerKey  string            `yaml:"signerKey"`
	BadgeTypes []BadgeType       `yaml:"badgeTypes"`
	Founders   []string          `yaml:"founders"`
	Balances   map[string]string `yaml:"balances"`
	// MinInitialDeposit is a decimal string. Empty keeps the vault default
	MinInitialDeposit string             `yaml:"minInitialDeposit"`
	Governance        *governance.Config `yaml:"governance"`
}

func Load(path string) (*Genesis, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis: %w", err)
	}
	return Parse(buf)
}

func Parse(buf []byte) (*Genesis, error) {
	var g Genesis
	if err := yaml.Unmarshal(buf, &g); err != nil {
		return nil, fmt.Errorf("parse genesis: %w", err)
	}
	return &g, nil
}

// MinDeposit returns the parsed minimum initial deposit, or nil when unset
func (g *Genesis) MinDeposit() (*big.Int, error) {
	if g.MinInitialDeposit == "" {
		return nil, nil
	}
	v, ok := new(big.Int).SetString(g.MinInitialDeposit, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid minInitialDeposit %q", g.MinInitialDeposit)
	}
	return v, nil
}

// Params converts the document into node genesis parameters
func (g *Genesis) Params() (karn.GenesisParams, error) {
	var ret karn.GenesisParams
	key, err := hex.DecodeString(g.SignerKey)
	if err != nil {
		return ret, fmt.Errorf("invalid signerKey: %w", err)
	}
	if len(key) != ed25519.PublicKeySize {
		return ret, fmt.Errorf(
			"invalid signerKey: want %d bytes, got %d",
			ed25519.PublicKeySize,
			len(key),
		)
	}
	ret.SignerKey = ed25519.PublicKey(key)
	if len(g.Founders) == 0 {
		return ret, errors.New("genesis needs at least one founder")
	}
	for _, founder := range g.Founders {
		ret.Founders = append(ret.Founders, auth.Address(founder))
	}
	seen := make(map[uint64]bool, len(g.BadgeTypes))
	for _, bt := range g.BadgeTypes {
		if seen[bt.ID] {
			return ret, fmt.Errorf("badge type %d listed twice", bt.ID)
		}
		seen[bt.ID] = true
		if _, err := reputation.CategoryOf(bt.ID); err != nil {
			return ret, err
		}
		ret.BadgeTypes = append(ret.BadgeTypes, reputation.BadgeType{
			ID:       bt.ID,
			Rarity:   bt.Rarity,
			Metadata: bt.Metadata,
		})
	}
	if !seen[reputation.FounderBadgeID] {
		return ret, errors.New("genesis must define the founder badge type")
	}
	if len(g.Balances) > 0 {
		ret.Balances = make(map[auth.Address]*big.Int, len(g.Balances))
		for account, amount := range g.Balances {
			v, ok := new(big.Int).SetString(amount, 10)
			if !ok || v.Sign() <= 0 {
				return ret, fmt.Errorf("invalid balance %q for %s", amount, account)
			}
			ret.Balances[auth.Address(account)] = v
		}
	}
	ret.Governance = governance.DefaultConfig()
	if g.Governance != nil {
		if err := g.Governance.Validate(); err != nil {
			return ret, err
		}
		ret.Governance = *g.Governance
	}
	return ret, nil
}
