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

package genesis_test

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/karn-labs/karn/auth"
	"github.com/karn-labs/karn/governance"
	"github.com/karn-labs/karn/internal/genesis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDocument(t *testing.T) string {
	t.Helper()
	signer, err := auth.GenerateSigner()
	require.NoError(t, err)
	return fmt.Sprintf(`
signerKey: %s
minInitialDeposit: "25"
badgeTypes:
  - id: 0
    rarity: 5
    metadata: member
  - id: 1
    rarity: 100
    metadata: founder
  - id: 20
    rarity: 40
founders: [alice, bob]
balances:
  treasury: "1000000000000000000000"
governance:
  votingDelay: 60
  votingPeriod: 3600
  proposalThreshold: 10
  approvalPercentage: 60
  participationPercentage: 10
`, hex.EncodeToString(signer.PublicKey()))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testDocument(t)), 0o600))
	g, err := genesis.Load(path)
	require.NoError(t, err)

	params, err := g.Params()
	require.NoError(t, err)
	assert.Len(t, params.SignerKey, 32)
	assert.Equal(t, []auth.Address{"alice", "bob"}, params.Founders)
	require.Len(t, params.BadgeTypes, 3)
	assert.Equal(t, uint64(100), params.BadgeTypes[1].Rarity)
	assert.Equal(t, "founder", params.BadgeTypes[1].Metadata)
	assert.Equal(t, "1000000000000000000000", params.Balances["treasury"].String())
	assert.Equal(t, governance.Config{
		VotingDelay:             60,
		VotingPeriod:            3600,
		ProposalThreshold:       10,
		ApprovalPercentage:      60,
		ParticipationPercentage: 10,
	}, params.Governance)

	minDeposit, err := g.MinDeposit()
	require.NoError(t, err)
	assert.Equal(t, int64(25), minDeposit.Int64())
}

func TestParamsDefaults(t *testing.T) {
	signer, err := auth.GenerateSigner()
	require.NoError(t, err)
	g := &genesis.Genesis{
		SignerKey:  hex.EncodeToString(signer.PublicKey()),
		Founders:   []string{"alice"},
		BadgeTypes: []genesis.BadgeType{{ID: 1, Rarity: 100}},
	}
	params, err := g.Params()
	require.NoError(t, err)
	assert.Equal(t, governance.DefaultConfig(), params.Governance)
	assert.Nil(t, params.Balances)
	minDeposit, err := g.MinDeposit()
	require.NoError(t, err)
	assert.Nil(t, minDeposit)
}

func TestParamsInvalid(t *testing.T) {
	signer, err := auth.GenerateSigner()
	require.NoError(t, err)
	key := hex.EncodeToString(signer.PublicKey())
	founder := []genesis.BadgeType{{ID: 1, Rarity: 100}}
	tests := []struct {
		name string
		doc  genesis.Genesis
	}{
		{"bad key", genesis.Genesis{SignerKey: "zz", Founders: []string{"a"}, BadgeTypes: founder}},
		{"short key", genesis.Genesis{SignerKey: "abcd", Founders: []string{"a"}, BadgeTypes: founder}},
		{"no founders", genesis.Genesis{SignerKey: key, BadgeTypes: founder}},
		{"no founder badge", genesis.Genesis{SignerKey: key, Founders: []string{"a"}}},
		{
			"badge id out of range",
			genesis.Genesis{
				SignerKey:  key,
				Founders:   []string{"a"},
				BadgeTypes: append([]genesis.BadgeType{{ID: 5}}, founder...),
			},
		},
		{
			"duplicate badge",
			genesis.Genesis{
				SignerKey:  key,
				Founders:   []string{"a"},
				BadgeTypes: append([]genesis.BadgeType{{ID: 1}}, founder...),
			},
		},
		{
			"bad balance",
			genesis.Genesis{
				SignerKey:  key,
				Founders:   []string{"a"},
				BadgeTypes: founder,
				Balances:   map[string]string{"a": "-5"},
			},
		},
		{
			"bad governance",
			genesis.Genesis{
				SignerKey:  key,
				Founders:   []string{"a"},
				BadgeTypes: founder,
				Governance: &governance.Config{VotingPeriod: 0},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.doc.Params()
			require.Error(t, err)
		})
	}
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := genesis.Parse([]byte("founders: [\n"))
	require.Error(t, err)
}
