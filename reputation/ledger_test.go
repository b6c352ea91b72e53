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

package reputation_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/karn-labs/karn/auth"
	"github.com/karn-labs/karn/clock"
	"github.com/karn-labs/karn/database"
	"github.com/karn-labs/karn/internal/action"
	"github.com/karn-labs/karn/reputation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	day      = 24 * 60 * 60
	t0       = uint64(1_700_000_000)
	governor = auth.Address("gov")
	founder  = auth.Address("founder")
)

type fakeVault struct {
	deposits map[auth.Address]int64
	callers  []auth.Address
	err      error
}

func (f *fakeVault) Deposit(
	_ *database.Txn,
	caller auth.Address,
	receiver auth.Address,
	shares *big.Int,
) error {
	if f.err != nil {
		return f.err
	}
	f.callers = append(f.callers, caller)
	f.deposits[receiver] += shares.Int64()
	return nil
}

// reentrantVault calls back into the ledger from inside a deposit
type reentrantVault struct {
	ledger *reputation.Ledger
}

func (r *reentrantVault) Deposit(
	txn *database.Txn,
	_ auth.Address,
	receiver auth.Address,
	_ *big.Int,
) error {
	_, err := r.ledger.Mint(txn, governor, receiver, 20)
	return err
}

type fixture struct {
	db     *database.Database
	ledger *reputation.Ledger
	clock  *clock.Manual
	signer *auth.Signer
	vault  *fakeVault
	reg    *prometheus.Registry
}

var testBadgeTypes = []reputation.BadgeType{
	{ID: 0, Rarity: 5, Metadata: "member"},
	{ID: 1, Rarity: 100, Metadata: "founder"},
	{ID: 10, Rarity: 50, Metadata: "lead"},
	{ID: 20, Rarity: 100, Metadata: "track"},
	{ID: 60, Rarity: 10, Metadata: "community"},
	{ID: 70, Rarity: 30, Metadata: "steward"},
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close() //nolint:errcheck
	})
	signer, err := auth.GenerateSigner()
	require.NoError(t, err)
	f := &fixture{
		db:     db,
		clock:  clock.NewManual(t0),
		signer: signer,
		vault:  &fakeVault{deposits: map[auth.Address]int64{}},
		reg:    prometheus.NewRegistry(),
	}
	f.ledger = reputation.New(
		reputation.WithClock(f.clock),
		reputation.WithShareIssuer(f.vault),
		reputation.WithPromRegistry(f.reg),
	)
	require.NoError(t, f.do(func(txn *database.Txn) error {
		return f.ledger.Initialize(txn, reputation.GenesisParams{
			Governor:   governor,
			Vault:      "vault",
			SignerKey:  signer.PublicKey(),
			BadgeTypes: testBadgeTypes,
			Founders:   []auth.Address{founder},
		})
	}))
	return f
}

func (f *fixture) do(fn func(*database.Txn) error) error {
	return f.db.Transaction(true).Do(fn)
}

func (f *fixture) view(t *testing.T) *database.Txn {
	t.Helper()
	txn := f.db.Transaction(false)
	t.Cleanup(txn.Release)
	return txn
}

func (f *fixture) mint(caller, account auth.Address, badgeID uint64) (uint64, error) {
	var tokenID uint64
	err := f.do(func(txn *database.Txn) error {
		var err error
		tokenID, err = f.ledger.Mint(txn, caller, account, badgeID)
		return err
	})
	return tokenID, err
}

func (f *fixture) register(account auth.Address, voucher auth.Voucher) error {
	return f.do(func(txn *database.Txn) error {
		_, err := f.ledger.SelfRegister(txn, account, voucher)
		return err
	})
}

func (f *fixture) powerAt(t *testing.T, account auth.Address, ts uint64) uint64 {
	t.Helper()
	p, err := f.ledger.PowerAt(f.view(t), account, ts)
	require.NoError(t, err)
	return p
}

func TestInitialize(t *testing.T) {
	f := newFixture(t)
	txn := f.view(t)
	m, err := f.ledger.Member(txn, founder)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, uint64(100), m.Level)
	assert.Equal(t, uint64(100), m.PermanentLevel)
	assert.Equal(t, t0+reputation.DecayWindow, m.Expiry)

	supply, err := f.ledger.TotalSupply(txn)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), supply)
	owner, err := f.ledger.OwnerOf(txn, 1)
	require.NoError(t, err)
	assert.Equal(t, founder, owner)
	assert.Equal(t, int64(100), f.vault.deposits[founder])
	assert.Equal(t, []auth.Address{reputation.DefaultAddress}, f.vault.callers)

	bt, err := f.ledger.BadgeType(txn, 20)
	require.NoError(t, err)
	assert.Equal(t, reputation.CategoryTrack, bt.Category)

	err = f.do(func(txn *database.Txn) error {
		return f.ledger.Initialize(txn, reputation.GenesisParams{
			Governor:  governor,
			SignerKey: f.signer.PublicKey(),
		})
	})
	assert.ErrorIs(t, err, reputation.ErrAlreadyInitialized)
}

func TestNotInitialized(t *testing.T) {
	db, err := database.New()
	require.NoError(t, err)
	defer db.Close()
	ledger := reputation.New()
	err = db.Transaction(true).Do(func(txn *database.Txn) error {
		_, err := ledger.Mint(txn, governor, "alice", 20)
		return err
	})
	assert.ErrorIs(t, err, reputation.ErrNotInitialized)

	txn := db.Transaction(false)
	defer txn.Release()
	initialized, err := ledger.Initialized(txn)
	require.NoError(t, err)
	assert.False(t, initialized)
}

func TestMintAuthorization(t *testing.T) {
	f := newFixture(t)
	_, err := f.mint(governor, "member1", 60)
	require.NoError(t, err)

	testDefs := []struct {
		name    string
		caller  auth.Address
		badgeID uint64
		err     error
	}{
		{name: "member badge", caller: governor, badgeID: 0, err: reputation.ErrBadgeNotMintable},
		{name: "founder badge", caller: governor, badgeID: 1, err: reputation.ErrBadgeNotMintable},
		{name: "leadership by member", caller: founder, badgeID: 10, err: reputation.ErrMintNotAuthorized},
		{name: "leadership by governor", caller: governor, badgeID: 10},
		{name: "governance by member", caller: founder, badgeID: 70, err: reputation.ErrMintNotAuthorized},
		{name: "governance by governor", caller: governor, badgeID: 70},
		{name: "track by outsider", caller: "outsider", badgeID: 20, err: reputation.ErrMintNotAuthorized},
		{name: "track at leadership threshold", caller: "member1", badgeID: 20},
		{name: "track by leader", caller: founder, badgeID: 20},
		{name: "community by outsider", caller: "outsider", badgeID: 60, err: reputation.ErrMintNotAuthorized},
		{name: "community by member", caller: "member1", badgeID: 60},
		{name: "invalid badge id", caller: governor, badgeID: 5, err: reputation.ErrInvalidBadgeID},
		{name: "unknown badge type", caller: governor, badgeID: 21, err: reputation.ErrUnknownBadgeType},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			_, err := f.mint(testDef.caller, "alice", testDef.badgeID)
			if testDef.err != nil {
				assert.ErrorIs(t, err, testDef.err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDecayScenario(t *testing.T) {
	f := newFixture(t)
	_, err := f.mint(governor, "alice", 20)
	require.NoError(t, err)

	power, err := f.ledger.PowerNow(f.view(t), "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), power)
	assert.Equal(t, uint64(52), f.powerAt(t, "alice", t0+90*day))
	assert.Equal(t, uint64(5), f.powerAt(t, "alice", t0+180*day))
	assert.Equal(t, uint64(5), f.powerAt(t, "alice", t0+200*day))

	f.clock.Advance(200 * day)
	txn := f.view(t)
	expiry, err := f.ledger.ExpiryOf(txn, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), expiry)
	power, err = f.ledger.PowerNow(txn, "alice")
	require.NoError(t, err)
	assert.Equal(t, reputation.MemberFloor, power)
	// The founder keeps the permanent level after decay
	power, err = f.ledger.PowerNow(txn, founder)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), power)
}

func TestSnapshotIgnoresLaterGrants(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.register("alice", f.signer.SignRegistration("alice", 1, t0+day)))
	snapshot := f.clock.Now()
	f.clock.Advance(100)
	_, err := f.mint(governor, "alice", 20)
	require.NoError(t, err)
	require.NoError(t, f.register("bob", f.signer.SignRegistration("bob", 1, t0+day)))

	assert.Equal(t, uint64(5), f.powerAt(t, "alice", snapshot))
	assert.Equal(t, uint64(0), f.powerAt(t, "bob", snapshot))
	assert.Equal(t, uint64(0), f.powerAt(t, "alice", snapshot-1))
	assert.Equal(t, uint64(105), f.powerAt(t, "alice", f.clock.Now()))
}

func TestSnapshotSameSecond(t *testing.T) {
	f := newFixture(t)
	txn := f.db.Transaction(false)
	snapshot, err := f.ledger.Snapshot(txn)
	txn.Release()
	require.NoError(t, err)

	_, err = f.mint(founder, founder, 60)
	require.NoError(t, err)

	txn = f.view(t)
	before, err := f.ledger.PowerAtSnapshot(txn, founder, t0, snapshot)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), before)
	after, err := f.ledger.PowerAt(txn, founder, t0)
	require.NoError(t, err)
	assert.Equal(t, uint64(110), after)
	later, err := f.ledger.Snapshot(txn)
	require.NoError(t, err)
	assert.Greater(t, later, snapshot)
}

func TestSelfRegister(t *testing.T) {
	f := newFixture(t)
	voucher := f.signer.SignRegistration("alice", 7, t0+day)

	// Voucher for another account
	assert.ErrorIs(t, f.register("mallory", voucher), auth.ErrNotAuthorized)

	require.NoError(t, f.register("alice", voucher))
	level, err := f.ledger.LevelOf(f.view(t), "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), level)
	assert.Equal(t, int64(5), f.vault.deposits["alice"])

	assert.ErrorIs(t, f.register("alice", voucher), reputation.ErrNonceReused)
	assert.ErrorIs(
		t,
		f.register("alice", f.signer.SignRegistration("alice", 8, t0+day)),
		reputation.ErrAlreadyRegistered,
	)

	other, err := auth.GenerateSigner()
	require.NoError(t, err)
	assert.ErrorIs(
		t,
		f.register("bob", other.SignRegistration("bob", 1, t0+day)),
		reputation.ErrInvalidSignature,
	)

	expired := f.signer.SignRegistration("carol", 1, t0+10)
	f.clock.Advance(11)
	assert.ErrorIs(t, f.register("carol", expired), reputation.ErrSignatureExpired)
}

func TestFailedRegistrationKeepsNonce(t *testing.T) {
	f := newFixture(t)
	f.vault.err = errors.New("vault down")
	voucher := f.signer.SignRegistration("alice", 1, t0+day)
	require.Error(t, f.register("alice", voucher))
	f.vault.err = nil
	require.NoError(t, f.register("alice", voucher))
}

func TestGuardianMint(t *testing.T) {
	f := newFixture(t)
	guardianMint := func(v auth.Voucher) error {
		return f.do(func(txn *database.Txn) error {
			_, err := f.ledger.GuardianMint(txn, v)
			return err
		})
	}
	require.NoError(t, guardianMint(f.signer.SignMint("alice", 20, 1, t0+day)))
	level, err := f.ledger.LevelOf(f.view(t), "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), level)

	assert.ErrorIs(t, guardianMint(f.signer.SignMint("alice", 10, 2, t0+day)), reputation.ErrMintNotAuthorized)
	assert.ErrorIs(t, guardianMint(f.signer.SignMint("alice", 0, 3, t0+day)), reputation.ErrBadgeNotMintable)

	tampered := f.signer.SignMint("alice", 60, 4, t0+day)
	tampered.BadgeID = 61
	assert.ErrorIs(t, guardianMint(tampered), reputation.ErrInvalidSignature)
}

func TestRevoke(t *testing.T) {
	f := newFixture(t)
	tokenID, err := f.mint(governor, "alice", 20)
	require.NoError(t, err)

	revoke := func(caller auth.Address, tokenID uint64) error {
		return f.do(func(txn *database.Txn) error {
			return f.ledger.Revoke(txn, caller, tokenID)
		})
	}
	assert.ErrorIs(t, revoke("alice", tokenID), reputation.ErrNotAuthorized)
	require.NoError(t, revoke(governor, tokenID))
	assert.ErrorIs(t, revoke(governor, tokenID), reputation.ErrUnknownToken)

	// Revoking the founder badge also clears the permanent level
	require.NoError(t, revoke(governor, 1))

	txn := f.view(t)
	level, err := f.ledger.LevelOf(txn, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), level)
	m, err := f.ledger.Member(txn, founder)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), m.Level)
	assert.Equal(t, uint64(0), m.PermanentLevel)
	hasPower, err := f.ledger.HasVotingPower(txn, founder)
	require.NoError(t, err)
	assert.False(t, hasPower)
	_, err = f.ledger.OwnerOf(txn, tokenID)
	assert.ErrorIs(t, err, reputation.ErrUnknownToken)

	supply, err := f.ledger.TotalSupply(txn)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), supply)
	bound, err := f.ledger.TotalReputationLowerBound(txn)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), bound)
}

func TestMintRollsBackOnDepositFailure(t *testing.T) {
	f := newFixture(t)
	f.vault.err = errors.New("vault down")
	_, err := f.mint(governor, "alice", 20)
	require.Error(t, err)

	txn := f.view(t)
	level, err := f.ledger.LevelOf(txn, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), level)
	supply, err := f.ledger.TotalSupply(txn)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), supply)
}

func TestReentrantMintRejected(t *testing.T) {
	db, err := database.New()
	require.NoError(t, err)
	defer db.Close()
	signer, err := auth.GenerateSigner()
	require.NoError(t, err)
	vault := &reentrantVault{}
	ledger := reputation.New(reputation.WithShareIssuer(vault))
	vault.ledger = ledger
	err = db.Transaction(true).Do(func(txn *database.Txn) error {
		return ledger.Initialize(txn, reputation.GenesisParams{
			Governor:   governor,
			Vault:      "vault",
			SignerKey:  signer.PublicKey(),
			BadgeTypes: testBadgeTypes,
		})
	})
	require.NoError(t, err)
	err = db.Transaction(true).Do(func(txn *database.Txn) error {
		_, err := ledger.Mint(txn, governor, "alice", 20)
		return err
	})
	assert.ErrorIs(t, err, reputation.ErrReentrancyDetected)
}

func TestGovernorOperations(t *testing.T) {
	f := newFixture(t)
	err := f.do(func(txn *database.Txn) error {
		return f.ledger.SetVerified(txn, governor, "nobody", true)
	})
	assert.ErrorIs(t, err, reputation.ErrNotMember)
	require.NoError(t, f.do(func(txn *database.Txn) error {
		return f.ledger.SetVerified(txn, governor, founder, true)
	}))
	verified, err := f.ledger.IsVerified(f.view(t), founder)
	require.NoError(t, err)
	assert.True(t, verified)

	// Stop vault deposits
	require.NoError(t, f.do(func(txn *database.Txn) error {
		return f.ledger.UpdateVault(txn, governor, "")
	}))
	_, err = f.mint(governor, "alice", 60)
	require.NoError(t, err)
	assert.Zero(t, f.vault.deposits["alice"])

	require.NoError(t, f.do(func(txn *database.Txn) error {
		return f.ledger.UpdateGovernor(txn, governor, "newgov")
	}))
	_, err = f.mint(governor, "alice", 10)
	assert.ErrorIs(t, err, reputation.ErrMintNotAuthorized)
	_, err = f.mint("newgov", "alice", 10)
	require.NoError(t, err)
	gov, err := f.ledger.Governor(f.view(t))
	require.NoError(t, err)
	assert.Equal(t, auth.Address("newgov"), gov)
}

func TestInvoke(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.do(func(txn *database.Txn) error {
		return f.ledger.Invoke(txn, governor, "set_badge_type", []string{"21", "40", "extra track"})
	}))
	require.NoError(t, f.do(func(txn *database.Txn) error {
		return f.ledger.Invoke(txn, governor, "mint", []string{"alice", "21"})
	}))
	level, err := f.ledger.LevelOf(f.view(t), "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(40), level)

	err = f.do(func(txn *database.Txn) error {
		return f.ledger.Invoke(txn, governor, "burn_everything", nil)
	})
	assert.ErrorIs(t, err, action.ErrUnknownOperation)
	err = f.do(func(txn *database.Txn) error {
		return f.ledger.Invoke(txn, governor, "revoke", []string{"x"})
	})
	assert.ErrorIs(t, err, action.ErrInvalidArguments)
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)
	_, err := f.mint(governor, "alice", 20)
	require.NoError(t, err)
	count, err := testutil.GatherAndCount(f.reg, "karn_reputation_badges_minted_total")
	require.NoError(t, err)
	// founder and track series
	assert.Equal(t, 2, count)
}
