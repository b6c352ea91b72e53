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

package vault_test

import (
	"math/big"
	"testing"

	"github.com/karn-labs/karn/asset"
	"github.com/karn-labs/karn/auth"
	"github.com/karn-labs/karn/clock"
	"github.com/karn-labs/karn/database"
	"github.com/karn-labs/karn/database/models"
	"github.com/karn-labs/karn/internal/action"
	"github.com/karn-labs/karn/vault"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	reputationAddr = auth.Address("rep")
	governor       = auth.Address("gov")
	funder         = auth.Address("funder")
	recipient      = auth.Address("student")
)

type fixture struct {
	db     *database.Database
	vault  *vault.Vault
	assets *asset.KVLedger
	reg    *prometheus.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close() //nolint:errcheck
	})
	f := &fixture{
		db:     db,
		assets: asset.NewKVLedger(),
		reg:    prometheus.NewRegistry(),
	}
	f.vault = vault.New(
		vault.WithAssetLedger(f.assets),
		vault.WithClock(clock.NewManual(1_700_000_000)),
		vault.WithPromRegistry(f.reg),
	)
	require.NoError(t, f.do(func(txn *database.Txn) error {
		return f.vault.Initialize(txn, vault.GenesisParams{
			Reputation: reputationAddr,
			Governor:   governor,
		})
	}))
	return f
}

func (f *fixture) do(fn func(*database.Txn) error) error {
	return f.db.Transaction(true).Do(fn)
}

// read runs fn in a read-only transaction that is released right after
func read[T any](t *testing.T, f *fixture, fn func(*database.Txn) (T, error)) T {
	t.Helper()
	txn := f.db.Transaction(false)
	defer txn.Release()
	ret, err := fn(txn)
	require.NoError(t, err)
	return ret
}

func (f *fixture) mintAssets(t *testing.T, to auth.Address, amount int64) {
	t.Helper()
	require.NoError(t, f.do(func(txn *database.Txn) error {
		return f.assets.Mint(txn, to, big.NewInt(amount))
	}))
}

func (f *fixture) deposit(receiver auth.Address, shares int64) error {
	return f.do(func(txn *database.Txn) error {
		return f.vault.Deposit(txn, reputationAddr, receiver, big.NewInt(shares))
	})
}

func (f *fixture) fundLab(total, perRecipient int64) (uint64, error) {
	var labID uint64
	err := f.do(func(txn *database.Txn) error {
		var err error
		labID, err = f.vault.FundLab(txn, funder, big.NewInt(total), big.NewInt(perRecipient))
		return err
	})
	return labID, err
}

func (f *fixture) approve(labID uint64, to auth.Address) error {
	return f.do(func(txn *database.Txn) error {
		return f.vault.ApproveScholarship(txn, governor, labID, to)
	})
}

func (f *fixture) sharesOf(t *testing.T, account auth.Address) int64 {
	return read(t, f, func(txn *database.Txn) (*big.Int, error) {
		return f.vault.SharesOf(txn, account)
	}).Int64()
}

func (f *fixture) balanceOf(t *testing.T, account auth.Address) int64 {
	return read(t, f, func(txn *database.Txn) (*big.Int, error) {
		return f.assets.Balance(txn, account)
	}).Int64()
}

func (f *fixture) restricted(t *testing.T) int64 {
	return read(t, f, f.vault.RestrictedReserve).Int64()
}

func (f *fixture) claimable(t *testing.T, account auth.Address) int64 {
	return read(t, f, func(txn *database.Txn) (*big.Int, error) {
		return f.vault.ClaimableOf(txn, account)
	}).Int64()
}

func (f *fixture) lab(t *testing.T, labID uint64) *models.Lab {
	return read(t, f, func(txn *database.Txn) (*models.Lab, error) {
		return f.vault.Lab(txn, labID)
	})
}

func TestInitialize(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, governor, read(t, f, f.vault.Governor))
	assert.Equal(t, reputationAddr, read(t, f, f.vault.Reputation))
	assert.Equal(
		t,
		vault.DefaultMinInitialDeposit,
		read(t, f, f.vault.MinInitialDeposit).Int64(),
	)
	err := f.do(func(txn *database.Txn) error {
		return f.vault.Initialize(txn, vault.GenesisParams{
			Reputation: reputationAddr,
			Governor:   governor,
		})
	})
	assert.ErrorIs(t, err, vault.ErrAlreadyInitialized)
}

func TestNotInitialized(t *testing.T) {
	db, err := database.New()
	require.NoError(t, err)
	defer db.Close()
	v := vault.New()
	err = db.Transaction(true).Do(func(txn *database.Txn) error {
		return v.Deposit(txn, reputationAddr, "u", big.NewInt(100))
	})
	assert.ErrorIs(t, err, vault.ErrNotInitialized)
	err = db.Transaction(true).Do(func(txn *database.Txn) error {
		_, err := v.FundLab(txn, funder, big.NewInt(100), big.NewInt(10))
		return err
	})
	assert.ErrorIs(t, err, vault.ErrNotInitialized)
}

func TestDepositScenario(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.deposit("u", 1000))
	require.NoError(t, f.deposit("u", 500))
	assert.Equal(t, int64(1500), f.sharesOf(t, "u"))
	assert.Equal(t, int64(1500), read(t, f, f.vault.TotalShares).Int64())

	// An empty vault values shares at nothing
	assets := read(t, f, func(txn *database.Txn) (*big.Int, error) {
		return f.vault.ConvertToAssets(txn, big.NewInt(1500))
	})
	assert.Equal(t, int64(0), assets.Int64())

	f.mintAssets(t, vault.DefaultAddress, 2500)
	// 1500 * 2501 / 2500
	assets = read(t, f, func(txn *database.Txn) (*big.Int, error) {
		return f.vault.PreviewWithdraw(txn, big.NewInt(1500))
	})
	assert.Equal(t, int64(1500), assets.Int64())
	// 1 * 2501 / 2500 rounds down
	assets = read(t, f, func(txn *database.Txn) (*big.Int, error) {
		return f.vault.ConvertToAssets(txn, big.NewInt(1))
	})
	assert.Equal(t, int64(1), assets.Int64())
	assert.Equal(t, int64(2500), read(t, f, f.vault.TotalAssets).Int64())
}

func TestDepositRules(t *testing.T) {
	f := newFixture(t)
	err := f.do(func(txn *database.Txn) error {
		return f.vault.Deposit(txn, "mallory", "mallory", big.NewInt(1000))
	})
	assert.ErrorIs(t, err, vault.ErrNotAuthorized)
	assert.ErrorIs(t, f.deposit("u", 0), vault.ErrZeroAmount)
	assert.ErrorIs(t, f.deposit("u", -5), vault.ErrZeroAmount)
	assert.ErrorIs(t, f.deposit("u", 5), vault.ErrBelowMinimumDeposit)
	require.NoError(t, f.deposit("u", 10))
	// The minimum only applies to the first deposit
	require.NoError(t, f.deposit("v", 1))
	assert.Equal(t, int64(11), read(t, f, f.vault.TotalShares).Int64())
}

func TestDepositOverflow(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.do(func(txn *database.Txn) error {
		return f.vault.Deposit(txn, reputationAddr, "whale", vault.MaxAmount)
	}))
	assert.ErrorIs(t, f.deposit("u", 1), vault.ErrMathOverflow)
	tooLarge := new(big.Int).Add(vault.MaxAmount, big.NewInt(1))
	err := f.do(func(txn *database.Txn) error {
		return f.vault.Deposit(txn, reputationAddr, "u", tooLarge)
	})
	assert.ErrorIs(t, err, vault.ErrMathOverflow)
	assert.Zero(t, f.sharesOf(t, "u"))
}

func TestConversionNeverCreatesValue(t *testing.T) {
	testDefs := []struct {
		totalAssets int64
		totalShares int64
	}{
		{0, 0},
		{1, 0},
		{0, 1500},
		{2500, 1500},
		{7, 1_000_000},
		{1_000_000, 7},
		{999_999_937, 12_345},
	}
	for _, testDef := range testDefs {
		totalAssets := big.NewInt(testDef.totalAssets)
		totalShares := big.NewInt(testDef.totalShares)
		for _, x := range []int64{0, 1, 2, 3, 999, 1000, 1001, 123_456_789} {
			amount := big.NewInt(x)
			shares := vault.ConvertToShares(amount, totalAssets, totalShares)
			back := vault.ConvertToAssets(shares, totalAssets, totalShares)
			assert.LessOrEqual(
				t,
				back.Cmp(amount),
				0,
				"assets=%d shares=%d x=%d",
				testDef.totalAssets,
				testDef.totalShares,
				x,
			)
			assert.GreaterOrEqual(t, back.Sign(), 0)
		}
	}
}

func TestTransfer(t *testing.T) {
	f := newFixture(t)
	f.mintAssets(t, vault.DefaultAddress, 1000)
	f.mintAssets(t, funder, 5000)
	_, err := f.fundLab(5000, 1000)
	require.NoError(t, err)

	transfer := func(caller auth.Address, amount int64) error {
		return f.do(func(txn *database.Txn) error {
			return f.vault.Transfer(txn, caller, "payee", big.NewInt(amount))
		})
	}
	assert.ErrorIs(t, transfer("mallory", 10), vault.ErrNotAuthorized)
	assert.ErrorIs(t, transfer(governor, 0), vault.ErrZeroAmount)
	// Lab funds are restricted and cannot be spent
	assert.ErrorIs(t, transfer(governor, 1001), vault.ErrInsufficientAssets)
	require.NoError(t, transfer(governor, 400))
	require.NoError(t, transfer(governor, 600))
	assert.Equal(t, int64(1000), f.balanceOf(t, "payee"))
	assert.Equal(t, int64(5000), f.balanceOf(t, vault.DefaultAddress))
	assert.Equal(t, int64(0), read(t, f, f.vault.TotalAssets).Int64())
	assert.ErrorIs(t, transfer(governor, 1), vault.ErrInsufficientAssets)
}

func TestWithdraw(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.deposit("u", 1000))
	withdraw := func(caller auth.Address, shares int64) (*big.Int, error) {
		var assets *big.Int
		err := f.do(func(txn *database.Txn) error {
			var err error
			assets, err = f.vault.Withdraw(txn, caller, "u", "payee", big.NewInt(shares))
			return err
		})
		return assets, err
	}
	_, err := withdraw("u", 100)
	assert.ErrorIs(t, err, vault.ErrNotAuthorized)
	_, err = withdraw(governor, 100)
	assert.ErrorIs(t, err, vault.ErrInsufficientAssets, "shares of an empty vault are worthless")
	_, err = withdraw(governor, 1001)
	assert.ErrorIs(t, err, vault.ErrInsufficientShares)

	f.mintAssets(t, vault.DefaultAddress, 2000)
	// 500 * 2001 / 2000
	assets, err := withdraw(governor, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(500), assets.Int64())
	assert.Equal(t, int64(500), f.sharesOf(t, "u"))
	assert.Equal(t, int64(500), read(t, f, f.vault.TotalShares).Int64())
	assert.Equal(t, int64(500), f.balanceOf(t, "payee"))
	assert.Equal(t, int64(1500), f.balanceOf(t, vault.DefaultAddress))
}

func TestEscrowScenario(t *testing.T) {
	f := newFixture(t)
	f.mintAssets(t, funder, 10000)
	labID, err := f.fundLab(10000, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), labID)
	assert.Equal(t, int64(10000), f.restricted(t))
	assert.Equal(t, int64(10000), f.balanceOf(t, vault.DefaultAddress))
	assert.Equal(t, int64(0), f.balanceOf(t, funder))

	require.NoError(t, f.approve(labID, recipient))
	assert.Equal(t, int64(1000), f.claimable(t, recipient))
	assert.Equal(t, int64(10000), f.balanceOf(t, vault.DefaultAddress))
	assert.Equal(t, int64(1000), f.lab(t, labID).AllocatedAmount.Int64())

	require.NoError(t, f.do(func(txn *database.Txn) error {
		return f.vault.WithdrawScholarship(txn, recipient, big.NewInt(1000))
	}))
	assert.Equal(t, int64(0), f.claimable(t, recipient))
	assert.Equal(t, int64(9000), f.restricted(t))
	assert.Equal(t, int64(1000), f.balanceOf(t, recipient))
	assert.Equal(t, int64(9000), f.balanceOf(t, vault.DefaultAddress))

	err = f.do(func(txn *database.Txn) error {
		return f.vault.WithdrawScholarship(txn, recipient, big.NewInt(1))
	})
	assert.ErrorIs(t, err, vault.ErrInsufficientClaimable)
}

func TestLabLifecycle(t *testing.T) {
	f := newFixture(t)
	f.mintAssets(t, funder, 4500)
	full, err := f.fundLab(2000, 1000)
	require.NoError(t, err)
	partial, err := f.fundLab(2500, 1000)
	require.NoError(t, err)

	assert.ErrorIs(
		t,
		f.do(func(txn *database.Txn) error {
			return f.vault.ApproveScholarship(txn, "mallory", full, recipient)
		}),
		vault.ErrNotAuthorized,
	)
	require.NoError(t, f.approve(full, "a"))
	require.NoError(t, f.approve(full, "b"))
	assert.Equal(t, models.LabStatusCompleted, f.lab(t, full).Status)
	assert.ErrorIs(t, f.approve(full, "c"), vault.ErrLabNotActive)

	require.NoError(t, f.approve(partial, "a"))
	require.NoError(t, f.approve(partial, "b"))
	assert.ErrorIs(t, f.approve(partial, "c"), vault.ErrLabExhausted)
	assert.Equal(t, models.LabStatusActive, f.lab(t, partial).Status)
	assert.Equal(t, int64(2000), f.claimable(t, "a"))

	var refund *big.Int
	require.NoError(t, f.do(func(txn *database.Txn) error {
		var err error
		refund, err = f.vault.CancelLab(txn, governor, partial)
		return err
	}))
	assert.Equal(t, int64(500), refund.Int64())
	assert.Equal(t, int64(500), f.balanceOf(t, funder))
	assert.Equal(t, models.LabStatusCancelled, f.lab(t, partial).Status)
	// Approved scholarships stay reserved for their recipients
	assert.Equal(t, int64(4000), f.restricted(t))
	assert.Equal(t, int64(4000), f.balanceOf(t, vault.DefaultAddress))

	err = f.do(func(txn *database.Txn) error {
		_, err := f.vault.CancelLab(txn, governor, partial)
		return err
	})
	assert.ErrorIs(t, err, vault.ErrLabNotActive)
	err = f.do(func(txn *database.Txn) error {
		_, err := f.vault.CancelLab(txn, governor, 99)
		return err
	})
	assert.ErrorIs(t, err, vault.ErrUnknownLab)

	labs := read(t, f, f.vault.Labs)
	assert.Len(t, labs, 2)
}

func TestFundLabValidation(t *testing.T) {
	f := newFixture(t)
	f.mintAssets(t, funder, 100)
	_, err := f.fundLab(100, 101)
	assert.ErrorIs(t, err, vault.ErrInvalidLab)
	_, err = f.fundLab(0, 0)
	assert.ErrorIs(t, err, vault.ErrZeroAmount)
	_, err = f.fundLab(1000, 100)
	assert.ErrorIs(t, err, asset.ErrInsufficientBalance)
	assert.Zero(t, f.restricted(t))

	// Failed attempts must not consume lab ids
	labID, err := f.fundLab(100, 50)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), labID)
}

func TestRestrictedReserveBoundedByBalance(t *testing.T) {
	f := newFixture(t)
	f.mintAssets(t, funder, 3000)
	f.mintAssets(t, vault.DefaultAddress, 500)
	check := func() {
		t.Helper()
		assert.LessOrEqual(t, f.restricted(t), f.balanceOf(t, vault.DefaultAddress))
	}
	labID, err := f.fundLab(3000, 1000)
	require.NoError(t, err)
	check()
	require.NoError(t, f.approve(labID, recipient))
	check()
	require.NoError(t, f.do(func(txn *database.Txn) error {
		return f.vault.Transfer(txn, governor, "payee", big.NewInt(500))
	}))
	check()
	require.NoError(t, f.do(func(txn *database.Txn) error {
		return f.vault.WithdrawScholarship(txn, recipient, big.NewInt(400))
	}))
	check()
	require.NoError(t, f.do(func(txn *database.Txn) error {
		_, err := f.vault.CancelLab(txn, governor, labID)
		return err
	}))
	check()
	assert.Equal(t, int64(600), f.restricted(t))
}

func TestInvoke(t *testing.T) {
	f := newFixture(t)
	f.mintAssets(t, vault.DefaultAddress, 1000)
	f.mintAssets(t, funder, 1000)
	labID, err := f.fundLab(1000, 500)
	require.NoError(t, err)

	invoke := func(op string, args ...string) error {
		return f.do(func(txn *database.Txn) error {
			return f.vault.Invoke(txn, governor, op, args)
		})
	}
	require.NoError(t, invoke("transfer", "payee", "250"))
	require.NoError(t, invoke("approve_scholarship", "1", string(recipient)))
	require.NoError(t, invoke("cancel_lab", "1"))
	assert.Equal(t, models.LabStatusCancelled, f.lab(t, labID).Status)
	assert.Equal(t, int64(250), f.balanceOf(t, "payee"))
	assert.Equal(t, int64(500), f.claimable(t, recipient))

	assert.ErrorIs(t, invoke("transfer", "payee", "lots"), action.ErrInvalidArguments)
	assert.ErrorIs(t, invoke("mint_money"), action.ErrUnknownOperation)
	require.NoError(t, invoke("update_governor", "newgov"))
	assert.ErrorIs(t, invoke("transfer", "payee", "1"), vault.ErrNotAuthorized)
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.deposit("u", 1000))
	assert.ErrorIs(t, f.deposit("u", 0), vault.ErrZeroAmount)
	count, err := testutil.GatherAndCount(f.reg, "karn_vault_deposits_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
