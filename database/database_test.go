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

package database_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/karn-labs/karn/database"
	"github.com/karn-labs/karn/database/models"
	"github.com/karn-labs/karn/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRecord struct {
	Name   string
	Amount *big.Int
}

func newTestDatabase(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close() //nolint:errcheck
	})
	return db
}

func TestValueRoundTrip(t *testing.T) {
	db := newTestDatabase(t)
	key := types.AccountKey(types.VaultKeyScope, 1, "alice")
	huge, ok := new(big.Int).SetString("170141183460469231731687303715884105727", 10)
	require.True(t, ok)
	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		return txn.SetValue(key, testRecord{Name: "alice", Amount: huge})
	})
	require.NoError(t, err)

	txn := db.Transaction(false)
	defer txn.Release()
	var rec testRecord
	found, err := txn.GetValue(key, &rec)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "alice", rec.Name)
	assert.Equal(t, 0, huge.Cmp(rec.Amount))

	found, err = txn.GetValue(types.AccountKey(types.VaultKeyScope, 1, "bob"), &rec)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDoRollsBackBothStores(t *testing.T) {
	db := newTestDatabase(t)
	key := types.SingletonKey(types.SystemKeyScope, 1)
	errBoom := errors.New("boom")
	hookCalled := false
	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		txn.OnCommit(func() { hookCalled = true })
		if err := txn.SetValue(key, uint64(7)); err != nil {
			return err
		}
		if err := db.Metadata().SetProposal(
			&models.Proposal{ID: 1, Proposer: "alice"},
			txn.Metadata(),
		); err != nil {
			return err
		}
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)
	assert.False(t, hookCalled)

	txn := db.Transaction(false)
	defer txn.Release()
	found, err := txn.HasKey(key)
	require.NoError(t, err)
	assert.False(t, found)
	proposal, err := db.Metadata().GetProposal(1, txn.Metadata())
	require.NoError(t, err)
	assert.Nil(t, proposal)
}

func TestOnCommitRunsAfterCommit(t *testing.T) {
	db := newTestDatabase(t)
	key := types.SingletonKey(types.SystemKeyScope, 1)
	var seen bool
	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		txn.OnCommit(func() {
			check := db.Transaction(false)
			defer check.Release()
			seen, _ = check.HasKey(key)
		})
		return txn.SetValue(key, uint64(1))
	})
	require.NoError(t, err)
	assert.True(t, seen, "hook must observe committed state")
}

func TestReadOnlyTxnRejectsWrites(t *testing.T) {
	db := newTestDatabase(t)
	txn := db.Transaction(false)
	defer txn.Release()
	err := txn.SetValue(types.SingletonKey(types.SystemKeyScope, 1), uint64(1))
	assert.ErrorIs(t, err, types.ErrReadOnlyTxn)
}

func TestDeleteKey(t *testing.T) {
	db := newTestDatabase(t)
	key := types.IDKey(types.ReputationKeyScope, 3, 9)
	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		return txn.SetValue(key, "token")
	}))
	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		return txn.DeleteKey(key)
	}))
	txn := db.Transaction(false)
	defer txn.Release()
	found, err := txn.HasKey(key)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPersistentCommitTimestamp(t *testing.T) {
	dir := t.TempDir()
	db, err := database.New(database.WithDataDir(dir))
	require.NoError(t, err)
	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		return txn.SetValue(types.SingletonKey(types.SystemKeyScope, 1), uint64(1))
	}))
	require.NoError(t, db.Close())

	db, err = database.New(database.WithDataDir(dir))
	require.NoError(t, err)
	defer db.Close()
	metadataTs, err := db.Metadata().GetCommitTimestamp()
	require.NoError(t, err)
	blobTs, err := db.Blob().GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, metadataTs, blobTs)
	assert.Positive(t, metadataTs)
}

func TestCommitTimestampMismatch(t *testing.T) {
	dir := t.TempDir()
	db, err := database.New(database.WithDataDir(dir))
	require.NoError(t, err)
	// Advance only the metadata timestamp
	mdTxn := db.Metadata().Transaction()
	require.NoError(t, db.Metadata().SetCommitTimestamp(99, mdTxn))
	require.NoError(t, mdTxn.Commit())
	require.NoError(t, db.Close())

	db, err = database.New(database.WithDataDir(dir))
	require.Error(t, err)
	var tsErr database.CommitTimestampError
	require.ErrorAs(t, err, &tsErr)
	assert.Equal(t, int64(99), tsErr.MetadataTimestamp)
	require.NotNil(t, db)
	db.Close() //nolint:errcheck
}
