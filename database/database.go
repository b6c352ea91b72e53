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

package database

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/karn-labs/karn/database/blob"
	"github.com/karn-labs/karn/database/blob/badger"
	"github.com/karn-labs/karn/database/metadata"
	"github.com/karn-labs/karn/database/metadata/sqlite"
	"github.com/prometheus/client_golang/prometheus"
)

// Database coordinates the blob store, which holds component key-value
// state, and the metadata store, which holds proposal and lab records
type Database struct {
	logger         *slog.Logger
	promRegistry   prometheus.Registerer
	blob           blob.BlobStore
	metadata       metadata.MetadataStore
	dataDir        string
	blockCacheSize uint64
	indexCacheSize uint64
}

type DatabaseOptionFunc func(*Database)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) DatabaseOptionFunc {
	return func(d *Database) {
		d.logger = logger
	}
}

// WithDataDir specifies the data directory. An empty value keeps all data in memory
func WithDataDir(dataDir string) DatabaseOptionFunc {
	return func(d *Database) {
		d.dataDir = dataDir
	}
}

// WithPromRegistry specifies the prometheus registry to use for metrics
func WithPromRegistry(registry prometheus.Registerer) DatabaseOptionFunc {
	return func(d *Database) {
		d.promRegistry = registry
	}
}

// WithBlobCacheSizes specifies the badger block and index cache sizes
func WithBlobCacheSizes(blockCacheSize, indexCacheSize uint64) DatabaseOptionFunc {
	return func(d *Database) {
		d.blockCacheSize = blockCacheSize
		d.indexCacheSize = indexCacheSize
	}
}

// Blob returns the underling blob store instance
func (d *Database) Blob() blob.BlobStore {
	return d.blob
}

// DataDir returns the path to the data directory used for storage
func (d *Database) DataDir() string {
	return d.dataDir
}

// Logger returns the logger instance
func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// Metadata returns the underlying metadata store instance
func (d *Database) Metadata() metadata.MetadataStore {
	return d.metadata
}

// Transaction starts a new database transaction and returns a handle to it
func (d *Database) Transaction(readWrite bool) *Txn {
	return NewTxn(d, readWrite)
}

// Close cleans up the database connections
func (d *Database) Close() error {
	var err error
	if d.metadata != nil {
		err = errors.Join(err, d.metadata.Close())
	}
	if d.blob != nil {
		err = errors.Join(err, d.blob.Close())
	}
	return err
}

func (d *Database) init() error {
	// Check commit timestamp
	if err := d.checkCommitTimestamp(); err != nil {
		return err
	}
	return nil
}

// New creates a new database instance with optional persistence using the
// configured data directory
func New(opts ...DatabaseOptionFunc) (*Database, error) {
	db := &Database{}
	for _, opt := range opts {
		opt(db)
	}
	if db.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		db.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	metadataDb, err := sqlite.New(
		sqlite.WithLogger(db.logger),
		sqlite.WithDataDir(db.dataDir),
		sqlite.WithPromRegistry(db.promRegistry),
	)
	if err != nil {
		return nil, fmt.Errorf("open metadata store: %w", err)
	}
	db.metadata = metadataDb
	blobDb, err := badger.New(
		badger.WithLogger(db.logger),
		badger.WithDataDir(db.dataDir),
		badger.WithPromRegistry(db.promRegistry),
		badger.WithBlockCacheSize(db.blockCacheSize),
		badger.WithIndexCacheSize(db.indexCacheSize),
	)
	if err != nil {
		_ = metadataDb.Close()
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	db.blob = blobDb
	if err := db.init(); err != nil {
		// Database is available for recovery, so return it with error
		return db, err
	}
	return db, nil
}
