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

	"github.com/fxamacker/cbor/v2"
	"github.com/karn-labs/karn/database/types"
)

// GetValue decodes the CBOR value stored under key into dst. It reports
// false if the key does not exist.
func (t *Txn) GetValue(key []byte, dst any) (bool, error) {
	val, err := t.db.Blob().Get(t.blobTxn, key)
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := cbor.Unmarshal(val, dst); err != nil {
		return false, fmt.Errorf("decode value for key %x: %w", key, err)
	}
	return true, nil
}

// SetValue stores the CBOR encoding of val under key
func (t *Txn) SetValue(key []byte, val any) error {
	data, err := cbor.Marshal(val)
	if err != nil {
		return fmt.Errorf("encode value for key %x: %w", key, err)
	}
	return t.db.Blob().Set(t.blobTxn, key, data)
}

// HasKey reports whether a value is stored under key
func (t *Txn) HasKey(key []byte) (bool, error) {
	_, err := t.db.Blob().Get(t.blobTxn, key)
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DeleteKey removes the value stored under key
func (t *Txn) DeleteKey(key []byte) error {
	return t.db.Blob().Delete(t.blobTxn, key)
}

// NewIterator returns an iterator over the blob store. The caller must close it
// before the transaction finishes
func (t *Txn) NewIterator(opts types.BlobIteratorOptions) (types.BlobIterator, error) {
	return t.db.Blob().NewIterator(t.blobTxn, opts)
}

// DecodeValue decodes a CBOR value read from an iterator item
func DecodeValue(data []byte, dst any) error {
	return cbor.Unmarshal(data, dst)
}
