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

package types

import (
	"encoding/binary"
	"slices"
)

// Key scopes. Each component owns one flat namespace in the blob store.
const (
	ReputationKeyScope = "rep"
	VaultKeyScope      = "vault"
	GovernorKeyScope   = "gov"
	AssetKeyScope      = "asset"
	SystemKeyScope     = "sys"
)

const keyScopeSeparator = 0x00

// KeyTag identifies a record kind within a scope. Singleton tags are used
// alone, parameterized tags are followed by an id or an account.
type KeyTag byte

func Uint64ToBytes(input uint64) []byte {
	ret := make([]byte, 8)
	binary.BigEndian.PutUint64(ret, input)
	return ret
}

func BytesToUint64(input []byte) uint64 {
	if len(input) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(input[len(input)-8:])
}

func scopePrefix(scope string, tag KeyTag) []byte {
	key := make([]byte, 0, len(scope)+2)
	key = append(key, scope...)
	key = append(key, keyScopeSeparator, byte(tag))
	return key
}

// encodeAccount length-prefixes the account so that one account's keys are
// never a prefix of another's
func encodeAccount(account string) []byte {
	ret := make([]byte, 0, binary.MaxVarintLen64+len(account))
	ret = binary.AppendUvarint(ret, uint64(len(account)))
	return append(ret, account...)
}

// SingletonKey returns the key of a fixed, per-scope record
func SingletonKey(scope string, tag KeyTag) []byte {
	return scopePrefix(scope, tag)
}

// IDKey returns the key of a record addressed by a numeric id
func IDKey(scope string, tag KeyTag, id uint64) []byte {
	return slices.Concat(scopePrefix(scope, tag), Uint64ToBytes(id))
}

// AccountKey returns the key of a record addressed by an account
func AccountKey(scope string, tag KeyTag, account string) []byte {
	return slices.Concat(scopePrefix(scope, tag), encodeAccount(account))
}

// AccountPrefix returns the prefix shared by all AccountUint64Key keys of an account
func AccountPrefix(scope string, tag KeyTag, account string) []byte {
	return AccountKey(scope, tag, account)
}

// AccountUint64Key returns the key of a record addressed by an account and
// a number. Big-endian encoding keeps keys of one account ordered by number.
func AccountUint64Key(
	scope string,
	tag KeyTag,
	account string,
	n uint64,
) []byte {
	return slices.Concat(AccountPrefix(scope, tag, account), Uint64ToBytes(n))
}

// AccountUint64PairKey extends AccountUint64Key with a second number that
// orders records sharing the first
func AccountUint64PairKey(
	scope string,
	tag KeyTag,
	account string,
	n, m uint64,
) []byte {
	return slices.Concat(AccountUint64Key(scope, tag, account, n), Uint64ToBytes(m))
}
