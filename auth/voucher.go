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

package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrNonceReused      = errors.New("nonce already used")
	ErrSignatureExpired = errors.New("signature expired")
)

// Voucher purposes. The purpose is part of the signed payload so a
// registration voucher can never be replayed as a mint voucher.
const (
	PurposeRegister = "karn/register/v1"
	PurposeMint     = "karn/mint/v1"
)

// Voucher is an off-line authorization signed by the backend signer key
type Voucher struct {
	Account   Address `json:"account"`
	BadgeID   uint64  `json:"badgeId,omitempty"`
	Nonce     uint64  `json:"nonce"`
	Expiry    uint64  `json:"expiry"`
	Signature []byte  `json:"signature"`
}

// Digest returns the blake2b-256 hash of the voucher payload for the given
// purpose. The badge id is only bound for mint vouchers
func (v *Voucher) Digest(purpose string) [32]byte {
	buf := make([]byte, 0, len(purpose)+len(v.Account)+32)
	buf = append(buf, purpose...)
	buf = binary.AppendUvarint(buf, uint64(len(v.Account)))
	buf = append(buf, v.Account...)
	if purpose == PurposeMint {
		buf = binary.BigEndian.AppendUint64(buf, v.BadgeID)
	}
	buf = binary.BigEndian.AppendUint64(buf, v.Nonce)
	buf = binary.BigEndian.AppendUint64(buf, v.Expiry)
	return blake2b.Sum256(buf)
}

// CheckExpiry returns ErrSignatureExpired once now is past the voucher expiry
func (v *Voucher) CheckExpiry(now uint64) error {
	if now > v.Expiry {
		return fmt.Errorf(
			"%w: expiry %d, now %d",
			ErrSignatureExpired,
			v.Expiry,
			now,
		)
	}
	return nil
}

// Verify checks the voucher signature against the signer public key
func (v *Voucher) Verify(purpose string, pubKey ed25519.PublicKey) error {
	if len(pubKey) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: bad public key length %d", ErrInvalidSignature, len(pubKey))
	}
	digest := v.Digest(purpose)
	if !ed25519.Verify(pubKey, digest[:], v.Signature) {
		return ErrInvalidSignature
	}
	return nil
}

// Signer issues vouchers. It lives in the backend that vets members
type Signer struct {
	key ed25519.PrivateKey
}

// NewSigner creates a signer from a 32 byte ed25519 seed
func NewSigner(seed []byte) (*Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("signer seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &Signer{key: ed25519.NewKeyFromSeed(seed)}, nil
}

// GenerateSigner creates a signer with a random key
func GenerateSigner() (*Signer, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &Signer{key: key}, nil
}

func (s *Signer) PublicKey() ed25519.PublicKey {
	return s.key.Public().(ed25519.PublicKey)
}

// Seed returns the private key seed
func (s *Signer) Seed() []byte {
	return s.key.Seed()
}

// SignRegistration issues a self-registration voucher
func (s *Signer) SignRegistration(account Address, nonce, expiry uint64) Voucher {
	v := Voucher{Account: account, Nonce: nonce, Expiry: expiry}
	s.sign(&v, PurposeRegister)
	return v
}

// SignMint issues a voucher for minting one badge to account
func (s *Signer) SignMint(account Address, badgeID, nonce, expiry uint64) Voucher {
	v := Voucher{Account: account, BadgeID: badgeID, Nonce: nonce, Expiry: expiry}
	s.sign(&v, PurposeMint)
	return v
}

func (s *Signer) sign(v *Voucher, purpose string) {
	digest := v.Digest(purpose)
	v.Signature = ed25519.Sign(s.key, digest[:])
}
