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

package vault

import (
	"fmt"
	"math/big"
)

// Virtual offsets added to the share and asset totals before converting.
// They keep the exchange rate defined at zero supply and make donating
// assets to skew the rate for the next depositor unprofitable.
const (
	VirtualShares int64 = 1000
	VirtualAssets int64 = 1
)

// DefaultMinInitialDeposit is the least number of shares the first deposit
// into an empty vault may create
const DefaultMinInitialDeposit int64 = 10

var (
	// MaxAmount is the largest amount the vault accepts (2^127 - 1)
	MaxAmount = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	// MinAmount is the smallest amount the vault accepts (-2^127)
	MinAmount = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
)

// ConvertToAssets returns the assets a number of shares is worth, rounded
// down
func ConvertToAssets(shares, totalAssets, totalShares *big.Int) *big.Int {
	num := new(big.Int).Add(totalAssets, big.NewInt(VirtualAssets))
	num.Mul(num, shares)
	den := new(big.Int).Add(totalShares, big.NewInt(VirtualShares))
	return num.Div(num, den)
}

// ConvertToShares returns the shares an amount of assets is worth, rounded
// down
func ConvertToShares(assets, totalAssets, totalShares *big.Int) *big.Int {
	num := new(big.Int).Add(totalShares, big.NewInt(VirtualShares))
	num.Mul(num, assets)
	den := new(big.Int).Add(totalAssets, big.NewInt(VirtualAssets))
	return num.Div(num, den)
}

func checkRange(v *big.Int) error {
	if v.Cmp(MaxAmount) > 0 || v.Cmp(MinAmount) < 0 {
		return fmt.Errorf("%w: %s", ErrMathOverflow, v)
	}
	return nil
}

// checkPositive validates an amount passed in by a caller
func checkPositive(v *big.Int) error {
	if v == nil || v.Sign() <= 0 {
		return ErrZeroAmount
	}
	return checkRange(v)
}

func checkedAdd(a, b *big.Int) (*big.Int, error) {
	ret := new(big.Int).Add(a, b)
	if err := checkRange(ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func checkedSub(a, b *big.Int) (*big.Int, error) {
	ret := new(big.Int).Sub(a, b)
	if err := checkRange(ret); err != nil {
		return nil, err
	}
	return ret, nil
}
