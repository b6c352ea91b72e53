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

package clock_test

import (
	"testing"
	"time"

	"github.com/karn-labs/karn/clock"
	"github.com/stretchr/testify/assert"
)

func TestManual(t *testing.T) {
	c := clock.NewManual(100)
	assert.Equal(t, uint64(100), c.Now())
	c.Advance(50)
	assert.Equal(t, uint64(150), c.Now())
	c.Set(10)
	assert.Equal(t, uint64(10), c.Now())
}

func TestSystem(t *testing.T) {
	now := uint64(time.Now().Unix()) //nolint:gosec
	assert.InDelta(t, float64(now), float64(clock.System{}.Now()), 2)
}
