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

package reputation

import "github.com/prometheus/client_golang/prometheus"

type ledgerMetrics struct {
	badgesMinted  *prometheus.CounterVec
	badgesRevoked *prometheus.CounterVec
}

func newLedgerMetrics(registry prometheus.Registerer) *ledgerMetrics {
	m := &ledgerMetrics{
		badgesMinted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "karn_reputation_badges_minted_total",
				Help: "badges minted by category",
			},
			[]string{"category"},
		),
		badgesRevoked: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "karn_reputation_badges_revoked_total",
				Help: "badges revoked by category",
			},
			[]string{"category"},
		),
	}
	registry.MustRegister(m.badgesMinted, m.badgesRevoked)
	return m
}
