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

import "github.com/prometheus/client_golang/prometheus"

type vaultMetrics struct {
	deposits               prometheus.Counter
	transfers              prometheus.Counter
	withdrawals            prometheus.Counter
	scholarshipWithdrawals prometheus.Counter
}

func newVaultMetrics(registry prometheus.Registerer) *vaultMetrics {
	m := &vaultMetrics{
		deposits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "karn_vault_deposits_total",
			Help: "share deposits into the vault",
		}),
		transfers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "karn_vault_transfers_total",
			Help: "governance transfers out of the vault",
		}),
		withdrawals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "karn_vault_withdrawals_total",
			Help: "governance share redemptions",
		}),
		scholarshipWithdrawals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "karn_vault_scholarship_withdrawals_total",
			Help: "scholarship claims paid out",
		}),
	}
	registry.MustRegister(
		m.deposits,
		m.transfers,
		m.withdrawals,
		m.scholarshipWithdrawals,
	)
	return m
}
