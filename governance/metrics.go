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

package governance

import "github.com/prometheus/client_golang/prometheus"

type engineMetrics struct {
	proposalsCreated  prometheus.Counter
	votesCast         prometheus.Counter
	proposalsExecuted prometheus.Counter
}

func newEngineMetrics(registry prometheus.Registerer) *engineMetrics {
	m := &engineMetrics{
		proposalsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "karn_governance_proposals_created_total",
			Help: "proposals created",
		}),
		votesCast: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "karn_governance_votes_cast_total",
			Help: "votes cast",
		}),
		proposalsExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "karn_governance_proposals_executed_total",
			Help: "proposals executed",
		}),
	}
	registry.MustRegister(m.proposalsCreated, m.votesCast, m.proposalsExecuted)
	return m
}
