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

import (
	"github.com/karn-labs/karn/auth"
	"github.com/karn-labs/karn/database"
	"github.com/karn-labs/karn/internal/action"
)

// TargetName is the name proposal actions address the engine by
const TargetName = "governor"

// Invoke runs a governance action against the engine itself
func (e *Engine) Invoke(
	txn *database.Txn,
	caller auth.Address,
	operation string,
	args []string,
) error {
	a := action.Args(args)
	switch operation {
	case "update_config":
		if err := a.Expect(5); err != nil {
			return err
		}
		var vals [5]uint64
		for i := range vals {
			v, err := a.Uint64(i)
			if err != nil {
				return err
			}
			vals[i] = v
		}
		return e.UpdateConfig(txn, caller, Config{
			VotingDelay:             vals[0],
			VotingPeriod:            vals[1],
			ProposalThreshold:       vals[2],
			ApprovalPercentage:      vals[3],
			ParticipationPercentage: vals[4],
		})
	case "execute":
		if err := a.Expect(1); err != nil {
			return err
		}
		proposalID, err := a.Uint64(0)
		if err != nil {
			return err
		}
		return e.Execute(txn, proposalID)
	default:
		return action.Unknown(TargetName, operation)
	}
}
