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

package node

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityLogWritesCommittedEvents(t *testing.T) {
	n, _ := newTestNode(t)
	var buf bytes.Buffer
	activity := NewActivityLog(n.EventBus(), slog.New(slog.NewJSONHandler(&buf, nil)))
	activity.Start()

	proposalID, err := n.Propose("alice", "logged", nil)
	require.NoError(t, err)
	// Rejected, so nothing is committed or logged
	_, err = n.Propose("nobody", "not logged", nil)
	require.Error(t, err)

	require.NoError(t, n.Close())
	activity.Stop()

	// Genesis events may or may not still have been queued at Start
	var lines []map[string]any
	scanner := bufio.NewScanner(&buf)
	scanner.Buffer(nil, 1<<20)
	for scanner.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		if line["msg"] == "proposal.created" {
			lines = append(lines, line)
		}
	}
	require.NoError(t, scanner.Err())
	require.Len(t, lines, 1)
	assert.Equal(t, "activity", lines[0]["component"])
	assert.NotEmpty(t, lines[0]["event_id"])
	data, ok := lines[0]["data"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, float64(proposalID), data["ProposalID"], 0)
	assert.Equal(t, "alice", data["Proposer"])
}

func TestActivityLogStopBeforeBus(t *testing.T) {
	n, _ := newTestNode(t)
	activity := NewActivityLog(n.EventBus(), nil)
	activity.Start()
	activity.Stop()
	// The bus keeps working for other subscribers
	_, err := n.Propose("alice", "after stop", nil)
	require.NoError(t, err)
}
