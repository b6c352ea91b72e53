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

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "karn.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
databasePath: "/var/lib/karn"
genesisFile: "/etc/karn/genesis.yaml"
bindAddr: "127.0.0.1"
metricsPort: 9100
sweepSchedule: "*/5 * * * *"
shutdownTimeout: "5s"
badgerBlockCacheSize: 8388608
badgerIndexCacheSize: 4194304
debug: true
`)
	expected := &Config{
		DatabasePath:         "/var/lib/karn",
		GenesisFile:          "/etc/karn/genesis.yaml",
		BindAddr:             "127.0.0.1",
		SweepSchedule:        "*/5 * * * *",
		ShutdownTimeout:      "5s",
		MetricsPort:          9100,
		BadgerBlockCacheSize: 8388608,
		BadgerIndexCacheSize: 4194304,
		Debug:                true,
	}
	actual, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, expected, actual)
}

func TestLoadConfigDefaults(t *testing.T) {
	actual, err := LoadConfig(writeConfig(t, "{}\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), actual)
	timeout, err := actual.ShutdownTimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, timeout)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "databasePath: /from/file\nmetricsPort: 9100\n")
	t.Setenv("KARN_DATABASE_PATH", "/from/env")
	t.Setenv("KARN_METRICS_PORT", "9200")
	actual, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", actual.DatabasePath)
	assert.Equal(t, uint(9200), actual.MetricsPort)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "databasePath: [\n"},
		{"bad timeout", "shutdownTimeout: soon\n"},
		{"negative timeout", "shutdownTimeout: -1s\n"},
		{"bad schedule", "sweepSchedule: sometimes\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			require.Error(t, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	cfg := DefaultConfig()
	ctx := WithContext(context.Background(), cfg)
	assert.Same(t, cfg, FromContext(ctx))
}
