// =================================
// File: internal/config/config_test.go
// =================================
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
rpc_list:
  - https://api.mainnet-beta.solana.com
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://api.mainnet-beta.solana.com"}, cfg.RPCList)
	assert.Equal(t, DefaultJupiterBaseURL, cfg.JupiterBaseURL)
	assert.Equal(t, DefaultPriceBaseURL, cfg.PriceBaseURL)
	assert.Equal(t, DefaultCashMint, cfg.CashMint)
	assert.Equal(t, DefaultDatabaseDSN, cfg.DatabaseDSN)
	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, DefaultCommitment, cfg.Commitment)
	assert.Equal(t, DefaultConfirmTimeoutMs, cfg.ConfirmTimeoutMs)
}

func TestLoadConfigExplicitValues(t *testing.T) {
	path := writeConfigFile(t, `
rpc_list:
  - https://rpc-one.example.com
  - https://rpc-two.example.com
jupiter_base_url: https://quote.example.com/v1
database_dsn: trades.db
listen_addr: ":8080"
commitment: finalized
confirm_timeout_ms: 60000
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Len(t, cfg.RPCList, 2)
	assert.Equal(t, "https://quote.example.com/v1", cfg.JupiterBaseURL)
	assert.Equal(t, "trades.db", cfg.DatabaseDSN)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "finalized", cfg.Commitment)
	assert.Equal(t, 60000, cfg.ConfirmTimeoutMs)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{
			name:    "empty rpc list",
			content: "listen_addr: \":4000\"\n",
			errMsg:  "rpc_list is empty",
		},
		{
			name: "non-http rpc url",
			content: `
rpc_list:
  - ftp://rpc.example.com
`,
			errMsg: "invalid RPC URL protocol",
		},
		{
			name: "invalid commitment",
			content: `
rpc_list:
  - https://rpc.example.com
commitment: instant
`,
			errMsg: "invalid commitment level",
		},
		{
			name: "invalid cash mint",
			content: `
rpc_list:
  - https://rpc.example.com
cash_mint: not-a-pubkey
`,
			errMsg: "invalid cash_mint public key",
		},
		{
			name: "non-positive confirm timeout",
			content: `
rpc_list:
  - https://rpc.example.com
confirm_timeout_ms: 0
`,
			errMsg: "invalid confirm_timeout_ms",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.content)

			_, err := LoadConfig(path)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `
rpc_list:
  - https://from-file.example.com
database_dsn: file.db
`)

	t.Setenv("SWAP_SERVICE_RPC_LIST", "https://env-one.example.com, https://env-two.example.com")
	t.Setenv("SWAP_SERVICE_DATABASE_DSN", "env.db")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://env-one.example.com", "https://env-two.example.com"}, cfg.RPCList)
	assert.Equal(t, "env.db", cfg.DatabaseDSN)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
