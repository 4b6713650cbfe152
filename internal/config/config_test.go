package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TomeMD/LeveragingLeverage/internal/strategy"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("full config", func(t *testing.T) {
		path := writeConfig(t, `
app:
  env: prod
  log_level: debug
  http_addr: ":8080"
  max_concurrent_runs: 4
data:
  csv_path: /data/gspc.csv
  ticker: "^GSPC"
strategy:
  initial_capital: 20000
  debt_yield: 0.04
  thresholds:
    - dd: -0.10
      fraction: 0.05
      tier: x2
    - dd: -0.30
      fraction: 0.10
      tier: x3
  yields:
    x2:
      mode: auto
    x3:
      mode: num
      value: 0.5
  rotate: true
  risk_control: true
evaluation:
  workers: 8
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "prod", cfg.App.Env)
		assert.Equal(t, ":8080", cfg.App.HTTPAddr)
		assert.Equal(t, 4, cfg.App.MaxConcurrentRuns)
		assert.Equal(t, "/data/gspc.csv", cfg.Data.CSVPath)
		assert.InDelta(t, 20000, cfg.Strategy.InitialCapital, 1e-9)
		assert.True(t, cfg.Strategy.Rotate)
		assert.Equal(t, 8, cfg.Eval.Workers)

		settings := cfg.Strategy.ToSettings()
		require.NoError(t, settings.Validate())
		assert.Equal(t, []string{"x2", "x3"}, settings.Tiers())
		assert.Equal(t, strategy.YieldAuto, settings.Yield("x2").Mode)
		assert.InDelta(t, 0.5, settings.Yield("x3").Value, 1e-9)
	})

	t.Run("defaults fill the gaps", func(t *testing.T) {
		path := writeConfig(t, `
data:
  csv_path: /data/gspc.csv
strategy:
  template: x2_30_x3_70
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "dev", cfg.App.Env)
		assert.Equal(t, "info", cfg.App.LogLevel)
		assert.Equal(t, ":9991", cfg.App.HTTPAddr)
		assert.Equal(t, 2, cfg.App.MaxConcurrentRuns)
		assert.Equal(t, "^GSPC", cfg.Data.Ticker)
		assert.InDelta(t, 10000, cfg.Strategy.InitialCapital, 1e-9)
		assert.InDelta(t, 0.0325, cfg.Strategy.DebtYield, 1e-9)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load("/nonexistent/config.yaml")
		assert.Error(t, err)
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := Load("")
		assert.Error(t, err)
	})
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			"bad log level",
			"app:\n  log_level: loud\ndata:\n  csv_path: /data/gspc.csv\n",
			"app.log_level",
		},
		{
			"missing csv path",
			"strategy:\n  template: x2_100\n",
			"data.csv_path",
		},
		{
			"template and thresholds",
			`
data:
  csv_path: /data/gspc.csv
strategy:
  template: x2_100
  thresholds:
    - dd: -0.10
      fraction: 0.05
      tier: x2
`,
			"mutually exclusive",
		},
		{
			"invalid ladder",
			`
data:
  csv_path: /data/gspc.csv
strategy:
  thresholds:
    - dd: 0.10
      fraction: 0.05
      tier: x2
`,
			"strategy:",
		},
		{
			"negative debt yield",
			`
data:
  csv_path: /data/gspc.csv
strategy:
  debt_yield: -1
`,
			"debt_yield",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
