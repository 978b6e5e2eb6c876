package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Capacity = 4
	cfg.Threads = 4
	cfg.Keys = 256
	cfg.Ops = 1000
	return cfg
}

func TestRun(t *testing.T) {
	t.Parallel()

	for _, strategy := range []string{"optimistic", "pessimistic"} {
		t.Run(strategy, func(t *testing.T) {
			t.Parallel()

			cfg := smallConfig()
			cfg.Strategy = strategy
			report, err := Run(cfg)
			require.NoError(t, err)

			assert.Equal(t, uint64(cfg.Threads*cfg.Ops), report.Ops())
			assert.Positive(t, report.Inserts)
			assert.Positive(t, report.Height)
			assert.LessOrEqual(t, report.Present, cfg.Keys)
			assert.Positive(t, report.TreeStats.Splits)
		})
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := smallConfig()
	cfg.Threads = 0
	_, err := Run(cfg)
	assert.Error(t, err)
}

func TestGenerateKeys(t *testing.T) {
	t.Parallel()

	a := GenerateKeys(100, 5)
	assert.Equal(t, a, GenerateKeys(100, 5), "same seed, same order")
	assert.NotEqual(t, a, GenerateKeys(100, 6))

	seen := make(map[string]bool, len(a))
	for _, key := range a {
		seen[key] = true
	}
	assert.Len(t, seen, 100)
}

func TestRootCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{
		"--capacity", "4", "--threads", "2", "--keys", "64", "--ops", "200", "--log-level", "warn",
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "operations   400")
	assert.Contains(t, out.String(), "splits")
}
