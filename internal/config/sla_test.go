package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickettally/ticket-engine/internal/domain"
)

func TestParseSLASeed(t *testing.T) {
	raw := []byte(`
sla:
  - priority: critical
    response_time_hours: 1
    resolution_time_hours: 4
  - priority: LOW
    response_time_hours: 24
    resolution_time_hours: 120
`)
	configs, err := ParseSLASeed(raw)
	require.NoError(t, err)
	require.Len(t, configs, 2)
	assert.Equal(t, domain.TicketPriorityCritical, configs[0].Priority)
	assert.Equal(t, 4, configs[0].ResolutionTimeHours)
	assert.Equal(t, domain.TicketPriorityLow, configs[1].Priority)
}

func TestParseSLASeedRejectsBadRows(t *testing.T) {
	cases := map[string]string{
		"unknown priority": "sla:\n  - priority: urgent\n    response_time_hours: 1\n    resolution_time_hours: 2\n",
		"duplicate":        "sla:\n  - priority: HIGH\n  - priority: high\n",
		"negative":         "sla:\n  - priority: HIGH\n    response_time_hours: -1\n",
		"not yaml":         "sla: [",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSLASeed([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestLoadSLASeed(t *testing.T) {
	configs, err := LoadSLASeed(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Nil(t, configs)

	configs, err = LoadSLASeed("")
	require.NoError(t, err)
	assert.Nil(t, configs)

	path := filepath.Join(t.TempDir(), "sla.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sla:\n  - priority: MEDIUM\n    response_time_hours: 8\n    resolution_time_hours: 48\n"), 0o600))
	configs, err = LoadSLASeed(path)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, 48, configs[0].ResolutionTimeHours)
}

func TestShippedSLASeedParses(t *testing.T) {
	configs, err := LoadSLASeed(filepath.Join("..", "..", "config", "sla.yaml"))
	require.NoError(t, err)
	assert.Len(t, configs, 4)
}
