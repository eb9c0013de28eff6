package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
environment: test
research:
  base_url: http://research:9000
`

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 4, c.Pipeline.Concurrency)
	assert.Equal(t, "parallel", c.Pipeline.FastOrdering)
	assert.Equal(t, "dependency", c.Pipeline.DeepOrdering)
	assert.Equal(t, "http://research:9000", c.Research.CriticURL)
	assert.Equal(t, 10*time.Minute, c.Cache.TTL)
	assert.Equal(t, "forecast.progress", c.Kafka.ProgressTopic)
	assert.Equal(t, "foresight", c.ClickHouse.Database)
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing environment", "research:\n  base_url: http://x\n", "environment is required"},
		{"missing research url", "environment: test\n", "research.base_url is required"},
		{"bad ordering", minimalYAML + "pipeline:\n  fast_ordering: random\n", "pipeline ordering"},
		{"kafka without brokers", minimalYAML + "kafka:\n  enabled: true\n", "kafka.brokers"},
		{"consumer without kafka", minimalYAML + "kafka:\n  consumer:\n    enabled: true\n", "kafka.consumer requires"},
		{"cache without host", minimalYAML + "cache:\n  enabled: true\n", "cache.redis.host"},
		{"market data without url", minimalYAML + "market_data:\n  enabled: true\n", "market_data.base_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: test\nkafka:\n  enabled: true\n"), 0o600))

	t.Setenv("RESEARCH_URL", "http://env-research")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("HTTP_PORT", "9999")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "http://env-research", c.Research.BaseURL)
	assert.Equal(t, "http://env-research", c.Research.CriticURL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, 9999, c.Server.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}
