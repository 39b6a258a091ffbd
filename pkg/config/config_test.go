package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleConfig struct {
	Port    int      `env:"SAMPLE_PORT" envDefault:"8010"`
	Store   string   `env:"SAMPLE_STORE" envDefault:"memory"`
	Brokers []string `env:"SAMPLE_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	Tracing bool     `env:"SAMPLE_TRACING" envDefault:"false"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg sampleConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 8010, cfg.Port)
	assert.Equal(t, "memory", cfg.Store)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
	assert.False(t, cfg.Tracing)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("SAMPLE_PORT", "9090")
	t.Setenv("SAMPLE_STORE", "redis")
	t.Setenv("SAMPLE_BROKERS", "k1:9092,k2:9092")
	t.Setenv("SAMPLE_TRACING", "true")

	var cfg sampleConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "redis", cfg.Store)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Brokers)
	assert.True(t, cfg.Tracing)
}

func TestLoad_InvalidType(t *testing.T) {
	t.Setenv("SAMPLE_PORT", "not-a-number")

	var cfg sampleConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}
