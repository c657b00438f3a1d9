package config

import (
	"testing"

	"github.com/GoPolymarket/buildmymeta/internal/pkg/apperrors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.True(t, cfg.Capture.Enabled)
	assert.Equal(t, "buildmymetalogs", cfg.Capture.LogDir)
	assert.Equal(t, 64*1024, cfg.Capture.MaxBodyBytes)
	assert.Contains(t, cfg.Capture.RedactHeaders, "authorization")
	assert.Equal(t, "sqlite", cfg.Sink.Kind)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestValidate(t *testing.T) {
	cfg := &Config{Sink: SinkConfig{Kind: "postgres"}}
	assert.True(t, apperrors.Is(cfg.Validate(), apperrors.ErrConfiguration), "identity is required")

	cfg.Capture.Identity = "orders-api"
	assert.NoError(t, cfg.Validate())

	cfg.Sink.Kind = "oracle"
	assert.True(t, apperrors.Is(cfg.Validate(), apperrors.ErrConfiguration))
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BUILDMYMETA_SINK_KIND", "neo4j")
	t.Setenv("BUILDMYMETA_CAPTURE_IDENTITY", "from-env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "neo4j", cfg.Sink.Kind)
	assert.Equal(t, "from-env", cfg.Capture.Identity)
}
