package logging_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/debugd/internal/logging"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &logging.Config{}
	cfg.ApplyDefaults()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
}

func TestValidate(t *testing.T) {
	cfg := &logging.Config{Level: "debug", Format: "console"}
	assert.NoError(t, cfg.Validate())

	bad := &logging.Config{Level: "info", Format: "xml"}
	assert.Error(t, bad.Validate())

	bad = &logging.Config{Level: "loud", Format: "json"}
	assert.Error(t, bad.Validate())
}

func TestNew(t *testing.T) {
	logger, err := logging.New(&logging.Config{
		Level:  "warn",
		Format: "json",
		Fields: map[string]string{"service": "debugd"},
	})
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := logging.New(&logging.Config{Level: "loud"})
	require.Error(t, err)
}
