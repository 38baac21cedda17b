// Package logger_test verifies logger construction and configuration handling.
package logger_test

import (
	"testing"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/repokit/logger"
	"github.com/rise-and-shine/repokit/val"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("zero config gets defaults", func(t *testing.T) {
		log, err := logger.New(logger.Config{})
		require.NoError(t, err)
		require.NotNil(t, log)
	})

	t.Run("invalid level is rejected", func(t *testing.T) {
		_, err := logger.New(logger.Config{Level: "verbose"})
		require.Error(t, err)
		assert.True(t, errx.IsCodeIn(err, val.CodeValidationFailed))
	})

	t.Run("invalid encoding is rejected", func(t *testing.T) {
		_, err := logger.New(logger.Config{Encoding: "logfmt"})
		require.Error(t, err)
		assert.True(t, errx.IsCodeIn(err, val.CodeValidationFailed))
	})

	t.Run("console encoding builds", func(t *testing.T) {
		log, err := logger.New(logger.Config{Encoding: logger.EncodingConsole, Level: "error"})
		require.NoError(t, err)
		log.Debug("below the configured level, never emitted")
	})

	t.Run("disable yields a silent logger", func(t *testing.T) {
		log, err := logger.New(logger.Config{Disable: true})
		require.NoError(t, err)
		log.Info("goes nowhere")
		assert.NoError(t, log.Sync())
	})
}

func TestLoggerChaining(t *testing.T) {
	log := logger.NewNop()

	derived := log.With("component", "memstore").Named("store")
	require.NotNil(t, derived)

	derived.Debugw("noop", "key", "value")
	derived.Warnx(errx.New("boom", errx.WithCode("TEST_CODE")))
	derived.Errorx(assert.AnError)
	assert.NoError(t, derived.Sync())
}
