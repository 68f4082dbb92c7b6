package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Run("Should write at the configured level", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(&Config{Level: InfoLevel, Output: &buf})

		log.Debug("hidden")
		log.Info("shown", "key", "value")

		out := buf.String()
		assert.NotContains(t, out, "hidden")
		assert.Contains(t, out, "shown")
		assert.Contains(t, out, "value")
	})

	t.Run("Should fall back to defaults for a nil config", func(t *testing.T) {
		assert.NotNil(t, NewLogger(nil))
	})

	t.Run("Should emit JSON when configured", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(&Config{Level: InfoLevel, Output: &buf, JSON: true})

		log.Info("structured", "key", "value")

		line := strings.TrimSpace(buf.String())
		assert.True(t, strings.HasPrefix(line, "{"), "expected JSON output, got %q", line)
	})

	t.Run("Should carry fields added with With", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(&Config{Level: InfoLevel, Output: &buf})

		log.With("component", "registry").Info("ready")

		assert.Contains(t, buf.String(), "registry")
	})
}

func TestNewNop(t *testing.T) {
	t.Run("Should discard all output", func(t *testing.T) {
		log := NewNop()
		require.NotNil(t, log)
		log.Info("anything")
		log.Error("anything")
	})
}

func TestContext(t *testing.T) {
	t.Run("Should round-trip the logger through context", func(t *testing.T) {
		log := NewNop()
		ctx := ContextWithLogger(context.Background(), log)
		assert.Same(t, log, FromContext(ctx))
	})

	t.Run("Should fall back to a default logger", func(t *testing.T) {
		assert.NotNil(t, FromContext(context.Background()))
		assert.NotNil(t, FromContext(nil)) //nolint:staticcheck // exercising the nil guard
	})
}
