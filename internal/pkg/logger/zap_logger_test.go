package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger_ModuleAndDetails(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core))

	l.Info("IngestService", "document ingested", map[string]interface{}{"passages": 3})
	l.Error("ChatService", "generation failed", map[string]interface{}{"error": errors.New("boom")})
	l.Debug("ChatService", "no details", nil)

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)

	first := entries[0].ContextMap()
	assert.Equal(t, "IngestService", first["module"])
	assert.Equal(t, map[string]interface{}{"passages": 3}, first["details"])

	assert.Contains(t, entries[1].ContextMap(), "error_ref")
	assert.Equal(t, map[string]interface{}{}, entries[2].ContextMap()["details"])
}

func TestZapLogger_Named(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := FromZap(zap.New(core))

	l.Named("vectorindex").Info("vector snapshot saved", zap.Int("passages", 2))

	require.Equal(t, 1, logs.Len())
	ctx := logs.All()[0].ContextMap()
	assert.Equal(t, "vectorindex", ctx["module"])
	assert.EqualValues(t, 2, ctx["passages"])
}
