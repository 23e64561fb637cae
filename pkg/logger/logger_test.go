package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	return entry
}

func TestErrorCarriesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Level: zerolog.DebugLevel, Output: buf})

	ctx := log.WithRequestID(context.Background(), "req-123")
	ctx = log.WithFields(ctx, map[string]any{"vendor_id": "v-1", "lead_id": "l-9"})
	log.Error(ctx, "unlock.failed", errors.New("insufficient credits"))

	entry := decodeLine(t, buf)
	assert.Equal(t, "api", entry["service"])
	assert.Equal(t, "req-123", entry["request_id"])
	assert.Equal(t, "v-1", entry["vendor_id"])
	assert.Equal(t, "l-9", entry["lead_id"])
	assert.Equal(t, "insufficient credits", entry["error"])
	assert.Contains(t, entry, "stack")
}

func TestScopedFieldsDoNotLeak(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Output: buf})

	parent := log.WithUserID(context.Background(), "u-1")
	_ = log.WithActorRole(parent, "vendor")
	log.Info(parent, "hello")

	entry := decodeLine(t, buf)
	assert.Equal(t, "u-1", entry["user_id"])
	assert.NotContains(t, entry, "actor_role")
}

func TestWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{ServiceName: "api", Output: buf, WarnStack: true}).Warn(context.Background(), "slow")
	assert.Contains(t, decodeLine(t, buf), "stack")

	buf.Reset()
	New(Options{ServiceName: "api", Output: buf}).Warn(context.Background(), "slow")
	assert.NotContains(t, decodeLine(t, buf), "stack")
}

func TestLevelFilters(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Level: zerolog.WarnLevel, Output: buf})
	log.Debug(context.Background(), "hidden")
	log.Info(context.Background(), "hidden")
	assert.Zero(t, buf.Len())

	silent := New(Options{ServiceName: "api", Level: zerolog.Disabled, Output: buf})
	silent.Error(context.Background(), "hidden", errors.New("x"))
	assert.Zero(t, buf.Len())
}

func TestConsoleFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{ServiceName: "api", Format: "console", Output: buf}).Info(context.Background(), "ready")
	assert.Contains(t, buf.String(), "ready")
	assert.NotContains(t, buf.String(), `"message"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
}
