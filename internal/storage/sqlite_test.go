// ABOUTME: Tests for the SQLite-backed KV adapter
// ABOUTME: Covers round-trips, overwrites, and reopen persistence

package storage

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSQLite_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "widget.db")
	kv, err := NewSQLite(path, testLogger())
	require.NoError(t, err)
	defer kv.Close()

	_, ok := kv.Get("missing")
	assert.False(t, ok)

	kv.Set("a", "1")
	v, ok := kv.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	kv.Set("a", "2")
	v, _ = kv.Get("a")
	assert.Equal(t, "2", v)
}

func TestSQLite_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "widget.db")

	kv, err := NewSQLite(path, testLogger())
	require.NoError(t, err)
	kv.Set("session", "abc-123")
	require.NoError(t, kv.Close())

	reopened, err := NewSQLite(path, testLogger())
	require.NoError(t, err)
	defer reopened.Close()

	v, ok := reopened.Get("session")
	assert.True(t, ok)
	assert.Equal(t, "abc-123", v)
}

func TestSQLite_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "widget.db")
	kv, err := NewSQLite(path, testLogger())
	require.NoError(t, err)
	defer kv.Close()

	kv.Set("k", "v")
	v, ok := kv.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestMemory_RoundTrip(t *testing.T) {
	kv := NewMemory()

	_, ok := kv.Get("x")
	assert.False(t, ok)

	kv.Set("x", "y")
	v, ok := kv.Get("x")
	assert.True(t, ok)
	assert.Equal(t, "y", v)
	assert.Equal(t, 1, kv.Len())
}
