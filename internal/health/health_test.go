package health

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeginRunSerializes(t *testing.T) {
	tr := NewTracker(zerolog.Nop(), "")

	require.True(t, tr.BeginRun())
	assert.False(t, tr.BeginRun(), "second begin while busy must be refused")

	tr.EndRun()
	assert.True(t, tr.BeginRun())
}

func TestStatusSummary(t *testing.T) {
	tr := NewTracker(zerolog.Nop(), "")
	assert.Equal(t, "idle, no completed runs", tr.Status().Summary())

	tr.BeginRun()
	tr.SetStage("encoding slideshow")
	tr.SetTask("pass 1", 42)
	assert.Equal(t, "encoding slideshow: pass 1 (42%)", tr.Status().Summary())

	tr.MarkSuccess()
	tr.EndRun()
	assert.Contains(t, tr.Status().Summary(), "idle, last success")
}

func TestHeartbeatWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "heartbeat")
	tr := NewTracker(zerolog.Nop(), path)

	require.NoError(t, tr.Heartbeat())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestHeartbeatDisabled(t *testing.T) {
	tr := NewTracker(zerolog.Nop(), "")
	require.NoError(t, tr.Heartbeat())
}
