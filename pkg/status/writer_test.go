package status

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	clients   int
	decisions uint64
	start     time.Time
}

func (p *fakeProvider) ClientCount() int      { return p.clients }
func (p *fakeProvider) DecisionCount() uint64 { return p.decisions }
func (p *fakeProvider) StartTime() time.Time  { return p.start }

func TestWriteStartAndStopFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, time.Minute, "1.2.3")
	require.NoError(t, err)

	require.NoError(t, w.WriteStartFile())
	data, err := os.ReadFile(filepath.Join(dir, "last_start"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "version: 1.2.3")
	assert.Contains(t, string(data), "pid:")

	require.NoError(t, w.WriteStopFile("shutdown", 90*time.Second))
	data, err = os.ReadFile(filepath.Join(dir, "last_stop"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "reason: shutdown")
	assert.Contains(t, string(data), "uptime_seconds: 90")
}

func TestHeartbeatWritesRunningFile(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, 10*time.Millisecond, "dev")
	require.NoError(t, err)

	w.SetProvider(&fakeProvider{
		clients:   3,
		decisions: 17,
		start:     time.Now().Add(-time.Minute),
	})

	w.StartHeartbeat()
	defer w.Stop()

	path := filepath.Join(dir, "running")
	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, time.Second, 5*time.Millisecond)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tracked_clients: 3")
	assert.Contains(t, string(data), "decisions_total: 17")
}

func TestRunningFileWithoutProvider(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, time.Minute, "dev")
	require.NoError(t, err)

	require.NoError(t, w.writeRunningFile())
	data, err := os.ReadFile(filepath.Join(dir, "running"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "uptime_seconds: 0")
}

func TestNewCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "status")
	_, err := New(dir, time.Minute, "dev")
	require.NoError(t, err)

	fi, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, fi.IsDir())
}
