package kernel

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 16, cfg.MaxThreads)
	assert.Equal(t, 32, cfg.MaxThreadPriority)
	assert.Equal(t, 256, cfg.MinStackSize)
	assert.Equal(t, 100*time.Millisecond, cfg.ThreadTimeout)
}

func TestLoadConfigOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kernel.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
max_threads = 4
thread_timeout = "250ms"
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.MaxThreads)
	assert.Equal(t, 250*time.Millisecond, cfg.ThreadTimeout)
	// untouched fields keep their default
	assert.Equal(t, 32, cfg.MaxThreadPriority)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	var kerr *Error
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, CodeInvalidArg, kerr.Code)
}

func TestLoadConfigFullOverlayMatchesExpected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kernel.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
max_threads = 4
max_thread_priority = 8
min_stack_size = 512
thread_timeout = "250ms"
excl_section_timeout = "75ms"
excl_section_ack_timeout = "75ms"
excl_section_lock_timeout = "20ms"
tick_resolution = "2ms"
`), 0o600))

	got, err := LoadConfig(path)
	require.NoError(t, err)

	want := Config{
		MaxThreads:             4,
		MaxThreadPriority:      8,
		MinStackSize:           512,
		ThreadTimeout:          250 * time.Millisecond,
		ExclSectionTimeout:     75 * time.Millisecond,
		ExclSectionAckTimeout:  75 * time.Millisecond,
		ExclSectionLockTimeout: 20 * time.Millisecond,
		TickResolution:         2 * time.Millisecond,
	}
	// A full-struct comparison reads better as a diff than a field-by-field
	// assert.Equal chain, and catches a field the overlay forgot to set.
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadConfig result mismatch (-want +got):\n%s", diff)
	}
}

func TestOptionsOverrideDefaults(t *testing.T) {
	cfg := resolveOptions(DefaultConfig(), []Option{
		WithMaxThreads(8),
		WithTickResolution(2 * time.Millisecond),
		WithExclSectionTimeouts(time.Second, time.Second, time.Second),
	})
	assert.Equal(t, 8, cfg.MaxThreads)
	assert.Equal(t, 2*time.Millisecond, cfg.TickResolution)
	assert.Equal(t, time.Second, cfg.ExclSectionTimeout)
	assert.Equal(t, time.Second, cfg.ExclSectionAckTimeout)
	assert.Equal(t, time.Second, cfg.ExclSectionLockTimeout)
}
