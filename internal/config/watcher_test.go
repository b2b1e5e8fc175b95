package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ravel.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_rewinds: 3\n"), 0644))

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	defer w.Stop()

	reloaded := make(chan *Config, 4)
	require.NoError(t, w.Start(func(cfg *Config, err error) {
		if err == nil {
			reloaded <- cfg
		}
	}))

	require.NoError(t, os.WriteFile(path, []byte("max_rewinds: 7\n"), 0644))

	select {
	case cfg := <-reloaded:
		require.Equal(t, 7, cfg.MaxRewinds)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}
