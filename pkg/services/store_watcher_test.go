package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ekaya-inc/ekaya-ask/pkg/testhelpers"
)

func TestStoreWatcher_InvalidatesOnWrite(t *testing.T) {
	path := testhelpers.NewSalesStore(t)
	provider := NewSnapshotProvider(newTestCatalog(t, path, DefaultCatalogConfig()), nil, nil)
	watcher := NewStoreWatcher(path, provider, 20*time.Millisecond, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()

	// Writes may land before the watch is registered, so keep writing.
	require.Eventually(t, func() bool {
		testhelpers.ExecSQLite(t, path, `INSERT INTO sales VALUES ('sprocket', 27, 1)`)
		return provider.Generation() > 0
	}, 5*time.Second, 100*time.Millisecond)

	snapshot, err := provider.Get(context.Background())
	require.NoError(t, err)
	assert.Greater(t, snapshot.TotalRows(), int64(len(testhelpers.SalesRows)))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestStoreWatcher_IgnoresOtherFiles(t *testing.T) {
	path := testhelpers.NewSalesStore(t)
	provider := NewSnapshotProvider(newTestCatalog(t, path, DefaultCatalogConfig()), nil, nil)
	watcher := NewStoreWatcher(path, provider, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = watcher.Run(ctx) }()

	other := filepath.Join(filepath.Dir(path), "notes.txt")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(other, []byte("x"), 0o600))
		time.Sleep(20 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, uint64(0), provider.Generation())
}

func TestStoreWatcher_Relevant(t *testing.T) {
	w := NewStoreWatcher("/data/store.db", nil, 0, nil)
	assert.Equal(t, DefaultWatchDebounce, w.debounce)

	tests := []struct {
		name string
		op   fsnotify.Op
		want bool
	}{
		{"/data/store.db", fsnotify.Write, true},
		{"/data/store.db-wal", fsnotify.Write, true},
		{"/data/store.db-journal", fsnotify.Create, true},
		{"/data/store.db", fsnotify.Remove, true},
		{"/data/store.db-shm", fsnotify.Write, false},
		{"/data/store.db", fsnotify.Chmod, false},
		{"/data/other.db", fsnotify.Write, false},
	}
	for _, tt := range tests {
		if got := w.relevant(fsnotify.Event{Name: tt.name, Op: tt.op}); got != tt.want {
			t.Errorf("relevant(%s %s) = %v, want %v", tt.op, tt.name, got, tt.want)
		}
	}
}
