package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/runnerr0/webpersona/internal/config"
	"github.com/runnerr0/webpersona/internal/logger"
	"github.com/runnerr0/webpersona/internal/storage"
)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.String()
	}()

	fn()

	w.Close()
	os.Stdout = old
	return <-done
}

// newTestSession returns a session over a migrated in-memory store with
// default config.
func newTestSession(t *testing.T) *session {
	t.Helper()
	store, db, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
		db.Close()
	})

	return &session{
		cfg:    config.DefaultConfig(),
		log:    logger.Discard(),
		store:  store,
		db:     db,
		dbPath: ":memory:",
	}
}

// writeHistoryFile writes extension-format history items visited at now.
func writeHistoryFile(t *testing.T, now time.Time) string {
	t.Helper()
	ms := now.UnixMilli()
	body := fmt.Sprintf(`[
		{"url":"https://github.com/golang/go","title":"Go, the language","visitCount":10,"typedCount":2,"lastVisitTime":%d},
		{"url":"https://www.facebook.com/","title":"Facebook","visitCount":4,"typedCount":0,"lastVisitTime":%d},
		{"url":"https://unknown.example/a","title":"Unknown","visitCount":2,"typedCount":0,"lastVisitTime":%d},
		{"url":"https://old.example/","title":"Old","visitCount":99,"typedCount":0,"lastVisitTime":%d}
	]`, ms, ms, ms, now.AddDate(0, 0, -90).UnixMilli())

	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}
