package history

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/runnerr0/webpersona/internal/logger"
)

// snapshotMaxElapsed bounds how long a locked history file is retried.
var snapshotMaxElapsed = 5 * time.Second

// snapshotDB copies a SQLite database (and its WAL, if present) into a temp
// directory. Browsers keep their history open with exclusive locks; copying
// is retried with exponential backoff while the file is busy. A missing file
// fails immediately.
func snapshotDB(ctx context.Context, path string, log *logger.Logger) (string, func(), error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil, fmt.Errorf("history database not found: %s", path)
		}
		return "", nil, fmt.Errorf("stat history database: %w", err)
	}

	dir, err := os.MkdirTemp("", "webpersona-history-")
	if err != nil {
		return "", nil, fmt.Errorf("create snapshot directory: %w", err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	dst := filepath.Join(dir, filepath.Base(path))

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxElapsedTime = snapshotMaxElapsed

	attempt := 0
	operation := func() error {
		attempt++
		if err := copyFile(path, dst); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return backoff.Permanent(err)
			}
			log.WithError(err).WithField("attempt", attempt).Warn("history database busy, retrying")
			return err
		}
		// The WAL holds recent visits not yet checkpointed into the main file.
		if err := copyFile(path+"-wal", dst+"-wal"); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("snapshot history database: %w", err)
	}

	return dst, cleanup, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
