package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/runnerr0/webpersona/internal/config"
	"github.com/runnerr0/webpersona/internal/history"
	"github.com/runnerr0/webpersona/internal/logger"
	"github.com/runnerr0/webpersona/internal/storage"
)

// session is what a command runs against: resolved config, a logger and
// the open store.
type session struct {
	cfg    *config.Config
	log    *logger.Logger
	store  storage.Store
	db     *sql.DB
	dbPath string

	closers []io.Closer
}

// Close releases the store, database and log file.
func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i].Close()
	}
}

// loadConfig resolves the config file. An unreadable default config falls
// back to built-in defaults; an explicit --config must load.
func loadConfig(g *GlobalFlags) (*config.Config, error) {
	if g.Config != "" {
		return config.Load(g.Config)
	}
	cfg, err := config.LoadOrCreate()
	if err != nil {
		return config.DefaultConfig(), nil
	}
	return cfg, nil
}

// openSession loads config and .env, sets up logging and opens the store.
// Interactive commands log at warn unless --verbose; level overrides both.
func openSession(g *GlobalFlags, level string) (*session, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}

	if level == "" {
		level = "warn"
		if g.Verbose {
			level = "debug"
		}
	}
	log, logCloser, err := logger.New(logger.Options{
		Level:  level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	})
	if err != nil {
		return nil, err
	}

	if err := config.LoadEnv(cfg.Insight.EnvFile); err != nil {
		log.WithError(err).Warn("env file not loaded")
	}

	dbPath := g.DB
	if dbPath == "" {
		if dbPath, err = cfg.DatabasePath(); err != nil {
			logCloser.Close()
			return nil, err
		}
	}

	store, db, err := storage.OpenWithOptions(dbPath, storage.Options{JournalMode: cfg.Storage.SQLiteJournalMode})
	if err != nil {
		logCloser.Close()
		return nil, err
	}
	log.WithField("db", dbPath).Debug("store opened")

	return &session{
		cfg:     cfg,
		log:     log,
		store:   store,
		db:      db,
		dbPath:  dbPath,
		closers: []io.Closer{logCloser, db, store},
	}, nil
}

// useSession returns the injected session or opens one. The returned func
// releases what was opened.
func useSession(g *GlobalFlags, injected *session) (*session, func(), error) {
	if injected != nil {
		return injected, func() {}, nil
	}
	s, err := openSession(g, "")
	if err != nil {
		return nil, nil, err
	}
	return s, s.Close, nil
}

// openSource picks the history source from flags, falling back to config.
func openSource(sess *session, browser, file string) (history.Source, string, error) {
	if browser == "" {
		browser = sess.cfg.History.Browser
	}
	path := file
	if path == "" {
		path = sess.cfg.History.Path
	}
	if path != "" {
		expanded, err := config.ExpandPath(path)
		if err != nil {
			return nil, "", err
		}
		path = expanded
		if strings.HasSuffix(strings.ToLower(path), ".json") {
			browser = history.BrowserJSON
		}
	}
	src, err := history.Open(browser, path, sess.log)
	if err != nil {
		return nil, "", err
	}
	return src, browser, nil
}

// windowStart converts a day count to the query lower bound; 0 means all.
func windowStart(now time.Time, days int) time.Time {
	if days <= 0 {
		return time.Time{}
	}
	return now.AddDate(0, 0, -days)
}

// confirm prints prompt and reports whether the reply is one of accept.
func confirm(in io.Reader, prompt string, accept ...string) (bool, error) {
	if in == nil {
		in = os.Stdin
	}
	fmt.Print(prompt)
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return false, fmt.Errorf("aborted: no input received")
	}
	reply := strings.TrimSpace(scanner.Text())
	for _, a := range accept {
		if reply == a {
			return true, nil
		}
	}
	return false, nil
}

// storedAPIKey returns the stored key, or "" when none is set.
func storedAPIKey(ctx context.Context, store storage.Store) (string, error) {
	key, err := store.GetAPIKey(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	return key, err
}

// formatDurationHuman formats a duration into a human-readable string like "30 days".
func formatDurationHuman(d time.Duration) string {
	days := int(d.Hours() / 24)
	if days > 0 {
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
	hours := int(d.Hours())
	if hours > 0 {
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return d.String()
}

// formatBytes formats a byte count into a human-readable string.
func formatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatNumber formats an int64 with comma separators.
func formatNumber(n int64) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var b strings.Builder
	head := len(s) % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteString(",")
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
