package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/runnerr0/webpersona/internal/config"
	"github.com/runnerr0/webpersona/internal/server"
	"github.com/runnerr0/webpersona/internal/storage"
)

// Execute implements the go-flags Commander interface for IngestCommand.
func (c *IngestCommand) Execute(args []string) error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid --port %d", c.Port)
	}

	// The daemon logs at the configured level, not the interactive default.
	level := c.LogLevel
	if level == "" {
		cfg, err := loadConfig(c.globals)
		if err != nil {
			return err
		}
		level = cfg.Logging.Level
		if c.globals.Verbose {
			level = "debug"
		}
	}
	sess, err := openSession(c.globals, level)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := applyDenylist(ctx, sess.store, sess.cfg.Capture); err != nil {
		return err
	}
	if days := sess.cfg.Retention.EngagementDays; days > 0 {
		cutoff := time.Now().AddDate(0, 0, -days)
		n, err := sess.store.PruneEngagement(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("apply retention: %w", err)
		}
		if n > 0 {
			sess.log.WithField("pruned", n).WithField("retention_days", days).Info("retention applied")
		}
	}

	dc := sess.cfg.Daemon
	port := dc.Port
	if c.Port != 0 {
		port = c.Port
	}

	srv := server.New(sess.store, server.Options{
		Host:                  dc.Host,
		Port:                  port,
		AuthToken:             dc.AuthToken,
		MaxRequestSize:        int64(dc.MaxRequestSize),
		MaxHistoryRequestSize: int64(dc.MaxHistoryRequestSize),
		AllowedOrigins:        dc.AllowedOrigins,
		TimeframeDays:         sess.cfg.Analysis.TimeframeDays,
		MaxResults:            sess.cfg.Analysis.MaxResults,
		Version:               c.version,
		Log:                   sess.log,
	})

	fmt.Printf("webpersona daemon listening on http://%s (Ctrl-C to stop)\n", srv.Addr())
	return srv.Run(ctx)
}

// applyDenylist loads the built-in and configured capture denylists into
// the store so excluded hosts are never recorded.
func applyDenylist(ctx context.Context, store storage.Store, capture config.CaptureConfig) error {
	domains := append(config.DefaultDenylistDomains(), capture.DenylistDomains...)
	if err := store.AddExclusion(ctx, "domain", "Capture denylist", domains...); err != nil {
		return fmt.Errorf("apply domain denylist: %w", err)
	}
	if len(capture.DenylistRegex) > 0 {
		if err := store.AddExclusion(ctx, "regex", "Capture denylist", capture.DenylistRegex...); err != nil {
			return fmt.Errorf("apply regex denylist: %w", err)
		}
	}
	return nil
}
