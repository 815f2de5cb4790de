package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/runnerr0/webpersona/internal/analysis"
	"github.com/runnerr0/webpersona/internal/history"
	"github.com/runnerr0/webpersona/internal/storage"
)

// Execute implements the go-flags Commander interface for AnalyzeCommand.
func (c *AnalyzeCommand) Execute(args []string) error {
	if c.Days < 0 {
		return fmt.Errorf("--days must not be negative")
	}
	if c.All && c.Days > 0 {
		return fmt.Errorf("--all and --days cannot be combined")
	}
	if c.Limit < 0 {
		return fmt.Errorf("--limit must not be negative")
	}

	sess, done, err := useSession(c.globals, c.sess)
	if err != nil {
		return err
	}
	defer done()

	ctx := context.Background()

	days := c.Days
	switch {
	case c.All:
		days = 0
	case days == 0:
		days = sess.cfg.Analysis.TimeframeDays
	}
	limit := c.Limit
	if limit == 0 {
		limit = sess.cfg.Analysis.MaxResults
	}

	src, browser, err := openSource(sess, c.Browser, c.HistoryFile)
	if err != nil {
		return err
	}

	start := time.Now()
	records, err := src.Fetch(ctx, history.Query{Since: windowStart(start, days), Limit: limit})
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}

	snap := &storage.Snapshot{TimeframeDays: days, Result: analysis.Analyze(records)}
	if err := sess.store.SaveAnalysis(ctx, snap); err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	detail := fmt.Sprintf("source=%s id=%s records=%d", browser, snap.ID, len(records))
	if err := sess.store.Audit(ctx, storage.AuditAnalysis, detail); err != nil {
		sess.log.WithError(err).Warn("audit analysis failed")
	}
	sess.log.WithField("records", len(records)).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Debug("analysis complete")

	if c.globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	fmt.Printf("Analyzed %s history records from %s.\n\n", formatNumber(int64(len(records))), browser)
	printSnapshot(snap)
	return nil
}
