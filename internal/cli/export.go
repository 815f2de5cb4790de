package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/runnerr0/webpersona/internal/analysis"
	"github.com/runnerr0/webpersona/internal/export"
	"github.com/runnerr0/webpersona/internal/history"
	"github.com/runnerr0/webpersona/internal/storage"
)

// Execute implements the go-flags Commander interface for ExportCommand.
func (c *ExportCommand) Execute(args []string) error {
	var write func(io.Writer, export.Input) error
	switch c.Format {
	case "", "csv":
		c.Format, write = "csv", export.WriteCSV
	case "xlsx":
		write = export.WriteXLSX
	default:
		return fmt.Errorf("invalid --format %q (use csv or xlsx)", c.Format)
	}
	if c.Days < 0 {
		return fmt.Errorf("--days must not be negative")
	}
	if c.All && c.Days > 0 {
		return fmt.Errorf("--all and --days cannot be combined")
	}

	sess, done, err := useSession(c.globals, c.sess)
	if err != nil {
		return err
	}
	defer done()

	ctx := context.Background()
	now := time.Now()

	days := c.Days
	switch {
	case c.All:
		days = 0
	case days == 0:
		days = sess.cfg.Analysis.TimeframeDays
	}

	src, _, err := openSource(sess, c.Browser, c.HistoryFile)
	if err != nil {
		return err
	}
	records, err := src.Fetch(ctx, history.Query{Since: windowStart(now, days), Limit: sess.cfg.Analysis.MaxResults})
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}

	in := export.Input{ExportedAt: now, TimeframeDays: days, History: records}
	snap, err := sess.store.LastAnalysis(ctx)
	switch {
	case err == nil:
		in.Analysis = &snap.Result
	case errors.Is(err, storage.ErrNotFound):
		sess.log.Debug("no stored analysis; exporting raw history only")
	default:
		return err
	}

	out := c.Out
	if out == "" {
		out = fmt.Sprintf("webpersona-export-%s.%s", now.Format("20060102-150405"), c.Format)
	}
	if out == "-" {
		return write(os.Stdout, in)
	}

	f, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := write(f, in); err != nil {
		f.Close()
		return fmt.Errorf("write export: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close export file: %w", err)
	}

	return c.report(out, records, in.Analysis)
}

func (c *ExportCommand) report(path string, records []analysis.VisitRecord, a *analysis.Result) error {
	if c.globals.JSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"path":          path,
			"format":        c.Format,
			"records":       len(records),
			"with_analysis": a != nil,
		})
	}
	fmt.Printf("Exported %s history records to %s\n", formatNumber(int64(len(records))), path)
	if a == nil {
		fmt.Println("No stored analysis; run `webpersona analyze` to include one.")
	}
	return nil
}
