package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/runnerr0/webpersona/internal/analysis"
	"github.com/runnerr0/webpersona/internal/config"
	"github.com/runnerr0/webpersona/internal/insight"
	"github.com/runnerr0/webpersona/internal/storage"
)

// Execute implements the go-flags Commander interface for InsightCommand.
func (c *InsightCommand) Execute(args []string) error {
	if c.Days < 0 {
		return fmt.Errorf("--days must not be negative")
	}

	sess, done, err := useSession(c.globals, c.sess)
	if err != nil {
		return err
	}
	defer done()

	ctx := context.Background()

	snap, err := sess.store.LastAnalysis(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("no analysis yet: run `webpersona analyze` first")
		}
		return err
	}

	days := c.Days
	if days == 0 {
		days = snap.TimeframeDays
	}
	summary := analysis.Summarize(snap.Result, days)

	stored, err := storedAPIKey(ctx, sess.store)
	if err != nil {
		return err
	}
	key, err := insight.ResolveKey(c.APIKey, stored, config.EnvAPIKey())
	if err != nil {
		return fmt.Errorf("%w: store one with `webpersona key --set <key>` or set %s", err, config.APIKeyEnv)
	}

	if !c.Yes {
		if err := c.preview(summary, sess.cfg.Insight.Endpoint); err != nil {
			return err
		}
		ok, err := confirm(c.stdin, "Send this summary? [y/N]: ", "y", "Y", "yes")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Aborted. Nothing was sent.")
			return nil
		}
	}

	gen := c.gen
	if gen == nil {
		ic := sess.cfg.Insight
		gen = insight.NewClient(insight.Options{
			Endpoint:    ic.Endpoint,
			Model:       ic.Model,
			MaxTokens:   ic.MaxTokens,
			Temperature: ic.Temperature,
			Timeout:     time.Duration(ic.TimeoutSeconds) * time.Second,
			Log:         sess.log,
		})
	}

	detail := fmt.Sprintf("snapshot=%s sites=%d", snap.ID, len(summary.TopSites))
	if err := sess.store.Audit(ctx, storage.AuditInsightRequest, detail); err != nil {
		sess.log.WithError(err).Warn("audit insight request failed")
	}

	text, err := gen.Generate(ctx, summary, key)
	if err != nil {
		return fmt.Errorf("generate insight: %w", err)
	}
	if err := sess.store.SetLastInsight(ctx, text); err != nil {
		return fmt.Errorf("save insight: %w", err)
	}

	if c.globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]string{"snapshot_id": snap.ID, "insight": text})
	}
	fmt.Println(text)
	return nil
}

// preview shows exactly what would leave the machine.
func (c *InsightCommand) preview(s analysis.Summary, endpoint string) error {
	body, err := json.MarshalIndent(insight.NewPayload(s), "", "  ")
	if err != nil {
		return err
	}
	if endpoint == "" {
		endpoint = insight.DefaultEndpoint
	}
	fmt.Printf("The following aggregated summary will be sent to %s:\n\n%s\n\n", endpoint, body)
	fmt.Println("No URLs, page titles or timestamps are included.")
	return nil
}
