package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/runnerr0/webpersona/internal/config"
)

// pruneJSON is the JSON output structure for the prune command.
type pruneJSON struct {
	Pruned    int64  `json:"pruned"`
	OlderThan string `json:"older_than"`
	Cutoff    string `json:"cutoff"`
	DryRun    bool   `json:"dry_run"`
}

// Execute implements the go-flags Commander interface for PruneCommand.
func (c *PruneCommand) Execute(args []string) error {
	sess, done, err := useSession(c.globals, c.sess)
	if err != nil {
		return err
	}
	defer done()

	window := c.OlderThan
	if window == "" {
		days := sess.cfg.Retention.EngagementDays
		if days <= 0 {
			return fmt.Errorf("retention is disabled in config; pass --older-than")
		}
		window = fmt.Sprintf("%dd", days)
	}
	age, err := config.ParseDuration(window)
	if err != nil {
		return err
	}

	ctx := context.Background()
	cutoff := time.Now().Add(-age)

	count, err := sess.store.CountEngagementBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("count engagement: %w", err)
	}

	if c.DryRun {
		return c.report(count, window, cutoff, true, age)
	}

	if count == 0 {
		return c.report(0, window, cutoff, false, age)
	}

	if !c.Force {
		prompt := fmt.Sprintf("Delete %s engagement samples older than %s? Proceed? [y/N]: ",
			formatNumber(count), formatDurationHuman(age))
		ok, err := confirm(c.stdin, prompt, "y", "Y", "yes")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Aborted.")
			return nil
		}
	}

	pruned, err := sess.store.PruneEngagement(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune engagement: %w", err)
	}
	return c.report(pruned, window, cutoff, false, age)
}

func (c *PruneCommand) report(n int64, window string, cutoff time.Time, dryRun bool, age time.Duration) error {
	if c.globals.JSON {
		return json.NewEncoder(os.Stdout).Encode(pruneJSON{
			Pruned:    n,
			OlderThan: window,
			Cutoff:    cutoff.UTC().Format(time.RFC3339),
			DryRun:    dryRun,
		})
	}

	switch {
	case dryRun:
		fmt.Printf("[DRY RUN] Would prune %s engagement samples older than %s\n", formatNumber(n), formatDurationHuman(age))
	case n == 0:
		fmt.Printf("No engagement samples to prune (older than %s)\n", formatDurationHuman(age))
	default:
		fmt.Printf("Pruned %s engagement samples older than %s\n", formatNumber(n), formatDurationHuman(age))
	}
	return nil
}
