package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/runnerr0/webpersona/internal/storage"
)

// Execute implements the go-flags Commander interface for OpenCommand.
func (c *OpenCommand) Execute(args []string) error {
	switch c.Format {
	case "", "full", "json", "md":
	default:
		return fmt.Errorf("invalid --format %q (use full, json or md)", c.Format)
	}

	sess, done, err := useSession(c.globals, c.sess)
	if err != nil {
		return err
	}
	defer done()

	ctx := context.Background()

	var snap *storage.Snapshot
	if c.ID != "" {
		snap, err = sess.store.GetAnalysis(ctx, c.ID)
	} else {
		snap, err = sess.store.LastAnalysis(ctx)
	}
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			if c.ID != "" {
				return fmt.Errorf("analysis not found: %s", c.ID)
			}
			return fmt.Errorf("no analysis yet: run `webpersona analyze` first")
		}
		return err
	}

	if c.globals.JSON || c.Format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	if c.Format == "md" {
		printSnapshotMarkdown(snap)
		return nil
	}
	printSnapshot(snap)
	return nil
}

func printSnapshot(snap *storage.Snapshot) {
	r := snap.Result
	fmt.Println(snap.ID)
	fmt.Printf("Created:      %s\n", snap.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	if snap.TimeframeDays > 0 {
		fmt.Printf("Timeframe:    %d days\n", snap.TimeframeDays)
	} else {
		fmt.Println("Timeframe:    all history")
	}
	fmt.Printf("Personality:  %s\n", r.Personality)
	fmt.Printf("Privacy:      %s\n", r.Privacy)
	fmt.Printf("Behavior:     %s\n", r.Behavior)
	fmt.Printf("Sites:        %s\n", formatNumber(int64(r.Stats.TotalSites)))
	fmt.Printf("Visits:       %s\n", formatNumber(r.Stats.TotalVisits))
	fmt.Printf("Scores:       social %d%%  tech %d%%  privacy %d%%\n",
		r.Stats.SocialScore, r.Stats.TechScore, r.Stats.PrivacyScore)

	if len(r.AnalyzedSites) > 0 {
		fmt.Println()
		fmt.Println("Top Sites:")
		for _, s := range r.AnalyzedSites {
			fmt.Printf("  %-28s %8s  %-12s %s\n", s.Domain, formatNumber(s.Visits), s.Category, s.Personality)
		}
	}

	fmt.Println()
	fmt.Println(r.Insight)
}

func printSnapshotMarkdown(snap *storage.Snapshot) {
	r := snap.Result
	fmt.Println("---")
	fmt.Printf("id: %s\n", snap.ID)
	fmt.Printf("created: %s\n", snap.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"))
	fmt.Printf("timeframe_days: %d\n", snap.TimeframeDays)
	fmt.Println("---")
	fmt.Println()
	fmt.Println("# Browsing Persona")
	fmt.Println()
	fmt.Printf("- **Personality:** %s\n", r.Personality)
	fmt.Printf("- **Privacy:** %s\n", r.Privacy)
	fmt.Printf("- **Behavior:** %s\n", r.Behavior)
	fmt.Printf("- **Sites / visits:** %d / %d\n", r.Stats.TotalSites, r.Stats.TotalVisits)
	fmt.Printf("- **Scores:** social %d%%, tech %d%%, privacy %d%%\n",
		r.Stats.SocialScore, r.Stats.TechScore, r.Stats.PrivacyScore)

	if len(r.AnalyzedSites) > 0 {
		fmt.Println()
		fmt.Println("## Top Sites")
		fmt.Println()
		fmt.Println("| Domain | Visits | Category | Personality | Privacy |")
		fmt.Println("|---|---:|---|---|---|")
		for _, s := range r.AnalyzedSites {
			fmt.Printf("| %s | %d | %s | %s | %s |\n", s.Domain, s.Visits, s.Category, s.Personality, s.Privacy)
		}
	}

	fmt.Println()
	fmt.Println(r.Insight)
}
