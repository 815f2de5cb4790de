package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/runnerr0/webpersona/internal/config"
	"github.com/runnerr0/webpersona/internal/engagement"
)

// maxHostRows bounds the host table in human output.
const maxHostRows = 15

// Execute implements the go-flags Commander interface for EngagementCommand.
func (c *EngagementCommand) Execute(args []string) error {
	since, err := config.Since(c.Since, time.Now())
	if err != nil {
		return err
	}

	sess, done, err := useSession(c.globals, c.sess)
	if err != nil {
		return err
	}
	defer done()

	d, err := engagement.NewService(sess.store, sess.log).Dashboard(context.Background(), since)
	if err != nil {
		return fmt.Errorf("engagement summary: %w", err)
	}

	if c.globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	}

	if d.Samples == 0 {
		fmt.Println("No engagement samples recorded in this window.")
		return nil
	}

	fmt.Println("Engagement Dashboard")
	fmt.Println("====================")
	fmt.Printf("Total time:    %d min\n", d.TotalMinutes)
	fmt.Printf("Avg scroll:    %d%%\n", d.AvgScroll)
	fmt.Printf("Clicks:        %s\n", formatNumber(d.TotalClicks))
	fmt.Printf("Unique sites:  %d\n", d.UniqueSites)
	fmt.Printf("Samples:       %d\n", d.Samples)

	cats := make([]string, 0, len(d.Categories))
	for cat := range d.Categories {
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool {
		if d.Categories[cats[i]] != d.Categories[cats[j]] {
			return d.Categories[cats[i]] > d.Categories[cats[j]]
		}
		return cats[i] < cats[j]
	})
	fmt.Println()
	fmt.Println("Categories:")
	for _, cat := range cats {
		fmt.Printf("  %-14s %d\n", cat, d.Categories[cat])
	}

	fmt.Println()
	fmt.Println("Top Hosts:")
	for i, h := range d.Hosts {
		if i == maxHostRows {
			fmt.Printf("  ... %d more\n", len(d.Hosts)-maxHostRows)
			break
		}
		fmt.Printf("  %-28s %7.1f min  scroll %3d%%  clicks %s\n",
			h.Hostname, float64(h.TimeSpent)/60000, h.ScrollDepth, formatNumber(h.Clicks))
	}
	return nil
}
