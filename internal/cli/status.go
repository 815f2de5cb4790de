package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/runnerr0/webpersona/internal/config"
	"github.com/runnerr0/webpersona/internal/storage"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version           string          `json:"version"`
	DatabasePath      string          `json:"database_path"`
	DatabaseSizeBytes int64           `json:"database_size_bytes"`
	SchemaVersion     int             `json:"schema_version"`
	TotalAnalyses     int64           `json:"total_analyses"`
	LastAnalysis      *lastAnalysisJS `json:"last_analysis,omitempty"`
	TotalEngagement   int64           `json:"total_engagement"`
	OldestEngagement  string          `json:"oldest_engagement,omitempty"`
	NewestEngagement  string          `json:"newest_engagement,omitempty"`
	RetentionDays     int             `json:"retention_days"`
	KeyConfigured     bool            `json:"key_configured"`
	KeySource         string          `json:"key_source,omitempty"`
	TopHosts          []hostCountJSON `json:"top_hosts"`
	DaemonAddr        string          `json:"daemon_addr"`
	DaemonRunning     bool            `json:"daemon_running"`
}

type lastAnalysisJS struct {
	ID          string `json:"id"`
	CreatedAt   string `json:"created_at"`
	Personality string `json:"personality"`
	Privacy     string `json:"privacy"`
	Behavior    string `json:"behavior"`
}

type hostCountJSON struct {
	Hostname string `json:"hostname"`
	Count    int64  `json:"count"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	sess, done, err := useSession(c.globals, c.sess)
	if err != nil {
		return err
	}
	defer done()

	ctx := context.Background()

	stats, err := sess.store.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	out := statusJSON{
		Version:           c.version,
		DatabasePath:      sess.dbPath,
		DatabaseSizeBytes: stats.DatabaseSizeBytes,
		TotalAnalyses:     stats.TotalAnalyses,
		TotalEngagement:   stats.TotalEngagement,
		RetentionDays:     sess.cfg.Retention.EngagementDays,
		TopHosts:          make([]hostCountJSON, len(stats.TopHosts)),
		DaemonAddr:        net.JoinHostPort(sess.cfg.Daemon.Host, strconv.Itoa(sess.cfg.Daemon.Port)),
	}
	if sess.db != nil {
		if v, err := storage.NewMigrationRunner(sess.db).Version(); err == nil {
			out.SchemaVersion = v
		}
	}
	if stats.TotalEngagement > 0 {
		out.OldestEngagement = stats.OldestEngagement.UTC().Format(time.RFC3339)
		out.NewestEngagement = stats.NewestEngagement.UTC().Format(time.RFC3339)
	}
	for i, h := range stats.TopHosts {
		out.TopHosts[i] = hostCountJSON{Hostname: h.Hostname, Count: h.Count}
	}

	switch {
	case stats.KeyConfigured:
		out.KeyConfigured, out.KeySource = true, "stored"
	case config.EnvAPIKey() != "":
		out.KeyConfigured, out.KeySource = true, "env"
	}

	last, err := sess.store.LastAnalysis(ctx)
	switch {
	case err == nil:
		out.LastAnalysis = &lastAnalysisJS{
			ID:          last.ID,
			CreatedAt:   last.CreatedAt.UTC().Format(time.RFC3339),
			Personality: string(last.Result.Personality),
			Privacy:     string(last.Result.Privacy),
			Behavior:    string(last.Result.Behavior),
		}
	case !errors.Is(err, storage.ErrNotFound):
		return err
	}

	probe := c.probe
	if probe == nil {
		probe = checkDaemon
	}
	out.DaemonRunning = probe("http://" + out.DaemonAddr + "/status")

	if c.globals != nil && c.globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	c.printHuman(out)
	return nil
}

func (c *StatusCommand) printHuman(s statusJSON) {
	fmt.Println("webpersona Status")
	fmt.Println("=================")
	fmt.Printf("Version:       %s\n", s.Version)
	fmt.Printf("Database:      %s (%s)\n", s.DatabasePath, formatBytes(s.DatabaseSizeBytes))
	fmt.Printf("Schema:        v%d\n", s.SchemaVersion)
	fmt.Printf("Analyses:      %s\n", formatNumber(s.TotalAnalyses))
	if s.LastAnalysis != nil {
		fmt.Printf("Latest:        %s  %s / %s / %s\n", s.LastAnalysis.ID,
			s.LastAnalysis.Personality, s.LastAnalysis.Privacy, s.LastAnalysis.Behavior)
	}
	fmt.Printf("Engagement:    %s samples\n", formatNumber(s.TotalEngagement))
	if s.TotalEngagement > 0 {
		fmt.Printf("Oldest:        %s\n", s.OldestEngagement[:10])
		fmt.Printf("Newest:        %s\n", s.NewestEngagement[:10])
	}
	fmt.Printf("Retention:     %d days\n", s.RetentionDays)

	if len(s.TopHosts) > 0 {
		fmt.Println()
		fmt.Println("Top Hosts:")
		for _, h := range s.TopHosts {
			fmt.Printf("  %-28s %s\n", h.Hostname, formatNumber(h.Count))
		}
	}

	fmt.Println()
	if s.KeyConfigured {
		fmt.Printf("API key:       configured (%s)\n", s.KeySource)
	} else {
		fmt.Println("API key:       not configured")
	}
	if s.DaemonRunning {
		fmt.Printf("Daemon:        running on %s\n", s.DaemonAddr)
	} else {
		fmt.Println("Daemon:        not running")
	}
}

// checkDaemon reports whether the daemon answers url within 1 second.
func checkDaemon(url string) bool {
	client := &http.Client{Timeout: 1 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
