package cli

import (
	"io"

	"github.com/runnerr0/webpersona/internal/insight"
)

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	DB      string `long:"db" description:"Path to the webpersona database (overrides config)"`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// AnalyzeCommand reads browser history, scores it and saves a snapshot.
type AnalyzeCommand struct {
	Days        int    `long:"days" description:"Timeframe in days (default from config)"`
	All         bool   `long:"all" description:"Analyze all history, ignoring --days and the configured timeframe"`
	Browser     string `long:"browser" description:"chrome | chromium | edge | brave | firefox | json (default from config)"`
	HistoryFile string `long:"history-file" description:"Read history from this file instead of the browser's default location"`
	Limit       int    `long:"limit" description:"Maximum history records to read (default from config)"`

	globals *GlobalFlags
	version string
	sess    *session // injectable for testing
}

// StatusCommand shows store statistics and daemon health.
type StatusCommand struct {
	globals *GlobalFlags
	version string
	sess    *session
	probe   func(url string) bool // nil means checkDaemon
}

// OpenCommand prints a stored analysis snapshot.
type OpenCommand struct {
	ID     string `long:"id" description:"Snapshot ID (default: latest)"`
	Format string `long:"format" description:"Output format: full | json | md" default:"full"`

	globals *GlobalFlags
	version string
	sess    *session
}

// ExportCommand writes raw history plus the latest analysis to a file.
type ExportCommand struct {
	Days        int    `long:"days" description:"Timeframe in days (default from config)"`
	All         bool   `long:"all" description:"Export all history, ignoring --days and the configured timeframe"`
	Format      string `long:"format" description:"Output format: csv | xlsx" default:"csv"`
	Out         string `long:"out" description:"Output path, or - for stdout (default: webpersona-export-<time>.<format>)"`
	Browser     string `long:"browser" description:"History source (default from config)"`
	HistoryFile string `long:"history-file" description:"Read history from this file"`

	globals *GlobalFlags
	version string
	sess    *session
}

// InsightCommand sends the sanitized summary of the latest analysis to the
// insight provider after explicit consent.
type InsightCommand struct {
	Days   int    `long:"days" description:"Timeframe reported in the summary (default: the snapshot's)"`
	APIKey string `long:"api-key" description:"API key for this request only"`
	Yes    bool   `long:"yes" description:"Consent to sending the summary without prompting"`

	globals *GlobalFlags
	version string
	sess    *session
	stdin   io.Reader         // nil means os.Stdin
	gen     insight.Generator // nil means an HTTP client from config
}

// KeyCommand manages the stored insight provider credential.
type KeyCommand struct {
	Set   string `long:"set" description:"Store an API key"`
	Clear bool   `long:"clear" description:"Remove the stored API key"`
	Show  bool   `long:"show" description:"Show which key is in effect (masked)"`

	globals *GlobalFlags
	version string
	sess    *session
}

// EngagementCommand prints engagement dashboard KPIs.
type EngagementCommand struct {
	Since string `long:"since" description:"Window to summarize (e.g., 7d, 24h, 2w, all)" default:"7d"`

	globals *GlobalFlags
	version string
	sess    *session
}

// IngestCommand runs the local daemon in the foreground.
type IngestCommand struct {
	Port     int    `long:"port" description:"Override daemon port"`
	LogLevel string `long:"log-level" description:"Override log level"`

	globals *GlobalFlags
	version string
}

// PruneCommand applies engagement log retention.
type PruneCommand struct {
	OlderThan string `long:"older-than" description:"Override retention period (e.g., 30d)"`
	DryRun    bool   `long:"dry-run" description:"Show what would be pruned without deleting"`
	Force     bool   `long:"force" description:"Skip confirmation prompt"`

	globals *GlobalFlags
	version string
	sess    *session
	stdin   io.Reader
}

// PurgeCommand deletes all stored state with safety confirmation.
type PurgeCommand struct {
	All   bool `long:"all" description:"Required flag to confirm purge intent"`
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	version string
	sess    *session
	stdin   io.Reader
}
