package storage

import (
	"errors"
	"time"

	"github.com/runnerr0/webpersona/internal/analysis"
)

// ErrNotFound is returned when a requested snapshot or setting does not exist.
var ErrNotFound = errors.New("not found")

// Snapshot is one persisted analysis run.
type Snapshot struct {
	ID            string          `json:"id"`
	CreatedAt     time.Time       `json:"createdAt"`
	TimeframeDays int             `json:"timeframeDays"`
	Result        analysis.Result `json:"result"`
}

// SnapshotInfo is the list view of a Snapshot, without the stored result body.
type SnapshotInfo struct {
	ID            string
	CreatedAt     time.Time
	TimeframeDays int
	Personality   string
	Privacy       string
	Behavior      string
	TotalSites    int
	TotalVisits   int64
}

// Engagement is one page-engagement sample reported by the browser extension.
type Engagement struct {
	ID          string
	Hostname    string
	TimeSpent   int64 // milliseconds
	ScrollDepth int   // percent, 0-100
	Clicks      int64
	Category    string
	Timestamp   time.Time
}

// AuditEntry is one row of the audit log.
type AuditEntry struct {
	ID        int64
	Action    string
	Detail    string
	Timestamp time.Time
}

// Audit actions.
const (
	AuditKeySet         = "key_set"
	AuditKeyClear       = "key_clear"
	AuditInsightRequest = "insight_request"
	AuditAnalysis       = "analysis"
	AuditPrune          = "prune"
	AuditPurge          = "purge"
)

// Stats holds aggregate statistics about the local database.
type Stats struct {
	TotalAnalyses     int64
	TotalEngagement   int64
	LastAnalysisAt    time.Time
	OldestEngagement  time.Time
	NewestEngagement  time.Time
	KeyConfigured     bool
	DatabaseSizeBytes int64
	TopHosts          []HostCount
}

// HostCount pairs a hostname with its engagement sample count.
type HostCount struct {
	Hostname string
	Count    int64
}
