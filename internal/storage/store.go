package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Store defines the interface for webpersona data operations.
type Store interface {
	SaveAnalysis(ctx context.Context, snap *Snapshot) error
	LastAnalysis(ctx context.Context) (*Snapshot, error)
	GetAnalysis(ctx context.Context, id string) (*Snapshot, error)
	ListAnalyses(ctx context.Context, limit int) ([]SnapshotInfo, error)

	SetAPIKey(ctx context.Context, key string) error
	GetAPIKey(ctx context.Context) (string, error)
	ClearAPIKey(ctx context.Context) error
	SetLastInsight(ctx context.Context, text string) error
	GetLastInsight(ctx context.Context) (string, time.Time, error)

	AppendEngagement(ctx context.Context, e *Engagement) (bool, error)
	ListEngagement(ctx context.Context, since time.Time, limit int) ([]Engagement, error)
	CountEngagementBefore(ctx context.Context, olderThan time.Time) (int64, error)
	PruneEngagement(ctx context.Context, olderThan time.Time) (int64, error)

	IsExcluded(host string) bool
	AddExclusion(ctx context.Context, ruleType, reason string, values ...string) error

	Audit(ctx context.Context, action, detail string) error
	ListAudit(ctx context.Context, limit int) ([]AuditEntry, error)

	PurgeAll(ctx context.Context) error
	GetStats(ctx context.Context) (*Stats, error)
	Close() error
}

// Keys of the config table.
const (
	configAPIKey      = "openai_api_key"
	configLastInsight = "last_ai_response"
)

// tsLayout is fixed-width so stored timestamps compare correctly as text.
const tsLayout = "2006-01-02T15:04:05.000000Z"

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB

	// Prepared statements
	insertAnalysis   *sql.Stmt
	getAnalysis      *sql.Stmt
	insertEngagement *sql.Stmt
	upsertConfig     *sql.Stmt
	getConfig        *sql.Stmt
	insertAudit      *sql.Stmt

	// Cached exclusion rules, refreshed by AddExclusion.
	mu               sync.RWMutex
	domainExclusions []string
	regexExclusions  []*regexp.Regexp
}

// NewSQLiteStore creates a new SQLiteStore from an already-opened and migrated database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}

	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	if err := s.loadExclusions(); err != nil {
		return nil, fmt.Errorf("load exclusions: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.insertAnalysis, err = s.db.Prepare(`
		INSERT INTO analyses (id, created_at, timeframe_days, personality, privacy, behavior, total_sites, total_visits, result_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}

	s.getAnalysis, err = s.db.Prepare(`
		SELECT id, created_at, timeframe_days, result_json FROM analyses WHERE id = ?
	`)
	if err != nil {
		return err
	}

	s.insertEngagement, err = s.db.Prepare(`
		INSERT INTO engagement_log (id, hostname, time_spent, scroll_depth, clicks, category, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}

	s.upsertConfig, err = s.db.Prepare(`
		INSERT INTO config (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`)
	if err != nil {
		return err
	}

	s.getConfig, err = s.db.Prepare(`SELECT value, updated_at FROM config WHERE key = ?`)
	if err != nil {
		return err
	}

	s.insertAudit, err = s.db.Prepare(`INSERT INTO audit_log (action, detail, ts) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}

	return nil
}

// loadExclusions loads domain and regex exclusion rules from the database.
func (s *SQLiteStore) loadExclusions() error {
	rows, err := s.db.Query("SELECT rule_type, rule_value FROM exclusions")
	if err != nil {
		return err
	}
	defer rows.Close()

	var domains []string
	var regexes []*regexp.Regexp
	for rows.Next() {
		var ruleType, ruleValue string
		if err := rows.Scan(&ruleType, &ruleValue); err != nil {
			return err
		}
		switch ruleType {
		case "domain":
			domains = append(domains, strings.ToLower(ruleValue))
		case "regex":
			re, err := regexp.Compile(ruleValue)
			if err != nil {
				continue // skip invalid regex
			}
			regexes = append(regexes, re)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.domainExclusions = domains
	s.regexExclusions = regexes
	s.mu.Unlock()
	return nil
}

// IsExcluded reports whether host, or a parent domain of it, is on the
// denylist.
func (s *SQLiteStore) IsExcluded(host string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.domainExclusions {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	for _, re := range s.regexExclusions {
		if re.MatchString(host) {
			return true
		}
	}
	return false
}

// AddExclusion stores denylist rules of one type and refreshes the cache.
// Re-adding an existing rule is a no-op.
func (s *SQLiteStore) AddExclusion(ctx context.Context, ruleType, reason string, values ...string) error {
	if ruleType != "domain" && ruleType != "regex" {
		return fmt.Errorf("unknown exclusion rule type %q", ruleType)
	}

	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			return fmt.Errorf("exclusion value is empty")
		}
		if ruleType == "domain" {
			value = strings.ToLower(value)
		} else if _, err := regexp.Compile(value); err != nil {
			return fmt.Errorf("invalid exclusion regex %q: %w", value, err)
		}

		_, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO exclusions (rule_type, rule_value, reason) VALUES (?, ?, ?)`,
			ruleType, value, reason,
		)
		if err != nil {
			return fmt.Errorf("insert exclusion: %w", err)
		}
	}

	return s.loadExclusions()
}

// newID mints a time-sortable snapshot ID.
func newID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), ulid.DefaultEntropy()).String()
}

// parseTimestamp tries several common SQLite timestamp formats.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		tsLayout,
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp: %s", s)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

// SaveAnalysis persists snap. ID and CreatedAt are filled in when empty.
func (s *SQLiteStore) SaveAnalysis(ctx context.Context, snap *Snapshot) error {
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}
	if snap.ID == "" {
		snap.ID = newID(snap.CreatedAt)
	}

	body, err := json.Marshal(snap.Result)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}

	r := snap.Result
	_, err = s.insertAnalysis.ExecContext(ctx,
		snap.ID, formatTimestamp(snap.CreatedAt), snap.TimeframeDays,
		string(r.Personality), string(r.Privacy), string(r.Behavior),
		r.Stats.TotalSites, r.Stats.TotalVisits, string(body),
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}

	return nil
}

// GetAnalysis retrieves a snapshot by ID.
func (s *SQLiteStore) GetAnalysis(ctx context.Context, id string) (*Snapshot, error) {
	snap, err := scanSnapshot(s.getAnalysis.QueryRowContext(ctx, id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("analysis %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return snap, nil
}

// LastAnalysis returns the most recent snapshot.
func (s *SQLiteStore) LastAnalysis(ctx context.Context) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, timeframe_days, result_json
		FROM analyses ORDER BY created_at DESC, id DESC LIMIT 1
	`)
	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("no analysis yet: %w", ErrNotFound)
		}
		return nil, err
	}
	return snap, nil
}

func scanSnapshot(row *sql.Row) (*Snapshot, error) {
	var snap Snapshot
	var createdStr, body string

	if err := row.Scan(&snap.ID, &createdStr, &snap.TimeframeDays, &body); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get analysis: %w", err)
	}

	snap.CreatedAt, _ = parseTimestamp(createdStr)
	if err := json.Unmarshal([]byte(body), &snap.Result); err != nil {
		return nil, fmt.Errorf("decode analysis %s: %w", snap.ID, err)
	}
	return &snap, nil
}

// ListAnalyses returns up to limit snapshots, newest first.
func (s *SQLiteStore) ListAnalyses(ctx context.Context, limit int) ([]SnapshotInfo, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, timeframe_days, personality, privacy, behavior, total_sites, total_visits
		FROM analyses ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	infos := []SnapshotInfo{}
	for rows.Next() {
		var info SnapshotInfo
		var createdStr string
		if err := rows.Scan(&info.ID, &createdStr, &info.TimeframeDays,
			&info.Personality, &info.Privacy, &info.Behavior,
			&info.TotalSites, &info.TotalVisits); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		info.CreatedAt, _ = parseTimestamp(createdStr)
		infos = append(infos, info)
	}

	return infos, rows.Err()
}

func (s *SQLiteStore) setConfig(ctx context.Context, key, value string) error {
	_, err := s.upsertConfig.ExecContext(ctx, key, value, formatTimestamp(time.Now()))
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) getConfigValue(ctx context.Context, key string) (string, time.Time, error) {
	var value, updatedStr string
	err := s.getConfig.QueryRowContext(ctx, key).Scan(&value, &updatedStr)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", time.Time{}, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return "", time.Time{}, fmt.Errorf("get %s: %w", key, err)
	}
	updated, _ := parseTimestamp(updatedStr)
	return value, updated, nil
}

// SetAPIKey stores the insight provider credential. Blank keys are rejected.
func (s *SQLiteStore) SetAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("api key is empty")
	}
	if err := s.setConfig(ctx, configAPIKey, key); err != nil {
		return err
	}
	return s.Audit(ctx, AuditKeySet, "")
}

// GetAPIKey returns the stored credential, or ErrNotFound.
func (s *SQLiteStore) GetAPIKey(ctx context.Context) (string, error) {
	key, _, err := s.getConfigValue(ctx, configAPIKey)
	return key, err
}

// ClearAPIKey removes the stored credential. Clearing an absent key is not
// an error.
func (s *SQLiteStore) ClearAPIKey(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM config WHERE key = ?", configAPIKey); err != nil {
		return fmt.Errorf("clear api key: %w", err)
	}
	return s.Audit(ctx, AuditKeyClear, "")
}

// SetLastInsight stores the most recent insight response, replacing any
// previous one.
func (s *SQLiteStore) SetLastInsight(ctx context.Context, text string) error {
	return s.setConfig(ctx, configLastInsight, text)
}

// GetLastInsight returns the stored insight and when it was stored.
func (s *SQLiteStore) GetLastInsight(ctx context.Context) (string, time.Time, error) {
	return s.getConfigValue(ctx, configLastInsight)
}

// AppendEngagement inserts an engagement sample. Samples for excluded hosts
// are silently skipped and reported as not stored. The caller assigns the ID.
func (s *SQLiteStore) AppendEngagement(ctx context.Context, e *Engagement) (bool, error) {
	if s.IsExcluded(e.Hostname) {
		return false, nil
	}
	if e.ID == "" {
		return false, fmt.Errorf("engagement id is empty")
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	_, err := s.insertEngagement.ExecContext(ctx,
		e.ID, e.Hostname, e.TimeSpent, e.ScrollDepth, e.Clicks, e.Category,
		formatTimestamp(e.Timestamp),
	)
	if err != nil {
		return false, fmt.Errorf("insert engagement: %w", err)
	}
	return true, nil
}

// ListEngagement returns samples recorded at or after since (zero means all),
// newest first. limit <= 0 means no limit.
func (s *SQLiteStore) ListEngagement(ctx context.Context, since time.Time, limit int) ([]Engagement, error) {
	query := `SELECT id, hostname, time_spent, scroll_depth, clicks, category, ts FROM engagement_log`
	var args []interface{}

	if !since.IsZero() {
		query += " WHERE ts >= ?"
		args = append(args, formatTimestamp(since))
	}
	query += " ORDER BY ts DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query engagement: %w", err)
	}
	defer rows.Close()

	entries := []Engagement{}
	for rows.Next() {
		var e Engagement
		var tsStr string
		if err := rows.Scan(&e.ID, &e.Hostname, &e.TimeSpent, &e.ScrollDepth, &e.Clicks, &e.Category, &tsStr); err != nil {
			return nil, fmt.Errorf("scan engagement: %w", err)
		}
		e.Timestamp, _ = parseTimestamp(tsStr)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// CountEngagementBefore counts samples older than olderThan.
func (s *SQLiteStore) CountEngagementBefore(ctx context.Context, olderThan time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM engagement_log WHERE ts < ?", formatTimestamp(olderThan),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count engagement: %w", err)
	}
	return n, nil
}

// PruneEngagement deletes samples older than olderThan.
func (s *SQLiteStore) PruneEngagement(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM engagement_log WHERE ts < ?", formatTimestamp(olderThan),
	)
	if err != nil {
		return 0, fmt.Errorf("prune engagement: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if err := s.Audit(ctx, AuditPrune, fmt.Sprintf("removed %d engagement entries older than %s", n, formatTimestamp(olderThan))); err != nil {
		return n, err
	}
	return n, nil
}

// Audit appends an entry to the audit log.
func (s *SQLiteStore) Audit(ctx context.Context, action, detail string) error {
	if _, err := s.insertAudit.ExecContext(ctx, action, detail, formatTimestamp(time.Now())); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// ListAudit returns the newest audit entries first.
func (s *SQLiteStore) ListAudit(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, action, detail, ts FROM audit_log ORDER BY id DESC LIMIT ?", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	entries := []AuditEntry{}
	for rows.Next() {
		var a AuditEntry
		var tsStr string
		if err := rows.Scan(&a.ID, &a.Action, &a.Detail, &tsStr); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		a.Timestamp, _ = parseTimestamp(tsStr)
		entries = append(entries, a)
	}

	return entries, rows.Err()
}

// PurgeAll deletes every snapshot, engagement sample, stored setting and
// audit entry, then records the purge itself. Exclusion rules are kept.
func (s *SQLiteStore) PurgeAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmts := []string{
		"DELETE FROM analyses",
		"DELETE FROM engagement_log",
		"DELETE FROM config",
		"DELETE FROM audit_log",
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("purge (%s): %w", stmt, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO audit_log (action, detail, ts) VALUES (?, ?, ?)",
		AuditPurge, "all local data deleted", formatTimestamp(time.Now()),
	); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}

	return tx.Commit()
}

// GetStats returns aggregate statistics about the database.
func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{TopHosts: []HostCount{}}

	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM analyses").Scan(&stats.TotalAnalyses)
	if err != nil {
		return nil, fmt.Errorf("count analyses: %w", err)
	}

	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM engagement_log").Scan(&stats.TotalEngagement)
	if err != nil {
		return nil, fmt.Errorf("count engagement: %w", err)
	}

	if stats.TotalAnalyses > 0 {
		var lastStr string
		if err := s.db.QueryRowContext(ctx, "SELECT MAX(created_at) FROM analyses").Scan(&lastStr); err != nil {
			return nil, fmt.Errorf("last analysis: %w", err)
		}
		stats.LastAnalysisAt, _ = parseTimestamp(lastStr)
	}

	// Oldest and newest (handle empty log)
	if stats.TotalEngagement > 0 {
		var oldestStr, newestStr string
		err = s.db.QueryRowContext(ctx, "SELECT MIN(ts), MAX(ts) FROM engagement_log").Scan(&oldestStr, &newestStr)
		if err != nil {
			return nil, fmt.Errorf("engagement time range: %w", err)
		}
		stats.OldestEngagement, _ = parseTimestamp(oldestStr)
		stats.NewestEngagement, _ = parseTimestamp(newestStr)
	}

	if _, err := s.GetAPIKey(ctx); err == nil {
		stats.KeyConfigured = true
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err == nil {
			stats.DatabaseSizeBytes = pageCount * pageSize
		}
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT hostname, COUNT(*) as cnt FROM engagement_log GROUP BY hostname ORDER BY cnt DESC, hostname LIMIT 10",
	)
	if err != nil {
		return nil, fmt.Errorf("top hosts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var hc HostCount
		if err := rows.Scan(&hc.Hostname, &hc.Count); err != nil {
			return nil, err
		}
		stats.TopHosts = append(stats.TopHosts, hc)
	}

	return stats, rows.Err()
}

// Close releases all prepared statements. The underlying *sql.DB is NOT
// closed; that is the caller's responsibility.
func (s *SQLiteStore) Close() error {
	stmts := []*sql.Stmt{
		s.insertAnalysis, s.getAnalysis, s.insertEngagement,
		s.upsertConfig, s.getConfig, s.insertAudit,
	}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}
