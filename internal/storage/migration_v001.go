package storage

import (
	"database/sql"
	"fmt"
)

// migrateV001 creates the initial schema: all tables, indexes, and default
// exclusion rules. Every statement uses IF NOT EXISTS for idempotency.
func migrateV001(tx *sql.Tx) error {
	stmts := []string{
		// ── Tables ──────────────────────────────────────────────

		`CREATE TABLE IF NOT EXISTS analyses (
			id             TEXT PRIMARY KEY,
			created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			timeframe_days INTEGER NOT NULL DEFAULT 0,
			personality    TEXT NOT NULL,
			privacy        TEXT NOT NULL,
			behavior       TEXT NOT NULL,
			total_sites    INTEGER NOT NULL DEFAULT 0,
			total_visits   INTEGER NOT NULL DEFAULT 0,
			result_json    TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS engagement_log (
			id           TEXT PRIMARY KEY,
			hostname     TEXT NOT NULL,
			time_spent   INTEGER NOT NULL DEFAULT 0,
			scroll_depth INTEGER NOT NULL DEFAULT 0 CHECK (scroll_depth BETWEEN 0 AND 100),
			clicks       INTEGER NOT NULL DEFAULT 0,
			category     TEXT NOT NULL DEFAULT 'other',
			ts           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS exclusions (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			rule_type  TEXT NOT NULL CHECK (rule_type IN ('domain', 'regex')),
			rule_value TEXT NOT NULL,
			reason     TEXT NOT NULL DEFAULT '',
			is_default BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(rule_type, rule_value)
		)`,

		`CREATE TABLE IF NOT EXISTS config (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS audit_log (
			id     INTEGER PRIMARY KEY AUTOINCREMENT,
			action TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			ts     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// ── Indexes ────────────────────────────────────────────

		`CREATE INDEX IF NOT EXISTS idx_analyses_created   ON analyses(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_engagement_ts      ON engagement_log(ts)`,
		`CREATE INDEX IF NOT EXISTS idx_engagement_host    ON engagement_log(hostname)`,
		`CREATE INDEX IF NOT EXISTS idx_exclusions_rule    ON exclusions(rule_type, rule_value)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_log_ts       ON audit_log(ts)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_log_action   ON audit_log(action)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	// ── Default exclusion rules ────────────────────────────────
	if err := seedDefaultExclusions(tx); err != nil {
		return err
	}

	return nil
}

// seedDefaultExclusions inserts the hosts the engagement log never records.
// Uses INSERT OR IGNORE so re-running is safe.
func seedDefaultExclusions(tx *sql.Tx) error {
	groups := []struct {
		ruleType string
		reason   string
		values   []string
	}{
		{"domain", "Banking - financial privacy", []string{
			"chase.com", "bankofamerica.com", "wellsfargo.com", "citi.com",
			"capitalone.com", "schwab.com", "fidelity.com",
		}},
		{"domain", "Payment - financial privacy", []string{"paypal.com", "venmo.com"}},
		{"domain", "Password manager - credential privacy", []string{
			"1password.com", "bitwarden.com", "lastpass.com",
		}},
		{"domain", "Auth provider - credential privacy", []string{
			"accounts.google.com", "login.microsoftonline.com",
		}},
		{"domain", "Healthcare - medical privacy", []string{"mychart.com"}},
		{"domain", "Tax - financial privacy", []string{"irs.gov"}},
		{"regex", "Adult content exclusion", []string{`.*\.xxx$`}},
	}

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO exclusions (rule_type, rule_value, reason, is_default) VALUES (?, ?, ?, 1)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, g := range groups {
		for _, v := range g.values {
			if _, err := stmt.Exec(g.ruleType, v, g.reason); err != nil {
				return fmt.Errorf("seed exclusion %s: %w", v, err)
			}
		}
	}
	return nil
}
