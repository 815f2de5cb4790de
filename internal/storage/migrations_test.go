package storage

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrationRunner_FreshDB(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)

	err := runner.Run()
	require.NoError(t, err)

	expectedTables := []string{
		"analyses",
		"engagement_log",
		"exclusions",
		"config",
		"audit_log",
		"schema_migrations",
	}
	for _, table := range expectedTables {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrationRunner_IndexesCreated(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	expectedIndexes := []string{
		"idx_analyses_created",
		"idx_engagement_ts",
		"idx_engagement_host",
		"idx_exclusions_rule",
		"idx_audit_log_ts",
		"idx_audit_log_action",
	}
	for _, idx := range expectedIndexes {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='index' AND name=?", idx,
		).Scan(&name)
		require.NoError(t, err, "index %s should exist", idx)
		assert.Equal(t, idx, name)
	}
}

func TestMigrationRunner_DefaultExclusions(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM exclusions WHERE is_default = 1").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 17, count, "should have 17 default exclusion rules")

	categories := map[string]int{
		"Banking - financial privacy":           7,
		"Payment - financial privacy":           2,
		"Password manager - credential privacy": 3,
		"Auth provider - credential privacy":    2,
		"Healthcare - medical privacy":          1,
		"Tax - financial privacy":               1,
		"Adult content exclusion":               1,
	}
	for reason, expected := range categories {
		var c int
		err := db.QueryRow(
			"SELECT COUNT(*) FROM exclusions WHERE reason = ? AND is_default = 1", reason,
		).Scan(&c)
		require.NoError(t, err)
		assert.Equal(t, expected, c, "category %q should have %d rules", reason, expected)
	}

	var domainCount, regexCount int
	err = db.QueryRow("SELECT COUNT(*) FROM exclusions WHERE rule_type = 'domain'").Scan(&domainCount)
	require.NoError(t, err)
	assert.Equal(t, 16, domainCount)

	err = db.QueryRow("SELECT COUNT(*) FROM exclusions WHERE rule_type = 'regex'").Scan(&regexCount)
	require.NoError(t, err)
	assert.Equal(t, 1, regexCount)
}

func TestMigrationRunner_Idempotent(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)

	require.NoError(t, runner.Run())
	require.NoError(t, runner.Run())

	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "should have exactly 1 migration recorded after double-run")

	err = db.QueryRow("SELECT COUNT(*) FROM exclusions WHERE is_default = 1").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 17, count, "exclusions should not be duplicated on re-run")
}

func TestMigrationRunner_SchemaMigrationsTracking(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	var version int
	var name string
	err := db.QueryRow("SELECT version, name FROM schema_migrations WHERE version = 1").Scan(&version, &name)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
	assert.Equal(t, "initial_schema", name)
}

func TestMigrationRunner_WALMode(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	var journalMode string
	err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	require.NoError(t, err)
	// In-memory databases report "memory"; WAL only applies to files.
	assert.Contains(t, []string{"wal", "memory"}, journalMode)
}

func TestMigrationRunner_ScrollDepthConstraint(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	_, err := db.Exec(
		"INSERT INTO engagement_log (id, hostname, scroll_depth) VALUES ('a', 'example.com', 150)",
	)
	assert.Error(t, err, "scroll depth above 100 should violate the check constraint")

	_, err = db.Exec(
		"INSERT INTO engagement_log (id, hostname, scroll_depth) VALUES ('b', 'example.com', 100)",
	)
	assert.NoError(t, err)
}

func TestMigrationRunner_ExclusionRuleTypeConstraint(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	_, err := db.Exec("INSERT INTO exclusions (rule_type, rule_value) VALUES ('glob', '*.example.com')")
	assert.Error(t, err)
}

func TestMigrationRunner_AnalysesTableColumns(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	_, err := db.Exec(`
		INSERT INTO analyses (id, timeframe_days, personality, privacy, behavior, total_sites, total_visits, result_json)
		VALUES ('01HX', 30, 'introvert', 'low', 'tech', 3, 42, '{}')
	`)
	require.NoError(t, err)

	var id, personality, behavior string
	var days, sites int
	var visits int64
	err = db.QueryRow("SELECT id, timeframe_days, personality, behavior, total_sites, total_visits FROM analyses WHERE id = '01HX'").
		Scan(&id, &days, &personality, &behavior, &sites, &visits)
	require.NoError(t, err)
	assert.Equal(t, 30, days)
	assert.Equal(t, "introvert", personality)
	assert.Equal(t, "tech", behavior)
	assert.Equal(t, 3, sites)
	assert.Equal(t, int64(42), visits)
}

func TestMigrationRunner_Version(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	v, err := runner.Version()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestMigrationRunner_JournalMode(t *testing.T) {
	_, err := NewMigrationRunner(openTestDB(t)).WithJournalMode("bogus")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "journal.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	runner, err := NewMigrationRunner(db).WithJournalMode("DELETE")
	require.NoError(t, err)
	require.NoError(t, runner.Run())

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "delete", mode)
}
