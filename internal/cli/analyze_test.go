package cli

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/webpersona/internal/storage"
)

func TestAnalyze_FromHistoryFile(t *testing.T) {
	sess := newTestSession(t)
	path := writeHistoryFile(t, time.Now())

	cmd := &AnalyzeCommand{HistoryFile: path, globals: &GlobalFlags{}, version: "test", sess: sess}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.Execute(nil))
	})

	assert.Contains(t, output, "Analyzed 3 history records from json")
	assert.Contains(t, output, "Personality:  introvert")
	assert.Contains(t, output, "Timeframe:    30 days")
	assert.Contains(t, output, "github.com")
	assert.NotContains(t, output, "old.example") // outside the 30-day window

	snap, err := sess.store.LastAnalysis(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 30, snap.TimeframeDays)
	assert.Equal(t, 3, snap.Result.Stats.TotalSites)

	audit, err := sess.store.ListAudit(context.Background(), 5)
	require.NoError(t, err)
	require.NotEmpty(t, audit)
	assert.Equal(t, storage.AuditAnalysis, audit[0].Action)
	assert.Contains(t, audit[0].Detail, "records=3")
}

func TestAnalyze_DaysAndLimit(t *testing.T) {
	sess := newTestSession(t)
	path := writeHistoryFile(t, time.Now())

	cmd := &AnalyzeCommand{HistoryFile: path, Days: 365, Limit: 2, globals: &GlobalFlags{JSON: true}, sess: sess}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.Execute(nil))
	})

	var snap storage.Snapshot
	require.NoError(t, json.Unmarshal([]byte(output), &snap))
	assert.Equal(t, 365, snap.TimeframeDays)
	assert.Equal(t, 2, snap.Result.Stats.TotalSites)
}

func TestAnalyze_AllHistory(t *testing.T) {
	sess := newTestSession(t)
	path := writeHistoryFile(t, time.Now())

	cmd := &AnalyzeCommand{HistoryFile: path, All: true, globals: &GlobalFlags{}, sess: sess}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.Execute(nil))
	})

	assert.Contains(t, output, "Analyzed 4 history records")
	assert.Contains(t, output, "Timeframe:    all history")
	assert.Contains(t, output, "old.example")

	snap, err := sess.store.LastAnalysis(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, snap.TimeframeDays)
	assert.Equal(t, 4, snap.Result.Stats.TotalSites)

	err = (&AnalyzeCommand{HistoryFile: path, All: true, Days: 7, globals: &GlobalFlags{}, sess: sess}).Execute(nil)
	assert.ErrorContains(t, err, "cannot be combined")
}

func TestAnalyze_Errors(t *testing.T) {
	sess := newTestSession(t)

	err := (&AnalyzeCommand{Days: -1, globals: &GlobalFlags{}, sess: sess}).Execute(nil)
	assert.ErrorContains(t, err, "--days")

	err = (&AnalyzeCommand{HistoryFile: "/nonexistent/History", globals: &GlobalFlags{}, sess: sess}).Execute(nil)
	assert.ErrorContains(t, err, "read history")

	err = (&AnalyzeCommand{Browser: "netscape", globals: &GlobalFlags{}, sess: sess}).Execute(nil)
	assert.ErrorContains(t, err, "unsupported browser")
}
