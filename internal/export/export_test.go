package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/runnerr0/webpersona/internal/analysis"
)

var exportedAt = time.Date(2024, 5, 10, 8, 30, 0, 123000000, time.UTC)

func sampleInput() Input {
	history := []analysis.VisitRecord{
		{
			URL: "https://www.github.com/golang/go", Title: `Go, "the language"`,
			VisitCount: 12, TypedCount: 3,
			LastVisitTime: time.Date(2024, 5, 9, 10, 0, 0, 0, time.UTC),
		},
		{URL: "", Title: "no url", VisitCount: 5},
		{URL: "https://reddit.com/r/golang", Title: "line\nbreak", VisitCount: 2},
	}
	result := analysis.Analyze(history)
	return Input{ExportedAt: exportedAt, TimeframeDays: 30, History: history, Analysis: &result}
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteCSV_Sections(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleInput()))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "RAW_HISTORY\nExportedAt,TimeframeDays\n2024-05-10T08:30:00.123Z,30\n\n"))

	records := readCSV(t, buf.Bytes())
	require.GreaterOrEqual(t, len(records), 4)
	assert.Equal(t, []string{"url", "title", "domain", "visitCount", "lastVisitTime_ISO", "typedCount"}, records[3])

	// The record without a URL is skipped
	assert.Equal(t, []string{
		"https://www.github.com/golang/go", `Go, "the language"`, "github.com", "12", "2024-05-09T10:00:00.000Z", "3",
	}, records[4])
	assert.Equal(t, []string{"https://reddit.com/r/golang", "line\nbreak", "reddit.com", "2", "", "0"}, records[5])

	var names []string
	for _, rec := range records {
		if len(rec) == 1 && strings.ToUpper(rec[0]) == rec[0] && strings.Contains(rec[0], "_") {
			names = append(names, rec[0])
		}
	}
	assert.Equal(t, []string{SectionRawHistory, SectionAnalyzedSites, SectionTopSites, SectionAnalysisSummary}, names)

	last := records[len(records)-1]
	// github 12*3=36 tech, reddit 2*2=4 social
	assert.Equal(t, []string{"introvert", "high", "tech", "2", "14", "10", "90", "0"}, last)
}

func TestWriteCSV_AnalyzedSitesColumns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleInput()))
	records := readCSV(t, buf.Bytes())

	idx := -1
	for i, rec := range records {
		if rec[0] == SectionAnalyzedSites {
			idx = i
		}
	}
	require.NotEqual(t, -1, idx)
	assert.Equal(t, []string{"domain", "visits", "category", "personality", "privacy"}, records[idx+1])
	assert.Equal(t, []string{"github.com", "12", "tech", "introvert", "high"}, records[idx+2])
	assert.Equal(t, []string{"reddit.com", "2", "social", "ambivert", "low"}, records[idx+3])
}

func TestWriteCSV_NoAnalysis(t *testing.T) {
	in := sampleInput()
	in.Analysis = nil
	in.TimeframeDays = 0

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, in))

	out := buf.String()
	assert.Contains(t, out, "2024-05-10T08:30:00.123Z,\n")
	assert.NotContains(t, out, SectionAnalyzedSites)
	assert.NotContains(t, out, SectionAnalysisSummary)
}

func TestWriteCSV_EmptyAnalysisKeepsSummary(t *testing.T) {
	result := analysis.Analyze(nil)
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, Input{ExportedAt: exportedAt, Analysis: &result}))

	out := buf.String()
	assert.NotContains(t, out, SectionTopSites)
	assert.Contains(t, out, SectionAnalysisSummary+"\n")
	assert.Contains(t, out, "neutral,unknown,other,0,0,0,0,0\n")
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleInput()))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SectionRawHistory, SectionAnalyzedSites, SectionTopSites, SectionAnalysisSummary}, f.GetSheetList())

	rows, err := f.GetRows(SectionRawHistory)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 6)
	assert.Equal(t, []string{"ExportedAt", "TimeframeDays"}, rows[0])
	assert.Equal(t, "2024-05-10T08:30:00.123Z", rows[1][0])
	assert.Equal(t, "url", rows[3][0])
	assert.Equal(t, `Go, "the language"`, rows[4][1])
	assert.Equal(t, "github.com", rows[4][2])

	top, err := f.GetRows(SectionTopSites)
	require.NoError(t, err)
	assert.Equal(t, []string{"domain", "visits", "category"}, top[0])
	assert.Equal(t, []string{"github.com", "12", "tech"}, top[1])

	summary, err := f.GetRows(SectionAnalysisSummary)
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.Equal(t, "introvert", summary[1][0])
}
