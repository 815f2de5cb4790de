// Package export writes raw history and an analysis as a combined CSV file
// or as an XLSX workbook with one worksheet per section.
package export

import (
	"fmt"
	"time"

	"github.com/runnerr0/webpersona/internal/analysis"
)

// Section names, in output order.
const (
	SectionRawHistory      = "RAW_HISTORY"
	SectionAnalyzedSites   = "ANALYZED_SITES"
	SectionTopSites        = "TOP_SITES"
	SectionAnalysisSummary = "ANALYSIS_SUMMARY"
)

// isoLayout matches JavaScript's Date.toISOString.
const isoLayout = "2006-01-02T15:04:05.000Z"

// Input is everything one export covers. Analysis may be nil, in which case
// only RAW_HISTORY is written.
type Input struct {
	ExportedAt    time.Time
	TimeframeDays int
	History       []analysis.VisitRecord
	Analysis      *analysis.Result
}

// section is a titled block of rows; a nil row is a blank separator.
type section struct {
	name string
	rows [][]any
}

func iso(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(isoLayout)
}

func sections(in Input) []section {
	exportedAt := in.ExportedAt
	if exportedAt.IsZero() {
		exportedAt = time.Now()
	}
	var days any = ""
	if in.TimeframeDays > 0 {
		days = in.TimeframeDays
	}

	raw := section{name: SectionRawHistory, rows: [][]any{
		{"ExportedAt", "TimeframeDays"},
		{iso(exportedAt), days},
		nil,
		{"url", "title", "domain", "visitCount", "lastVisitTime_ISO", "typedCount"},
	}}
	for _, r := range in.History {
		if r.URL == "" {
			continue
		}
		domain, _ := analysis.DomainOf(r.URL)
		raw.rows = append(raw.rows, []any{
			r.URL, r.Title, domain, r.VisitCount, iso(r.LastVisitTime), r.TypedCount,
		})
	}
	out := []section{raw}

	a := in.Analysis
	if a == nil {
		return out
	}

	if len(a.AnalyzedSites) > 0 {
		s := section{name: SectionAnalyzedSites, rows: [][]any{
			{"domain", "visits", "category", "personality", "privacy"},
		}}
		for _, site := range a.AnalyzedSites {
			s.rows = append(s.rows, []any{
				site.Domain, site.Visits, string(site.Category), string(site.Personality), string(site.Privacy),
			})
		}
		out = append(out, s)
	}

	if len(a.TopSites) > 0 {
		s := section{name: SectionTopSites, rows: [][]any{
			{"domain", "visits", "category"},
		}}
		for _, site := range a.TopSites {
			s.rows = append(s.rows, []any{site.Domain, site.Visits, string(site.Category)})
		}
		out = append(out, s)
	}

	out = append(out, section{name: SectionAnalysisSummary, rows: [][]any{
		{"personality", "privacy", "behavior", "totalSites", "totalVisits", "socialScore", "techScore", "privacyScore"},
		{
			string(a.Personality), string(a.Privacy), string(a.Behavior),
			a.Stats.TotalSites, a.Stats.TotalVisits,
			a.Stats.SocialScore, a.Stats.TechScore, a.Stats.PrivacyScore,
		},
	}})

	return out
}

func cellString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}
