package analysis

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/webpersona/internal/traits"
)

func visit(url string, count int64) VisitRecord {
	return VisitRecord{URL: url, VisitCount: count}
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		name   string
		rec    VisitRecord
		domain string
		visits int64
		ok     bool
	}{
		{"lowercases and strips www", visit("https://WWW.Example.COM/path?q=1", 3), "example.com", 3, true},
		{"strips only one www", visit("https://www.www.example.com/", 1), "www.example.com", 1, true},
		{"keeps subdomains", visit("https://mail.google.com/u/0", 2), "mail.google.com", 2, true},
		{"zero count is one visit", visit("https://github.com", 0), "github.com", 1, true},
		{"negative count is one visit", visit("https://github.com", -4), "github.com", 1, true},
		{"port is dropped", visit("http://localhost:8080/x", 1), "localhost", 1, true},
		{"empty url", visit("", 1), "", 0, false},
		{"no scheme", visit("github.com/foo", 1), "", 0, false},
		{"bad escape", visit("http://[::1", 1), "", 0, false},
		{"bare www", visit("https://www./", 1), "", 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			nv, ok := Normalize(tc.rec)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.domain, nv.Domain)
				assert.Equal(t, tc.visits, nv.Visits)
			}
		})
	}
}

func TestAnalyzeEmptyInput(t *testing.T) {
	for _, records := range [][]VisitRecord{nil, {}} {
		r := Analyze(records)

		assert.Equal(t, traits.PersonalityNeutral, r.Personality)
		assert.Equal(t, traits.PrivacyUnknown, r.Privacy)
		assert.Equal(t, traits.Other, r.Behavior)
		assert.Equal(t, Stats{}, r.Stats)
		assert.NotNil(t, r.TopSites)
		assert.Empty(t, r.TopSites)
		assert.Empty(t, r.AnalyzedSites)
	}

	out, err := json.Marshal(Analyze(nil))
	require.NoError(t, err)
	assert.Contains(t, string(out), `"topSites":[]`)
}

func TestAnalyzeOnlyMalformedRecords(t *testing.T) {
	agg := Aggregate([]VisitRecord{
		visit("", 3),
		visit("not a url", 3),
		visit("http://[::1", 3),
	}, traits.DefaultTable())

	assert.Equal(t, 3, agg.Skipped)
	assert.Zero(t, agg.TotalVisits)
	assert.Zero(t, agg.Sites.Len())

	r := Select(agg, traits.DefaultTable())
	assert.Equal(t, traits.PersonalityNeutral, r.Personality)
	assert.Equal(t, Stats{}, r.Stats)
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	records := []VisitRecord{
		visit("https://github.com/a", 4),
		visit("https://www.youtube.com/watch", 7),
		visit("https://unknown.example/", 2),
		visit("https://duckduckgo.com/?q=go", 1),
	}

	first := Analyze(records)
	second := Analyze(records)
	assert.Equal(t, first, second)
}

func TestDomainNormalizationMergesVisits(t *testing.T) {
	agg := Aggregate([]VisitRecord{
		visit("https://www.Example.com/a", 1),
		visit("https://example.com/b", 1),
	}, traits.DefaultTable())

	assert.Equal(t, 1, agg.Sites.Len())
	assert.Equal(t, int64(2), agg.Sites.Visits("example.com"))

	r := Select(agg, traits.DefaultTable())
	require.Len(t, r.TopSites, 1)
	assert.Equal(t, TopSite{Domain: "example.com", Visits: 2, Category: traits.Other}, r.TopSites[0])
}

func TestWeightedDominance(t *testing.T) {
	table, err := traits.NewTable(map[string]traits.Entry{
		"a.example": {Personality: traits.Introvert, Privacy: traits.PrivacyHigh, Category: traits.Tech, Weight: 3},
		"b.example": {Personality: traits.Extrovert, Privacy: traits.PrivacyLow, Category: traits.Social, Weight: 1},
	})
	require.NoError(t, err)

	r := NewAnalyzer(table).Analyze([]VisitRecord{
		visit("https://b.example/", 1),
		visit("https://a.example/", 1),
	})

	assert.Equal(t, traits.Introvert, r.Personality)
	assert.Equal(t, traits.PrivacyHigh, r.Privacy)
	assert.Equal(t, traits.Tech, r.Behavior)
	assert.Equal(t, 75, r.Stats.TechScore)
	assert.Equal(t, 25, r.Stats.SocialScore)
}

func TestVisitsMultiplyWeight(t *testing.T) {
	// pinterest (ambivert, weight 1) x5 beats github (introvert, weight 3) x1.
	agg := Aggregate([]VisitRecord{
		visit("https://github.com/", 1),
		visit("https://pinterest.com/", 5),
	}, traits.DefaultTable())

	assert.Equal(t, int64(3), agg.Tallies.Personalities[traits.Introvert])
	assert.Equal(t, int64(5), agg.Tallies.Personalities[traits.Ambivert])

	r := Select(agg, traits.DefaultTable())
	assert.Equal(t, traits.Ambivert, r.Personality)
}

func TestUnknownDomainIsolation(t *testing.T) {
	base := []VisitRecord{visit("https://github.com/", 2)}
	before := Aggregate(base, traits.DefaultTable())
	after := Aggregate(append(base, visit("https://nowhere.example/x", 5)), traits.DefaultTable())

	assert.Equal(t, before.TotalVisits+5, after.TotalVisits)
	assert.Equal(t, before.Tallies.Categories[traits.Other]+5, after.Tallies.Categories[traits.Other])
	assert.Equal(t, before.Tallies.Personalities, after.Tallies.Personalities)
	assert.Equal(t, before.Tallies.Privacy, after.Tallies.Privacy)
}

func TestTalliesHaveEveryCanonicalKey(t *testing.T) {
	agg := Aggregate(nil, traits.DefaultTable())

	assert.Len(t, agg.Tallies.Categories, len(traits.Categories))
	for _, c := range traits.Categories {
		v, ok := agg.Tallies.Categories[c]
		assert.True(t, ok, "category %q missing", c)
		assert.Zero(t, v)
	}
	assert.Len(t, agg.Tallies.Personalities, 3)
	assert.Len(t, agg.Tallies.Privacy, 3)
}

func TestTieBreakUsesCanonicalOrder(t *testing.T) {
	// github: introvert/high/tech w3; facebook: extrovert/low/social w3.
	r := Analyze([]VisitRecord{
		visit("https://facebook.com/", 1),
		visit("https://github.com/", 1),
	})

	assert.Equal(t, traits.Introvert, r.Personality)
	assert.Equal(t, traits.PrivacyLow, r.Privacy)
	assert.Equal(t, traits.Social, r.Behavior)
}

func TestUnknownOnlyHistory(t *testing.T) {
	r := Analyze([]VisitRecord{visit("https://nowhere.example/", 4)})

	assert.Equal(t, traits.PersonalityNeutral, r.Personality)
	assert.Equal(t, traits.PrivacyUnknown, r.Privacy)
	assert.Equal(t, traits.Other, r.Behavior)
	assert.Equal(t, 1, r.Stats.TotalSites)
	assert.Equal(t, int64(4), r.Stats.TotalVisits)
	assert.Zero(t, r.Stats.SocialScore)
}

func TestScoresRoundHalfUp(t *testing.T) {
	// social = 1 (pinterest w1), other = 7; 1/8 = 12.5% -> 13.
	r := Analyze([]VisitRecord{
		visit("https://pinterest.com/", 1),
		visit("https://nowhere.example/", 7),
	})
	assert.Equal(t, 13, r.Stats.SocialScore)
	assert.Equal(t, traits.Other, r.Behavior)
}

func TestScoresAreIndependent(t *testing.T) {
	// tech 3, social 2, privacy 3, travel 2 -> total 10.
	r := Analyze([]VisitRecord{
		visit("https://github.com/", 1),
		visit("https://youtube.com/", 1),
		visit("https://google.com/", 1),
		visit("https://irctc.co.in/", 1),
	})

	assert.Equal(t, 30, r.Stats.TechScore)
	assert.Equal(t, 20, r.Stats.SocialScore)
	assert.Equal(t, 30, r.Stats.PrivacyScore)
	assert.Less(t, r.Stats.TechScore+r.Stats.SocialScore+r.Stats.PrivacyScore, 100)
}

func TestTopSitesOrderingAndCap(t *testing.T) {
	var records []VisitRecord
	for i := 0; i < 25; i++ {
		records = append(records, visit(fmt.Sprintf("https://site%02d.example/", i), int64(100-i)))
	}
	// Shuffle the input order so ranking, not input order, decides.
	records[0], records[24] = records[24], records[0]
	records[3], records[17] = records[17], records[3]

	r := Analyze(records)

	require.Len(t, r.TopSites, TopSitesLimit)
	require.Len(t, r.AnalyzedSites, TopSitesLimit)
	assert.Equal(t, 25, r.Stats.TotalSites)
	for i, s := range r.TopSites {
		assert.Equal(t, fmt.Sprintf("site%02d.example", i), s.Domain)
		assert.Equal(t, int64(100-i), s.Visits)
	}
}

func TestTopSitesTiesKeepEncounterOrder(t *testing.T) {
	r := Analyze([]VisitRecord{
		visit("https://c.example/", 2),
		visit("https://b.example/", 3),
		visit("https://a.example/", 2),
		visit("https://c.example/again", 0), // c -> 3, still first seen
	})

	var got []string
	for _, s := range r.TopSites {
		got = append(got, s.Domain)
	}
	assert.Equal(t, []string{"c.example", "b.example", "a.example"}, got)
}

func TestTopSitesAnnotated(t *testing.T) {
	r := Analyze([]VisitRecord{
		visit("https://github.com/", 5),
		visit("https://nowhere.example/", 1),
	})

	require.Len(t, r.AnalyzedSites, 2)
	assert.Equal(t, AnalyzedSite{
		Domain: "github.com", Visits: 5, Category: traits.Tech,
		Personality: traits.Introvert, Privacy: traits.PrivacyHigh,
	}, r.AnalyzedSites[0])
	assert.Equal(t, AnalyzedSite{Domain: "nowhere.example", Visits: 1, Category: traits.Other}, r.AnalyzedSites[1])
	assert.Equal(t, traits.Other, r.TopSites[1].Category)
}

func TestInsightNamesSelectedValues(t *testing.T) {
	r := Analyze([]VisitRecord{visit("https://github.com/", 1)})
	assert.Contains(t, r.Insight, "introvert")
	assert.Contains(t, r.Insight, "high")
	assert.Contains(t, r.Insight, "tech")
}

func TestStatsTotalSitesMatchesFrequency(t *testing.T) {
	records := []VisitRecord{
		visit("https://a.example/", 1),
		visit("https://b.example/", 1),
		visit("https://www.a.example/", 1),
		visit("garbage", 1),
	}
	agg := Aggregate(records, traits.DefaultTable())
	r := Select(agg, traits.DefaultTable())

	assert.Equal(t, agg.Sites.Len(), r.Stats.TotalSites)
	assert.Equal(t, 2, r.Stats.TotalSites)
	assert.Equal(t, int64(3), r.Stats.TotalVisits)
}
