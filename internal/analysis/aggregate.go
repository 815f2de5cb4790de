package analysis

import "github.com/runnerr0/webpersona/internal/traits"

// SiteFrequency accumulates visits per domain and remembers the order in
// which each domain was first seen. Ranking ties fall back to that order.
type SiteFrequency struct {
	order  []string
	visits map[string]int64
}

func newSiteFrequency() SiteFrequency {
	return SiteFrequency{visits: make(map[string]int64)}
}

// Add credits visits to domain.
func (f *SiteFrequency) Add(domain string, visits int64) {
	if f.visits == nil {
		f.visits = make(map[string]int64)
	}
	if _, seen := f.visits[domain]; !seen {
		f.order = append(f.order, domain)
	}
	f.visits[domain] += visits
}

// Len is the number of distinct domains.
func (f *SiteFrequency) Len() int { return len(f.order) }

// Visits returns the cumulative visits for domain.
func (f *SiteFrequency) Visits(domain string) int64 { return f.visits[domain] }

// Domains returns the domains in first-encounter order.
func (f *SiteFrequency) Domains() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// Tallies are the weighted counts per trait dimension. Every canonical key is
// present, zero included.
type Tallies struct {
	Categories    map[traits.Category]int64
	Personalities map[traits.Personality]int64
	Privacy       map[traits.PrivacyLevel]int64
}

func newTallies() Tallies {
	t := Tallies{
		Categories:    make(map[traits.Category]int64, len(traits.Categories)),
		Personalities: make(map[traits.Personality]int64, len(traits.Personalities)),
		Privacy:       make(map[traits.PrivacyLevel]int64, len(traits.PrivacyLevels)),
	}
	for _, c := range traits.Categories {
		t.Categories[c] = 0
	}
	for _, p := range traits.Personalities {
		t.Personalities[p] = 0
	}
	for _, p := range traits.PrivacyLevels {
		t.Privacy[p] = 0
	}
	return t
}

// TotalWeight sums every category tally.
func (t Tallies) TotalWeight() int64 {
	var sum int64
	for _, c := range traits.Categories {
		sum += t.Categories[c]
	}
	return sum
}

// Aggregation is the folded state of one run.
type Aggregation struct {
	Sites       SiteFrequency
	Tallies     Tallies
	TotalVisits int64
	Skipped     int
}

// Aggregate folds records into site frequencies and trait tallies.
//
// Known domains add weight*visits to all three dimensions. Unknown domains add
// raw visits to the "other" category only and carry no personality or privacy
// signal.
func Aggregate(records []VisitRecord, table *traits.Table) *Aggregation {
	agg := &Aggregation{
		Sites:   newSiteFrequency(),
		Tallies: newTallies(),
	}

	for _, r := range records {
		nv, ok := Normalize(r)
		if !ok {
			agg.Skipped++
			continue
		}

		agg.Sites.Add(nv.Domain, nv.Visits)
		agg.TotalVisits += nv.Visits

		entry, known := table.Lookup(nv.Domain)
		if !known {
			agg.Tallies.Categories[traits.Other] += nv.Visits
			continue
		}

		w := entry.Weight * nv.Visits
		agg.Tallies.Personalities[entry.Personality] += w
		agg.Tallies.Privacy[entry.Privacy] += w
		agg.Tallies.Categories[entry.Category] += w
	}

	return agg
}
