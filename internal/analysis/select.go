package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/runnerr0/webpersona/internal/traits"
)

// Select picks the dominant values, computes scores, ranks the top sites and
// assembles the Result.
func Select(agg *Aggregation, table *traits.Table) Result {
	personality := dominant(agg.Tallies.Personalities, traits.Personalities, traits.PersonalityNeutral)
	privacy := dominant(agg.Tallies.Privacy, traits.PrivacyLevels, traits.PrivacyUnknown)
	behavior := dominant(agg.Tallies.Categories, traits.Categories, traits.Other)

	totalWeight := agg.Tallies.TotalWeight()
	if totalWeight < 1 {
		totalWeight = 1
	}

	topSites, analyzed := rankSites(&agg.Sites, table)

	return Result{
		Personality: personality,
		Privacy:     privacy,
		Behavior:    behavior,
		Stats: Stats{
			TotalSites:   agg.Sites.Len(),
			TotalVisits:  agg.TotalVisits,
			SocialScore:  percent(agg.Tallies.Categories[traits.Social], totalWeight),
			TechScore:    percent(agg.Tallies.Categories[traits.Tech], totalWeight),
			PrivacyScore: percent(agg.Tallies.Categories[traits.Privacy], totalWeight),
		},
		TopSites:      topSites,
		AnalyzedSites: analyzed,
		Insight: fmt.Sprintf(
			"Your browsing shows %s tendencies with %s privacy awareness. Dominant behavior: %s.",
			personality, privacy, behavior,
		),
	}
}

// dominant returns the key with the strictly greatest tally, scanning in
// canonical order so the first listed key wins ties. An all-zero tally
// yields fallback.
func dominant[K ~string](tally map[K]int64, order []K, fallback K) K {
	best := fallback
	var top int64
	for _, k := range order {
		if v := tally[k]; v > top {
			best, top = k, v
		}
	}
	return best
}

// percent is round-half-up of part/total*100. total must be >= 1.
func percent(part, total int64) int {
	return int(math.Floor(float64(part)/float64(total)*100 + 0.5))
}

// rankSites orders domains by visits descending, first-encounter order on
// ties, and keeps the first TopSitesLimit.
func rankSites(sites *SiteFrequency, table *traits.Table) ([]TopSite, []AnalyzedSite) {
	domains := sites.Domains()
	sort.SliceStable(domains, func(i, j int) bool {
		return sites.Visits(domains[i]) > sites.Visits(domains[j])
	})
	if len(domains) > TopSitesLimit {
		domains = domains[:TopSitesLimit]
	}

	top := make([]TopSite, 0, len(domains))
	analyzed := make([]AnalyzedSite, 0, len(domains))
	for _, d := range domains {
		site := AnalyzedSite{Domain: d, Visits: sites.Visits(d), Category: traits.Other}
		if e, ok := table.Lookup(d); ok {
			site.Category = e.Category
			site.Personality = e.Personality
			site.Privacy = e.Privacy
		}
		top = append(top, TopSite{Domain: site.Domain, Visits: site.Visits, Category: site.Category})
		analyzed = append(analyzed, site)
	}
	return top, analyzed
}
