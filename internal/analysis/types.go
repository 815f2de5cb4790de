// Package analysis scores browsing history against the trait table and
// produces personality, privacy and category statistics.
//
// The pipeline is Normalize -> Aggregate -> Select. Every stage is pure:
// no I/O, no logging, no shared state between calls.
package analysis

import (
	"time"

	"github.com/runnerr0/webpersona/internal/traits"
)

// TopSitesLimit caps the ranked site list.
const TopSitesLimit = 20

// VisitRecord is one history entry as supplied by a history source. Title and
// TypedCount are carried for export; scoring ignores them.
type VisitRecord struct {
	URL           string    `json:"url"`
	Title         string    `json:"title,omitempty"`
	VisitCount    int64     `json:"visitCount"`
	TypedCount    int64     `json:"typedCount,omitempty"`
	LastVisitTime time.Time `json:"lastVisitTime"`
}

// NormalizedVisit is a VisitRecord reduced to its aggregation key.
type NormalizedVisit struct {
	Domain string
	Visits int64
}

// Stats holds the headline numbers of an analysis.
type Stats struct {
	TotalSites   int   `json:"totalSites"`
	TotalVisits  int64 `json:"totalVisits"`
	SocialScore  int   `json:"socialScore"`
	TechScore    int   `json:"techScore"`
	PrivacyScore int   `json:"privacyScore"`
}

// TopSite is one ranked domain.
type TopSite struct {
	Domain   string          `json:"domain"`
	Visits   int64           `json:"visits"`
	Category traits.Category `json:"category"`
}

// AnalyzedSite is a ranked domain with its full trait annotation. Personality
// and Privacy are empty for domains missing from the trait table.
type AnalyzedSite struct {
	Domain      string              `json:"domain"`
	Visits      int64               `json:"visits"`
	Category    traits.Category     `json:"category"`
	Personality traits.Personality  `json:"personality,omitempty"`
	Privacy     traits.PrivacyLevel `json:"privacy,omitempty"`
}

// Result is the output of one analysis run. It is never mutated after
// construction; a new run supersedes it wholesale.
type Result struct {
	Personality   traits.Personality  `json:"personality"`
	Privacy       traits.PrivacyLevel `json:"privacy"`
	Behavior      traits.Category     `json:"behavior"`
	Stats         Stats               `json:"stats"`
	TopSites      []TopSite           `json:"topSites"`
	AnalyzedSites []AnalyzedSite      `json:"analyzedSites"`
	Insight       string              `json:"insight"`
}
