package analysis

import "github.com/runnerr0/webpersona/internal/traits"

// SummarySite is a top site reduced to domain and visit count.
type SummarySite struct {
	Domain string `json:"domain"`
	Visits int64  `json:"visits"`
}

// Summary is the privacy-filtered projection of a Result that may leave the
// machine. It never carries URLs, titles or timestamps; adding a field here
// widens what is sent to the remote insight provider.
type Summary struct {
	TopSites      []SummarySite       `json:"topSites"`
	Stats         Stats               `json:"stats"`
	Personality   traits.Personality  `json:"personality"`
	Privacy       traits.PrivacyLevel `json:"privacy"`
	TimeframeDays *int                `json:"timeframeDays"`
}

// Summarize projects r for the insight generator. timeframeDays <= 0 is
// reported as null.
func Summarize(r Result, timeframeDays int) Summary {
	n := len(r.TopSites)
	if n > TopSitesLimit {
		n = TopSitesLimit
	}

	sites := make([]SummarySite, n)
	for i := 0; i < n; i++ {
		sites[i] = SummarySite{Domain: r.TopSites[i].Domain, Visits: r.TopSites[i].Visits}
	}

	s := Summary{
		TopSites:    sites,
		Stats:       r.Stats,
		Personality: r.Personality,
		Privacy:     r.Privacy,
	}
	if timeframeDays > 0 {
		days := timeframeDays
		s.TimeframeDays = &days
	}
	return s
}
