package analysis

import (
	"net/url"
	"strings"
)

// Normalize reduces a record to (domain, visits). ok is false when the URL
// does not parse or yields no hostname; such records are noise, not errors.
func Normalize(r VisitRecord) (NormalizedVisit, bool) {
	domain, ok := DomainOf(r.URL)
	if !ok {
		return NormalizedVisit{}, false
	}

	// Presence in history implies at least one visit.
	visits := r.VisitCount
	if visits < 1 {
		visits = 1
	}

	return NormalizedVisit{Domain: domain, Visits: visits}, true
}

// DomainOf extracts the aggregation key from a raw URL: the lowercased
// hostname with a single leading "www." removed.
func DomainOf(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", false
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return "", false
	}
	return host, true
}
