// Package traits holds the static domain-to-trait lookup used to score
// browsing history. The table is built once and never mutated.
package traits

import (
	"fmt"
	"strings"
)

// Personality is the personality signal a domain expresses.
type Personality string

const (
	Introvert Personality = "introvert"
	Extrovert Personality = "extrovert"
	Ambivert  Personality = "ambivert"

	// PersonalityNeutral is reported when no known domain was visited.
	PersonalityNeutral Personality = "neutral"
)

// PrivacyLevel is the privacy posture a domain expresses.
type PrivacyLevel string

const (
	PrivacyLow    PrivacyLevel = "low"
	PrivacyMedium PrivacyLevel = "medium"
	PrivacyHigh   PrivacyLevel = "high"

	// PrivacyUnknown is reported when no known domain was visited.
	PrivacyUnknown PrivacyLevel = "unknown"
)

// Category is the behavioural category of a domain.
type Category string

const (
	Social       Category = "social"
	Tech         Category = "tech"
	Professional Category = "professional"
	Travel       Category = "travel"
	Shopping     Category = "shopping"
	Education    Category = "education"
	Privacy      Category = "privacy"
	Other        Category = "other"
)

// Canonical orderings. Tie-breaks between equal tallies always favour the
// earlier entry.
var (
	Personalities = []Personality{Introvert, Extrovert, Ambivert}
	PrivacyLevels = []PrivacyLevel{PrivacyLow, PrivacyMedium, PrivacyHigh}
	Categories    = []Category{Social, Tech, Professional, Travel, Shopping, Education, Privacy, Other}
)

// Entry is the trait record for one domain.
type Entry struct {
	Personality Personality
	Privacy     PrivacyLevel
	Category    Category
	Weight      int64
}

// Table is a read-only domain lookup. The zero value is an empty table.
type Table struct {
	entries map[string]Entry
}

// NewTable validates and copies entries into a new Table. Keys are
// lowercased; every enum must be a known member and weight must be positive.
func NewTable(entries map[string]Entry) (*Table, error) {
	t := &Table{entries: make(map[string]Entry, len(entries))}
	for domain, e := range entries {
		key := strings.ToLower(strings.TrimSpace(domain))
		if key == "" {
			return nil, fmt.Errorf("empty domain in trait table")
		}
		if !validPersonality(e.Personality) {
			return nil, fmt.Errorf("domain %s: unknown personality %q", key, e.Personality)
		}
		if !validPrivacy(e.Privacy) {
			return nil, fmt.Errorf("domain %s: unknown privacy level %q", key, e.Privacy)
		}
		if !validCategory(e.Category) {
			return nil, fmt.Errorf("domain %s: unknown category %q", key, e.Category)
		}
		if e.Weight <= 0 {
			return nil, fmt.Errorf("domain %s: weight must be positive, got %d", key, e.Weight)
		}
		t.entries[key] = e
	}
	return t, nil
}

// Lookup returns the entry for an already-normalized domain.
func (t *Table) Lookup(domain string) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	e, ok := t.entries[domain]
	return e, ok
}

// Len reports the number of domains in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

func validPersonality(p Personality) bool {
	for _, v := range Personalities {
		if v == p {
			return true
		}
	}
	return false
}

func validPrivacy(p PrivacyLevel) bool {
	for _, v := range PrivacyLevels {
		if v == p {
			return true
		}
	}
	return false
}

func validCategory(c Category) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}
