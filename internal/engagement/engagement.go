// Package engagement records per-page engagement samples (time on page,
// scroll depth, clicks) reported by the browser extension and summarizes
// them into dashboard KPIs. It shares nothing with the analysis pipeline.
package engagement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/runnerr0/webpersona/internal/logger"
	"github.com/runnerr0/webpersona/internal/storage"
)

// Entry is one engagement sample. On the wire TimeSpent is milliseconds and
// Timestamp is milliseconds since the Unix epoch, as the extension sends them.
type Entry struct {
	ID          string    `json:"id,omitempty"`
	Hostname    string    `json:"hostname"`
	TimeSpent   int64     `json:"timeSpent"`
	ScrollDepth int       `json:"scrollDepth"`
	Clicks      int64     `json:"clicks"`
	Category    string    `json:"category,omitempty"`
	Timestamp   time.Time `json:"-"`
}

type entryJSON struct {
	ID          string  `json:"id,omitempty"`
	Hostname    string  `json:"hostname"`
	TimeSpent   float64 `json:"timeSpent"`
	ScrollDepth float64 `json:"scrollDepth"`
	Clicks      int64   `json:"clicks"`
	Category    string  `json:"category,omitempty"`
	TS          int64   `json:"ts,omitempty"`
}

// UnmarshalJSON accepts fractional numbers for time and scroll depth, which
// browsers produce, and rounds them.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var w entryJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*e = Entry{
		ID:          w.ID,
		Hostname:    w.Hostname,
		TimeSpent:   roundClamped(w.TimeSpent, -maxTimeSpent, maxTimeSpent),
		ScrollDepth: int(roundClamped(w.ScrollDepth, 0, 100)),
		Clicks:      w.Clicks,
		Category:    w.Category,
	}
	if w.TS > 0 {
		e.Timestamp = time.UnixMilli(w.TS).UTC()
	}
	return nil
}

// maxTimeSpent bounds decoded times to integers a float64 holds exactly.
const maxTimeSpent = 1 << 53

// roundClamped rounds f after clamping it to [lo, hi], so out-of-range
// values never reach the integer conversion.
func roundClamped(f, lo, hi float64) int64 {
	return int64(math.Round(math.Max(lo, math.Min(hi, f))))
}

func (e Entry) MarshalJSON() ([]byte, error) {
	w := entryJSON{
		ID:          e.ID,
		Hostname:    e.Hostname,
		TimeSpent:   float64(e.TimeSpent),
		ScrollDepth: float64(e.ScrollDepth),
		Clicks:      e.Clicks,
		Category:    e.Category,
	}
	if !e.Timestamp.IsZero() {
		w.TS = e.Timestamp.UnixMilli()
	}
	return json.Marshal(w)
}

// Categories assigned by GuessCategory.
const (
	CategoryVideo        = "video"
	CategorySocial       = "social"
	CategoryTech         = "tech"
	CategoryShopping     = "shopping"
	CategoryProfessional = "professional"
	CategoryOther        = "other"
)

var categoryRules = []struct {
	category string
	pattern  *regexp.Regexp
}{
	{CategoryVideo, regexp.MustCompile(`(?i)youtube|netflix|primevideo`)},
	{CategorySocial, regexp.MustCompile(`(?i)instagram|facebook|twitter|whatsapp|reddit`)},
	{CategoryTech, regexp.MustCompile(`(?i)leetcode|github|stackoverflow|chatgpt|gemini`)},
	{CategoryShopping, regexp.MustCompile(`(?i)amazon|flipkart|zomato|zepto`)},
	{CategoryProfessional, regexp.MustCompile(`(?i)linkedin|indeed|naukri`)},
}

// GuessCategory buckets a hostname by keyword; first matching rule wins.
func GuessCategory(host string) string {
	for _, r := range categoryRules {
		if r.pattern.MatchString(host) {
			return r.category
		}
	}
	return CategoryOther
}

// Service validates and stores engagement samples.
type Service struct {
	store storage.Store
	log   *logger.Logger
	now   func() time.Time
}

func NewService(store storage.Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{store: store, log: log.Component("engagement"), now: time.Now}
}

// ErrInvalidEntry is wrapped by Log for samples that cannot be stored.
var ErrInvalidEntry = errors.New("invalid engagement entry")

// Log normalizes e and appends it. It returns false, with no error, when the
// host is on the denylist.
func (s *Service) Log(ctx context.Context, e *Entry) (bool, error) {
	host := strings.ToLower(strings.TrimSpace(e.Hostname))
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return false, fmt.Errorf("%w: hostname is required", ErrInvalidEntry)
	}
	if strings.ContainsAny(host, "/ ") {
		return false, fmt.Errorf("%w: %q is not a hostname", ErrInvalidEntry, e.Hostname)
	}
	if e.TimeSpent < 0 || e.Clicks < 0 {
		return false, fmt.Errorf("%w: negative time or clicks", ErrInvalidEntry)
	}

	e.Hostname = host
	e.ScrollDepth = clamp(e.ScrollDepth, 0, 100)
	if e.Category == "" {
		e.Category = GuessCategory(host)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now().UTC()
	}
	e.ID = uuid.New().String()

	stored, err := s.store.AppendEngagement(ctx, &storage.Engagement{
		ID:          e.ID,
		Hostname:    e.Hostname,
		TimeSpent:   e.TimeSpent,
		ScrollDepth: e.ScrollDepth,
		Clicks:      e.Clicks,
		Category:    e.Category,
		Timestamp:   e.Timestamp,
	})
	if err != nil {
		return false, err
	}
	if !stored {
		s.log.WithField("host", host).Debug("engagement skipped: host excluded")
		e.ID = ""
	}
	return stored, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// HostRow aggregates the samples of one hostname.
type HostRow struct {
	Hostname    string `json:"hostname"`
	Category    string `json:"category"`
	Samples     int    `json:"samples"`
	TimeSpent   int64  `json:"timeSpent"`
	Clicks      int64  `json:"clicks"`
	ScrollDepth int    `json:"avgScrollDepth"`
}

// Dashboard holds the engagement KPIs for a window.
type Dashboard struct {
	Since        *time.Time     `json:"since"`
	Samples      int            `json:"samples"`
	TotalTime    int64          `json:"totalTimeMs"`
	TotalMinutes int64          `json:"totalMinutes"`
	AvgScroll    int            `json:"avgScrollDepth"`
	TotalClicks  int64          `json:"totalClicks"`
	UniqueSites  int            `json:"uniqueSites"`
	Categories   map[string]int `json:"categories"`
	Hosts        []HostRow      `json:"hosts"`
}

// Dashboard computes KPIs over samples recorded at or after since (zero
// means all). An empty log yields zeroes.
func (s *Service) Dashboard(ctx context.Context, since time.Time) (*Dashboard, error) {
	entries, err := s.store.ListEngagement(ctx, since, 0)
	if err != nil {
		return nil, err
	}
	d := Summarize(entries)
	if !since.IsZero() {
		t := since.UTC()
		d.Since = &t
	}
	return d, nil
}

// Summarize computes dashboard KPIs from stored samples.
func Summarize(entries []storage.Engagement) *Dashboard {
	d := &Dashboard{Categories: map[string]int{}, Hosts: []HostRow{}}
	if len(entries) == 0 {
		return d
	}

	var scrollSum int64
	rows := map[string]*HostRow{}
	hostScroll := map[string]int64{}
	for _, e := range entries {
		d.TotalTime += e.TimeSpent
		d.TotalClicks += e.Clicks
		scrollSum += int64(e.ScrollDepth)

		cat := e.Category
		if cat == "" {
			cat = CategoryOther
		}
		d.Categories[cat]++

		row, ok := rows[e.Hostname]
		if !ok {
			row = &HostRow{Hostname: e.Hostname, Category: cat}
			rows[e.Hostname] = row
		}
		row.Samples++
		row.TimeSpent += e.TimeSpent
		row.Clicks += e.Clicks
		hostScroll[e.Hostname] += int64(e.ScrollDepth)
	}

	d.Samples = len(entries)
	d.UniqueSites = len(rows)
	d.AvgScroll = roundDiv(scrollSum, int64(len(entries)))
	d.TotalMinutes = int64(roundDiv(d.TotalTime, 60000))

	for host, row := range rows {
		row.ScrollDepth = roundDiv(hostScroll[host], int64(row.Samples))
		d.Hosts = append(d.Hosts, *row)
	}
	sort.Slice(d.Hosts, func(i, j int) bool {
		if d.Hosts[i].TimeSpent != d.Hosts[j].TimeSpent {
			return d.Hosts[i].TimeSpent > d.Hosts[j].TimeSpent
		}
		return d.Hosts[i].Hostname < d.Hosts[j].Hostname
	})

	return d
}

// roundDiv is a/b rounded half up, for non-negative a and positive b.
func roundDiv(a, b int64) int {
	return int((a*2 + b) / (b * 2))
}
