package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/runnerr0/webpersona/internal/analysis"
)

// Item is a history entry in the browser extension format: timestamps are
// milliseconds since the Unix epoch.
type Item struct {
	URL           string  `json:"url"`
	Title         string  `json:"title"`
	VisitCount    int64   `json:"visitCount"`
	TypedCount    int64   `json:"typedCount"`
	LastVisitTime float64 `json:"lastVisitTime"`
}

// maxExactFloat bounds numeric fields to integers a float64 holds exactly.
const maxExactFloat = 1 << 53

// number is a lenient numeric field: JSON numbers, numeric strings and null
// are accepted; anything else reads as zero.
type number float64

func (n *number) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		var s string
		if json.Unmarshal(data, &s) != nil {
			*n = 0
			return nil
		}
		if f, err = strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
			f = 0
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		f = 0
	}
	*n = number(math.Max(-maxExactFloat, math.Min(maxExactFloat, f)))
	return nil
}

func (n number) int64() int64 { return int64(math.Round(float64(n))) }

type itemJSON struct {
	URL           string `json:"url"`
	Title         string `json:"title"`
	VisitCount    number `json:"visitCount"`
	TypedCount    number `json:"typedCount"`
	LastVisitTime number `json:"lastVisitTime"`
}

// UnmarshalJSON tolerates fractional or string counts and timestamps, which
// extension exports sometimes carry. Counts are rounded.
func (it *Item) UnmarshalJSON(data []byte) error {
	var w itemJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*it = Item{
		URL:           w.URL,
		Title:         w.Title,
		VisitCount:    w.VisitCount.int64(),
		TypedCount:    w.TypedCount.int64(),
		LastVisitTime: float64(w.LastVisitTime),
	}
	return nil
}

// Record converts the item to a VisitRecord.
func (it Item) Record() analysis.VisitRecord {
	r := analysis.VisitRecord{
		URL:        it.URL,
		Title:      it.Title,
		VisitCount: it.VisitCount,
		TypedCount: it.TypedCount,
	}
	if it.LastVisitTime > 0 {
		r.LastVisitTime = time.UnixMilli(int64(it.LastVisitTime)).UTC()
	}
	return r
}

// DecodeItems reads a JSON array of Items. Elements that are not item
// objects are skipped; only a body that is not an array is an error.
func DecodeItems(r io.Reader) ([]Item, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode history items: %w", err)
	}

	items := make([]Item, 0, len(raw))
	for _, msg := range raw {
		var it Item
		if err := json.Unmarshal(msg, &it); err != nil {
			continue
		}
		items = append(items, it)
	}
	return items, nil
}

// FromItems converts items to records, keeping those visited at or after
// since (zero keeps all), newest first, capped at limit.
func FromItems(items []Item, q Query) []analysis.VisitRecord {
	records := make([]analysis.VisitRecord, 0, len(items))
	for _, it := range items {
		r := it.Record()
		if !q.Since.IsZero() && r.LastVisitTime.Before(q.Since) {
			continue
		}
		records = append(records, r)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].LastVisitTime.After(records[j].LastVisitTime)
	})

	if limit := limitOrDefault(q.Limit); len(records) > limit {
		records = records[:limit]
	}
	return records
}

// JSONSource reads an exported history file.
type JSONSource struct {
	Path string
}

// Fetch implements Source.
func (s *JSONSource) Fetch(ctx context.Context, q Query) ([]analysis.VisitRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open history file: %w", err)
	}
	defer f.Close()

	items, err := DecodeItems(f)
	if err != nil {
		return nil, err
	}
	return FromItems(items, q), nil
}
