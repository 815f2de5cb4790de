package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/runnerr0/webpersona/internal/analysis"
	"github.com/runnerr0/webpersona/internal/logger"
)

// webkitEpochOffset is the number of microseconds between 1601-01-01 and
// 1970-01-01, the two epochs Chromium and Unix count from.
const webkitEpochOffset = 11644473600000000

// ChromiumSource reads the History database of Chrome, Chromium, Edge or
// Brave.
type ChromiumSource struct {
	Path string
	Log  *logger.Logger
}

// Fetch reads visible URLs last visited at or after q.Since, newest first.
// The browser holds a lock on its live database, so a private copy is read.
func (s *ChromiumSource) Fetch(ctx context.Context, q Query) ([]analysis.VisitRecord, error) {
	log := s.Log
	if log == nil {
		log = logger.Discard()
	}

	snapshot, cleanup, err := snapshotDB(ctx, s.Path, log)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	db, err := sql.Open("sqlite3", "file:"+snapshot+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	defer db.Close()

	var since int64
	if !q.Since.IsZero() {
		since = toWebKit(q.Since)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT url, COALESCE(title, ''), visit_count, typed_count, last_visit_time
		FROM urls
		WHERE hidden = 0 AND last_visit_time >= ?
		ORDER BY last_visit_time DESC
		LIMIT ?
	`, since, limitOrDefault(q.Limit))
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	records := []analysis.VisitRecord{}
	for rows.Next() {
		var r analysis.VisitRecord
		var lastVisit int64
		if err := rows.Scan(&r.URL, &r.Title, &r.VisitCount, &r.TypedCount, &lastVisit); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		r.LastVisitTime = fromWebKit(lastVisit)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	log.WithField("path", s.Path).WithField("records", len(records)).Debug("history fetched")
	return records, nil
}

// toWebKit converts t to Chromium's microseconds-since-1601 timestamp.
func toWebKit(t time.Time) int64 {
	return t.UnixMicro() + webkitEpochOffset
}

// fromWebKit is the inverse of toWebKit. Zero stays the zero time.
func fromWebKit(us int64) time.Time {
	if us <= 0 {
		return time.Time{}
	}
	return time.UnixMicro(us - webkitEpochOffset).UTC()
}
