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

// FirefoxSource reads a Firefox places.sqlite database.
type FirefoxSource struct {
	Path string
	Log  *logger.Logger
}

// Fetch reads places last visited at or after q.Since, newest first.
// Firefox stores last_visit_date as microseconds since the Unix epoch.
func (s *FirefoxSource) Fetch(ctx context.Context, q Query) ([]analysis.VisitRecord, error) {
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
		return nil, fmt.Errorf("open places database: %w", err)
	}
	defer db.Close()

	var since int64
	if !q.Since.IsZero() {
		since = q.Since.UnixMicro()
	}

	rows, err := db.QueryContext(ctx, `
		SELECT url, COALESCE(title, ''), visit_count, COALESCE(typed, 0), COALESCE(last_visit_date, 0)
		FROM moz_places
		WHERE hidden = 0 AND COALESCE(last_visit_date, 0) >= ?
		ORDER BY last_visit_date DESC
		LIMIT ?
	`, since, limitOrDefault(q.Limit))
	if err != nil {
		return nil, fmt.Errorf("query places: %w", err)
	}
	defer rows.Close()

	records := []analysis.VisitRecord{}
	for rows.Next() {
		var r analysis.VisitRecord
		var lastVisit int64
		if err := rows.Scan(&r.URL, &r.Title, &r.VisitCount, &r.TypedCount, &lastVisit); err != nil {
			return nil, fmt.Errorf("scan places row: %w", err)
		}
		if lastVisit > 0 {
			r.LastVisitTime = time.UnixMicro(lastVisit).UTC()
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	log.WithField("path", s.Path).WithField("records", len(records)).Debug("places fetched")
	return records, nil
}
