package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Event is a persisted gesture event.
type Event struct {
	ID        string
	Kind      string
	Source    string
	Timestamp time.Time
}

// KindCount is the number of recorded events of one kind.
type KindCount struct {
	Kind  string
	Count int64
}

// EventRepository stores the gesture event log.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Record inserts an event, assigning an ID if it has none.
func (r *EventRepository) Record(ctx context.Context, e *Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO gesture_events (id, kind, source, timestamp_ms) VALUES (?, ?, ?, ?)`,
		e.ID, e.Kind, e.Source, e.Timestamp.UnixMilli(),
	)
	return err
}

// ListRecent returns up to limit events, newest first.
func (r *EventRepository) ListRecent(ctx context.Context, limit int) ([]*Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kind, source, timestamp_ms FROM gesture_events
		 ORDER BY timestamp_ms DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e := &Event{}
		var ms int64
		if err := rows.Scan(&e.ID, &e.Kind, &e.Source, &ms); err != nil {
			return nil, err
		}
		e.Timestamp = time.UnixMilli(ms)
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// CountByKind returns the number of events per kind, most frequent first.
func (r *EventRepository) CountByKind(ctx context.Context) ([]KindCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT kind, COUNT(*) AS n FROM gesture_events GROUP BY kind ORDER BY n DESC, kind`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []KindCount
	for rows.Next() {
		var c KindCount
		if err := rows.Scan(&c.Kind, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}

	return counts, rows.Err()
}

// Prune deletes events older than before and returns how many were removed.
func (r *EventRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM gesture_events WHERE timestamp_ms < ?`, before.UnixMilli(),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
