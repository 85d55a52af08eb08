// Package snapshot keeps the signal snapshot log: one record per successful
// fusion run, appended after its outputs are written.
package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"protonfusion/internal/logger"
)

// DefaultEmotion is the label fusion runs are logged under.
const DefaultEmotion = "fusion"

type Record struct {
	ID          string
	Timestamp   time.Time
	Emotion     string
	Image       string
	Descriptor  string
	EmberID     string
	Glyph       string
	Mode        string
	ContentHash string
}

type Store struct {
	db     *sql.DB
	logger logger.Logger
}

// Open opens (or creates) the snapshot database at path. ":memory:" gives a
// private in-memory log.
func Open(path string, log logger.Logger, opts ...Option) (*Store, error) {
	cfg := defaults()
	for _, o := range opts {
		o(&cfg)
	}
	if log == nil {
		log = logger.NewNop()
	}

	db, err := openDB(path, cfg)
	if err != nil {
		return nil, err
	}

	log.Debug("SnapshotStore", "opened", map[string]interface{}{
		"path": path,
	})

	return &Store{db: db, logger: log}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Append stores rec, filling in a UUIDv7 ID, the current time and the
// default emotion when they are unset. It returns the stored record.
func (s *Store) Append(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return Record{}, fmt.Errorf("snapshot: id: %w", err)
		}
		rec.ID = id.String()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	if rec.Emotion == "" {
		rec.Emotion = DefaultEmotion
	}
	if rec.EmberID == "" {
		return Record{}, fmt.Errorf("snapshot: ember id is required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, created_at, emotion, image, descriptor, ember_id, glyph, mode, content_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, formatTime(rec.Timestamp), rec.Emotion, rec.Image, rec.Descriptor,
		rec.EmberID, rec.Glyph, rec.Mode, rec.ContentHash,
	)
	if err != nil {
		s.logger.Error("SnapshotStore", err, map[string]interface{}{
			"ember_id": rec.EmberID,
		})
		return Record{}, fmt.Errorf("snapshot: append: %w", err)
	}

	s.logger.Info("SnapshotStore", "snapshot recorded", map[string]interface{}{
		"id":       rec.ID,
		"ember_id": rec.EmberID,
		"glyph":    rec.Glyph,
	})

	return rec, nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.query(ctx, `
		SELECT id, created_at, emotion, image, descriptor, ember_id, glyph, mode, content_hash
		FROM snapshots ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
}

// ByCode returns every record with the given ember id, oldest first.
func (s *Store) ByCode(ctx context.Context, code string) ([]Record, error) {
	return s.query(ctx, `
		SELECT id, created_at, emotion, image, descriptor, ember_id, glyph, mode, content_hash
		FROM snapshots WHERE ember_id = ? ORDER BY created_at, id`, code)
}

func (s *Store) query(ctx context.Context, q string, args ...interface{}) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("snapshot: query: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var created string
		if err := rows.Scan(&rec.ID, &created, &rec.Emotion, &rec.Image, &rec.Descriptor,
			&rec.EmberID, &rec.Glyph, &rec.Mode, &rec.ContentHash); err != nil {
			return nil, fmt.Errorf("snapshot: scan: %w", err)
		}
		rec.Timestamp, err = time.Parse(timeLayout, created)
		if err != nil {
			return nil, fmt.Errorf("snapshot: bad timestamp %q: %w", created, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Fixed width so that text order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
