package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const upsertRequestSQL = `INSERT INTO requests (
    id, source_ref, video_id, title, artist, channel_id, duration_seconds, thumbnail,
    requester_login, requester_display, requester_avatar, priority, bypass, submitted_at,
    match_json, status, position, archived_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    title = excluded.title,
    artist = excluded.artist,
    requester_display = excluded.requester_display,
    requester_avatar = excluded.requester_avatar,
    priority = excluded.priority,
    match_json = excluded.match_json,
    status = excluded.status,
    position = excluded.position,
    archived_at = excluded.archived_at,
    updated_at = excluded.updated_at
WHERE requests.status IN ('queued', 'active')`

// upsertRequest writes req with the given status. Archived and removed rows
// are terminal and never overwritten.
func upsertRequest(ctx context.Context, tx *sql.Tx, req *Request, status Status, position *int, now time.Time) error {
	if req == nil {
		return errors.New("request is nil")
	}
	match, err := encodeMatch(req.Match)
	if err != nil {
		return fmt.Errorf("encode match for %s: %w", req.ID, err)
	}
	var pos any
	if position != nil {
		pos = *position
	}
	_, err = tx.ExecContext(ctx, upsertRequestSQL,
		req.ID,
		req.SourceRef,
		req.VideoID,
		req.Title,
		req.Artist,
		nullableString(req.ChannelID),
		req.DurationSeconds,
		nullableString(req.Thumbnail),
		req.Requester.Login,
		nullableString(req.Requester.DisplayName),
		nullableString(req.Requester.AvatarURL),
		string(req.Priority),
		boolToInt(req.Bypass),
		formatTime(req.SubmittedAt),
		match,
		string(status),
		pos,
		nullableTime(req.ArchivedAt),
		formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("upsert request %s: %w", req.ID, err)
	}
	return nil
}

func resyncQueue(ctx context.Context, tx *sql.Tx, queue []*Request, now time.Time) error {
	ids := make([]any, 0, len(queue))
	for i, req := range queue {
		position := i
		if err := upsertRequest(ctx, tx, req, StatusQueued, &position, now); err != nil {
			return err
		}
		ids = append(ids, req.ID)
	}

	query := `UPDATE requests SET status = 'removed', position = NULL, updated_at = ? WHERE status = 'queued'`
	args := []any{formatTime(now)}
	if len(ids) > 0 {
		query += ` AND id NOT IN (` + makePlaceholders(len(ids)) + `)`
		args = append(args, ids...)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark dropped requests removed: %w", err)
	}
	return nil
}

// SyncQueue replaces the persisted queue with the given order in one
// transaction. Queued rows missing from queue are marked removed.
func (s *Store) SyncQueue(ctx context.Context, queue []*Request) error {
	now := time.Now().UTC()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return resyncQueue(ctx, tx, queue, now)
	})
}

// ApplyActiveChange persists an active slot transition atomically.
func (s *Store) ApplyActiveChange(ctx context.Context, change ActiveChange) error {
	now := time.Now().UTC()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if change.Archived != nil {
			if change.Archived.ArchivedAt == nil {
				return fmt.Errorf("archived request %s has no archive timestamp", change.Archived.ID)
			}
			if err := upsertRequest(ctx, tx, change.Archived, StatusArchived, nil, now); err != nil {
				return err
			}
		}
		if change.Activated != nil {
			if err := upsertRequest(ctx, tx, change.Activated, StatusActive, nil, now); err != nil {
				return err
			}
		}
		if change.Queue != nil {
			return resyncQueue(ctx, tx, change.Queue, now)
		}
		return nil
	})
}

// UpdateMatch replaces the enrichment descriptor of a queued or active request.
func (s *Store) UpdateMatch(ctx context.Context, id string, match *TrackMatch) error {
	encoded, err := encodeMatch(match)
	if err != nil {
		return fmt.Errorf("encode match: %w", err)
	}
	_, err = s.execWithRetry(ctx,
		`UPDATE requests SET match_json = ?, updated_at = ? WHERE id = ? AND status IN ('queued', 'active')`,
		encoded, formatTime(time.Now().UTC()), id,
	)
	if err != nil {
		return fmt.Errorf("update match: %w", err)
	}
	return nil
}

// GetRequest fetches a request by identifier regardless of status. It returns
// nil when the id is unknown.
func (s *Store) GetRequest(ctx context.Context, id string) (*Request, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+requestColumns+` FROM requests WHERE id = ?`, id)
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	return req, nil
}

// GetArchived fetches an archived request. It returns nil when id is unknown
// or not archived.
func (s *Store) GetArchived(ctx context.Context, id string) (*Request, error) {
	req, err := s.GetRequest(ctx, id)
	if err != nil || req == nil || req.Status != StatusArchived {
		return nil, err
	}
	return req, nil
}

// ListArchive returns archived requests, most recent first. Rows sharing an
// archive timestamp are ordered by when they were written. A non-positive
// limit returns every row.
func (s *Store) ListArchive(ctx context.Context, limit, offset int) ([]*Request, error) {
	if limit <= 0 {
		limit = -1
	}
	offset = max(offset, 0)
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+requestColumns+` FROM requests WHERE status = 'archived'
         ORDER BY archived_at DESC, updated_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list archive: %w", err)
	}
	defer rows.Close()
	return collectRequests(rows)
}

// DeleteArchived removes an archived row. It reports whether a row was deleted.
func (s *Store) DeleteArchived(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM requests WHERE id = ? AND status = 'archived'`, id)
	if err != nil {
		return false, fmt.Errorf("delete archived: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete archived rows affected: %w", err)
	}
	return affected > 0, nil
}

// Counts returns the number of requests per status.
func (s *Store) Counts(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM requests GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count requests: %w", err)
	}
	defer rows.Close()
	counts := make(map[Status]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[Status(status)] = count
	}
	return counts, rows.Err()
}

func (s *Store) loadQueue(ctx context.Context) ([]*Request, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE status = 'queued' ORDER BY position ASC, submitted_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("load queue: %w", err)
	}
	defer rows.Close()
	return collectRequests(rows)
}

func (s *Store) loadActive(ctx context.Context) (*Request, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE status = 'active' ORDER BY updated_at DESC LIMIT 1`,
	)
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load active: %w", err)
	}
	return req, nil
}

func collectRequests(rows *sql.Rows) ([]*Request, error) {
	var out []*Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}
	return out, nil
}
