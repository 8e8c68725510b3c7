package queue

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

const (
	settingCeilingStandard = "ceiling.standard"
	settingCeilingElevated = "ceiling.elevated"
)

// LoadState restores the queue, active slot, eligibility lists, and
// ceilings. Ceilings that were never set fall back to defaults.
func (s *Store) LoadState(ctx context.Context, defaults Ceilings) (State, error) {
	ctx = ensureContext(ctx)
	var (
		state State
		err   error
	)
	if state.Queue, err = s.loadQueue(ctx); err != nil {
		return State{}, err
	}
	if state.Active, err = s.loadActive(ctx); err != nil {
		return State{}, err
	}
	if state.Blocked, err = s.ListBlocked(ctx); err != nil {
		return State{}, err
	}
	if state.Filters, err = s.ListFilters(ctx); err != nil {
		return State{}, err
	}
	if state.Ceilings, err = s.loadCeilings(ctx, defaults); err != nil {
		return State{}, err
	}
	return state, nil
}

// AddBlocked records login as blocked. Adding an existing entry is a no-op.
func (s *Store) AddBlocked(ctx context.Context, login string) error {
	_, err := s.execWithRetry(ctx,
		`INSERT INTO blocked_identities (login, created_at) VALUES (?, ?) ON CONFLICT(login) DO NOTHING`,
		NormalizeLogin(login), formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("add blocked identity: %w", err)
	}
	return nil
}

// RemoveBlocked deletes login from the block list and reports whether it was present.
func (s *Store) RemoveBlocked(ctx context.Context, login string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM blocked_identities WHERE login = ?`, NormalizeLogin(login))
	if err != nil {
		return false, fmt.Errorf("remove blocked identity: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListBlocked returns blocked logins in insertion order.
func (s *Store) ListBlocked(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT login FROM blocked_identities ORDER BY created_at, login`)
	if err != nil {
		return nil, fmt.Errorf("list blocked identities: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var login string
		if err := rows.Scan(&login); err != nil {
			return nil, fmt.Errorf("scan blocked identity: %w", err)
		}
		out = append(out, login)
	}
	return out, rows.Err()
}

// AddFilter stores a content filter. Adding an existing entry is a no-op.
func (s *Store) AddFilter(ctx context.Context, filter ContentFilter) error {
	_, err := s.execWithRetry(ctx,
		`INSERT INTO content_filters (term, category, created_at) VALUES (?, ?, ?)
         ON CONFLICT(term, category) DO NOTHING`,
		filter.Term, string(filter.Category), formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("add content filter: %w", err)
	}
	return nil
}

// RemoveFilter deletes a content filter and reports whether it was present.
func (s *Store) RemoveFilter(ctx context.Context, filter ContentFilter) (bool, error) {
	res, err := s.execWithRetry(ctx,
		`DELETE FROM content_filters WHERE term = ? AND category = ?`,
		filter.Term, string(filter.Category),
	)
	if err != nil {
		return false, fmt.Errorf("remove content filter: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListFilters returns content filters in insertion order.
func (s *Store) ListFilters(ctx context.Context) ([]ContentFilter, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT term, category FROM content_filters ORDER BY created_at, term`)
	if err != nil {
		return nil, fmt.Errorf("list content filters: %w", err)
	}
	defer rows.Close()
	var out []ContentFilter
	for rows.Next() {
		var (
			term     string
			category string
		)
		if err := rows.Scan(&term, &category); err != nil {
			return nil, fmt.Errorf("scan content filter: %w", err)
		}
		out = append(out, ContentFilter{Term: term, Category: FilterCategory(category)})
	}
	return out, rows.Err()
}

// SetCeiling persists the duration ceiling for a priority class.
func (s *Store) SetCeiling(ctx context.Context, priority Priority, seconds int) error {
	key := settingCeilingStandard
	if priority == PriorityElevated {
		key = settingCeilingElevated
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, strconv.Itoa(seconds),
	)
	if err != nil {
		return fmt.Errorf("set ceiling: %w", err)
	}
	return nil
}

func (s *Store) loadCeilings(ctx context.Context, defaults Ceilings) (Ceilings, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM settings WHERE key IN (?, ?)`,
		settingCeilingStandard, settingCeilingElevated,
	)
	if err != nil {
		return defaults, fmt.Errorf("load ceilings: %w", err)
	}
	defer rows.Close()
	ceilings := defaults
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return defaults, fmt.Errorf("scan setting: %w", err)
		}
		seconds, err := strconv.Atoi(value)
		if err != nil || seconds <= 0 {
			continue
		}
		switch key {
		case settingCeilingStandard:
			ceilings.Standard = seconds
		case settingCeilingElevated:
			ceilings.Elevated = seconds
		}
	}
	return ceilings, rows.Err()
}
