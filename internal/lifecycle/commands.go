package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"songline/internal/logging"
	"songline/internal/matching"
	"songline/internal/ordering"
	"songline/internal/queue"
	"songline/internal/services"
	"songline/internal/services/spotify"
	"songline/internal/textutil"
)

// Result reports the outcome of an operator command. Warning is a non-nil
// *PersistenceError when the store write failed.
type Result struct {
	Changed bool
	Removed int
	Request *queue.Request
	Warning error
}

// do runs fn on the actor and returns its error.
func (c *Coordinator) do(ctx context.Context, fn func(ctx context.Context) error) error {
	var out error
	if err := c.exec(ctx, func(ctx context.Context) { out = fn(ctx) }); err != nil {
		return err
	}
	return out
}

func notFound(op, id string) error {
	return services.Wrap(services.ErrNotFound, "lifecycle", op, fmt.Sprintf("request %q not found", id), nil)
}

func invalid(op, message string) error {
	return services.Wrap(services.ErrValidation, "lifecycle", op, message, nil)
}

// syncQueue persists the queue order and publishes queue.changed.
func (c *Coordinator) syncQueue(ctx context.Context, next []*queue.Request) error {
	c.state.queue = next
	c.recordState()
	warning := c.persist(ctx, "sync_queue", func(ctx context.Context) error {
		return c.store.SyncQueue(ctx, next)
	})
	c.publishQueue(ctx)
	return warning
}

// Remove deletes a queued request.
func (c *Coordinator) Remove(ctx context.Context, id string) (Result, error) {
	var res Result
	err := c.do(ctx, func(ctx context.Context) error {
		next, removed := ordering.Remove(c.state.queue, id)
		if removed == nil {
			return notFound("remove", id)
		}
		removed.Status = queue.StatusRemoved
		res = Result{Changed: true, Removed: 1, Request: removed.Clone()}
		res.Warning = c.syncQueue(ctx, next)
		return nil
	})
	return res, err
}

// Clear removes every queued request. Clearing an empty queue is a no-op.
func (c *Coordinator) Clear(ctx context.Context) (Result, error) {
	var res Result
	err := c.do(ctx, func(ctx context.Context) error {
		if len(c.state.queue) == 0 {
			return nil
		}
		for _, r := range c.state.queue {
			r.Status = queue.StatusRemoved
		}
		res = Result{Changed: true, Removed: len(c.state.queue)}
		res.Warning = c.syncQueue(ctx, []*queue.Request{})
		return nil
	})
	return res, err
}

// Reorder replaces the queue order. ids must be a permutation of the queued
// ids. The new order stands until a later insertion splices into it.
func (c *Coordinator) Reorder(ctx context.Context, ids []string) (Result, error) {
	var res Result
	err := c.do(ctx, func(ctx context.Context) error {
		next, err := ordering.Reorder(c.state.queue, ids)
		if err != nil {
			return err
		}
		res = Result{Changed: true}
		res.Warning = c.syncQueue(ctx, next)
		return nil
	})
	return res, err
}

// MoveToFront moves a queued request to the head regardless of class.
func (c *Coordinator) MoveToFront(ctx context.Context, id string) (Result, error) {
	var res Result
	err := c.do(ctx, func(ctx context.Context) error {
		idx := ordering.Index(c.state.queue, id)
		switch {
		case idx < 0:
			return notFound("move to front", id)
		case idx == 0:
			res.Request = c.state.queue[0].Clone()
			return nil
		}
		next, _ := ordering.MoveToFront(c.state.queue, id)
		res = Result{Changed: true, Request: next[0].Clone()}
		res.Warning = c.syncQueue(ctx, next)
		return nil
	})
	return res, err
}

// EditLink overrides the catalog match of a queued or active request with
// the track behind link. An empty link clears the match.
func (c *Coordinator) EditLink(ctx context.Context, id, link string) (Result, error) {
	var match *queue.TrackMatch
	if link = strings.TrimSpace(link); link != "" {
		trackID, ok := spotify.TrackIDFromLink(link)
		if !ok {
			return Result{}, invalid("edit link", "not a catalog track link")
		}
		if c.tracks == nil {
			return Result{}, services.Wrap(services.ErrConfiguration, "lifecycle", "edit link", "catalog lookups are disabled", nil)
		}
		track, err := c.tracks.Track(ctx, trackID)
		if err != nil {
			return Result{}, err
		}
		match = matching.Describe(*track, 1)
	}

	var res Result
	err := c.do(ctx, func(ctx context.Context) error {
		var target *queue.Request
		queued := false
		if idx := ordering.Index(c.state.queue, id); idx >= 0 {
			target, queued = c.state.queue[idx], true
		} else if c.state.active != nil && c.state.active.ID == id {
			target = c.state.active
		}
		if target == nil {
			return notFound("edit link", id)
		}
		target.Match = match
		res = Result{Changed: true, Request: target.Clone()}
		res.Warning = c.persist(ctx, "update_match", func(ctx context.Context) error {
			return c.store.UpdateMatch(ctx, id, match)
		})
		c.publishEnrichment(ctx, id, match)
		if queued {
			c.publishQueue(ctx)
		} else {
			c.publishActive(ctx)
		}
		return nil
	})
	return res, err
}

// archiveActive moves the active request to the archive and returns it, or
// nil when the slot is empty.
func (c *Coordinator) archiveActive(now time.Time) *queue.Request {
	prev := c.state.active
	if prev == nil {
		return nil
	}
	prev.Status = queue.StatusArchived
	prev.ArchivedAt = &now
	c.state.active = nil
	return prev
}

// SetActive promotes a queued request to the active slot, archiving the
// current one first. An empty id behaves exactly like FinishActive.
func (c *Coordinator) SetActive(ctx context.Context, id string) (Result, error) {
	if strings.TrimSpace(id) == "" {
		return c.FinishActive(ctx)
	}
	var res Result
	err := c.do(ctx, func(ctx context.Context) error {
		next, picked := ordering.Remove(c.state.queue, id)
		if picked == nil {
			return notFound("set active", id)
		}
		archived := c.archiveActive(c.now().UTC())
		picked.Status = queue.StatusActive
		c.state.queue = next
		c.state.active = picked
		c.recordState()

		res = Result{Changed: true, Request: picked.Clone()}
		res.Warning = c.persist(ctx, "apply_active", func(ctx context.Context) error {
			return c.store.ApplyActiveChange(ctx, queue.ActiveChange{Archived: archived, Activated: picked, Queue: next})
		})
		if archived != nil {
			c.publishArchived(ctx, archived)
		}
		c.publishActive(ctx)
		c.publishQueue(ctx)
		logging.WithContext(ctx, c.logger).Info("active request set",
			logging.String(logging.FieldRequestID, picked.ID),
			logging.String("title", picked.Title),
			logging.Bool("archived_previous", archived != nil),
		)
		return nil
	})
	return res, err
}

// FinishActive archives the active request and empties the slot. With
// nothing active it does nothing and publishes nothing.
func (c *Coordinator) FinishActive(ctx context.Context) (Result, error) {
	var res Result
	err := c.do(ctx, func(ctx context.Context) error {
		archived := c.archiveActive(c.now().UTC())
		if archived == nil {
			return nil
		}
		c.recordState()
		res = Result{Changed: true, Request: archived.Clone()}
		res.Warning = c.persist(ctx, "apply_active", func(ctx context.Context) error {
			return c.store.ApplyActiveChange(ctx, queue.ActiveChange{Archived: archived})
		})
		c.publishArchived(ctx, archived)
		c.publishActive(ctx)
		return nil
	})
	return res, err
}

// RequeueFromArchive creates a new request from an archived one and places it
// at the head of the queue. The copy keeps the recorded class and skips
// eligibility checks.
func (c *Coordinator) RequeueFromArchive(ctx context.Context, archivedID string) (SubmitResult, error) {
	var res SubmitResult
	err := c.do(ctx, func(ctx context.Context) error {
		src, err := c.store.GetArchived(ctx, archivedID)
		if err != nil {
			return services.Wrap(services.ErrPersistence, "lifecycle", "requeue", "load archived request", err)
		}
		if src == nil {
			return notFound("requeue", archivedID)
		}
		req := src.Clone()
		req.ID = c.newID()
		req.SubmittedAt = c.now().UTC()
		req.Status = queue.StatusQueued
		req.ArchivedAt = nil
		req.Bypass = true

		warning := c.syncQueue(ctx, ordering.InsertAt(c.state.queue, req, 0))
		res = SubmitResult{Request: req.Clone(), Position: 1, Warning: warning}
		return nil
	})
	return res, err
}

// DeleteArchived removes an archive entry.
func (c *Coordinator) DeleteArchived(ctx context.Context, id string) error {
	deleted, err := c.store.DeleteArchived(ctx, id)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "lifecycle", "delete archived", id, err)
	}
	if !deleted {
		return notFound("delete archived", id)
	}
	return nil
}

// UpdateBlocklist adds or removes a blocked login. Queued requests from a
// newly blocked login stay queued.
func (c *Coordinator) UpdateBlocklist(ctx context.Context, login string, add bool) (Result, error) {
	login = queue.NormalizeLogin(login)
	if login == "" {
		return Result{}, invalid("blocklist", "login is required")
	}
	var res Result
	err := c.do(ctx, func(ctx context.Context) error {
		if _, present := c.state.blocked[login]; present == add {
			return nil
		}
		res.Changed = true
		if add {
			c.state.blocked[login] = struct{}{}
			res.Warning = c.persist(ctx, "add_blocked", func(ctx context.Context) error {
				return c.store.AddBlocked(ctx, login)
			})
			return nil
		}
		delete(c.state.blocked, login)
		res.Warning = c.persist(ctx, "remove_blocked", func(ctx context.Context) error {
			_, err := c.store.RemoveBlocked(ctx, login)
			return err
		})
		return nil
	})
	return res, err
}

// NormalizeFilter validates a content filter and folds its term.
func NormalizeFilter(term, category string) (queue.ContentFilter, error) {
	cat, ok := queue.ParseFilterCategory(category)
	if !ok {
		return queue.ContentFilter{}, invalid("filters", fmt.Sprintf("unknown category %q", category))
	}
	term = textutil.Fold(term)
	if term == "" {
		return queue.ContentFilter{}, invalid("filters", "term is required")
	}
	return queue.ContentFilter{Term: term, Category: cat}, nil
}

// UpdateContentFilters adds or removes a content filter.
func (c *Coordinator) UpdateContentFilters(ctx context.Context, filter queue.ContentFilter, add bool) (Result, error) {
	filter, err := NormalizeFilter(filter.Term, string(filter.Category))
	if err != nil {
		return Result{}, err
	}
	var res Result
	err = c.do(ctx, func(ctx context.Context) error {
		idx := -1
		for i, f := range c.state.filters {
			if f == filter {
				idx = i
				break
			}
		}
		if (idx >= 0) == add {
			return nil
		}
		res.Changed = true
		if add {
			c.state.filters = append(c.state.filters, filter)
			res.Warning = c.persist(ctx, "add_filter", func(ctx context.Context) error {
				return c.store.AddFilter(ctx, filter)
			})
			return nil
		}
		c.state.filters = append(c.state.filters[:idx:idx], c.state.filters[idx+1:]...)
		res.Warning = c.persist(ctx, "remove_filter", func(ctx context.Context) error {
			_, err := c.store.RemoveFilter(ctx, filter)
			return err
		})
		return nil
	})
	return res, err
}

// SetDurationCeiling changes the maximum duration for a priority class. It
// applies to future submissions only.
func (c *Coordinator) SetDurationCeiling(ctx context.Context, priority queue.Priority, seconds int) (Result, error) {
	if priority != queue.PriorityStandard && priority != queue.PriorityElevated {
		return Result{}, invalid("ceiling", fmt.Sprintf("unknown class %q", priority))
	}
	if seconds <= 0 {
		return Result{}, invalid("ceiling", "seconds must be positive")
	}
	var res Result
	err := c.do(ctx, func(ctx context.Context) error {
		if c.state.ceilings.For(priority) == seconds {
			return nil
		}
		if priority == queue.PriorityElevated {
			c.state.ceilings.Elevated = seconds
		} else {
			c.state.ceilings.Standard = seconds
		}
		res.Changed = true
		res.Warning = c.persist(ctx, "set_ceiling", func(ctx context.Context) error {
			return c.store.SetCeiling(ctx, priority, seconds)
		})
		return nil
	})
	return res, err
}
