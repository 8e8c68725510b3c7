// Package ordering computes queue positions. Functions never mutate their
// input slice; each returns a fresh sequence.
package ordering

import (
	"fmt"
	"slices"

	"songline/internal/queue"
	"songline/internal/services"
)

// InsertionIndex returns where a request of priority p lands. Elevated
// requests go immediately before the first standard entry; standard requests
// go to the tail.
func InsertionIndex(q []*queue.Request, p queue.Priority) int {
	if p != queue.PriorityElevated {
		return len(q)
	}
	for i, r := range q {
		if r.Priority != queue.PriorityElevated {
			return i
		}
	}
	return len(q)
}

// Insert places req according to its priority and returns the new sequence
// and the 0-based index it landed at.
func Insert(q []*queue.Request, req *queue.Request) ([]*queue.Request, int) {
	idx := InsertionIndex(q, req.Priority)
	return InsertAt(q, req, idx), idx
}

// InsertAt places req at idx, clamped to the queue bounds.
func InsertAt(q []*queue.Request, req *queue.Request, idx int) []*queue.Request {
	idx = max(0, min(idx, len(q)))
	out := make([]*queue.Request, 0, len(q)+1)
	out = append(out, q[:idx]...)
	out = append(out, req)
	return append(out, q[idx:]...)
}

// Reorder replaces the sequence with the order given by ids, which must be a
// permutation of the current ids.
func Reorder(q []*queue.Request, ids []string) ([]*queue.Request, error) {
	if len(ids) != len(q) {
		return nil, services.Wrap(services.ErrValidation, "ordering", "reorder",
			fmt.Sprintf("expected %d ids, got %d", len(q), len(ids)), nil)
	}
	byID := make(map[string]*queue.Request, len(q))
	for _, r := range q {
		byID[r.ID] = r
	}
	out := make([]*queue.Request, 0, len(q))
	for _, id := range ids {
		r, ok := byID[id]
		if !ok {
			return nil, services.Wrap(services.ErrValidation, "ordering", "reorder",
				fmt.Sprintf("id %q is unknown or repeated", id), nil)
		}
		delete(byID, id)
		out = append(out, r)
	}
	return out, nil
}

// MoveToFront moves the entry with id to the head regardless of class.
func MoveToFront(q []*queue.Request, id string) ([]*queue.Request, bool) {
	idx := Index(q, id)
	if idx < 0 {
		return q, false
	}
	out := make([]*queue.Request, 0, len(q))
	out = append(out, q[idx])
	out = append(out, q[:idx]...)
	return append(out, q[idx+1:]...), true
}

// Remove drops the entry with id, returning the removed request.
func Remove(q []*queue.Request, id string) ([]*queue.Request, *queue.Request) {
	idx := Index(q, id)
	if idx < 0 {
		return q, nil
	}
	removed := q[idx]
	return slices.Delete(slices.Clone(q), idx, idx+1), removed
}

// Index returns the position of id, or -1.
func Index(q []*queue.Request, id string) int {
	return slices.IndexFunc(q, func(r *queue.Request) bool { return r.ID == id })
}
