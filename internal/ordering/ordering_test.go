package ordering_test

import (
	"errors"
	"reflect"
	"testing"

	"songline/internal/ordering"
	"songline/internal/queue"
	"songline/internal/services"
)

func req(id string, p queue.Priority) *queue.Request {
	return &queue.Request{ID: id, Priority: p, Status: queue.StatusQueued}
}

func ids(q []*queue.Request) []string {
	out := make([]string, len(q))
	for i, r := range q {
		out[i] = r.ID
	}
	return out
}

func TestInsertKeepsElevatedAheadOfStandard(t *testing.T) {
	var q []*queue.Request
	var idx int
	q, idx = ordering.Insert(q, req("s1", queue.PriorityStandard))
	if idx != 0 {
		t.Fatalf("first insert index = %d", idx)
	}
	q, _ = ordering.Insert(q, req("s2", queue.PriorityStandard))
	q, idx = ordering.Insert(q, req("e1", queue.PriorityElevated))
	if idx != 0 {
		t.Fatalf("elevated index = %d, want 0", idx)
	}
	q, idx = ordering.Insert(q, req("e2", queue.PriorityElevated))
	if idx != 1 {
		t.Fatalf("second elevated index = %d, want 1", idx)
	}
	q, idx = ordering.Insert(q, req("s3", queue.PriorityStandard))
	if idx != 4 {
		t.Fatalf("standard index = %d, want 4", idx)
	}
	want := []string{"e1", "e2", "s1", "s2", "s3"}
	if got := ids(q); !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestInsertElevatedIntoAllElevatedGoesToTail(t *testing.T) {
	q := []*queue.Request{req("e1", queue.PriorityElevated)}
	q, idx := ordering.Insert(q, req("e2", queue.PriorityElevated))
	if idx != 1 || !reflect.DeepEqual(ids(q), []string{"e1", "e2"}) {
		t.Fatalf("unexpected order %v idx %d", ids(q), idx)
	}
}

func TestInsertDoesNotMutateInput(t *testing.T) {
	q := []*queue.Request{req("s1", queue.PriorityStandard), req("s2", queue.PriorityStandard)}
	_, _ = ordering.Insert(q[:1], req("e1", queue.PriorityElevated))
	if q[1].ID != "s2" {
		t.Fatalf("input slice mutated: %v", ids(q))
	}
}

func TestReorderAndSplice(t *testing.T) {
	q := []*queue.Request{
		req("e1", queue.PriorityElevated),
		req("s1", queue.PriorityStandard),
		req("s2", queue.PriorityStandard),
	}
	q, err := ordering.Reorder(q, []string{"s2", "e1", "s1"})
	if err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	if !reflect.DeepEqual(ids(q), []string{"s2", "e1", "s1"}) {
		t.Fatalf("unexpected reorder %v", ids(q))
	}
	// Manual order stands; a new elevated entry splices before the first standard one.
	q, idx := ordering.Insert(q, req("e2", queue.PriorityElevated))
	if idx != 0 || !reflect.DeepEqual(ids(q), []string{"e2", "s2", "e1", "s1"}) {
		t.Fatalf("unexpected splice %v idx %d", ids(q), idx)
	}
}

func TestReorderRejectsNonPermutation(t *testing.T) {
	q := []*queue.Request{req("a", queue.PriorityStandard), req("b", queue.PriorityStandard)}
	for _, bad := range [][]string{{"a"}, {"a", "a"}, {"a", "c"}, {"a", "b", "c"}} {
		if _, err := ordering.Reorder(q, bad); !errors.Is(err, services.ErrValidation) {
			t.Errorf("Reorder(%v) err = %v, want validation", bad, err)
		}
	}
}

func TestMoveToFrontAndRemove(t *testing.T) {
	q := []*queue.Request{
		req("e1", queue.PriorityElevated),
		req("s1", queue.PriorityStandard),
		req("s2", queue.PriorityStandard),
	}
	moved, ok := ordering.MoveToFront(q, "s2")
	if !ok || !reflect.DeepEqual(ids(moved), []string{"s2", "e1", "s1"}) {
		t.Fatalf("unexpected move %v", ids(moved))
	}
	if _, ok := ordering.MoveToFront(q, "missing"); ok {
		t.Fatal("expected missing id to report false")
	}

	rest, removed := ordering.Remove(q, "s1")
	if removed == nil || removed.ID != "s1" || !reflect.DeepEqual(ids(rest), []string{"e1", "s2"}) {
		t.Fatalf("unexpected remove %v / %v", ids(rest), removed)
	}
	if !reflect.DeepEqual(ids(q), []string{"e1", "s1", "s2"}) {
		t.Fatalf("Remove mutated input: %v", ids(q))
	}
	if _, removed := ordering.Remove(q, "nope"); removed != nil {
		t.Fatal("expected nil for unknown id")
	}
}
