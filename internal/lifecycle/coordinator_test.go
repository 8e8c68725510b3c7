package lifecycle_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"songline/internal/api"
	"songline/internal/eligibility"
	"songline/internal/lifecycle"
	"songline/internal/metadata"
	"songline/internal/notifications"
	"songline/internal/queue"
	"songline/internal/services"
	"songline/internal/services/spotify"
	"songline/internal/testsupport"
)

type stubTracks map[string]spotify.Track

func (s stubTracks) Track(_ context.Context, id string) (*spotify.Track, error) {
	t, ok := s[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	return &t, nil
}

// gatedResolver holds every resolution until release is closed.
type gatedResolver struct {
	*testsupport.StubResolver
	entered chan struct{}
	release chan struct{}
}

func newGatedResolver() *gatedResolver {
	return &gatedResolver{
		StubResolver: testsupport.NewStubResolver(),
		entered:      make(chan struct{}, 1),
		release:      make(chan struct{}),
	}
}

func (g *gatedResolver) Resolve(ctx context.Context, ref string) (metadata.Metadata, error) {
	g.entered <- struct{}{}
	select {
	case <-g.release:
	case <-ctx.Done():
		return metadata.Metadata{}, ctx.Err()
	}
	return g.StubResolver.Resolve(ctx, ref)
}

// failingStore fails every queue write while failSync is set.
type failingStore struct {
	*queue.Store
	failSync atomic.Bool
}

func (f *failingStore) SyncQueue(ctx context.Context, q []*queue.Request) error {
	if f.failSync.Load() {
		return errors.New("disk full")
	}
	return f.Store.SyncQueue(ctx, q)
}

type harness struct {
	coord    *lifecycle.Coordinator
	store    *queue.Store
	resolver *testsupport.StubResolver
	notifier *testsupport.RecordingNotifier
}

func newHarness(t *testing.T, opts ...lifecycle.Option) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	return startHarness(t, store, store, testsupport.NewStubResolver(), opts...)
}

func startHarness(t *testing.T, backing *queue.Store, store lifecycle.Store, resolver lifecycle.Resolver, opts ...lifecycle.Option) *harness {
	t.Helper()
	notifier := &testsupport.RecordingNotifier{}
	var seq atomic.Int64
	base := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	defaults := []lifecycle.Option{
		lifecycle.WithNotifier(notifier),
		lifecycle.WithIDGenerator(func() string { return fmt.Sprintf("r%03d", seq.Add(1)) }),
		lifecycle.WithClock(func() time.Time { return base.Add(time.Duration(seq.Load()) * time.Second) }),
		lifecycle.WithCeilings(queue.Ceilings{Standard: 300, Elevated: 600}),
	}
	coord := lifecycle.New(store, resolver, append(defaults, opts...)...)
	if err := coord.Restore(context.Background()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = coord.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	stub, _ := resolver.(*testsupport.StubResolver)
	return &harness{coord: coord, store: backing, resolver: stub, notifier: notifier}
}

func vid(n int) string { return fmt.Sprintf("vid%08d", n) }

func (h *harness) submit(t *testing.T, login string, n int, priority queue.Priority) lifecycle.SubmitResult {
	t.Helper()
	res, err := h.coord.Submit(context.Background(), lifecycle.Submission{
		Reference: "https://youtu.be/" + vid(n),
		Requester: queue.Identity{Login: login},
		Priority:  priority,
	})
	if err != nil {
		t.Fatalf("Submit(%s, %d): %v", login, n, err)
	}
	if res.Warning != nil {
		t.Fatalf("unexpected persistence warning: %v", res.Warning)
	}
	return res
}

func (h *harness) queueIDs(t *testing.T) []string {
	t.Helper()
	snap, err := h.coord.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	return testsupport.IDs(snap.Queue)
}

func requireDecline(t *testing.T, err error, want eligibility.Reason) {
	t.Helper()
	var decline *eligibility.Decline
	if !errors.As(err, &decline) {
		t.Fatalf("expected decline %q, got %v", want, err)
	}
	if decline.Reason != want {
		t.Fatalf("decline reason = %q, want %q", decline.Reason, want)
	}
	if !errors.Is(err, services.ErrPolicy) {
		t.Fatalf("expected decline to match ErrPolicy")
	}
}

func TestSubmitOrdersElevatedAheadOfStandard(t *testing.T) {
	h := newHarness(t)

	a := h.submit(t, "alice", 1, queue.PriorityStandard)
	b := h.submit(t, "bob", 2, queue.PriorityStandard)
	c := h.submit(t, "carol", 3, queue.PriorityElevated)
	d := h.submit(t, "dave", 4, queue.PriorityElevated)

	if a.Position != 1 || b.Position != 2 {
		t.Fatalf("standard positions = %d, %d", a.Position, b.Position)
	}
	if c.Position != 1 || d.Position != 2 {
		t.Fatalf("elevated positions = %d, %d", c.Position, d.Position)
	}
	want := []string{c.Request.ID, d.Request.ID, a.Request.ID, b.Request.ID}
	if got := h.queueIDs(t); !slices.Equal(got, want) {
		t.Fatalf("queue = %v, want %v", got, want)
	}

	st, err := h.store.LoadState(context.Background(), queue.Ceilings{Standard: 300, Elevated: 600})
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if got := testsupport.IDs(st.Queue); !slices.Equal(got, want) {
		t.Fatalf("persisted queue = %v, want %v", got, want)
	}
}

func TestSubmitNormalizesRequesterAndAttachesMatch(t *testing.T) {
	match := &queue.TrackMatch{ID: "track", Name: "Song", Score: 0.9}
	h := newHarness(t, lifecycle.WithMatcher(testsupport.StubMatcher{Result: match}))

	res, err := h.coord.Submit(context.Background(), lifecycle.Submission{
		Reference: "  https://www.youtube.com/watch?v=" + vid(1) + "  ",
		Requester: queue.Identity{Login: " @Alice ", DisplayName: "Alice"},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Request.Requester.Login != "alice" {
		t.Fatalf("login = %q", res.Request.Requester.Login)
	}
	if res.Request.Priority != queue.PriorityStandard {
		t.Fatalf("priority = %q", res.Request.Priority)
	}
	if res.Request.Match == nil || res.Request.Match.ID != "track" {
		t.Fatalf("expected match attached, got %+v", res.Request.Match)
	}
	if res.Request.Status != queue.StatusQueued {
		t.Fatalf("status = %q", res.Request.Status)
	}
	want := []notifications.Event{notifications.EventQueueChanged, notifications.EventEnrichmentAttached}
	if names := h.notifier.Names(); !slices.Equal(names, want) {
		t.Fatalf("events = %v, want %v", names, want)
	}
	events := h.notifier.Events()
	if events[1].Payload["id"] != res.Request.ID {
		t.Fatalf("enrichment payload id = %v", events[1].Payload["id"])
	}
	if m, _ := events[1].Payload["match"].(*api.TrackMatch); m == nil || m.ID != "track" {
		t.Fatalf("enrichment payload match = %+v", events[1].Payload["match"])
	}
}

func TestSubmitMatcherMissPublishesNullEnrichment(t *testing.T) {
	h := newHarness(t, lifecycle.WithMatcher(testsupport.StubMatcher{}))

	res := h.submit(t, "alice", 1, queue.PriorityStandard)
	if res.Request.Match != nil {
		t.Fatalf("expected no match, got %+v", res.Request.Match)
	}
	want := []notifications.Event{notifications.EventQueueChanged, notifications.EventEnrichmentAttached}
	if names := h.notifier.Names(); !slices.Equal(names, want) {
		t.Fatalf("events = %v, want %v", names, want)
	}
	events := h.notifier.Events()
	if m, _ := events[1].Payload["match"].(*api.TrackMatch); m != nil {
		t.Fatalf("expected null match payload, got %+v", m)
	}
}

func TestSubmitWithoutMatcherSkipsEnrichment(t *testing.T) {
	h := newHarness(t)
	h.submit(t, "alice", 1, queue.PriorityStandard)
	if names := h.notifier.Names(); !slices.Equal(names, []notifications.Event{notifications.EventQueueChanged}) {
		t.Fatalf("events = %v", names)
	}
}

func TestSubmitDeclinesSecondOutstandingStandardRequest(t *testing.T) {
	h := newHarness(t)
	h.submit(t, "alice", 1, queue.PriorityStandard)

	_, err := h.coord.Submit(context.Background(), lifecycle.Submission{
		Reference: vid(2),
		Requester: queue.Identity{Login: "ALICE"},
	})
	requireDecline(t, err, eligibility.ReasonOutstanding)

	events := h.notifier.Events()
	last := events[len(events)-1]
	if last.Event != notifications.EventSubmissionDeclined {
		t.Fatalf("expected decline event, got %s", last.Event)
	}
	if last.Payload["reason"] != string(eligibility.ReasonOutstanding) || last.Payload["login"] != "alice" {
		t.Fatalf("unexpected decline payload %+v", last.Payload)
	}

	// Elevated submissions are not limited by outstanding standard requests.
	h.submit(t, "alice", 3, queue.PriorityElevated)
	if got := len(h.queueIDs(t)); got != 2 {
		t.Fatalf("queue length = %d, want 2", got)
	}
}

func TestSubmitDeclinesDuplicateVideo(t *testing.T) {
	h := newHarness(t)
	h.submit(t, "alice", 1, queue.PriorityStandard)

	_, err := h.coord.Submit(context.Background(), lifecycle.Submission{
		Reference: "https://youtu.be/" + vid(1),
		Requester: queue.Identity{Login: "bob"},
		Priority:  queue.PriorityElevated,
	})
	requireDecline(t, err, eligibility.ReasonDuplicate)
}

func TestSubmitHonoursBlocklistAndBypass(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.coord.UpdateBlocklist(ctx, "@Troll", true); err != nil {
		t.Fatalf("UpdateBlocklist: %v", err)
	}

	_, err := h.coord.Submit(ctx, lifecycle.Submission{Reference: vid(1), Requester: queue.Identity{Login: "troll"}})
	requireDecline(t, err, eligibility.ReasonBlocked)

	res, err := h.coord.Submit(ctx, lifecycle.Submission{Reference: vid(1), Requester: queue.Identity{Login: "troll"}, Bypass: true})
	if err != nil {
		t.Fatalf("bypass submission declined: %v", err)
	}
	if !res.Request.Bypass {
		t.Fatal("expected bypass flag recorded")
	}

	res2, err := h.coord.UpdateBlocklist(ctx, "troll", false)
	if err != nil || !res2.Changed {
		t.Fatalf("unblock: %+v %v", res2, err)
	}
	snap, _ := h.coord.Snapshot(ctx)
	if len(snap.Blocked) != 0 {
		t.Fatalf("blocked = %v", snap.Blocked)
	}
}

func TestSubmitEnforcesDurationCeilingPerClass(t *testing.T) {
	h := newHarness(t)
	h.resolver.Add(vid(1), "Long Song", "Band", 400)
	h.resolver.Add(vid(2), "Epic Song", "Band", 700)

	_, err := h.coord.Submit(context.Background(), lifecycle.Submission{Reference: vid(1), Requester: queue.Identity{Login: "alice"}})
	requireDecline(t, err, eligibility.ReasonTooLong)

	h.submit(t, "alice", 1, queue.PriorityElevated)

	_, err = h.coord.Submit(context.Background(), lifecycle.Submission{Reference: vid(2), Requester: queue.Identity{Login: "bob"}, Priority: queue.PriorityElevated})
	requireDecline(t, err, eligibility.ReasonTooLong)
}

func TestSetDurationCeilingAppliesToFutureSubmissions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.submit(t, "alice", 1, queue.PriorityStandard)

	res, err := h.coord.SetDurationCeiling(ctx, queue.PriorityStandard, 120)
	if err != nil || !res.Changed {
		t.Fatalf("SetDurationCeiling: %+v %v", res, err)
	}
	if got := len(h.queueIDs(t)); got != 1 {
		t.Fatalf("existing requests must stay queued, got %d", got)
	}
	_, err = h.coord.Submit(ctx, lifecycle.Submission{Reference: vid(2), Requester: queue.Identity{Login: "bob"}})
	requireDecline(t, err, eligibility.ReasonTooLong)

	if _, err := h.coord.SetDurationCeiling(ctx, queue.PriorityStandard, 0); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for zero ceiling, got %v", err)
	}
	if _, err := h.coord.SetDurationCeiling(ctx, "vip", 100); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for unknown class, got %v", err)
	}
}

func TestContentFiltersMatchCaseInsensitively(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.resolver.Add(vid(1), "Never Gonna Give You Up", "Rick Astley", 200)
	h.resolver.Add(vid(2), "Together Forever", "RICK ASTLEY", 200)

	if _, err := h.coord.UpdateContentFilters(ctx, queue.ContentFilter{Term: "  GIVE YOU UP ", Category: "title"}, true); err != nil {
		t.Fatalf("add title filter: %v", err)
	}
	if _, err := h.coord.UpdateContentFilters(ctx, queue.ContentFilter{Term: "rick astley", Category: "artist"}, true); err != nil {
		t.Fatalf("add artist filter: %v", err)
	}

	_, err := h.coord.Submit(ctx, lifecycle.Submission{Reference: vid(1), Requester: queue.Identity{Login: "a"}})
	requireDecline(t, err, eligibility.ReasonFilteredTitle)
	_, err = h.coord.Submit(ctx, lifecycle.Submission{Reference: vid(2), Requester: queue.Identity{Login: "b"}})
	requireDecline(t, err, eligibility.ReasonFilteredArtist)

	res, err := h.coord.UpdateContentFilters(ctx, queue.ContentFilter{Term: "give you up", Category: "title"}, true)
	if err != nil || res.Changed {
		t.Fatalf("re-adding an existing filter should be a no-op: %+v %v", res, err)
	}
	if _, err := h.coord.UpdateContentFilters(ctx, queue.ContentFilter{Term: "x", Category: "genre"}, true); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := h.coord.UpdateContentFilters(ctx, queue.ContentFilter{Term: "rick astley", Category: "artist"}, false); err != nil {
		t.Fatalf("remove filter: %v", err)
	}
	h.submit(t, "b", 2, queue.PriorityStandard)
}

func TestSubmitInvalidReferenceDeclinesWithoutResolving(t *testing.T) {
	h := newHarness(t)
	_, err := h.coord.Submit(context.Background(), lifecycle.Submission{
		Reference: "https://example.com/watch?v=nope",
		Requester: queue.Identity{Login: "alice"},
	})
	reason, _, ok := lifecycle.DeclineInfo(err)
	if !ok || reason != lifecycle.ReasonInvalidReference {
		t.Fatalf("expected invalid reference decline, got %v", err)
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if h.resolver.Calls() != 0 {
		t.Fatalf("resolver called %d times", h.resolver.Calls())
	}
	names := h.notifier.Names()
	if !slices.Equal(names, []notifications.Event{notifications.EventSubmissionDeclined}) {
		t.Fatalf("events = %v", names)
	}
}

func TestSubmitRequiresRequester(t *testing.T) {
	h := newHarness(t)
	_, err := h.coord.Submit(context.Background(), lifecycle.Submission{Reference: vid(1), Requester: queue.Identity{Login: "  "}})
	reason, _, ok := lifecycle.DeclineInfo(err)
	if !ok || reason != lifecycle.ReasonInvalidRequester {
		t.Fatalf("expected invalid requester decline, got %v", err)
	}
}

func TestSubmitUnavailableVideo(t *testing.T) {
	h := newHarness(t)
	h.resolver.Fail(vid(1), metadata.ReasonUnavailable)
	_, err := h.coord.Submit(context.Background(), lifecycle.Submission{Reference: vid(1), Requester: queue.Identity{Login: "alice"}})
	reason, message, ok := lifecycle.DeclineInfo(err)
	if !ok || reason != metadata.ReasonUnavailable || message == "" {
		t.Fatalf("expected unavailable decline, got %q %q %v", reason, message, err)
	}
	if got := len(h.queueIDs(t)); got != 0 {
		t.Fatalf("queue length = %d", got)
	}
}

func TestConcurrentSubmissionsFromOneRequester(t *testing.T) {
	h := newHarness(t)
	const n = 8
	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
		declined atomic.Int32
	)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.coord.Submit(context.Background(), lifecycle.Submission{
				Reference: vid(100 + i),
				Requester: queue.Identity{Login: "alice"},
			})
			var decline *eligibility.Decline
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.As(err, &decline) && decline.Reason == eligibility.ReasonOutstanding:
				declined.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if accepted.Load() != 1 || declined.Load() != n-1 {
		t.Fatalf("accepted=%d declined=%d", accepted.Load(), declined.Load())
	}
}

func TestSetActiveArchivesPreviousAndPublishesInOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.submit(t, "alice", 1, queue.PriorityStandard)
	b := h.submit(t, "bob", 2, queue.PriorityStandard)
	h.notifier.Reset()

	if _, err := h.coord.SetActive(ctx, a.Request.ID); err != nil {
		t.Fatalf("SetActive(a): %v", err)
	}
	want := []notifications.Event{notifications.EventActiveChanged, notifications.EventQueueChanged}
	if names := h.notifier.Names(); !slices.Equal(names, want) {
		t.Fatalf("events = %v, want %v", names, want)
	}

	h.notifier.Reset()
	res, err := h.coord.SetActive(ctx, b.Request.ID)
	if err != nil {
		t.Fatalf("SetActive(b): %v", err)
	}
	if res.Request.Status != queue.StatusActive {
		t.Fatalf("status = %q", res.Request.Status)
	}
	want = []notifications.Event{notifications.EventArchiveAppended, notifications.EventActiveChanged, notifications.EventQueueChanged}
	if names := h.notifier.Names(); !slices.Equal(names, want) {
		t.Fatalf("events = %v, want %v", names, want)
	}

	snap, _ := h.coord.Snapshot(ctx)
	if len(snap.Queue) != 0 || snap.Active == nil || snap.Active.ID != b.Request.ID {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	archive, err := h.coord.Archive(ctx, 10, 0)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if len(archive) != 1 || archive[0].ID != a.Request.ID || archive[0].ArchivedAt == nil {
		t.Fatalf("unexpected archive %+v", archive)
	}

	if _, err := h.coord.SetActive(ctx, "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFinishActive(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.coord.FinishActive(ctx)
	if err != nil || res.Changed {
		t.Fatalf("finish with nothing active: %+v %v", res, err)
	}
	if names := h.notifier.Names(); len(names) != 0 {
		t.Fatalf("expected no events, got %v", names)
	}

	a := h.submit(t, "alice", 1, queue.PriorityStandard)
	if _, err := h.coord.SetActive(ctx, a.Request.ID); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	h.notifier.Reset()

	// An empty id is the same as finishing.
	res, err = h.coord.SetActive(ctx, "")
	if err != nil || !res.Changed {
		t.Fatalf("SetActive(\"\"): %+v %v", res, err)
	}
	want := []notifications.Event{notifications.EventArchiveAppended, notifications.EventActiveChanged}
	if names := h.notifier.Names(); !slices.Equal(names, want) {
		t.Fatalf("events = %v, want %v", names, want)
	}
	events := h.notifier.Events()
	if active, _ := events[1].Payload["active"].(*api.Request); active != nil {
		t.Fatalf("expected null active payload, got %+v", active)
	}
	snap, _ := h.coord.Snapshot(ctx)
	if snap.Active != nil {
		t.Fatalf("expected empty active slot, got %+v", snap.Active)
	}
}

func TestReorderThenInsertSplicesIntoManualOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.submit(t, "a", 1, queue.PriorityStandard).Request.ID
	b := h.submit(t, "b", 2, queue.PriorityStandard).Request.ID
	c := h.submit(t, "c", 3, queue.PriorityStandard).Request.ID

	if _, err := h.coord.Reorder(ctx, []string{c, a, b}); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	e := h.submit(t, "e", 4, queue.PriorityElevated).Request.ID
	d := h.submit(t, "d", 5, queue.PriorityStandard).Request.ID

	want := []string{e, c, a, b, d}
	if got := h.queueIDs(t); !slices.Equal(got, want) {
		t.Fatalf("queue = %v, want %v", got, want)
	}

	if _, err := h.coord.Reorder(ctx, []string{a, b}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for partial order, got %v", err)
	}
	if _, err := h.coord.Reorder(ctx, []string{a, a, b, c, d}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for repeated id, got %v", err)
	}
	if got := h.queueIDs(t); !slices.Equal(got, want) {
		t.Fatalf("failed reorder changed queue: %v", got)
	}
}

func TestMoveToFrontIgnoresClass(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	e := h.submit(t, "e", 1, queue.PriorityElevated).Request.ID
	s := h.submit(t, "s", 2, queue.PriorityStandard).Request.ID

	res, err := h.coord.MoveToFront(ctx, s)
	if err != nil || !res.Changed {
		t.Fatalf("MoveToFront: %+v %v", res, err)
	}
	if got := h.queueIDs(t); !slices.Equal(got, []string{s, e}) {
		t.Fatalf("queue = %v", got)
	}

	h.notifier.Reset()
	res, err = h.coord.MoveToFront(ctx, s)
	if err != nil || res.Changed {
		t.Fatalf("moving the head should be a no-op: %+v %v", res, err)
	}
	if len(h.notifier.Names()) != 0 {
		t.Fatalf("no-op published %v", h.notifier.Names())
	}
	if _, err := h.coord.MoveToFront(ctx, "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRemoveAndClear(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.submit(t, "a", 1, queue.PriorityStandard).Request.ID
	h.submit(t, "b", 2, queue.PriorityStandard)
	h.submit(t, "c", 3, queue.PriorityStandard)

	res, err := h.coord.Remove(ctx, a)
	if err != nil || res.Removed != 1 {
		t.Fatalf("Remove: %+v %v", res, err)
	}
	stored, err := h.store.GetRequest(ctx, a)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if stored == nil || stored.Status != queue.StatusRemoved {
		t.Fatalf("expected removed row, got %+v", stored)
	}
	if _, err := h.coord.Remove(ctx, a); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	// The requester may submit again once their request is gone.
	h.submit(t, "a", 4, queue.PriorityStandard)

	res, err = h.coord.Clear(ctx)
	if err != nil || res.Removed != 3 {
		t.Fatalf("Clear: %+v %v", res, err)
	}
	res, err = h.coord.Clear(ctx)
	if err != nil || res.Changed {
		t.Fatalf("clearing an empty queue: %+v %v", res, err)
	}
}

func TestRequeueFromArchive(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.submit(t, "alice", 1, queue.PriorityElevated).Request
	if _, err := h.coord.SetActive(ctx, a.ID); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if _, err := h.coord.FinishActive(ctx); err != nil {
		t.Fatalf("FinishActive: %v", err)
	}
	h.submit(t, "bob", 2, queue.PriorityElevated)

	res, err := h.coord.RequeueFromArchive(ctx, a.ID)
	if err != nil {
		t.Fatalf("RequeueFromArchive: %v", err)
	}
	if res.Position != 1 || res.Request.ID == a.ID {
		t.Fatalf("unexpected requeue result %+v", res.Request)
	}
	if res.Request.Priority != queue.PriorityElevated || !res.Request.Bypass || res.Request.ArchivedAt != nil {
		t.Fatalf("unexpected requeued request %+v", res.Request)
	}
	if got := h.queueIDs(t); got[0] != res.Request.ID {
		t.Fatalf("requeued request not at head: %v", got)
	}

	archive, _ := h.coord.Archive(ctx, 10, 0)
	if len(archive) != 1 {
		t.Fatalf("archive entry must remain, got %d", len(archive))
	}
	if _, err := h.coord.RequeueFromArchive(ctx, "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := h.coord.DeleteArchived(ctx, a.ID); err != nil {
		t.Fatalf("DeleteArchived: %v", err)
	}
	if err := h.coord.DeleteArchived(ctx, a.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestEditLink(t *testing.T) {
	const trackID = "4uLU6hMCjMI75M1A2tKUQC"
	tracks := stubTracks{trackID: {ID: trackID, Name: "Never Gonna Give You Up", Artists: []spotify.Artist{{Name: "Rick Astley"}}}}
	h := newHarness(t, lifecycle.WithTrackLookup(tracks))
	ctx := context.Background()
	a := h.submit(t, "alice", 1, queue.PriorityStandard).Request.ID
	h.notifier.Reset()

	res, err := h.coord.EditLink(ctx, a, "https://open.spotify.com/track/"+trackID+"?si=abc")
	if err != nil {
		t.Fatalf("EditLink: %v", err)
	}
	if res.Request.Match == nil || res.Request.Match.ID != trackID || res.Request.Match.Score != 1 {
		t.Fatalf("unexpected match %+v", res.Request.Match)
	}
	want := []notifications.Event{notifications.EventEnrichmentAttached, notifications.EventQueueChanged}
	if names := h.notifier.Names(); !slices.Equal(names, want) {
		t.Fatalf("events = %v, want %v", names, want)
	}
	stored, _ := h.store.GetRequest(ctx, a)
	if stored.Match == nil || stored.Match.ID != trackID {
		t.Fatalf("match not persisted: %+v", stored.Match)
	}

	if _, err := h.coord.EditLink(ctx, a, "https://example.com/not-a-track"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	if _, err := h.coord.SetActive(ctx, a); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	h.notifier.Reset()
	res, err = h.coord.EditLink(ctx, a, "")
	if err != nil || res.Request.Match != nil {
		t.Fatalf("clearing match: %+v %v", res, err)
	}
	want = []notifications.Event{notifications.EventEnrichmentAttached, notifications.EventActiveChanged}
	if names := h.notifier.Names(); !slices.Equal(names, want) {
		t.Fatalf("events = %v, want %v", names, want)
	}
}

func TestEditLinkWithoutCatalog(t *testing.T) {
	h := newHarness(t)
	a := h.submit(t, "alice", 1, queue.PriorityStandard).Request.ID
	_, err := h.coord.EditLink(context.Background(), a, "spotify:track:4uLU6hMCjMI75M1A2tKUQC")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestPersistenceFailureKeepsChangeAndWarns(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	failing := &failingStore{Store: store}
	h := startHarness(t, store, failing, testsupport.NewStubResolver())
	failing.failSync.Store(true)

	res, err := h.coord.Submit(context.Background(), lifecycle.Submission{Reference: vid(1), Requester: queue.Identity{Login: "alice"}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	var perr *lifecycle.PersistenceError
	if !errors.As(res.Warning, &perr) || perr.Op != "sync_queue" {
		t.Fatalf("expected sync_queue warning, got %v", res.Warning)
	}
	if !errors.Is(res.Warning, services.ErrPersistence) {
		t.Fatal("expected warning to match ErrPersistence")
	}
	if got := h.queueIDs(t); len(got) != 1 {
		t.Fatalf("in-memory change lost: %v", got)
	}
	want := []notifications.Event{notifications.EventPersistenceFailed, notifications.EventQueueChanged}
	if names := h.notifier.Names(); !slices.Equal(names, want) {
		t.Fatalf("events = %v, want %v", names, want)
	}
}

func TestRestoreAcrossRestart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	first := startHarness(t, store, store, testsupport.NewStubResolver())
	ctx := context.Background()

	a := first.submit(t, "a", 1, queue.PriorityStandard).Request.ID
	b := first.submit(t, "b", 2, queue.PriorityStandard).Request.ID
	c := first.submit(t, "c", 3, queue.PriorityStandard).Request.ID
	if _, err := first.coord.Reorder(ctx, []string{b, c, a}); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	if _, err := first.coord.SetActive(ctx, b); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if _, err := first.coord.UpdateBlocklist(ctx, "troll", true); err != nil {
		t.Fatalf("UpdateBlocklist: %v", err)
	}
	if _, err := first.coord.SetDurationCeiling(ctx, queue.PriorityElevated, 900); err != nil {
		t.Fatalf("SetDurationCeiling: %v", err)
	}

	second := startHarness(t, store, store, testsupport.NewStubResolver())
	snap, err := second.coord.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if got := testsupport.IDs(snap.Queue); !slices.Equal(got, []string{c, a}) {
		t.Fatalf("restored queue = %v", got)
	}
	if snap.Active == nil || snap.Active.ID != b {
		t.Fatalf("restored active = %+v", snap.Active)
	}
	if !slices.Equal(snap.Blocked, []string{"troll"}) {
		t.Fatalf("restored blocklist = %v", snap.Blocked)
	}
	if snap.Ceilings.Elevated != 900 || snap.Ceilings.Standard != 300 {
		t.Fatalf("restored ceilings = %+v", snap.Ceilings)
	}
}

func TestCommandsAfterStopReturnErrStopped(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	coord := lifecycle.New(store, testsupport.NewStubResolver())
	if err := coord.Restore(context.Background()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = coord.Run(ctx)
	}()
	cancel()
	<-done

	if _, err := coord.Snapshot(context.Background()); !errors.Is(err, lifecycle.ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}

func TestSubmitEnrichesIdentityFromDirectory(t *testing.T) {
	dir := testsupport.StubDirectory{"alice": {Login: "alice", DisplayName: "Alice", ProfileImageURL: "https://img/alice.png"}}
	h := newHarness(t, lifecycle.WithDirectory(dir))

	res := h.submit(t, "Alice", 1, queue.PriorityStandard)
	if res.Request.Requester.DisplayName != "Alice" || res.Request.Requester.AvatarURL != "https://img/alice.png" {
		t.Fatalf("identity not enriched: %+v", res.Request.Requester)
	}

	// Unknown logins are accepted without enrichment.
	res = h.submit(t, "bob", 2, queue.PriorityStandard)
	if res.Request.Requester.AvatarURL != "" || res.Request.Requester.Name() != "bob" {
		t.Fatalf("unexpected identity %+v", res.Request.Requester)
	}
}

func TestPreviewTouchesNoState(t *testing.T) {
	match := &queue.TrackMatch{ID: "track", Name: "Song", Score: 0.8}
	h := newHarness(t, lifecycle.WithMatcher(testsupport.StubMatcher{Result: match}))
	h.resolver.Add(vid(1), "Artist - Song", "Artist", 200)

	preview, err := h.coord.Preview(context.Background(), vid(1))
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if preview.Metadata.Title != "Artist - Song" || preview.Match == nil || preview.Match.ID != "track" {
		t.Fatalf("unexpected preview %+v", preview)
	}
	if got := len(h.queueIDs(t)); got != 0 {
		t.Fatalf("preview queued %d requests", got)
	}
	if names := h.notifier.Names(); len(names) != 0 {
		t.Fatalf("preview published %v", names)
	}
}

func TestListChangesDuringResolutionStillDecline(t *testing.T) {
	cases := []struct {
		name   string
		login  string
		change func(context.Context, *lifecycle.Coordinator) error
		want   eligibility.Reason
	}{
		{
			name:  "blocklist",
			login: "troll",
			change: func(ctx context.Context, c *lifecycle.Coordinator) error {
				_, err := c.UpdateBlocklist(ctx, "troll", true)
				return err
			},
			want: eligibility.ReasonBlocked,
		},
		{
			name:  "title filter",
			login: "alice",
			change: func(ctx context.Context, c *lifecycle.Coordinator) error {
				_, err := c.UpdateContentFilters(ctx, queue.ContentFilter{Term: "song", Category: "title"}, true)
				return err
			},
			want: eligibility.ReasonFilteredTitle,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testsupport.NewConfig(t)
			store := testsupport.MustOpenStore(t, cfg)
			gate := newGatedResolver()
			h := startHarness(t, store, store, gate)
			ctx := context.Background()

			errc := make(chan error, 1)
			go func() {
				_, err := h.coord.Submit(ctx, lifecycle.Submission{Reference: vid(1), Requester: queue.Identity{Login: tc.login}})
				errc <- err
			}()
			<-gate.entered
			if err := tc.change(ctx, h.coord); err != nil {
				t.Fatalf("list update: %v", err)
			}
			close(gate.release)

			requireDecline(t, <-errc, tc.want)
			if got := len(h.queueIDs(t)); got != 0 {
				t.Fatalf("declined request was queued: %d", got)
			}
			names := h.notifier.Names()
			if last := names[len(names)-1]; last != notifications.EventSubmissionDeclined {
				t.Fatalf("events = %v", names)
			}
		})
	}
}

func TestRequeueThenSetActiveKeepsArchivedMetadata(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.resolver.Add(vid(1), "Title X", "Artist Y", 211)
	a := h.submit(t, "alice", 1, queue.PriorityStandard).Request
	if _, err := h.coord.SetActive(ctx, a.ID); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if _, err := h.coord.FinishActive(ctx); err != nil {
		t.Fatalf("FinishActive: %v", err)
	}

	requeued, err := h.coord.RequeueFromArchive(ctx, a.ID)
	if err != nil {
		t.Fatalf("RequeueFromArchive: %v", err)
	}
	if _, err := h.coord.SetActive(ctx, requeued.Request.ID); err != nil {
		t.Fatalf("SetActive(requeued): %v", err)
	}

	snap, err := h.coord.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	active := snap.Active
	if active == nil || active.ID != requeued.Request.ID {
		t.Fatalf("active = %+v", active)
	}
	if active.Title != "Title X" || active.Artist != "Artist Y" || active.DurationSeconds != 211 {
		t.Fatalf("active metadata = %q/%q/%d", active.Title, active.Artist, active.DurationSeconds)
	}
	if active.VideoID != a.VideoID || active.Requester.Login != "alice" {
		t.Fatalf("active source = %q by %q", active.VideoID, active.Requester.Login)
	}
}

func TestFinishActiveTwiceArchivesOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.submit(t, "alice", 1, queue.PriorityStandard).Request
	if _, err := h.coord.SetActive(ctx, a.ID); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	res, err := h.coord.FinishActive(ctx)
	if err != nil || !res.Changed {
		t.Fatalf("first finish: %+v %v", res, err)
	}
	h.notifier.Reset()

	res, err = h.coord.FinishActive(ctx)
	if err != nil || res.Changed {
		t.Fatalf("second finish: %+v %v", res, err)
	}
	if names := h.notifier.Names(); len(names) != 0 {
		t.Fatalf("second finish published %v", names)
	}
	archive, err := h.coord.Archive(ctx, 10, 0)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if len(archive) != 1 || archive[0].ID != a.ID {
		t.Fatalf("archive = %v", testsupport.IDs(archive))
	}
}
