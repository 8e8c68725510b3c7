package lifecycle

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"songline/internal/eligibility"
	"songline/internal/logging"
	"songline/internal/matching"
	"songline/internal/metadata"
	"songline/internal/metrics"
	"songline/internal/notifications"
	"songline/internal/queue"
	"songline/internal/services/spotify"
	"songline/internal/services/twitch"
)

// Store is the durable backing for coordinator state.
type Store interface {
	LoadState(ctx context.Context, defaults queue.Ceilings) (queue.State, error)
	SyncQueue(ctx context.Context, q []*queue.Request) error
	ApplyActiveChange(ctx context.Context, change queue.ActiveChange) error
	UpdateMatch(ctx context.Context, id string, match *queue.TrackMatch) error
	GetArchived(ctx context.Context, id string) (*queue.Request, error)
	ListArchive(ctx context.Context, limit, offset int) ([]*queue.Request, error)
	DeleteArchived(ctx context.Context, id string) (bool, error)
	AddBlocked(ctx context.Context, login string) error
	RemoveBlocked(ctx context.Context, login string) (bool, error)
	AddFilter(ctx context.Context, filter queue.ContentFilter) error
	RemoveFilter(ctx context.Context, filter queue.ContentFilter) (bool, error)
	SetCeiling(ctx context.Context, priority queue.Priority, seconds int) error
}

// Resolver turns a reference into video metadata.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (metadata.Metadata, error)
}

// Matcher finds optional catalog enrichment.
type Matcher interface {
	Match(ctx context.Context, v matching.Video) *queue.TrackMatch
}

// Directory looks up requester profiles.
type Directory interface {
	User(ctx context.Context, login string) (*twitch.User, error)
}

// TrackLookup fetches a catalog track by id for manual link edits.
type TrackLookup interface {
	Track(ctx context.Context, id string) (*spotify.Track, error)
}

// state is owned by the Run goroutine.
type state struct {
	queue    []*queue.Request
	active   *queue.Request
	blocked  map[string]struct{}
	filters  []queue.ContentFilter
	ceilings queue.Ceilings
}

func (s *state) view() eligibility.View {
	return eligibility.View{
		Queue:    s.queue,
		Blocked:  s.blocked,
		Filters:  s.filters,
		Ceilings: s.ceilings,
	}
}

type command struct {
	ctx  context.Context
	run  func(ctx context.Context)
	done chan struct{}
}

// Coordinator owns the queue, the active slot and the admin lists. Every
// mutation and every publication runs on the goroutine executing Run, in the
// order apply, persist, publish.
type Coordinator struct {
	store     Store
	resolver  Resolver
	matcher   Matcher
	directory Directory
	tracks    TrackLookup
	notifier  notifications.Service
	metrics   *metrics.Recorder
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string

	state     state
	cmds      chan command
	stopped   chan struct{}
	runOnce   sync.Once
	requester *keyedMutex
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithMatcher enables catalog enrichment.
func WithMatcher(m Matcher) Option { return func(c *Coordinator) { c.matcher = m } }

// WithDirectory enables requester profile enrichment.
func WithDirectory(d Directory) Option { return func(c *Coordinator) { c.directory = d } }

// WithTrackLookup enables manual track links.
func WithTrackLookup(t TrackLookup) Option { return func(c *Coordinator) { c.tracks = t } }

// WithNotifier sets the event sink.
func WithNotifier(n notifications.Service) Option {
	return func(c *Coordinator) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r *metrics.Recorder) Option { return func(c *Coordinator) { c.metrics = r } }

// WithLogger sets the coordinator logger.
func WithLogger(l *slog.Logger) Option { return func(c *Coordinator) { c.logger = l } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithIDGenerator overrides request id generation.
func WithIDGenerator(gen func() string) Option {
	return func(c *Coordinator) {
		if gen != nil {
			c.newID = gen
		}
	}
}

// WithCeilings sets the duration ceilings used until Restore loads
// persisted overrides.
func WithCeilings(ceilings queue.Ceilings) Option {
	return func(c *Coordinator) { c.state.ceilings = ceilings }
}

// New constructs a Coordinator. Call Restore, then run Run on its own
// goroutine before issuing commands.
func New(store Store, resolver Resolver, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:     store,
		resolver:  resolver,
		notifier:  notifications.NewNoop(),
		now:       time.Now,
		newID:     uuid.NewString,
		cmds:      make(chan command),
		stopped:   make(chan struct{}),
		requester: newKeyedMutex(),
		state: state{
			blocked:  map[string]struct{}{},
			ceilings: queue.Ceilings{Standard: 300, Elevated: 600},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "lifecycle")
	return c
}

// Restore loads persisted state. It must complete before Run starts.
func (c *Coordinator) Restore(ctx context.Context) error {
	st, err := c.store.LoadState(ctx, c.state.ceilings)
	if err != nil {
		return err
	}
	c.state = state{
		queue:    st.Queue,
		active:   st.Active,
		blocked:  eligibility.BlockedSet(st.Blocked),
		filters:  st.Filters,
		ceilings: st.Ceilings,
	}
	c.recordState()
	c.logger.Info("state restored",
		logging.Int("queue_length", len(st.Queue)),
		logging.Bool("active_present", st.Active != nil),
		logging.Int("blocked", len(st.Blocked)),
		logging.Int("filters", len(st.Filters)),
	)
	return nil
}

// Run executes commands until ctx is cancelled. It must be called once.
func (c *Coordinator) Run(ctx context.Context) error {
	started := false
	c.runOnce.Do(func() { started = true })
	if !started {
		return nil
	}
	defer close(c.stopped)
	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-c.cmds:
			cmd.run(cmd.ctx)
			close(cmd.done)
		}
	}
}

// exec runs fn on the actor goroutine and waits for it to finish.
func (c *Coordinator) exec(ctx context.Context, fn func(ctx context.Context)) error {
	cmd := command{ctx: ctx, run: fn, done: make(chan struct{})}
	select {
	case c.cmds <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stopped:
		return ErrStopped
	}
	<-cmd.done
	return nil
}

// persist awaits a store write. Failures are logged, counted and reported to
// operators, then returned as a *PersistenceError warning; the in-memory
// change stands.
func (c *Coordinator) persist(ctx context.Context, op string, write func(ctx context.Context) error) error {
	ctx = context.WithoutCancel(ctx)
	if err := write(ctx); err != nil {
		perr := &PersistenceError{Op: op, Err: err}
		logging.ErrorWithContext(logging.WithContext(ctx, c.logger), "store write failed", "persistence_failed",
			logging.String("operation", op),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check disk space and database permissions"),
			logging.String(logging.FieldImpact, "change is live but may not survive a restart"),
		)
		c.metrics.PersistenceFailure(op)
		c.publish(ctx, notifications.EventPersistenceFailed, notifications.Payload{
			"operation": op,
			"error":     err.Error(),
		})
		return perr
	}
	return nil
}

func (c *Coordinator) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := c.notifier.Publish(context.WithoutCancel(ctx), event, payload); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "notification publish failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check realtime.redis_url and notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "subscribers missed this update"),
		)
	}
}

func (c *Coordinator) recordState() {
	c.metrics.QueueState(len(c.state.queue), c.state.active != nil)
}

// Snapshot is a consistent copy of the live state.
type Snapshot struct {
	Queue    []*queue.Request
	Active   *queue.Request
	Blocked  []string
	Filters  []queue.ContentFilter
	Ceilings queue.Ceilings
}

// Snapshot returns a deep copy of the live state.
func (c *Coordinator) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := c.exec(ctx, func(context.Context) {
		snap = c.snapshotLocked()
	})
	return snap, err
}

func (c *Coordinator) snapshotLocked() Snapshot {
	snap := Snapshot{
		Queue:    cloneQueue(c.state.queue),
		Active:   c.state.active.Clone(),
		Filters:  slices.Clone(c.state.filters),
		Ceilings: c.state.ceilings,
	}
	for login := range c.state.blocked {
		snap.Blocked = append(snap.Blocked, login)
	}
	slices.Sort(snap.Blocked)
	return snap
}

// Archive lists archived requests, most recent first.
func (c *Coordinator) Archive(ctx context.Context, limit, offset int) ([]*queue.Request, error) {
	return c.store.ListArchive(ctx, limit, offset)
}

func cloneQueue(q []*queue.Request) []*queue.Request {
	out := make([]*queue.Request, 0, len(q))
	for _, r := range q {
		out = append(out, r.Clone())
	}
	return out
}
