package lifecycle

import (
	"context"
	"strings"

	"songline/internal/eligibility"
	"songline/internal/logging"
	"songline/internal/matching"
	"songline/internal/metadata"
	"songline/internal/metrics"
	"songline/internal/notifications"
	"songline/internal/ordering"
	"songline/internal/queue"
	"songline/internal/services"
)

// Submission is an inbound song request.
type Submission struct {
	Reference string
	Requester queue.Identity
	Priority  queue.Priority
	Bypass    bool
}

// SubmitResult describes an accepted request. Warning is a non-nil
// *PersistenceError when the store write failed.
type SubmitResult struct {
	Request  *queue.Request
	Position int
	Warning  error
}

// Submit runs the admission pipeline: requester checks, metadata resolution,
// content checks, best-effort matching, and finally a full eligibility
// re-check and priority insertion on the actor. Declines are returned as
// errors (*eligibility.Decline, *metadata.ValidationError or
// *metadata.ResolutionError) and published exactly once.
func (c *Coordinator) Submit(ctx context.Context, in Submission) (SubmitResult, error) {
	login := queue.NormalizeLogin(in.Requester.Login)
	in.Requester.Login = login
	in.Reference = strings.TrimSpace(in.Reference)
	if in.Priority == "" {
		in.Priority = queue.PriorityStandard
	}
	ctx = services.WithRequester(ctx, login)
	if login == "" {
		return SubmitResult{}, c.decline(ctx, in, errInvalidRequester)
	}

	unlock := c.requester.Lock(login)
	defer unlock()

	sub := eligibility.Submission{Requester: in.Requester, Priority: in.Priority, Bypass: in.Bypass}
	videoID, err := metadata.ParseReference(in.Reference)
	if err != nil {
		return SubmitResult{}, c.decline(ctx, in, err)
	}
	sub.VideoID = videoID

	if err := c.precheck(ctx, func(view eligibility.View) error {
		return eligibility.CheckRequester(sub, view)
	}); err != nil {
		return SubmitResult{}, c.declineOrFail(ctx, in, err)
	}

	in.Requester = c.enrichIdentity(ctx, in.Requester)
	sub.Requester = in.Requester

	meta, err := c.resolver.Resolve(ctx, in.Reference)
	if err != nil {
		return SubmitResult{}, c.declineOrFail(ctx, in, err)
	}

	if err := c.precheck(ctx, func(view eligibility.View) error {
		return eligibility.CheckContent(sub, meta, view)
	}); err != nil {
		return SubmitResult{}, c.declineOrFail(ctx, in, err)
	}

	req := &queue.Request{
		ID:              c.newID(),
		SourceRef:       in.Reference,
		VideoID:         meta.VideoID,
		Title:           meta.Title,
		Artist:          meta.Artist,
		ChannelID:       meta.ChannelID,
		DurationSeconds: meta.DurationSeconds,
		Thumbnail:       meta.Thumbnail,
		Requester:       in.Requester,
		Priority:        in.Priority,
		Bypass:          in.Bypass,
		SubmittedAt:     c.now().UTC(),
		Match:           c.match(ctx, meta),
		Status:          queue.StatusQueued,
	}

	var (
		result   SubmitResult
		declined error
	)
	err = c.exec(ctx, func(ctx context.Context) {
		// Lists may have changed while resolution and matching ran.
		if err := eligibility.Check(sub, meta, c.state.view()); err != nil {
			declined = err
			c.publishDecline(ctx, in, err)
			return
		}
		next, idx := ordering.Insert(c.state.queue, req)
		c.state.queue = next
		c.recordState()
		warning := c.persist(ctx, "sync_queue", func(ctx context.Context) error {
			return c.store.SyncQueue(ctx, next)
		})
		c.publishQueue(ctx)
		// A miss still announces a nil match once the request is visible.
		if c.matcher != nil {
			c.publishEnrichment(ctx, req.ID, req.Match)
		}
		result = SubmitResult{Request: req.Clone(), Position: idx + 1, Warning: warning}
	})
	if err != nil {
		return SubmitResult{}, err
	}
	if declined != nil {
		c.logDecline(ctx, declined)
		c.metrics.Submission(metrics.OutcomeDeclined)
		return SubmitResult{}, declined
	}

	c.metrics.Submission(metrics.OutcomeAccepted)
	logging.WithContext(ctx, c.logger).Info("request accepted",
		logging.String(logging.FieldRequestID, req.ID),
		logging.String("video_id", req.VideoID),
		logging.String("title", req.Title),
		logging.String("priority", string(req.Priority)),
		logging.Int("position", result.Position),
		logging.Bool("matched", req.Match != nil),
	)
	return result, nil
}

// precheck runs check against the current state on the actor.
func (c *Coordinator) precheck(ctx context.Context, check func(eligibility.View) error) error {
	var out error
	if err := c.exec(ctx, func(context.Context) { out = check(c.state.view()) }); err != nil {
		return err
	}
	return out
}

func (c *Coordinator) match(ctx context.Context, meta metadata.Metadata) *queue.TrackMatch {
	if c.matcher == nil {
		return nil
	}
	m := c.matcher.Match(ctx, matching.Video{Title: meta.Title, Channel: meta.Artist})
	c.metrics.Match(m)
	return m
}

func (c *Coordinator) enrichIdentity(ctx context.Context, id queue.Identity) queue.Identity {
	if c.directory == nil {
		return id
	}
	user, err := c.directory.User(ctx, id.Login)
	if err != nil || user == nil {
		logging.WithContext(ctx, c.logger).Debug("identity lookup skipped", logging.Error(err))
		return id
	}
	if strings.TrimSpace(id.DisplayName) == "" {
		id.DisplayName = user.DisplayName
	}
	if user.ProfileImageURL != "" {
		id.AvatarURL = user.ProfileImageURL
	}
	return id
}

// declineOrFail publishes a decline for decline-shaped errors and passes
// anything else (context cancellation, ErrStopped) through untouched.
func (c *Coordinator) declineOrFail(ctx context.Context, in Submission, err error) error {
	if _, _, ok := DeclineInfo(err); !ok {
		return err
	}
	return c.decline(ctx, in, err)
}

func (c *Coordinator) decline(ctx context.Context, in Submission, err error) error {
	if execErr := c.exec(ctx, func(ctx context.Context) { c.publishDecline(ctx, in, err) }); execErr != nil {
		return err
	}
	c.logDecline(ctx, err)
	switch services.Kind(err) {
	case "policy":
		c.metrics.Submission(metrics.OutcomeDeclined)
	case "validation":
		c.metrics.Submission(metrics.OutcomeInvalid)
	default:
		c.metrics.Submission(metrics.OutcomeFailed)
	}
	return err
}

func (c *Coordinator) publishDecline(ctx context.Context, in Submission, err error) {
	reason, message, ok := DeclineInfo(err)
	if !ok {
		reason, message = "error", "Your request couldn't be processed."
	}
	c.publish(ctx, notifications.EventSubmissionDeclined, notifications.Payload{
		"requester": in.Requester.Name(),
		"login":     in.Requester.Login,
		"reference": in.Reference,
		"priority":  string(in.Priority),
		"reason":    reason,
		"message":   message,
		"kind":      services.Kind(err),
	})
}

func (c *Coordinator) logDecline(ctx context.Context, err error) {
	reason, _, _ := DeclineInfo(err)
	logging.WithContext(ctx, c.logger).Info("request declined",
		logging.Args(append(logging.DecisionAttrs("admission", "declined", reason), logging.Error(err))...)...,
	)
}
