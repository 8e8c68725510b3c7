package daemon

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"songline/internal/api"
	"songline/internal/lifecycle"
	"songline/internal/logging"
	"songline/internal/metadata"
	"songline/internal/queue"
	"songline/internal/services"
	"songline/internal/textutil"
)

const (
	defaultArchiveLimit = 50
	maxArchiveLimit     = 500
	logFollowWait       = 25 * time.Second
)

func (s *apiServer) coordinator() *lifecycle.Coordinator { return s.daemon.deps.Coordinator }

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status()
	payload := api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		DatabasePath: status.DatabasePath,
		LockFilePath: status.LockFilePath,
		Realtime:     s.cfg.RealtimeEnabled(),
		Matching:     s.daemon.deps.Matching,
		Directory:    s.daemon.deps.Directory,
		Metrics:      s.cfg.Metrics.Enabled,
	}
	if snap, err := s.coordinator().Snapshot(r.Context()); err == nil {
		payload.QueueLength = len(snap.Queue)
		payload.Active = api.FromRequestPtr(snap.Active)
	}
	if counts, err := s.daemon.deps.Store.Counts(r.Context()); err == nil {
		payload.Counts = api.MergeQueueStats(counts)
	} else {
		s.logger.Warn("request counts unavailable", logging.Error(err))
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.coordinator().Snapshot(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stateResponse(snap))
}

func stateResponse(snap lifecycle.Snapshot) api.StateResponse {
	blocked := snap.Blocked
	if blocked == nil {
		blocked = []string{}
	}
	return api.StateResponse{
		Queue:    api.FromQueue(snap.Queue),
		Length:   len(snap.Queue),
		Active:   api.FromRequestPtr(snap.Active),
		Blocked:  blocked,
		Filters:  api.FromFilters(snap.Filters),
		Ceilings: api.Ceilings{Standard: snap.Ceilings.Standard, Elevated: snap.Ceilings.Elevated},
	}
}

func (s *apiServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var body api.SubmitRequest
	if !s.decode(w, r, &body) {
		return
	}
	priority, ok := queue.ParsePriority(body.Priority)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "validation", "priority must be standard or elevated")
		return
	}
	s.submit(w, r, lifecycle.Submission{
		Reference: body.Reference,
		Requester: queue.Identity{Login: body.Login, DisplayName: body.DisplayName},
		Priority:  priority,
		Bypass:    body.Bypass,
	})
}

// handleDonation turns a donation callback into a submission. Donations at or
// above limits.elevated_min_amount are elevated.
func (s *apiServer) handleDonation(w http.ResponseWriter, r *http.Request) {
	var body api.DonationRequest
	if !s.decode(w, r, &body) {
		return
	}
	ref, ok := metadata.ExtractReference(textutil.StripControl(body.Message))
	if !ok {
		s.writeError(w, http.StatusUnprocessableEntity, "validation", "donation message contains no video reference")
		return
	}
	priority := queue.PriorityStandard
	if body.Amount >= s.cfg.Limits.ElevatedMinAmount {
		priority = queue.PriorityElevated
	}
	logging.WithContext(r.Context(), s.logger).Info("donation received",
		logging.String("username", body.Username),
		logging.Float64("amount", body.Amount),
		logging.String("currency", body.Currency),
		logging.String("priority", string(priority)),
	)
	s.submit(w, r, lifecycle.Submission{
		Reference: ref,
		Requester: queue.Identity{Login: body.Username, DisplayName: body.DisplayName},
		Priority:  priority,
	})
}

func (s *apiServer) submit(w http.ResponseWriter, r *http.Request, in lifecycle.Submission) {
	res, err := s.coordinator().Submit(r.Context(), in)
	if err != nil {
		reason, message, ok := lifecycle.DeclineInfo(err)
		if !ok {
			s.writeServiceError(w, r, err)
			return
		}
		status := http.StatusUnprocessableEntity
		if services.Kind(err) == "policy" {
			status = http.StatusConflict
		}
		s.writeJSON(w, status, api.SubmitResponse{Reason: reason, Message: message})
		return
	}
	s.writeJSON(w, http.StatusCreated, api.SubmitResponse{
		Accepted: true,
		Request:  api.FromRequestPtr(res.Request),
		Position: res.Position,
		Warning:  warningText(res.Warning),
	})
}

func (s *apiServer) handleRemove(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, func(ctx context.Context) (lifecycle.Result, error) {
		return s.coordinator().Remove(ctx, r.PathValue("id"))
	})
}

func (s *apiServer) handleMoveToFront(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, func(ctx context.Context) (lifecycle.Result, error) {
		return s.coordinator().MoveToFront(ctx, r.PathValue("id"))
	})
}

func (s *apiServer) handleEditLink(w http.ResponseWriter, r *http.Request) {
	var body api.LinkRequest
	if !s.decode(w, r, &body) {
		return
	}
	s.command(w, r, func(ctx context.Context) (lifecycle.Result, error) {
		return s.coordinator().EditLink(ctx, r.PathValue("id"), body.URL)
	})
}

func (s *apiServer) handleClear(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, s.coordinator().Clear)
}

func (s *apiServer) handleReorder(w http.ResponseWriter, r *http.Request) {
	var body api.ReorderRequest
	if !s.decode(w, r, &body) {
		return
	}
	s.command(w, r, func(ctx context.Context) (lifecycle.Result, error) {
		return s.coordinator().Reorder(ctx, body.IDs)
	})
}

func (s *apiServer) handleSetActive(w http.ResponseWriter, r *http.Request) {
	var body api.ActiveRequest
	if !s.decode(w, r, &body) {
		return
	}
	id := ""
	if body.ID != nil {
		id = *body.ID
	}
	s.command(w, r, func(ctx context.Context) (lifecycle.Result, error) {
		return s.coordinator().SetActive(ctx, id)
	})
}

func (s *apiServer) handleFinish(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, s.coordinator().FinishActive)
}

func (s *apiServer) handleArchive(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := defaultArchiveLimit
	if v, err := strconv.Atoi(query.Get("limit")); err == nil && v > 0 {
		limit = min(v, maxArchiveLimit)
	}
	offset := 0
	if v, err := strconv.Atoi(query.Get("offset")); err == nil && v > 0 {
		offset = v
	}
	items, err := s.coordinator().Archive(r.Context(), limit, offset)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ArchiveResponse{Items: api.FromRequests(items)})
}

func (s *apiServer) handleRequeue(w http.ResponseWriter, r *http.Request) {
	res, err := s.coordinator().RequeueFromArchive(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.SubmitResponse{
		Accepted: true,
		Request:  api.FromRequestPtr(res.Request),
		Position: res.Position,
		Warning:  warningText(res.Warning),
	})
}

func (s *apiServer) handleDeleteArchived(w http.ResponseWriter, r *http.Request) {
	if err := s.coordinator().DeleteArchived(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.CommandResponse{OK: true, Changed: true, Removed: 1})
}

func (s *apiServer) handleBlocklist(w http.ResponseWriter, r *http.Request) {
	snap, err := s.coordinator().Snapshot(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.BlocklistResponse{Logins: stateResponse(snap).Blocked})
}

func (s *apiServer) handleBlock(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, func(ctx context.Context) (lifecycle.Result, error) {
		return s.coordinator().UpdateBlocklist(ctx, r.PathValue("login"), true)
	})
}

func (s *apiServer) handleUnblock(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, func(ctx context.Context) (lifecycle.Result, error) {
		return s.coordinator().UpdateBlocklist(ctx, r.PathValue("login"), false)
	})
}

func (s *apiServer) handleFilters(w http.ResponseWriter, r *http.Request) {
	snap, err := s.coordinator().Snapshot(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FiltersResponse{Filters: api.FromFilters(snap.Filters)})
}

func (s *apiServer) handleAddFilter(w http.ResponseWriter, r *http.Request) {
	s.filterCommand(w, r, true)
}

func (s *apiServer) handleRemoveFilter(w http.ResponseWriter, r *http.Request) {
	s.filterCommand(w, r, false)
}

func (s *apiServer) filterCommand(w http.ResponseWriter, r *http.Request, add bool) {
	var body api.ContentFilter
	if !s.decode(w, r, &body) {
		return
	}
	filter := queue.ContentFilter{Term: body.Term, Category: queue.FilterCategory(body.Category)}
	s.command(w, r, func(ctx context.Context) (lifecycle.Result, error) {
		return s.coordinator().UpdateContentFilters(ctx, filter, add)
	})
}

func (s *apiServer) handleCeiling(w http.ResponseWriter, r *http.Request) {
	priority, ok := queue.ParsePriority(r.PathValue("class"))
	if !ok {
		s.writeError(w, http.StatusBadRequest, "validation", "class must be standard or elevated")
		return
	}
	var body api.CeilingRequest
	if !s.decode(w, r, &body) {
		return
	}
	s.command(w, r, func(ctx context.Context) (lifecycle.Result, error) {
		return s.coordinator().SetDurationCeiling(ctx, priority, body.Seconds)
	})
}

func (s *apiServer) handleMatch(w http.ResponseWriter, r *http.Request) {
	var body api.MatchRequest
	if !s.decode(w, r, &body) {
		return
	}
	preview, err := s.coordinator().Preview(r.Context(), body.Reference)
	if err != nil {
		if _, message, ok := lifecycle.DeclineInfo(err); ok {
			s.writeError(w, http.StatusUnprocessableEntity, services.Kind(err), message)
			return
		}
		s.writeServiceError(w, r, err)
		return
	}
	meta := preview.Metadata
	queries := preview.Queries
	if queries == nil {
		queries = []string{}
	}
	s.writeJSON(w, http.StatusOK, api.MatchPreview{
		VideoID:         meta.VideoID,
		Title:           meta.Title,
		Artist:          meta.Artist,
		Duration:        meta.Duration,
		DurationSeconds: meta.DurationSeconds,
		Queries:         queries,
		Match:           api.FromMatch(preview.Match),
	})
}

func (s *apiServer) handleTestNotify(w http.ResponseWriter, r *http.Request) {
	sent, message, err := s.daemon.TestNotification(r.Context())
	if err != nil {
		s.writeError(w, http.StatusBadGateway, services.Kind(err), message+": "+err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.TestNotifyResponse{Sent: sent, Message: message})
}

func (s *apiServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	hub := s.daemon.deps.Stream
	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = 200
	}
	follow := query.Get("follow") == "1" || strings.EqualFold(query.Get("follow"), "true")

	ctx := r.Context()
	if follow {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, logFollowWait)
		defer cancel()
	}
	events, next, _ := hub.Fetch(ctx, since, limit, follow)

	out := make([]api.LogEvent, 0, len(events))
	for _, evt := range events {
		out = append(out, api.LogEvent{
			Sequence:      evt.Sequence,
			Timestamp:     api.FormatTime(evt.Timestamp),
			Level:         evt.Level,
			Message:       evt.Message,
			Component:     evt.Component,
			RequestID:     evt.RequestID,
			Requester:     evt.Requester,
			CorrelationID: evt.CorrelationID,
			Fields:        evt.Fields,
		})
	}
	s.writeJSON(w, http.StatusOK, api.LogStreamResponse{Events: out, Next: next})
}

// command runs an operator command and writes a CommandResponse.
func (s *apiServer) command(w http.ResponseWriter, r *http.Request, run func(ctx context.Context) (lifecycle.Result, error)) {
	res, err := run(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.CommandResponse{
		OK:      true,
		Changed: res.Changed,
		Removed: res.Removed,
		Request: api.FromRequestPtr(res.Request),
		Warning: warningText(res.Warning),
	})
}

func warningText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
