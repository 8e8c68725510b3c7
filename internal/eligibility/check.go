package eligibility

import (
	"songline/internal/metadata"
	"songline/internal/queue"
	"songline/internal/textutil"
)

// Submission is an incoming request before it becomes a queue entry.
type Submission struct {
	VideoID   string
	Requester queue.Identity
	Priority  queue.Priority
	Bypass    bool
}

// View is the state the checks run against.
type View struct {
	Queue    []*queue.Request
	Blocked  map[string]struct{}
	Filters  []queue.ContentFilter
	Ceilings queue.Ceilings
}

// BlockedSet builds the lookup used by View.Blocked.
func BlockedSet(logins []string) map[string]struct{} {
	set := make(map[string]struct{}, len(logins))
	for _, login := range logins {
		if login = queue.NormalizeLogin(login); login != "" {
			set[login] = struct{}{}
		}
	}
	return set
}

// CheckRequester runs the identity checks: block list, one outstanding
// standard request per requester, and duplicate video. Only queued standard
// entries count as outstanding; an elevated entry from the same requester
// neither blocks a standard submission nor is blocked by one, and elevated
// submissions skip the rule. VideoID may be empty when the reference has not
// been parsed yet, which skips the duplicate check.
func CheckRequester(sub Submission, view View) error {
	if sub.Bypass {
		return nil
	}
	login := queue.NormalizeLogin(sub.Requester.Login)
	if _, blocked := view.Blocked[login]; blocked && login != "" {
		return decline(ReasonBlocked, "%s is not allowed to request songs.", sub.Requester.Name())
	}
	for _, r := range view.Queue {
		if r.Status != queue.StatusQueued {
			continue
		}
		if sub.Priority != queue.PriorityElevated && r.Priority == queue.PriorityStandard &&
			login != "" && queue.NormalizeLogin(r.Requester.Login) == login {
			return decline(ReasonOutstanding, "%s already has a song in the queue.", sub.Requester.Name())
		}
		if sub.VideoID != "" && r.VideoID == sub.VideoID {
			return decline(ReasonDuplicate, "%q is already in the queue.", r.Title)
		}
	}
	return nil
}

// CheckContent runs the checks that need resolved metadata: the duration
// ceiling for the submission's class and the content filters.
func CheckContent(sub Submission, meta metadata.Metadata, view View) error {
	if sub.Bypass {
		return nil
	}
	if limit := view.Ceilings.For(sub.Priority); limit > 0 && meta.DurationSeconds > limit {
		return decline(ReasonTooLong, "%q is %s long; the %s limit is %s.",
			meta.Title, metadata.FormatDuration(meta.DurationSeconds), sub.Priority, metadata.FormatDuration(limit))
	}
	for _, f := range view.Filters {
		switch f.Category {
		case queue.FilterTitle:
			if textutil.ContainsFold(meta.Title, f.Term) {
				return decline(ReasonFilteredTitle, "That title isn't allowed here.")
			}
		case queue.FilterArtist:
			if textutil.ContainsFold(meta.Artist, f.Term) {
				return decline(ReasonFilteredArtist, "That artist isn't allowed here.")
			}
		case queue.FilterKeyword:
			if textutil.ContainsFold(meta.Title, f.Term) || textutil.ContainsFold(meta.Artist, f.Term) {
				return decline(ReasonFilteredKeyword, "That song contains a blocked keyword.")
			}
		}
	}
	return nil
}

// Check runs every check in order and returns the first decline.
func Check(sub Submission, meta metadata.Metadata, view View) error {
	if err := CheckRequester(sub, view); err != nil {
		return err
	}
	return CheckContent(sub, meta, view)
}
