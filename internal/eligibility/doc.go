// Package eligibility decides whether a submission may enter the queue.
//
// Checks are pure functions over a View of the current queue and admin lists.
// A failed check returns a *Decline carrying a reason code and a short
// message; bypassed submissions skip every check.
package eligibility
