// Package services defines shared utilities consumed by the request pipeline
// and its external integrations (YouTube, Spotify, Twitch).
//
// Key responsibilities:
//   - Context helpers that stamp request IDs, requester logins, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (validation, policy, not found, persistence) with errors.Is.
//
// Integration clients live in sub-packages and return errors tagged with these
// markers.
package services
