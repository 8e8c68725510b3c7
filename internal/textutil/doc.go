// Package textutil provides text normalization helpers shared by the track
// matcher and the eligibility filter.
//
// Comparisons throughout songline are case-insensitive; use Fold rather than
// strings.ToLower so non-ASCII titles and artist names compare correctly.
package textutil
