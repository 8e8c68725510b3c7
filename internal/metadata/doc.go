// Package metadata turns user-supplied video references into resolved video
// metadata. Reference parsing is purely syntactic; resolution calls the video
// source once and classifies failures as unavailable, live, or upstream.
package metadata
