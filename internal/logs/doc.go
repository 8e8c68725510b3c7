// Package logs reads daemon run logs from disk.
//
// The CLI prefers the daemon's in-memory log stream; this package is the
// fallback when the daemon is down and only the songline.log pointer in the
// log directory is left to inspect. Follow mode notices when a new run
// repoints songline.log and restarts from the top of the new file.
package logs
