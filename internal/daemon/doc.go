// Package daemon coordinates the long-running "storyreel serve" process.
//
// It ties the workflow manager, the HTTP API, the subreddit poller, Kafka
// intake and the periodic quarantine sweep into a single lifecycle, guarded
// by a flock on the work directory so two servers never drive the same job
// directories. Jobs left in a non-terminal state by a previous process are
// marked failed before the workers start.
//
// Individual steps live in their own packages; the daemon only owns startup,
// shutdown and status.
package daemon
