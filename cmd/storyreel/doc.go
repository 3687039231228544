// Package main hosts the storyreel CLI entrypoint and command graph.
//
// The Cobra command tree covers one-off renders (generate), the long-running
// server (serve), library maintenance for stories, video configs and
// background clips, job history, configuration scaffolding and host checks.
// Configuration is resolved lazily once per invocation; the render pipeline
// is only assembled by the commands that run jobs.
//
// Keep this package lean: behaviour belongs in the internal packages and is
// surfaced here through commands and flags.
package main
