// Package notifications sends ntfy push messages for render job outcomes and
// library events.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers can publish unconditionally.
package notifications
