// Package publish uploads finished videos to S3 or YouTube once a render job
// has moved its output into place. Publishing is optional; render jobs run
// without a publisher when publish.enabled is false.
package publish
