// Package workflow turns render requests into jobs and runs them.
//
// A Request names a stored story and video config, or carries the narration
// inline. The Manager resolves it into a render.Job, then either runs it
// synchronously (the generate command) or queues it for background workers
// (the HTTP API and Kafka intake). Jobs run one after another per worker;
// parallelism inside a job comes from the render worker pool.
package workflow
