// Package intake consumes render requests from a Kafka topic and submits them
// to the workflow manager. Each message is a JSON workflow.Request. Messages
// that cannot be decoded or validated are marked and skipped. When submission
// fails for a transient reason, such as a full render queue, the claim ends
// without marking the message and the group resumes from it after a backoff.
package intake
