// Package queue defines message payloads exchanged over the message broker
// and the consumer that records them.
package queue

import "time"

// ActivityQueue is the durable queue carrying ActivityEvent messages.
const ActivityQueue = "task.activity"

// Activity event types.
const (
    EventUserRegistered = "user.registered"
    EventTaskCreated    = "task.created"
    EventTaskUpdated    = "task.updated"
    EventTaskDeleted    = "task.deleted"
)

// ActivityEvent is published after a user registers or changes a task.  It
// contains enough information for downstream consumers to log or notify
// without querying the primary database.
type ActivityEvent struct {
    Type       string    `json:"type"`
    UserID     uint64    `json:"user_id"`
    TaskID     uint64    `json:"task_id,omitempty"`
    Title      string    `json:"title,omitempty"`
    Status     string    `json:"status,omitempty"`
    OccurredAt time.Time `json:"occurred_at"`
}
