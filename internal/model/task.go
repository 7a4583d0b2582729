package model

import "time"

// Task statuses accepted by the API.
const (
    TaskPending   = "pending"
    TaskCompleted = "completed"
)

// ValidTaskStatus reports whether s is one of the accepted statuses.
func ValidTaskStatus(s string) bool {
    return s == TaskPending || s == TaskCompleted
}

// Task mirrors a row in the `tasks` table.  UserID is the owner and is
// fixed at creation; no update path writes it.  The JSON tags define the
// wire shape returned by the task endpoints.
type Task struct {
    ID          uint64    `json:"id"`          // tasks.id
    Title       string    `json:"title"`       // tasks.title
    Description *string   `json:"description"` // tasks.description (nullable)
    Status      string    `json:"status"`      // tasks.status
    UserID      uint64    `json:"userId"`      // tasks.user_id
    CreatedAt   time.Time `json:"createdAt"`   // tasks.created_at
    UpdatedAt   time.Time `json:"updatedAt"`   // tasks.updated_at
}

// TaskPatch carries the fields of a partial update.  A nil pointer leaves
// the column untouched.  ClearDescription sets the description to NULL.
type TaskPatch struct {
    Title            *string
    Description      *string
    ClearDescription bool
    Status           *string
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
    return p.Title == nil && p.Description == nil && !p.ClearDescription && p.Status == nil
}
