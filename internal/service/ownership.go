package service

import "fmt"

// Action names a mutating operation checked by Authorize.
type Action string

const (
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// ForbiddenError is the deny outcome of Authorize.  Its message names the
// action and resource, e.g. "Not authorized to delete this task".
type ForbiddenError struct {
	Action   Action
	Resource string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("Not authorized to %s this %s", e.Action, e.Resource)
}

func (e *ForbiddenError) Unwrap() error { return ErrForbidden }

// Authorize allows the action iff the requester owns the resource.  Callers
// must confirm the resource exists first; Authorize never sees missing
// resources and never changes ownership.
func Authorize(resource string, ownerID, requesterID uint64, action Action) error {
	if ownerID != 0 && ownerID == requesterID {
		return nil
	}
	return &ForbiddenError{Action: action, Resource: resource}
}
