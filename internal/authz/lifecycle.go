package authz

import "fmt"

// Lifecycle is a resource's soft-delete state. Active resources behave
// normally, trashed resources are recoverable, deleted resources are gone for
// every role forever.
type Lifecycle string

const (
	LifecycleActive  Lifecycle = "active"
	LifecycleTrashed Lifecycle = "trashed"
	LifecycleDeleted Lifecycle = "deleted"
)

// ErrInvalidTransition is returned for lifecycle moves the state machine does
// not define, e.g. restoring an active resource or any action on a deleted one.
type ErrInvalidTransition struct {
	From   Lifecycle
	Action Action
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("authz: lifecycle %q does not permit %s", e.From, e.Action)
}

// Next returns the lifecycle state reached by applying a lifecycle action:
//
//	active  --trash-->            trashed
//	trashed --restore-->          active
//	active  --permanent_remove--> deleted
//	trashed --permanent_remove--> deleted
//
// Deleted is absorbing; nothing is defined on it. Whether the requester is
// allowed to attempt the transition at all is Authorize's job, not Next's.
func (l Lifecycle) Next(action Action) (Lifecycle, error) {
	switch action {
	case ActionTrash:
		if l == LifecycleActive {
			return LifecycleTrashed, nil
		}
	case ActionRestore:
		if l == LifecycleTrashed {
			return LifecycleActive, nil
		}
	case ActionPermanentRemove:
		if l == LifecycleActive || l == LifecycleTrashed {
			return LifecycleDeleted, nil
		}
	}
	return l, &ErrInvalidTransition{From: l, Action: action}
}
