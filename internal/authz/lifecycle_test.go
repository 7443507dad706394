package authz

import (
	"errors"
	"testing"
)

func TestLifecycleTransitions(t *testing.T) {
	cases := []struct {
		from    Lifecycle
		action  Action
		want    Lifecycle
		wantErr bool
	}{
		{LifecycleActive, ActionTrash, LifecycleTrashed, false},
		{LifecycleTrashed, ActionRestore, LifecycleActive, false},
		{LifecycleActive, ActionPermanentRemove, LifecycleDeleted, false},
		{LifecycleTrashed, ActionPermanentRemove, LifecycleDeleted, false},

		// Undefined moves.
		{LifecycleActive, ActionRestore, LifecycleActive, true},
		{LifecycleTrashed, ActionTrash, LifecycleTrashed, true},
		{LifecycleDeleted, ActionTrash, LifecycleDeleted, true},
		{LifecycleDeleted, ActionRestore, LifecycleDeleted, true},
		{LifecycleDeleted, ActionPermanentRemove, LifecycleDeleted, true},

		// Non-lifecycle actions never transition.
		{LifecycleActive, ActionUpdate, LifecycleActive, true},
	}

	for _, tc := range cases {
		got, err := tc.from.Next(tc.action)
		if tc.wantErr {
			var invalid *ErrInvalidTransition
			if !errors.As(err, &invalid) {
				t.Errorf("%s.Next(%s): want ErrInvalidTransition, got %v", tc.from, tc.action, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s.Next(%s): unexpected error %v", tc.from, tc.action, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%s.Next(%s) = %s, want %s", tc.from, tc.action, got, tc.want)
		}
	}
}

func TestRestoreUndoesTrash(t *testing.T) {
	state := LifecycleActive

	trashed, err := state.Next(ActionTrash)
	if err != nil {
		t.Fatalf("trash: %v", err)
	}
	restored, err := trashed.Next(ActionRestore)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored != LifecycleActive {
		t.Errorf("restore(trash(active)) = %s, want active", restored)
	}
}
