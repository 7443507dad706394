package authz

// Resource is the engine's snapshot of a stored entity, taken after
// inheritance resolution: a trial carries its session's owner and public
// flag, a result carries its trial's session's, and a subject is never
// public. Callers build it from whatever the storage layer returned; the
// engine never loads anything.
type Resource struct {
	Type      ResourceType
	ID        string
	OwnerID   string
	Public    bool
	Lifecycle Lifecycle
}

// ReadVisible reports whether the principal may observe that the resource
// exists. Owners and elevated roles see everything of theirs or anyone's;
// everyone else, verified or not, sees only public resources. Deleted
// resources are invisible to all roles, owner included.
func ReadVisible(p Principal, r Resource) bool {
	if r.Lifecycle == LifecycleDeleted {
		return false
	}
	role := ResolveRole(p, r.OwnerID)
	if role == RoleOwner || role.Elevated() {
		return true
	}
	return r.Public
}

// MutationVisible reports whether the principal may change the resource.
// Only the owner mutates private resources; Admin/Backend mutate public ones
// but are deliberately shut out of private resources they can read — that
// asymmetry is part of the policy, not an oversight.
func MutationVisible(p Principal, r Resource) bool {
	if r.Lifecycle == LifecycleDeleted {
		return false
	}
	role := ResolveRole(p, r.OwnerID)
	if role == RoleOwner {
		return true
	}
	return role.Elevated() && r.Public
}

// Listable is the collection filter: whether the resource appears when the
// principal enumerates its type. Listing is a convenience view of what is
// openly discoverable plus what one owns, so elevated roles get no expansion
// here; their reach is limited to direct object access. Trashed rows are held
// back from listings even though they remain individually addressable.
func Listable(p Principal, r Resource) bool {
	if r.Lifecycle != LifecycleActive {
		return false
	}
	if r.Public {
		return true
	}
	return ResolveRole(p, r.OwnerID) == RoleOwner
}

// OwnedListable restricts Listable to resources the principal owns. Used by
// the search and valid views, which enumerate only the requester's own
// sessions regardless of public state.
func OwnedListable(p Principal, r Resource) bool {
	if r.Lifecycle != LifecycleActive {
		return false
	}
	return ResolveRole(p, r.OwnerID) == RoleOwner
}
