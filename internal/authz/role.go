package authz

// Group names carried in the principal's group set. Group membership is
// disjoint from ownership: owning a session does not put a user in a group,
// and group membership never makes a user an owner.
const (
	GroupAdmin   = "admin"
	GroupBackend = "backend"
)

// Principal is the engine's view of an authenticated requester. It is a
// snapshot supplied by the auth collaborator; the engine never looks identities
// up itself.
type Principal struct {
	ID       string
	Verified bool
	Groups   []string
}

// InGroup reports whether the principal claims membership in the named group.
// Claims only count once the principal is verified; see ResolveRole.
func (p Principal) InGroup(name string) bool {
	for _, g := range p.Groups {
		if g == name {
			return true
		}
	}
	return false
}

// Role is the principal's relationship to a specific resource, ordered from
// most to least privileged.
type Role int

const (
	RoleUnverified Role = iota
	RoleOther
	RoleBackend
	RoleAdmin
	RoleOwner
)

func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleAdmin:
		return "admin"
	case RoleBackend:
		return "backend"
	case RoleOther:
		return "other"
	default:
		return "unverified"
	}
}

// Elevated reports whether the role grants broad read access (Admin/Backend).
func (r Role) Elevated() bool {
	return r == RoleAdmin || r == RoleBackend
}

// ResolveRole computes the principal's role relative to a resource owner.
// ownerID may be empty for object-independent checks, in which case the
// Owner rung is unreachable. Verification gates everything: an unverified
// principal resolves to RoleUnverified no matter what it owns or claims.
// A principal with an empty ID is malformed and also resolves to
// RoleUnverified (fail closed).
func ResolveRole(p Principal, ownerID string) Role {
	if p.ID == "" || !p.Verified {
		return RoleUnverified
	}
	if ownerID != "" && p.ID == ownerID {
		return RoleOwner
	}
	if p.InGroup(GroupAdmin) {
		return RoleAdmin
	}
	if p.InGroup(GroupBackend) {
		return RoleBackend
	}
	return RoleOther
}
