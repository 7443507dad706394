package authz

import "testing"

func TestResolveRole(t *testing.T) {
	cases := []struct {
		name    string
		p       Principal
		ownerID string
		want    Role
	}{
		{"owner", Principal{ID: ownerID, Verified: true}, ownerID, RoleOwner},
		{"admin group", Principal{ID: adminID, Verified: true, Groups: []string{GroupAdmin}}, ownerID, RoleAdmin},
		{"backend group", Principal{ID: backendID, Verified: true, Groups: []string{GroupBackend}}, ownerID, RoleBackend},
		{"verified stranger", Principal{ID: otherID, Verified: true}, ownerID, RoleOther},
		{"unverified stranger", Principal{ID: unverID}, ownerID, RoleUnverified},

		// Verification gates everything: group claims and even ownership do
		// not count for an unverified principal.
		{"unverified admin claim", Principal{ID: unverID, Groups: []string{GroupAdmin}}, ownerID, RoleUnverified},
		{"unverified owner", Principal{ID: ownerID, Verified: false}, ownerID, RoleUnverified},

		// Ownership outranks group membership when both hold.
		{"owner in admin group", Principal{ID: ownerID, Verified: true, Groups: []string{GroupAdmin}}, ownerID, RoleOwner},
		{"admin outranks backend", Principal{ID: adminID, Verified: true, Groups: []string{GroupBackend, GroupAdmin}}, ownerID, RoleAdmin},

		// No owner in scope: the Owner rung is unreachable.
		{"owner without object", Principal{ID: ownerID, Verified: true}, "", RoleOther},

		// Malformed input fails closed.
		{"empty principal", Principal{}, ownerID, RoleUnverified},
		{"missing id", Principal{Verified: true, Groups: []string{GroupAdmin}}, ownerID, RoleUnverified},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ResolveRole(tc.p, tc.ownerID); got != tc.want {
				t.Errorf("ResolveRole = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestRoleElevated(t *testing.T) {
	for role, want := range map[Role]bool{
		RoleOwner:      false,
		RoleAdmin:      true,
		RoleBackend:    true,
		RoleOther:      false,
		RoleUnverified: false,
	} {
		if got := role.Elevated(); got != want {
			t.Errorf("%s.Elevated() = %v, want %v", role, got, want)
		}
	}
}
