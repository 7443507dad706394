package authz

import "testing"

func TestReadAndMutationVisibility(t *testing.T) {
	principals := testPrincipals()

	cases := []struct {
		role       string
		public     bool
		wantRead   bool
		wantMutate bool
	}{
		{"owner", false, true, true},
		{"owner", true, true, true},
		{"admin", false, true, false}, // reads private, may not touch it
		{"admin", true, true, true},
		{"backend", false, true, false},
		{"backend", true, true, true},
		{"other", false, false, false},
		{"other", true, true, false},
		{"unverified", false, false, false},
		{"unverified", true, true, false},
	}

	for _, tc := range cases {
		r := sessionRes(tc.public)
		p := principals[tc.role]
		if got := ReadVisible(p, r); got != tc.wantRead {
			t.Errorf("ReadVisible(%s, public=%v) = %v, want %v", tc.role, tc.public, got, tc.wantRead)
		}
		if got := MutationVisible(p, r); got != tc.wantMutate {
			t.Errorf("MutationVisible(%s, public=%v) = %v, want %v", tc.role, tc.public, got, tc.wantMutate)
		}
	}
}

func TestDeletedIsNeverVisible(t *testing.T) {
	for role, p := range testPrincipals() {
		r := sessionRes(true)
		r.Lifecycle = LifecycleDeleted
		if ReadVisible(p, r) {
			t.Errorf("deleted resource read-visible to %s", role)
		}
		if MutationVisible(p, r) {
			t.Errorf("deleted resource mutation-visible to %s", role)
		}
	}
}

func TestListableFilter(t *testing.T) {
	principals := testPrincipals()

	public := sessionRes(true)
	private := sessionRes(false)

	for role, p := range principals {
		if !Listable(p, public) {
			t.Errorf("public session not listable for %s", role)
		}
		want := role == "owner"
		if got := Listable(p, private); got != want {
			t.Errorf("private session listable for %s = %v, want %v", role, got, want)
		}
	}
}

func TestListableExcludesTrashedAndDeleted(t *testing.T) {
	owner := testPrincipals()["owner"]

	for _, lc := range []Lifecycle{LifecycleTrashed, LifecycleDeleted} {
		r := sessionRes(true)
		r.Lifecycle = lc
		if Listable(owner, r) {
			t.Errorf("%s session listable for owner", lc)
		}
	}
}

func TestOwnedListableIgnoresPublic(t *testing.T) {
	principals := testPrincipals()

	// Search and valid views only surface the requester's own sessions, even
	// public ones owned by someone else.
	public := sessionRes(true)
	for role, p := range principals {
		want := role == "owner"
		if got := OwnedListable(p, public); got != want {
			t.Errorf("OwnedListable(%s, public) = %v, want %v", role, got, want)
		}
	}
}

func TestSubjectVisibility(t *testing.T) {
	principals := testPrincipals()
	r := subjectRes()

	// Subjects have no public flag: only owner and elevated roles see them,
	// and enumeration surfaces them to the owner alone.
	for role, wantRead := range map[string]bool{
		"owner": true, "admin": true, "backend": true, "other": false, "unverified": false,
	} {
		if got := ReadVisible(principals[role], r); got != wantRead {
			t.Errorf("subject ReadVisible(%s) = %v, want %v", role, got, wantRead)
		}
	}
	for role, p := range principals {
		want := role == "owner"
		if got := Listable(p, r); got != want {
			t.Errorf("subject Listable(%s) = %v, want %v", role, got, want)
		}
		wantMutate := role == "owner"
		if got := MutationVisible(p, r); got != wantMutate {
			t.Errorf("subject MutationVisible(%s) = %v, want %v", role, got, wantMutate)
		}
	}
}
