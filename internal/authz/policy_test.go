package authz

import (
	"testing"
)

const (
	ownerID   = "11111111-aaaa-4bbb-8ccc-000000000001"
	adminID   = "11111111-aaaa-4bbb-8ccc-000000000002"
	backendID = "11111111-aaaa-4bbb-8ccc-000000000003"
	otherID   = "11111111-aaaa-4bbb-8ccc-000000000004"
	unverID   = "11111111-aaaa-4bbb-8ccc-000000000005"
)

// testPrincipals mirrors the five requester archetypes the policy
// distinguishes. Iteration order does not matter; every matrix names its roles
// explicitly.
func testPrincipals() map[string]Principal {
	return map[string]Principal{
		"owner":      {ID: ownerID, Verified: true},
		"admin":      {ID: adminID, Verified: true, Groups: []string{GroupAdmin}},
		"backend":    {ID: backendID, Verified: true, Groups: []string{GroupBackend}},
		"other":      {ID: otherID, Verified: true},
		"unverified": {ID: unverID, Groups: []string{GroupAdmin}},
	}
}

func sessionRes(public bool) Resource {
	return Resource{
		Type:      ResourceSession,
		ID:        "22222222-aaaa-4bbb-8ccc-000000000001",
		OwnerID:   ownerID,
		Public:    public,
		Lifecycle: LifecycleActive,
	}
}

func trialRes(public bool) Resource {
	r := sessionRes(public)
	r.Type = ResourceTrial
	r.ID = "33333333-aaaa-4bbb-8ccc-000000000001"
	return r
}

func resultRes(public bool) Resource {
	r := sessionRes(public)
	r.Type = ResourceResult
	r.ID = "44444444-aaaa-4bbb-8ccc-000000000001"
	return r
}

func subjectRes() Resource {
	return Resource{
		Type:      ResourceSubject,
		ID:        "55555555-aaaa-4bbb-8ccc-000000000001",
		OwnerID:   ownerID,
		Public:    false,
		Lifecycle: LifecycleActive,
	}
}

// expect maps role name to the wanted decision.
type expect map[string]Decision

// checkObject runs an object action for every role against both public states
// and compares with the wanted matrix.
func checkObject(t *testing.T, action Action, res func(public bool) Resource, whenPublic, whenPrivate expect) {
	t.Helper()
	principals := testPrincipals()
	for _, public := range []bool{false, true} {
		want := whenPrivate
		if public {
			want = whenPublic
		}
		for role, wantDecision := range want {
			r := res(public)
			got, err := Authorize(principals[role], r.Type, action, &r)
			if err != nil {
				t.Fatalf("%s %s public=%v role=%s: unexpected error %v", r.Type, action, public, role, err)
			}
			if got != wantDecision {
				t.Errorf("%s %s public=%v role=%s: got %s, want %s", r.Type, action, public, role, got, wantDecision)
			}
		}
	}
}

// checkCollection runs an object-independent action for every role.
func checkCollection(t *testing.T, rt ResourceType, action Action, want expect) {
	t.Helper()
	principals := testPrincipals()
	for role, wantDecision := range want {
		got, err := Authorize(principals[role], rt, action, nil)
		if err != nil {
			t.Fatalf("%s %s role=%s: unexpected error %v", rt, action, role, err)
		}
		if got != wantDecision {
			t.Errorf("%s %s role=%s: got %s, want %s", rt, action, role, got, wantDecision)
		}
	}
}

// Shared matrices per gate. Named by what the outcome pattern is, not by the
// internal gate constant, so a failure message reads naturally.

var (
	allAllowed = expect{"owner": Allow, "admin": Allow, "backend": Allow, "other": Allow, "unverified": Allow}

	verifiedOnly = expect{"owner": Allow, "admin": Allow, "backend": Allow, "other": Allow, "unverified": Forbidden}

	operatorOnly = expect{"owner": Forbidden, "admin": Allow, "backend": Allow, "other": Forbidden, "unverified": Forbidden}

	readPublic  = expect{"owner": Allow, "admin": Allow, "backend": Allow, "other": Allow, "unverified": Allow}
	readPrivate = expect{"owner": Allow, "admin": Allow, "backend": Allow, "other": NotFound, "unverified": NotFound}

	mutatePublic  = expect{"owner": Allow, "admin": Allow, "backend": Allow, "other": Forbidden, "unverified": Forbidden}
	mutatePrivate = expect{"owner": Allow, "admin": NotFound, "backend": NotFound, "other": NotFound, "unverified": Forbidden}

	ownerOnly = expect{"owner": Allow, "admin": NotFound, "backend": NotFound, "other": NotFound, "unverified": Forbidden}

	ownerOrPublicPublic  = expect{"owner": Allow, "admin": Allow, "backend": Allow, "other": Allow, "unverified": Allow}
	ownerOrPublicPrivate = expect{"owner": Allow, "admin": NotFound, "backend": NotFound, "other": NotFound, "unverified": NotFound}

	ownerElevated = expect{"owner": Allow, "admin": Allow, "backend": Allow, "other": NotFound, "unverified": Forbidden}
)

func TestSessionCollectionActions(t *testing.T) {
	for _, action := range []Action{ActionList, ActionSearch, ActionValidList} {
		checkCollection(t, ResourceSession, action, allAllowed)
	}
	for _, action := range []Action{ActionCreate, ActionNew, ActionValidConfirm, ActionSessionStatuses} {
		checkCollection(t, ResourceSession, action, verifiedOnly)
	}
}

func TestSessionReadActions(t *testing.T) {
	for _, action := range []Action{ActionRetrieve, ActionDownload, ActionCalibrationImage, ActionNeutralImage, ActionSessionSettings} {
		checkObject(t, action, sessionRes, readPublic, readPrivate)
	}
}

func TestSessionOpenActions(t *testing.T) {
	for _, action := range []Action{ActionStatus, ActionSessionPermission} {
		checkObject(t, action, sessionRes, allAllowed, allAllowed)
	}
}

func TestSessionMutatingActions(t *testing.T) {
	for _, action := range []Action{ActionUpdate, ActionPartialUpdate, ActionDelete, ActionRename, ActionTrash, ActionRestore, ActionCalibrationPost} {
		checkObject(t, action, sessionRes, mutatePublic, mutatePrivate)
	}
}

func TestSessionOwnerActions(t *testing.T) {
	for _, action := range []Action{ActionPermanentRemove, ActionGetQR, ActionSetSubject, ActionNewSubject, ActionRecord} {
		checkObject(t, action, sessionRes, ownerOnly, ownerOnly)
	}
}

func TestSessionAsyncDownload(t *testing.T) {
	checkObject(t, ActionAsyncDownload, sessionRes, ownerOrPublicPublic, ownerOrPublicPrivate)
}

func TestSessionOwnerElevatedActions(t *testing.T) {
	for _, action := range []Action{ActionSetMetadata, ActionStop, ActionCancelTrial, ActionCalibrationGet, ActionCalibratedCameras} {
		checkObject(t, action, sessionRes, ownerElevated, ownerElevated)
	}
}

func TestSessionSetSessionStatusIsOperatorOnly(t *testing.T) {
	// Owners are deliberately excluded: lifecycle-status overrides are an
	// operator concern, separate from ownership-based soft delete.
	checkObject(t, ActionSetSessionStatus, sessionRes, operatorOnly, operatorOnly)
}

func TestTrialActions(t *testing.T) {
	checkCollection(t, ResourceTrial, ActionList, allAllowed)
	checkObject(t, ActionRetrieve, trialRes, readPublic, readPrivate)
	for _, action := range []Action{ActionUpdate, ActionPartialUpdate, ActionDelete, ActionRename, ActionModifyTags, ActionTrash, ActionRestore} {
		checkObject(t, action, trialRes, mutatePublic, mutatePrivate)
	}
	checkObject(t, ActionPermanentRemove, trialRes, ownerOnly, ownerOnly)
}

func TestTrialOperatorActions(t *testing.T) {
	// Dequeue and status filtering are queue management: even the trial's
	// owner is refused.
	for _, action := range []Action{ActionDequeue, ActionTrialsWithStatus} {
		checkCollection(t, ResourceTrial, action, operatorOnly)
	}
}

func TestResultActions(t *testing.T) {
	checkCollection(t, ResourceResult, ActionList, verifiedOnly)
	checkObject(t, ActionRetrieve, resultRes, readPublic, readPrivate)
	for _, action := range []Action{ActionCreate, ActionUpdate, ActionPartialUpdate, ActionDelete} {
		checkObject(t, action, resultRes, mutatePublic, mutatePrivate)
	}
}

func TestSubjectActions(t *testing.T) {
	principals := testPrincipals()

	checkCollection(t, ResourceSubject, ActionList, verifiedOnly)
	checkCollection(t, ResourceSubject, ActionCreate, verifiedOnly)

	// Subjects are never public, so the private column is the whole story.
	wantRead := expect{"owner": Allow, "admin": Allow, "backend": Allow, "other": NotFound, "unverified": NotFound}
	for role, want := range wantRead {
		r := subjectRes()
		got, err := Authorize(principals[role], ResourceSubject, ActionRetrieve, &r)
		if err != nil {
			t.Fatalf("subject retrieve role=%s: %v", role, err)
		}
		if got != want {
			t.Errorf("subject retrieve role=%s: got %s, want %s", role, got, want)
		}
	}

	wantMutate := expect{"owner": Allow, "admin": NotFound, "backend": NotFound, "other": NotFound, "unverified": Forbidden}
	for _, action := range []Action{ActionUpdate, ActionPartialUpdate, ActionDelete, ActionTrash, ActionRestore} {
		for role, want := range wantMutate {
			r := subjectRes()
			got, err := Authorize(principals[role], ResourceSubject, action, &r)
			if err != nil {
				t.Fatalf("subject %s role=%s: %v", action, role, err)
			}
			if got != want {
				t.Errorf("subject %s role=%s: got %s, want %s", action, role, got, want)
			}
		}
	}

	for _, action := range []Action{ActionPermanentRemove, ActionDownload, ActionAsyncDownload} {
		for role, want := range ownerOnly {
			r := subjectRes()
			got, err := Authorize(principals[role], ResourceSubject, action, &r)
			if err != nil {
				t.Fatalf("subject %s role=%s: %v", action, role, err)
			}
			if got != want {
				t.Errorf("subject %s role=%s: got %s, want %s", action, role, got, want)
			}
		}
	}
}

func TestDeletedResourceIsGoneForEveryone(t *testing.T) {
	principals := testPrincipals()

	for _, public := range []bool{false, true} {
		res := sessionRes(public)
		res.Lifecycle = LifecycleDeleted

		// Every read-style action, every role, including the prior owner.
		for _, action := range []Action{ActionRetrieve, ActionDownload, ActionSessionSettings, ActionAsyncDownload} {
			for role, p := range principals {
				got, err := Authorize(p, ResourceSession, action, &res)
				if err != nil {
					t.Fatalf("deleted %s role=%s: %v", action, role, err)
				}
				if got != NotFound {
					t.Errorf("deleted session %s public=%v role=%s: got %s, want not_found", action, public, role, got)
				}
			}
		}

		// Mutations by verified roles are hidden too; the global role gate
		// still fires first for unverified requesters.
		for _, action := range []Action{ActionUpdate, ActionDelete, ActionTrash, ActionRestore, ActionPermanentRemove} {
			for role, p := range principals {
				got, err := Authorize(p, ResourceSession, action, &res)
				if err != nil {
					t.Fatalf("deleted %s role=%s: %v", action, role, err)
				}
				want := NotFound
				if role == "unverified" {
					want = Forbidden
				}
				if got != want {
					t.Errorf("deleted session %s public=%v role=%s: got %s, want %s", action, public, role, got, want)
				}
			}
		}
	}
}

func TestTrashedResourceRemainsActionable(t *testing.T) {
	// Trash must not hide a resource from its owner, or restore could never
	// be authorized.
	res := sessionRes(false)
	res.Lifecycle = LifecycleTrashed

	owner := testPrincipals()["owner"]
	for _, action := range []Action{ActionRetrieve, ActionRestore, ActionPermanentRemove} {
		got, err := Authorize(owner, ResourceSession, action, &res)
		if err != nil {
			t.Fatalf("trashed %s: %v", action, err)
		}
		if got != Allow {
			t.Errorf("trashed session %s for owner: got %s, want allow", action, got)
		}
	}
}

func TestAuthorizeIsIdempotent(t *testing.T) {
	principals := testPrincipals()
	res := sessionRes(false)

	for role, p := range principals {
		for _, action := range []Action{ActionRetrieve, ActionUpdate, ActionPermanentRemove, ActionDequeue} {
			rt := ResourceSession
			snap := &res
			if action == ActionDequeue {
				rt = ResourceTrial
				snap = nil
			}
			first, err1 := Authorize(p, rt, action, snap)
			second, err2 := Authorize(p, rt, action, snap)
			if err1 != nil || err2 != nil {
				t.Fatalf("role=%s action=%s: errors %v / %v", role, action, err1, err2)
			}
			if first != second {
				t.Errorf("role=%s action=%s: decisions differ (%s vs %s)", role, action, first, second)
			}
		}
	}
}

func TestContractFaults(t *testing.T) {
	owner := testPrincipals()["owner"]

	// Action undefined for the resource type.
	if _, err := Authorize(owner, ResourceSubject, ActionDequeue, nil); err == nil {
		t.Error("dequeue on subject: want contract fault, got nil error")
	}

	// Unknown resource type.
	if _, err := Authorize(owner, ResourceType("camera"), ActionRetrieve, nil); err == nil {
		t.Error("unknown resource type: want contract fault, got nil error")
	}

	// Object action without a snapshot.
	if _, err := Authorize(owner, ResourceSession, ActionRetrieve, nil); err == nil {
		t.Error("retrieve without snapshot: want contract fault, got nil error")
	}

	// Faults must never come back as Allow.
	d, err := Authorize(owner, ResourceSession, ActionRetrieve, nil)
	if err == nil || d == Allow {
		t.Errorf("contract fault decision: got %s (err=%v), want a denial", d, err)
	}
}

// The scenario walk-throughs below pin the end-to-end stories the policy was
// built around.

func TestScenarioPrivateSessionMadePublic(t *testing.T) {
	principals := testPrincipals()
	other := principals["other"]

	private := sessionRes(false)
	if d, _ := AuthorizeResource(other, ActionRetrieve, private); d != NotFound {
		t.Fatalf("other retrieving private session: got %s, want not_found", d)
	}

	public := sessionRes(true)
	if d, _ := AuthorizeResource(other, ActionRetrieve, public); d != Allow {
		t.Fatalf("other retrieving public session: got %s, want allow", d)
	}
	if d, _ := AuthorizeResource(other, ActionUpdate, public); d != Forbidden {
		t.Fatalf("other updating public session: got %s, want forbidden", d)
	}
}

func TestScenarioElevatedReadWriteAsymmetry(t *testing.T) {
	admin := testPrincipals()["admin"]
	private := sessionRes(false)

	if d, _ := AuthorizeResource(admin, ActionRetrieve, private); d != Allow {
		t.Fatalf("admin retrieving private session: got %s, want allow", d)
	}
	if d, _ := AuthorizeResource(admin, ActionPartialUpdate, private); d != NotFound {
		t.Fatalf("admin patching private session: got %s, want not_found", d)
	}
}

func TestScenarioDequeueRoles(t *testing.T) {
	principals := testPrincipals()

	if d, _ := Authorize(principals["backend"], ResourceTrial, ActionDequeue, nil); d != Allow {
		t.Fatalf("backend dequeue: got %s, want allow", d)
	}
	if d, _ := Authorize(principals["owner"], ResourceTrial, ActionDequeue, nil); d != Forbidden {
		t.Fatalf("owner dequeue: got %s, want forbidden", d)
	}
}

func TestScenarioPermanentRemoveIsTerminal(t *testing.T) {
	owner := testPrincipals()["owner"]
	res := sessionRes(true)

	if d, _ := AuthorizeResource(owner, ActionPermanentRemove, res); d != Allow {
		t.Fatalf("owner permanent_remove: got %s, want allow", d)
	}

	next, err := res.Lifecycle.Next(ActionPermanentRemove)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	res.Lifecycle = next

	for _, action := range []Action{ActionRetrieve, ActionDownload, ActionStatus, ActionSessionPermission} {
		if d, _ := AuthorizeResource(owner, action, res); d != NotFound {
			t.Errorf("owner %s after permanent_remove: got %s, want not_found", action, d)
		}
	}
}
