package authz

import "fmt"

// gate names the predicate an action requires. Every (resource type, action)
// pair resolves to exactly one gate; the gate alone decides the outcome.
type gate int

const (
	// gateOpen allows any authenticated principal, provided the target still
	// exists (deleted rows stay hidden even here).
	gateOpen gate = iota
	// gateList allows the enumeration request itself; rows are narrowed
	// separately with Listable/OwnedListable.
	gateList
	// gateVerified is the object-independent role gate: verified principals
	// pass, unverified ones are refused outright.
	gateVerified
	// gateOperator admits only Admin/Backend. These are operational actions,
	// not ownership-scoped ones: owners are refused like anyone else.
	gateOperator
	// gateRead requires read visibility; hidden objects yield NotFound so the
	// requester cannot probe for existence.
	gateRead
	// gateMutate requires mutation visibility, with the outcome split by what
	// the requester could already see.
	gateMutate
	// gateOwner admits only the owner; every other verified role gets
	// NotFound, matching what they would see for a resource that isn't there.
	gateOwner
	// gateOwnerOrPublic admits the owner always and anyone at all when the
	// resource is public. No verification gate applies.
	gateOwnerOrPublic
	// gateOwnerElevated admits the owner and Admin/Backend regardless of the
	// public flag; other verified principals get NotFound.
	gateOwnerElevated
)

// objectGate reports whether the gate needs a resource snapshot.
func (g gate) objectGate() bool {
	switch g {
	case gateList, gateVerified, gateOperator:
		return false
	}
	return true
}

// policyTable is the action policy table: the densest part of the engine.
// Session custom actions keep the partition the product grew organically —
// read-gated settings/images/downloads, owner-gated recording and QR
// endpoints, operator-gated queue management — rather than a unified rule.
var policyTable = map[ResourceType]map[Action]gate{
	ResourceSession: {
		ActionList:      gateList,
		ActionSearch:    gateList,
		ActionValidList: gateList,

		ActionCreate:          gateVerified,
		ActionNew:             gateVerified,
		ActionValidConfirm:    gateVerified,
		ActionSessionStatuses: gateVerified,

		ActionStatus:            gateOpen,
		ActionSessionPermission: gateOpen,

		ActionRetrieve:         gateRead,
		ActionDownload:         gateRead,
		ActionCalibrationImage: gateRead,
		ActionNeutralImage:     gateRead,
		ActionSessionSettings:  gateRead,

		ActionUpdate:          gateMutate,
		ActionPartialUpdate:   gateMutate,
		ActionDelete:          gateMutate,
		ActionRename:          gateMutate,
		ActionTrash:           gateMutate,
		ActionRestore:         gateMutate,
		ActionCalibrationPost: gateMutate,

		ActionPermanentRemove: gateOwner,
		ActionGetQR:           gateOwner,
		ActionSetSubject:      gateOwner,
		ActionNewSubject:      gateOwner,
		ActionRecord:          gateOwner,

		ActionAsyncDownload: gateOwnerOrPublic,

		ActionSetMetadata:       gateOwnerElevated,
		ActionStop:              gateOwnerElevated,
		ActionCancelTrial:       gateOwnerElevated,
		ActionCalibrationGet:    gateOwnerElevated,
		ActionCalibratedCameras: gateOwnerElevated,

		ActionSetSessionStatus: gateOperator,
	},
	ResourceTrial: {
		ActionList: gateList,

		ActionRetrieve: gateRead,

		ActionUpdate:        gateMutate,
		ActionPartialUpdate: gateMutate,
		ActionDelete:        gateMutate,
		ActionRename:        gateMutate,
		ActionModifyTags:    gateMutate,
		ActionTrash:         gateMutate,
		ActionRestore:       gateMutate,

		ActionPermanentRemove: gateOwner,

		ActionDequeue:          gateOperator,
		ActionTrialsWithStatus: gateOperator,
	},
	ResourceResult: {
		ActionList: gateVerified,

		ActionRetrieve: gateRead,

		// Create is evaluated against the parent trial's snapshot: writing a
		// result into a trial is a mutation of that trial's data.
		ActionCreate:        gateMutate,
		ActionUpdate:        gateMutate,
		ActionPartialUpdate: gateMutate,
		ActionDelete:        gateMutate,
	},
	ResourceSubject: {
		ActionList:   gateVerified,
		ActionCreate: gateVerified,

		ActionRetrieve: gateRead,

		ActionUpdate:        gateMutate,
		ActionPartialUpdate: gateMutate,
		ActionDelete:        gateMutate,
		ActionTrash:         gateMutate,
		ActionRestore:       gateMutate,

		ActionPermanentRemove: gateOwner,
		ActionDownload:        gateOwner,
		ActionAsyncDownload:   gateOwner,
	},
}

// Authorize is the single evaluation entry point. Handlers call it before
// executing any side-effecting logic: p is the authenticated requester, rt
// the resource type the action is routed under, action the operation, and
// res the effective resource snapshot (nil for object-independent actions
// such as list, create, or dequeue).
//
// The returned error is a programming-contract fault — an action the table
// does not define for the resource type, or a missing snapshot — and must be
// treated as an internal error by the caller. Denials are expressed solely
// through the Decision value. Evaluation is deterministic and side-effect
// free: identical inputs always yield the identical decision.
func Authorize(p Principal, rt ResourceType, action Action, res *Resource) (Decision, error) {
	actions, ok := policyTable[rt]
	if !ok {
		return NotFound, fmt.Errorf("%w: unknown resource type %q", ErrUnknownAction, rt)
	}
	g, ok := actions[action]
	if !ok {
		return NotFound, fmt.Errorf("%w: %s on %s", ErrUnknownAction, action, rt)
	}

	if !g.objectGate() {
		return evalRoleGate(g, p), nil
	}
	if res == nil {
		return NotFound, fmt.Errorf("%w: %s on %s", ErrMissingResource, action, rt)
	}
	return evalObjectGate(g, p, *res), nil
}

// AuthorizeResource is Authorize for callers that already hold a snapshot;
// the resource type is taken from the snapshot itself.
func AuthorizeResource(p Principal, action Action, res Resource) (Decision, error) {
	return Authorize(p, res.Type, action, &res)
}

// evalRoleGate handles gates that never inspect an object. These run before
// any lookup, so even actions on nonexistent IDs resolve the same way.
func evalRoleGate(g gate, p Principal) Decision {
	switch g {
	case gateList:
		return Allow
	case gateVerified:
		if ResolveRole(p, "") == RoleUnverified {
			return Forbidden
		}
		return Allow
	case gateOperator:
		if ResolveRole(p, "").Elevated() {
			return Allow
		}
		return Forbidden
	}
	return NotFound
}

func evalObjectGate(g gate, p Principal, r Resource) Decision {
	role := ResolveRole(p, r.OwnerID)

	switch g {
	case gateOpen:
		if r.Lifecycle == LifecycleDeleted {
			return NotFound
		}
		return Allow

	case gateRead:
		if ReadVisible(p, r) {
			return Allow
		}
		return NotFound

	case gateMutate:
		// Global role gate first: unverified principals are refused before
		// the object is inspected, whatever its state.
		if role == RoleUnverified {
			return Forbidden
		}
		if r.Lifecycle == LifecycleDeleted {
			return NotFound
		}
		if MutationVisible(p, r) {
			return Allow
		}
		if role == RoleOther && r.Public {
			// They can see it but may not touch it.
			return Forbidden
		}
		// Elevated roles blocked on private resources land here too: they
		// get the same outcome as a stranger, by policy.
		return NotFound

	case gateOwner:
		if role == RoleUnverified {
			return Forbidden
		}
		if r.Lifecycle != LifecycleDeleted && role == RoleOwner {
			return Allow
		}
		return NotFound

	case gateOwnerOrPublic:
		if r.Lifecycle == LifecycleDeleted {
			return NotFound
		}
		if role == RoleOwner || r.Public {
			return Allow
		}
		return NotFound

	case gateOwnerElevated:
		if role == RoleUnverified {
			return Forbidden
		}
		if r.Lifecycle == LifecycleDeleted {
			return NotFound
		}
		if role == RoleOwner || role.Elevated() {
			return Allow
		}
		return NotFound
	}

	// Unmatched cases fail to the most restrictive outcome.
	return NotFound
}
