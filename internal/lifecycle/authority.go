package lifecycle

import "github.com/spec-kit/maintenance-service/internal/domain"

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// CanTransition decides whether the actor may invoke the transition on the
// request. It encodes role gating plus ownership: landlord actions require
// the owning landlord (super admins bypass ownership, not state legality),
// caretaker actions require the current assignee, tenant actions require
// the creating tenant. Pure; identical inputs always yield identical
// results, so it can both decide and render available actions.
func CanTransition(actor domain.Actor, req *domain.MaintenanceRequest, t TransitionType) Decision {
	switch t {
	case TransitionStartReview, TransitionApprove, TransitionReject, TransitionAssign:
		return landlordDecision(actor, req)
	case TransitionAccept, TransitionDecline, TransitionCompleteWork:
		return assigneeDecision(actor, req)
	case TransitionClose, TransitionReopen:
		if actor.Role != domain.RoleTenant {
			return deny("tenant role required")
		}
		if actor.ID != req.TenantID {
			return deny("actor is not the requesting tenant")
		}
		return allow()
	case TransitionReviewCompletion:
		if actor.Role == domain.RoleTenant {
			if actor.ID != req.TenantID {
				return deny("actor is not the requesting tenant")
			}
			return allow()
		}
		return landlordDecision(actor, req)
	}
	return deny("unknown transition")
}

func landlordDecision(actor domain.Actor, req *domain.MaintenanceRequest) Decision {
	if !actor.LandlordSide() {
		return deny("landlord role required")
	}
	if actor.Role == domain.RoleLandlord && actor.ID != req.LandlordID {
		return deny("actor does not own the property")
	}
	return allow()
}

func assigneeDecision(actor domain.Actor, req *domain.MaintenanceRequest) Decision {
	if actor.Role != domain.RoleCaretaker {
		return deny("caretaker role required")
	}
	if req.AssigneeID == nil {
		return deny("request has no assignee")
	}
	if actor.ID != *req.AssigneeID {
		return deny("actor is not the assignee")
	}
	return allow()
}

// LegalFrom lists the transitions defined for the given status, before any
// actor gating. Combined with CanTransition it drives "available actions"
// rendering.
func LegalFrom(status domain.RequestStatus) []TransitionType {
	switch status {
	case domain.StatusPending:
		return []TransitionType{TransitionStartReview}
	case domain.StatusUnderReview:
		return []TransitionType{TransitionApprove, TransitionReject}
	case domain.StatusApproved:
		return []TransitionType{TransitionAssign}
	case domain.StatusAssigned:
		return []TransitionType{TransitionAssign, TransitionAccept, TransitionDecline}
	case domain.StatusInProgress:
		return []TransitionType{TransitionCompleteWork}
	case domain.StatusPendingApproval:
		return []TransitionType{TransitionReviewCompletion}
	case domain.StatusResolved:
		return []TransitionType{TransitionClose, TransitionReopen}
	}
	return nil
}
