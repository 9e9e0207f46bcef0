// Package gate decides whether a visitor may see a gated page. Every check
// fails closed: a lookup error or missing data denies.
package gate

import (
	"github.com/validtech/valid_backend/models"
)

type Reason string

const (
	ReasonAllowed       Reason = "allowed"
	ReasonAdministrator Reason = "administrator"
	ReasonNoSession     Reason = "sign_in_required"
	ReasonLookupFailed  Reason = "profile_unavailable"
	ReasonNoProfile     Reason = "profile_missing"
	ReasonInactive      Reason = "profile_inactive"
	ReasonNotApproved   Reason = "approval_required"
	ReasonUnknownArea   Reason = "unknown_area"
)

type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason"`
}

func allow(r Reason) Decision { return Decision{Allowed: true, Reason: r} }
func deny(r Reason) Decision  { return Decision{Allowed: false, Reason: r} }

// Age is the age confirmation screen; it never blocks.
func Age() Decision {
	return allow(ReasonAllowed)
}

// Auth allows any request carrying a resolved session.
func Auth(hasSession bool) Decision {
	if !hasSession {
		return deny(ReasonNoSession)
	}
	return allow(ReasonAllowed)
}

// Access checks the approval column for area. err is the error from loading
// the profile; any error denies.
func Access(profile *models.Profile, err error, area models.AccessArea) Decision {
	if err != nil {
		return deny(ReasonLookupFailed)
	}
	if profile == nil {
		return deny(ReasonNoProfile)
	}
	if !profile.Active() {
		return deny(ReasonInactive)
	}
	if profile.IsAdministrator() {
		return allow(ReasonAdministrator)
	}
	var approved *bool
	switch area {
	case models.AccessAreaInvestor:
		approved = profile.InvestorAccessApproved
	case models.AccessAreaPartner:
		approved = profile.PartnerAccessApproved
	default:
		return deny(ReasonUnknownArea)
	}
	if approved == nil || !*approved {
		return deny(ReasonNotApproved)
	}
	return allow(ReasonAllowed)
}
