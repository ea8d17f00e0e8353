package auth

import (
	apperrors "github.com/spec-kit/storefront-bff/pkg/util"
)

// Decision is the outcome of an authorization check.
type Decision int

const (
	Allow Decision = iota
	DenyUnauthenticated
	DenyForbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyUnauthenticated:
		return "deny_unauthenticated"
	case DenyForbidden:
		return "deny_forbidden"
	}
	return "unknown"
}

// Err converts a denial into the error rendered to the client.
func (d Decision) Err() error {
	switch d {
	case Allow:
		return nil
	case DenyUnauthenticated:
		return apperrors.NewUnauthorized("authentication required")
	default:
		return apperrors.NewForbidden("insufficient permissions")
	}
}

type requirementKind int

const (
	kindPublic requirementKind = iota
	kindAnyUser
	kindRoles
	kindOwnerOrRoles
)

// Requirement is the access policy attached to a route.
type Requirement struct {
	kind  requirementKind
	roles roleSet
}

// Public routes never look at the Authorization header.
func Public() Requirement { return Requirement{kind: kindPublic} }

// AnyUser admits every caller holding a valid token.
func AnyUser() Requirement { return Requirement{kind: kindAnyUser} }

// Roles admits callers whose role is in the set. An empty set admits any
// authenticated caller.
func Roles(roles ...Role) Requirement {
	return Requirement{kind: kindRoles, roles: newRoleSet(roles)}
}

// OwnerOrRoles admits any authenticated caller at the gate; the handler must
// then call Access.AuthorizeOwner with the owner id of the fetched resource.
// Callers holding one of roles bypass the ownership comparison.
func OwnerOrRoles(roles ...Role) Requirement {
	return Requirement{kind: kindOwnerOrRoles, roles: newRoleSet(roles)}
}

func (r Requirement) IsPublic() bool { return r.kind == kindPublic }

// Evaluate applies the route stage of the policy. identity is nil when the
// caller did not present a valid token.
func (r Requirement) Evaluate(identity *Identity) Decision {
	if r.kind == kindPublic {
		return Allow
	}
	if identity == nil {
		return DenyUnauthenticated
	}
	if r.kind == kindRoles && len(r.roles) > 0 && !r.roles.contains(identity.Role()) {
		return DenyForbidden
	}
	return Allow
}

// Access is the authorization context of an admitted request.
type Access struct {
	Identity    *Identity
	Requirement Requirement

	// observe is set by the gate so ownership denials are audited like
	// route denials.
	observe func(Decision)
}

// NewAccess binds an identity to the requirement that admitted it.
func NewAccess(identity *Identity, requirement Requirement) *Access {
	return &Access{Identity: identity, Requirement: requirement}
}

// SubjectID returns the caller's subject id, or 0 when anonymous.
func (a *Access) SubjectID() int64 {
	if a == nil || a.Identity == nil {
		return 0
	}
	return a.Identity.SubjectID()
}

// AuthorizeOwner applies the post-fetch ownership stage: callers holding an
// elevated role are allowed, everyone else must own the resource.
func (a *Access) AuthorizeOwner(ownerID int64) Decision {
	if a == nil || a.Identity == nil {
		return DenyUnauthenticated
	}
	if a.Requirement.roles.contains(a.Identity.Role()) {
		return Allow
	}
	if ownerID > 0 && ownerID == a.Identity.SubjectID() {
		return Allow
	}
	return DenyForbidden
}

// RequireOwner runs AuthorizeOwner and returns the matching client error.
func (a *Access) RequireOwner(ownerID int64) error {
	decision := a.AuthorizeOwner(ownerID)
	if decision != Allow && a != nil && a.observe != nil {
		a.observe(decision)
	}
	return decision.Err()
}
