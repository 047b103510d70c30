package service

import (
	"github.com/ravirajbabasomane202/PCMCApp/internal/models"
	appErrors "github.com/ravirajbabasomane202/PCMCApp/pkg/errors"
)

// Actor identifies the caller of a workflow operation.
type Actor struct {
	ID           string
	Role         models.UserRole
	DepartmentID string
}

// SystemActor performs automated transitions such as SLA auto-closure.
var SystemActor = Actor{ID: models.SystemActorID}

// ActorFromUser builds an Actor from a stored user.
func ActorFromUser(u *models.User) Actor {
	if u == nil {
		return Actor{}
	}
	actor := Actor{ID: u.ID, Role: u.Role}
	if u.DepartmentID != nil {
		actor.DepartmentID = *u.DepartmentID
	}
	return actor
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// Requirement describes who may perform an action. Roles gates first. When
// any relation predicate is set the actor must satisfy at least one of them
// against Grievance, unless AdminBypass is set and the actor is an admin.
type Requirement struct {
	Roles          []models.UserRole
	MustOwn        bool
	MustBeAssignee bool
	MustTriageArea bool
	AdminBypass    bool
	Grievance      *models.Grievance
}

// Authorize permits or denies actor against req without performing I/O.
func Authorize(actor Actor, req Requirement) error {
	if actor.ID == "" {
		return appErrors.Clone(appErrors.ErrForbidden, "actor is not identified")
	}
	if len(req.Roles) > 0 && !hasRole(actor.Role, req.Roles) {
		return appErrors.Clone(appErrors.ErrForbidden, "role not permitted for this action")
	}
	if !req.MustOwn && !req.MustBeAssignee && !req.MustTriageArea {
		return nil
	}
	if req.AdminBypass && actor.IsAdmin() {
		return nil
	}
	g := req.Grievance
	if g == nil {
		return appErrors.Clone(appErrors.ErrForbidden, "grievance context required")
	}
	if req.MustOwn && g.IsOwnedBy(actor.ID) {
		return nil
	}
	if req.MustBeAssignee && g.IsAssignedTo(actor.ID) {
		return nil
	}
	if req.MustTriageArea && actor.Role == models.RoleMemberHead && actor.DepartmentID != "" && actor.DepartmentID == g.AreaID {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "not permitted to act on this grievance")
}

func hasRole(role models.UserRole, allowed []models.UserRole) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
