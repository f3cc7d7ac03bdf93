// Package services holds the forum's business rules: authorization, post and reply
// workflows and the cascading delete of posts.
package services

import (
	"github.com/knowledgenexus/forum/models"
	"github.com/knowledgenexus/forum/utils"
)

// Actor is the authenticated identity a request acts as.
type Actor struct {
	ID       string
	Username string
	Role     string
}

// IsAdmin reports whether the actor holds the admin role.
func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == models.RoleAdmin
}

// Action is an operation checked by Authorize.
type Action string

const (
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Authorize decides whether actor may perform action on a resource owned by ownerID.
// Reads are public; updates and deletes need the owner or an admin. Callers load the
// resource first so that a missing resource reports NotFound before any denial.
func Authorize(actor *Actor, ownerID string, action Action) error {
	if action == ActionRead {
		return nil
	}
	if actor == nil || actor.ID == "" {
		return utils.Unauthenticated(40100, "authentication required")
	}
	switch action {
	case ActionUpdate, ActionDelete:
		if actor.ID == ownerID || actor.IsAdmin() {
			return nil
		}
		return utils.Forbidden(40300, "not allowed to "+string(action)+" this resource")
	default:
		return utils.Forbidden(40300, "unknown action")
	}
}

// RequireAdmin allows only admins.
func RequireAdmin(actor *Actor) error {
	if actor == nil || actor.ID == "" {
		return utils.Unauthenticated(40100, "authentication required")
	}
	if !actor.IsAdmin() {
		return utils.Forbidden(40301, "admin only")
	}
	return nil
}
