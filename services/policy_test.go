package services

import (
	"testing"

	"github.com/knowledgenexus/forum/models"
	"github.com/knowledgenexus/forum/utils"
)

func TestAuthorize(t *testing.T) {
	owner := &Actor{ID: "owner", Role: models.RoleRegular}
	other := &Actor{ID: "other", Role: models.RoleRegular}
	admin := &Actor{ID: "admin", Role: models.RoleAdmin}

	cases := []struct {
		name   string
		actor  *Actor
		action Action
		kind   utils.ErrorKind
	}{
		{name: "anonymous read", actor: nil, action: ActionRead},
		{name: "other read", actor: other, action: ActionRead},
		{name: "owner update", actor: owner, action: ActionUpdate},
		{name: "owner delete", actor: owner, action: ActionDelete},
		{name: "admin update", actor: admin, action: ActionUpdate},
		{name: "admin delete", actor: admin, action: ActionDelete},
		{name: "other update", actor: other, action: ActionUpdate, kind: utils.KindForbidden},
		{name: "other delete", actor: other, action: ActionDelete, kind: utils.KindForbidden},
		{name: "anonymous delete", actor: nil, action: ActionDelete, kind: utils.KindUnauthenticated},
		{name: "empty actor update", actor: &Actor{}, action: ActionUpdate, kind: utils.KindUnauthenticated},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Authorize(tc.actor, "owner", tc.action)
			if tc.kind == utils.KindInternal {
				if err != nil {
					t.Fatalf("expected allow, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected %s, got allow", tc.kind)
			}
			if got := utils.KindOf(err); got != tc.kind {
				t.Fatalf("expected %s, got %s", tc.kind, got)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	if err := RequireAdmin(&Actor{ID: "a", Role: models.RoleAdmin}); err != nil {
		t.Fatalf("admin rejected: %v", err)
	}
	if got := utils.KindOf(RequireAdmin(&Actor{ID: "u", Role: models.RoleRegular})); got != utils.KindForbidden {
		t.Fatalf("regular user: got %s", got)
	}
	if got := utils.KindOf(RequireAdmin(nil)); got != utils.KindUnauthenticated {
		t.Fatalf("nil actor: got %s", got)
	}
}
