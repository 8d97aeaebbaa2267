package authz_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gigmarket/portal-core/internal/authz"
)

func TestPermitted_SupportRole(t *testing.T) {
	assert.True(t, authz.Permitted(authz.RoleSupport, authz.ResourceSupportTickets, authz.ActionCreate))
	assert.True(t, authz.Permitted(authz.RoleSupport, authz.ResourceOrders, authz.ActionEdit))
	assert.False(t, authz.Permitted(authz.RoleSupport, authz.ResourceMarketing, authz.ActionView))
	assert.False(t, authz.Permitted(authz.RoleSupport, authz.ResourceSettings, authz.ActionView))
}

func TestPermitted_OwnerHasFullEventAccess(t *testing.T) {
	for _, action := range authz.Actions() {
		assert.True(t, authz.Permitted(authz.RoleOwner, authz.ResourceEvents, action), "owner should have %s on events", action)
	}
}

func TestPermitted_DenyByDefault(t *testing.T) {
	// Unknown roles and resources allow nothing.
	assert.False(t, authz.Permitted(authz.Role("ghost"), authz.ResourceEvents, authz.ActionView))
	assert.False(t, authz.Permitted(authz.RoleOwner, authz.Resource("payments"), authz.ActionView))
	assert.False(t, authz.Permitted(authz.RoleOwner, authz.ResourceEvents, authz.Action("export")))
}

func TestPermitted_NoLeakViaOmission(t *testing.T) {
	// Roles whose row lists no actions for a resource get nothing on it.
	for _, action := range authz.Actions() {
		assert.False(t, authz.Permitted(authz.RoleSupport, authz.ResourceMarketing, action))
		assert.False(t, authz.Permitted(authz.RoleAnalyst, authz.ResourceSettings, action))
	}

	// Analysts are read-only across the board.
	for _, resource := range authz.Resources() {
		assert.False(t, authz.Permitted(authz.RoleAnalyst, resource, authz.ActionCreate))
		assert.False(t, authz.Permitted(authz.RoleAnalyst, resource, authz.ActionEdit))
		assert.False(t, authz.Permitted(authz.RoleAnalyst, resource, authz.ActionDelete))
	}
}

func TestCanAccess_IsViewSugar(t *testing.T) {
	for _, role := range authz.Roles() {
		for _, resource := range authz.Resources() {
			assert.Equal(t,
				authz.Permitted(role, resource, authz.ActionView),
				authz.CanAccess(role, resource),
				"CanAccess(%s, %s)", role, resource)
		}
	}
}

func TestRoleValid(t *testing.T) {
	for _, role := range authz.Roles() {
		assert.True(t, role.Valid())
	}
	assert.False(t, authz.Role("superadmin").Valid())
	assert.False(t, authz.Role("").Valid())
}
