package authz

import (
	_ "embed"
	"fmt"

	"sigs.k8s.io/yaml"
)

// Role is a portal role. The set is closed; roles are assigned out-of-band
// when an administrator is invited.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleManager Role = "manager"
	RoleSupport Role = "support"
	RoleAnalyst Role = "analyst"
)

// Resource is a portal resource class permissions are checked against.
type Resource string

const (
	ResourceEvents         Resource = "events"
	ResourceOrders         Resource = "orders"
	ResourceAttendees      Resource = "attendees"
	ResourceMarketing      Resource = "marketing"
	ResourceSupportTickets Resource = "support_tickets"
	ResourceReports        Resource = "reports"
	ResourceSettings       Resource = "settings"
)

// Action is an operation on a resource.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// Roles returns all declared roles.
func Roles() []Role {
	return []Role{RoleOwner, RoleManager, RoleSupport, RoleAnalyst}
}

// Resources returns all declared resources.
func Resources() []Resource {
	return []Resource{
		ResourceEvents, ResourceOrders, ResourceAttendees, ResourceMarketing,
		ResourceSupportTickets, ResourceReports, ResourceSettings,
	}
}

// Actions returns all declared actions.
func Actions() []Action {
	return []Action{ActionView, ActionCreate, ActionEdit, ActionDelete}
}

// Valid reports whether r is a declared role.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleManager, RoleSupport, RoleAnalyst:
		return true
	}
	return false
}

// Valid reports whether a is a declared action.
func (a Action) Valid() bool {
	switch a {
	case ActionView, ActionCreate, ActionEdit, ActionDelete:
		return true
	}
	return false
}

//go:embed matrix.yaml
var matrixYAML []byte

// matrix maps role -> resource -> allowed action set. Anything absent from it
// allows nothing.
var matrix map[Role]map[Resource]map[Action]bool

func init() {
	m, err := parseMatrix(matrixYAML)
	if err != nil {
		panic(fmt.Sprintf("authz: embedded permission matrix is invalid: %v", err))
	}
	matrix = m
}

func parseMatrix(raw []byte) (map[Role]map[Resource]map[Action]bool, error) {
	var doc map[string]map[string][]string
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing matrix document: %w", err)
	}

	m := make(map[Role]map[Resource]map[Action]bool, len(doc))
	for roleName, row := range doc {
		role := Role(roleName)
		if !role.Valid() {
			return nil, fmt.Errorf("unknown role %q", roleName)
		}
		m[role] = make(map[Resource]map[Action]bool, len(row))
		for resourceName, actions := range row {
			resource := Resource(resourceName)
			if !knownResource(resource) {
				return nil, fmt.Errorf("unknown resource %q in role %q", resourceName, roleName)
			}
			set := make(map[Action]bool, len(actions))
			for _, actionName := range actions {
				action := Action(actionName)
				if !action.Valid() {
					return nil, fmt.Errorf("unknown action %q for %s/%s", actionName, roleName, resourceName)
				}
				set[action] = true
			}
			m[role][resource] = set
		}
	}

	// The table must be exhaustive: a missing pair would silently deny and
	// hide an authoring mistake.
	for _, role := range Roles() {
		row, ok := m[role]
		if !ok {
			return nil, fmt.Errorf("role %q has no matrix row", role)
		}
		for _, resource := range Resources() {
			if _, ok := row[resource]; !ok {
				return nil, fmt.Errorf("role %q is missing resource %q", role, resource)
			}
		}
	}

	return m, nil
}

func knownResource(r Resource) bool {
	for _, known := range Resources() {
		if r == known {
			return true
		}
	}
	return false
}

// Permitted reports whether the role may perform the action on the resource.
// Unknown roles, resources or actions allow nothing.
func Permitted(role Role, resource Resource, action Action) bool {
	row, ok := matrix[role]
	if !ok {
		return false
	}
	set, ok := row[resource]
	if !ok {
		return false
	}
	return set[action]
}

// CanAccess reports whether the role may view the resource.
func CanAccess(role Role, resource Resource) bool {
	return Permitted(role, resource, ActionView)
}
