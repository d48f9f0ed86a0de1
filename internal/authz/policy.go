// Package authz holds the role-scoped access-control and query-scoping core
// shared by every resource handler. Decisions are pure functions; callers
// translate a deny into a forbidden response.
package authz

import (
	"github.com/evalforge/assessment-platform/internal/models"
)

type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionDelete Action = "delete"
)

// Resource describes the ownership and visibility of anything a principal
// can act on. It applies uniformly to questions, tests, billing records and
// companies.
type Resource struct {
	OwnerID    string
	TenantID   string
	Visibility models.Visibility
}

// CanAccess decides ALLOW/DENY for a principal acting on a resource.
//
// Rules, in order:
//  1. super_admin: always allow.
//  2. read of a public resource: allow regardless of principal.
//  3. otherwise the resource must belong to the principal's tenant.
//
// Write and delete are tenant-gated even for public resources: only the
// owning tenant or a super_admin may mutate.
func CanAccess(p models.Principal, r Resource, action Action) bool {
	if p.IsSuperAdmin() {
		return true
	}
	if action == ActionRead && r.Visibility == models.VisibilityPublic {
		return true
	}
	return r.TenantID != "" && r.TenantID == p.Tenant()
}

// CanRead is shorthand for CanAccess with ActionRead.
func CanRead(p models.Principal, r Resource) bool {
	return CanAccess(p, r, ActionRead)
}

// CanWrite is shorthand for CanAccess with ActionWrite.
func CanWrite(p models.Principal, r Resource) bool {
	return CanAccess(p, r, ActionWrite)
}
