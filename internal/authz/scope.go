package authz

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/evalforge/assessment-platform/internal/models"
)

const (
	MaxPageSize     = 100
	DefaultPageSize = 10
)

// ListParams are the caller-supplied filters every list endpoint accepts.
// ScopeFilter conjoins them with the tenant predicate so a list query can
// never leak another tenant's private rows.
type ListParams struct {
	Page      int
	Limit     int
	Search    string
	SortBy    string
	SortOrder string
}

// Normalize clamps pagination into [1, MaxPageSize] and fills sort defaults.
// defaultLimit is per-resource (questions use 20, everything else 10).
func (p ListParams) Normalize(defaultLimit int, sortable map[string]bool) ListParams {
	if defaultLimit < 1 {
		defaultLimit = DefaultPageSize
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultLimit
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.SortBy == "" || !sortable[p.SortBy] {
		p.SortBy = "created_at"
	}
	if p.SortOrder != "asc" && p.SortOrder != "desc" {
		p.SortOrder = "desc"
	}
	return p
}

// Offset returns the row offset for the normalized page/limit pair.
func (p ListParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// TenantScope returns a gorm scope restricting rows to
// (visibility = 'public' OR tenant_id = principal tenant). super_admin
// passes through unscoped.
func TenantScope(p models.Principal) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if p.IsSuperAdmin() {
			return db
		}
		return db.Where("visibility = ? OR tenant_id = ?", models.VisibilityPublic, p.Tenant())
	}
}

// TenantOnlyScope restricts rows to the principal's own tenant regardless of
// visibility. Used for resources that are never public (attempts, billing).
func TenantOnlyScope(p models.Principal) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if p.IsSuperAdmin() {
			return db
		}
		return db.Where("tenant_id = ?", p.Tenant())
	}
}

// SearchScope applies a case-insensitive substring match of the query
// against a fixed set of text columns. Columns are compile-time constants at
// every call site, never user input.
func SearchScope(query string, columns ...string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		query = strings.TrimSpace(query)
		if query == "" || len(columns) == 0 {
			return db
		}
		pattern := "%" + escapeLike(query) + "%"
		conds := make([]string, len(columns))
		args := make([]interface{}, len(columns))
		for i, col := range columns {
			conds[i] = fmt.Sprintf("%s ILIKE ?", col)
			args[i] = pattern
		}
		return db.Where(strings.Join(conds, " OR "), args...)
	}
}

// PageScope applies ordering and pagination from normalized params.
func PageScope(p ListParams) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		order := fmt.Sprintf("%s %s", p.SortBy, p.SortOrder)
		return db.Order(order).Limit(p.Limit).Offset(p.Offset())
	}
}

// VisibleTo is the in-memory equivalent of TenantScope, used to post-check
// rows and to fuzz the scoping guarantee in tests.
func VisibleTo(p models.Principal, visibility models.Visibility, tenantID string) bool {
	if p.IsSuperAdmin() {
		return true
	}
	return visibility == models.VisibilityPublic || tenantID == p.Tenant()
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
