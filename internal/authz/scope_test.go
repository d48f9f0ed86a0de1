package authz

import (
	"math/rand"
	"testing"

	"github.com/evalforge/assessment-platform/internal/models"
)

func TestListParamsNormalize(t *testing.T) {
	sortable := map[string]bool{"created_at": true, "title": true}

	tests := []struct {
		name string
		in   ListParams
		want ListParams
	}{
		{
			name: "defaults",
			in:   ListParams{},
			want: ListParams{Page: 1, Limit: 20, SortBy: "created_at", SortOrder: "desc"},
		},
		{
			name: "limit clamped to max",
			in:   ListParams{Page: 2, Limit: 500},
			want: ListParams{Page: 2, Limit: 100, SortBy: "created_at", SortOrder: "desc"},
		},
		{
			name: "negative page reset",
			in:   ListParams{Page: -3, Limit: 5},
			want: ListParams{Page: 1, Limit: 5, SortBy: "created_at", SortOrder: "desc"},
		},
		{
			name: "unrecognized sort key falls back",
			in:   ListParams{Page: 1, Limit: 10, SortBy: "password_hash", SortOrder: "asc"},
			want: ListParams{Page: 1, Limit: 10, SortBy: "created_at", SortOrder: "asc"},
		},
		{
			name: "recognized sort key kept",
			in:   ListParams{Page: 1, Limit: 10, SortBy: "title", SortOrder: "asc"},
			want: ListParams{Page: 1, Limit: 10, SortBy: "title", SortOrder: "asc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize(20, sortable)
			if got.Page != tt.want.Page || got.Limit != tt.want.Limit ||
				got.SortBy != tt.want.SortBy || got.SortOrder != tt.want.SortOrder {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestListParamsOffset(t *testing.T) {
	p := ListParams{Page: 3, Limit: 20}
	if got := p.Offset(); got != 40 {
		t.Errorf("Offset() = %d, want 40", got)
	}
}

// Fuzz the scoping guarantee: whatever the combination of principal and row,
// VisibleTo must agree with the read decision of the access policy. A
// non-privileged principal can never see a foreign private row.
func TestVisibleTo_MatchesPolicy(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	roles := []models.UserRole{models.RoleCandidate, models.RoleUser, models.RoleCompany, models.RoleAdmin, models.RoleSuperAdmin}
	tenants := []string{"tenant-a", "tenant-b", "tenant-c"}
	visibilities := []models.Visibility{models.VisibilityPublic, models.VisibilityPrivate}

	for i := 0; i < 5000; i++ {
		p := models.Principal{
			ID:   tenants[rng.Intn(len(tenants))],
			Role: roles[rng.Intn(len(roles))],
		}
		if rng.Intn(2) == 0 {
			p.TenantID = tenants[rng.Intn(len(tenants))]
		}
		rowTenant := tenants[rng.Intn(len(tenants))]
		rowVis := visibilities[rng.Intn(len(visibilities))]

		got := VisibleTo(p, rowVis, rowTenant)
		want := CanRead(p, Resource{TenantID: rowTenant, Visibility: rowVis})
		if got != want {
			t.Fatalf("VisibleTo=%v disagrees with CanRead=%v for principal=%+v tenant=%s vis=%s",
				got, want, p, rowTenant, rowVis)
		}
		if !p.IsSuperAdmin() && rowVis == models.VisibilityPrivate && rowTenant != p.Tenant() && got {
			t.Fatalf("foreign private row visible to %+v", p)
		}
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`50%_a\b`); got != `50\%\_a\\b` {
		t.Errorf("escapeLike() = %q", got)
	}
}
