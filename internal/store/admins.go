package store

import (
	"context"
	"fmt"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/Victorkib/mentacare-backend-admin/internal/domain"
)

// AdminRepository is the generic repository over admin accounts.
type AdminRepository = repository.Repository[*domain.Admin]

// NewAdminRepository builds the bun-backed admin repository. Email is the
// natural identifier used by GetByIdentifier.
func NewAdminRepository(db *bun.DB) AdminRepository {
	return repository.NewRepository[*domain.Admin](db, repository.ModelHandlers[*domain.Admin]{
		NewRecord: func() *domain.Admin {
			return &domain.Admin{}
		},
		GetID: func(a *domain.Admin) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *domain.Admin, id uuid.UUID) {
			a.ID = id
		},
		GetIdentifier: func() string {
			return "email"
		},
	})
}

// AdminsWithRole selects admins holding role.
func AdminsWithRole(role domain.Role) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.role = ?", role)
	}
}

// ActiveAdmins selects admins that may still log in.
func ActiveAdmins() repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.active = ?", true)
	}
}

// NewestAdminsFirst orders admins by creation time.
func NewestAdminsFirst() repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.OrderExpr("?TableAlias.created_at DESC, ?TableAlias.id DESC")
	}
}

// AllAdmins lifts the repository's default page size.
func AllAdmins() repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Limit(0).Offset(0)
	}
}

// adminColumns are the mutable admin columns. They are written explicitly so
// false, empty and NULL values reach the row.
var adminColumns = []string{
	"password_hash",
	"full_name",
	"role",
	"therapist_id",
	"active",
	"last_login_at",
	"updated_at",
}

// SaveAdmin writes every mutable column of a on idb. The admins cache region
// must be invalidated by the caller once the write is committed.
func SaveAdmin(ctx context.Context, idb bun.IDB, a *domain.Admin) error {
	res, err := idb.NewUpdate().
		Model(a).
		Column(adminColumns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("store: save admin: %w", err)
	}
	return repository.SQLExpectedCount(res, 1)
}

// CountActiveSuperAdmins counts active super admins on idb, which is usually
// the transaction performing a role change or delete.
func CountActiveSuperAdmins(ctx context.Context, idb bun.IDB) (int, error) {
	n, err := idb.NewSelect().
		Model((*domain.Admin)(nil)).
		Where("? = ?", bun.Ident("role"), domain.RoleSuperAdmin).
		Where("? = ?", bun.Ident("active"), true).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("store: count super admins: %w", err)
	}
	return n, nil
}
