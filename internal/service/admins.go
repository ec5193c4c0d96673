package service

import (
	"context"
	"sort"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/Victorkib/mentacare-backend-admin/cache"
	"github.com/Victorkib/mentacare-backend-admin/internal/auth"
	"github.com/Victorkib/mentacare-backend-admin/internal/domain"
	"github.com/Victorkib/mentacare-backend-admin/internal/store"
)

type AdminListParams struct {
	Role    string
	Active  *bool
	Keyword string
}

// AdminService manages back-office accounts through the (cached) admin
// repository.
type AdminService struct {
	base
	repo   repository.Repository[*domain.Admin]
	hasher *auth.Hasher
}

func NewAdminService(d Deps, repo repository.Repository[*domain.Admin], hasher *auth.Hasher) *AdminService {
	return &AdminService{base: newBase(d, "admins"), repo: repo, hasher: hasher}
}

func adminErr(err error, id any) error {
	if err == nil {
		return nil
	}
	if domain.IsNotFound(err) {
		return domain.NotFound("admin", id)
	}
	return err
}

// Create registers a new admin. Only super admins reach this operation.
func (s *AdminService) Create(ctx context.Context, in AdminInput) (*domain.Admin, error) {
	if err := in.Validate(); err != nil {
		return nil, domain.FromValidation(err)
	}
	email := normalizeEmail(in.Email)

	existing, err := s.repo.GetByIdentifierTx(ctx, s.db, email)
	if err == nil && existing != nil {
		return nil, domain.Conflict("an admin with this email already exists", map[string]any{"email": email})
	}
	if err != nil && !domain.IsNotFound(err) {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, domain.Internal(err, "hash password")
	}
	therapistID, _ := parseOptionalID(in.TherapistID)

	now := s.now()
	admin := &domain.Admin{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(in.FullName),
		Role:         in.Role,
		TherapistID:  therapistID,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	created, err := s.repo.Create(ctx, admin)
	if err != nil {
		return nil, err
	}
	s.log.Info("admin created", "id", created.ID, "role", created.Role)
	return created, nil
}

// List returns every admin matching p, newest first. The unfiltered set is
// cached in the admins region; filtering happens in memory.
func (s *AdminService) List(ctx context.Context, p AdminListParams) ([]*domain.Admin, error) {
	all, err := cache.Remember(ctx, s.cache, cache.Key(cache.RegionAdmins, "all"), cache.ListTTL, func(ctx context.Context) ([]*domain.Admin, error) {
		records, _, err := s.repo.ListTx(ctx, s.db, store.NewestAdminsFirst(), store.AllAdmins())
		return records, err
	})
	if err != nil {
		return nil, err
	}
	role := domain.Role(strings.TrimSpace(p.Role))
	if p.Role != "" && !strings.EqualFold(p.Role, "all") && !role.Valid() {
		return nil, domain.InvalidField("role", "must be one of super_admin, admin, professional, therapist")
	}
	term := strings.ToLower(strings.TrimSpace(p.Keyword))

	out := make([]*domain.Admin, 0, len(all))
	for _, a := range all {
		if role.Valid() && a.Role != role {
			continue
		}
		if p.Active != nil && a.Active != *p.Active {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(a.FullName), term) && !strings.Contains(a.Email, term) {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	return out, nil
}

func (s *AdminService) Get(ctx context.Context, id uuid.UUID) (*domain.Admin, error) {
	a, err := s.repo.GetByID(ctx, id.String())
	return a, adminErr(err, id)
}

// Update changes an admin. Granting or revoking super_admin, and changing a
// super admin's password or active flag, need a super admin caller. The last
// active super admin can be neither demoted nor deactivated.
func (s *AdminService) Update(ctx context.Context, who auth.Identity, id uuid.UUID, in AdminUpdate) (*domain.Admin, error) {
	if err := in.Validate(); err != nil {
		return nil, domain.FromValidation(err)
	}
	var hash string
	if in.Password != nil {
		h, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, domain.Internal(err, "hash password")
		}
		hash = h
	}

	var out *domain.Admin
	err := s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		a, err := s.repo.GetByIDTx(ctx, tx, id.String())
		if err != nil {
			return adminErr(err, id)
		}

		wasSuper := a.Role == domain.RoleSuperAdmin && a.Active
		if in.Role != nil && *in.Role != a.Role &&
			(*in.Role == domain.RoleSuperAdmin || a.Role == domain.RoleSuperAdmin) &&
			who.Role != domain.RoleSuperAdmin {
			return domain.Forbidden("only a super admin can grant or revoke super_admin")
		}
		if a.Role == domain.RoleSuperAdmin && who.Role != domain.RoleSuperAdmin &&
			(in.Password != nil || in.Active != nil) {
			return domain.Forbidden("only a super admin can change a super admin's password or status")
		}

		if in.FullName != nil {
			a.FullName = strings.TrimSpace(*in.FullName)
		}
		if in.Role != nil {
			a.Role = *in.Role
		}
		if in.Active != nil {
			a.Active = *in.Active
		}
		if in.TherapistID != nil {
			a.TherapistID, _ = parseOptionalID(*in.TherapistID)
		}
		if hash != "" {
			a.PasswordHash = hash
		}

		if wasSuper && (a.Role != domain.RoleSuperAdmin || !a.Active) {
			if err := s.guardLastSuper(ctx, tx); err != nil {
				return err
			}
		}

		a.UpdatedAt = s.now()
		if err := store.SaveAdmin(ctx, tx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(cache.RegionAdmins)
	s.log.Info("admin updated", "id", id, "by", who.AdminID)
	return out, nil
}

// Delete removes an admin. Callers cannot delete themselves and the last
// active super admin stays.
func (s *AdminService) Delete(ctx context.Context, who auth.Identity, id uuid.UUID) error {
	if who.AdminID == id {
		return domain.Conflict("you cannot delete your own account", nil)
	}
	err := s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		a, err := s.repo.GetByIDTx(ctx, tx, id.String())
		if err != nil {
			return adminErr(err, id)
		}
		if a.Role == domain.RoleSuperAdmin && a.Active {
			if err := s.guardLastSuper(ctx, tx); err != nil {
				return err
			}
		}
		return s.repo.DeleteTx(ctx, tx, a)
	})
	if err != nil {
		return err
	}
	s.invalidate(cache.RegionAdmins)
	s.log.Info("admin deleted", "id", id, "by", who.AdminID)
	return nil
}

func (s *AdminService) guardLastSuper(ctx context.Context, tx bun.IDB) error {
	n, err := store.CountActiveSuperAdmins(ctx, tx)
	if err != nil {
		return err
	}
	if n <= 1 {
		return domain.Conflict("the last active super admin cannot be removed", map[string]any{"activeSuperAdmins": n})
	}
	return nil
}

// TherapistScope limits therapist-role callers to the therapist record linked
// to their account. Other roles are unrestricted.
func (s *AdminService) TherapistScope(ctx context.Context, who auth.Identity) (*uuid.UUID, error) {
	if who.Role != domain.RoleTherapist {
		return nil, nil
	}
	a, err := s.repo.GetByID(ctx, who.AdminID.String())
	if err != nil {
		return nil, adminErr(err, who.AdminID)
	}
	if a.TherapistID == nil {
		return nil, domain.Forbidden("account is not linked to a therapist")
	}
	id := *a.TherapistID
	return &id, nil
}
