package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/Victorkib/mentacare-backend-admin/internal/domain"
)

// Filterable therapist columns.
var TherapistFields = []string{"specialization", "verified", "profile_complete", "created_at"}

type TherapistStore struct {
	Table[domain.Therapist]
}

func NewTherapistStore(db bun.IDB) *TherapistStore {
	return &TherapistStore{Table: newTable(db, "therapist", func(t domain.Therapist) uuid.UUID { return t.ID })}
}

// Projections loads the display subset for ids, keyed by id.
func (s *TherapistStore) Projections(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.TherapistProjection, error) {
	out := make(map[uuid.UUID]domain.TherapistProjection, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []domain.TherapistProjection
	err := s.db.NewSelect().
		Model((*domain.Therapist)(nil)).
		Column("id", "full_name", "email", "specialization").
		Where("? IN (?)", bun.Ident("id"), bun.In(ids)).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("store: therapist projections: %w", err)
	}
	for _, r := range rows {
		out[r.ID] = r
	}
	return out, nil
}

// Specializations returns the distinct non-empty specializations, sorted.
func (s *TherapistStore) Specializations(ctx context.Context) ([]string, error) {
	var out []string
	err := s.db.NewSelect().
		Model((*domain.Therapist)(nil)).
		Distinct().
		Column("specialization").
		Where("? <> ''", bun.Ident("specialization")).
		Order("specialization").
		Scan(ctx, &out)
	if err != nil {
		return nil, fmt.Errorf("store: specializations: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// TherapistCounts is the aggregate behind the therapist summary.
type TherapistCounts struct {
	Total           int `bun:"total" json:"total"`
	Verified        int `bun:"verified" json:"verified"`
	ProfileComplete int `bun:"profile_complete" json:"profileComplete"`
}

// Counts aggregates totals over all therapists.
func (s *TherapistStore) Counts(ctx context.Context) (TherapistCounts, error) {
	var c TherapistCounts
	err := s.db.NewSelect().
		Model((*domain.Therapist)(nil)).
		ColumnExpr("count(*) AS total").
		ColumnExpr("coalesce(sum(CASE WHEN ? THEN 1 ELSE 0 END), 0) AS verified", bun.Ident("verified")).
		ColumnExpr("coalesce(sum(CASE WHEN ? THEN 1 ELSE 0 END), 0) AS profile_complete", bun.Ident("profile_complete")).
		Scan(ctx, &c)
	if err != nil {
		return c, fmt.Errorf("store: therapist counts: %w", err)
	}
	return c, nil
}

// BySpecialization counts therapists per specialization. Blank
// specializations are reported under "unspecified".
func (s *TherapistStore) BySpecialization(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Specialization string `bun:"specialization"`
		N              int    `bun:"n"`
	}
	err := s.db.NewSelect().
		Model((*domain.Therapist)(nil)).
		Column("specialization").
		ColumnExpr("count(*) AS n").
		Group("specialization").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("store: therapists by specialization: %w", err)
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		name := r.Specialization
		if name == "" {
			name = "unspecified"
		}
		out[name] += r.N
	}
	return out, nil
}

// AllIDs lists every therapist id.
func (s *TherapistStore) AllIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.NewSelect().Model((*domain.Therapist)(nil)).Column("id").Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("store: therapist ids: %w", err)
	}
	return ids, nil
}

// Exists reports whether a therapist with id is stored.
func (s *TherapistStore) Exists(ctx context.Context, idb bun.IDB, id uuid.UUID) (bool, error) {
	ok, err := s.conn(idb).NewSelect().
		Model((*domain.Therapist)(nil)).
		Where("? = ?", bun.Ident("id"), id).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("store: therapist exists: %w", err)
	}
	return ok, nil
}
