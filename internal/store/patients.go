package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/Victorkib/mentacare-backend-admin/internal/domain"
	"github.com/Victorkib/mentacare-backend-admin/internal/query"
)

// Filterable patient columns.
var PatientFields = []string{"profile_complete", "assigned_therapist_id", "gender", "status", "created_at"}

type PatientStore struct {
	Table[domain.Patient]
}

func NewPatientStore(db bun.IDB) *PatientStore {
	return &PatientStore{Table: newTable(db, "patient", func(p domain.Patient) uuid.UUID { return p.ID })}
}

// Projections loads the display subset for ids, keyed by id.
func (s *PatientStore) Projections(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.PatientProjection, error) {
	out := make(map[uuid.UUID]domain.PatientProjection, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []domain.PatientProjection
	err := s.db.NewSelect().
		Model((*domain.Patient)(nil)).
		Column("id", "full_name", "email").
		Where("? IN (?)", bun.Ident("id"), bun.In(ids)).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("store: patient projections: %w", err)
	}
	for _, r := range rows {
		out[r.ID] = r
	}
	return out, nil
}

// CountByTherapist returns how many patients reference each therapist id.
// Therapists without patients are absent from the map.
func (s *PatientStore) CountByTherapist(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	out := make(map[uuid.UUID]int, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []struct {
		TherapistID uuid.UUID `bun:"assigned_therapist_id"`
		N           int       `bun:"n"`
	}
	err := s.db.NewSelect().
		Model((*domain.Patient)(nil)).
		Column("assigned_therapist_id").
		ColumnExpr("count(*) AS n").
		Where("? IN (?)", bun.Ident("assigned_therapist_id"), bun.In(ids)).
		Group("assigned_therapist_id").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("store: count patients by therapist: %w", err)
	}
	for _, r := range rows {
		out[r.TherapistID] = r.N
	}
	return out, nil
}

// IDsAssignedTo lists the patients currently referencing therapistID.
func (s *PatientStore) IDsAssignedTo(ctx context.Context, idb bun.IDB, therapistID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.conn(idb).NewSelect().
		Model((*domain.Patient)(nil)).
		Column("id").
		Where("? = ?", bun.Ident("assigned_therapist_id"), therapistID).
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("store: patients of therapist: %w", err)
	}
	return ids, nil
}

// Assign points every patient in ids at therapist and refreshes their
// snapshot. A nil therapist clears the assignment and the snapshot.
func (s *PatientStore) Assign(ctx context.Context, idb bun.IDB, ids []uuid.UUID, therapist *domain.Therapist, now time.Time) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var (
		ref  any
		snap any
	)
	if therapist != nil {
		b, err := json.Marshal(therapist.Snapshot())
		if err != nil {
			return 0, fmt.Errorf("store: encode therapist snapshot: %w", err)
		}
		ref, snap = therapist.ID, string(b)
	}
	res, err := s.conn(idb).NewUpdate().
		Model((*domain.Patient)(nil)).
		Set("? = ?", bun.Ident("assigned_therapist_id"), ref).
		Set("? = ?", bun.Ident("therapist_snapshot"), snap).
		Set("? = ?", bun.Ident("updated_at"), now).
		Where("? IN (?)", bun.Ident("id"), bun.In(ids)).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("store: assign patients: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// ClearAssignment unassigns every patient currently pointing at therapistID.
func (s *PatientStore) ClearAssignment(ctx context.Context, idb bun.IDB, therapistID uuid.UUID, now time.Time) (int, error) {
	res, err := s.conn(idb).NewUpdate().
		Model((*domain.Patient)(nil)).
		Set("? = NULL", bun.Ident("assigned_therapist_id")).
		Set("? = NULL", bun.Ident("therapist_snapshot")).
		Set("? = ?", bun.Ident("updated_at"), now).
		Where("? = ?", bun.Ident("assigned_therapist_id"), therapistID).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("store: clear assignments: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// PatientCounts is the aggregate behind the patient summary.
type PatientCounts struct {
	Total           int `bun:"total" json:"total"`
	ProfileComplete int `bun:"profile_complete" json:"profileComplete"`
	Assigned        int `bun:"assigned" json:"assigned"`
}

// Counts aggregates totals over all patients.
func (s *PatientStore) Counts(ctx context.Context) (PatientCounts, error) {
	var c PatientCounts
	err := s.db.NewSelect().
		Model((*domain.Patient)(nil)).
		ColumnExpr("count(*) AS total").
		ColumnExpr("coalesce(sum(CASE WHEN ? THEN 1 ELSE 0 END), 0) AS profile_complete", bun.Ident("profile_complete")).
		ColumnExpr("count(?) AS assigned", bun.Ident("assigned_therapist_id")).
		Scan(ctx, &c)
	if err != nil {
		return c, fmt.Errorf("store: patient counts: %w", err)
	}
	return c, nil
}

// CountFlagged counts patients carrying at least one flag.
func (s *PatientStore) CountFlagged(ctx context.Context) (int, error) {
	n, err := s.db.NewSelect().
		Model((*domain.Patient)(nil)).
		Where("? IS NOT NULL", bun.Ident("flags")).
		Where("CAST(? AS TEXT) NOT IN ('[]', 'null')", bun.Ident("flags")).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("store: count flagged patients: %w", err)
	}
	return n, nil
}

// All loads every patient matching spec. Used by analytics and search, which
// aggregate client-side.
func (s *PatientStore) All(ctx context.Context, spec *query.Spec) ([]domain.Patient, error) {
	if err := spec.Err(); err != nil {
		return nil, err
	}
	var items []domain.Patient
	err := spec.Apply(s.db.NewSelect().Model(&items)).
		OrderExpr("? DESC, ? DESC", bun.Ident("created_at"), bun.Ident("id")).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: scan patients: %w", err)
	}
	return items, nil
}
