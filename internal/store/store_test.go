package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/Victorkib/mentacare-backend-admin/internal/domain"
	"github.com/Victorkib/mentacare-backend-admin/internal/paginate"
	"github.com/Victorkib/mentacare-backend-admin/internal/query"
	"github.com/Victorkib/mentacare-backend-admin/pkg/testsupport"
)

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func openDB(t *testing.T) *bun.DB {
	t.Helper()
	db := testsupport.OpenDB(t)
	if err := CreateSchema(context.Background(), db); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

func seedPatients(t *testing.T, s *PatientStore, n int, sameTime bool) []domain.Patient {
	t.Helper()
	out := make([]domain.Patient, 0, n)
	for i := 0; i < n; i++ {
		created := base.Add(time.Duration(i) * time.Minute)
		if sameTime {
			created = base
		}
		p := domain.Patient{
			ID:        uuid.New(),
			FullName:  fmt.Sprintf("Patient %02d", i),
			Email:     fmt.Sprintf("p%02d@example.com", i),
			CreatedAt: created,
			UpdatedAt: created,
		}
		if err := s.Insert(context.Background(), nil, &p); err != nil {
			t.Fatalf("insert patient: %v", err)
		}
		out = append(out, p)
	}
	return out
}

func seedTherapist(t *testing.T, s *TherapistStore, name, specialization string) domain.Therapist {
	t.Helper()
	th := domain.Therapist{
		ID:             uuid.New(),
		FullName:       name,
		Email:          name + "@clinic.example",
		Specialization: specialization,
		CreatedAt:      base,
		UpdatedAt:      base,
	}
	if err := s.Insert(context.Background(), nil, &th); err != nil {
		t.Fatalf("insert therapist: %v", err)
	}
	return th
}

func TestPatientStore_CursorWalk(t *testing.T) {
	for _, sameTime := range []bool{false, true} {
		t.Run(fmt.Sprintf("sameTime=%v", sameTime), func(t *testing.T) {
			ctx := context.Background()
			s := NewPatientStore(openDB(t))
			seeded := seedPatients(t, s, 11, sameTime)

			first, err := paginate.Fetch[domain.Patient](ctx, s, nil, paginate.NewestFirst, 10, "")
			if err != nil {
				t.Fatalf("first page: %v", err)
			}
			if len(first.Items) != 10 || !first.HasMore {
				t.Fatalf("expected 10 items with more, got %d hasMore=%v", len(first.Items), first.HasMore)
			}

			second, err := paginate.Fetch[domain.Patient](ctx, s, nil, paginate.NewestFirst, 10, first.Cursor)
			if err != nil {
				t.Fatalf("second page: %v", err)
			}
			if len(second.Items) != 1 || second.HasMore {
				t.Fatalf("expected 1 item without more, got %d hasMore=%v", len(second.Items), second.HasMore)
			}

			seen := map[uuid.UUID]int{}
			for _, p := range append(first.Items, second.Items...) {
				seen[p.ID]++
			}
			for _, p := range seeded {
				if seen[p.ID] != 1 {
					t.Errorf("patient %s seen %d times", p.FullName, seen[p.ID])
				}
			}
			if !sameTime && first.Items[0].ID != seeded[10].ID {
				t.Errorf("expected newest patient first, got %s", first.Items[0].FullName)
			}
		})
	}
}

func TestPatientStore_UnknownCursorRestarts(t *testing.T) {
	ctx := context.Background()
	s := NewPatientStore(openDB(t))
	seedPatients(t, s, 3, false)

	page, err := paginate.Fetch[domain.Patient](ctx, s, nil, paginate.NewestFirst, 10, uuid.NewString())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(page.Items) != 3 {
		t.Errorf("expected restart from the top, got %d items", len(page.Items))
	}

	page, err = paginate.Fetch[domain.Patient](ctx, s, nil, paginate.NewestFirst, 10, "not-an-id")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(page.Items) != 3 {
		t.Errorf("expected restart for unparsable cursor, got %d items", len(page.Items))
	}
}

func TestPatientStore_SpecPushdown(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	patients := NewPatientStore(db)
	therapists := NewTherapistStore(db)

	seeded := seedPatients(t, patients, 4, false)
	th := seedTherapist(t, therapists, "ada", "CBT")
	if _, err := patients.Assign(ctx, nil, []uuid.UUID{seeded[0].ID, seeded[2].ID}, &th, base); err != nil {
		t.Fatalf("assign: %v", err)
	}

	spec := query.NewSpec(PatientFields...).Equals("assigned_therapist_id", th.ID)
	n, err := patients.Count(ctx, spec)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 assigned patients, got %d", n)
	}

	bad := query.NewSpec(PatientFields...).Equals("password", "x")
	if _, err := patients.Count(ctx, bad); err == nil {
		t.Error("expected non-whitelisted field to be rejected")
	}
}

func TestPatientStore_AssignAndClear(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	patients := NewPatientStore(db)
	therapists := NewTherapistStore(db)

	seeded := seedPatients(t, patients, 3, false)
	th := seedTherapist(t, therapists, "grace", "Trauma")

	n, err := patients.Assign(ctx, nil, []uuid.UUID{seeded[0].ID, seeded[1].ID}, &th, base)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 rows updated, got %d", n)
	}

	got, err := patients.Get(ctx, nil, seeded[0].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AssignedTherapistID == nil || *got.AssignedTherapistID != th.ID {
		t.Fatalf("expected assignment to %s, got %v", th.ID, got.AssignedTherapistID)
	}
	if got.TherapistSnapshot == nil || got.TherapistSnapshot.Specialization != "Trauma" {
		t.Errorf("expected snapshot to be written, got %+v", got.TherapistSnapshot)
	}

	ids, err := patients.IDsAssignedTo(ctx, nil, th.ID)
	if err != nil {
		t.Fatalf("ids assigned: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("expected 2 assigned ids, got %d", len(ids))
	}

	counts, err := patients.CountByTherapist(ctx, []uuid.UUID{th.ID, uuid.New()})
	if err != nil {
		t.Fatalf("count by therapist: %v", err)
	}
	if counts[th.ID] != 2 || len(counts) != 1 {
		t.Errorf("unexpected counts %v", counts)
	}

	cleared, err := patients.ClearAssignment(ctx, nil, th.ID, base)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if cleared != 2 {
		t.Errorf("expected 2 cleared, got %d", cleared)
	}
	got, err = patients.Get(ctx, nil, seeded[1].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AssignedTherapistID != nil || got.TherapistSnapshot != nil {
		t.Errorf("expected assignment cleared, got %v %+v", got.AssignedTherapistID, got.TherapistSnapshot)
	}
}

func TestPatientStore_ProjectionsAndCounts(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	patients := NewPatientStore(db)
	seeded := seedPatients(t, patients, 3, false)

	if err := patients.Patch(ctx, nil, seeded[0].ID, map[string]any{"isProfileComplete": true}, base); err != nil {
		t.Fatalf("patch: %v", err)
	}

	proj, err := patients.Projections(ctx, []uuid.UUID{seeded[0].ID, seeded[2].ID, uuid.New()})
	if err != nil {
		t.Fatalf("projections: %v", err)
	}
	if len(proj) != 2 || proj[seeded[2].ID].Email != seeded[2].Email {
		t.Errorf("unexpected projections %+v", proj)
	}

	c, err := patients.Counts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if c.Total != 3 || c.ProfileComplete != 1 || c.Assigned != 0 {
		t.Errorf("unexpected counts %+v", c)
	}
}

func TestTable_PatchTranslatesLegacyFields(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	therapists := NewTherapistStore(db)
	th := seedTherapist(t, therapists, "linus", "")

	later := base.Add(time.Hour)
	err := therapists.Patch(ctx, nil, th.ID, map[string]any{
		"name":              "Linus T",
		"specialty":         "Family",
		"yearsOfExperience": float64(7),
		"isVerified":        "true",
		"availability":      []map[string]string{{"day": "mon", "start": "09:00", "end": "12:00"}},
	}, later)
	if err != nil {
		t.Fatalf("patch: %v", err)
	}

	got, err := therapists.Get(ctx, nil, th.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.FullName != "Linus T" || got.Specialization != "Family" || got.ExperienceYears != 7 || !got.Verified {
		t.Errorf("patch not applied: %+v", got)
	}
	if len(got.Availability) != 1 || got.Availability[0].Start != "09:00" {
		t.Errorf("availability not applied: %+v", got.Availability)
	}
	if !got.UpdatedAt.Equal(later) {
		t.Errorf("expected updated_at %v, got %v", later, got.UpdatedAt)
	}

	if err := therapists.Patch(ctx, nil, th.ID, map[string]any{"id": uuid.NewString()}, later); !domain.IsValidation(err) {
		t.Errorf("expected validation error for id, got %v", err)
	}
	if err := therapists.Patch(ctx, nil, uuid.New(), map[string]any{"bio": "x"}, later); !domain.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
	if err := therapists.Patch(ctx, nil, th.ID, map[string]any{}, later); err == nil {
		t.Error("expected error for empty patch")
	}
}

func TestTranslateLegacyFields(t *testing.T) {
	tid := uuid.New()
	tests := []struct {
		name       string
		collection string
		in         map[string]any
		want       map[string]any
		wantErr    bool
	}{
		{
			name:       "patient aliases",
			collection: "patient",
			in:         map[string]any{"name": " Ann ", "therapistId": tid.String(), "dob": "1990-05-02"},
			want: map[string]any{
				"full_name":             "Ann",
				"assigned_therapist_id": tid,
				"date_of_birth":         time.Date(1990, 5, 2, 0, 0, 0, 0, time.UTC),
			},
		},
		{
			name:       "empty therapist id clears assignment",
			collection: "patient",
			in:         map[string]any{"assignedTherapist": ""},
			want:       map[string]any{"assigned_therapist_id": nil},
		},
		{
			name:       "current column names pass through",
			collection: "therapist",
			in:         map[string]any{"experience_years": "4", "verified": false},
			want:       map[string]any{"experience_years": 4, "verified": false},
		},
		{
			name:       "alias and column together",
			collection: "therapist",
			in:         map[string]any{"specialty": "a", "specialization": "b"},
			wantErr:    true,
		},
		{
			name:       "read only column",
			collection: "patient",
			in:         map[string]any{"created_at": "2020-01-01"},
			wantErr:    true,
		},
		{
			name:       "fractional integer",
			collection: "session",
			in:         map[string]any{"duration": 1.5},
			wantErr:    true,
		},
		{
			name:       "unknown collection",
			collection: "admin",
			in:         map[string]any{"role": "admin"},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TranslateLegacyFields(tt.collection, tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for k, want := range tt.want {
				v, ok := got[k]
				if !ok {
					t.Errorf("missing column %s", k)
					continue
				}
				if wt, isTime := want.(time.Time); isTime {
					if gt, _ := v.(time.Time); !gt.Equal(wt) {
						t.Errorf("%s: expected %v, got %v", k, want, v)
					}
					continue
				}
				if v != want {
					t.Errorf("%s: expected %v, got %v", k, want, v)
				}
			}
		})
	}
}

func TestTherapistStore_Aggregates(t *testing.T) {
	ctx := context.Background()
	s := NewTherapistStore(openDB(t))
	seedTherapist(t, s, "a", "CBT")
	seedTherapist(t, s, "b", "CBT")
	seedTherapist(t, s, "c", "Art")
	blank := seedTherapist(t, s, "d", "")

	specs, err := s.Specializations(ctx)
	if err != nil {
		t.Fatalf("specializations: %v", err)
	}
	if len(specs) != 2 || specs[0] != "Art" || specs[1] != "CBT" {
		t.Errorf("unexpected specializations %v", specs)
	}

	by, err := s.BySpecialization(ctx)
	if err != nil {
		t.Fatalf("by specialization: %v", err)
	}
	if by["CBT"] != 2 || by["Art"] != 1 || by["unspecified"] != 1 {
		t.Errorf("unexpected breakdown %v", by)
	}

	ok, err := s.Exists(ctx, nil, blank.ID)
	if err != nil || !ok {
		t.Errorf("expected therapist to exist, got %v %v", ok, err)
	}
	ok, err = s.Exists(ctx, nil, uuid.New())
	if err != nil || ok {
		t.Errorf("expected missing therapist, got %v %v", ok, err)
	}

	taken, err := s.EmailTaken(ctx, nil, "A@CLINIC.EXAMPLE", uuid.Nil)
	if err != nil || !taken {
		t.Errorf("expected case-insensitive email match, got %v %v", taken, err)
	}
}

func TestSessionStore_ListAndStatus(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore(openDB(t))
	patientID, therapistID := uuid.New(), uuid.New()

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		sess := domain.Session{
			ID:              uuid.New(),
			PatientID:       patientID,
			TherapistID:     therapistID,
			ScheduledAt:     base.Add(time.Duration(i) * 24 * time.Hour),
			DurationMinutes: 50,
			Status:          domain.SessionScheduled,
			CreatedAt:       base,
			UpdatedAt:       base,
		}
		if i == 4 {
			sess.TherapistID = uuid.New()
		}
		if err := s.Insert(ctx, nil, &sess); err != nil {
			t.Fatalf("insert session: %v", err)
		}
		ids = append(ids, sess.ID)
	}

	spec := query.NewSpec(SessionFields...).Equals("therapist_id", therapistID)
	items, total, err := s.List(ctx, spec, 0, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 4 || len(items) != 3 {
		t.Fatalf("expected 3 of 4, got %d of %d", len(items), total)
	}
	if items[0].ID != ids[3] {
		t.Errorf("expected latest scheduled session first")
	}

	if err := s.SetStatus(ctx, nil, ids[0], domain.SessionCancelled, base); err != nil {
		t.Fatalf("set status: %v", err)
	}
	got, err := s.Get(ctx, nil, ids[0])
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.SessionCancelled {
		t.Errorf("expected cancelled, got %s", got.Status)
	}

	if err := s.Delete(ctx, nil, ids[0]); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, nil, ids[0]); !domain.IsNotFound(err) {
		t.Errorf("expected not found on second delete, got %v", err)
	}
}

func TestCountActiveSuperAdmins(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)

	admins := []domain.Admin{
		{ID: uuid.New(), Email: "root@x", Role: domain.RoleSuperAdmin, Active: true},
		{ID: uuid.New(), Email: "old@x", Role: domain.RoleSuperAdmin, Active: false},
		{ID: uuid.New(), Email: "ops@x", Role: domain.RoleAdmin, Active: true},
	}
	for i := range admins {
		admins[i].CreatedAt, admins[i].UpdatedAt = base, base
		if _, err := db.NewInsert().Model(&admins[i]).Exec(ctx); err != nil {
			t.Fatalf("insert admin: %v", err)
		}
	}

	n, err := CountActiveSuperAdmins(ctx, db)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 active super admin, got %d", n)
	}
}

func TestAdminRepository_MissingRecordIsNotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewAdminRepository(openDB(t))

	_, err := repo.GetByIdentifier(ctx, "nobody@example.com")
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found for unknown email, got %v", err)
	}
	_, err = repo.GetByID(ctx, uuid.NewString())
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found for unknown id, got %v", err)
	}
}

func TestSaveAdmin_WritesZeroValues(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)

	therapist := uuid.New()
	a := &domain.Admin{
		ID: uuid.New(), Email: "t@x", PasswordHash: "h", FullName: "Tess",
		Role: domain.RoleTherapist, TherapistID: &therapist, Active: true,
		CreatedAt: base, UpdatedAt: base,
	}
	if _, err := db.NewInsert().Model(a).Exec(ctx); err != nil {
		t.Fatalf("insert admin: %v", err)
	}

	a.Active = false
	a.TherapistID = nil
	a.UpdatedAt = base.Add(time.Hour)
	if err := SaveAdmin(ctx, db, a); err != nil {
		t.Fatalf("save: %v", err)
	}

	got := new(domain.Admin)
	if err := db.NewSelect().Model(got).Where("? = ?", bun.Ident("id"), a.ID).Scan(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Active {
		t.Errorf("expected inactive admin after save")
	}
	if got.TherapistID != nil {
		t.Errorf("expected therapist link cleared, got %v", got.TherapistID)
	}

	missing := &domain.Admin{ID: uuid.New(), Email: "gone@x", UpdatedAt: base}
	if err := SaveAdmin(ctx, db, missing); err == nil {
		t.Errorf("expected an error saving a missing admin")
	}
}

func TestAdminRepository_ListAllAdmins(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	repo := NewAdminRepository(db)

	for i := 0; i < 30; i++ {
		a := &domain.Admin{
			ID: uuid.New(), Email: fmt.Sprintf("a%02d@x", i), PasswordHash: "h",
			FullName: fmt.Sprintf("Admin %02d", i), Role: domain.RoleAdmin, Active: true,
			CreatedAt: base.Add(time.Duration(i) * time.Minute), UpdatedAt: base,
		}
		if _, err := db.NewInsert().Model(a).Exec(ctx); err != nil {
			t.Fatalf("insert admin: %v", err)
		}
	}

	capped, _, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(capped) != 25 {
		t.Fatalf("expected the default page of 25, got %d", len(capped))
	}

	all, total, err := repo.List(ctx, NewestAdminsFirst(), AllAdmins())
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 30 || total != 30 {
		t.Fatalf("expected 30 admins, got %d (total %d)", len(all), total)
	}
	if all[0].Email != "a29@x" {
		t.Errorf("expected newest admin first, got %s", all[0].Email)
	}
}

func TestPatientStore_CountFlagged(t *testing.T) {
	ctx := context.Background()
	s := NewPatientStore(openDB(t))
	seeded := seedPatients(t, s, 3, false)

	p := seeded[1]
	p.Flags = []string{"risk"}
	if err := s.Update(ctx, nil, &p); err != nil {
		t.Fatalf("update: %v", err)
	}
	empty := seeded[2]
	empty.Flags = []string{}
	if err := s.Update(ctx, nil, &empty); err != nil {
		t.Fatalf("update: %v", err)
	}

	n, err := s.CountFlagged(ctx)
	if err != nil {
		t.Fatalf("count flagged: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 flagged patient, got %d", n)
	}
}
