package service

import (
	"context"
	"strings"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/Victorkib/mentacare-backend-admin/internal/auth"
	"github.com/Victorkib/mentacare-backend-admin/internal/domain"
)

var staff = auth.Identity{AdminID: uuid.New(), Email: "staff@example.com", Role: domain.RoleAdmin}

func (e *testEnv) createSession(t *testing.T, patient, therapist uuid.UUID, at time.Time) domain.Session {
	t.Helper()
	s, err := e.sessions.Create(context.Background(), SessionInput{
		PatientID:   patient.String(),
		TherapistID: therapist.String(),
		ScheduledAt: at.Format(time.RFC3339),
		Type:        "individual",
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return s
}

func TestSessionService_CreateChecksReferences(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	th := env.seedTherapists(t)[0]
	p := env.seedPatients(t)[0]

	s := env.createSession(t, p.ID, th.ID, testNow.Add(48*time.Hour))
	if s.Status != domain.SessionScheduled || s.DurationMinutes != defaultSessionMinutes {
		t.Errorf("session = %+v", s)
	}
	if s.Patient == nil || s.Patient.FullName != p.FullName || s.Therapist == nil || s.Therapist.ID != th.ID {
		t.Errorf("projections not joined: %+v %+v", s.Patient, s.Therapist)
	}

	_, err := env.sessions.Create(ctx, SessionInput{PatientID: uuid.NewString(), TherapistID: th.ID.String(), ScheduledAt: testNow.Format(time.RFC3339)})
	if !domain.IsNotFound(err) {
		t.Errorf("expected missing patient, got %v", err)
	}
	_, err = env.sessions.Create(ctx, SessionInput{PatientID: p.ID.String(), TherapistID: uuid.NewString(), ScheduledAt: testNow.Format(time.RFC3339)})
	if !domain.IsNotFound(err) {
		t.Errorf("expected missing therapist, got %v", err)
	}
	_, err = env.sessions.Create(ctx, SessionInput{PatientID: p.ID.String(), TherapistID: th.ID.String(), ScheduledAt: "tomorrow"})
	if !domain.IsValidation(err) {
		t.Errorf("expected bad time to be rejected, got %v", err)
	}
}

func TestSessionService_ListPagesAndFilters(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	therapists := env.seedTherapists(t)
	patients := env.seedPatients(t)

	for i := 0; i < 12; i++ {
		env.createSession(t, patients[i%3].ID, therapists[i%2].ID, testNow.Add(time.Duration(i)*time.Hour))
	}

	page, err := env.sessions.List(ctx, staff, SessionListParams{PageNumber: 2, PageSize: 5})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 12 || page.TotalPages != 3 || page.Page != 2 || len(page.Items) != 5 || !page.HasMore {
		t.Errorf("page = total %d pages %d page %d items %d more %v", page.Total, page.TotalPages, page.Page, len(page.Items), page.HasMore)
	}
	if page.Items[0].Patient == nil || page.Items[0].Therapist == nil {
		t.Error("expected projections on listed sessions")
	}
	if !page.Items[0].ScheduledAt.After(page.Items[1].ScheduledAt) {
		t.Error("expected most recently scheduled first")
	}

	page, err = env.sessions.List(ctx, staff, SessionListParams{TherapistID: &therapists[1].ID, PatientID: &patients[0].ID})
	if err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	for _, s := range page.Items {
		if s.TherapistID != therapists[1].ID || s.PatientID != patients[0].ID {
			t.Errorf("filter leaked session %+v", s)
		}
	}
	if page.Total != 2 {
		t.Errorf("filtered total = %d, want 2", page.Total)
	}

	page, err = env.sessions.List(ctx, staff, SessionListParams{Status: "SCHEDULED"})
	if err != nil || page.Total != 12 {
		t.Errorf("status filter total = %d, %v", page.Total, err)
	}
	if _, err := env.sessions.List(ctx, staff, SessionListParams{Status: "done"}); !domain.IsValidation(err) {
		t.Errorf("expected unknown status to be rejected, got %v", err)
	}
}

func TestSessionService_AttendanceAndStatus(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	th := env.seedTherapists(t)[0]
	p := env.seedPatients(t)[0]

	tests := []struct {
		name string
		in   AttendanceInput
		want domain.SessionStatus
	}{
		{"both attended", AttendanceInput{PatientAttended: true, TherapistAttended: true}, domain.SessionCompleted},
		{"patient absent", AttendanceInput{PatientAttended: false, TherapistAttended: true}, domain.SessionNoShow},
		{"therapist absent", AttendanceInput{PatientAttended: true, TherapistAttended: false}, domain.SessionScheduled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := env.createSession(t, p.ID, th.ID, testNow)
			got, err := env.sessions.MarkAttendance(ctx, staff, s.ID, tt.in)
			if err != nil {
				t.Fatalf("mark attendance: %v", err)
			}
			if got.Status != tt.want {
				t.Errorf("status = %s, want %s", got.Status, tt.want)
			}
			if got.Attendance == nil || got.Attendance.MarkedBy != staff.AdminID {
				t.Errorf("attendance = %+v", got.Attendance)
			}
		})
	}

	s := env.createSession(t, p.ID, th.ID, testNow)
	if _, err := env.sessions.UpdateStatus(ctx, staff, s.ID, "cancelled"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	_, err := env.sessions.MarkAttendance(ctx, staff, s.ID, AttendanceInput{PatientAttended: true, TherapistAttended: true})
	if !domain.IsConflict(err) {
		t.Errorf("expected cancelled session to refuse attendance, got %v", err)
	}
	if _, err := env.sessions.UpdateStatus(ctx, staff, s.ID, "scheduled"); !domain.IsConflict(err) {
		t.Errorf("expected terminal status to be final, got %v", err)
	}
	if _, err := env.sessions.UpdateStatus(ctx, staff, s.ID, "cancelled"); err != nil {
		t.Errorf("repeating the current status should pass, got %v", err)
	}
	if _, err := env.sessions.UpdateStatus(ctx, staff, s.ID, "paused"); !domain.IsValidation(err) {
		t.Errorf("expected unknown status to be rejected, got %v", err)
	}
}

func TestSessionService_NotesAndUpdate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	th := env.seedTherapists(t)[0]
	p := env.seedPatients(t)[0]
	s := env.createSession(t, p.ID, th.ID, testNow)

	notes := "Discussed sleep hygiene."
	got, err := env.sessions.NotesAndAttachments(ctx, staff, s.ID, NotesInput{
		Notes:       &notes,
		Attachments: []FileInput{{Name: "worksheet.pdf", URL: "https://files.example.com/worksheet.pdf"}},
	}, []Upload{{Name: "audio.txt", ContentType: "text/plain", Size: 3, Body: strings.NewReader("abc")}})
	if err != nil {
		t.Fatalf("notes: %v", err)
	}
	if got.Notes != notes || len(got.Attachments) != 2 {
		t.Errorf("notes = %q attachments = %d", got.Notes, len(got.Attachments))
	}
	if !strings.HasPrefix(got.Attachments[1].URL, "memory://sessions/"+s.ID.String()) {
		t.Errorf("upload url = %s", got.Attachments[1].URL)
	}

	if _, err := env.sessions.NotesAndAttachments(ctx, staff, s.ID, NotesInput{}, nil); !hasCategory(err, goerrors.CategoryBadInput) {
		t.Errorf("expected empty update to be rejected, got %v", err)
	}

	got, err = env.sessions.Update(ctx, staff, s.ID, map[string]any{"duration": float64(90), "sessionType": "online"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.DurationMinutes != 90 || got.Type != "online" {
		t.Errorf("update not applied: %+v", got)
	}
	if _, err := env.sessions.Update(ctx, staff, s.ID, map[string]any{"duration": float64(600)}); !domain.IsValidation(err) {
		t.Errorf("expected long duration to be rejected, got %v", err)
	}

	if err := env.sessions.Delete(ctx, s.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.sessions.Get(ctx, staff, s.ID); !domain.IsNotFound(err) {
		t.Errorf("expected deleted session to be gone, got %v", err)
	}
}

func TestSessionService_TherapistScope(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	therapists := env.seedTherapists(t)
	p := env.seedPatients(t)[0]

	own := env.createSession(t, p.ID, therapists[0].ID, testNow)
	foreign := env.createSession(t, p.ID, therapists[1].ID, testNow.Add(time.Hour))

	account, err := env.admins.Create(ctx, AdminInput{
		Email:       "njeri.admin@clinic.example",
		Password:    "correct horse battery",
		FullName:    "Njeri Mwangi",
		Role:        domain.RoleTherapist,
		TherapistID: therapists[0].ID.String(),
	})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	who := auth.Identity{AdminID: account.ID, Email: account.Email, Role: domain.RoleTherapist}

	page, err := env.sessions.List(ctx, who, SessionListParams{TherapistID: &therapists[1].ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 1 || page.Items[0].ID != own.ID {
		t.Errorf("therapist sees %d sessions", page.Total)
	}

	if _, err := env.sessions.Get(ctx, who, own.ID); err != nil {
		t.Errorf("own session: %v", err)
	}
	if _, err := env.sessions.Get(ctx, who, foreign.ID); !hasCategory(err, goerrors.CategoryAuthz) {
		t.Errorf("expected forbidden for another therapist's session, got %v", err)
	}
	if _, err := env.sessions.UpdateStatus(ctx, who, foreign.ID, "cancelled"); !hasCategory(err, goerrors.CategoryAuthz) {
		t.Errorf("expected forbidden status change, got %v", err)
	}

	unlinked, err := env.admins.Create(ctx, AdminInput{
		Email: "loose@clinic.example", Password: "correct horse battery", FullName: "Loose End", Role: domain.RoleTherapist,
	})
	if err != nil {
		t.Fatalf("create unlinked: %v", err)
	}
	_, err = env.sessions.List(ctx, auth.Identity{AdminID: unlinked.ID, Role: domain.RoleTherapist}, SessionListParams{})
	if !hasCategory(err, goerrors.CategoryAuthz) {
		t.Errorf("expected unlinked therapist account to be refused, got %v", err)
	}
}

func TestSessionService_ListFollowsPatientChanges(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	th := env.seedTherapists(t)[0]
	p := env.seedPatients(t)[0]
	s := env.createSession(t, p.ID, th.ID, testNow.Add(time.Hour))

	patientName := func() string {
		t.Helper()
		page, err := env.sessions.List(ctx, staff, SessionListParams{PatientID: &p.ID})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(page.Items) != 1 || page.Items[0].Patient == nil {
			t.Fatalf("items = %+v", page.Items)
		}
		return page.Items[0].Patient.FullName
	}
	if got := patientName(); got != p.FullName {
		t.Fatalf("patient name = %q, want %q", got, p.FullName)
	}
	if _, err := env.sessions.Get(ctx, staff, s.ID); err != nil {
		t.Fatalf("get: %v", err)
	}

	if _, err := env.patients.Update(ctx, p.ID, map[string]any{"fullName": "Renamed Patient"}); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if got := patientName(); got != "Renamed Patient" {
		t.Errorf("cached list kept %q after rename", got)
	}

	_, err := env.patients.BatchUpdate(ctx, BatchInput{Updates: []BatchItem{
		{ID: p.ID.String(), Fields: map[string]any{"name": "Batch Renamed"}},
	}})
	if err != nil {
		t.Fatalf("batch rename: %v", err)
	}
	if got := patientName(); got != "Batch Renamed" {
		t.Errorf("cached list kept %q after batch rename", got)
	}

	got, err := env.sessions.Get(ctx, staff, s.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Patient == nil || got.Patient.FullName != "Batch Renamed" {
		t.Errorf("cached session kept patient %+v", got.Patient)
	}
}
