package service

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/Victorkib/mentacare-backend-admin/cache"
	"github.com/Victorkib/mentacare-backend-admin/internal/auth"
	"github.com/Victorkib/mentacare-backend-admin/internal/domain"
	"github.com/Victorkib/mentacare-backend-admin/internal/enrich"
	"github.com/Victorkib/mentacare-backend-admin/internal/paginate"
	"github.com/Victorkib/mentacare-backend-admin/internal/query"
	"github.com/Victorkib/mentacare-backend-admin/internal/store"
)

const defaultSessionMinutes = 50

// Scoper resolves which therapist's sessions a caller is limited to. A nil
// id means no restriction.
type Scoper interface {
	TherapistScope(ctx context.Context, who auth.Identity) (*uuid.UUID, error)
}

type SessionListParams struct {
	PageNumber  int
	PageSize    int
	Status      string
	PatientID   *uuid.UUID
	TherapistID *uuid.UUID
}

type SessionService struct {
	base
	sessions   *store.SessionStore
	patients   *store.PatientStore
	therapists *store.TherapistStore
	scope      Scoper
}

func NewSessionService(d Deps, sessions *store.SessionStore, patients *store.PatientStore, therapists *store.TherapistStore, scope Scoper) *SessionService {
	return &SessionService{
		base:       newBase(d, "sessions"),
		sessions:   sessions,
		patients:   patients,
		therapists: therapists,
		scope:      scope,
	}
}

// List returns one numbered page of sessions with patient and therapist
// projections joined. Therapist callers only see their own sessions.
func (s *SessionService) List(ctx context.Context, who auth.Identity, p SessionListParams) (paginate.OffsetPage[domain.Session], error) {
	var empty paginate.OffsetPage[domain.Session]

	scope, err := s.scope.TherapistScope(ctx, who)
	if err != nil {
		return empty, err
	}
	if scope != nil {
		p.TherapistID = scope
	}

	spec := query.NewSpec(store.SessionFields...)
	if st := strings.TrimSpace(p.Status); st != "" && !strings.EqualFold(st, "all") {
		status := domain.SessionStatus(strings.ToLower(st))
		if !status.Valid() {
			return empty, domain.InvalidField("status", "must be one of scheduled, completed, cancelled, no_show")
		}
		spec.Equals("status", status)
		p.Status = string(status)
	}
	if p.PatientID != nil {
		spec.Equals("patient_id", *p.PatientID)
	}
	if p.TherapistID != nil {
		spec.Equals("therapist_id", *p.TherapistID)
	}
	offset, limit := paginate.Offset(p.PageNumber, p.PageSize)
	p.PageNumber, p.PageSize = offset/limit+1, limit

	key := cache.Key(cache.RegionSessions, "List", p)
	return cache.Remember(ctx, s.cache, key, cache.ListTTL, func(ctx context.Context) (paginate.OffsetPage[domain.Session], error) {
		items, total, err := s.sessions.List(ctx, spec, offset, limit)
		if err != nil {
			return empty, err
		}
		if err := s.join(ctx, items); err != nil {
			return empty, err
		}
		return paginate.NewOffsetPage(items, p.PageNumber, p.PageSize, total), nil
	})
}

func (s *SessionService) join(ctx context.Context, items []domain.Session) error {
	err := enrich.Join(ctx, items,
		func(x domain.Session) (uuid.UUID, bool) { return x.PatientID, x.PatientID != uuid.Nil },
		s.patients.Projections,
		func(x *domain.Session, p domain.PatientProjection) { x.Patient = &p },
	)
	if err != nil {
		return err
	}
	err = enrich.Join(ctx, items,
		func(x domain.Session) (uuid.UUID, bool) { return x.TherapistID, x.TherapistID != uuid.Nil },
		s.therapists.Projections,
		func(x *domain.Session, t domain.TherapistProjection) { x.Therapist = &t },
	)
	if err != nil {
		return err
	}
	for i := range items {
		items[i].Normalize()
	}
	return nil
}

func (s *SessionService) Get(ctx context.Context, who auth.Identity, id uuid.UUID) (domain.Session, error) {
	key := cache.Key(cache.RegionSessions, "Get", id)
	sess, err := cache.Remember(ctx, s.cache, key, cache.DetailTTL, func(ctx context.Context) (domain.Session, error) {
		return s.load(ctx, nil, id)
	})
	if err != nil {
		return sess, err
	}
	scope, err := s.scope.TherapistScope(ctx, who)
	if err != nil {
		return domain.Session{}, err
	}
	if err := authorize(scope, sess); err != nil {
		return domain.Session{}, err
	}
	return sess, nil
}

func (s *SessionService) load(ctx context.Context, idb bun.IDB, id uuid.UUID) (domain.Session, error) {
	sess, err := s.sessions.Get(ctx, idb, id)
	if err != nil {
		return sess, err
	}
	items := []domain.Session{sess}
	if err := s.join(ctx, items); err != nil {
		return sess, err
	}
	return items[0], nil
}

// authorize rejects therapist callers touching another therapist's session.
func authorize(scope *uuid.UUID, sess domain.Session) error {
	if scope != nil && *scope != sess.TherapistID {
		return domain.Forbidden("session belongs to another therapist")
	}
	return nil
}

func (s *SessionService) Create(ctx context.Context, in SessionInput) (domain.Session, error) {
	if err := in.Validate(); err != nil {
		return domain.Session{}, domain.FromValidation(err)
	}
	patientID, _ := uuid.Parse(in.PatientID)
	therapistID, _ := uuid.Parse(in.TherapistID)
	at, _ := time.Parse(time.RFC3339, in.ScheduledAt)

	now := s.now()
	sess := domain.Session{
		ID:              uuid.New(),
		PatientID:       patientID,
		TherapistID:     therapistID,
		ScheduledAt:     at.UTC(),
		DurationMinutes: in.DurationMinutes,
		Type:            in.Type,
		Status:          domain.SessionScheduled,
		Notes:           in.Notes,
		Attachments:     []domain.Attachment{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if sess.DurationMinutes == 0 {
		sess.DurationMinutes = defaultSessionMinutes
	}

	err := s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if _, err := s.patients.Get(ctx, tx, patientID); err != nil {
			return err
		}
		ok, err := s.therapists.Exists(ctx, tx, therapistID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.NotFound("therapist", therapistID)
		}
		return s.sessions.Insert(ctx, tx, &sess)
	})
	if err != nil {
		return domain.Session{}, err
	}
	s.invalidate(cache.RegionSessions)
	s.log.Info("session created", "id", sess.ID, "patient", patientID, "therapist", therapistID)
	return s.load(ctx, nil, sess.ID)
}

// Update applies a partial update of schedule, duration, type or notes.
func (s *SessionService) Update(ctx context.Context, who auth.Identity, id uuid.UUID, fields map[string]any) (domain.Session, error) {
	cols, err := store.TranslateLegacyFields("session", fields)
	if err != nil {
		return domain.Session{}, err
	}
	if d, ok := cols["duration_minutes"].(int); ok {
		if err := validation.Validate(d, validation.Min(0), validation.Max(480)); err != nil {
			return domain.Session{}, domain.InvalidField("durationMinutes", err.Error())
		}
	}

	scope, err := s.scope.TherapistScope(ctx, who)
	if err != nil {
		return domain.Session{}, err
	}
	err = s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		sess, err := s.sessions.Get(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := authorize(scope, sess); err != nil {
			return err
		}
		return s.sessions.PatchColumns(ctx, tx, id, cols, s.now())
	})
	if err != nil {
		return domain.Session{}, err
	}
	s.invalidate(cache.RegionSessions)
	return s.load(ctx, nil, id)
}

func (s *SessionService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.sessions.Delete(ctx, nil, id); err != nil {
		return err
	}
	s.invalidate(cache.RegionSessions)
	return nil
}

// NotesAndAttachments replaces the notes when given and appends attachments,
// both linked files and uploads.
func (s *SessionService) NotesAndAttachments(ctx context.Context, who auth.Identity, id uuid.UUID, in NotesInput, uploads []Upload) (domain.Session, error) {
	if err := in.Validate(); err != nil {
		return domain.Session{}, domain.FromValidation(err)
	}
	if len(uploads) > 0 && s.blob == nil {
		return domain.Session{}, domain.Invalid("file uploads are not configured")
	}
	if in.Notes == nil && len(in.Attachments) == 0 && len(uploads) == 0 {
		return domain.Session{}, domain.Invalid("nothing to update")
	}

	scope, err := s.scope.TherapistScope(ctx, who)
	if err != nil {
		return domain.Session{}, err
	}
	current, err := s.sessions.Get(ctx, nil, id)
	if err != nil {
		return domain.Session{}, err
	}
	if err := authorize(scope, current); err != nil {
		return domain.Session{}, err
	}

	now := s.now()
	added := make([]domain.Attachment, 0, len(in.Attachments)+len(uploads))
	for _, f := range in.Attachments {
		added = append(added, domain.Attachment{
			ID:          uuid.NewString(),
			Name:        f.Name,
			URL:         f.URL,
			ContentType: f.ContentType,
			Size:        f.Size,
			UploadedAt:  now,
		})
	}
	for _, u := range uploads {
		obj, err := s.blob.Put(ctx, "sessions/"+id.String(), u.Name, u.Body, u.Size, u.ContentType)
		if err != nil {
			return domain.Session{}, err
		}
		added = append(added, domain.Attachment{
			ID:          uuid.NewString(),
			Name:        u.Name,
			URL:         obj.URL,
			ContentType: obj.ContentType,
			Size:        obj.Size,
			UploadedAt:  obj.StoredAt,
		})
	}

	err = s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		sess, err := s.sessions.Get(ctx, tx, id)
		if err != nil {
			return err
		}
		if in.Notes != nil {
			sess.Notes = *in.Notes
		}
		sess.Attachments = append(sess.Attachments, added...)
		sess.UpdatedAt = now
		return s.sessions.Update(ctx, tx, &sess)
	})
	if err != nil {
		return domain.Session{}, err
	}
	s.invalidate(cache.RegionSessions)
	return s.load(ctx, nil, id)
}

// MarkAttendance records attendance. Both parties present completes the
// session; an absent patient makes it a no-show. Cancelled sessions cannot
// be marked.
func (s *SessionService) MarkAttendance(ctx context.Context, who auth.Identity, id uuid.UUID, in AttendanceInput) (domain.Session, error) {
	scope, err := s.scope.TherapistScope(ctx, who)
	if err != nil {
		return domain.Session{}, err
	}
	err = s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		sess, err := s.sessions.Get(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := authorize(scope, sess); err != nil {
			return err
		}
		if sess.Status == domain.SessionCancelled {
			return domain.Conflict("attendance cannot be marked on a cancelled session", map[string]any{"status": sess.Status})
		}

		next := sess.Status
		switch {
		case !in.PatientAttended:
			next = domain.SessionNoShow
		case in.TherapistAttended:
			next = domain.SessionCompleted
		}
		if !sess.Status.CanTransition(next) {
			return domain.Conflict("session status cannot change", map[string]any{"from": sess.Status, "to": next})
		}

		now := s.now()
		sess.Attendance = &domain.Attendance{
			PatientAttended:   in.PatientAttended,
			TherapistAttended: in.TherapistAttended,
			MarkedAt:          now,
			MarkedBy:          who.AdminID,
		}
		sess.Status = next
		sess.UpdatedAt = now
		return s.sessions.Update(ctx, tx, &sess)
	})
	if err != nil {
		return domain.Session{}, err
	}
	s.invalidate(cache.RegionSessions)
	return s.load(ctx, nil, id)
}

// UpdateStatus moves a session to status. Terminal statuses cannot be left.
func (s *SessionService) UpdateStatus(ctx context.Context, who auth.Identity, id uuid.UUID, status string) (domain.Session, error) {
	next := domain.SessionStatus(strings.ToLower(strings.TrimSpace(status)))
	if !next.Valid() {
		return domain.Session{}, domain.InvalidField("status", "must be one of scheduled, completed, cancelled, no_show")
	}
	scope, err := s.scope.TherapistScope(ctx, who)
	if err != nil {
		return domain.Session{}, err
	}
	err = s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		sess, err := s.sessions.Get(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := authorize(scope, sess); err != nil {
			return err
		}
		if !sess.Status.CanTransition(next) {
			return domain.Conflict("session status cannot change", map[string]any{"from": sess.Status, "to": next})
		}
		return s.sessions.SetStatus(ctx, tx, id, next, s.now())
	})
	if err != nil {
		return domain.Session{}, err
	}
	s.invalidate(cache.RegionSessions)
	return s.load(ctx, nil, id)
}
