package service

import (
	"context"
	"math"
	"slices"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/Victorkib/mentacare-backend-admin/cache"
	"github.com/Victorkib/mentacare-backend-admin/internal/domain"
	"github.com/Victorkib/mentacare-backend-admin/internal/enrich"
	"github.com/Victorkib/mentacare-backend-admin/internal/paginate"
	"github.com/Victorkib/mentacare-backend-admin/internal/query"
	"github.com/Victorkib/mentacare-backend-admin/internal/store"
)

const (
	searchScanLimit    = 500
	defaultSearchLimit = 20
	maxFlagLength      = 64
)

// PatientListParams are the decoded query parameters of a patient listing.
// The struct is also the cache key, so it must hold every parameter that
// changes the result.
type PatientListParams struct {
	PageSize        int
	Cursor          string
	Keyword         string
	ProfileComplete *bool
	TherapistID     *uuid.UUID
	AgeGroup        string
}

type PatientSearchParams struct {
	Keyword  string
	AgeGroup string
	Gender   string
	Limit    int
}

type PatientSummary struct {
	Total           int `json:"total"`
	ProfileComplete int `json:"profileComplete"`
	Incomplete      int `json:"incomplete"`
	Assigned        int `json:"assigned"`
	Unassigned      int `json:"unassigned"`
	Flagged         int `json:"flagged"`
}

type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

type PatientAnalytics struct {
	Total          int            `json:"total"`
	AgeGroups      map[string]int `json:"ageGroups"`
	Gender         map[string]int `json:"genderDistribution"`
	Registrations  []MonthCount   `json:"registrationsByMonth"`
	AssignmentRate float64        `json:"assignmentRate"`
}

// PatientService manages patient records.
type PatientService struct {
	base
	patients   *store.PatientStore
	therapists *store.TherapistStore
}

func NewPatientService(d Deps, patients *store.PatientStore, therapists *store.TherapistStore) *PatientService {
	return &PatientService{base: newBase(d, "patients"), patients: patients, therapists: therapists}
}

// List returns one cursor page of patients with the assigned therapist joined.
func (s *PatientService) List(ctx context.Context, p PatientListParams) (paginate.Page[domain.Patient], error) {
	p.PageSize = paginate.ClampPageSize(p.PageSize)
	now := s.now()

	ageGroup, err := query.AgeGroup("ageGroup", p.AgeGroup, now, func(pt domain.Patient) *time.Time { return pt.DateOfBirth })
	if err != nil {
		return paginate.Page[domain.Patient]{}, err
	}

	spec := query.NewSpec(store.PatientFields...)
	if p.ProfileComplete != nil {
		spec.Equals("profile_complete", *p.ProfileComplete)
	}
	if p.TherapistID != nil {
		spec.Equals("assigned_therapist_id", *p.TherapistID)
	}
	residual := query.All(query.Keyword[domain.Patient](p.Keyword), ageGroup)

	key := cache.Key(cache.RegionPatients, "List", p)
	return cache.Remember(ctx, s.cache, key, cache.ListTTL, func(ctx context.Context) (paginate.Page[domain.Patient], error) {
		page, err := paginate.Fetch[domain.Patient](ctx, s.patients, spec, paginate.NewestFirst, p.PageSize, p.Cursor)
		if err != nil {
			return page, err
		}
		if err := s.joinTherapists(ctx, page.Items); err != nil {
			return page, err
		}
		page = page.Filter(residual)
		for i := range page.Items {
			page.Items[i].Normalize()
		}
		return page, nil
	})
}

func (s *PatientService) joinTherapists(ctx context.Context, items []domain.Patient) error {
	return enrich.Join(ctx, items,
		func(p domain.Patient) (uuid.UUID, bool) {
			if p.AssignedTherapistID == nil {
				return uuid.Nil, false
			}
			return *p.AssignedTherapistID, true
		},
		s.therapists.Projections,
		func(p *domain.Patient, t domain.TherapistProjection) { p.Therapist = &t },
	)
}

// Get loads one patient with the live therapist projection.
func (s *PatientService) Get(ctx context.Context, id uuid.UUID) (domain.Patient, error) {
	key := cache.Key(cache.RegionPatients, "Get", id)
	return cache.Remember(ctx, s.cache, key, cache.DetailTTL, func(ctx context.Context) (domain.Patient, error) {
		return s.load(ctx, id)
	})
}

func (s *PatientService) load(ctx context.Context, id uuid.UUID) (domain.Patient, error) {
	p, err := s.patients.Get(ctx, nil, id)
	if err != nil {
		return p, err
	}
	items := []domain.Patient{p}
	if err := s.joinTherapists(ctx, items); err != nil {
		return p, err
	}
	items[0].Normalize()
	return items[0], nil
}

func (s *PatientService) Create(ctx context.Context, in PatientInput) (domain.Patient, error) {
	if err := in.Validate(); err != nil {
		return domain.Patient{}, domain.FromValidation(err)
	}
	email := normalizeEmail(in.Email)
	taken, err := s.patients.EmailTaken(ctx, nil, email, uuid.Nil)
	if err != nil {
		return domain.Patient{}, err
	}
	if taken {
		return domain.Patient{}, domain.Conflict("a patient with this email already exists", map[string]any{"email": email})
	}

	now := s.now()
	p := domain.Patient{
		ID:               uuid.New(),
		FullName:         strings.TrimSpace(in.FullName),
		Email:            email,
		Phone:            strings.TrimSpace(in.Phone),
		Gender:           in.Gender,
		Address:          strings.TrimSpace(in.Address),
		EmergencyContact: in.EmergencyContact,
		ProfileComplete:  in.ProfileComplete,
		Status:           in.Status,
		Flags:            []string{},
		Documents:        []domain.Document{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if p.Status == "" {
		p.Status = "active"
	}
	if in.DateOfBirth != "" {
		dob, _ := time.Parse(dateLayout, in.DateOfBirth)
		dob = dob.UTC()
		p.DateOfBirth = &dob
	}

	therapistID, _ := parseOptionalID(in.AssignedTherapistID)
	err = s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if therapistID != nil {
			t, err := s.therapists.Get(ctx, tx, *therapistID)
			if err != nil {
				return err
			}
			snap := t.Snapshot()
			p.AssignedTherapistID = &t.ID
			p.TherapistSnapshot = &snap
		}
		return s.patients.Insert(ctx, tx, &p)
	})
	if err != nil {
		return domain.Patient{}, err
	}
	s.invalidate(cache.RegionPatients, cache.RegionTherapists)
	s.log.Info("patient created", "id", p.ID)
	return s.load(ctx, p.ID)
}

// Update applies a partial update. Field names may use the legacy spellings
// accepted by store.TranslateLegacyFields.
func (s *PatientService) Update(ctx context.Context, id uuid.UUID, fields map[string]any) (domain.Patient, error) {
	err := s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return s.patch(ctx, tx, id, fields, s.now())
	})
	if err != nil {
		return domain.Patient{}, err
	}
	s.invalidate(cache.RegionPatients, cache.RegionTherapists, cache.RegionSessions)
	return s.load(ctx, id)
}

// patch writes translated columns and routes a therapist change through
// Assign so the snapshot follows the reference.
func (s *PatientService) patch(ctx context.Context, idb bun.IDB, id uuid.UUID, fields map[string]any, now time.Time) error {
	cols, err := store.TranslateLegacyFields("patient", fields)
	if err != nil {
		return err
	}
	if email, ok := cols["email"].(string); ok {
		email = normalizeEmail(email)
		if err := validation.Validate(email, validation.Required, is.EmailFormat); err != nil {
			return domain.InvalidField("email", err.Error())
		}
		taken, err := s.patients.EmailTaken(ctx, idb, email, id)
		if err != nil {
			return err
		}
		if taken {
			return domain.Conflict("a patient with this email already exists", map[string]any{"email": email})
		}
		cols["email"] = email
	}

	ref, reassign := cols["assigned_therapist_id"]
	delete(cols, "assigned_therapist_id")
	if len(cols) > 0 {
		if err := s.patients.PatchColumns(ctx, idb, id, cols, now); err != nil {
			return err
		}
	}
	if !reassign {
		return nil
	}

	var therapist *domain.Therapist
	if tid, ok := ref.(uuid.UUID); ok {
		t, err := s.therapists.Get(ctx, idb, tid)
		if err != nil {
			return err
		}
		therapist = &t
	}
	n, err := s.patients.Assign(ctx, idb, []uuid.UUID{id}, therapist, now)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFound("patient", id)
	}
	return nil
}

func (s *PatientService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.patients.Delete(ctx, nil, id); err != nil {
		return err
	}
	s.invalidate(cache.RegionPatients, cache.RegionTherapists, cache.RegionSessions)
	s.log.Info("patient deleted", "id", id)
	return nil
}

// BatchUpdate applies every item in one transaction. Any failure rolls back
// the whole batch.
func (s *PatientService) BatchUpdate(ctx context.Context, in BatchInput) (int, error) {
	if err := in.Validate(); err != nil {
		return 0, domain.FromValidation(err)
	}
	now := s.now()
	err := s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		for _, item := range in.Updates {
			id, _ := uuid.Parse(item.ID)
			if err := s.patch(ctx, tx, id, item.Fields, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.invalidate(cache.RegionPatients, cache.RegionTherapists, cache.RegionSessions)
	return len(in.Updates), nil
}

// AssignTherapist points the patient at therapistID, refreshing the snapshot.
// A nil therapistID unassigns.
func (s *PatientService) AssignTherapist(ctx context.Context, id uuid.UUID, therapistID *uuid.UUID) (domain.Patient, error) {
	err := s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if _, err := s.patients.Get(ctx, tx, id); err != nil {
			return err
		}
		var therapist *domain.Therapist
		if therapistID != nil {
			t, err := s.therapists.Get(ctx, tx, *therapistID)
			if err != nil {
				return err
			}
			therapist = &t
		}
		_, err := s.patients.Assign(ctx, tx, []uuid.UUID{id}, therapist, s.now())
		return err
	})
	if err != nil {
		return domain.Patient{}, err
	}
	s.invalidate(cache.RegionPatients, cache.RegionTherapists, cache.RegionSessions)
	return s.load(ctx, id)
}

// Flag appends flag unless the patient already carries it. Flags keep
// insertion order.
func (s *PatientService) Flag(ctx context.Context, id uuid.UUID, flag string) (domain.Patient, error) {
	flag = strings.TrimSpace(flag)
	if err := validation.Validate(flag, validation.Required, validation.Length(1, maxFlagLength)); err != nil {
		return domain.Patient{}, domain.InvalidField("flag", err.Error())
	}

	changed := false
	err := s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		p, err := s.patients.Get(ctx, tx, id)
		if err != nil {
			return err
		}
		if slices.Contains(p.Flags, flag) {
			return nil
		}
		p.Flags = append(p.Flags, flag)
		p.UpdatedAt = s.now()
		changed = true
		return s.patients.Update(ctx, tx, &p)
	})
	if err != nil {
		return domain.Patient{}, err
	}
	if changed {
		s.invalidate(cache.RegionPatients, cache.RegionSessions)
	}
	return s.load(ctx, id)
}

// AddDocuments attaches already hosted files to a patient.
func (s *PatientService) AddDocuments(ctx context.Context, id uuid.UUID, files []FileInput) (domain.Patient, error) {
	if err := validation.Validate(files, validation.Required, validation.Length(1, 20)); err != nil {
		return domain.Patient{}, domain.InvalidField("documents", err.Error())
	}
	if err := validation.Validate(files); err != nil {
		return domain.Patient{}, domain.FromValidation(err)
	}
	now := s.now()
	docs := make([]domain.Document, 0, len(files))
	for _, f := range files {
		docs = append(docs, domain.Document{
			ID:          uuid.NewString(),
			Name:        f.Name,
			URL:         f.URL,
			ContentType: f.ContentType,
			Size:        f.Size,
			UploadedAt:  now,
		})
	}
	return s.appendDocuments(ctx, id, docs)
}

// UploadDocuments stores the uploads in blob storage and attaches them.
func (s *PatientService) UploadDocuments(ctx context.Context, id uuid.UUID, uploads []Upload) (domain.Patient, error) {
	if s.blob == nil {
		return domain.Patient{}, domain.Invalid("file uploads are not configured")
	}
	if len(uploads) == 0 {
		return domain.Patient{}, domain.InvalidField("documents", "at least one file is required")
	}
	if _, err := s.patients.Get(ctx, nil, id); err != nil {
		return domain.Patient{}, err
	}
	docs := make([]domain.Document, 0, len(uploads))
	for _, u := range uploads {
		obj, err := s.blob.Put(ctx, "patients/"+id.String(), u.Name, u.Body, u.Size, u.ContentType)
		if err != nil {
			return domain.Patient{}, err
		}
		docs = append(docs, domain.Document{
			ID:          uuid.NewString(),
			Name:        u.Name,
			URL:         obj.URL,
			ContentType: obj.ContentType,
			Size:        obj.Size,
			UploadedAt:  obj.StoredAt,
		})
	}
	return s.appendDocuments(ctx, id, docs)
}

func (s *PatientService) appendDocuments(ctx context.Context, id uuid.UUID, docs []domain.Document) (domain.Patient, error) {
	err := s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		p, err := s.patients.Get(ctx, tx, id)
		if err != nil {
			return err
		}
		p.Documents = append(p.Documents, docs...)
		p.UpdatedAt = s.now()
		return s.patients.Update(ctx, tx, &p)
	})
	if err != nil {
		return domain.Patient{}, err
	}
	s.invalidate(cache.RegionPatients, cache.RegionSessions)
	return s.load(ctx, id)
}

func (s *PatientService) Summary(ctx context.Context) (PatientSummary, error) {
	key := cache.Key(cache.RegionPatients, "Summary")
	return cache.Remember(ctx, s.cache, key, cache.SummaryTTL, func(ctx context.Context) (PatientSummary, error) {
		c, err := s.patients.Counts(ctx)
		if err != nil {
			return PatientSummary{}, err
		}
		flagged, err := s.patients.CountFlagged(ctx)
		if err != nil {
			return PatientSummary{}, err
		}
		return PatientSummary{
			Total:           c.Total,
			ProfileComplete: c.ProfileComplete,
			Incomplete:      c.Total - c.ProfileComplete,
			Assigned:        c.Assigned,
			Unassigned:      c.Total - c.Assigned,
			Flagged:         flagged,
		}, nil
	})
}

// Analytics aggregates every patient: age groups, gender, registrations over
// the last twelve months and the share of assigned patients.
func (s *PatientService) Analytics(ctx context.Context) (PatientAnalytics, error) {
	key := cache.Key(cache.RegionPatients, "Analytics")
	return cache.Remember(ctx, s.cache, key, cache.SummaryTTL, func(ctx context.Context) (PatientAnalytics, error) {
		all, err := s.patients.All(ctx, nil)
		if err != nil {
			return PatientAnalytics{}, err
		}
		return buildAnalytics(all, s.now()), nil
	})
}

func buildAnalytics(all []domain.Patient, now time.Time) PatientAnalytics {
	out := PatientAnalytics{
		Total:     len(all),
		AgeGroups: make(map[string]int, len(query.AgeBuckets)+1),
		Gender:    map[string]int{},
	}
	for _, b := range query.AgeBuckets {
		out.AgeGroups[b.Name] = 0
	}
	out.AgeGroups["Unknown"] = 0

	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -11, 0)
	months := make([]MonthCount, 12)
	index := make(map[string]int, 12)
	for i := range months {
		label := start.AddDate(0, i, 0).Format("2006-01")
		months[i] = MonthCount{Month: label}
		index[label] = i
	}

	assigned := 0
	for _, p := range all {
		bucket := query.AgeBucketOf(p.DateOfBirth, now)
		if bucket == "" {
			bucket = "Unknown"
		}
		out.AgeGroups[bucket]++

		gender := strings.ToLower(strings.TrimSpace(p.Gender))
		if gender == "" {
			gender = "unspecified"
		}
		out.Gender[gender]++

		if i, ok := index[p.CreatedAt.UTC().Format("2006-01")]; ok {
			months[i].Count++
		}
		if p.AssignedTherapistID != nil {
			assigned++
		}
	}
	out.Registrations = months
	if len(all) > 0 {
		out.AssignmentRate = math.Round(float64(assigned)*1000/float64(len(all))) / 10
	}
	return out
}

// Search scans the most recent patients matching gender and applies the
// keyword and age filters in memory.
func (s *PatientService) Search(ctx context.Context, p PatientSearchParams) ([]domain.Patient, error) {
	if p.Limit <= 0 {
		p.Limit = defaultSearchLimit
	}
	p.Limit = min(p.Limit, paginate.MaxPageSize)
	now := s.now()

	ageGroup, err := query.AgeGroup("ageGroup", p.AgeGroup, now, func(pt domain.Patient) *time.Time { return pt.DateOfBirth })
	if err != nil {
		return nil, err
	}
	spec := query.NewSpec(store.PatientFields...)
	if g := strings.TrimSpace(p.Gender); g != "" && !strings.EqualFold(g, "all") {
		spec.Equals("gender", strings.ToLower(g))
	}
	residual := query.All(query.Keyword[domain.Patient](p.Keyword), ageGroup)

	key := cache.Key(cache.RegionPatients, "Search", p)
	return cache.Remember(ctx, s.cache, key, cache.ListTTL, func(ctx context.Context) ([]domain.Patient, error) {
		scanned, err := s.patients.Scan(ctx, spec, searchScanLimit)
		if err != nil {
			return nil, err
		}
		found := query.Filter(scanned, residual)
		if len(found) > p.Limit {
			found = found[:p.Limit]
		}
		if err := s.joinTherapists(ctx, found); err != nil {
			return nil, err
		}
		for i := range found {
			found[i].Normalize()
		}
		if found == nil {
			found = []domain.Patient{}
		}
		return found, nil
	})
}
