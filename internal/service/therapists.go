package service

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
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

const topTherapists = 5

var weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

type TherapistListParams struct {
	PageSize        int
	Cursor          string
	Keyword         string
	Specialization  string
	Verified        *bool
	ProfileComplete *bool
	Experience      string
}

// TherapistLoad is a therapist with the number of patients assigned to it.
type TherapistLoad struct {
	domain.TherapistProjection
	Patients int `json:"patientCount"`
}

type TherapistSummary struct {
	Total            int             `json:"total"`
	Verified         int             `json:"verified"`
	Unverified       int             `json:"unverified"`
	ProfileComplete  int             `json:"profileComplete"`
	Incomplete       int             `json:"incomplete"`
	BySpecialization map[string]int  `json:"bySpecialization"`
	TopTherapists    []TherapistLoad `json:"topTherapists"`
}

type AssignResult struct {
	TherapistID uuid.UUID `json:"therapistId"`
	Assigned    int       `json:"assigned"`
	Released    int       `json:"released"`
}

type TherapistService struct {
	base
	therapists *store.TherapistStore
	patients   *store.PatientStore
}

func NewTherapistService(d Deps, therapists *store.TherapistStore, patients *store.PatientStore) *TherapistService {
	return &TherapistService{base: newBase(d, "therapists"), therapists: therapists, patients: patients}
}

func (s *TherapistService) List(ctx context.Context, p TherapistListParams) (paginate.Page[domain.Therapist], error) {
	p.PageSize = paginate.ClampPageSize(p.PageSize)

	experience, err := query.InBucket("experience", p.Experience, query.ExperienceBuckets,
		func(t domain.Therapist) int { return t.ExperienceYears })
	if err != nil {
		return paginate.Page[domain.Therapist]{}, err
	}

	spec := query.NewSpec(store.TherapistFields...)
	if sp := strings.TrimSpace(p.Specialization); sp != "" && !strings.EqualFold(sp, "all") {
		spec.Equals("specialization", sp)
	}
	if p.Verified != nil {
		spec.Equals("verified", *p.Verified)
	}
	if p.ProfileComplete != nil {
		spec.Equals("profile_complete", *p.ProfileComplete)
	}
	residual := query.All(query.Keyword[domain.Therapist](p.Keyword), experience)

	key := cache.Key(cache.RegionTherapists, "List", p)
	return cache.Remember(ctx, s.cache, key, cache.ListTTL, func(ctx context.Context) (paginate.Page[domain.Therapist], error) {
		page, err := paginate.Fetch[domain.Therapist](ctx, s.therapists, spec, paginate.NewestFirst, p.PageSize, p.Cursor)
		if err != nil {
			return page, err
		}
		page = page.Filter(residual)
		for i := range page.Items {
			page.Items[i].Normalize()
		}
		return page, nil
	})
}

func (s *TherapistService) Get(ctx context.Context, id uuid.UUID) (domain.Therapist, error) {
	key := cache.Key(cache.RegionTherapists, "Get", id)
	return cache.Remember(ctx, s.cache, key, cache.DetailTTL, func(ctx context.Context) (domain.Therapist, error) {
		return s.load(ctx, nil, id)
	})
}

func (s *TherapistService) load(ctx context.Context, idb bun.IDB, id uuid.UUID) (domain.Therapist, error) {
	t, err := s.therapists.Get(ctx, idb, id)
	if err != nil {
		return t, err
	}
	t.Normalize()
	return t, nil
}

func (s *TherapistService) Create(ctx context.Context, in TherapistInput) (domain.Therapist, error) {
	if err := in.Validate(); err != nil {
		return domain.Therapist{}, domain.FromValidation(err)
	}
	email := normalizeEmail(in.Email)
	taken, err := s.therapists.EmailTaken(ctx, nil, email, uuid.Nil)
	if err != nil {
		return domain.Therapist{}, err
	}
	if taken {
		return domain.Therapist{}, domain.Conflict("a therapist with this email already exists", map[string]any{"email": email})
	}

	now := s.now()
	t := domain.Therapist{
		ID:              uuid.New(),
		FullName:        strings.TrimSpace(in.FullName),
		Email:           email,
		Phone:           strings.TrimSpace(in.Phone),
		Specialization:  strings.TrimSpace(in.Specialization),
		Title:           strings.TrimSpace(in.Title),
		Bio:             in.Bio,
		ExperienceYears: in.ExperienceYears,
		Verified:        in.Verified,
		ProfileComplete: in.ProfileComplete,
		Availability:    normalizeSlots(in.Availability),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.therapists.Insert(ctx, nil, &t); err != nil {
		return domain.Therapist{}, err
	}
	s.invalidate(cache.RegionTherapists)
	s.log.Info("therapist created", "id", t.ID)
	return t, nil
}

// Update applies a partial update. The denormalized snapshot on assigned
// patients is left as is; it is refreshed on the next assignment.
func (s *TherapistService) Update(ctx context.Context, id uuid.UUID, fields map[string]any) (domain.Therapist, error) {
	var out domain.Therapist
	err := s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := s.patch(ctx, tx, id, fields, s.now()); err != nil {
			return err
		}
		var err error
		out, err = s.load(ctx, tx, id)
		return err
	})
	if err != nil {
		return domain.Therapist{}, err
	}
	s.invalidate(cache.RegionTherapists, cache.RegionPatients, cache.RegionSessions)
	return out, nil
}

func (s *TherapistService) patch(ctx context.Context, idb bun.IDB, id uuid.UUID, fields map[string]any, now time.Time) error {
	if raw, ok := fields["availability"]; ok {
		slots, err := decodeSlots(raw)
		if err != nil {
			return err
		}
		fields["availability"] = slots
	}
	cols, err := store.TranslateLegacyFields("therapist", fields)
	if err != nil {
		return err
	}
	if email, ok := cols["email"].(string); ok {
		email = normalizeEmail(email)
		if err := validation.Validate(email, validation.Required, is.EmailFormat); err != nil {
			return domain.InvalidField("email", err.Error())
		}
		taken, err := s.therapists.EmailTaken(ctx, idb, email, id)
		if err != nil {
			return err
		}
		if taken {
			return domain.Conflict("a therapist with this email already exists", map[string]any{"email": email})
		}
		cols["email"] = email
	}
	if years, ok := cols["experience_years"].(int); ok && (years < 0 || years > 80) {
		return domain.InvalidField("experienceYears", "must be between 0 and 80")
	}
	return s.therapists.PatchColumns(ctx, idb, id, cols, now)
}

// decodeSlots converts a loosely typed availability value into validated slots.
func decodeSlots(raw any) ([]domain.AvailabilitySlot, error) {
	if raw == nil {
		return []domain.AvailabilitySlot{}, nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, domain.InvalidField("availability", "must be a list of slots")
	}
	var slots []domain.AvailabilitySlot
	if err := json.Unmarshal(b, &slots); err != nil {
		return nil, domain.InvalidField("availability", "must be a list of slots")
	}
	if err := validateSlots(slots); err != nil {
		return nil, domain.InvalidField("availability", err.Error())
	}
	return normalizeSlots(slots), nil
}

// Delete removes a therapist that no patient references any more.
func (s *TherapistService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		assigned, err := s.patients.IDsAssignedTo(ctx, tx, id)
		if err != nil {
			return err
		}
		if n := len(assigned); n > 0 {
			return domain.Conflict(
				fmt.Sprintf("therapist still has %d assigned patients", n),
				map[string]any{"activePatients": n},
			)
		}
		return s.therapists.Delete(ctx, tx, id)
	})
	if err != nil {
		return err
	}
	s.invalidate(cache.RegionTherapists, cache.RegionSessions)
	s.log.Info("therapist deleted", "id", id)
	return nil
}

func (s *TherapistService) BatchUpdate(ctx context.Context, in BatchInput) (int, error) {
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
	s.invalidate(cache.RegionTherapists, cache.RegionPatients, cache.RegionSessions)
	return len(in.Updates), nil
}

// AssignPatients replaces the therapist's patient set with patientIDs. Every
// patient previously assigned and not in the new set is released. The whole
// exchange runs in one transaction.
func (s *TherapistService) AssignPatients(ctx context.Context, id uuid.UUID, patientIDs []uuid.UUID) (AssignResult, error) {
	ids := enrich.Distinct(patientIDs)
	res := AssignResult{TherapistID: id}

	err := s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		t, err := s.therapists.Get(ctx, tx, id)
		if err != nil {
			return err
		}
		found, err := s.patients.ByIDs(ctx, tx, ids)
		if err != nil {
			return err
		}
		if len(found) != len(ids) {
			return domain.NotFound("patient", firstMissing(ids, found))
		}

		previous, err := s.patients.IDsAssignedTo(ctx, tx, id)
		if err != nil {
			return err
		}
		now := s.now()
		if _, err := s.patients.ClearAssignment(ctx, tx, id, now); err != nil {
			return err
		}
		n, err := s.patients.Assign(ctx, tx, ids, &t, now)
		if err != nil {
			return err
		}
		res.Assigned = n

		keep := make(map[uuid.UUID]struct{}, len(ids))
		for _, pid := range ids {
			keep[pid] = struct{}{}
		}
		for _, pid := range previous {
			if _, ok := keep[pid]; !ok {
				res.Released++
			}
		}
		return nil
	})
	if err != nil {
		return AssignResult{}, err
	}
	s.invalidate(cache.RegionPatients, cache.RegionTherapists)
	s.log.Info("patients assigned", "therapist", id, "assigned", res.Assigned, "released", res.Released)
	return res, nil
}

func firstMissing(ids []uuid.UUID, found []domain.Patient) uuid.UUID {
	have := make(map[uuid.UUID]struct{}, len(found))
	for _, p := range found {
		have[p.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := have[id]; !ok {
			return id
		}
	}
	return uuid.Nil
}

// SetAvailability replaces the weekly availability.
func (s *TherapistService) SetAvailability(ctx context.Context, id uuid.UUID, slots []domain.AvailabilitySlot) (domain.Therapist, error) {
	if err := validateSlots(slots); err != nil {
		return domain.Therapist{}, domain.InvalidField("availability", err.Error())
	}
	var out domain.Therapist
	err := s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		t, err := s.therapists.Get(ctx, tx, id)
		if err != nil {
			return err
		}
		t.Availability = normalizeSlots(slots)
		t.UpdatedAt = s.now()
		if err := s.therapists.Update(ctx, tx, &t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return domain.Therapist{}, err
	}
	s.invalidate(cache.RegionTherapists)
	return out, nil
}

func (s *TherapistService) Specializations(ctx context.Context) ([]string, error) {
	key := cache.Key(cache.RegionTherapists, "Specializations")
	return cache.Remember(ctx, s.cache, key, cache.SpecializationTTL, s.therapists.Specializations)
}

// Summary reports totals and the therapists carrying the most patients.
func (s *TherapistService) Summary(ctx context.Context) (TherapistSummary, error) {
	key := cache.Key(cache.RegionTherapists, "Summary")
	return cache.Remember(ctx, s.cache, key, cache.SummaryTTL, func(ctx context.Context) (TherapistSummary, error) {
		c, err := s.therapists.Counts(ctx)
		if err != nil {
			return TherapistSummary{}, err
		}
		bySpec, err := s.therapists.BySpecialization(ctx)
		if err != nil {
			return TherapistSummary{}, err
		}
		ids, err := s.therapists.AllIDs(ctx)
		if err != nil {
			return TherapistSummary{}, err
		}
		counts, err := enrich.Count(ctx, ids, s.patients.CountByTherapist)
		if err != nil {
			return TherapistSummary{}, err
		}
		top, err := s.topByLoad(ctx, counts)
		if err != nil {
			return TherapistSummary{}, err
		}
		return TherapistSummary{
			Total:            c.Total,
			Verified:         c.Verified,
			Unverified:       c.Total - c.Verified,
			ProfileComplete:  c.ProfileComplete,
			Incomplete:       c.Total - c.ProfileComplete,
			BySpecialization: bySpec,
			TopTherapists:    top,
		}, nil
	})
}

func (s *TherapistService) topByLoad(ctx context.Context, counts map[uuid.UUID]int) ([]TherapistLoad, error) {
	ids := make([]uuid.UUID, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if counts[ids[i]] != counts[ids[j]] {
			return counts[ids[i]] > counts[ids[j]]
		}
		return ids[i].String() < ids[j].String()
	})
	if len(ids) > topTherapists {
		ids = ids[:topTherapists]
	}

	projections, err := s.therapists.Projections(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]TherapistLoad, 0, len(ids))
	for _, id := range ids {
		p, ok := projections[id]
		if !ok {
			continue
		}
		out = append(out, TherapistLoad{TherapistProjection: p, Patients: counts[id]})
	}
	return out, nil
}

type span struct {
	day        string
	start, end int
}

// validateSlots checks day names and HH:MM times, that each slot ends after
// it starts and that no two slots on the same day overlap.
func validateSlots(slots []domain.AvailabilitySlot) error {
	spans := make([]span, 0, len(slots))
	for i, sl := range slots {
		day := strings.ToLower(strings.TrimSpace(sl.Day))
		if !slices.Contains(weekdays, day) {
			return validation.NewError("validation_slot_day", fmt.Sprintf("slot %d: day must be a weekday name", i))
		}
		start, err := minuteOfDay(sl.Start)
		if err != nil {
			return validation.NewError("validation_slot_time", fmt.Sprintf("slot %d: start must be HH:MM", i))
		}
		end, err := minuteOfDay(sl.End)
		if err != nil {
			return validation.NewError("validation_slot_time", fmt.Sprintf("slot %d: end must be HH:MM", i))
		}
		if end <= start {
			return validation.NewError("validation_slot_order", fmt.Sprintf("slot %d: end must be after start", i))
		}
		spans = append(spans, span{day: day, start: start, end: end})
	}

	sort.Slice(spans, func(i, j int) bool {
		if spans[i].day != spans[j].day {
			return spans[i].day < spans[j].day
		}
		return spans[i].start < spans[j].start
	})
	for i := 1; i < len(spans); i++ {
		prev, cur := spans[i-1], spans[i]
		if prev.day == cur.day && cur.start < prev.end {
			return validation.NewError("validation_slot_overlap", "slots on "+cur.day+" overlap")
		}
	}
	return nil
}

func minuteOfDay(hhmm string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(hhmm))
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

func normalizeSlots(slots []domain.AvailabilitySlot) []domain.AvailabilitySlot {
	out := make([]domain.AvailabilitySlot, 0, len(slots))
	for _, sl := range slots {
		out = append(out, domain.AvailabilitySlot{
			Day:   strings.ToLower(strings.TrimSpace(sl.Day)),
			Start: strings.TrimSpace(sl.Start),
			End:   strings.TrimSpace(sl.End),
		})
	}
	return out
}
