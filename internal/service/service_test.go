package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/go-logr/logr"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"

	"github.com/Victorkib/mentacare-backend-admin/cache"
	"github.com/Victorkib/mentacare-backend-admin/internal/auth"
	"github.com/Victorkib/mentacare-backend-admin/internal/blob"
	"github.com/Victorkib/mentacare-backend-admin/internal/domain"
	"github.com/Victorkib/mentacare-backend-admin/internal/store"
	"github.com/Victorkib/mentacare-backend-admin/pkg/testsupport"
	"github.com/Victorkib/mentacare-backend-admin/repositorycache"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	db        *bun.DB
	clock     *cache.ManualClock
	cache     cache.Store
	blob      *blob.Memory
	blacklist *auth.MemoryBlacklist

	patientStore   *store.PatientStore
	therapistStore *store.TherapistStore
	sessionStore   *store.SessionStore

	patients   *PatientService
	therapists *TherapistService
	sessions   *SessionService
	admins     *AdminService
	auth       *AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testsupport.OpenDB(t)
	if err := store.CreateSchema(context.Background(), db); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	clock := cache.NewManualClock(testNow)
	c := cache.NewLRU(cache.Config{Backend: cache.BackendLRU, Capacity: 1000, DefaultTTL: time.Minute, Clock: clock})
	mem := blob.NewMemory()

	env := &testEnv{
		db:             db,
		clock:          clock,
		cache:          c,
		blob:           mem,
		blacklist:      auth.NewMemoryBlacklist(),
		patientStore:   store.NewPatientStore(db),
		therapistStore: store.NewTherapistStore(db),
		sessionStore:   store.NewSessionStore(db),
	}
	deps := Deps{DB: db, Cache: c, Clock: clock, Log: logr.Discard(), Blob: mem}

	admins := repositorycache.New(store.NewAdminRepository(db), c, repositorycache.WithNamespace(cache.RegionAdmins))
	hasher := auth.NewHasherWithParams(&argon2id.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16})
	tokens := auth.NewManager(auth.TokenConfig{
		AccessSecret:  "access-secret-0123456789",
		RefreshSecret: "refresh-secret-0123456789",
		Issuer:        "mentacare-test",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	})

	env.patients = NewPatientService(deps, env.patientStore, env.therapistStore)
	env.therapists = NewTherapistService(deps, env.therapistStore, env.patientStore)
	env.admins = NewAdminService(deps, admins, hasher)
	env.sessions = NewSessionService(deps, env.sessionStore, env.patientStore, env.therapistStore, env.admins)
	env.auth = NewAuthService(deps, admins, tokens, hasher, env.blacklist)
	return env
}

func (e *testEnv) seedPatients(t *testing.T) []domain.Patient {
	t.Helper()
	inputs := testsupport.Fixture[[]PatientInput](t, "patients.json")
	out := make([]domain.Patient, 0, len(inputs))
	for _, in := range inputs {
		p, err := e.patients.Create(context.Background(), in)
		if err != nil {
			t.Fatalf("create patient %s: %v", in.Email, err)
		}
		out = append(out, p)
		e.clock.Advance(time.Minute)
	}
	return out
}

func (e *testEnv) seedTherapists(t *testing.T) []domain.Therapist {
	t.Helper()
	inputs := testsupport.Fixture[[]TherapistInput](t, "therapists.json")
	out := make([]domain.Therapist, 0, len(inputs))
	for _, in := range inputs {
		th, err := e.therapists.Create(context.Background(), in)
		if err != nil {
			t.Fatalf("create therapist %s: %v", in.Email, err)
		}
		out = append(out, th)
		e.clock.Advance(time.Minute)
	}
	return out
}

func hasCategory(err error, cat goerrors.Category) bool {
	return err != nil && goerrors.IsCategory(err, cat)
}

func metadataOf(err error) map[string]any {
	var ge *goerrors.Error
	if errors.As(err, &ge) {
		return ge.Metadata
	}
	return nil
}
