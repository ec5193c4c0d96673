package repositorycache

import (
	"context"
	"errors"
	"testing"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/Victorkib/mentacare-backend-admin/cache"
)

// TestUser represents a test entity
type TestUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// mockRepository is a comprehensive mock that tracks method calls for testing
type mockRepository[T any] struct {
	calls         []string
	getResult     T
	getError      error
	getByIDResult T
	getByIDError  error
	listRecords   []T
	listTotal     int
	listError     error
	countResult   int
	countError    error
	identResult   T
	identError    error
	createResult  T
	createError   error
	updateResult  T
	updateError   error
	deleteError   error
}

func (m *mockRepository[T]) recordCall(method string) {
	m.calls = append(m.calls, method)
}

func (m *mockRepository[T]) count(method string) int {
	n := 0
	for _, c := range m.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (m *mockRepository[T]) Get(ctx context.Context, criteria ...repository.SelectCriteria) (T, error) {
	m.recordCall("Get")
	return m.getResult, m.getError
}

func (m *mockRepository[T]) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (T, error) {
	m.recordCall("GetByID")
	return m.getByIDResult, m.getByIDError
}

func (m *mockRepository[T]) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, int, error) {
	m.recordCall("List")
	return m.listRecords, m.listTotal, m.listError
}

func (m *mockRepository[T]) Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error) {
	m.recordCall("Count")
	return m.countResult, m.countError
}

func (m *mockRepository[T]) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	m.recordCall("GetByIdentifier")
	return m.identResult, m.identError
}

func (m *mockRepository[T]) Create(ctx context.Context, record T, criteria ...repository.InsertCriteria) (T, error) {
	m.recordCall("Create")
	return m.createResult, m.createError
}

func (m *mockRepository[T]) Update(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	m.recordCall("Update")
	return m.updateResult, m.updateError
}

func (m *mockRepository[T]) Delete(ctx context.Context, record T) error {
	m.recordCall("Delete")
	return m.deleteError
}

// Other methods that panic to ensure they're not called during our tests
func (m *mockRepository[T]) Raw(ctx context.Context, sql string, args ...any) ([]T, error) {
	panic("Raw not implemented in mock - should not be called in cache tests")
}
func (m *mockRepository[T]) RawTx(ctx context.Context, tx bun.IDB, sql string, args ...any) ([]T, error) {
	panic("RawTx not implemented in mock")
}
func (m *mockRepository[T]) GetTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (T, error) {
	panic("GetTx not implemented in mock")
}
func (m *mockRepository[T]) GetByIDTx(ctx context.Context, tx bun.IDB, id string, criteria ...repository.SelectCriteria) (T, error) {
	m.recordCall("GetByIDTx")
	return m.getByIDResult, m.getByIDError
}
func (m *mockRepository[T]) ListTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) ([]T, int, error) {
	panic("ListTx not implemented in mock")
}
func (m *mockRepository[T]) CountTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (int, error) {
	panic("CountTx not implemented in mock")
}
func (m *mockRepository[T]) CreateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.InsertCriteria) (T, error) {
	panic("CreateTx not implemented in mock")
}
func (m *mockRepository[T]) CreateMany(ctx context.Context, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	panic("CreateMany not implemented in mock")
}
func (m *mockRepository[T]) CreateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	panic("CreateManyTx not implemented in mock")
}
func (m *mockRepository[T]) GetOrCreate(ctx context.Context, record T) (T, error) {
	panic("GetOrCreate not implemented in mock")
}
func (m *mockRepository[T]) GetOrCreateTx(ctx context.Context, tx bun.IDB, record T) (T, error) {
	panic("GetOrCreateTx not implemented in mock")
}
func (m *mockRepository[T]) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	panic("GetByIdentifierTx not implemented in mock")
}
func (m *mockRepository[T]) UpdateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	m.recordCall("UpdateTx")
	return m.updateResult, m.updateError
}
func (m *mockRepository[T]) UpdateMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	panic("UpdateMany not implemented in mock")
}
func (m *mockRepository[T]) UpdateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	panic("UpdateManyTx not implemented in mock")
}
func (m *mockRepository[T]) Upsert(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	panic("Upsert not implemented in mock")
}
func (m *mockRepository[T]) UpsertTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	panic("UpsertTx not implemented in mock")
}
func (m *mockRepository[T]) UpsertMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	panic("UpsertMany not implemented in mock")
}
func (m *mockRepository[T]) UpsertManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	panic("UpsertManyTx not implemented in mock")
}
func (m *mockRepository[T]) DeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	m.recordCall("DeleteTx")
	return m.deleteError
}
func (m *mockRepository[T]) DeleteMany(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	panic("DeleteMany not implemented in mock")
}
func (m *mockRepository[T]) DeleteManyTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	panic("DeleteManyTx not implemented in mock")
}
func (m *mockRepository[T]) DeleteWhere(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	panic("DeleteWhere not implemented in mock")
}
func (m *mockRepository[T]) DeleteWhereTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	panic("DeleteWhereTx not implemented in mock")
}
func (m *mockRepository[T]) ForceDelete(ctx context.Context, record T) error {
	panic("ForceDelete not implemented in mock")
}
func (m *mockRepository[T]) ForceDeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	panic("ForceDeleteTx not implemented in mock")
}
func (m *mockRepository[T]) Handlers() repository.ModelHandlers[T] {
	panic("Handlers not implemented in mock")
}


func newTestStore() (cache.Store, *cache.ManualClock) {
	clock := cache.NewManualClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	return cache.NewLRU(cache.Config{Capacity: 100, DefaultTTL: time.Minute, Clock: clock}), clock
}

func byName(name string) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery { return q.Where("name = ?", name) }
}

func TestNew_Namespace(t *testing.T) {
	store, _ := newTestStore()
	base := &mockRepository[*TestUser]{}

	if ns := New[*TestUser](base, store).Namespace(); ns != "test_users" {
		t.Errorf("expected default namespace test_users, got %q", ns)
	}
	if ns := New[*TestUser](base, store, WithNamespace("admins")).Namespace(); ns != "admins" {
		t.Errorf("expected namespace admins, got %q", ns)
	}
}

func TestCachedReads_HitAfterMiss(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()
	base := &mockRepository[*TestUser]{
		getByIDResult: &TestUser{ID: "1", Name: "Ada"},
		identResult:   &TestUser{ID: "1", Name: "Ada"},
		listRecords:   []*TestUser{{ID: "1", Name: "Ada"}, {ID: "2", Name: "Grace"}},
		listTotal:     2,
		countResult:   2,
	}
	repo := New[*TestUser](base, store, WithNamespace("admins"))

	for i := 0; i < 3; i++ {
		user, err := repo.GetByID(ctx, "1")
		if err != nil || user.Name != "Ada" {
			t.Fatalf("GetByID: %v %+v", err, user)
		}
		records, total, err := repo.List(ctx)
		if err != nil || total != 2 || len(records) != 2 || records[1].Name != "Grace" {
			t.Fatalf("List: %v %d %+v", err, total, records)
		}
		n, err := repo.Count(ctx)
		if err != nil || n != 2 {
			t.Fatalf("Count: %v %d", err, n)
		}
		if _, err := repo.GetByIdentifier(ctx, "ada@example.com"); err != nil {
			t.Fatalf("GetByIdentifier: %v", err)
		}
	}

	for _, method := range []string{"GetByID", "List", "Count", "GetByIdentifier"} {
		if n := base.count(method); n != 1 {
			t.Errorf("expected %s to reach the base once, got %d", method, n)
		}
	}
	if store.Len() != 4 {
		t.Errorf("expected 4 cached entries, got %d", store.Len())
	}
}

func TestCachedReads_ReturnIndependentCopies(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()
	base := &mockRepository[*TestUser]{getByIDResult: &TestUser{ID: "1", Name: "Ada"}}
	repo := New[*TestUser](base, store)

	first, _ := repo.GetByID(ctx, "1")
	first.Name = "changed"

	second, err := repo.GetByID(ctx, "1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if second.Name != "Ada" {
		t.Errorf("expected cached copy to be unaffected, got %q", second.Name)
	}
}

func TestCachedReads_CriteriaBypassCache(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()
	base := &mockRepository[*TestUser]{getByIDResult: &TestUser{ID: "1"}}
	repo := New[*TestUser](base, store)

	for i := 0; i < 2; i++ {
		if _, err := repo.GetByID(ctx, "1", byName("Ada")); err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if _, _, err := repo.List(ctx, byName("Ada")); err != nil {
			t.Fatalf("List: %v", err)
		}
	}
	if base.count("GetByID") != 2 || base.count("List") != 2 {
		t.Errorf("expected criteria calls to bypass the cache, got %v", base.calls)
	}
	if store.Len() != 0 {
		t.Errorf("expected nothing cached, got %d", store.Len())
	}
}

func TestCachedReads_ErrorsNotCached(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()
	base := &mockRepository[*TestUser]{getByIDError: errors.New("boom")}
	repo := New[*TestUser](base, store)

	for i := 0; i < 2; i++ {
		if _, err := repo.GetByID(ctx, "1"); err == nil {
			t.Fatal("expected error")
		}
	}
	if base.count("GetByID") != 2 {
		t.Errorf("expected errors to be refetched, got %d calls", base.count("GetByID"))
	}
}

func TestCachedReads_ExpireWithTTL(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestStore()
	base := &mockRepository[*TestUser]{getByIDResult: &TestUser{ID: "1"}}
	repo := New[*TestUser](base, store, WithTTL(30*time.Second))

	_, _ = repo.GetByID(ctx, "1")
	clock.Advance(29 * time.Second)
	_, _ = repo.GetByID(ctx, "1")
	clock.Advance(time.Second)
	_, _ = repo.GetByID(ctx, "1")

	if n := base.count("GetByID"); n != 2 {
		t.Errorf("expected a refetch once the ttl elapsed, got %d calls", n)
	}
}

func TestWrites_InvalidateNamespace(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		write func(r *CachedRepository[*TestUser]) error
	}{
		{"Create", func(r *CachedRepository[*TestUser]) error {
			_, err := r.Create(ctx, &TestUser{ID: "3"})
			return err
		}},
		{"Update", func(r *CachedRepository[*TestUser]) error {
			_, err := r.Update(ctx, &TestUser{ID: "1"})
			return err
		}},
		{"UpdateTx", func(r *CachedRepository[*TestUser]) error {
			_, err := r.UpdateTx(ctx, nil, &TestUser{ID: "1"})
			return err
		}},
		{"Delete", func(r *CachedRepository[*TestUser]) error {
			return r.Delete(ctx, &TestUser{ID: "1"})
		}},
		{"DeleteTx", func(r *CachedRepository[*TestUser]) error {
			return r.DeleteTx(ctx, nil, &TestUser{ID: "1"})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTestStore()
			store.Set("patients.List", []byte{0x90}, time.Minute)
			base := &mockRepository[*TestUser]{getByIDResult: &TestUser{ID: "1"}}
			repo := New[*TestUser](base, store, WithNamespace("admins"))

			_, _ = repo.GetByID(ctx, "1")
			if err := tt.write(repo); err != nil {
				t.Fatalf("%s: %v", tt.name, err)
			}
			_, _ = repo.GetByID(ctx, "1")

			if n := base.count("GetByID"); n != 2 {
				t.Errorf("expected refetch after %s, got %d calls", tt.name, n)
			}
			if _, ok := store.Get("patients.List"); !ok {
				t.Error("expected other namespaces to survive")
			}
		})
	}
}

func TestWrites_FailureKeepsCache(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()
	base := &mockRepository[*TestUser]{
		getByIDResult: &TestUser{ID: "1"},
		updateError:   errors.New("conflict"),
	}
	repo := New[*TestUser](base, store)

	_, _ = repo.GetByID(ctx, "1")
	if _, err := repo.Update(ctx, &TestUser{ID: "1"}); err == nil {
		t.Fatal("expected update error")
	}
	_, _ = repo.GetByID(ctx, "1")

	if n := base.count("GetByID"); n != 1 {
		t.Errorf("expected cache to survive a failed write, got %d calls", n)
	}
}

func TestTxReads_PassThrough(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()
	base := &mockRepository[*TestUser]{getByIDResult: &TestUser{ID: "1"}}
	repo := New[*TestUser](base, store)

	for i := 0; i < 2; i++ {
		if _, err := repo.GetByIDTx(ctx, nil, "1"); err != nil {
			t.Fatalf("GetByIDTx: %v", err)
		}
	}
	if n := base.count("GetByIDTx"); n != 2 {
		t.Errorf("expected tx reads to bypass the cache, got %d", n)
	}
	if store.Len() != 0 {
		t.Errorf("expected nothing cached, got %d", store.Len())
	}
}

func TestRegionName(t *testing.T) {
	tests := map[string]string{
		"TestUser":              "test_users",
		"Admin":                 "admins",
		"HTTPRequest":           "http_requests",
		"*domain.Session":       "domain_sessions",
		"TherapistAvailability": "therapist_availabilities",
		"SessionStatus":         "session_statuses",
		"User2FA":               "user_2_fas",
		"V2":                    "v_2",
		"":                      "",
	}
	for in, want := range tests {
		if got := regionName(in); got != want {
			t.Errorf("regionName(%q) = %q, want %q", in, got, want)
		}
	}
}
