package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFixture(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.txt")
	testContent := []byte("test fixture content")

	if err := os.WriteFile(testFile, testContent, 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	result := LoadFixture(t, testFile)
	if string(result) != string(testContent) {
		t.Errorf("expected %q, got %q", testContent, result)
	}
}

func TestLoadFixtureJSON(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.json")
	if err := os.WriteFile(testFile, []byte(`{"name":"test","value":42,"items":["a","b","c"]}`), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	var result struct {
		Name  string   `json:"name"`
		Value int      `json:"value"`
		Items []string `json:"items"`
	}
	LoadFixtureJSON(t, testFile, &result)

	if result.Name != "test" {
		t.Errorf("expected name 'test', got %v", result.Name)
	}
	if result.Value != 42 {
		t.Errorf("expected value 42, got %v", result.Value)
	}
	if len(result.Items) != 3 || result.Items[2] != "c" {
		t.Errorf("unexpected items %v", result.Items)
	}
}

func TestLoadFixtureJSON_RejectsUnknownKeys(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "typo.json")
	if err := os.WriteFile(testFile, []byte(`{"fullNme":"Amina"}`), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	rec := &recordingTB{TB: t}
	var result struct {
		FullName string `json:"fullName"`
	}
	func() {
		defer func() { _ = recover() }()
		LoadFixtureJSON(rec, testFile, &result)
	}()
	if !rec.failed {
		t.Error("expected an unknown key to fail the fixture load")
	}
}

// recordingTB captures Fatalf instead of stopping the real test.
type recordingTB struct {
	testing.TB
	failed bool
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Fatalf(format string, args ...any) {
	r.failed = true
	panic("fatal")
}

func TestFixturePath(t *testing.T) {
	if got, want := FixturePath("patients.json"), filepath.Join("testdata", "patients.json"); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestOpenDB_Isolated(t *testing.T) {
	ctx := context.Background()

	first := OpenDB(t)
	if _, err := first.ExecContext(ctx, "CREATE TABLE probe (id INTEGER)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := first.ExecContext(ctx, "INSERT INTO probe (id) VALUES (1)"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	second := OpenDB(t)
	var n int
	err := second.QueryRowContext(ctx, "SELECT count(*) FROM sqlite_master WHERE name = 'probe'").Scan(&n)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if n != 0 {
		t.Errorf("expected a fresh database, found probe table")
	}
}
