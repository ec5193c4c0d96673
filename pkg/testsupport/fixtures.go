package testsupport

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// LoadFixture reads a fixture file. The path is relative to the test package
// directory.
func LoadFixture(t testing.TB, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}
	return data
}

// LoadFixtureJSON decodes a JSON fixture into dest. Unknown keys fail the
// test so a renamed request field cannot silently drop fixture data.
func LoadFixtureJSON(t testing.TB, path string, dest any) {
	t.Helper()

	dec := json.NewDecoder(bytes.NewReader(LoadFixture(t, path)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		t.Fatalf("failed to decode JSON fixture %s: %v", path, err)
	}
}

// Fixture decodes testdata/<name> into a T.
func Fixture[T any](t testing.TB, name string) T {
	t.Helper()

	var v T
	LoadFixtureJSON(t, FixturePath(name), &v)
	return v
}

// FixturePath joins filename onto the package testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}
