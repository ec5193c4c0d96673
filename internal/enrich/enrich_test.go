package enrich

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type patient struct {
	id          string
	therapistID string
	therapist   *string
}

type recordingLookup struct {
	known   map[string]string
	batches [][]string
	failOn  int
}

func (l *recordingLookup) lookup(ctx context.Context, ids []string) (map[string]string, error) {
	l.batches = append(l.batches, append([]string(nil), ids...))
	if l.failOn > 0 && len(l.batches) == l.failOn {
		return nil, errors.New("lookup failed")
	}
	out := make(map[string]string)
	for _, id := range ids {
		if name, ok := l.known[id]; ok {
			out[id] = name
		}
	}
	return out, nil
}

func therapistOf(p patient) (string, bool) {
	return p.therapistID, p.therapistID != ""
}

func attachTherapist(p *patient, name string) {
	p.therapist = &name
}

func TestJoin_TwentyFiveDistinctIDsUseThreeBatches(t *testing.T) {
	known := make(map[string]string)
	var records []patient
	for i := 0; i < 25; i++ {
		id := fmt.Sprintf("t%02d", i)
		if i != 7 {
			known[id] = "Therapist " + id
		}
		records = append(records, patient{id: fmt.Sprintf("p%02d", i), therapistID: id})
	}
	// repeated and empty references must not create extra lookups
	records = append(records, patient{id: "dup", therapistID: "t00"}, patient{id: "none"})

	l := &recordingLookup{known: known}
	if err := Join(context.Background(), records, therapistOf, l.lookup, attachTherapist); err != nil {
		t.Fatalf("Join: %v", err)
	}

	if len(l.batches) != 3 {
		t.Fatalf("lookups = %d, want 3", len(l.batches))
	}
	for i, b := range l.batches {
		if len(b) > BatchSize {
			t.Errorf("batch %d has %d ids", i, len(b))
		}
	}
	if len(records) != 27 {
		t.Fatalf("records were dropped: %d", len(records))
	}

	for _, r := range records {
		switch {
		case r.therapistID == "" || r.therapistID == "t07":
			if r.therapist != nil {
				t.Errorf("%s should have no projection", r.id)
			}
		default:
			if r.therapist == nil || *r.therapist != "Therapist "+r.therapistID {
				t.Errorf("%s missing projection", r.id)
			}
		}
	}
}

func TestJoin_NoReferencesSkipsLookup(t *testing.T) {
	l := &recordingLookup{}
	records := []patient{{id: "a"}, {id: "b"}}

	if err := Join(context.Background(), records, therapistOf, l.lookup, attachTherapist); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if len(l.batches) != 0 {
		t.Errorf("expected no lookups, got %d", len(l.batches))
	}
}

func TestJoin_LookupErrorFailsWholeCall(t *testing.T) {
	var records []patient
	for i := 0; i < 15; i++ {
		records = append(records, patient{therapistID: fmt.Sprintf("t%d", i)})
	}
	l := &recordingLookup{known: map[string]string{}, failOn: 2}

	if err := Join(context.Background(), records, therapistOf, l.lookup, attachTherapist); err == nil {
		t.Fatal("expected error")
	}
}

func TestCount_FillsZeros(t *testing.T) {
	counter := func(ctx context.Context, ids []string) (map[string]int, error) {
		out := map[string]int{}
		for _, id := range ids {
			if id == "busy" {
				out[id] = 4
			}
		}
		return out, nil
	}

	counts, err := Count(context.Background(), []string{"busy", "idle", "busy"}, counter)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if counts["busy"] != 4 {
		t.Errorf("busy = %d, want 4", counts["busy"])
	}
	if v, ok := counts["idle"]; !ok || v != 0 {
		t.Errorf("idle = %d, %v; want 0, true", v, ok)
	}
}

func TestDistinctAndBatches(t *testing.T) {
	ids := Distinct([]string{"a", "", "b", "a", "c"})
	if len(ids) != 3 || ids[0] != "a" || ids[2] != "c" {
		t.Errorf("Distinct = %v", ids)
	}

	var many []int
	for i := 1; i <= 21; i++ {
		many = append(many, i)
	}
	batches := Batches(many, BatchSize)
	if len(batches) != 3 || len(batches[2]) != 1 {
		t.Errorf("Batches produced %d chunks", len(batches))
	}
	if Batches([]int{}, 10) != nil {
		t.Error("no ids should produce no batches")
	}
}
