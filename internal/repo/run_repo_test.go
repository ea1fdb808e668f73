package repo

import (
	"strings"
	"testing"
)

func TestRunFilter_Normalize(t *testing.T) {
	tests := []struct {
		name       string
		filter     RunFilter
		wantLimit  int
		wantOffset int
	}{
		{"defaults", RunFilter{}, DefaultListLimit, 0},
		{"custom", RunFilter{Limit: 10, Offset: 20}, 10, 20},
		{"too large", RunFilter{Limit: 10000}, MaxListLimit, 0},
		{"negative offset", RunFilter{Limit: 5, Offset: -1}, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.filter.Normalize()
			if got.Limit != tt.wantLimit || got.Offset != tt.wantOffset {
				t.Errorf("expected limit=%d offset=%d, got limit=%d offset=%d",
					tt.wantLimit, tt.wantOffset, got.Limit, got.Offset)
			}
		})
	}
}

func TestMarshalInputs(t *testing.T) {
	b, err := marshalInputs(nil)
	if err != nil || b != nil {
		t.Errorf("empty inputs should be NULL, got %s, %v", b, err)
	}

	b, err = marshalInputs(map[string]any{"env": "prod"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != `{"env":"prod"}` {
		t.Errorf("unexpected json %s", b)
	}

	if _, err := marshalInputs(map[string]any{"bad": func() {}}); err == nil {
		t.Error("expected error for unserializable inputs")
	}
}

func TestHelpers(t *testing.T) {
	if nullString("") != nil {
		t.Error("empty string should map to NULL")
	}
	if s := nullString("x"); s == nil || *s != "x" {
		t.Error("non-empty string should be kept")
	}
	if nullInt(0) != nil {
		t.Error("zero interval should map to NULL")
	}
	if i := nullInt(90); i == nil || *i != 90 {
		t.Error("non-zero interval should be kept")
	}
	if order := nonNilOrder(nil); order == nil || len(order) != 0 {
		t.Error("nil order should become empty slice")
	}
}

func TestSchema_DoesNotStoreVisitState(t *testing.T) {
	for _, stmt := range schema {
		if strings.Contains(strings.ToLower(stmt), "visit") {
			t.Errorf("schema should store run reports only: %s", stmt)
		}
	}
}

func TestSchema_StoresScheduleState(t *testing.T) {
	var stmt string
	for _, s := range schema {
		if strings.Contains(s, "CREATE TABLE IF NOT EXISTS schedules") {
			stmt = s
		}
	}
	if stmt == "" {
		t.Fatal("schema should create schedules table")
	}
	for _, col := range []string{"name", "next_due_at", "last_run_at", "last_run_id"} {
		if !strings.Contains(stmt, col) {
			t.Errorf("schedules table should have column %s", col)
		}
	}
}
