package logfields

import (
	"errors"
	"testing"
	"time"
)

func TestHelpers(t *testing.T) {
	if a := Build("dev"); a.Key != KeyBuild || a.Value.String() != "dev" {
		t.Fatalf("unexpected build attr: %v", a)
	}
	if a := Group("js_files"); a.Key != KeyGroup || a.Value.String() != "js_files" {
		t.Fatalf("unexpected group attr: %v", a)
	}
	if a := Level(3); a.Key != KeyLevel || a.Value.Int64() != 3 {
		t.Fatalf("unexpected level attr: %v", a)
	}
	if a := Duration(1500 * time.Microsecond); a.Value.Float64() != 1.5 {
		t.Fatalf("unexpected duration attr: %v", a)
	}
}

func TestErrorNilSafe(t *testing.T) {
	if a := Error(nil); a.Value.String() != "" {
		t.Fatalf("expected empty string for nil error, got %q", a.Value.String())
	}
	if a := Error(errors.New("boom")); a.Value.String() != "boom" {
		t.Fatalf("unexpected error attr: %v", a)
	}
}
