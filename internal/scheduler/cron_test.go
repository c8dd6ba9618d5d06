package scheduler

import (
	"testing"
	"time"
)

func TestParseCron_Valid(t *testing.T) {
	for _, spec := range []string{"*/5 * * * *", "@hourly", "@every 30s"} {
		expr, err := ParseCron(spec)
		if err != nil {
			t.Fatalf("ParseCron(%q): %v", spec, err)
		}
		if expr.String() != spec {
			t.Fatalf("expected raw %q, got %q", spec, expr.String())
		}
	}
}

func TestParseCron_Invalid(t *testing.T) {
	if _, err := ParseCron("not a cron"); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestCronExpr_Next(t *testing.T) {
	expr, err := ParseCron("0 12 * * *") // every day at noon
	if err != nil {
		t.Fatalf("ParseCron: %v", err)
	}

	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	expected := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	if next := expr.Next(base); !next.Equal(expected) {
		t.Fatalf("expected next %v, got %v", expected, next)
	}
}

func TestCronExpr_NextEvery(t *testing.T) {
	expr, err := ParseCron("@every 30s")
	if err != nil {
		t.Fatalf("ParseCron: %v", err)
	}
	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	if next := expr.Next(base); !next.Equal(base.Add(30 * time.Second)) {
		t.Fatalf("expected next %v, got %v", base.Add(30*time.Second), next)
	}
}
