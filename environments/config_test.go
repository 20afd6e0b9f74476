package environments

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Scheduler.Tolerance != 3*time.Minute {
		t.Errorf("expected default tolerance 3m, got %v", cfg.Scheduler.Tolerance)
	}
	if cfg.Scheduler.TickInterval != time.Minute {
		t.Errorf("expected default tick interval 1m, got %v", cfg.Scheduler.TickInterval)
	}
	if cfg.Delivery.CountryCode != "55" {
		t.Errorf("expected default country code 55, got %q", cfg.Delivery.CountryCode)
	}
}

func TestLoad_OverridesFromEnvironment(t *testing.T) {
	t.Setenv("SCHEDULER_TOLERANCE_MINUTES", "5")
	t.Setenv("COOLDOWN_WINDOW", "30m")
	t.Setenv("AUTO_START_SCHEDULER", "false")
	t.Setenv("SCHEDULER_WORKERS", "not-a-number")

	cfg := Load()

	if cfg.Scheduler.Tolerance != 5*time.Minute {
		t.Errorf("expected tolerance 5m, got %v", cfg.Scheduler.Tolerance)
	}
	if cfg.Delivery.CooldownWindow != 30*time.Minute {
		t.Errorf("expected cooldown 30m, got %v", cfg.Delivery.CooldownWindow)
	}
	if cfg.Scheduler.AutoStart {
		t.Errorf("expected auto start to be disabled")
	}
	if cfg.Scheduler.Workers != 2 {
		t.Errorf("expected invalid int to fall back to default 2, got %d", cfg.Scheduler.Workers)
	}
}

func TestSchedulerConfig_Location(t *testing.T) {
	loc, err := SchedulerConfig{Timezone: "UTC"}.Location()
	if err != nil {
		t.Fatalf("Location returned error: %v", err)
	}
	if loc.String() != "UTC" {
		t.Fatalf("expected UTC, got %s", loc)
	}
}
