package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/wacampaign/campaign-scheduler/environments"
	"github.com/wacampaign/campaign-scheduler/internal/domain"
	"github.com/wacampaign/campaign-scheduler/internal/scheduler"
)

type emptySource struct{}

func (emptySource) ListDue(ctx context.Context, today time.Time) ([]domain.Campaign, error) {
	return nil, nil
}

func (emptySource) GetByID(ctx context.Context, id int64) (*domain.Campaign, error) {
	return nil, nil
}

func (emptySource) CompleteExpired(ctx context.Context, id int64) error {
	return nil
}

type idleRunner struct{}

func (idleRunner) RunCampaign(ctx context.Context, c *domain.Campaign, now time.Time) (*domain.RunResult, error) {
	return &domain.RunResult{CampaignID: c.ID}, nil
}

func (idleRunner) FlagInvalidSchedule(ctx context.Context, c *domain.Campaign, cause error) {}

func newTestSchedulerHandler(minSpacing time.Duration) *SchedulerHandler {
	sched := scheduler.NewScheduler(emptySource{}, idleRunner{}, nil, environments.SchedulerConfig{
		TickInterval: time.Hour,
		MinSpacing:   minSpacing,
		Tolerance:    3 * time.Minute,
		Workers:      1,
	}, time.UTC)
	return NewSchedulerHandler(sched, context.Background())
}

func TestTriggerTick_SecondTickInsideSpacingConflicts(t *testing.T) {
	e := echo.New()
	h := newTestSchedulerHandler(time.Hour)

	c, rec := newRequest(e, http.MethodPost, "/api/v1/scheduler/tick", "")
	if err := h.TriggerTick(c); err != nil {
		t.Fatalf("TriggerTick returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	c, rec = newRequest(e, http.MethodPost, "/api/v1/scheduler/tick", "")
	if err := h.TriggerTick(c); err != nil {
		t.Fatalf("TriggerTick returned error: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, rec.Code)
	}
}

func TestSchedulerHandler_StartStatusStop(t *testing.T) {
	e := echo.New()
	h := newTestSchedulerHandler(0)

	c, rec := newRequest(e, http.MethodPost, "/api/v1/scheduler/start", "")
	if err := h.StartScheduler(c); err != nil {
		t.Fatalf("StartScheduler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	c, rec = newRequest(e, http.MethodGet, "/api/v1/scheduler/status", "")
	if err := h.GetSchedulerStatus(c); err != nil {
		t.Fatalf("GetSchedulerStatus returned error: %v", err)
	}

	var body struct {
		Data scheduler.SchedulerStatus `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response body: %v", err)
	}
	if !body.Data.Running {
		t.Fatalf("expected running status, got %+v", body.Data)
	}

	c, rec = newRequest(e, http.MethodPost, "/api/v1/scheduler/stop", "")
	if err := h.StopScheduler(c); err != nil {
		t.Fatalf("StopScheduler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}
