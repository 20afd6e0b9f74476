package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wacampaign/campaign-scheduler/environments"
	"github.com/wacampaign/campaign-scheduler/internal/domain"
	"github.com/wacampaign/campaign-scheduler/internal/schedule"
	"github.com/wacampaign/campaign-scheduler/pkg/logger"
	"github.com/wacampaign/campaign-scheduler/pkg/webhook"
)

var (
	ErrTickInFlight = errors.New("a scheduler tick is already in flight")
	ErrTickTooSoon  = errors.New("scheduler tick requested before minimum spacing elapsed")
)

// Small internal interfaces so the loop can be unit tested with fakes.
type campaignSource interface {
	ListDue(ctx context.Context, today time.Time) ([]domain.Campaign, error)
	GetByID(ctx context.Context, id int64) (*domain.Campaign, error)
	CompleteExpired(ctx context.Context, id int64) error
}

type campaignRunner interface {
	RunCampaign(ctx context.Context, c *domain.Campaign, now time.Time) (*domain.RunResult, error)
	FlagInvalidSchedule(ctx context.Context, c *domain.Campaign, cause error)
}

type alertSender interface {
	SendAlert(ctx context.Context, alert webhook.Alert) error
}

type Scheduler struct {
	campaigns campaignSource
	runner    campaignRunner
	alerts    alertSender

	interval   time.Duration
	minSpacing time.Duration
	tolerance  time.Duration
	workers    int
	loc        *time.Location
	now        func() time.Time

	// Internal state
	inFlight atomic.Bool
	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
	mu       sync.RWMutex

	// Statistics
	lastTickAt      time.Time
	lastTickID      string
	ticksCount      int64
	skippedTicks    int64
	campaignsFired  int64
	messagesSent    int64
	pausedCampaigns int64
	lastAlertSentAt time.Time
}

func NewScheduler(
	campaigns campaignSource,
	runner campaignRunner,
	alerts alertSender,
	cfg environments.SchedulerConfig,
	loc *time.Location,
) *Scheduler {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Scheduler{
		campaigns:  campaigns,
		runner:     runner,
		alerts:     alerts,
		interval:   cfg.TickInterval,
		minSpacing: cfg.MinSpacing,
		tolerance:  cfg.Tolerance,
		workers:    workers,
		loc:        loc,
		now:        time.Now,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()

	if s.running {
		s.mu.Unlock()
		logger.Warnf("Scheduler is already running")
		return nil
	}

	s.running = true
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})
	stopChan := s.stopChan
	doneChan := s.doneChan
	s.mu.Unlock()

	logger.Infof("Starting scheduler with interval: %v", s.interval)

	go s.run(ctx, stopChan, doneChan)

	return nil
}

func (s *Scheduler) run(ctx context.Context, stopChan, doneChan chan struct{}) {
	defer close(doneChan)

	s.tickFromLoop(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tickFromLoop(ctx)

		case <-stopChan:
			logger.Warnf("Scheduler received stop signal")
			return

		case <-ctx.Done():
			logger.Warnf("Scheduler context cancelled")
			return
		}
	}
}

func (s *Scheduler) tickFromLoop(ctx context.Context) {
	report, err := s.Tick(ctx)
	switch {
	case errors.Is(err, ErrTickInFlight), errors.Is(err, ErrTickTooSoon):
		logger.Debugf("Skipping tick: %v", err)
	case err != nil:
		logger.Errorf("Tick failed: %v", err)
	default:
		logger.Debugf("[Tick %s] Next tick in %v", report.ID, s.interval)
	}
}

// TickReport summarises one scheduler tick.
type TickReport struct {
	ID        string             `json:"id"`
	At        time.Time          `json:"at"`
	Evaluated int                `json:"evaluated"`
	Due       int                `json:"due"`
	Flagged   int                `json:"flagged"`
	Completed int                `json:"completed"`
	Deferred  int                `json:"deferred"`
	Results   []domain.RunResult `json:"results"`
}

// Tick evaluates every active campaign once. A tick started while another is
// still running returns ErrTickInFlight without doing anything.
func (s *Scheduler) Tick(ctx context.Context) (*TickReport, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.countSkipped()
		return nil, ErrTickInFlight
	}
	defer s.inFlight.Store(false)

	now := s.now().In(s.loc)

	s.mu.Lock()
	if !s.lastTickAt.IsZero() && now.Sub(s.lastTickAt) < s.minSpacing {
		s.skippedTicks++
		s.mu.Unlock()
		return nil, ErrTickTooSoon
	}
	s.lastTickAt = now
	s.ticksCount++
	s.lastTickID = uuid.NewString()
	report := &TickReport{ID: s.lastTickID, At: now}
	stopChan := s.stopChan
	s.mu.Unlock()

	campaigns, err := s.campaigns.ListDue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaigns: %w", err)
	}
	report.Evaluated = len(campaigns)

	type dueCampaign struct {
		campaign domain.Campaign
		slot     schedule.Slot
	}

	var due []dueCampaign
	for _, c := range campaigns {
		decision := schedule.Evaluate(&c, now, s.tolerance)
		switch {
		case decision.Due:
			due = append(due, dueCampaign{campaign: c, slot: decision.Slot})
		case decision.Reason == schedule.ReasonInvalidSchedule:
			report.Flagged++
			s.runner.FlagInvalidSchedule(ctx, &c, decision.Err)
		case decision.Reason == schedule.ReasonExpired:
			if s.completeExpired(ctx, &c) {
				report.Completed++
			}
		default:
			logger.Debugf("[Tick %s] Campaign %d not due: %s", report.ID, c.ID, decision.Reason)
		}
	}
	report.Due = len(due)

	logger.Infof("[Tick %s] %d campaigns evaluated, %d due at %s", report.ID, len(campaigns), len(due), now.Format(time.RFC3339))

	var (
		g       errgroup.Group
		results sync.Mutex
	)
	g.SetLimit(s.workers)

	// Started campaigns run to the end; the stop signal is only checked
	// between campaigns.
	runCtx := context.WithoutCancel(ctx)

	for i, d := range due {
		if stopped(stopChan) {
			report.Deferred = len(due) - i
			logger.Warnf("[Tick %s] Stop requested, deferring %d campaigns", report.ID, report.Deferred)
			break
		}

		g.Go(func() error {
			res, err := s.runner.RunCampaign(runCtx, &d.campaign, now)
			if err != nil {
				logger.Errorf("[Tick %s] Campaign %d failed: %v", report.ID, d.campaign.ID, err)
				if res == nil {
					return nil
				}
			}
			res.Slot = d.slot.String()

			results.Lock()
			report.Results = append(report.Results, *res)
			results.Unlock()

			s.recordRun(runCtx, &d.campaign, res)
			return nil
		})
	}
	_ = g.Wait()

	return report, nil
}

// RunOutcome is the answer to an on-demand campaign evaluation.
type RunOutcome struct {
	Fired  bool              `json:"fired"`
	Reason schedule.Reason   `json:"reason"`
	Result *domain.RunResult `json:"result,omitempty"`
}

// RunCampaignNow evaluates a single campaign immediately, under the same
// in-flight guard and eligibility rules as a tick.
func (s *Scheduler) RunCampaignNow(ctx context.Context, id int64) (*RunOutcome, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrTickInFlight
	}
	defer s.inFlight.Store(false)

	c, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !c.Active {
		return &RunOutcome{Reason: schedule.ReasonInactive}, nil
	}

	now := s.now().In(s.loc)
	decision := schedule.Evaluate(c, now, s.tolerance)
	if !decision.Due {
		switch decision.Reason {
		case schedule.ReasonInvalidSchedule:
			s.runner.FlagInvalidSchedule(ctx, c, decision.Err)
		case schedule.ReasonExpired:
			s.completeExpired(ctx, c)
		}
		return &RunOutcome{Reason: decision.Reason}, nil
	}

	runCtx := context.WithoutCancel(ctx)
	res, err := s.runner.RunCampaign(runCtx, c, now)
	if err != nil {
		return nil, err
	}
	res.Slot = decision.Slot.String()
	s.recordRun(runCtx, c, res)

	return &RunOutcome{Fired: true, Reason: decision.Reason, Result: res}, nil
}

// completeExpired retires a campaign that can no longer fire, such as a
// one-shot campaign whose date or last window passed without a run.
func (s *Scheduler) completeExpired(ctx context.Context, c *domain.Campaign) bool {
	if err := s.campaigns.CompleteExpired(ctx, c.ID); err != nil {
		logger.Errorf("Failed to complete expired campaign %d: %v", c.ID, err)
		return false
	}
	logger.Infof("Campaign %d has no remaining executions, marked completed", c.ID)
	return true
}

func (s *Scheduler) recordRun(ctx context.Context, c *domain.Campaign, res *domain.RunResult) {
	s.mu.Lock()
	s.campaignsFired++
	s.messagesSent += int64(res.Sent)
	paused := res.Status == domain.CampaignPausedSessionError
	if paused {
		s.pausedCampaigns++
	}
	s.mu.Unlock()

	if paused {
		s.sendAlert(ctx, c, res)
	}
}

func (s *Scheduler) sendAlert(ctx context.Context, c *domain.Campaign, res *domain.RunResult) {
	if s.alerts == nil {
		return
	}

	alert := webhook.Alert{
		Event:      "campaign_paused",
		CampaignID: c.ID,
		Campaign:   c.Name,
		Detail: fmt.Sprintf("provider session lost after %d sends, %d recipients abandoned",
			res.Sent, res.Abandoned),
		OccurredAt: s.now(),
	}

	if err := s.alerts.SendAlert(ctx, alert); err != nil {
		logger.Errorf("Failed to send pause alert for campaign %d: %v", c.ID, err)
		return
	}

	s.mu.Lock()
	s.lastAlertSentAt = s.now()
	s.mu.Unlock()
}

func (s *Scheduler) countSkipped() {
	s.mu.Lock()
	s.skippedTicks++
	s.mu.Unlock()
}

func stopped(stopChan chan struct{}) bool {
	if stopChan == nil {
		return false
	}
	select {
	case <-stopChan:
		return true
	default:
		return false
	}
}

func (s *Scheduler) Stop() error {
	s.mu.Lock()

	if !s.running {
		s.mu.Unlock()
		logger.Warnf("Scheduler is not running")
		return nil
	}

	s.running = false
	stopChan := s.stopChan
	doneChan := s.doneChan
	s.mu.Unlock()

	// Send stop signal
	close(stopChan)

	// Wait for the current tick to drain
	<-doneChan

	logger.Infof("Scheduler stopped")
	return nil
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Scheduler) GetStatus() SchedulerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := SchedulerStatus{
		Running:         s.running,
		TickInFlight:    s.inFlight.Load(),
		LastTickAt:      s.lastTickAt,
		LastTickID:      s.lastTickID,
		Interval:        s.interval,
		TicksCount:      s.ticksCount,
		SkippedTicks:    s.skippedTicks,
		CampaignsFired:  s.campaignsFired,
		MessagesSent:    s.messagesSent,
		PausedCampaigns: s.pausedCampaigns,
		LastAlertSentAt: s.lastAlertSentAt,
	}

	if s.running && !s.lastTickAt.IsZero() {
		status.NextTickAt = s.lastTickAt.Add(s.interval)
	}

	return status
}

type SchedulerStatus struct {
	Running         bool          `json:"running"`
	TickInFlight    bool          `json:"tickInFlight"`
	LastTickAt      time.Time     `json:"lastTickAt,omitempty"`
	NextTickAt      time.Time     `json:"nextTickAt,omitempty"`
	LastTickID      string        `json:"lastTickId,omitempty"`
	Interval        time.Duration `json:"interval"`
	TicksCount      int64         `json:"ticksCount"`
	SkippedTicks    int64         `json:"skippedTicks"`
	CampaignsFired  int64         `json:"campaignsFired"`
	MessagesSent    int64         `json:"messagesSent"`
	PausedCampaigns int64         `json:"pausedCampaigns"`
	LastAlertSentAt time.Time     `json:"lastAlertSentAt,omitempty"`
}
