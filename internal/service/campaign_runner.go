package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/wacampaign/campaign-scheduler/environments"
	"github.com/wacampaign/campaign-scheduler/internal/delivery"
	"github.com/wacampaign/campaign-scheduler/internal/domain"
	"github.com/wacampaign/campaign-scheduler/internal/schedule"
	"github.com/wacampaign/campaign-scheduler/pkg/logger"
)

// Small internal interfaces so the runner can be tested without MySQL or the provider.
type campaignRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Campaign, error)
	UpdateRuntime(ctx context.Context, id int64, update domain.RuntimeUpdate) error
	FlagScheduleError(ctx context.Context, id int64, detail string) error
	Resume(ctx context.Context, id int64, next *time.Time) error
}

type recipientResolver interface {
	Resolve(ctx context.Context, listIDs []int64) ([]domain.Recipient, error)
}

type cooldownGate interface {
	CanSend(ctx context.Context, key string) (bool, error)
}

type deliveryExecutor interface {
	Send(ctx context.Context, req delivery.Request) delivery.Result
	RecipientKey(raw string) string
}

// CampaignRunner executes one campaign occurrence: it fans the message out to
// every recipient and persists the new runtime state.
type CampaignRunner struct {
	campaigns  campaignRepository
	recipients recipientResolver
	gate       cooldownGate
	executor   deliveryExecutor
	locks      *recipientLocks
	config     environments.DeliveryConfig
}

func NewCampaignRunner(
	campaigns campaignRepository,
	recipients recipientResolver,
	gate cooldownGate,
	executor deliveryExecutor,
	config environments.DeliveryConfig,
) *CampaignRunner {
	return &CampaignRunner{
		campaigns:  campaigns,
		recipients: recipients,
		gate:       gate,
		executor:   executor,
		locks:      newRecipientLocks(),
		config:     config,
	}
}

func (r *CampaignRunner) newPacer() *rate.Limiter {
	if r.config.SendDelay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(r.config.SendDelay), 1)
}

// RunCampaign sends campaign c for the occurrence at now. now must be in the
// scheduling time zone. A schedule that cannot be evaluated flags the campaign
// and returns an error wrapping schedule.ErrInvalidSchedule without sending.
//
// Once started, a run always reaches every recipient: cancellation of ctx is
// ignored because the occurrence is recorded as fired at the end.
func (r *CampaignRunner) RunCampaign(ctx context.Context, c *domain.Campaign, now time.Time) (*domain.RunResult, error) {
	ctx = context.WithoutCancel(ctx)

	sched, err := schedule.FromCampaign(c)
	if err != nil {
		r.flag(ctx, c, err)
		return nil, err
	}

	recipients, err := r.recipients.Resolve(ctx, c.ListIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve recipients for campaign %d: %w", c.ID, err)
	}

	result := &domain.RunResult{
		CampaignID: c.ID,
		Recipients: len(recipients),
	}

	logger.Infof("Running campaign %d (%s) for %d recipients", c.ID, c.Name, len(recipients))

	sessionLost := r.fanOut(ctx, c, recipients, result)

	update := domain.RuntimeUpdate{
		LastExecutionAt: now,
		SentDelta:       int64(result.Sent),
		Status:          domain.CampaignActive,
		Active:          true,
	}

	if next, ok := sched.Next(now); ok {
		update.NextExecutionAt = &next
	}

	switch {
	case sessionLost:
		update.Status = domain.CampaignPausedSessionError
		update.Active = false
	case update.NextExecutionAt == nil:
		update.Status = domain.CampaignCompleted
		update.Active = false
	}

	result.Status = update.Status
	result.NextExecutionAt = update.NextExecutionAt

	if err := r.campaigns.UpdateRuntime(ctx, c.ID, update); err != nil {
		return result, fmt.Errorf("failed to persist runtime for campaign %d: %w", c.ID, err)
	}

	logger.Infof("Campaign %d finished: sent=%d degraded=%d skipped=%d failed=%d abandoned=%d status=%s",
		c.ID, result.Sent, result.Degraded, result.Skipped, result.Failed, result.Abandoned, result.Status)

	return result, nil
}

// fanOut sends to recipients one at a time and reports whether the provider
// session was lost.
func (r *CampaignRunner) fanOut(ctx context.Context, c *domain.Campaign, recipients []domain.Recipient, result *domain.RunResult) bool {
	pacer := r.newPacer()

	var mediaURL string
	if c.HasMedia() {
		mediaURL = *c.MediaURL
	}
	campaignID := c.ID

	for i, recipient := range recipients {
		key := r.executor.RecipientKey(recipient.Phone)
		unlock := r.locks.Lock(key)

		allowed, err := r.gate.CanSend(ctx, key)
		if err != nil {
			logger.Warnf("Cooldown check failed for %s, skipping: %v", key, err)
		}
		if !allowed {
			unlock()
			result.Skipped++
			continue
		}

		if err := pacer.Wait(ctx); err != nil {
			logger.Warnf("Pacing wait failed for campaign %d: %v", c.ID, err)
		}

		res := r.executor.Send(ctx, delivery.Request{
			CampaignID: &campaignID,
			Recipient:  recipient.Phone,
			Body: RenderTemplate(c.MessageTemplate, TemplateVars{
				Name:    recipient.Name,
				Product: c.ProductName,
				Price:   c.ProductPrice,
			}),
			MediaURL: mediaURL,
		})
		unlock()

		switch {
		case res.SessionLost:
			result.Failed++
			result.Abandoned += len(recipients) - i - 1
			logger.Errorf("Campaign %d lost the provider session, abandoning %d recipients: %v",
				c.ID, result.Abandoned, res.Err)
			return true
		case res.Success:
			result.Sent++
			if res.Degraded {
				result.Degraded++
			}
		default:
			result.Failed++
			logger.Warnf("Send to %s failed for campaign %d: %v", recipient.Phone, c.ID, res.Err)
		}
	}

	return false
}

func (r *CampaignRunner) flag(ctx context.Context, c *domain.Campaign, cause error) {
	logger.Errorf("Campaign %d has an invalid schedule: %v", c.ID, cause)

	if err := r.campaigns.FlagScheduleError(ctx, c.ID, cause.Error()); err != nil {
		logger.Errorf("Failed to flag campaign %d: %v", c.ID, err)
	}
}

// FlagInvalidSchedule records a resolver failure found outside a run.
func (r *CampaignRunner) FlagInvalidSchedule(ctx context.Context, c *domain.Campaign, cause error) {
	r.flag(ctx, c, cause)
}
