package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wacampaign/campaign-scheduler/internal/domain"
	"github.com/wacampaign/campaign-scheduler/internal/schedule"
	"github.com/wacampaign/campaign-scheduler/pkg/logger"
)

var ErrCampaignNotPaused = errors.New("campaign is not paused on a session error")

type sendHistory interface {
	ListByCampaign(ctx context.Context, campaignID int64, page, pageSize int) ([]domain.SendRecord, int64, error)
	Stats(ctx context.Context) (*domain.SendStats, error)
}

type sessionReconnector interface {
	ReconnectSession(ctx context.Context) error
}

// CampaignService backs the operator API: campaign state, send history,
// resume after a session pause and manual reconnects.
type CampaignService struct {
	campaigns campaignRepository
	sends     sendHistory
	channel   sessionReconnector
	loc       *time.Location
	now       func() time.Time
}

func NewCampaignService(
	campaigns campaignRepository,
	sends sendHistory,
	channel sessionReconnector,
	loc *time.Location,
) *CampaignService {
	return &CampaignService{
		campaigns: campaigns,
		sends:     sends,
		channel:   channel,
		loc:       loc,
		now:       time.Now,
	}
}

func (s *CampaignService) GetCampaign(ctx context.Context, id int64) (*domain.Campaign, error) {
	return s.campaigns.GetByID(ctx, id)
}

func (s *CampaignService) ListSends(ctx context.Context, campaignID int64, page, pageSize int) ([]domain.SendRecord, int64, error) {
	if _, err := s.campaigns.GetByID(ctx, campaignID); err != nil {
		return nil, 0, err
	}
	return s.sends.ListByCampaign(ctx, campaignID, page, pageSize)
}

func (s *CampaignService) SendStats(ctx context.Context) (*domain.SendStats, error) {
	return s.sends.Stats(ctx)
}

// Resume reactivates a campaign paused on a session error and recomputes its
// next execution from the current time.
func (s *CampaignService) Resume(ctx context.Context, id int64) (*domain.Campaign, error) {
	c, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if c.Status != domain.CampaignPausedSessionError {
		return nil, ErrCampaignNotPaused
	}

	sched, err := schedule.FromCampaign(c)
	if err != nil {
		return nil, err
	}

	var next *time.Time
	if n, ok := sched.Next(s.now().In(s.loc)); ok {
		next = &n
	}

	if err := s.campaigns.Resume(ctx, id, next); err != nil {
		return nil, err
	}

	logger.Infof("Campaign %d resumed by operator (next execution: %v)", id, next)

	return s.campaigns.GetByID(ctx, id)
}

func (s *CampaignService) ReconnectChannel(ctx context.Context) error {
	if err := s.channel.ReconnectSession(ctx); err != nil {
		return fmt.Errorf("reconnect failed: %w", err)
	}
	logger.Infof("Provider session reconnected by operator")
	return nil
}

// PreviewNext resolves the next execution of an unsaved schedule.
func (s *CampaignService) PreviewNext(
	frequency domain.Frequency,
	slots []string,
	weekdays []int,
	startDate time.Time,
) (*time.Time, error) {
	return schedule.ResolveNext(frequency, slots, weekdays, startDate, s.now().In(s.loc))
}
