package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wacampaign/campaign-scheduler/internal/domain"
	"github.com/wacampaign/campaign-scheduler/pkg/logger"
)

var (
	ErrNotOnChannel = errors.New("recipient is not on whatsapp")
	ErrSessionLost  = errors.New("provider session lost")
)

// Provider is the WhatsApp transport.
type Provider interface {
	CheckExists(ctx context.Context, address string) (domain.AddressCheck, error)
	SendText(ctx context.Context, address, body string) (string, error)
	SendMedia(ctx context.Context, address, caption, mediaURL string) (string, error)
	ReconnectSession(ctx context.Context) error
}

type sendRecorder interface {
	AppendSend(ctx context.Context, record *domain.SendRecord) error
}

type cooldownRecorder interface {
	RecordSend(ctx context.Context, key string, at time.Time) error
}

// AddressCache remembers provider-confirmed canonical addresses.
type AddressCache interface {
	Lookup(candidate string) (string, bool)
	Remember(candidate, canonical string)
}

type Config struct {
	CountryCode          string
	ReconnectSettleDelay time.Duration
}

type Request struct {
	CampaignID *int64
	Recipient  string
	Body       string
	MediaURL   string
}

type Result struct {
	Success            bool
	CanonicalRecipient string
	ProviderMessageID  string
	Mode               domain.SendMode
	Degraded           bool
	SessionLost        bool
	Err                error
}

type Executor struct {
	provider Provider
	records  sendRecorder
	cooldown cooldownRecorder
	cache    AddressCache
	config   Config
	now      func() time.Time
}

func NewExecutor(
	provider Provider,
	records sendRecorder,
	cooldown cooldownRecorder,
	cache AddressCache,
	config Config,
) *Executor {
	return &Executor{
		provider: provider,
		records:  records,
		cooldown: cooldown,
		cache:    cache,
		config:   config,
		now:      time.Now,
	}
}

func (e *Executor) RecipientKey(raw string) string {
	return RecipientKey(raw, e.config.CountryCode)
}

// attempt carries the one-shot recovery budget of a single Send call.
type attempt struct {
	reconnected  bool
	degraded     bool
	degradeCause error
}

// Send delivers one message to one recipient. Media failures degrade to a
// single text send; a session failure triggers at most one reconnect and one
// retry. Every outcome is appended to the send history.
func (e *Executor) Send(ctx context.Context, req Request) Result {
	st := &attempt{}
	res := e.deliver(ctx, req, st)
	key := e.RecipientKey(req.Recipient)
	sentAt := e.now()

	if e.records != nil {
		if err := e.records.AppendSend(ctx, e.sendRecord(req, key, res, st, sentAt)); err != nil {
			logger.Errorf("Failed to append send record for %s: %v", req.Recipient, err)
		}
	}

	if res.Success && e.cooldown != nil {
		if err := e.cooldown.RecordSend(ctx, key, sentAt); err != nil {
			logger.Warnf("Failed to record cooldown for %s: %v", key, err)
		}
	}

	return res
}

func (e *Executor) deliver(ctx context.Context, req Request, st *attempt) Result {
	mode := domain.SendModeText
	if req.MediaURL != "" {
		mode = domain.SendModeMedia
	}

	canonical, err := e.reconcile(ctx, req.Recipient, st)
	if err != nil {
		return Result{
			Mode:        mode,
			SessionLost: errors.Is(err, ErrSessionLost),
			Err:         err,
		}
	}

	for {
		id, err := e.dispatch(ctx, canonical, mode, req)
		if err == nil {
			return Result{
				Success:            true,
				CanonicalRecipient: canonical,
				ProviderMessageID:  id,
				Mode:               mode,
				Degraded:           st.degraded,
			}
		}

		switch Classify(err) {
		case KindMedia:
			if mode == domain.SendModeMedia && !st.degraded {
				logger.Warnf("Media send to %s failed, degrading to text: %v", canonical, err)
				st.degraded = true
				st.degradeCause = err
				mode = domain.SendModeText
				continue
			}
		case KindSession:
			if e.recoverSession(ctx, st) {
				continue
			}
			return Result{
				CanonicalRecipient: canonical,
				Mode:               mode,
				Degraded:           st.degraded,
				SessionLost:        true,
				Err:                fmt.Errorf("%w: %v", ErrSessionLost, err),
			}
		}

		return Result{
			CanonicalRecipient: canonical,
			Mode:               mode,
			Degraded:           st.degraded,
			Err:                err,
		}
	}
}

func (e *Executor) dispatch(ctx context.Context, address string, mode domain.SendMode, req Request) (string, error) {
	if mode == domain.SendModeMedia {
		return e.provider.SendMedia(ctx, address, req.Body, req.MediaURL)
	}
	return e.provider.SendText(ctx, address, req.Body)
}

// reconcile returns the provider's canonical address for the first candidate
// it confirms.
func (e *Executor) reconcile(ctx context.Context, raw string, st *attempt) (string, error) {
	candidates := CandidateAddresses(raw, e.config.CountryCode)
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: %q has no digits", ErrNotOnChannel, raw)
	}

	var lastErr error
	for _, candidate := range candidates {
		if e.cache != nil {
			if canonical, ok := e.cache.Lookup(candidate); ok {
				return canonical, nil
			}
		}

		check, err := e.provider.CheckExists(ctx, candidate)
		if err != nil && Classify(err) == KindSession {
			if !e.recoverSession(ctx, st) {
				return "", fmt.Errorf("%w: %v", ErrSessionLost, err)
			}
			check, err = e.provider.CheckExists(ctx, candidate)
			if err != nil && Classify(err) == KindSession {
				return "", fmt.Errorf("%w: %v", ErrSessionLost, err)
			}
		}
		if err != nil {
			lastErr = err
			continue
		}

		if !check.Exists {
			continue
		}

		canonical := check.CanonicalAddress
		if canonical == "" {
			canonical = candidate
		}

		if e.cache != nil {
			e.cache.Remember(candidate, canonical)
		}

		if canonical != candidate {
			logger.Debugf("Provider resolved %s to canonical %s", candidate, canonical)
		}
		return canonical, nil
	}

	if lastErr != nil {
		return "", fmt.Errorf("existence check failed for %s: %w", raw, lastErr)
	}
	return "", fmt.Errorf("%w: %s", ErrNotOnChannel, raw)
}

func (e *Executor) recoverSession(ctx context.Context, st *attempt) bool {
	if st.reconnected {
		return false
	}
	st.reconnected = true

	logger.Warnf("Provider session lost, attempting reconnect")

	if err := e.provider.ReconnectSession(ctx); err != nil {
		logger.Errorf("Provider reconnect failed: %v", err)
		return false
	}

	if e.config.ReconnectSettleDelay > 0 {
		timer := time.NewTimer(e.config.ReconnectSettleDelay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			return false
		}
	}

	logger.Infof("Provider session reconnected, retrying send")
	return true
}

func (e *Executor) sendRecord(req Request, key string, res Result, st *attempt, sentAt time.Time) *domain.SendRecord {
	record := &domain.SendRecord{
		CampaignID:   req.CampaignID,
		Recipient:    req.Recipient,
		RecipientKey: key,
		Mode:         res.Mode,
		Success:      res.Success,
		Degraded:     res.Degraded,
		SentAt:       sentAt,
	}

	if res.CanonicalRecipient != "" {
		canonical := res.CanonicalRecipient
		record.CanonicalAddress = &canonical
	}
	if res.ProviderMessageID != "" {
		id := res.ProviderMessageID
		record.ProviderMessageID = &id
	}

	switch {
	case res.Err != nil:
		detail := res.Err.Error()
		record.ErrorDetail = &detail
	case st.degraded && st.degradeCause != nil:
		detail := "degraded to text: " + st.degradeCause.Error()
		record.ErrorDetail = &detail
	}

	return record
}
