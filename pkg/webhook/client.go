package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/wacampaign/campaign-scheduler/environments"
	"github.com/wacampaign/campaign-scheduler/pkg/logger"
)

// Alert is posted to the operator webhook when a campaign needs attention.
type Alert struct {
	Event      string    `json:"event"`
	CampaignID int64     `json:"campaign_id"`
	Campaign   string    `json:"campaign"`
	Detail     string    `json:"detail"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Client struct {
	httpClient *resty.Client
	webhookURL string
}

func NewWebhookClient(cfg environments.AlertConfig) *Client {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(3).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: client,
		webhookURL: cfg.WebhookURL,
	}
}

// Enabled reports whether an alert URL is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.webhookURL != ""
}

func (c *Client) SendAlert(ctx context.Context, alert Alert) error {
	if !c.Enabled() {
		return nil
	}

	startTime := time.Now()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(alert).
		Post(c.webhookURL)

	duration := time.Since(startTime)

	if err != nil {
		return fmt.Errorf("failed to send alert: %w", err)
	}

	logger.Infof("Alert %s for campaign %d delivered in %v (status: %d)", alert.Event, alert.CampaignID, duration, resp.StatusCode())

	if resp.IsError() {
		return fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode(), resp.String())
	}

	return nil
}

func (c *Client) GetURL() string {
	return c.webhookURL
}
