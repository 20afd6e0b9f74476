package whatsapp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/wacampaign/campaign-scheduler/environments"
	"github.com/wacampaign/campaign-scheduler/internal/domain"
	"github.com/wacampaign/campaign-scheduler/pkg/logger"
)

// Client talks to an Evolution-style WhatsApp HTTP gateway. Retries are left
// to the delivery executor, so resty's own retry is disabled.
type Client struct {
	httpClient *resty.Client
	instance   string
}

type numbersRequest struct {
	Numbers []string `json:"numbers"`
}

type numberResult struct {
	Exists bool   `json:"exists"`
	JID    string `json:"jid"`
	Number string `json:"number"`
}

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

type sendMediaRequest struct {
	Number    string `json:"number"`
	MediaType string `json:"mediatype"`
	Media     string `json:"media"`
	Caption   string `json:"caption,omitempty"`
}

type sendResponse struct {
	Key struct {
		ID string `json:"id"`
	} `json:"key"`
}

type connectResponse struct {
	Instance struct {
		State string `json:"state"`
	} `json:"instance"`
	State string `json:"state"`
	Code  string `json:"code"`
}

func NewClient(cfg environments.ProviderConfig) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("apikey", cfg.APIKey)

	return &Client{
		httpClient: client,
		instance:   cfg.Instance,
	}
}

func (c *Client) CheckExists(ctx context.Context, address string) (domain.AddressCheck, error) {
	var results []numberResult

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(numbersRequest{Numbers: []string{address}}).
		SetResult(&results).
		Post("/chat/whatsappNumbers/" + c.instance)
	if err := responseError(resp, err); err != nil {
		return domain.AddressCheck{}, fmt.Errorf("existence check for %s: %w", address, err)
	}

	for _, r := range results {
		if !r.Exists {
			continue
		}
		canonical := r.JID
		if canonical == "" {
			canonical = r.Number
		}
		return domain.AddressCheck{Exists: true, CanonicalAddress: canonical}, nil
	}

	return domain.AddressCheck{Exists: false}, nil
}

func (c *Client) SendText(ctx context.Context, address, body string) (string, error) {
	return c.send(ctx, "/message/sendText/", sendTextRequest{Number: address, Text: body})
}

func (c *Client) SendMedia(ctx context.Context, address, caption, mediaURL string) (string, error) {
	return c.send(ctx, "/message/sendMedia/", sendMediaRequest{
		Number:    address,
		MediaType: "image",
		Media:     mediaURL,
		Caption:   caption,
	})
}

func (c *Client) send(ctx context.Context, path string, payload any) (string, error) {
	var out sendResponse

	startTime := time.Now()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&out).
		Post(path + c.instance)

	if err := responseError(resp, err); err != nil {
		return "", err
	}

	logger.Debugf("WhatsApp %s completed in %v (status: %d)", path, time.Since(startTime), resp.StatusCode())

	return out.Key.ID, nil
}

// ReconnectSession asks the gateway to re-open the instance session.
func (c *Client) ReconnectSession(ctx context.Context) error {
	var out connectResponse

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/instance/connect/" + c.instance)
	if err := responseError(resp, err); err != nil {
		return fmt.Errorf("reconnect: %w", err)
	}

	state := out.Instance.State
	if state == "" {
		state = out.State
	}

	switch strings.ToLower(state) {
	case "open", "connecting":
		return nil
	case "":
		// A pairing code means a human has to scan the QR again.
		if out.Code != "" {
			return fmt.Errorf("reconnect: instance %s requires QR pairing", c.instance)
		}
		return nil
	default:
		return fmt.Errorf("reconnect: instance %s is %s", c.instance, state)
	}
}

// responseError turns transport errors and non-2xx responses into errors
// whose text carries the provider body, so they can be classified.
func responseError(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
