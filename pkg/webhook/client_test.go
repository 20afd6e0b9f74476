package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wacampaign/campaign-scheduler/environments"
)

func TestSendAlert_PostsPayload(t *testing.T) {
	var got Alert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := NewWebhookClient(environments.AlertConfig{WebhookURL: srv.URL, Timeout: 2 * time.Second})

	err := client.SendAlert(context.Background(), Alert{Event: "campaign_paused", CampaignID: 7, Campaign: "Promo"})
	if err != nil {
		t.Fatalf("SendAlert returned error: %v", err)
	}
	if got.Event != "campaign_paused" || got.CampaignID != 7 {
		t.Fatalf("unexpected alert payload %+v", got)
	}
}

func TestSendAlert_DisabledIsNoop(t *testing.T) {
	client := NewWebhookClient(environments.AlertConfig{Timeout: time.Second})

	if client.Enabled() {
		t.Fatalf("expected client without URL to be disabled")
	}
	if err := client.SendAlert(context.Background(), Alert{Event: "x"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
