package delivery

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/wacampaign/campaign-scheduler/internal/domain"
)

//
// Test fakes – only for this file.
//

type providerCall struct {
	method  string
	address string
}

type fakeProvider struct {
	// existing maps a candidate to the canonical address the provider reports.
	existing map[string]string

	checkErrs     []error
	textErrs      []error
	mediaErrs     []error
	reconnectErrs []error

	calls []providerCall
}

func pop(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

func (p *fakeProvider) CheckExists(ctx context.Context, address string) (domain.AddressCheck, error) {
	p.calls = append(p.calls, providerCall{"check", address})
	if err := pop(&p.checkErrs); err != nil {
		return domain.AddressCheck{}, err
	}
	canonical, ok := p.existing[address]
	return domain.AddressCheck{Exists: ok, CanonicalAddress: canonical}, nil
}

func (p *fakeProvider) SendText(ctx context.Context, address, body string) (string, error) {
	p.calls = append(p.calls, providerCall{"text", address})
	if err := pop(&p.textErrs); err != nil {
		return "", err
	}
	return "wamid-text", nil
}

func (p *fakeProvider) SendMedia(ctx context.Context, address, caption, mediaURL string) (string, error) {
	p.calls = append(p.calls, providerCall{"media", address})
	if err := pop(&p.mediaErrs); err != nil {
		return "", err
	}
	return "wamid-media", nil
}

func (p *fakeProvider) ReconnectSession(ctx context.Context) error {
	p.calls = append(p.calls, providerCall{"reconnect", ""})
	return pop(&p.reconnectErrs)
}

func (p *fakeProvider) count(method string) int {
	n := 0
	for _, c := range p.calls {
		if c.method == method {
			n++
		}
	}
	return n
}

type fakeRecords struct {
	records []*domain.SendRecord
}

func (r *fakeRecords) AppendSend(ctx context.Context, record *domain.SendRecord) error {
	r.records = append(r.records, record)
	return nil
}

type fakeCooldown struct {
	keys []string
}

func (c *fakeCooldown) RecordSend(ctx context.Context, key string, at time.Time) error {
	c.keys = append(c.keys, key)
	return nil
}

type mapCache map[string]string

func (m mapCache) Lookup(candidate string) (string, bool) {
	v, ok := m[candidate]
	return v, ok
}

func (m mapCache) Remember(candidate, canonical string) {
	m[candidate] = canonical
}

func newTestExecutor(p *fakeProvider) (*Executor, *fakeRecords, *fakeCooldown) {
	records := &fakeRecords{}
	cd := &fakeCooldown{}
	exec := NewExecutor(p, records, cd, nil, Config{CountryCode: "55"})
	return exec, records, cd
}

//
// Tests
//

func TestSend_TextSuccess(t *testing.T) {
	p := &fakeProvider{existing: map[string]string{"5511987654321": "5511987654321"}}
	exec, records, cd := newTestExecutor(p)

	res := exec.Send(context.Background(), Request{Recipient: "5511987654321", Body: "Oi"})

	if !res.Success {
		t.Fatalf("expected success, got error: %v", res.Err)
	}
	if res.Mode != domain.SendModeText {
		t.Errorf("expected text mode, got %s", res.Mode)
	}
	if len(records.records) != 1 || !records.records[0].Success {
		t.Fatalf("expected one successful send record, got %+v", records.records)
	}
	if len(cd.keys) != 1 {
		t.Fatalf("expected cooldown to be recorded once, got %d", len(cd.keys))
	}
}

func TestSend_UsesProviderConfirmedCanonicalForm(t *testing.T) {
	// Only the 13-digit form exists on the provider side.
	p := &fakeProvider{existing: map[string]string{"5511987654321": "5511987654321@s.whatsapp.net"}}
	exec, records, _ := newTestExecutor(p)

	res := exec.Send(context.Background(), Request{Recipient: "11987654321", Body: "Oi"})

	if !res.Success {
		t.Fatalf("expected success, got error: %v", res.Err)
	}
	if res.CanonicalRecipient != "5511987654321@s.whatsapp.net" {
		t.Fatalf("expected provider canonical address, got %q", res.CanonicalRecipient)
	}

	last := p.calls[len(p.calls)-1]
	if last.method != "text" || last.address != "5511987654321@s.whatsapp.net" {
		t.Fatalf("expected send to canonical address, got %+v", last)
	}

	rec := records.records[0]
	if rec.CanonicalAddress == nil || *rec.CanonicalAddress != "5511987654321@s.whatsapp.net" {
		t.Fatalf("expected record to carry canonical address, got %v", rec.CanonicalAddress)
	}
	if rec.Recipient != "11987654321" {
		t.Errorf("expected raw recipient to be kept, got %q", rec.Recipient)
	}
}

func TestSend_TriesAlternateFormWhenFirstIsUnknown(t *testing.T) {
	p := &fakeProvider{existing: map[string]string{"551187654321": "5511987654321"}}
	exec, _, _ := newTestExecutor(p)

	res := exec.Send(context.Background(), Request{Recipient: "+55 (11) 98765-4321", Body: "Oi"})

	if !res.Success {
		t.Fatalf("expected success, got error: %v", res.Err)
	}
	if p.count("check") != 2 {
		t.Fatalf("expected two existence checks, got %d", p.count("check"))
	}
	if res.CanonicalRecipient != "5511987654321" {
		t.Fatalf("expected provider canonical form, got %q", res.CanonicalRecipient)
	}
}

func TestSend_NotOnChannelIsTransientFailure(t *testing.T) {
	p := &fakeProvider{existing: map[string]string{}}
	exec, records, cd := newTestExecutor(p)

	res := exec.Send(context.Background(), Request{Recipient: "11987654321", Body: "Oi"})

	if res.Success || res.SessionLost {
		t.Fatalf("expected a plain failure, got %+v", res)
	}
	if !errors.Is(res.Err, ErrNotOnChannel) {
		t.Fatalf("expected ErrNotOnChannel, got %v", res.Err)
	}
	if p.count("text") != 0 {
		t.Fatalf("expected no send attempt")
	}
	if len(records.records) != 1 || records.records[0].Success {
		t.Fatalf("expected one failed record, got %+v", records.records)
	}
	if len(cd.keys) != 0 {
		t.Fatalf("expected no cooldown on failure")
	}
}

func TestSend_MediaFailureDegradesToText(t *testing.T) {
	p := &fakeProvider{
		existing:  map[string]string{"5511987654321": "5511987654321"},
		mediaErrs: []error{errors.New("media upload failed")},
	}
	exec, records, _ := newTestExecutor(p)

	res := exec.Send(context.Background(), Request{
		Recipient: "5511987654321",
		Body:      "Promo",
		MediaURL:  "https://cdn.example.com/promo.jpg",
	})

	if !res.Success {
		t.Fatalf("expected success via text path, got %v", res.Err)
	}
	if !res.Degraded || res.Mode != domain.SendModeText {
		t.Fatalf("expected degraded text send, got %+v", res)
	}
	if p.count("media") != 1 || p.count("text") != 1 {
		t.Fatalf("expected one media and one text attempt, got %+v", p.calls)
	}

	rec := records.records[0]
	if !rec.Success || !rec.Degraded {
		t.Fatalf("expected record to show a degradation, got %+v", rec)
	}
	if rec.ErrorDetail == nil || !strings.Contains(*rec.ErrorDetail, "media upload failed") {
		t.Fatalf("expected degradation cause in record, got %v", rec.ErrorDetail)
	}
}

func TestSend_DegradationIsOneShot(t *testing.T) {
	p := &fakeProvider{
		existing:  map[string]string{"5511987654321": "5511987654321"},
		mediaErrs: []error{errors.New("websocket closed")},
		textErrs:  []error{errors.New("request timed out")},
	}
	exec, _, _ := newTestExecutor(p)

	res := exec.Send(context.Background(), Request{Recipient: "5511987654321", Body: "x", MediaURL: "https://x/y.png"})

	if res.Success {
		t.Fatalf("expected failure")
	}
	if res.SessionLost {
		t.Fatalf("media-class failure must not be treated as session loss")
	}
	if p.count("media") != 1 || p.count("text") != 1 {
		t.Fatalf("expected exactly one media and one text attempt, got %+v", p.calls)
	}
}

func TestSend_SessionLossReconnectsAndRetriesOnce(t *testing.T) {
	p := &fakeProvider{
		existing: map[string]string{"5511987654321": "5511987654321"},
		textErrs: []error{errors.New("No session found for instance")},
	}
	exec, _, _ := newTestExecutor(p)

	res := exec.Send(context.Background(), Request{Recipient: "5511987654321", Body: "x"})

	if !res.Success {
		t.Fatalf("expected success after reconnect, got %v", res.Err)
	}
	if p.count("reconnect") != 1 {
		t.Fatalf("expected one reconnect, got %d", p.count("reconnect"))
	}
	if p.count("text") != 2 {
		t.Fatalf("expected two text attempts, got %d", p.count("text"))
	}
}

func TestSend_SessionLossAfterReconnectIsTerminal(t *testing.T) {
	p := &fakeProvider{
		existing: map[string]string{"5511987654321": "5511987654321"},
		textErrs: []error{errors.New("session closed"), errors.New("session closed")},
	}
	exec, records, _ := newTestExecutor(p)

	res := exec.Send(context.Background(), Request{Recipient: "5511987654321", Body: "x"})

	if res.Success || !res.SessionLost {
		t.Fatalf("expected terminal session loss, got %+v", res)
	}
	if !errors.Is(res.Err, ErrSessionLost) {
		t.Fatalf("expected ErrSessionLost, got %v", res.Err)
	}
	if p.count("reconnect") != 1 || p.count("text") != 2 {
		t.Fatalf("expected exactly one reconnect and one retry, got %+v", p.calls)
	}
	if len(records.records) != 1 || records.records[0].Success {
		t.Fatalf("expected the failure to be recorded")
	}
}

func TestSend_FailedReconnectIsTerminal(t *testing.T) {
	p := &fakeProvider{
		existing:      map[string]string{"5511987654321": "5511987654321"},
		textErrs:      []error{errors.New("unauthorized")},
		reconnectErrs: []error{errors.New("instance not found")},
	}
	exec, _, _ := newTestExecutor(p)

	res := exec.Send(context.Background(), Request{Recipient: "5511987654321", Body: "x"})

	if !res.SessionLost {
		t.Fatalf("expected session loss, got %+v", res)
	}
	if p.count("text") != 1 {
		t.Fatalf("expected no retry when reconnect fails, got %d text attempts", p.count("text"))
	}
}

func TestSend_SessionLossDuringExistenceCheck(t *testing.T) {
	p := &fakeProvider{
		existing:  map[string]string{"5511987654321": "5511987654321"},
		checkErrs: []error{errors.New("no session")},
	}
	exec, _, _ := newTestExecutor(p)

	res := exec.Send(context.Background(), Request{Recipient: "5511987654321", Body: "x"})

	if !res.Success {
		t.Fatalf("expected success after reconnect during reconciliation, got %v", res.Err)
	}
	if p.count("reconnect") != 1 {
		t.Fatalf("expected one reconnect, got %d", p.count("reconnect"))
	}
}

func TestSend_UsesAddressCache(t *testing.T) {
	p := &fakeProvider{existing: map[string]string{"5511987654321": "5511987654321"}}
	exec := NewExecutor(p, nil, nil, mapCache{}, Config{CountryCode: "55"})

	for i := 0; i < 2; i++ {
		if res := exec.Send(context.Background(), Request{Recipient: "11987654321", Body: "x"}); !res.Success {
			t.Fatalf("send %d failed: %v", i, res.Err)
		}
	}

	if p.count("check") != 1 {
		t.Fatalf("expected one existence check thanks to cache, got %d", p.count("check"))
	}
}
