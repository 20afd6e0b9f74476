package domain

import "time"

type SendMode string

const (
	SendModeText  SendMode = "text"
	SendModeMedia SendMode = "media"
)

// Recipient is one resolved entry of a recipient list.
type Recipient struct {
	Phone string `db:"phone" json:"phone"`
	Name  string `db:"name" json:"name"`
}

// SendRecord is an append-only audit row for one delivery attempt.
type SendRecord struct {
	ID                int64     `db:"id" json:"id"`
	CampaignID        *int64    `db:"campaign_id" json:"campaignId,omitempty"`
	Recipient         string    `db:"recipient" json:"recipient"`
	RecipientKey      string    `db:"recipient_key" json:"recipientKey"`
	CanonicalAddress  *string   `db:"canonical_address" json:"canonicalAddress,omitempty"`
	ProviderMessageID *string   `db:"provider_message_id" json:"providerMessageId,omitempty"`
	Mode              SendMode  `db:"mode" json:"mode"`
	Success           bool      `db:"success" json:"success"`
	Degraded          bool      `db:"degraded" json:"degraded"`
	ErrorDetail       *string   `db:"error_detail" json:"errorDetail,omitempty"`
	SentAt            time.Time `db:"sent_at" json:"sentAt"`
}

type SendStats struct {
	Sent     int64 `db:"sent" json:"sent"`
	Failed   int64 `db:"failed" json:"failed"`
	Degraded int64 `db:"degraded" json:"degraded"`
}

// AddressCheck is the provider's answer to an existence query.
type AddressCheck struct {
	Exists           bool
	CanonicalAddress string
}

// RunResult summarises one campaign run inside a tick.
type RunResult struct {
	CampaignID      int64          `json:"campaignId"`
	Slot            string         `json:"slot,omitempty"`
	Recipients      int            `json:"recipients"`
	Sent            int            `json:"sent"`
	Degraded        int            `json:"degraded"`
	Skipped         int            `json:"skipped"`
	Failed          int            `json:"failed"`
	Abandoned       int            `json:"abandoned"`
	Status          CampaignStatus `json:"status"`
	NextExecutionAt *time.Time     `json:"nextExecutionAt,omitempty"`
}
