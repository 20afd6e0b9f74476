package domain

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Frequency string

const (
	FrequencyOnce   Frequency = "once"
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

type CampaignStatus string

const (
	CampaignActive             CampaignStatus = "active"
	CampaignPausedSessionError CampaignStatus = "paused_session_error"
	CampaignCompleted          CampaignStatus = "completed"
)

// Campaign is a recurring WhatsApp send. Schedule fields come from the
// authoring UI; runtime fields are owned by the campaign runner.
type Campaign struct {
	ID      int64  `db:"id" json:"id"`
	OwnerID int64  `db:"owner_id" json:"ownerId"`
	Name    string `db:"name" json:"name"`

	Frequency   Frequency `db:"frequency" json:"frequency"`
	StartDate   time.Time `db:"start_date" json:"startDate"`
	Slots       StringSet `db:"slots" json:"slots"`
	WeekdayMask IntSet    `db:"weekday_mask" json:"weekdayMask"`

	ListIDs []int64 `db:"-" json:"listIds"`

	MessageTemplate string  `db:"message_template" json:"messageTemplate"`
	ProductName     string  `db:"product_name" json:"productName"`
	ProductPrice    string  `db:"product_price" json:"productPrice"`
	MediaURL        *string `db:"media_url" json:"mediaUrl,omitempty"`

	Active          bool           `db:"active" json:"active"`
	Status          CampaignStatus `db:"status" json:"status"`
	LastExecutionAt *time.Time     `db:"last_execution_at" json:"lastExecutionAt,omitempty"`
	NextExecutionAt *time.Time     `db:"next_execution_at" json:"nextExecutionAt,omitempty"`
	TotalSent       int64          `db:"total_sent" json:"totalSent"`
	ScheduleError   *string        `db:"schedule_error" json:"scheduleError,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

func (c *Campaign) HasMedia() bool {
	return c.MediaURL != nil && strings.TrimSpace(*c.MediaURL) != ""
}

// RuntimeUpdate is the set of fields the runner persists after a campaign run.
type RuntimeUpdate struct {
	LastExecutionAt time.Time
	NextExecutionAt *time.Time
	SentDelta       int64
	Status          CampaignStatus
	Active          bool
}

// StringSet is stored as a comma separated column, e.g. "09:00,15:00".
type StringSet []string

func (s StringSet) Value() (driver.Value, error) {
	return strings.Join(s, ","), nil
}

func (s *StringSet) Scan(src any) error {
	raw, err := columnString(src)
	if err != nil {
		return err
	}

	*s = nil
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			*s = append(*s, part)
		}
	}
	return nil
}

// IntSet is stored as a comma separated column, e.g. "1,3,5".
type IntSet []int

func (s IntSet) Value() (driver.Value, error) {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ","), nil
}

func (s *IntSet) Scan(src any) error {
	raw, err := columnString(src)
	if err != nil {
		return err
	}

	*s = nil
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return fmt.Errorf("invalid integer %q in set column: %w", part, err)
		}
		*s = append(*s, v)
	}
	return nil
}

func columnString(src any) (string, error) {
	switch v := src.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("unsupported column type %T", src)
	}
}
