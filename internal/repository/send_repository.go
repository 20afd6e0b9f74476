package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/wacampaign/campaign-scheduler/internal/domain"
)

// SendRepository is the append-only send history.
type SendRepository struct {
	db *sqlx.DB
}

func NewSendRepository(db *sqlx.DB) *SendRepository {
	return &SendRepository{db: db}
}

func (r *SendRepository) AppendSend(ctx context.Context, record *domain.SendRecord) error {
	query := `
		INSERT INTO send_history (
			campaign_id, recipient, recipient_key, canonical_address, provider_message_id,
			mode, success, degraded, error_detail, sent_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		record.CampaignID,
		record.Recipient,
		record.RecipientKey,
		record.CanonicalAddress,
		record.ProviderMessageID,
		record.Mode,
		record.Success,
		record.Degraded,
		record.ErrorDetail,
		record.SentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append send record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	record.ID = id

	return nil
}

func (r *SendRepository) ListByCampaign(ctx context.Context, campaignID int64, page, pageSize int) ([]domain.SendRecord, int64, error) {
	offset := (page - 1) * pageSize

	var totalCount int64
	countQuery := "SELECT COUNT(*) FROM send_history WHERE campaign_id = ?"
	if err := r.db.GetContext(ctx, &totalCount, countQuery, campaignID); err != nil {
		return nil, 0, fmt.Errorf("failed to count send records: %w", err)
	}

	query := `
		SELECT id, campaign_id, recipient, recipient_key, canonical_address, provider_message_id,
		       mode, success, degraded, error_detail, sent_at
		FROM send_history
		WHERE campaign_id = ?
		ORDER BY sent_at DESC, id DESC
		LIMIT ? OFFSET ?
	`

	var records []domain.SendRecord
	if err := r.db.SelectContext(ctx, &records, query, campaignID, pageSize, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list send records: %w", err)
	}

	return records, totalCount, nil
}

func (r *SendRepository) Stats(ctx context.Context) (*domain.SendStats, error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN success THEN 1 ELSE 0 END), 0)     AS sent,
			COALESCE(SUM(CASE WHEN NOT success THEN 1 ELSE 0 END), 0) AS failed,
			COALESCE(SUM(CASE WHEN degraded THEN 1 ELSE 0 END), 0)    AS degraded
		FROM send_history
	`

	var stats domain.SendStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("failed to get send stats: %w", err)
	}

	return &stats, nil
}

// LastSuccessfulSendAt returns the most recent successful send to key across
// all campaigns.
func (r *SendRepository) LastSuccessfulSendAt(ctx context.Context, key string) (time.Time, bool, error) {
	query := `
		SELECT MAX(sent_at)
		FROM send_history
		WHERE recipient_key = ? AND success = TRUE
	`

	var last sql.NullTime
	if err := r.db.GetContext(ctx, &last, query, key); err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read last send: %w", err)
	}

	if !last.Valid {
		return time.Time{}, false, nil
	}
	return last.Time, true, nil
}

// HistoryCooldownStore serves the cooldown gate from the send history when no
// valkey instance is reachable. Writes are no-ops because the executor already
// appends every successful send.
type HistoryCooldownStore struct {
	sends *SendRepository
}

func NewHistoryCooldownStore(sends *SendRepository) *HistoryCooldownStore {
	return &HistoryCooldownStore{sends: sends}
}

func (s *HistoryCooldownStore) Get(ctx context.Context, key string) (time.Time, bool, error) {
	return s.sends.LastSuccessfulSendAt(ctx, key)
}

func (s *HistoryCooldownStore) Set(context.Context, string, time.Time, time.Duration) error {
	return nil
}
