package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/wacampaign/campaign-scheduler/internal/domain"
)

var ErrCampaignNotFound = errors.New("campaign not found")

const campaignColumns = `
	id, owner_id, name, frequency, start_date, slots, weekday_mask,
	message_template, product_name, product_price, media_url,
	active, status, last_execution_at, next_execution_at, total_sent, schedule_error,
	created_at, updated_at`

// CampaignRepository handles database operations for campaigns.
type CampaignRepository struct {
	db *sqlx.DB
}

func NewCampaignRepository(db *sqlx.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

// ListDue returns active campaigns whose start date is on or before today,
// with their recipient list ids loaded.
func (r *CampaignRepository) ListDue(ctx context.Context, today time.Time) ([]domain.Campaign, error) {
	query := `SELECT` + campaignColumns + `
		FROM campaigns
		WHERE active = TRUE AND start_date <= ?
		ORDER BY id ASC
	`

	var campaigns []domain.Campaign
	if err := r.db.SelectContext(ctx, &campaigns, query, today.Format(time.DateOnly)); err != nil {
		return nil, fmt.Errorf("failed to list due campaigns: %w", err)
	}

	if err := r.attachLists(ctx, campaigns); err != nil {
		return nil, err
	}

	return campaigns, nil
}

func (r *CampaignRepository) GetByID(ctx context.Context, id int64) (*domain.Campaign, error) {
	query := `SELECT` + campaignColumns + `
		FROM campaigns
		WHERE id = ?
	`

	var campaign domain.Campaign
	if err := r.db.GetContext(ctx, &campaign, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCampaignNotFound
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}

	campaigns := []domain.Campaign{campaign}
	if err := r.attachLists(ctx, campaigns); err != nil {
		return nil, err
	}

	return &campaigns[0], nil
}

func (r *CampaignRepository) attachLists(ctx context.Context, campaigns []domain.Campaign) error {
	if len(campaigns) == 0 {
		return nil
	}

	ids := make([]int64, len(campaigns))
	byID := make(map[int64]int, len(campaigns))
	for i, c := range campaigns {
		ids[i] = c.ID
		byID[c.ID] = i
	}

	query, args, err := sqlx.In(`
		SELECT campaign_id, list_id
		FROM campaign_lists
		WHERE campaign_id IN (?)
		ORDER BY campaign_id, list_id
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to build list query: %w", err)
	}

	var links []struct {
		CampaignID int64 `db:"campaign_id"`
		ListID     int64 `db:"list_id"`
	}
	if err := r.db.SelectContext(ctx, &links, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to load campaign lists: %w", err)
	}

	for _, link := range links {
		if i, ok := byID[link.CampaignID]; ok {
			campaigns[i].ListIDs = append(campaigns[i].ListIDs, link.ListID)
		}
	}

	return nil
}

// UpdateRuntime persists the outcome of a run in a single statement. The
// schedule error flag is cleared since the schedule evaluated cleanly.
func (r *CampaignRepository) UpdateRuntime(ctx context.Context, id int64, update domain.RuntimeUpdate) error {
	query := `
		UPDATE campaigns
		SET last_execution_at = ?,
		    next_execution_at = ?,
		    total_sent = total_sent + ?,
		    status = ?,
		    active = ?,
		    schedule_error = NULL,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		update.LastExecutionAt,
		update.NextExecutionAt,
		update.SentDelta,
		update.Status,
		update.Active,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to update campaign runtime: %w", err)
	}

	return requireRow(result, id)
}

func (r *CampaignRepository) FlagScheduleError(ctx context.Context, id int64, detail string) error {
	query := `
		UPDATE campaigns
		SET schedule_error = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	if _, err := r.db.ExecContext(ctx, query, detail, id); err != nil {
		return fmt.Errorf("failed to flag campaign schedule: %w", err)
	}

	return nil
}

// CompleteExpired retires an active campaign that will never fire again.
func (r *CampaignRepository) CompleteExpired(ctx context.Context, id int64) error {
	query := `
		UPDATE campaigns
		SET active = FALSE,
		    status = ?,
		    next_execution_at = NULL,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND active = TRUE
	`

	result, err := r.db.ExecContext(ctx, query, domain.CampaignCompleted, id)
	if err != nil {
		return fmt.Errorf("failed to complete campaign: %w", err)
	}

	return requireRow(result, id)
}

// Resume reactivates a campaign paused on a session error.
func (r *CampaignRepository) Resume(ctx context.Context, id int64, next *time.Time) error {
	query := `
		UPDATE campaigns
		SET active = TRUE,
		    status = ?,
		    next_execution_at = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
	`

	result, err := r.db.ExecContext(ctx, query, domain.CampaignActive, next, id, domain.CampaignPausedSessionError)
	if err != nil {
		return fmt.Errorf("failed to resume campaign: %w", err)
	}

	return requireRow(result, id)
}

func requireRow(result sql.Result, id int64) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("%w: id %d", ErrCampaignNotFound, id)
	}

	return nil
}
