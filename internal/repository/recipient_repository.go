package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/wacampaign/campaign-scheduler/internal/domain"
)

type RecipientRepository struct {
	db *sqlx.DB
}

func NewRecipientRepository(db *sqlx.DB) *RecipientRepository {
	return &RecipientRepository{db: db}
}

// Resolve flattens the given lists into one recipient set. Phones appearing
// in several lists are returned once; the first non-empty name wins.
func (r *RecipientRepository) Resolve(ctx context.Context, listIDs []int64) ([]domain.Recipient, error) {
	if len(listIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT phone, name
		FROM recipients
		WHERE list_id IN (?)
		ORDER BY list_id ASC, id ASC
	`, listIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build recipient query: %w", err)
	}

	var rows []domain.Recipient
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to resolve recipients: %w", err)
	}

	return dedupRecipients(rows), nil
}

func dedupRecipients(rows []domain.Recipient) []domain.Recipient {
	seen := make(map[string]int, len(rows))
	out := make([]domain.Recipient, 0, len(rows))

	for _, row := range rows {
		phone := strings.TrimSpace(row.Phone)
		if phone == "" {
			continue
		}
		name := strings.TrimSpace(row.Name)

		if i, ok := seen[phone]; ok {
			if out[i].Name == "" {
				out[i].Name = name
			}
			continue
		}

		seen[phone] = len(out)
		out = append(out, domain.Recipient{Phone: phone, Name: name})
	}

	return out
}
