package repository

import (
	"context"
	"fmt"

	"elizabeth/agent/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DetailsArchive keeps an agent-side audit trail of every characteristics
// payload that was posted to the backend. The session and poll state stay
// memory-resident; this table only answers "what did we scrape and when".
type DetailsArchive interface {
	SaveDetails(ctx context.Context, productID int64, correlationID string, details *domain.Characteristics) error
}

type detailsArchive struct {
	db *pgxpool.Pool
}

func NewDetailsArchive(db *pgxpool.Pool) DetailsArchive {
	return &detailsArchive{
		db: db,
	}
}

func (r *detailsArchive) SaveDetails(ctx context.Context, productID int64, correlationID string, details *domain.Characteristics) error {
	query := `
	INSERT INTO details_archive (product_id, request_id, data, scraped_at)
	VALUES ($1, $2, $3, now())
	ON CONFLICT (request_id)
	DO UPDATE SET data = $3, scraped_at = now()`
	_, err := r.db.Exec(ctx, query, productID, correlationID, details)
	if err != nil {
		return fmt.Errorf("failed to archive details: %w", err)
	}

	return nil
}
