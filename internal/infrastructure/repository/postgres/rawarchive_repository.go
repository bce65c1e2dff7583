package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/statfuse/statfuse/internal/domain/rawrecord"
	qb "github.com/statfuse/statfuse/internal/platform/querybuilder"
)

type RawArchiveRepository struct {
	db *sqlx.DB
}

func NewRawArchiveRepository(db *sqlx.DB) *RawArchiveRepository {
	return &RawArchiveRepository{db: db}
}

func (r *RawArchiveRepository) UpsertMany(ctx context.Context, items []rawrecord.ArchivedPayload) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert raw payloads: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range items {
		insertModel := rawPayloadInsertModel{
			Provider:    item.Provider,
			Sport:       item.Sport.String(),
			Kind:        item.Kind,
			EntityKey:   item.EntityKey,
			Payload:     item.PayloadJSON,
			PayloadHash: item.PayloadHash,
			ReceivedAt:  item.ReceivedAt,
		}
		query, args, err := qb.InsertModel("raw_payloads", insertModel, `ON CONFLICT (provider, kind, entity_key)
DO UPDATE SET
    sport = EXCLUDED.sport,
    payload = EXCLUDED.payload,
    payload_hash = EXCLUDED.payload_hash,
    received_at = EXCLUDED.received_at`)
		if err != nil {
			return fmt.Errorf("build upsert raw payload query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert raw payload kind=%s key=%s: %w", item.Kind, item.EntityKey, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert raw payloads tx: %w", err)
	}
	return nil
}

type rawPayloadInsertModel struct {
	Provider    string    `db:"provider"`
	Sport       string    `db:"sport"`
	Kind        string    `db:"kind"`
	EntityKey   string    `db:"entity_key"`
	Payload     string    `db:"payload"`
	PayloadHash string    `db:"payload_hash"`
	ReceivedAt  time.Time `db:"received_at"`
}
