package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Abraxas-365/craftable/errx"
	"github.com/Abraxas-365/relay/engine"
	"github.com/Abraxas-365/relay/pkg/kernel"
	"github.com/jmoiron/sqlx"
)

// PostgresWebhookMessageRepository persiste la auditoría de eventos entrantes
type PostgresWebhookMessageRepository struct {
	db *sqlx.DB
}

var _ engine.WebhookMessageRepository = (*PostgresWebhookMessageRepository)(nil)

func NewPostgresWebhookMessageRepository(db *sqlx.DB) *PostgresWebhookMessageRepository {
	return &PostgresWebhookMessageRepository{db: db}
}

func (r *PostgresWebhookMessageRepository) Save(ctx context.Context, msg engine.WebhookMessage) error {
	metadataJSON, err := json.Marshal(msg.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook metadata: %w", err)
	}
	dataJSON, err := json.Marshal(msg.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook data: %w", err)
	}
	rawJSON, err := json.Marshal(msg.RawPayload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook raw payload: %w", err)
	}

	query := `
		INSERT INTO webhook_messages (id, metadata, data, raw_payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())`

	_, err = r.db.ExecContext(ctx, query, msg.ID.String(), metadataJSON, dataJSON, rawJSON)
	if err != nil {
		return errx.Wrap(err, "failed to save webhook message", errx.TypeInternal).WithDetail("id", msg.ID.String())
	}
	return nil
}

func (r *PostgresWebhookMessageRepository) MarkProcessed(ctx context.Context, id kernel.WebhookMessageID) error {
	return r.setStatus(ctx, id, engine.WebhookMessageStatusProcessed)
}

func (r *PostgresWebhookMessageRepository) MarkError(ctx context.Context, id kernel.WebhookMessageID) error {
	return r.setStatus(ctx, id, engine.WebhookMessageStatusError)
}

// setStatus actualiza únicamente metadata.status; fallos aquí se registran
// pero nunca bloquean la respuesta al caller (§4.2 paso 4).
func (r *PostgresWebhookMessageRepository) setStatus(ctx context.Context, id kernel.WebhookMessageID, status engine.WebhookMessageStatus) error {
	query := `UPDATE webhook_messages SET metadata = jsonb_set(metadata, '{status}', to_jsonb($1::text)), updated_at = now() WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, string(status), id.String()); err != nil {
		return errx.Wrap(err, "failed to update webhook message status", errx.TypeInternal).WithDetail("id", id.String())
	}
	return nil
}
