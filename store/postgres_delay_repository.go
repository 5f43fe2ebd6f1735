package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Abraxas-365/craftable/errx"
	"github.com/Abraxas-365/relay/engine"
	"github.com/Abraxas-365/relay/pkg/kernel"
	"github.com/jmoiron/sqlx"
)

// PostgresDelayRepository persiste delays pendientes; fuente de verdad para
// el sondeo del Delay Scheduler (SPEC_FULL A.3, §5).
type PostgresDelayRepository struct {
	db *sqlx.DB
}

var _ engine.DelayRepository = (*PostgresDelayRepository)(nil)

func NewPostgresDelayRepository(db *sqlx.DB) *PostgresDelayRepository {
	return &PostgresDelayRepository{db: db}
}

type dbDelay struct {
	ID               string          `db:"id"`
	UserIdentifier   string          `db:"user_identifier"`
	BrandID          string          `db:"brand_id"`
	FlowID           string          `db:"flow_id"`
	DelayNodeID      string          `db:"delay_node_id"`
	DelayNodeData    json.RawMessage `db:"delay_node_data"`
	DelayStartedAt   time.Time       `db:"delay_started_at"`
	DelayCompletesAt time.Time       `db:"delay_completes_at"`
	Processed        bool            `db:"processed"`
}

func toDomainDelay(d *dbDelay) (*engine.Delay, error) {
	var data engine.DelayNodeData
	if len(d.DelayNodeData) > 0 && string(d.DelayNodeData) != "null" {
		if err := json.Unmarshal(d.DelayNodeData, &data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal delay_node_data: %w", err)
		}
	}
	return &engine.Delay{
		ID:               kernel.DelayID(d.ID),
		UserIdentifier:   d.UserIdentifier,
		BrandID:          kernel.BrandID(d.BrandID),
		FlowID:           kernel.FlowID(d.FlowID),
		DelayNodeID:      kernel.NodeID(d.DelayNodeID),
		DelayNodeData:    data,
		DelayStartedAt:   d.DelayStartedAt,
		DelayCompletesAt: d.DelayCompletesAt,
		Processed:        d.Processed,
	}, nil
}

func (r *PostgresDelayRepository) Save(ctx context.Context, d engine.Delay) error {
	dataJSON, err := json.Marshal(d.DelayNodeData)
	if err != nil {
		return fmt.Errorf("failed to marshal delay_node_data: %w", err)
	}

	query := `
		INSERT INTO delays (id, user_identifier, brand_id, flow_id, delay_node_id, delay_node_data,
		                     delay_started_at, delay_completes_at, processed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.db.ExecContext(ctx, query,
		d.ID.String(), d.UserIdentifier, d.BrandID.String(), d.FlowID.String(), d.DelayNodeID.String(),
		dataJSON, d.DelayStartedAt, d.DelayCompletesAt, d.Processed)
	if err != nil {
		return errx.Wrap(err, "failed to save delay", errx.TypeInternal).WithDetail("delay_id", d.ID.String())
	}
	return nil
}

func (r *PostgresDelayRepository) FindByID(ctx context.Context, id kernel.DelayID) (*engine.Delay, error) {
	query := `
		SELECT id, user_identifier, brand_id, flow_id, delay_node_id, delay_node_data,
		       delay_started_at, delay_completes_at, processed
		FROM delays WHERE id = $1`

	var dbD dbDelay
	if err := r.db.GetContext(ctx, &dbD, query, id.String()); err != nil {
		if err == sql.ErrNoRows {
			return nil, engine.ErrDelayNotFound().WithDetail("delay_id", id.String())
		}
		return nil, errx.Wrap(err, "failed to find delay", errx.TypeInternal)
	}
	return toDomainDelay(&dbD)
}

// FindDue retorna los delays vencidos no procesados, candidatos para la
// siguiente pasada del scheduler (§5: "processes all due delays in a single pass").
func (r *PostgresDelayRepository) FindDue(ctx context.Context, now time.Time) ([]engine.Delay, error) {
	query := `
		SELECT id, user_identifier, brand_id, flow_id, delay_node_id, delay_node_data,
		       delay_started_at, delay_completes_at, processed
		FROM delays WHERE processed = false AND delay_completes_at <= $1
		ORDER BY delay_completes_at ASC`

	var rows []dbDelay
	if err := r.db.SelectContext(ctx, &rows, query, now); err != nil {
		return nil, errx.Wrap(err, "failed to find due delays", errx.TypeInternal)
	}

	out := make([]engine.Delay, 0, len(rows))
	for i := range rows {
		d, err := toDomainDelay(&rows[i])
		if err != nil {
			return nil, errx.Wrap(err, "failed to convert delay", errx.TypeInternal)
		}
		out = append(out, *d)
	}
	return out, nil
}

// MarkProcessed aplica el disparo at-most-once: la actualización condicional
// en `processed = false` asegura que una carrera entre dos ticks no dispare dos veces.
func (r *PostgresDelayRepository) MarkProcessed(ctx context.Context, id kernel.DelayID) error {
	result, err := r.db.ExecContext(ctx, `UPDATE delays SET processed = true WHERE id = $1 AND processed = false`, id.String())
	if err != nil {
		return errx.Wrap(err, "failed to mark delay processed", errx.TypeInternal).WithDetail("delay_id", id.String())
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected", errx.TypeInternal)
	}
	if rows == 0 {
		return engine.ErrDelayNotFound().WithDetail("delay_id", id.String())
	}
	return nil
}

// CancelForUser marca processed=true al delay activo del usuario (interrupción, §4.7 3b)
func (r *PostgresDelayRepository) CancelForUser(ctx context.Context, userIdentifier string, flowID kernel.FlowID, nodeID kernel.NodeID) error {
	query := `
		UPDATE delays SET processed = true
		WHERE user_identifier = $1 AND flow_id = $2 AND delay_node_id = $3 AND processed = false`
	if _, err := r.db.ExecContext(ctx, query, userIdentifier, flowID.String(), nodeID.String()); err != nil {
		return errx.Wrap(err, "failed to cancel delay for user", errx.TypeInternal).WithDetail("user_identifier", userIdentifier)
	}
	return nil
}
