package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Abraxas-365/craftable/errx"
	"github.com/Abraxas-365/relay/engine"
	"github.com/Abraxas-365/relay/pkg/kernel"
	"github.com/jmoiron/sqlx"
)

// PostgresFlowSettingsRepository persiste configuración por (flow, node),
// p.ej. remitente de correo para send_email_template (§3 FlowSettings).
type PostgresFlowSettingsRepository struct {
	db *sqlx.DB
}

var _ engine.FlowSettingsRepository = (*PostgresFlowSettingsRepository)(nil)

func NewPostgresFlowSettingsRepository(db *sqlx.DB) *PostgresFlowSettingsRepository {
	return &PostgresFlowSettingsRepository{db: db}
}

func (r *PostgresFlowSettingsRepository) FindByFlowNode(ctx context.Context, flowID kernel.FlowID, nodeID kernel.NodeID) (*engine.FlowSettings, error) {
	var settingsJSON []byte
	query := `SELECT settings FROM flow_settings WHERE flow_id = $1 AND node_id = $2`
	err := r.db.GetContext(ctx, &settingsJSON, query, flowID.String(), nodeID.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, engine.ErrFlowNotFound().
				WithDetail("flow_id", flowID.String()).
				WithDetail("node_id", nodeID.String())
		}
		return nil, errx.Wrap(err, "failed to find flow settings", errx.TypeInternal)
	}

	var settings map[string]any
	if len(settingsJSON) > 0 {
		if err := json.Unmarshal(settingsJSON, &settings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
		}
	}

	return &engine.FlowSettings{
		FlowID:   flowID,
		NodeID:   nodeID,
		Settings: settings,
	}, nil
}

func (r *PostgresFlowSettingsRepository) Upsert(ctx context.Context, fs engine.FlowSettings) error {
	settingsJSON, err := json.Marshal(fs.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	query := `
		INSERT INTO flow_settings (flow_id, node_id, settings, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (flow_id, node_id) DO UPDATE SET
			settings = EXCLUDED.settings,
			updated_at = now()`

	if _, err := r.db.ExecContext(ctx, query, fs.FlowID.String(), fs.NodeID.String(), settingsJSON); err != nil {
		return errx.Wrap(err, "failed to upsert flow settings", errx.TypeInternal).
			WithDetail("flow_id", fs.FlowID.String()).
			WithDetail("node_id", fs.NodeID.String())
	}
	return nil
}
