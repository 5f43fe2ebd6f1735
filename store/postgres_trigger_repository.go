package store

import (
	"context"

	"github.com/Abraxas-365/craftable/errx"
	"github.com/Abraxas-365/relay/engine"
	"github.com/Abraxas-365/relay/pkg/kernel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresTriggerRepository persiste los triggers derivados al guardar un flow
type PostgresTriggerRepository struct {
	db *sqlx.DB
}

var _ engine.TriggerRepository = (*PostgresTriggerRepository)(nil)

func NewPostgresTriggerRepository(db *sqlx.DB) *PostgresTriggerRepository {
	return &PostgresTriggerRepository{db: db}
}

type dbTrigger struct {
	FlowID        string         `db:"flow_id"`
	NodeID        string         `db:"node_id"`
	BrandID       string         `db:"brand_id"`
	TriggerType   string         `db:"trigger_type"`
	TriggerValues pq.StringArray `db:"trigger_values"`
}

// ReplaceForFlow borra e inserta de nuevo los triggers de un flow en una transacción;
// se invoca en cada guardado de flow para mantener la derivación consistente.
func (r *PostgresTriggerRepository) ReplaceForFlow(ctx context.Context, flowID kernel.FlowID, triggers []engine.Trigger) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errx.Wrap(err, "failed to begin transaction", errx.TypeInternal)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM triggers WHERE flow_id = $1`, flowID.String()); err != nil {
		return errx.Wrap(err, "failed to clear existing triggers", errx.TypeInternal).WithDetail("flow_id", flowID.String())
	}

	for _, t := range triggers {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO triggers (flow_id, node_id, brand_id, trigger_type, trigger_values)
			VALUES ($1, $2, $3, $4, $5)`,
			t.FlowID.String(), t.NodeID.String(), t.BrandID.String(), string(t.TriggerType), pq.Array(t.TriggerValues),
		)
		if err != nil {
			return errx.Wrap(err, "failed to insert trigger", errx.TypeInternal).WithDetail("flow_id", flowID.String())
		}
	}

	if err := tx.Commit(); err != nil {
		return errx.Wrap(err, "failed to commit trigger replacement", errx.TypeInternal)
	}
	return nil
}

// FindByBrandPublished retorna los triggers de un brand cuyo flow está publicado,
// ordenados por flow_id y node_id.
func (r *PostgresTriggerRepository) FindByBrandPublished(ctx context.Context, brandID kernel.BrandID) ([]engine.Trigger, error) {
	query := `
		SELECT t.flow_id, t.node_id, t.brand_id, t.trigger_type, t.trigger_values
		FROM triggers t
		JOIN flows f ON f.id = t.flow_id
		WHERE t.brand_id = $1 AND f.status = 'published'
		ORDER BY t.flow_id, t.node_id`

	var rows []dbTrigger
	if err := r.db.SelectContext(ctx, &rows, query, brandID.String()); err != nil {
		return nil, errx.Wrap(err, "failed to list triggers for brand", errx.TypeInternal).WithDetail("brand_id", brandID.String())
	}

	triggers := make([]engine.Trigger, 0, len(rows))
	for _, row := range rows {
		triggers = append(triggers, engine.Trigger{
			FlowID:        kernel.FlowID(row.FlowID),
			NodeID:        kernel.NodeID(row.NodeID),
			BrandID:       kernel.BrandID(row.BrandID),
			TriggerType:   engine.TriggerType(row.TriggerType),
			TriggerValues: []string(row.TriggerValues),
		})
	}
	return triggers, nil
}
