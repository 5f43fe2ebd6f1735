package store

import (
	"context"

	"github.com/Abraxas-365/craftable/errx"
	"github.com/Abraxas-365/relay/engine"
	"github.com/Abraxas-365/relay/pkg/kernel"
	"github.com/jmoiron/sqlx"
)

// PostgresFlowUserContextRepository persiste variables capturadas por usuario+flow
type PostgresFlowUserContextRepository struct {
	db *sqlx.DB
}

var _ engine.FlowUserContextRepository = (*PostgresFlowUserContextRepository)(nil)

func NewPostgresFlowUserContextRepository(db *sqlx.DB) *PostgresFlowUserContextRepository {
	return &PostgresFlowUserContextRepository{db: db}
}

// Upsert inserta o actualiza la fila (user_id, flow_id, variable_name)
func (r *PostgresFlowUserContextRepository) Upsert(ctx context.Context, fuc engine.FlowUserContext) error {
	query := `
		INSERT INTO flow_user_context (user_id, flow_id, variable_name, variable_value, node_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (user_id, flow_id, variable_name) DO UPDATE SET
			variable_value = EXCLUDED.variable_value,
			node_id = EXCLUDED.node_id,
			updated_at = now()`

	_, err := r.db.ExecContext(ctx, query,
		fuc.UserID.String(), fuc.FlowID.String(), fuc.VariableName, fuc.VariableValue, fuc.NodeID.String())
	if err != nil {
		return errx.Wrap(err, "failed to upsert flow user context", errx.TypeInternal).
			WithDetail("user_id", fuc.UserID.String()).
			WithDetail("variable_name", fuc.VariableName)
	}
	return nil
}

func (r *PostgresFlowUserContextRepository) FindByUserFlow(ctx context.Context, userID kernel.UserID, flowID kernel.FlowID) ([]engine.FlowUserContext, error) {
	query := `
		SELECT user_id, flow_id, variable_name, variable_value, node_id, updated_at
		FROM flow_user_context WHERE user_id = $1 AND flow_id = $2`

	type row struct {
		UserID        string    `db:"user_id"`
		FlowID        string    `db:"flow_id"`
		VariableName  string    `db:"variable_name"`
		VariableValue string    `db:"variable_value"`
		NodeID        string    `db:"node_id"`
		UpdatedAt     any       `db:"updated_at"`
	}
	var rows []row
	if err := r.db.SelectContext(ctx, &rows, query, userID.String(), flowID.String()); err != nil {
		return nil, errx.Wrap(err, "failed to list flow user context", errx.TypeInternal).WithDetail("user_id", userID.String())
	}

	out := make([]engine.FlowUserContext, 0, len(rows))
	for _, r2 := range rows {
		out = append(out, engine.FlowUserContext{
			UserID:        kernel.UserID(r2.UserID),
			FlowID:        kernel.FlowID(r2.FlowID),
			VariableName:  r2.VariableName,
			VariableValue: r2.VariableValue,
			NodeID:        kernel.NodeID(r2.NodeID),
		})
	}
	return out, nil
}

// DeleteByFlow borra todas las variables de un flow; solo por acción explícita del operador
func (r *PostgresFlowUserContextRepository) DeleteByFlow(ctx context.Context, flowID kernel.FlowID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM flow_user_context WHERE flow_id = $1`, flowID.String())
	if err != nil {
		return errx.Wrap(err, "failed to delete flow user context", errx.TypeInternal).WithDetail("flow_id", flowID.String())
	}
	return nil
}
