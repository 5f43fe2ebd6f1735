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

// PostgresUserTransactionRepository bitácora append-only de ejecución de nodos
type PostgresUserTransactionRepository struct {
	db *sqlx.DB
}

var _ engine.UserTransactionRepository = (*PostgresUserTransactionRepository)(nil)

func NewPostgresUserTransactionRepository(db *sqlx.DB) *PostgresUserTransactionRepository {
	return &PostgresUserTransactionRepository{db: db}
}

func (r *PostgresUserTransactionRepository) Append(ctx context.Context, tx engine.UserTransaction) error {
	detailJSON, err := json.Marshal(tx.UserDetail)
	if err != nil {
		return fmt.Errorf("failed to marshal user_detail: %w", err)
	}
	var processedJSON []byte
	if tx.ProcessedValue != nil {
		processedJSON, err = json.Marshal(tx.ProcessedValue)
		if err != nil {
			return fmt.Errorf("failed to marshal processed_value: %w", err)
		}
	}
	var nodeDataJSON []byte
	if tx.NodeData != nil {
		nodeDataJSON, err = json.Marshal(tx.NodeData)
		if err != nil {
			return fmt.Errorf("failed to marshal node_data: %w", err)
		}
	}

	query := `
		INSERT INTO user_transactions (
			id, node_id, flow_id, user_detail, channel, processed_status,
			node_type, processed_value, node_data, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())`

	_, err = r.db.ExecContext(ctx, query,
		tx.ID.String(), tx.NodeID.String(), tx.FlowID.String(), detailJSON, tx.Channel,
		tx.ProcessedStatus, string(tx.NodeType), processedJSON, nodeDataJSON)
	if err != nil {
		return errx.Wrap(err, "failed to append user transaction", errx.TypeInternal).
			WithDetail("flow_id", tx.FlowID.String()).
			WithDetail("node_id", tx.NodeID.String())
	}
	return nil
}

// CountByNode cuenta ejecuciones registradas para un nodo de un flow; el
// engine no lo invoca (el Node Walker acota el encadenamiento con un
// contador en memoria).
func (r *PostgresUserTransactionRepository) CountByNode(ctx context.Context, flowID kernel.FlowID, nodeID kernel.NodeID) (int, error) {
	var count int
	query := `SELECT count(*) FROM user_transactions WHERE flow_id = $1 AND node_id = $2`
	if err := r.db.GetContext(ctx, &count, query, flowID.String(), nodeID.String()); err != nil {
		return 0, errx.Wrap(err, "failed to count user transactions", errx.TypeInternal).WithDetail("flow_id", flowID.String())
	}
	return count, nil
}
