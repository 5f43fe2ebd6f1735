package store

import (
	"context"
	"database/sql"

	"github.com/Abraxas-365/craftable/errx"
	"github.com/Abraxas-365/relay/engine"
	"github.com/jmoiron/sqlx"
)

// PostgresNodeDetailRepository persiste el registro de metadata de tipos de nodo
type PostgresNodeDetailRepository struct {
	db *sqlx.DB
}

var _ engine.NodeDetailRepository = (*PostgresNodeDetailRepository)(nil)

func NewPostgresNodeDetailRepository(db *sqlx.DB) *PostgresNodeDetailRepository {
	return &PostgresNodeDetailRepository{db: db}
}

type dbNodeDetail struct {
	NodeType          string `db:"node_type"`
	Category          string `db:"category"`
	UserInputRequired bool   `db:"user_input_required"`
	IsInternal        bool   `db:"is_internal"`
}

func toDomainNodeDetail(d dbNodeDetail) engine.NodeDetail {
	return engine.NodeDetail{
		NodeType:          engine.NodeType(d.NodeType),
		Category:          engine.NodeCategory(d.Category),
		UserInputRequired: d.UserInputRequired,
		IsInternal:        d.IsInternal,
	}
}

func (r *PostgresNodeDetailRepository) FindByType(ctx context.Context, nodeType engine.NodeType) (*engine.NodeDetail, error) {
	var d dbNodeDetail
	query := `SELECT node_type, category, user_input_required, is_internal FROM node_details WHERE node_type = $1`
	if err := r.db.GetContext(ctx, &d, query, string(nodeType)); err != nil {
		if err == sql.ErrNoRows {
			return nil, engine.ErrUnknownNodeType().WithDetail("node_type", string(nodeType))
		}
		return nil, errx.Wrap(err, "failed to find node detail", errx.TypeInternal)
	}
	nd := toDomainNodeDetail(d)
	return &nd, nil
}

func (r *PostgresNodeDetailRepository) List(ctx context.Context) ([]engine.NodeDetail, error) {
	var rows []dbNodeDetail
	query := `SELECT node_type, category, user_input_required, is_internal FROM node_details ORDER BY node_type`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, errx.Wrap(err, "failed to list node details", errx.TypeInternal)
	}
	out := make([]engine.NodeDetail, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainNodeDetail(row))
	}
	return out, nil
}

func (r *PostgresNodeDetailRepository) ListByCategory(ctx context.Context, category engine.NodeCategory) ([]engine.NodeDetail, error) {
	var rows []dbNodeDetail
	query := `SELECT node_type, category, user_input_required, is_internal FROM node_details WHERE category = $1 ORDER BY node_type`
	if err := r.db.SelectContext(ctx, &rows, query, string(category)); err != nil {
		return nil, errx.Wrap(err, "failed to list node details by category", errx.TypeInternal).WithDetail("category", string(category))
	}
	out := make([]engine.NodeDetail, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainNodeDetail(row))
	}
	return out, nil
}

func (r *PostgresNodeDetailRepository) Upsert(ctx context.Context, nd engine.NodeDetail) error {
	query := `
		INSERT INTO node_details (node_type, category, user_input_required, is_internal)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (node_type) DO UPDATE SET
			category = EXCLUDED.category,
			user_input_required = EXCLUDED.user_input_required,
			is_internal = EXCLUDED.is_internal`

	if _, err := r.db.ExecContext(ctx, query, string(nd.NodeType), string(nd.Category), nd.UserInputRequired, nd.IsInternal); err != nil {
		return errx.Wrap(err, "failed to upsert node detail", errx.TypeInternal).WithDetail("node_type", string(nd.NodeType))
	}
	return nil
}
