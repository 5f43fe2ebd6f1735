package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Abraxas-365/craftable/errx"
	"github.com/Abraxas-365/craftable/storex"
	"github.com/Abraxas-365/relay/engine"
	"github.com/Abraxas-365/relay/pkg/kernel"
	"github.com/jmoiron/sqlx"
)

// PostgresFlowRepository persiste flows (nodos y edges embebidos como JSON)
type PostgresFlowRepository struct {
	db *sqlx.DB
}

var _ engine.FlowRepository = (*PostgresFlowRepository)(nil)

func NewPostgresFlowRepository(db *sqlx.DB) *PostgresFlowRepository {
	return &PostgresFlowRepository{db: db}
}

// dbFlow intermediate struct para operaciones de base de datos
type dbFlow struct {
	ID           string          `db:"id"`
	BrandID      string          `db:"brand_id"`
	Name         string          `db:"name"`
	AuthorUserID string          `db:"author_user_id"`
	Status       string          `db:"status"`
	Nodes        json.RawMessage `db:"nodes"`
	Edges        json.RawMessage `db:"edges"`
	CreatedAt    sql.NullTime    `db:"created_at"`
	UpdatedAt    sql.NullTime    `db:"updated_at"`
}

func toDBFlow(f engine.Flow) (*dbFlow, error) {
	nodesJSON, err := json.Marshal(f.Nodes)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal nodes: %w", err)
	}
	edgesJSON, err := json.Marshal(f.Edges)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal edges: %w", err)
	}
	return &dbFlow{
		ID:           f.ID.String(),
		BrandID:      f.BrandID.String(),
		Name:         f.Name,
		AuthorUserID: f.AuthorUserID.String(),
		Status:       string(f.Status),
		Nodes:        nodesJSON,
		Edges:        edgesJSON,
		CreatedAt:    sql.NullTime{Time: f.CreatedAt, Valid: true},
		UpdatedAt:    sql.NullTime{Time: f.UpdatedAt, Valid: true},
	}, nil
}

func toDomainFlow(dbF *dbFlow) (*engine.Flow, error) {
	var nodes []engine.Node
	if len(dbF.Nodes) > 0 && string(dbF.Nodes) != "null" {
		if err := json.Unmarshal(dbF.Nodes, &nodes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal nodes: %w", err)
		}
	}
	var edges []engine.Edge
	if len(dbF.Edges) > 0 && string(dbF.Edges) != "null" {
		if err := json.Unmarshal(dbF.Edges, &edges); err != nil {
			return nil, fmt.Errorf("failed to unmarshal edges: %w", err)
		}
	}
	return &engine.Flow{
		ID:           kernel.FlowID(dbF.ID),
		BrandID:      kernel.BrandID(dbF.BrandID),
		Name:         dbF.Name,
		AuthorUserID: kernel.UserID(dbF.AuthorUserID),
		Status:       engine.FlowStatus(dbF.Status),
		Nodes:        nodes,
		Edges:        edges,
		CreatedAt:    dbF.CreatedAt.Time,
		UpdatedAt:    dbF.UpdatedAt.Time,
	}, nil
}

func (r *PostgresFlowRepository) Save(ctx context.Context, flow engine.Flow) error {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM flows WHERE id = $1)`, flow.ID.String())
	if err != nil {
		return errx.Wrap(err, "failed to check flow existence", errx.TypeInternal)
	}
	if exists {
		return r.update(ctx, flow)
	}
	return r.create(ctx, flow)
}

func (r *PostgresFlowRepository) create(ctx context.Context, flow engine.Flow) error {
	dbF, err := toDBFlow(flow)
	if err != nil {
		return errx.Wrap(err, "failed to convert flow", errx.TypeInternal).WithDetail("flow_id", flow.ID.String())
	}
	if dbF.Status == "" {
		dbF.Status = string(engine.FlowStatusDraft)
	}

	query := `
		INSERT INTO flows (id, brand_id, name, author_user_id, status, nodes, edges, created_at, updated_at)
		VALUES (:id, :brand_id, :name, :author_user_id, :status, :nodes, :edges, :created_at, :updated_at)`

	if _, err := r.db.NamedExecContext(ctx, query, dbF); err != nil {
		return errx.Wrap(err, "failed to create flow", errx.TypeInternal).WithDetail("flow_id", flow.ID.String())
	}
	return nil
}

func (r *PostgresFlowRepository) update(ctx context.Context, flow engine.Flow) error {
	dbF, err := toDBFlow(flow)
	if err != nil {
		return errx.Wrap(err, "failed to convert flow", errx.TypeInternal).WithDetail("flow_id", flow.ID.String())
	}

	query := `
		UPDATE flows SET
			name = :name, nodes = :nodes, edges = :edges, status = :status, updated_at = :updated_at
		WHERE id = :id AND brand_id = :brand_id`

	result, err := r.db.NamedExecContext(ctx, query, dbF)
	if err != nil {
		return errx.Wrap(err, "failed to update flow", errx.TypeInternal).WithDetail("flow_id", flow.ID.String())
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected", errx.TypeInternal)
	}
	if rows == 0 {
		return engine.ErrFlowNotFound().WithDetail("flow_id", flow.ID.String())
	}
	return nil
}

func (r *PostgresFlowRepository) FindByID(ctx context.Context, id kernel.FlowID) (*engine.Flow, error) {
	query := `SELECT id, brand_id, name, author_user_id, status, nodes, edges, created_at, updated_at FROM flows WHERE id = $1`
	var dbF dbFlow
	if err := r.db.GetContext(ctx, &dbF, query, id.String()); err != nil {
		if err == sql.ErrNoRows {
			return nil, engine.ErrFlowNotFound().WithDetail("flow_id", id.String())
		}
		return nil, errx.Wrap(err, "failed to find flow by id", errx.TypeInternal).WithDetail("flow_id", id.String())
	}
	return toDomainFlow(&dbF)
}

func (r *PostgresFlowRepository) Delete(ctx context.Context, id kernel.FlowID, brandID kernel.BrandID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM flows WHERE id = $1 AND brand_id = $2`, id.String(), brandID.String())
	if err != nil {
		return errx.Wrap(err, "failed to delete flow", errx.TypeInternal).WithDetail("flow_id", id.String())
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected", errx.TypeInternal)
	}
	if rows == 0 {
		return engine.ErrFlowNotFound().WithDetail("flow_id", id.String())
	}
	return nil
}

func (r *PostgresFlowRepository) UpdateStatus(ctx context.Context, id kernel.FlowID, status engine.FlowStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE flows SET status = $1, updated_at = now() WHERE id = $2`, string(status), id.String())
	if err != nil {
		return errx.Wrap(err, "failed to update flow status", errx.TypeInternal).WithDetail("flow_id", id.String())
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected", errx.TypeInternal)
	}
	if rows == 0 {
		return engine.ErrFlowNotFound().WithDetail("flow_id", id.String())
	}
	return nil
}

func (r *PostgresFlowRepository) List(ctx context.Context, brandID kernel.BrandID, opts storex.PaginationOptions) (storex.Paginated[engine.Flow], error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM flows WHERE brand_id = $1`, brandID.String()); err != nil {
		return storex.Paginated[engine.Flow]{}, errx.Wrap(err, "failed to count flows", errx.TypeInternal)
	}

	page, pageSize := opts.Page, opts.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := `
		SELECT id, brand_id, name, author_user_id, status, nodes, edges, created_at, updated_at
		FROM flows WHERE brand_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	var dbFlows []dbFlow
	if err := r.db.SelectContext(ctx, &dbFlows, query, brandID.String(), pageSize, offset); err != nil {
		return storex.Paginated[engine.Flow]{}, errx.Wrap(err, "failed to list flows", errx.TypeInternal)
	}

	flows := make([]engine.Flow, 0, len(dbFlows))
	for i := range dbFlows {
		f, err := toDomainFlow(&dbFlows[i])
		if err != nil {
			return storex.Paginated[engine.Flow]{}, errx.Wrap(err, "failed to convert flow", errx.TypeInternal)
		}
		flows = append(flows, *f)
	}

	return storex.NewPaginated(flows, total, page, pageSize), nil
}
