package store

import (
	"context"
	"database/sql"

	"github.com/Abraxas-365/craftable/errx"
	"github.com/Abraxas-365/relay/engine"
	"github.com/Abraxas-365/relay/pkg/kernel"
	"github.com/jmoiron/sqlx"
)

// PostgresBrandLookup es la proyección de solo lectura sobre la tabla brands
// del sistema de tenancy existente; el engine nunca escribe brands, solo
// valida que un brand_id exista antes de aceptar operaciones sobre un Flow.
type PostgresBrandLookup struct {
	db *sqlx.DB
}

var _ engine.BrandLookup = (*PostgresBrandLookup)(nil)

func NewPostgresBrandLookup(db *sqlx.DB) *PostgresBrandLookup {
	return &PostgresBrandLookup{db: db}
}

func (l *PostgresBrandLookup) BrandExists(ctx context.Context, brandID kernel.BrandID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM brands WHERE id = $1)`
	if err := l.db.GetContext(ctx, &exists, query, brandID.String()); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, errx.Wrap(err, "failed to check brand existence", errx.TypeInternal).WithDetail("brand_id", brandID.String())
	}
	return exists, nil
}
