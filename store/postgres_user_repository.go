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

// PostgresUserRepository persiste el estado conversacional por usuario
type PostgresUserRepository struct {
	db *sqlx.DB
}

var _ engine.UserRepository = (*PostgresUserRepository)(nil)

func NewPostgresUserRepository(db *sqlx.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

type dbUser struct {
	ID               string          `db:"id"`
	BrandID          string          `db:"brand_id"`
	Channel          string          `db:"channel"`
	ChannelAccountID string          `db:"channel_account_id"`
	UserDetail       json.RawMessage `db:"user_detail"`
	LeadID           string          `db:"lead_id"`
	IsInAutomation   bool            `db:"is_in_automation"`
	CurrentFlowID    sql.NullString  `db:"current_flow_id"`
	CurrentNodeID    sql.NullString  `db:"current_node_id"`
	Validation       json.RawMessage `db:"validation"`
	DelayNodeData    json.RawMessage `db:"delay_node_data"`
	CreatedAt        sql.NullTime    `db:"created_at"`
	UpdatedAt        sql.NullTime    `db:"updated_at"`
}

func toDBUser(u engine.User) (*dbUser, error) {
	detailJSON, err := json.Marshal(u.UserDetail)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal user_detail: %w", err)
	}
	validationJSON, err := json.Marshal(u.Validation)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal validation: %w", err)
	}
	var delayJSON []byte
	if u.DelayNodeData != nil {
		delayJSON, err = json.Marshal(u.DelayNodeData)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal delay_node_data: %w", err)
		}
	}

	dbU := &dbUser{
		ID:               u.ID.String(),
		BrandID:          u.BrandID.String(),
		Channel:          u.Channel,
		ChannelAccountID: u.ChannelAccountID,
		UserDetail:       detailJSON,
		LeadID:           u.LeadID,
		IsInAutomation:   u.IsInAutomation,
		Validation:       validationJSON,
		DelayNodeData:    delayJSON,
		CreatedAt:        sql.NullTime{Time: u.CreatedAt, Valid: true},
		UpdatedAt:        sql.NullTime{Time: u.UpdatedAt, Valid: true},
	}
	if u.CurrentFlowID != nil {
		dbU.CurrentFlowID = sql.NullString{String: u.CurrentFlowID.String(), Valid: true}
	}
	if u.CurrentNodeID != nil {
		dbU.CurrentNodeID = sql.NullString{String: u.CurrentNodeID.String(), Valid: true}
	}
	return dbU, nil
}

func toDomainUser(dbU *dbUser) (*engine.User, error) {
	var detail engine.UserDetail
	if len(dbU.UserDetail) > 0 && string(dbU.UserDetail) != "null" {
		if err := json.Unmarshal(dbU.UserDetail, &detail); err != nil {
			return nil, fmt.Errorf("failed to unmarshal user_detail: %w", err)
		}
	}
	var validation engine.UserValidation
	if len(dbU.Validation) > 0 && string(dbU.Validation) != "null" {
		if err := json.Unmarshal(dbU.Validation, &validation); err != nil {
			return nil, fmt.Errorf("failed to unmarshal validation: %w", err)
		}
	}
	var delayData engine.DelayNodeData
	if len(dbU.DelayNodeData) > 0 && string(dbU.DelayNodeData) != "null" {
		if err := json.Unmarshal(dbU.DelayNodeData, &delayData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal delay_node_data: %w", err)
		}
	}

	u := &engine.User{
		ID:               kernel.UserID(dbU.ID),
		BrandID:          kernel.BrandID(dbU.BrandID),
		Channel:          dbU.Channel,
		ChannelAccountID: dbU.ChannelAccountID,
		UserDetail:       detail,
		LeadID:           dbU.LeadID,
		IsInAutomation:   dbU.IsInAutomation,
		Validation:       validation,
		DelayNodeData:    delayData,
		CreatedAt:        dbU.CreatedAt.Time,
		UpdatedAt:        dbU.UpdatedAt.Time,
	}
	if dbU.CurrentFlowID.Valid {
		fid := kernel.FlowID(dbU.CurrentFlowID.String)
		u.CurrentFlowID = &fid
	}
	if dbU.CurrentNodeID.Valid {
		nid := kernel.NodeID(dbU.CurrentNodeID.String)
		u.CurrentNodeID = &nid
	}
	return u, nil
}

func (r *PostgresUserRepository) FindByIdentity(ctx context.Context, brandID kernel.BrandID, channel, channelAccountID string) (*engine.User, error) {
	query := `
		SELECT id, brand_id, channel, channel_account_id, user_detail, lead_id,
		       is_in_automation, current_flow_id, current_node_id, validation, delay_node_data,
		       created_at, updated_at
		FROM users WHERE brand_id = $1 AND channel = $2 AND channel_account_id = $3`

	var dbU dbUser
	err := r.db.GetContext(ctx, &dbU, query, brandID.String(), channel, channelAccountID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, engine.ErrUserNotFound().
				WithDetail("brand_id", brandID.String()).
				WithDetail("channel_account_id", channelAccountID)
		}
		return nil, errx.Wrap(err, "failed to find user by identity", errx.TypeInternal)
	}
	return toDomainUser(&dbU)
}

func (r *PostgresUserRepository) FindByID(ctx context.Context, id kernel.UserID) (*engine.User, error) {
	query := `
		SELECT id, brand_id, channel, channel_account_id, user_detail, lead_id,
		       is_in_automation, current_flow_id, current_node_id, validation, delay_node_data,
		       created_at, updated_at
		FROM users WHERE id = $1`

	var dbU dbUser
	if err := r.db.GetContext(ctx, &dbU, query, id.String()); err != nil {
		if err == sql.ErrNoRows {
			return nil, engine.ErrUserNotFound().WithDetail("user_id", id.String())
		}
		return nil, errx.Wrap(err, "failed to find user by id", errx.TypeInternal)
	}
	return toDomainUser(&dbU)
}

func (r *PostgresUserRepository) Save(ctx context.Context, user engine.User) error {
	dbU, err := toDBUser(user)
	if err != nil {
		return errx.Wrap(err, "failed to convert user", errx.TypeInternal).WithDetail("user_id", user.ID.String())
	}

	query := `
		INSERT INTO users (
			id, brand_id, channel, channel_account_id, user_detail, lead_id,
			is_in_automation, current_flow_id, current_node_id, validation, delay_node_data,
			created_at, updated_at
		) VALUES (
			:id, :brand_id, :channel, :channel_account_id, :user_detail, :lead_id,
			:is_in_automation, :current_flow_id, :current_node_id, :validation, :delay_node_data,
			:created_at, :updated_at
		)
		ON CONFLICT (id) DO UPDATE SET
			user_detail = EXCLUDED.user_detail,
			lead_id = EXCLUDED.lead_id,
			is_in_automation = EXCLUDED.is_in_automation,
			current_flow_id = EXCLUDED.current_flow_id,
			current_node_id = EXCLUDED.current_node_id,
			validation = EXCLUDED.validation,
			delay_node_data = EXCLUDED.delay_node_data,
			updated_at = EXCLUDED.updated_at`

	if _, err := r.db.NamedExecContext(ctx, query, dbU); err != nil {
		return errx.Wrap(err, "failed to save user", errx.TypeInternal).WithDetail("user_id", user.ID.String())
	}
	return nil
}
