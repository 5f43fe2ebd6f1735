package engine

import (
	"github.com/Abraxas-365/craftable/storex"
	"github.com/Abraxas-365/relay/pkg/kernel"
)

// ============================================================================
// Flow DTOs
// ============================================================================

// CreateFlowRequest body de POST /flow/create
type CreateFlowRequest struct {
	BrandID      kernel.BrandID `json:"brand_id" validate:"required"`
	Name         string         `json:"name" validate:"required,min=2"`
	AuthorUserID kernel.UserID  `json:"author_user_id" validate:"required"`
	Nodes        []Node         `json:"nodes" validate:"required,min=1"`
	Edges        []Edge         `json:"edges"`
}

// UpdateFlowRequest body de PUT /flow/update/{id}
type UpdateFlowRequest struct {
	Name  *string `json:"name,omitempty"`
	Nodes *[]Node `json:"nodes,omitempty"`
	Edges *[]Edge `json:"edges,omitempty"`
}

// UpdateFlowStatusRequest body de POST /flow/status/{id}; draft is rejected
type UpdateFlowStatusRequest struct {
	Status FlowStatus `json:"status" validate:"required"`
}

// FlowResponse respuesta de flow simple
type FlowResponse struct {
	Flow Flow `json:"flow"`
}

// FlowListRequest query de GET /flow/list
type FlowListRequest struct {
	storex.PaginationOptions
	BrandID kernel.BrandID `json:"brand_id" validate:"required"`
}

type FlowListResponse = storex.Paginated[Flow]

// ============================================================================
// NodeDetail DTOs
// ============================================================================

// NodeDetailListResponse respuesta de GET /node-details/list
type NodeDetailListResponse struct {
	NodeDetails []NodeDetail `json:"node_details"`
}

// NodeDetailResponse respuesta de GET /node-details/{node_id}
type NodeDetailResponse struct {
	NodeDetail NodeDetail `json:"node_detail"`
}

// ============================================================================
// Node process DTOs (POST /agentflow/node/process)
// ============================================================================

// AgentFlowNodeProcessRequest body de POST /agentflow/node/process; `channel`
// se copia al payload y todo se envía al único endpoint de channel-delivery
// configurado, sin enrutar a un endpoint distinto por canal.
type AgentFlowNodeProcessRequest struct {
	Channel string             `json:"channel" validate:"required"`
	Payload ProcessNodeRequest `json:"payload" validate:"required"`
}

// AgentFlowNodeProcessResponse respuesta de éxito/fallo del despacho
type AgentFlowNodeProcessResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ============================================================================
// Health
// ============================================================================

// HealthResponse forma mínima de estado {status, service}; el handler de
// GET /health en cmd/server no la usa y responde con status, timestamp,
// uptime, services y version.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}
