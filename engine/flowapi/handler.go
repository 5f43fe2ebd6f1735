// Package flowapi expone la superficie HTTP de administración de flows,
// node-details y el despacho directo de un nodo resuelto (spec §6).
package flowapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/Abraxas-365/craftable/storex"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Abraxas-365/relay/engine"
	"github.com/Abraxas-365/relay/pkg/kernel"
)

// Handler agrupa los endpoints de /flow, /node-details y /agentflow.
type Handler struct {
	flows       engine.FlowRepository
	triggers    engine.TriggerRepository
	nodeDetails engine.NodeDetailRepository
	dispatcher  engine.ChannelDispatcher
	brands      engine.BrandLookup
}

func New(
	flows engine.FlowRepository,
	triggers engine.TriggerRepository,
	nodeDetails engine.NodeDetailRepository,
	dispatcher engine.ChannelDispatcher,
	brands engine.BrandLookup,
) *Handler {
	return &Handler{flows: flows, triggers: triggers, nodeDetails: nodeDetails, dispatcher: dispatcher, brands: brands}
}

// CreateFlow procesa POST /flow/create: guarda el flow en draft y deriva sus
// triggers del/de los nodo(s) trigger_keyword/trigger_template.
func (h *Handler) CreateFlow(c *fiber.Ctx) error {
	var req engine.CreateFlowRequest
	if err := c.BodyParser(&req); err != nil {
		return engine.ErrInvalidFlowConfig().WithDetail("reason", err.Error())
	}
	if req.BrandID == "" || req.Name == "" || req.AuthorUserID == "" || len(req.Nodes) == 0 {
		return engine.ErrInvalidFlowConfig().WithDetail("reason", "brand_id, name, author_user_id and nodes are required")
	}
	if exists, err := h.brands.BrandExists(c.Context(), req.BrandID); err != nil {
		return err
	} else if !exists {
		return engine.ErrInvalidFlowConfig().WithDetail("reason", "brand_id does not exist")
	}

	now := time.Now()
	flow := engine.Flow{
		ID:           kernel.NewFlowID(uuid.NewString()),
		BrandID:      req.BrandID,
		Name:         req.Name,
		AuthorUserID: req.AuthorUserID,
		Status:       engine.FlowStatusDraft,
		Nodes:        req.Nodes,
		Edges:        req.Edges,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := singleStartNode(&flow); err != nil {
		return err
	}

	if err := h.flows.Save(c.Context(), flow); err != nil {
		return err
	}
	if err := h.triggers.ReplaceForFlow(c.Context(), flow.ID, deriveTriggers(&flow)); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(engine.FlowResponse{Flow: flow})
}

// UpdateFlow procesa PUT /flow/update/{id}: reemplaza name/nodes/edges y
// re-deriva triggers.
func (h *Handler) UpdateFlow(c *fiber.Ctx) error {
	id := kernel.NewFlowID(c.Params("id"))
	flow, err := h.flows.FindByID(c.Context(), id)
	if err != nil {
		return err
	}

	var req engine.UpdateFlowRequest
	if err := c.BodyParser(&req); err != nil {
		return engine.ErrInvalidFlowConfig().WithDetail("reason", err.Error())
	}

	name := ""
	if req.Name != nil {
		name = *req.Name
	}
	nodes := flow.Nodes
	if req.Nodes != nil {
		nodes = *req.Nodes
	}
	edges := flow.Edges
	if req.Edges != nil {
		edges = *req.Edges
	}
	flow.UpdateDetails(name, nodes, edges)
	if _, err := singleStartNode(flow); err != nil {
		return err
	}

	if err := h.flows.Save(c.Context(), *flow); err != nil {
		return err
	}
	if err := h.triggers.ReplaceForFlow(c.Context(), flow.ID, deriveTriggers(flow)); err != nil {
		return err
	}

	return c.JSON(engine.FlowResponse{Flow: *flow})
}

// UpdateFlowStatus procesa POST /flow/status/{id}; draft es rechazado por
// Flow.SetStatus.
func (h *Handler) UpdateFlowStatus(c *fiber.Ctx) error {
	id := kernel.NewFlowID(c.Params("id"))
	var req engine.UpdateFlowStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return engine.ErrInvalidFlowConfig().WithDetail("reason", err.Error())
	}

	flow, err := h.flows.FindByID(c.Context(), id)
	if err != nil {
		return err
	}
	if err := flow.SetStatus(req.Status); err != nil {
		return err
	}
	if err := h.flows.UpdateStatus(c.Context(), id, req.Status); err != nil {
		return err
	}

	return c.JSON(engine.FlowResponse{Flow: *flow})
}

// ListFlows procesa GET /flow/list?brand_id=...&page=...&page_size=...
func (h *Handler) ListFlows(c *fiber.Ctx) error {
	brandID := kernel.BrandID(c.Query("brand_id"))
	if brandID == "" {
		return engine.ErrInvalidFlowConfig().WithDetail("reason", "brand_id query param is required")
	}
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "20"))

	result, err := h.flows.List(c.Context(), brandID, storex.PaginationOptions{Page: page, PageSize: pageSize})
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// FlowDetail procesa GET /flow/detail/{id}
func (h *Handler) FlowDetail(c *fiber.Ctx) error {
	id := kernel.NewFlowID(c.Params("id"))
	flow, err := h.flows.FindByID(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(engine.FlowResponse{Flow: *flow})
}

// ListNodeDetails procesa GET /node-details/list
func (h *Handler) ListNodeDetails(c *fiber.Ctx) error {
	details, err := h.nodeDetails.List(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(engine.NodeDetailListResponse{NodeDetails: details})
}

// NodeDetailByType procesa GET /node-details/{node_id}; node_id aquí es el
// node_type de la registry, no el id de un nodo dentro de un flow concreto.
func (h *Handler) NodeDetailByType(c *fiber.Ctx) error {
	nodeType := engine.NodeType(c.Params("node_id"))
	detail, err := h.nodeDetails.FindByType(c.Context(), nodeType)
	if err != nil {
		return err
	}
	return c.JSON(engine.NodeDetailResponse{NodeDetail: *detail})
}

// NodeDetailsByCategory procesa GET /node-details/category/{category}
func (h *Handler) NodeDetailsByCategory(c *fiber.Ctx) error {
	category := engine.NodeCategory(c.Params("category"))
	details, err := h.nodeDetails.ListByCategory(c.Context(), category)
	if err != nil {
		return err
	}
	return c.JSON(engine.NodeDetailListResponse{NodeDetails: details})
}

// ProcessNode procesa POST /agentflow/node/process: despacho directo de un
// nodo ya resuelto al único endpoint de channel-delivery configurado; el
// channel del body se copia al payload, sin filtrar ni enrutar por él.
func (h *Handler) ProcessNode(c *fiber.Ctx) error {
	var req engine.AgentFlowNodeProcessRequest
	if err := c.BodyParser(&req); err != nil {
		return engine.ErrInvalidFlowConfig().WithDetail("reason", err.Error())
	}
	req.Payload.Channel = req.Channel

	if err := h.dispatcher.ProcessNode(c.Context(), req.Payload); err != nil {
		return c.Status(fiber.StatusOK).JSON(engine.AgentFlowNodeProcessResponse{Success: false, Error: err.Error()})
	}
	return c.JSON(engine.AgentFlowNodeProcessResponse{Success: true})
}

// RequireUserIDHeader exige x-user-id en endpoints de administración de
// flow (spec §6); 401 si está ausente.
func RequireUserIDHeader(c *fiber.Ctx) error {
	if c.Get("x-user-id") == "" {
		return engine.ErrUnauthorized().WithDetail("reason", "x-user-id header is required")
	}
	return c.Next()
}

// singleStartNode valida que el flow tenga exactamente un nodo de inicio.
func singleStartNode(flow *engine.Flow) (*engine.Node, error) {
	var found *engine.Node
	for i := range flow.Nodes {
		if flow.Nodes[i].IsStartNode {
			if found != nil {
				return nil, engine.ErrNoStartNode().WithDetail("reason", "more than one start node")
			}
			found = &flow.Nodes[i]
		}
	}
	if found == nil {
		return nil, engine.ErrNoStartNode()
	}
	return found, nil
}

// deriveTriggers construye los Trigger a partir de los nodos
// trigger_keyword/trigger_template del flow; cada uno lee sus valores de
// disparo desde Data["values"].
func deriveTriggers(flow *engine.Flow) []engine.Trigger {
	triggers := make([]engine.Trigger, 0)
	for _, n := range flow.Nodes {
		var triggerType engine.TriggerType
		switch n.Type {
		case engine.NodeTypeTriggerKeyword:
			triggerType = engine.TriggerTypeKeyword
		case engine.NodeTypeTriggerTemplate:
			triggerType = engine.TriggerTypeTemplate
		default:
			continue
		}
		triggers = append(triggers, engine.Trigger{
			FlowID:        flow.ID,
			NodeID:        n.ID,
			BrandID:       flow.BrandID,
			TriggerType:   triggerType,
			TriggerValues: stringSliceField(n.Data, "values"),
		})
	}
	return triggers
}

func stringSliceField(data map[string]any, key string) []string {
	raw, ok := data[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
