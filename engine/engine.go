package engine

import (
	"strings"
	"time"

	"github.com/Abraxas-365/relay/pkg/kernel"
)

// ============================================================================
// Flow Entity
// ============================================================================

// FlowStatus estado de publicación de un flow
type FlowStatus string

const (
	FlowStatusDraft     FlowStatus = "draft"
	FlowStatusPublished FlowStatus = "published"
	FlowStatusStop      FlowStatus = "stop"
)

// Flow grafo dirigido de nodos+edges propiedad de un brand
type Flow struct {
	ID           kernel.FlowID  `db:"id" json:"id"`
	BrandID      kernel.BrandID `db:"brand_id" json:"brand_id"`
	Name         string         `db:"name" json:"name"`
	AuthorUserID kernel.UserID  `db:"author_user_id" json:"author_user_id"`
	Status       FlowStatus     `db:"status" json:"status"`
	Nodes        []Node         `db:"nodes" json:"nodes"`
	Edges        []Edge         `db:"edges" json:"edges"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// IsTriggerable solo los flows publicados pueden ser disparados
func (f *Flow) IsTriggerable() bool {
	return f.Status == FlowStatusPublished
}

// StartNode retorna el único nodo con is_start_node=true, si existe
func (f *Flow) StartNode() *Node {
	for i := range f.Nodes {
		if f.Nodes[i].IsStartNode {
			return &f.Nodes[i]
		}
	}
	return nil
}

// NodeByID busca un nodo por id dentro del flow
func (f *Flow) NodeByID(nodeID kernel.NodeID) *Node {
	for i := range f.Nodes {
		if f.Nodes[i].ID == nodeID {
			return &f.Nodes[i]
		}
	}
	return nil
}

// EdgeBySource retorna el primer edge cuyo source_node_id coincide, si existe;
// no verifica que sea el único.
func (f *Flow) EdgeBySource(sourceID string) *Edge {
	for i := range f.Edges {
		if string(f.Edges[i].SourceNodeID) == sourceID {
			return &f.Edges[i]
		}
	}
	return nil
}

// SetStatus aplica una transición de estado; draft no es alcanzable por esta vía
func (f *Flow) SetStatus(status FlowStatus) error {
	if status == FlowStatusDraft {
		return ErrDraftStatusNotAllowed()
	}
	f.Status = status
	f.UpdatedAt = time.Now()
	return nil
}

// UpdateDetails actualiza nombre, nodos y edges; el status no cambia aquí
func (f *Flow) UpdateDetails(name string, nodes []Node, edges []Edge) {
	if name != "" {
		f.Name = name
	}
	f.Nodes = nodes
	f.Edges = edges
	f.UpdatedAt = time.Now()
}

// ============================================================================
// Node Entity
// ============================================================================

// NodeType tipo de nodo dentro de un flow
type NodeType string

const (
	NodeTypeTriggerKeyword   NodeType = "trigger_keyword"
	NodeTypeTriggerTemplate  NodeType = "trigger_template"
	NodeTypeMessage          NodeType = "message"
	NodeTypeQuestion         NodeType = "question"
	NodeTypeButtonQuestion   NodeType = "button_question"
	NodeTypeListQuestion     NodeType = "list_question"
	NodeTypeCondition        NodeType = "condition"
	NodeTypeDelay            NodeType = "delay"
	NodeTypeSendTemplate     NodeType = "send_template"
	NodeTypeSendEmailTemplate NodeType = "send_email_template"
)

// Node nodo embebido en un Flow; también se denormaliza al NodeDetail store
type Node struct {
	ID          kernel.NodeID  `json:"node_id"`
	Type        NodeType       `json:"type"`
	IsStartNode bool           `json:"is_start_node"`
	Data        map[string]any `json:"data,omitempty"`
}

// Edge conexión dirigida entre dos nodos (o un selector sintético y un nodo)
type Edge struct {
	ID           kernel.EdgeID `db:"edge_id" json:"edge_id"`
	SourceNodeID string        `db:"source_node_id" json:"source_node_id"`
	TargetNodeID kernel.NodeID `db:"target_node_id" json:"target_node_id"`
}

// IsSelectorSource reporta si source_node_id referencia un selector sintético
// en lugar de un nodo real del flow (button/condition/delay branch id).
func (e *Edge) IsSelectorSource(flow *Flow) bool {
	return flow.NodeByID(kernel.NodeID(e.SourceNodeID)) == nil
}

// ============================================================================
// Trigger Entity
// ============================================================================

// TriggerType discrimina el algoritmo de match usado por el Trigger Matcher
type TriggerType string

const (
	TriggerTypeKeyword  TriggerType = "keyword"
	TriggerTypeTemplate TriggerType = "template"
)

// Trigger se deriva al guardar un flow, uno por cada nodo
// trigger_keyword/trigger_template; no se restringe al nodo de inicio.
type Trigger struct {
	FlowID        kernel.FlowID  `db:"flow_id" json:"flow_id"`
	NodeID        kernel.NodeID  `db:"node_id" json:"node_id"`
	BrandID       kernel.BrandID `db:"brand_id" json:"brand_id"`
	TriggerType   TriggerType    `db:"trigger_type" json:"trigger_type"`
	TriggerValues []string       `db:"trigger_values" json:"trigger_values"`
}

// Matches evalúa el trigger contra un texto normalizado ya recortado.
// keyword: subcadena case-insensitive, solo para message_type=="text".
// template: igualdad exacta case-insensitive, para cualquier message_type.
func (t *Trigger) Matches(text string, messageType string) bool {
	if t.TriggerType == TriggerTypeKeyword && messageType != "text" {
		return false
	}
	lowered := strings.ToLower(text)
	for _, v := range t.TriggerValues {
		lv := strings.ToLower(v)
		switch t.TriggerType {
		case TriggerTypeKeyword:
			if strings.Contains(lowered, lv) {
				return true
			}
		case TriggerTypeTemplate:
			if lowered == lv {
				return true
			}
		}
	}
	return false
}

// ============================================================================
// NodeDetail Entity — authoritative registry of node type metadata
// ============================================================================

// NodeCategory agrupa los tipos de nodo para el surface de listado
type NodeCategory string

const (
	NodeCategoryTrigger   NodeCategory = "Trigger"
	NodeCategoryAction    NodeCategory = "Action"
	NodeCategoryCondition NodeCategory = "Condition"
	NodeCategoryDelay     NodeCategory = "Delay"
)

// NodeDetail clasifica un node_type en tiempo de ejecución
type NodeDetail struct {
	NodeType          NodeType     `db:"node_type" json:"node_type"`
	Category          NodeCategory `db:"category" json:"category"`
	UserInputRequired bool         `db:"user_input_required" json:"user_input_required"`
	IsInternal        bool         `db:"is_internal" json:"is_internal"`
}

// DefaultNodeDetails es el seed canónico de la registry; is_internal=true
// únicamente para condition y delay (§3).
func DefaultNodeDetails() []NodeDetail {
	return []NodeDetail{
		{NodeType: NodeTypeTriggerKeyword, Category: NodeCategoryTrigger, UserInputRequired: false, IsInternal: false},
		{NodeType: NodeTypeTriggerTemplate, Category: NodeCategoryTrigger, UserInputRequired: false, IsInternal: false},
		{NodeType: NodeTypeMessage, Category: NodeCategoryAction, UserInputRequired: false, IsInternal: false},
		{NodeType: NodeTypeQuestion, Category: NodeCategoryAction, UserInputRequired: true, IsInternal: false},
		{NodeType: NodeTypeButtonQuestion, Category: NodeCategoryAction, UserInputRequired: true, IsInternal: false},
		{NodeType: NodeTypeListQuestion, Category: NodeCategoryAction, UserInputRequired: true, IsInternal: false},
		{NodeType: NodeTypeCondition, Category: NodeCategoryCondition, UserInputRequired: false, IsInternal: true},
		{NodeType: NodeTypeDelay, Category: NodeCategoryDelay, UserInputRequired: false, IsInternal: true},
		{NodeType: NodeTypeSendTemplate, Category: NodeCategoryAction, UserInputRequired: false, IsInternal: false},
		{NodeType: NodeTypeSendEmailTemplate, Category: NodeCategoryAction, UserInputRequired: false, IsInternal: false},
	}
}

// ============================================================================
// User Entity
// ============================================================================

// UserDetail identificadores del usuario por canal; solo uno suele poblarse
// por fila, según el channel de la conversación.
type UserDetail struct {
	Phone  string         `db:"phone" json:"phone,omitempty"`
	Email  string         `db:"email" json:"email,omitempty"`
	IG     string         `db:"ig" json:"ig,omitempty"`
	FB     string         `db:"fb" json:"fb,omitempty"`
	TG     string         `db:"tg" json:"tg,omitempty"`
	Custom map[string]any `db:"custom" json:"custom,omitempty"`
}

// UserValidation contador de validación sobre el nodo de input actual
type UserValidation struct {
	Failed         bool   `db:"failed" json:"failed"`
	FailureCount   int    `db:"failure_count" json:"failure_count"`
	FailureMessage string `db:"failure_message" json:"failure_message,omitempty"`
}

// DelayNodeData estado crudo del nodo delay en el que el usuario está
// esperando; nil cuando el usuario no está esperando un delay.
type DelayNodeData map[string]any

// User identidad conversacional por brand/channel/channel_account_id
type User struct {
	ID               kernel.UserID     `db:"id" json:"id"`
	BrandID          kernel.BrandID    `db:"brand_id" json:"brand_id"`
	Channel          string            `db:"channel" json:"channel"`
	ChannelAccountID string            `db:"channel_account_id" json:"channel_account_id"`
	UserDetail       UserDetail        `db:"user_detail" json:"user_detail"`
	LeadID           string            `db:"lead_id" json:"lead_id,omitempty"`
	IsInAutomation   bool              `db:"is_in_automation" json:"is_in_automation"`
	CurrentFlowID    *kernel.FlowID    `db:"current_flow_id" json:"current_flow_id,omitempty"`
	CurrentNodeID    *kernel.NodeID    `db:"current_node_id" json:"current_node_id,omitempty"`
	Validation       UserValidation    `db:"validation" json:"validation"`
	DelayNodeData    DelayNodeData     `db:"delay_node_data" json:"delay_node_data,omitempty"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updated_at"`
}

// IsWaitingOnDelay reporta si el usuario está suspendido en un nodo delay
func (u *User) IsWaitingOnDelay() bool {
	return u.DelayNodeData != nil
}

// EnterFlow marca al usuario como en automatización sobre el nodo dado
func (u *User) EnterFlow(flowID kernel.FlowID, nodeID kernel.NodeID) {
	u.IsInAutomation = true
	u.CurrentFlowID = &flowID
	u.CurrentNodeID = &nodeID
	u.UpdatedAt = time.Now()
}

// EnterDelay suspende al usuario en un nodo delay con su payload crudo
func (u *User) EnterDelay(nodeID kernel.NodeID, data DelayNodeData) {
	u.IsInAutomation = true
	u.CurrentNodeID = &nodeID
	u.DelayNodeData = data
	u.UpdatedAt = time.Now()
}

// ClearDelay limpia el estado de espera de delay sin alterar is_in_automation
func (u *User) ClearDelay() {
	u.DelayNodeData = nil
	u.UpdatedAt = time.Now()
}

// ExitAutomation termina la automatización limpiamente (nodo terminal)
func (u *User) ExitAutomation() {
	u.IsInAutomation = false
	u.CurrentFlowID = nil
	u.CurrentNodeID = nil
	u.DelayNodeData = nil
	u.UpdatedAt = time.Now()
}

// RecordValidationFailure incrementa el contador de validación
func (u *User) RecordValidationFailure(message string) {
	u.Validation.Failed = true
	u.Validation.FailureCount++
	u.Validation.FailureMessage = message
	u.UpdatedAt = time.Now()
}

// ResetValidation limpia el contador de validación (aceptación o avance)
func (u *User) ResetValidation() {
	u.Validation = UserValidation{}
	u.UpdatedAt = time.Now()
}

// ============================================================================
// FlowUserContext Entity — captured variables bound to a user+flow
// ============================================================================

// FlowUserContext una fila por variable; se actualiza (upsert) al capturarse
type FlowUserContext struct {
	UserID       kernel.UserID `db:"user_id" json:"user_id"`
	FlowID       kernel.FlowID `db:"flow_id" json:"flow_id"`
	VariableName string        `db:"variable_name" json:"variable_name"`
	VariableValue string       `db:"variable_value" json:"variable_value"`
	NodeID       kernel.NodeID `db:"node_id" json:"node_id"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// ============================================================================
// WebhookMessage Entity — audit row for every inbound event
// ============================================================================

// WebhookMessageStatus ciclo de vida del registro de auditoría
type WebhookMessageStatus string

const (
	WebhookMessageStatusPending   WebhookMessageStatus = "pending"
	WebhookMessageStatusProcessed WebhookMessageStatus = "processed"
	WebhookMessageStatusError     WebhookMessageStatus = "error"
)

// WebhookMessageMetadata acompaña el payload normalizado con su procedencia
type WebhookMessageMetadata struct {
	Sender            string `json:"sender"`
	Brand             string `json:"brand"`
	Channel           string `json:"channel"`
	ChannelIdentifier string `json:"channel_identifier"`
	MessageType       string `json:"message_type"`
	Status            WebhookMessageStatus `json:"status"`
}

// WebhookMessage fila de auditoría; inmutable tras alcanzar estado terminal
type WebhookMessage struct {
	ID        kernel.WebhookMessageID `db:"id" json:"id"`
	Metadata  WebhookMessageMetadata  `db:"metadata" json:"metadata"`
	Data      NormalizedEvent         `db:"data" json:"data"`
	RawPayload map[string]any         `db:"raw_payload" json:"raw_payload,omitempty"`
	CreatedAt time.Time               `db:"created_at" json:"created_at"`
	UpdatedAt time.Time               `db:"updated_at" json:"updated_at"`
}

// MarkProcessed termina el ciclo de vida con éxito
func (w *WebhookMessage) MarkProcessed() {
	w.Metadata.Status = WebhookMessageStatusProcessed
	w.UpdatedAt = time.Now()
}

// MarkError termina el ciclo de vida con error
func (w *WebhookMessage) MarkError() {
	w.Metadata.Status = WebhookMessageStatusError
	w.UpdatedAt = time.Now()
}

// IsTerminal reporta si el registro ya no puede mutar
func (w *WebhookMessage) IsTerminal() bool {
	return w.Metadata.Status == WebhookMessageStatusProcessed || w.Metadata.Status == WebhookMessageStatusError
}

// ============================================================================
// NormalizedEvent — the Channel Adapter's single output shape
// ============================================================================

// SyntheticMessageType discrimina los dos eventos sintéticos reconocidos
// sin importar el channel de origen.
const (
	MessageTypeDelayComplete    = "delay_complete"
	MessageTypeScheduledTrigger = "scheduled_trigger"
)

// NormalizedEvent salida channel-agnostic del Channel Adapter
type NormalizedEvent struct {
	UserReply string `json:"user_reply,omitempty"`
	MediaURL  string `json:"media_url,omitempty"`
	MediaType string `json:"media_type,omitempty"`

	// Campos propios de los eventos sintéticos; el resto de componentes no
	// debe inspeccionar el channel original, solo estos campos normalizados.
	UserStateID string        `json:"user_state_id,omitempty"`
	FlowID      kernel.FlowID `json:"flow_id,omitempty"`

	// MatchedAnswerID, cuando está presente, es el selector resuelto por el
	// Reply Validator (p.ej. un id de botón) y se usa como source de edge.
	MatchedAnswerID string `json:"matched_answer_id,omitempty"`
}

// IsSynthetic reporta si el evento es delay_complete o scheduled_trigger
func (n *NormalizedEvent) IsSynthetic(messageType string) bool {
	return messageType == MessageTypeDelayComplete || messageType == MessageTypeScheduledTrigger
}

// ============================================================================
// Delay Entity
// ============================================================================

// Delay fila que representa una suspensión temporal del usuario en un nodo delay
type Delay struct {
	ID               kernel.DelayID `db:"id" json:"id"`
	UserIdentifier   string         `db:"user_identifier" json:"user_identifier"`
	BrandID          kernel.BrandID `db:"brand_id" json:"brand_id"`
	FlowID           kernel.FlowID  `db:"flow_id" json:"flow_id"`
	DelayNodeID      kernel.NodeID  `db:"delay_node_id" json:"delay_node_id"`
	DelayNodeData    DelayNodeData  `db:"delay_node_data" json:"delay_node_data"`
	DelayStartedAt   time.Time      `db:"delay_started_at" json:"delay_started_at"`
	DelayCompletesAt time.Time      `db:"delay_completes_at" json:"delay_completes_at"`
	Processed        bool           `db:"processed" json:"processed"`
}

// IsDue reporta si el delay debe dispararse ahora
func (d *Delay) IsDue(now time.Time) bool {
	return !d.Processed && !d.DelayCompletesAt.After(now)
}

// MarkProcessed marca el delay como disparado (at-most-once)
func (d *Delay) MarkProcessed() {
	d.Processed = true
}

// ============================================================================
// UserTransaction Entity — append-only per-node execution log
// ============================================================================

// UserTransaction una fila por ejecución de nodo, usada para analítica
type UserTransaction struct {
	ID              kernel.TransactionID `db:"id" json:"id"`
	NodeID          kernel.NodeID        `db:"node_id" json:"node_id"`
	FlowID          kernel.FlowID        `db:"flow_id" json:"flow_id"`
	UserDetail      UserDetail           `db:"user_detail" json:"user_detail"`
	Channel         string               `db:"channel" json:"channel"`
	ProcessedStatus string               `db:"processed_status" json:"processed_status"`
	NodeType        NodeType             `db:"node_type" json:"node_type"`
	ProcessedValue  any                  `db:"processed_value" json:"processed_value,omitempty"`
	NodeData        map[string]any       `db:"node_data" json:"node_data,omitempty"`
	CreatedAt       time.Time            `db:"created_at" json:"created_at"`
}

// ============================================================================
// FlowSettings Entity — per-(flow,node) channel-specific configuration
// ============================================================================

// FlowSettings fila de configuración referenciada por nodos salientes
// (p.ej. send_email_template usa email.source_email)
type FlowSettings struct {
	FlowID   kernel.FlowID  `db:"flow_id" json:"flow_id"`
	NodeID   kernel.NodeID  `db:"node_id" json:"node_id"`
	Settings map[string]any `db:"settings" json:"settings"`
}

// Get recupera una clave punteada simple del bloque de settings, p.ej. "email.source_email"
func (fs *FlowSettings) Get(key string) (any, bool) {
	v, ok := fs.Settings[key]
	return v, ok
}
