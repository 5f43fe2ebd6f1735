package engine

import (
	"context"
	"time"

	"github.com/Abraxas-365/craftable/storex"
	"github.com/Abraxas-365/relay/pkg/kernel"
)

// ============================================================================
// Store Repository Interfaces — Store is the exclusive owner of all entities
// ============================================================================

// FlowRepository persistencia de flows
type FlowRepository interface {
	Save(ctx context.Context, flow Flow) error
	FindByID(ctx context.Context, id kernel.FlowID) (*Flow, error)
	Delete(ctx context.Context, id kernel.FlowID, brandID kernel.BrandID) error
	List(ctx context.Context, brandID kernel.BrandID, opts storex.PaginationOptions) (storex.Paginated[Flow], error)
	UpdateStatus(ctx context.Context, id kernel.FlowID, status FlowStatus) error
}

// TriggerRepository persistencia de triggers derivados de flows
type TriggerRepository interface {
	ReplaceForFlow(ctx context.Context, flowID kernel.FlowID, triggers []Trigger) error
	FindByBrandPublished(ctx context.Context, brandID kernel.BrandID) ([]Trigger, error)
}

// UserRepository persistencia del estado conversacional por usuario
type UserRepository interface {
	FindByIdentity(ctx context.Context, brandID kernel.BrandID, channel, channelAccountID string) (*User, error)
	FindByID(ctx context.Context, id kernel.UserID) (*User, error)
	Save(ctx context.Context, user User) error
}

// FlowUserContextRepository persistencia de variables capturadas por usuario+flow
type FlowUserContextRepository interface {
	Upsert(ctx context.Context, fuc FlowUserContext) error
	FindByUserFlow(ctx context.Context, userID kernel.UserID, flowID kernel.FlowID) ([]FlowUserContext, error)
	DeleteByFlow(ctx context.Context, flowID kernel.FlowID) error
}

// WebhookMessageRepository auditoría de eventos entrantes
type WebhookMessageRepository interface {
	Save(ctx context.Context, msg WebhookMessage) error
	MarkProcessed(ctx context.Context, id kernel.WebhookMessageID) error
	MarkError(ctx context.Context, id kernel.WebhookMessageID) error
}

// DelayRepository persistencia de delays en espera
type DelayRepository interface {
	Save(ctx context.Context, d Delay) error
	FindByID(ctx context.Context, id kernel.DelayID) (*Delay, error)
	FindDue(ctx context.Context, now time.Time) ([]Delay, error)
	MarkProcessed(ctx context.Context, id kernel.DelayID) error
	CancelForUser(ctx context.Context, userIdentifier string, flowID kernel.FlowID, nodeID kernel.NodeID) error
}

// UserTransactionRepository bitácora append-only por ejecución de nodo
type UserTransactionRepository interface {
	Append(ctx context.Context, tx UserTransaction) error
	CountByNode(ctx context.Context, flowID kernel.FlowID, nodeID kernel.NodeID) (int, error)
}

// FlowSettingsRepository configuración por (flow, node)
type FlowSettingsRepository interface {
	FindByFlowNode(ctx context.Context, flowID kernel.FlowID, nodeID kernel.NodeID) (*FlowSettings, error)
	Upsert(ctx context.Context, fs FlowSettings) error
}

// NodeDetailRepository registro de metadata de tipos de nodo
type NodeDetailRepository interface {
	FindByType(ctx context.Context, nodeType NodeType) (*NodeDetail, error)
	List(ctx context.Context) ([]NodeDetail, error)
	ListByCategory(ctx context.Context, category NodeCategory) ([]NodeDetail, error)
	Upsert(ctx context.Context, nd NodeDetail) error
}

// BrandLookup proyección de solo lectura usada para validar propiedad de un
// Flow sobre un brand_id; no es un subsistema completo de identidad/tenant.
type BrandLookup interface {
	BrandExists(ctx context.Context, brandID kernel.BrandID) (bool, error)
}

// ============================================================================
// Channel Adapter
// ============================================================================

// ChannelAdapter normaliza un payload entrante de un canal específico
type ChannelAdapter interface {
	GetChannel() string
	Normalize(ctx context.Context, messageType string, payload map[string]any) (NormalizedEvent, error)
}

// ChannelDispatcher realiza el despacho saliente a un servicio de canal
// externo; corresponde al colaborador "channel-delivery service" del spec.
type ChannelDispatcher interface {
	// ProcessNode invoca el endpoint externo de procesamiento de nodo
	// (§4.5 paso 4 / SPEC_FULL C.1); soportado hoy solo para WhatsApp.
	ProcessNode(ctx context.Context, req ProcessNodeRequest) error
}

// ProcessNodeRequest contrato tipado consumido por el channel-delivery service
type ProcessNodeRequest struct {
	FlowID          kernel.FlowID  `json:"flow_id"`
	CurrentNodeID   *kernel.NodeID `json:"current_node_id,omitempty"`
	NextNodeID      kernel.NodeID  `json:"next_node_id"`
	NextNodeData    map[string]any `json:"next_node_data"`
	UserIdentifier  string         `json:"user_identifier"`
	BrandID         kernel.BrandID `json:"brand_id"`
	UserID          kernel.UserID  `json:"user_id"`
	Channel         string         `json:"channel"`
	FallbackMessage string         `json:"fallback_message,omitempty"`
	IsValidationError bool         `json:"is_validation_error"`
}

// MediaRehoster sube un adjunto entrante (media_url) a almacenamiento propio
// y retorna la nueva URL estable; usado por el Intake para no depender de
// URLs firmadas temporales de Meta/Telegram que expiran a las pocas horas.
type MediaRehoster interface {
	Rehost(ctx context.Context, sourceURL string) (string, error)
}

// ============================================================================
// Trigger Matcher
// ============================================================================

// TriggerMatcher selecciona el primer trigger publicado que coincide con el evento
type TriggerMatcher interface {
	Match(ctx context.Context, brandID kernel.BrandID, messageType string, event NormalizedEvent, channel string) (*Trigger, error)
}

// ============================================================================
// Reply Validator
// ============================================================================

// ValidatorOutcomeKind discrimina la variante devuelta por el Reply Validator
type ValidatorOutcomeKind string

const (
	OutcomeMatched           ValidatorOutcomeKind = "matched"
	OutcomeMatchedOtherNode  ValidatorOutcomeKind = "matched_other_node"
	OutcomeMismatchRetry     ValidatorOutcomeKind = "mismatch_retry"
	OutcomeValidationExit    ValidatorOutcomeKind = "validation_exit"
	OutcomeUseDefaultEdge    ValidatorOutcomeKind = "use_default_edge"
	OutcomeError             ValidatorOutcomeKind = "error"
)

// ValidatorOutcome resultado de validate_and_match (§4.4)
type ValidatorOutcome struct {
	Kind            ValidatorOutcomeKind
	AnswerID        string
	OtherNodeID     kernel.NodeID
	FallbackMessage string
	ErrMessage      string
}

// ReplyValidator evalúa una respuesta de usuario contra el nodo activo
type ReplyValidator interface {
	ValidateAndMatch(
		ctx context.Context,
		flow *Flow,
		userID kernel.UserID,
		currentNodeID kernel.NodeID,
		event NormalizedEvent,
		isText bool,
		currentValidationCount int,
	) (ValidatorOutcome, error)
}

// ============================================================================
// Internal Node Processor
// ============================================================================

// InternalNodeProcessor evalúa nodos condition/delay sin efectos secundarios
type InternalNodeProcessor interface {
	ProcessCondition(ctx context.Context, node *Node, userID kernel.UserID, flowID kernel.FlowID) (selectorID string, err error)
	ProcessDelay(ctx context.Context, node *Node) (processedValue map[string]any, err error)
}

// ============================================================================
// Node Walker
// ============================================================================

// WalkStatus resultado de alto nivel de identify_and_process
type WalkStatus string

const (
	WalkStatusAdvanced        WalkStatus = "advanced"
	WalkStatusValidationExit  WalkStatus = "validation_exit"
	WalkStatusError           WalkStatus = "error"
)

// WalkRequest entrada de identify_and_process (§4.5)
type WalkRequest struct {
	Metadata         WebhookMessageMetadata
	Data             NormalizedEvent
	IsValidationError bool
	FallbackMessage  string
	NodeIDToProcess  *kernel.NodeID
	CurrentNodeID    *kernel.NodeID
	FlowID           kernel.FlowID
	UserID           kernel.UserID
	UserDetail       UserDetail
	LeadID           string
	ChainDepth       int
}

// WalkResult salida de identify_and_process
type WalkResult struct {
	Status         WalkStatus
	NextNodeID     *kernel.NodeID
	ProcessedValue any
}

// NodeWalker computa el siguiente nodo, despacha internamente o externamente,
// y auto-encadena nodos `message` consecutivos.
type NodeWalker interface {
	IdentifyAndProcess(ctx context.Context, req WalkRequest) (WalkResult, error)
}

// ============================================================================
// User State Orchestrator
// ============================================================================

// LeadAcquirer colaborador opcional de Lead Management (SPEC_FULL C.5); el
// motor funciona standalone cuando no hay un CRM configurado.
type LeadAcquirer interface {
	AcquireLead(ctx context.Context, brandID kernel.BrandID, channel string, userDetail UserDetail) (string, error)
}

// NoopLeadAcquirer implementación por defecto cuando no hay CRM configurado
type NoopLeadAcquirer struct{}

func (NoopLeadAcquirer) AcquireLead(ctx context.Context, brandID kernel.BrandID, channel string, userDetail UserDetail) (string, error) {
	return "", nil
}

// Orchestrator implementa el state machine de §4.7
type Orchestrator interface {
	HandleEvent(ctx context.Context, brandID kernel.BrandID, channel, channelAccountID string, metadata WebhookMessageMetadata, event NormalizedEvent) error
}

// ============================================================================
// Delay Scheduler
// ============================================================================

// DelayScheduler sondea delays vencidos y emite eventos sintéticos a Intake
type DelayScheduler interface {
	Schedule(ctx context.Context, d Delay) error
	StartWorker(ctx context.Context)
	StopWorker()
	GetPendingCount(ctx context.Context) (int64, error)
	ShouldUseAsync(duration time.Duration) bool
}

// ============================================================================
// Transaction Recorder
// ============================================================================

// TransactionRecorder escribe la bitácora append-only de ejecución de nodos
type TransactionRecorder interface {
	Record(ctx context.Context, tx UserTransaction) error
}

// ============================================================================
// Webhook Intake
// ============================================================================

// IntakeResult resultado expuesto por POST /webhook/message
type IntakeResult struct {
	Status             string
	Message            string
	AutomationTriggered bool
	FlowID             *kernel.FlowID
	CurrentNodeID      *kernel.NodeID
	ErrorDetails       string
}

// Intake recibe eventos crudos, los audita y los enruta
type Intake interface {
	Process(ctx context.Context, req InboundWebhookRequest) (IntakeResult, error)
}

// InboundWebhookRequest shape de POST /webhook/message (§6)
type InboundWebhookRequest struct {
	Sender               string `json:"sender"`
	BrandID              kernel.BrandID `json:"brand_id"`
	UserID               string `json:"user_id"`
	ChannelIdentifier    string `json:"channel_identifier,omitempty"`
	ChannelPhoneNumberID string `json:"channel_phone_number_id,omitempty"`
	MessageType          string `json:"message_type"`
	MessageBody          map[string]any `json:"message_body"`
	Channel              string `json:"channel"`

	// ChannelAccountID, deprecated alias accepted for backward compatibility
	// with the original prototype's `sender`-keyed request shape (SPEC_FULL C.7).
	ChannelAccountID string `json:"channel_account_id,omitempty"`
}

// ResolvedChannelAccountID normaliza los alias históricos a un único campo
// per spec §9 open question / SPEC_FULL C.7.
func (r *InboundWebhookRequest) ResolvedChannelAccountID() string {
	if r.ChannelAccountID != "" {
		return r.ChannelAccountID
	}
	if r.ChannelIdentifier != "" {
		return r.ChannelIdentifier
	}
	if r.ChannelPhoneNumberID != "" {
		return r.ChannelPhoneNumberID
	}
	return r.UserID
}
