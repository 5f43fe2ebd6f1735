package engine

import (
	"net/http"

	"github.com/Abraxas-365/craftable/errx"
)

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("ENGINE")

// ============================================================================
// Error Codes
//
// Types map onto spec error kinds: ValidationRule->400, NotFound->404,
// Unauthorized->401, StoreTransient->503, ChannelDispatch/InternalInvariant->500.
// ============================================================================

var (
	// Flow errors
	CodeFlowNotFound       = ErrRegistry.Register("FLOW_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Flow no encontrado")
	CodeInvalidFlowConfig  = ErrRegistry.Register("INVALID_FLOW_CONFIG", errx.TypeValidation, http.StatusBadRequest, "Configuración de flow inválida")
	CodeDraftStatusDenied  = ErrRegistry.Register("DRAFT_STATUS_DENIED", errx.TypeValidation, http.StatusBadRequest, "No se puede establecer el status a draft mediante esta operación")
	CodeFlowNotTriggerable = ErrRegistry.Register("FLOW_NOT_TRIGGERABLE", errx.TypeBusiness, http.StatusForbidden, "El flow no está publicado")
	CodeNoStartNode        = ErrRegistry.Register("NO_START_NODE", errx.TypeValidation, http.StatusBadRequest, "El flow no tiene un único nodo de inicio")

	// User / Orchestrator errors
	CodeUserNotFound       = ErrRegistry.Register("USER_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Usuario no encontrado")
	CodeStaleDelay         = ErrRegistry.Register("STALE_DELAY", errx.TypeBusiness, http.StatusConflict, "El delay ya no corresponde al estado actual del usuario")
	CodeOrchestrationError = ErrRegistry.Register("ORCHESTRATION_ERROR", errx.TypeInternal, http.StatusInternalServerError, "Fallo al orquestar el evento del usuario")

	// Trigger Matcher errors
	CodeInvalidTrigger     = ErrRegistry.Register("INVALID_TRIGGER", errx.TypeValidation, http.StatusBadRequest, "Trigger inválido")
	CodeNoMatchingTrigger  = ErrRegistry.Register("NO_MATCHING_TRIGGER", errx.TypeBusiness, http.StatusNotFound, "Ningún trigger coincide con el evento")

	// Reply Validator errors
	CodeInvalidAnswerValidation = ErrRegistry.Register("INVALID_ANSWER_VALIDATION", errx.TypeValidation, http.StatusBadRequest, "Configuración de validación de respuesta inválida")

	// Node Walker / Internal Processor errors
	CodeNodeNotFound       = ErrRegistry.Register("NODE_NOT_FOUND", errx.TypeInternal, http.StatusInternalServerError, "El nodo referenciado no existe en el flow")
	CodeEdgeNotFound       = ErrRegistry.Register("EDGE_NOT_FOUND", errx.TypeInternal, http.StatusInternalServerError, "No existe un edge para el nodo origen dado")
	CodeAmbiguousEdge      = ErrRegistry.Register("AMBIGUOUS_EDGE", errx.TypeInternal, http.StatusInternalServerError, "Más de un edge coincide con el nodo origen")
	CodeSelectorNotFound   = ErrRegistry.Register("SELECTOR_NOT_FOUND", errx.TypeInternal, http.StatusInternalServerError, "Selector sintético ausente en el resultado del nodo")
	CodeUnknownNodeType    = ErrRegistry.Register("UNKNOWN_NODE_TYPE", errx.TypeInternal, http.StatusInternalServerError, "Tipo de nodo desconocido")
	CodeChannelDispatch    = ErrRegistry.Register("CHANNEL_DISPATCH_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Fallo en el despacho saliente al canal")
	CodeChainDepthExceeded = ErrRegistry.Register("CHAIN_DEPTH_EXCEEDED", errx.TypeValidation, http.StatusBadRequest, "La cadena de mensajes excede la profundidad configurada")

	// Delay Scheduler errors
	CodeDelayNotFound = ErrRegistry.Register("DELAY_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Delay no encontrado")

	// Media Rehoster errors
	CodeMediaRehostFailed = ErrRegistry.Register("MEDIA_REHOST_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Fallo al re-alojar el adjunto entrante")

	// Store errors (transient / infra)
	CodeStoreTransient = ErrRegistry.Register("STORE_TRANSIENT", errx.TypeInternal, http.StatusServiceUnavailable, "Fallo transitorio de almacenamiento")

	// Auth errors
	CodeUnauthorized = ErrRegistry.Register("UNAUTHORIZED", errx.TypeUnauthorized, http.StatusUnauthorized, "No autorizado")
)

// ============================================================================
// Error Constructor Functions
// ============================================================================

func ErrFlowNotFound() *errx.Error       { return ErrRegistry.New(CodeFlowNotFound) }
func ErrInvalidFlowConfig() *errx.Error  { return ErrRegistry.New(CodeInvalidFlowConfig) }
func ErrDraftStatusNotAllowed() *errx.Error {
	return ErrRegistry.New(CodeDraftStatusDenied)
}
func ErrFlowNotTriggerable() *errx.Error { return ErrRegistry.New(CodeFlowNotTriggerable) }
func ErrNoStartNode() *errx.Error        { return ErrRegistry.New(CodeNoStartNode) }

func ErrUserNotFound() *errx.Error       { return ErrRegistry.New(CodeUserNotFound) }
func ErrStaleDelay() *errx.Error         { return ErrRegistry.New(CodeStaleDelay) }
func ErrOrchestrationError() *errx.Error { return ErrRegistry.New(CodeOrchestrationError) }

func ErrInvalidTrigger() *errx.Error    { return ErrRegistry.New(CodeInvalidTrigger) }
func ErrNoMatchingTrigger() *errx.Error { return ErrRegistry.New(CodeNoMatchingTrigger) }

func ErrInvalidAnswerValidation() *errx.Error {
	return ErrRegistry.New(CodeInvalidAnswerValidation)
}

func ErrNodeNotFound() *errx.Error       { return ErrRegistry.New(CodeNodeNotFound) }
func ErrEdgeNotFound() *errx.Error       { return ErrRegistry.New(CodeEdgeNotFound) }
func ErrAmbiguousEdge() *errx.Error      { return ErrRegistry.New(CodeAmbiguousEdge) }
func ErrSelectorNotFound() *errx.Error   { return ErrRegistry.New(CodeSelectorNotFound) }
func ErrUnknownNodeType() *errx.Error    { return ErrRegistry.New(CodeUnknownNodeType) }
func ErrChannelDispatch() *errx.Error    { return ErrRegistry.New(CodeChannelDispatch) }
func ErrChainDepthExceeded() *errx.Error { return ErrRegistry.New(CodeChainDepthExceeded) }

func ErrDelayNotFound() *errx.Error { return ErrRegistry.New(CodeDelayNotFound) }

func ErrMediaRehostFailed() *errx.Error { return ErrRegistry.New(CodeMediaRehostFailed) }

func ErrStoreTransient() *errx.Error { return ErrRegistry.New(CodeStoreTransient) }

func ErrUnauthorized() *errx.Error { return ErrRegistry.New(CodeUnauthorized) }

// IsUserNotFound reporta si err es el CodeUserNotFound registrado, usado por
// la Orchestrator para distinguir "usuario desconocido" de un fallo de store.
func IsUserNotFound(err error) bool {
	e, ok := err.(*errx.Error)
	if !ok {
		return false
	}
	return e.Code == CodeUserNotFound
}
