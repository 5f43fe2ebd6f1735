// Package nodewalker implementa identify_and_process (spec §4.5): resuelve
// el próximo nodo, despacha internamente (condition/delay) o externamente
// (outbound channel), y auto-encadena nodos `message` consecutivos en
// WhatsApp.
package nodewalker

import (
	"context"
	"time"

	"github.com/Abraxas-365/relay/engine"
	"github.com/Abraxas-365/relay/pkg/kernel"
)

// maxChainDepth acota la recursión de auto-chaining de nodos `message`
// consecutivos; un flow mal formado con un ciclo de mensajes no debe colgar
// el worker que lo procesa.
const maxChainDepth = 50

// Walker implementa engine.NodeWalker
type Walker struct {
	flows      engine.FlowRepository
	internal   engine.InternalNodeProcessor
	dispatcher engine.ChannelDispatcher
	txRecorder engine.TransactionRecorder
	contexts   engine.FlowUserContextRepository
	evaluator  engine.ExpressionEvaluator
	settings   engine.FlowSettingsRepository
}

func New(
	flows engine.FlowRepository,
	internal engine.InternalNodeProcessor,
	dispatcher engine.ChannelDispatcher,
	txRecorder engine.TransactionRecorder,
	contexts engine.FlowUserContextRepository,
	evaluator engine.ExpressionEvaluator,
	settings engine.FlowSettingsRepository,
) *Walker {
	if evaluator == nil {
		evaluator = engine.NewCelEvaluator()
	}
	return &Walker{
		flows: flows, internal: internal, dispatcher: dispatcher, txRecorder: txRecorder,
		contexts: contexts, evaluator: evaluator, settings: settings,
	}
}

var _ engine.NodeWalker = (*Walker)(nil)

// IdentifyAndProcess implementa el procedimiento de 6 pasos de §4.5.
func (w *Walker) IdentifyAndProcess(ctx context.Context, req engine.WalkRequest) (engine.WalkResult, error) {
	if req.ChainDepth > maxChainDepth {
		return engine.WalkResult{}, engine.ErrChainDepthExceeded().WithDetail("flow_id", req.FlowID)
	}

	flow, err := w.flows.FindByID(ctx, req.FlowID)
	if err != nil {
		return engine.WalkResult{}, err
	}

	switch {
	case req.IsValidationError && req.NodeIDToProcess != nil:
		return w.dispatchResolved(ctx, flow, req, *req.NodeIDToProcess)

	case req.IsValidationError && req.NodeIDToProcess == nil:
		return w.validationExit(ctx, req)

	case req.NodeIDToProcess != nil:
		return w.dispatchResolved(ctx, flow, req, *req.NodeIDToProcess)

	default:
		source := req.Data.MatchedAnswerID
		if source == "" {
			if req.CurrentNodeID == nil {
				return engine.WalkResult{}, engine.ErrEdgeNotFound().WithDetail("reason", "neither matched_answer_id nor current_node_id present")
			}
			source = string(*req.CurrentNodeID)
		}
		edge := flow.EdgeBySource(source)
		if edge == nil {
			return engine.WalkResult{}, engine.ErrEdgeNotFound().WithDetail("source_node_id", source)
		}
		return w.dispatchResolved(ctx, flow, req, edge.TargetNodeID)
	}
}

// validationExit envía fallback_message por el canal saliente (solo WhatsApp;
// otros canales no hacen nada) y retorna sin avanzar el estado del usuario.
func (w *Walker) validationExit(ctx context.Context, req engine.WalkRequest) (engine.WalkResult, error) {
	if req.Metadata.Channel == "whatsapp" && req.FallbackMessage != "" {
		err := w.dispatcher.ProcessNode(ctx, engine.ProcessNodeRequest{
			FlowID:            req.FlowID,
			CurrentNodeID:     req.CurrentNodeID,
			UserIdentifier:    req.Metadata.Sender,
			BrandID:           kernel.BrandID(req.Metadata.Brand),
			UserID:            req.UserID,
			Channel:           req.Metadata.Channel,
			FallbackMessage:   req.FallbackMessage,
			IsValidationError: true,
		})
		if err != nil {
			return engine.WalkResult{}, err
		}
	}
	return engine.WalkResult{Status: engine.WalkStatusValidationExit}, nil
}

// dispatchResolved procesa el nodo ya resuelto: internamente si es
// condition/delay, externamente en caso contrario, con auto-chaining de
// nodos message consecutivos sobre WhatsApp.
func (w *Walker) dispatchResolved(ctx context.Context, flow *engine.Flow, req engine.WalkRequest, nextID kernel.NodeID) (engine.WalkResult, error) {
	nextNode := flow.NodeByID(nextID)
	if nextNode == nil {
		return engine.WalkResult{}, engine.ErrNodeNotFound().WithDetail("node_id", nextID)
	}

	if nextNode.Type == engine.NodeTypeCondition || nextNode.Type == engine.NodeTypeDelay {
		processedValue, err := w.processInternal(ctx, nextNode, req)
		if err != nil {
			return engine.WalkResult{}, err
		}
		if err := w.recordTransaction(ctx, req, nextNode, "processed", processedValue); err != nil {
			return engine.WalkResult{}, err
		}
		next := nextID
		return engine.WalkResult{Status: engine.WalkStatusAdvanced, NextNodeID: &next, ProcessedValue: processedValue}, nil
	}

	if err := w.dispatchExternal(ctx, req, nextNode); err != nil {
		return engine.WalkResult{}, err
	}
	if err := w.recordTransaction(ctx, req, nextNode, "dispatched", nil); err != nil {
		return engine.WalkResult{}, err
	}

	if nextNode.Type == engine.NodeTypeMessage && req.Metadata.Channel == "whatsapp" && w.shouldChain(flow, nextID) {
		chainReq := req
		chained := nextID
		chainReq.CurrentNodeID = &chained
		chainReq.NodeIDToProcess = nil
		chainReq.IsValidationError = false
		chainReq.Data.MatchedAnswerID = ""
		chainReq.ChainDepth = req.ChainDepth + 1
		return w.IdentifyAndProcess(ctx, chainReq)
	}

	next := nextID
	return engine.WalkResult{Status: engine.WalkStatusAdvanced, NextNodeID: &next}, nil
}

// shouldChain reporta si el edge saliente del nodo recién despachado lleva a
// otro nodo `message`, el único caso en que el auto-chaining continúa.
func (w *Walker) shouldChain(flow *engine.Flow, fromID kernel.NodeID) bool {
	edge := flow.EdgeBySource(string(fromID))
	if edge == nil {
		return false
	}
	target := flow.NodeByID(edge.TargetNodeID)
	return target != nil && target.Type == engine.NodeTypeMessage
}

func (w *Walker) processInternal(ctx context.Context, node *engine.Node, req engine.WalkRequest) (any, error) {
	switch node.Type {
	case engine.NodeTypeCondition:
		return w.internal.ProcessCondition(ctx, node, req.UserID, req.FlowID)
	case engine.NodeTypeDelay:
		return w.internal.ProcessDelay(ctx, node)
	default:
		return nil, engine.ErrUnknownNodeType().WithDetail("node_type", node.Type)
	}
}

// dispatchExternal resuelve `{{variable}}` dentro de NextNodeData contra las
// variables capturadas del usuario en el flow antes de entregarlo al
// channel-delivery service, para que mensajes como "Hola {{nombre}}" salgan
// interpolados.
func (w *Walker) dispatchExternal(ctx context.Context, req engine.WalkRequest, nextNode *engine.Node) error {
	data, err := w.interpolate(ctx, req, nextNode.Data)
	if err != nil {
		return err
	}
	if nextNode.Type == engine.NodeTypeSendEmailTemplate {
		data = w.mergeSettings(ctx, req.FlowID, nextNode.ID, data)
	}
	// El channel-delivery service al que apunta el dispatcher solo resuelve
	// nodos de WhatsApp; los demás canales manejan su propio envío aguas
	// abajo y no deben golpear este endpoint.
	if req.Metadata.Channel != "whatsapp" {
		return nil
	}
	return w.dispatcher.ProcessNode(ctx, engine.ProcessNodeRequest{
		FlowID:            req.FlowID,
		CurrentNodeID:     req.CurrentNodeID,
		NextNodeID:        nextNode.ID,
		NextNodeData:      data,
		UserIdentifier:    req.Metadata.Sender,
		BrandID:           kernel.BrandID(req.Metadata.Brand),
		UserID:            req.UserID,
		Channel:           req.Metadata.Channel,
		FallbackMessage:   req.FallbackMessage,
		IsValidationError: req.IsValidationError,
	})
}

// mergeSettings agrega la configuración por (flow,node) (p.ej.
// email.source_email) al payload saliente, sin sobrescribir claves que el
// propio nodo ya trae en Data.
func (w *Walker) mergeSettings(ctx context.Context, flowID kernel.FlowID, nodeID kernel.NodeID, data map[string]any) map[string]any {
	if w.settings == nil {
		return data
	}
	fs, err := w.settings.FindByFlowNode(ctx, flowID, nodeID)
	if err != nil || fs == nil || len(fs.Settings) == 0 {
		return data
	}
	merged := make(map[string]any, len(data)+len(fs.Settings))
	for k, v := range fs.Settings {
		merged[k] = v
	}
	for k, v := range data {
		merged[k] = v
	}
	return merged
}

func (w *Walker) interpolate(ctx context.Context, req engine.WalkRequest, data map[string]any) (map[string]any, error) {
	if w.contexts == nil || len(data) == 0 {
		return data, nil
	}
	captured, err := w.contexts.FindByUserFlow(ctx, req.UserID, req.FlowID)
	if err != nil {
		return nil, err
	}
	if len(captured) == 0 {
		return data, nil
	}
	vars := make(map[string]any, len(captured))
	for _, v := range captured {
		vars[v.VariableName] = v.VariableValue
	}

	evaluated, err := w.evaluator.Evaluate(ctx, data, vars)
	if err != nil {
		return data, nil
	}
	result, ok := evaluated.(map[string]any)
	if !ok {
		return data, nil
	}
	return result, nil
}

func (w *Walker) recordTransaction(ctx context.Context, req engine.WalkRequest, node *engine.Node, status string, processedValue any) error {
	return w.txRecorder.Record(ctx, engine.UserTransaction{
		NodeID:          node.ID,
		FlowID:          req.FlowID,
		UserDetail:      req.UserDetail,
		Channel:         req.Metadata.Channel,
		ProcessedStatus: status,
		NodeType:        node.Type,
		ProcessedValue:  processedValue,
		NodeData:        node.Data,
		CreatedAt:       time.Now(),
	})
}
