// Package orchestrator implementa el User State Orchestrator (spec §4.7): el
// state machine central que decide, para cada evento normalizado, si el
// usuario es nuevo, si el evento es un delay_complete sintético, o en qué
// punto de un flow continuar, y que serializa el procesamiento por usuario.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Abraxas-365/relay/engine"
	"github.com/Abraxas-365/relay/pkg/kernel"
)

// Orchestrator implementa engine.Orchestrator
type Orchestrator struct {
	users       engine.UserRepository
	flows       engine.FlowRepository
	triggers    engine.TriggerMatcher
	validator   engine.ReplyValidator
	walker      engine.NodeWalker
	nodeDetails engine.NodeDetailRepository
	delays      engine.DelayRepository
	scheduler   engine.DelayScheduler
	leads       engine.LeadAcquirer

	locks *keyedMutex
}

func New(
	users engine.UserRepository,
	flows engine.FlowRepository,
	triggers engine.TriggerMatcher,
	validator engine.ReplyValidator,
	walker engine.NodeWalker,
	nodeDetails engine.NodeDetailRepository,
	delays engine.DelayRepository,
	scheduler engine.DelayScheduler,
	leads engine.LeadAcquirer,
) *Orchestrator {
	if leads == nil {
		leads = engine.NoopLeadAcquirer{}
	}
	return &Orchestrator{
		users:       users,
		flows:       flows,
		triggers:    triggers,
		validator:   validator,
		walker:      walker,
		nodeDetails: nodeDetails,
		delays:      delays,
		scheduler:   scheduler,
		leads:       leads,
		locks:       newKeyedMutex(),
	}
}

var _ engine.Orchestrator = (*Orchestrator)(nil)

// HandleEvent implementa el state machine de §4.7. Serializa por
// (brand, channel, channel_account_id) para que eventos consecutivos del
// mismo usuario nunca se procesen concurrentemente.
func (o *Orchestrator) HandleEvent(
	ctx context.Context,
	brandID kernel.BrandID,
	channel, channelAccountID string,
	metadata engine.WebhookMessageMetadata,
	event engine.NormalizedEvent,
) error {
	unlock := o.locks.Lock(fmt.Sprintf("%s:%s:%s", brandID, channel, channelAccountID))
	defer unlock()

	user, err := o.users.FindByIdentity(ctx, brandID, channel, channelAccountID)
	if err != nil {
		if !engine.IsUserNotFound(err) {
			return err
		}
		user, err = o.createUser(ctx, brandID, channel, channelAccountID)
		if err != nil {
			return err
		}
		return o.handleNoAutomation(ctx, user, metadata, event)
	}

	switch {
	case metadata.MessageType == engine.MessageTypeDelayComplete:
		return o.handleDelayComplete(ctx, user, metadata, event)
	case !user.IsInAutomation:
		return o.handleNoAutomation(ctx, user, metadata, event)
	case user.IsWaitingOnDelay():
		return o.handleReplyDuringDelay(ctx, user, metadata, event)
	case user.CurrentNodeID != nil:
		return o.handleInAutomation(ctx, user, metadata, event)
	default:
		// is_in_automation=true pero sin current_node_id es un estado
		// inconsistente; tratarlo como no-automation evita dejar al usuario
		// atascado.
		return o.handleNoAutomation(ctx, user, metadata, event)
	}
}

// HandleDelayDue entrega de vuelta un delay vencido (spec §5 / §4.7
// transición 2). A diferencia de HandleEvent, que resuelve al usuario por
// (brand, channel, channel_account_id), un delay vencido ya trae el id
// interno del usuario (delayscheduler.OnDueFunc); se resuelve por id y se
// reusa la misma guarda/lógica de handleDelayComplete.
func (o *Orchestrator) HandleDelayDue(ctx context.Context, d engine.Delay) error {
	user, err := o.users.FindByID(ctx, kernel.UserID(d.UserIdentifier))
	if err != nil {
		if engine.IsUserNotFound(err) {
			return nil
		}
		return err
	}

	unlock := o.locks.Lock(fmt.Sprintf("%s:%s:%s", user.BrandID, user.Channel, user.ChannelAccountID))
	defer unlock()

	metadata := engine.WebhookMessageMetadata{
		Sender:            user.ChannelAccountID,
		Brand:             user.BrandID.String(),
		Channel:           user.Channel,
		ChannelIdentifier: user.ChannelAccountID,
		MessageType:       engine.MessageTypeDelayComplete,
	}
	event := engine.NormalizedEvent{UserStateID: string(user.ID)}

	return o.handleDelayComplete(ctx, user, metadata, event)
}

// createUser resuelve la transición 1: usuario desconocido. Adquiere el lead
// vía el colaborador opcional (Noop cuando no hay CRM configurado) y nunca
// bloquea la conversación si la adquisición falla.
func (o *Orchestrator) createUser(ctx context.Context, brandID kernel.BrandID, channel, channelAccountID string) (*engine.User, error) {
	now := time.Now()
	user := &engine.User{
		ID:               kernel.NewUserID(uuid.NewString()),
		BrandID:          brandID,
		Channel:          channel,
		ChannelAccountID: channelAccountID,
		UserDetail:       userDetailFor(channel, channelAccountID),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	leadID, err := o.leads.AcquireLead(ctx, brandID, channel, user.UserDetail)
	if err != nil {
		log.Printf("orchestrator: lead acquisition failed for new user on brand %s: %v", brandID, err)
	} else {
		user.LeadID = leadID
	}

	if err := o.users.Save(ctx, *user); err != nil {
		return nil, err
	}
	return user, nil
}

// userDetailFor puebla el campo de UserDetail correspondiente al channel de
// origen; el resto queda vacío (spec §4.7: "solo uno suele poblarse por fila").
func userDetailFor(channel, channelAccountID string) engine.UserDetail {
	detail := engine.UserDetail{}
	switch strings.ToLower(channel) {
	case "whatsapp", "sms":
		detail.Phone = channelAccountID
	case "email":
		detail.Email = channelAccountID
	case "instagram":
		detail.IG = channelAccountID
	case "facebook", "messenger":
		detail.FB = channelAccountID
	case "telegram":
		detail.TG = channelAccountID
	default:
		detail.Custom = map[string]any{channel: channelAccountID}
	}
	return detail
}

// handleDelayComplete implementa la transición 2: un evento sintético
// delay_complete solo se procesa si el usuario sigue en automatización, con
// delay_node_data presente y un flow en curso; cualquier otro caso se
// descarta como stale (spec §4.7). No se compara el nodo delay del evento
// con el nodo actual del usuario.
func (o *Orchestrator) handleDelayComplete(ctx context.Context, user *engine.User, metadata engine.WebhookMessageMetadata, event engine.NormalizedEvent) error {
	if !user.IsInAutomation || !user.IsWaitingOnDelay() || user.CurrentFlowID == nil {
		return nil
	}

	selector := selectorBySuffix(user.DelayNodeData, "__not_interrupted")
	if selector == "" {
		return engine.ErrStaleDelay().WithDetail("user_id", user.ID)
	}
	selNode := kernel.NodeID(selector)

	flowID := *user.CurrentFlowID
	result, err := o.walker.IdentifyAndProcess(ctx, engine.WalkRequest{
		Metadata:      metadata,
		Data:          event,
		FlowID:        flowID,
		UserID:        user.ID,
		UserDetail:    user.UserDetail,
		LeadID:        user.LeadID,
		CurrentNodeID: &selNode,
	})
	if err != nil {
		return err
	}

	user.ClearDelay()
	return o.applyWalkResult(ctx, user, flowID, metadata, result)
}

// handleNoAutomation implementa la transición 3a: el usuario no está en
// ningún flow, así que el evento debe matchear un trigger para arrancar uno.
func (o *Orchestrator) handleNoAutomation(ctx context.Context, user *engine.User, metadata engine.WebhookMessageMetadata, event engine.NormalizedEvent) error {
	trigger, err := o.triggers.Match(ctx, user.BrandID, metadata.MessageType, event, metadata.Channel)
	if err != nil {
		return err
	}
	if trigger == nil {
		return nil
	}

	result, err := o.walker.IdentifyAndProcess(ctx, engine.WalkRequest{
		Metadata:        metadata,
		Data:            event,
		FlowID:          trigger.FlowID,
		UserID:          user.ID,
		UserDetail:      user.UserDetail,
		LeadID:          user.LeadID,
		NodeIDToProcess: &trigger.NodeID,
	})
	if err != nil {
		return err
	}
	return o.applyWalkResult(ctx, user, trigger.FlowID, metadata, result)
}

// handleReplyDuringDelay implementa la transición 3b: una respuesta del
// usuario mientras espera un delay solo interrumpe la espera si el nodo
// delay fue configurado con delay_interrupt=true.
func (o *Orchestrator) handleReplyDuringDelay(ctx context.Context, user *engine.User, metadata engine.WebhookMessageMetadata, event engine.NormalizedEvent) error {
	interrupt, _ := user.DelayNodeData["delay_interrupt"].(bool)
	if !interrupt {
		return nil
	}

	selector := selectorBySuffix(user.DelayNodeData, "__interrupted")
	if selector == "" {
		return engine.ErrSelectorNotFound().WithDetail("user_id", user.ID).WithDetail("suffix", "__interrupted")
	}
	selNode := kernel.NodeID(selector)

	if user.CurrentFlowID == nil {
		return engine.ErrStaleDelay().WithDetail("user_id", user.ID)
	}
	flowID := *user.CurrentFlowID

	if user.CurrentNodeID != nil {
		if err := o.delays.CancelForUser(ctx, string(user.ID), flowID, *user.CurrentNodeID); err != nil {
			return err
		}
	}

	result, err := o.walker.IdentifyAndProcess(ctx, engine.WalkRequest{
		Metadata:      metadata,
		Data:          event,
		FlowID:        flowID,
		UserID:        user.ID,
		UserDetail:    user.UserDetail,
		LeadID:        user.LeadID,
		CurrentNodeID: &selNode,
	})
	if err != nil {
		return err
	}

	user.ClearDelay()
	return o.applyWalkResult(ctx, user, flowID, metadata, result)
}

// handleInAutomation implementa las transiciones 3c/3d: el usuario está en
// un flow sobre un nodo concreto. Si ese nodo requiere input se delega al
// Reply Validator; en caso contrario se re-invoca el walker directamente
// (cubre el caso de un nodo no-input en el que el usuario quedó suspendido,
// p.ej. tras un fallo de despacho previo).
func (o *Orchestrator) handleInAutomation(ctx context.Context, user *engine.User, metadata engine.WebhookMessageMetadata, event engine.NormalizedEvent) error {
	flowID := *user.CurrentFlowID
	nodeID := *user.CurrentNodeID

	flow, err := o.flows.FindByID(ctx, flowID)
	if err != nil {
		return err
	}
	node := flow.NodeByID(nodeID)
	if node == nil {
		return engine.ErrNodeNotFound().WithDetail("node_id", nodeID)
	}

	detail, err := o.nodeDetails.FindByType(ctx, node.Type)
	if err != nil {
		return err
	}
	if !detail.UserInputRequired {
		result, err := o.walker.IdentifyAndProcess(ctx, engine.WalkRequest{
			Metadata:      metadata,
			Data:          event,
			FlowID:        flowID,
			UserID:        user.ID,
			UserDetail:    user.UserDetail,
			LeadID:        user.LeadID,
			CurrentNodeID: &nodeID,
		})
		if err != nil {
			return err
		}
		return o.applyWalkResult(ctx, user, flowID, metadata, result)
	}

	return o.handleReply(ctx, user, flow, nodeID, metadata, event)
}

// handleReply implementa la transición 3c: despacha al Reply Validator y
// traduce cada ValidatorOutcomeKind a su avance correspondiente del walker.
func (o *Orchestrator) handleReply(ctx context.Context, user *engine.User, flow *engine.Flow, nodeID kernel.NodeID, metadata engine.WebhookMessageMetadata, event engine.NormalizedEvent) error {
	node := flow.NodeByID(nodeID)
	isText := node != nil && node.Type == engine.NodeTypeQuestion
	outcome, err := o.validator.ValidateAndMatch(ctx, flow, user.ID, nodeID, event, isText, user.Validation.FailureCount)
	if err != nil {
		return err
	}

	switch outcome.Kind {
	case engine.OutcomeMatched:
		event.MatchedAnswerID = outcome.AnswerID
		result, err := o.walker.IdentifyAndProcess(ctx, engine.WalkRequest{
			Metadata: metadata, Data: event, FlowID: flow.ID,
			UserID: user.ID, UserDetail: user.UserDetail, LeadID: user.LeadID,
		})
		if err != nil {
			return err
		}
		return o.applyWalkResult(ctx, user, flow.ID, metadata, result)

	case engine.OutcomeMatchedOtherNode:
		otherID := outcome.OtherNodeID
		result, err := o.walker.IdentifyAndProcess(ctx, engine.WalkRequest{
			Metadata: metadata, Data: event, FlowID: flow.ID,
			UserID: user.ID, UserDetail: user.UserDetail, LeadID: user.LeadID,
			NodeIDToProcess: &otherID,
		})
		if err != nil {
			return err
		}
		return o.applyWalkResult(ctx, user, flow.ID, metadata, result)

	case engine.OutcomeUseDefaultEdge:
		result, err := o.walker.IdentifyAndProcess(ctx, engine.WalkRequest{
			Metadata: metadata, Data: event, FlowID: flow.ID,
			UserID: user.ID, UserDetail: user.UserDetail, LeadID: user.LeadID,
			CurrentNodeID: &nodeID,
		})
		if err != nil {
			return err
		}
		return o.applyWalkResult(ctx, user, flow.ID, metadata, result)

	case engine.OutcomeMismatchRetry:
		_, err := o.walker.IdentifyAndProcess(ctx, engine.WalkRequest{
			Metadata: metadata, Data: event, FlowID: flow.ID,
			UserID: user.ID, UserDetail: user.UserDetail, LeadID: user.LeadID,
			IsValidationError: true,
			FallbackMessage:   outcome.FallbackMessage,
			CurrentNodeID:     &nodeID,
			NodeIDToProcess:   &nodeID,
		})
		if err != nil {
			return err
		}
		user.RecordValidationFailure(outcome.FallbackMessage)
		return o.users.Save(ctx, *user)

	case engine.OutcomeValidationExit:
		// El usuario agotó sus reintentos; se envía el mensaje de fallback
		// pero, por decisión explícita (ver DESIGN.md), no se resetea el
		// contador ni se saca al usuario de la automatización: queda
		// esperando la siguiente respuesta sobre el mismo nodo.
		_, err := o.walker.IdentifyAndProcess(ctx, engine.WalkRequest{
			Metadata: metadata, Data: event, FlowID: flow.ID,
			UserID: user.ID, UserDetail: user.UserDetail, LeadID: user.LeadID,
			IsValidationError: true,
			FallbackMessage:   outcome.FallbackMessage,
			CurrentNodeID:     &nodeID,
		})
		return err

	default: // OutcomeError
		return engine.ErrOrchestrationError().WithDetail("reason", outcome.ErrMessage)
	}
}

// applyWalkResult persiste el post-procesamiento tras un avance del walker
// (spec §4.7 "Post-processing"): clasifica el nodo alcanzado vía NodeDetail,
// ramifica condition/delay, detecta nodos terminales, o continúa el walk.
func (o *Orchestrator) applyWalkResult(ctx context.Context, user *engine.User, flowID kernel.FlowID, metadata engine.WebhookMessageMetadata, result engine.WalkResult) error {
	if result.Status != engine.WalkStatusAdvanced || result.NextNodeID == nil {
		return nil
	}
	flow, err := o.flows.FindByID(ctx, flowID)
	if err != nil {
		return err
	}
	return o.postProcess(ctx, user, flow, metadata, *result.NextNodeID, result.ProcessedValue, 0)
}

const maxPostProcessDepth = 50

func (o *Orchestrator) postProcess(ctx context.Context, user *engine.User, flow *engine.Flow, metadata engine.WebhookMessageMetadata, nextID kernel.NodeID, processedValue any, depth int) error {
	if depth > maxPostProcessDepth {
		return engine.ErrChainDepthExceeded().WithDetail("flow_id", flow.ID)
	}

	nextNode := flow.NodeByID(nextID)
	if nextNode == nil {
		return engine.ErrNodeNotFound().WithDetail("node_id", nextID)
	}

	switch nextNode.Type {
	case engine.NodeTypeCondition:
		selector, ok := processedValue.(string)
		if !ok || selector == "" {
			return engine.ErrSelectorNotFound().WithDetail("node_id", nextID)
		}
		return o.recurse(ctx, user, flow, metadata, kernel.NodeID(selector), depth)

	case engine.NodeTypeDelay:
		return o.enterDelay(ctx, user, flow, nextID, processedValue)
	}

	detail, err := o.nodeDetails.FindByType(ctx, nextNode.Type)
	if err != nil {
		return err
	}

	if detail.UserInputRequired || detail.Category == engine.NodeCategoryDelay {
		user.EnterFlow(flow.ID, nextID)
		user.ResetValidation()
		return o.users.Save(ctx, *user)
	}

	if flow.EdgeBySource(string(nextID)) == nil {
		user.ExitAutomation()
		return o.users.Save(ctx, *user)
	}

	return o.recurse(ctx, user, flow, metadata, nextID, depth)
}

func (o *Orchestrator) recurse(ctx context.Context, user *engine.User, flow *engine.Flow, metadata engine.WebhookMessageMetadata, currentID kernel.NodeID, depth int) error {
	result, err := o.walker.IdentifyAndProcess(ctx, engine.WalkRequest{
		Metadata:      metadata,
		FlowID:        flow.ID,
		UserID:        user.ID,
		UserDetail:    user.UserDetail,
		LeadID:        user.LeadID,
		CurrentNodeID: &currentID,
		ChainDepth:    depth + 1,
	})
	if err != nil {
		return err
	}
	if result.Status != engine.WalkStatusAdvanced || result.NextNodeID == nil {
		return nil
	}
	return o.postProcess(ctx, user, flow, metadata, *result.NextNodeID, result.ProcessedValue, depth+1)
}

// enterDelay persiste el estado de espera del usuario y la fila Delay
// correspondiente, y le ofrece el camino rápido al DelayScheduler si hay uno
// configurado.
func (o *Orchestrator) enterDelay(ctx context.Context, user *engine.User, flow *engine.Flow, nodeID kernel.NodeID, processedValue any) error {
	data, _ := processedValue.(map[string]any)

	waitSeconds := 0
	if v, ok := data["wait_time_seconds"].(int); ok {
		waitSeconds = v
	}

	flowID := flow.ID
	user.CurrentFlowID = &flowID
	user.EnterDelay(nodeID, engine.DelayNodeData(data))
	if err := o.users.Save(ctx, *user); err != nil {
		return err
	}

	now := time.Now()
	delay := engine.Delay{
		ID:               kernel.NewDelayID(uuid.NewString()),
		UserIdentifier:   string(user.ID),
		BrandID:          user.BrandID,
		FlowID:           flow.ID,
		DelayNodeID:      nodeID,
		DelayNodeData:    engine.DelayNodeData(data),
		DelayStartedAt:   now,
		DelayCompletesAt: now.Add(time.Duration(waitSeconds) * time.Second),
		Processed:        false,
	}
	if err := o.delays.Save(ctx, delay); err != nil {
		return err
	}
	if o.scheduler != nil {
		if err := o.scheduler.Schedule(ctx, delay); err != nil {
			log.Printf("orchestrator: fast-path scheduling failed for delay %s: %v", delay.ID, err)
		}
	}
	return nil
}

// selectorBySuffix busca, dentro de delay_node_data.delay_result, el selector
// sintético que termina en el sufijo dado (__not_interrupted/__interrupted);
// un id terminado en __not_interrupted nunca cuenta como __interrupted.
func selectorBySuffix(data engine.DelayNodeData, suffix string) string {
	raw, ok := data["delay_result"]
	if !ok {
		return ""
	}
	matches := func(s string) bool {
		if suffix == "__interrupted" && strings.HasSuffix(s, "__not_interrupted") {
			return false
		}
		return strings.HasSuffix(s, suffix)
	}
	switch vals := raw.(type) {
	case []string:
		for _, v := range vals {
			if matches(v) {
				return v
			}
		}
	case []any:
		for _, v := range vals {
			if s, ok := v.(string); ok && matches(s) {
				return s
			}
		}
	}
	return ""
}
