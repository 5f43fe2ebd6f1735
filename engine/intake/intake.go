// Package intake implementa el Webhook Intake (spec §4.2): persiste la
// auditoría del evento crudo, normaliza, y enruta al Time-Triggered service
// (scheduled_trigger) o a la User State Orchestrator.
package intake

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Abraxas-365/relay/engine"
	"github.com/Abraxas-365/relay/engine/channeladapter"
	"github.com/Abraxas-365/relay/pkg/kernel"
)

// ScheduledTriggerHandler procesa eventos scheduled_trigger; deliberadamente
// fuera del núcleo del motor (spec §4.2 paso 2). El motor se entrega con un
// Noop por defecto; un deployment conecta su propio servicio de campañas
// time-triggered.
type ScheduledTriggerHandler interface {
	HandleScheduledTrigger(ctx context.Context, brandID kernel.BrandID, flowID kernel.FlowID) error
}

// NoopScheduledTriggerHandler descarta el evento cuando no hay un servicio
// de time-triggered campaigns configurado.
type NoopScheduledTriggerHandler struct{}

func (NoopScheduledTriggerHandler) HandleScheduledTrigger(ctx context.Context, brandID kernel.BrandID, flowID kernel.FlowID) error {
	return nil
}

// NoopMediaRehoster deja pasar la media_url original cuando no hay un bucket
// propio configurado.
type NoopMediaRehoster struct{}

func (NoopMediaRehoster) Rehost(ctx context.Context, sourceURL string) (string, error) {
	return sourceURL, nil
}

// Intake implementa engine.Intake
type Intake struct {
	webhookMessages  engine.WebhookMessageRepository
	adapters         *channeladapter.Registry
	orchestrator     engine.Orchestrator
	scheduledTrigger ScheduledTriggerHandler
	mediaRehoster    engine.MediaRehoster
}

func New(
	webhookMessages engine.WebhookMessageRepository,
	adapters *channeladapter.Registry,
	orchestrator engine.Orchestrator,
	scheduledTrigger ScheduledTriggerHandler,
	mediaRehoster engine.MediaRehoster,
) *Intake {
	if scheduledTrigger == nil {
		scheduledTrigger = NoopScheduledTriggerHandler{}
	}
	if mediaRehoster == nil {
		mediaRehoster = NoopMediaRehoster{}
	}
	return &Intake{
		webhookMessages:  webhookMessages,
		adapters:         adapters,
		orchestrator:     orchestrator,
		scheduledTrigger: scheduledTrigger,
		mediaRehoster:    mediaRehoster,
	}
}

var _ engine.Intake = (*Intake)(nil)

// Process implementa los 4 pasos de §4.2. Commitea la auditoría antes de
// invocar el trabajo downstream (at-most-once responsibility del Intake;
// la redelivery es responsabilidad del caller).
func (in *Intake) Process(ctx context.Context, req engine.InboundWebhookRequest) (engine.IntakeResult, error) {
	event, err := in.adapters.Normalize(ctx, req.Channel, req.MessageType, req.MessageBody)
	if err != nil {
		return engine.IntakeResult{Status: "error", ErrorDetails: err.Error()}, err
	}

	if event.MediaURL != "" {
		if rehosted, rehostErr := in.mediaRehoster.Rehost(ctx, event.MediaURL); rehostErr != nil {
			// El re-hosting es best-effort: un fallo no debe tumbar el
			// intake, solo dejar la media_url original (que puede expirar
			// antes de que el flow la consuma, pero es mejor que perder el
			// mensaje entero).
			log.Printf("intake: media rehost failed for %s: %v", event.MediaURL, rehostErr)
		} else {
			event.MediaURL = rehosted
		}
	}

	metadata := engine.WebhookMessageMetadata{
		Sender:            req.Sender,
		Brand:             req.BrandID.String(),
		Channel:           req.Channel,
		ChannelIdentifier: req.ResolvedChannelAccountID(),
		MessageType:       req.MessageType,
		Status:            engine.WebhookMessageStatusPending,
	}

	now := time.Now()
	msg := engine.WebhookMessage{
		ID:         kernel.NewWebhookMessageID(uuid.NewString()),
		Metadata:   metadata,
		Data:       event,
		RawPayload: req.MessageBody,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := in.webhookMessages.Save(ctx, msg); err != nil {
		return engine.IntakeResult{Status: "error", ErrorDetails: err.Error()}, err
	}

	var dispatchErr error
	if req.MessageType == engine.MessageTypeScheduledTrigger {
		dispatchErr = in.scheduledTrigger.HandleScheduledTrigger(ctx, req.BrandID, event.FlowID)
	} else {
		dispatchErr = in.orchestrator.HandleEvent(ctx, req.BrandID, req.Channel, req.ResolvedChannelAccountID(), metadata, event)
	}

	if dispatchErr != nil {
		if markErr := in.webhookMessages.MarkError(ctx, msg.ID); markErr != nil {
			log.Printf("intake: failed to mark webhook message %s as error: %v", msg.ID, markErr)
		}
		return engine.IntakeResult{
			Status:       "error",
			Message:      "failed to process event",
			ErrorDetails: dispatchErr.Error(),
		}, dispatchErr
	}

	if markErr := in.webhookMessages.MarkProcessed(ctx, msg.ID); markErr != nil {
		log.Printf("intake: failed to mark webhook message %s as processed: %v", msg.ID, markErr)
	}

	return engine.IntakeResult{
		Status:              "success",
		Message:             "event processed",
		AutomationTriggered: req.MessageType != engine.MessageTypeScheduledTrigger,
	}, nil
}
