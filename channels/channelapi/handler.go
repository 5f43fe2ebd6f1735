package channelapi

import (
	"log"

	"github.com/Abraxas-365/relay/channels"
	"github.com/Abraxas-365/relay/engine"
	"github.com/Abraxas-365/relay/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

// ChannelHandler handles generic channel webhook intake, bridging the
// per-provider channels.IncomingMessage decode into engine.Intake.
type ChannelHandler struct {
	intake engine.Intake
}

// NewChannelHandler creates a new channel handler
func NewChannelHandler(intake engine.Intake) *ChannelHandler {
	return &ChannelHandler{intake: intake}
}

// ProcessIncomingMessage processes incoming messages from ANY channel.
// This handler expects incoming_message and channel in fiber.Locals, set by
// the channel-specific webhook route before forwarding here.
func (h *ChannelHandler) ProcessIncomingMessage(c *fiber.Ctx) error {
	incomingMsg, ok := c.Locals("incoming_message").(*channels.IncomingMessage)
	if !ok || incomingMsg == nil {
		log.Printf("❌ No incoming message in context")
		return c.SendStatus(fiber.StatusOK)
	}

	channel, ok := c.Locals("channel").(*channels.Channel)
	if !ok || channel == nil {
		log.Printf("❌ No channel in context")
		return c.SendStatus(fiber.StatusOK)
	}

	log.Printf("📨 Processing incoming message from %s via channel %s", incomingMsg.SenderID, channel.Name)

	req := h.toInboundWebhookRequest(channel, incomingMsg)

	result, err := h.intake.Process(c.Context(), req)
	if err != nil {
		log.Printf("❌ Failed to process message through engine: %v", err)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "error", "error": err.Error()})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":              result.Status,
		"message":             result.Message,
		"automation_triggered": result.AutomationTriggered,
	})
}

// toInboundWebhookRequest construye el request de engine.Intake a partir del
// mensaje ya decodificado por el canal. RawPayload conserva el wire payload
// original del proveedor tal como lo esperan los ChannelAdapter concretos
// (p.ej. engine/channeladapter/whatsapp indexa payload["text"]["body"]).
func (h *ChannelHandler) toInboundWebhookRequest(channel *channels.Channel, incomingMsg *channels.IncomingMessage) engine.InboundWebhookRequest {
	body := incomingMsg.RawPayload
	if body == nil {
		body = map[string]any{}
	}
	return engine.InboundWebhookRequest{
		Sender:           incomingMsg.SenderID,
		BrandID:          kernel.BrandID(channel.TenantID),
		ChannelAccountID: incomingMsg.SenderID,
		MessageType:      incomingMsg.Content.Type,
		MessageBody:      body,
		Channel:          channelName(channel.Type),
	}
}

// channelName mapea el ChannelType de almacenamiento al string de canal que
// reconoce el Registry de ChannelAdapter (spec §4.1).
func channelName(t channels.ChannelType) string {
	switch t {
	case channels.ChannelTypeWhatsApp:
		return "whatsapp"
	case channels.ChannelTypeInstagram:
		return "instagram"
	case channels.ChannelTypeTelegram:
		return "telegram"
	case channels.ChannelTypeSMS:
		return "sms"
	case channels.ChannelTypeEmail:
		return "email"
	default:
		return string(t)
	}
}
