// Package webhookapi expone POST /webhook/message (spec §6), el punto de
// entrada genérico channel-agnostic hacia engine.Intake.
package webhookapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Abraxas-365/relay/engine"
)

// Handler envuelve engine.Intake para el endpoint HTTP genérico de webhooks.
type Handler struct {
	intake engine.Intake
}

func New(intake engine.Intake) *Handler {
	return &Handler{intake: intake}
}

// ProcessMessage procesa POST /webhook/message; el body es directamente un
// engine.InboundWebhookRequest (SPEC_FULL C.7 acepta los alias históricos de
// channel_account_id).
func (h *Handler) ProcessMessage(c *fiber.Ctx) error {
	var req engine.InboundWebhookRequest
	if err := c.BodyParser(&req); err != nil {
		return engine.ErrInvalidFlowConfig().WithDetail("reason", err.Error())
	}

	result, err := h.intake.Process(c.Context(), req)
	if err != nil {
		return c.Status(fiber.StatusOK).JSON(result)
	}
	return c.JSON(result)
}
