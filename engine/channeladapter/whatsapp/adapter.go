// Package whatsapp normaliza payloads de WhatsApp Business API al contrato
// channel-agnostic del motor (spec §4.1).
package whatsapp

import (
	"context"

	"github.com/Abraxas-365/relay/engine"
)

const Channel = "whatsapp"

// Adapter normaliza mensajes de texto/botón/interactivo/media de WhatsApp
type Adapter struct{}

func New() *Adapter { return &Adapter{} }

var _ engine.ChannelAdapter = (*Adapter)(nil)

func (a *Adapter) GetChannel() string { return Channel }

func (a *Adapter) Normalize(ctx context.Context, messageType string, payload map[string]any) (engine.NormalizedEvent, error) {
	event := engine.NormalizedEvent{}

	switch messageType {
	case "text":
		event.UserReply = nestedString(payload, "text", "body")
	case "button":
		event.UserReply = nestedString(payload, "button", "text")
	case "interactive":
		if title := nestedString(payload, "interactive", "button_reply", "title"); title != "" {
			event.UserReply = title
		} else {
			event.UserReply = nestedString(payload, "interactive", "list_reply", "title")
		}
	case "image", "video", "audio", "document", "sticker":
		event.MediaType = messageType
		event.MediaURL = nestedString(payload, messageType, "link")
		if event.MediaURL == "" {
			event.MediaURL = nestedString(payload, messageType, "id")
		}
		event.UserReply = nestedString(payload, messageType, "caption")
	}

	return event, nil
}

// nestedString recorre una cadena de claves en un payload map[string]any
// arbitrariamente anidado, devolviendo "" si cualquier nivel falta o no es string.
func nestedString(payload map[string]any, keys ...string) string {
	var cur any = payload
	for _, k := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur, ok = m[k]
		if !ok {
			return ""
		}
	}
	s, _ := cur.(string)
	return s
}
