// Package facebook normaliza eventos de Facebook Messenger (Meta Graph API);
// comparte shape con Instagram Messaging (spec §4.1).
package facebook

import (
	"context"

	"github.com/Abraxas-365/relay/engine"
)

const Channel = "facebook"

type Adapter struct{}

func New() *Adapter { return &Adapter{} }

var _ engine.ChannelAdapter = (*Adapter)(nil)

func (a *Adapter) GetChannel() string { return Channel }

func (a *Adapter) Normalize(ctx context.Context, messageType string, payload map[string]any) (engine.NormalizedEvent, error) {
	event := engine.NormalizedEvent{}

	if msg, ok := payload["message"].(map[string]any); ok {
		if text, ok := msg["text"].(string); ok {
			event.UserReply = text
		}
		if attachments, ok := msg["attachments"].([]any); ok && len(attachments) > 0 {
			if first, ok := attachments[0].(map[string]any); ok {
				event.MediaType, _ = first["type"].(string)
				if payloadMap, ok := first["payload"].(map[string]any); ok {
					event.MediaURL, _ = payloadMap["url"].(string)
				}
			}
		}
		return event, nil
	}

	if postback, ok := payload["postback"].(map[string]any); ok {
		event.UserReply, _ = postback["title"].(string)
	}

	return event, nil
}
