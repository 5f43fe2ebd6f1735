// Package instagram normaliza eventos de Instagram Messaging (Meta Graph API):
// `message.text` para texto, `postback.title` para respuestas estructuradas
// (spec §4.1 "Instagram/Facebook: similar fallbacks").
package instagram

import (
	"context"

	"github.com/Abraxas-365/relay/engine"
)

const Channel = "instagram"

type Adapter struct{}

func New() *Adapter { return &Adapter{} }

var _ engine.ChannelAdapter = (*Adapter)(nil)

func (a *Adapter) GetChannel() string { return Channel }

func (a *Adapter) Normalize(ctx context.Context, messageType string, payload map[string]any) (engine.NormalizedEvent, error) {
	event := engine.NormalizedEvent{}

	if text, ok := nested(payload, "message", "text"); ok {
		event.UserReply, _ = text.(string)
	} else if title, ok := nested(payload, "postback", "title"); ok {
		event.UserReply, _ = title.(string)
	}

	if attachments, ok := nested(payload, "message", "attachments"); ok {
		if list, ok := attachments.([]any); ok && len(list) > 0 {
			if first, ok := list[0].(map[string]any); ok {
				event.MediaType, _ = first["type"].(string)
				if payloadMap, ok := first["payload"].(map[string]any); ok {
					event.MediaURL, _ = payloadMap["url"].(string)
				}
			}
		}
	}

	return event, nil
}

func nested(payload map[string]any, keys ...string) (any, bool) {
	var cur any = payload
	for _, k := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[k]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
