// Package sms normaliza payloads de proveedores SMS: el texto llega bajo
// una de `text|body|message` según el proveedor (spec §4.1).
package sms

import (
	"context"

	"github.com/Abraxas-365/relay/engine"
)

const Channel = "sms"

type Adapter struct{}

func New() *Adapter { return &Adapter{} }

var _ engine.ChannelAdapter = (*Adapter)(nil)

func (a *Adapter) GetChannel() string { return Channel }

func (a *Adapter) Normalize(ctx context.Context, messageType string, payload map[string]any) (engine.NormalizedEvent, error) {
	for _, key := range []string{"text", "body", "message"} {
		if v, ok := payload[key].(string); ok && v != "" {
			return engine.NormalizedEvent{UserReply: v}, nil
		}
	}
	return engine.NormalizedEvent{}, nil
}
