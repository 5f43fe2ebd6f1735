// Package channeladapter implementa el Channel Adapter: normaliza payloads
// heterogéneos de cada canal en un NormalizedEvent channel-agnostic.
package channeladapter

import (
	"context"

	"github.com/Abraxas-365/relay/engine"
	"github.com/Abraxas-365/relay/pkg/kernel"
)

// Registry despacha Normalize al adapter registrado para el channel del evento;
// reconoce los dos eventos sintéticos (delay_complete, scheduled_trigger) antes
// de tocar ningún adapter concreto, ya que no dependen del canal de origen.
type Registry struct {
	adapters map[string]engine.ChannelAdapter
}

func NewRegistry(adapters ...engine.ChannelAdapter) *Registry {
	r := &Registry{adapters: make(map[string]engine.ChannelAdapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.GetChannel()] = a
	}
	return r
}

// Normalize resuelve primero los eventos sintéticos y solo delega al adapter
// del canal para eventos reales entrantes del usuario. No implementa
// engine.ChannelAdapter: recibe además el channel como argumento.
func (r *Registry) Normalize(ctx context.Context, channel, messageType string, payload map[string]any) (engine.NormalizedEvent, error) {
	switch messageType {
	case engine.MessageTypeDelayComplete:
		return engine.NormalizedEvent{UserStateID: stringField(payload, "user_state_id")}, nil
	case engine.MessageTypeScheduledTrigger:
		return engine.NormalizedEvent{FlowID: kernel.NewFlowID(stringField(payload, "flow_id"))}, nil
	}

	adapter, ok := r.adapters[channel]
	if !ok {
		return engine.NormalizedEvent{}, engine.ErrChannelDispatch().WithDetail("channel", channel)
	}
	return adapter.Normalize(ctx, messageType, payload)
}

func stringField(payload map[string]any, key string) string {
	if v, ok := payload[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
