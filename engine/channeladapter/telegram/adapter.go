// Package telegram normaliza updates de Telegram Bot API: `message.text` o
// `callback_query.data` (spec §4.1).
package telegram

import (
	"context"
	"encoding/json"

	"github.com/mymmrac/telego"

	"github.com/Abraxas-365/relay/engine"
)

const Channel = "telegram"

// Adapter decodifica el payload crudo como telego.Update para reusar el
// parseo de tipos del SDK en vez de indexar el mapa a mano.
type Adapter struct{}

func New() *Adapter { return &Adapter{} }

var _ engine.ChannelAdapter = (*Adapter)(nil)

func (a *Adapter) GetChannel() string { return Channel }

func (a *Adapter) Normalize(ctx context.Context, messageType string, payload map[string]any) (engine.NormalizedEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return engine.NormalizedEvent{}, engine.ErrChannelDispatch().WithDetail("reason", "failed to marshal telegram update")
	}

	var update telego.Update
	if err := json.Unmarshal(raw, &update); err != nil {
		return engine.NormalizedEvent{}, engine.ErrChannelDispatch().WithDetail("reason", "failed to decode telegram update")
	}

	event := engine.NormalizedEvent{}
	switch {
	case update.CallbackQuery != nil:
		event.UserReply = update.CallbackQuery.Data
	case update.Message != nil:
		event.UserReply = update.Message.Text
		if photo := update.Message.Photo; len(photo) > 0 {
			event.MediaType = "photo"
			event.MediaURL = photo[len(photo)-1].FileID
			if event.UserReply == "" {
				event.UserReply = update.Message.Caption
			}
		}
	}

	return event, nil
}
