// Package triggermatcher selecciona el primer trigger publicado que
// coincide con un evento normalizado (spec §4.3).
package triggermatcher

import (
	"context"
	"strings"

	"github.com/Abraxas-365/relay/engine"
	"github.com/Abraxas-365/relay/pkg/kernel"
)

// Matcher implementa engine.TriggerMatcher contra el TriggerRepository
type Matcher struct {
	triggers engine.TriggerRepository
}

func New(triggers engine.TriggerRepository) *Matcher {
	return &Matcher{triggers: triggers}
}

var _ engine.TriggerMatcher = (*Matcher)(nil)

// Match implementa el algoritmo de §4.3: carga triggers publicados del
// brand, descarta eventos sin user_reply, y devuelve el primero que
// coincida en orden de iteración del store.
func (m *Matcher) Match(ctx context.Context, brandID kernel.BrandID, messageType string, event engine.NormalizedEvent, channel string) (*engine.Trigger, error) {
	text := strings.TrimSpace(event.UserReply)
	if text == "" {
		return nil, nil
	}

	triggers, err := m.triggers.FindByBrandPublished(ctx, brandID)
	if err != nil {
		return nil, err
	}

	for i := range triggers {
		if triggers[i].Matches(text, messageType) {
			return &triggers[i], nil
		}
	}
	return nil, nil
}
