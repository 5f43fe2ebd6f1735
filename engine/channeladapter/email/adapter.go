// Package email normaliza eventos entrantes de correo: asunto preferido,
// cuerpo de texto como respaldo (spec §4.1).
package email

import (
	"context"
	"io"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"

	"github.com/Abraxas-365/relay/engine"
)

const Channel = "email"

const maxBodySize = 32 * 1024

// Adapter normaliza correos entrantes, ya sea un MIME crudo (`raw`) o un
// payload ya aplanado por el proveedor (`subject`/`body`).
type Adapter struct{}

func New() *Adapter { return &Adapter{} }

var _ engine.ChannelAdapter = (*Adapter)(nil)

func (a *Adapter) GetChannel() string { return Channel }

func (a *Adapter) Normalize(ctx context.Context, messageType string, payload map[string]any) (engine.NormalizedEvent, error) {
	if raw, ok := payload["raw"].(string); ok && raw != "" {
		return a.normalizeRaw(raw)
	}

	subject, _ := payload["subject"].(string)
	body, _ := payload["body"].(string)
	return engine.NormalizedEvent{UserReply: preferSubject(subject, body)}, nil
}

// normalizeRaw parsea un mensaje RFC822 completo y prefiere el subject;
// si falta, cae al primer cuerpo text/plain hallado.
func (a *Adapter) normalizeRaw(raw string) (engine.NormalizedEvent, error) {
	mailReader, err := mail.CreateReader(strings.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return engine.NormalizedEvent{}, engine.ErrChannelDispatch().WithDetail("reason", "failed to parse raw email")
	}
	if mailReader == nil {
		return engine.NormalizedEvent{}, engine.ErrChannelDispatch().WithDetail("reason", "empty email reader")
	}

	subject, _ := mailReader.Header.Subject()

	var textBody string
	for {
		part, err := mailReader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			break
		}
		if part == nil {
			continue
		}
		inline, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := inline.ContentType()
		if contentType != "text/plain" || textBody != "" {
			continue
		}
		body, err := io.ReadAll(io.LimitReader(part.Body, maxBodySize))
		if err != nil {
			continue
		}
		textBody = strings.TrimSpace(string(body))
	}

	return engine.NormalizedEvent{UserReply: preferSubject(subject, textBody)}, nil
}

func preferSubject(subject, body string) string {
	if strings.TrimSpace(subject) != "" {
		return subject
	}
	return body
}
