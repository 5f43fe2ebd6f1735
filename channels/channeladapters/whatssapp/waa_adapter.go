package whatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Abraxas-365/relay/channels"
	"github.com/Abraxas-365/relay/pkg/kernel"
	"github.com/go-redis/redis/v8"
)

// WhatsAppAdapter decodifica y desbuferiza webhooks entrantes de WhatsApp
// Business API. El envío saliente no pasa por aquí: va por
// engine.ChannelDispatcher contra el channel-delivery service (spec §8), así
// que este adaptador solo necesita el lado de lectura del contrato
// channels.ChannelAdapter.
type WhatsAppAdapter struct {
	config        channels.WhatsAppConfig
	bufferService *BufferService
}

// NewWhatsAppAdapter creates a new WhatsApp adapter
func NewWhatsAppAdapter(config channels.WhatsAppConfig, redisClient *redis.Client) *WhatsAppAdapter {
	return &WhatsAppAdapter{
		config:        config,
		bufferService: NewBufferService(redisClient, config),
	}
}

// ProcessWebhook processes incoming WhatsApp webhooks WITH BUFFERING
func (a *WhatsAppAdapter) ProcessWebhook(
	ctx context.Context,
	payload []byte,
	headers map[string]string,
) (*channels.IncomingMessage, error) {
	// Verify signature
	if err := a.verifySignature(payload, headers); err != nil {
		return nil, err
	}

	// Parse webhook
	var webhook WhatsAppWebhook
	if err := json.Unmarshal(payload, &webhook); err != nil {
		return nil, fmt.Errorf("failed to parse webhook: %w", err)
	}

	// Extract message from webhook
	incomingMsg, err := a.extractIncomingMessage(webhook)
	if err != nil {
		return nil, err
	}

	if incomingMsg == nil {
		return nil, nil // No message (status update, etc.)
	}

	// Add to buffer
	processedMsg, shouldProcess, err := a.bufferService.AddMessage(
		ctx,
		incomingMsg.ChannelID,
		*incomingMsg,
	)

	if err != nil {
		return nil, fmt.Errorf("buffer error: %w", err)
	}

	// If shouldProcess is false, message is buffered - return nil
	if !shouldProcess {
		return nil, nil
	}

	// Message should be processed immediately
	return processedMsg, nil
}

// verifySignature verifies WhatsApp webhook signature
func (a *WhatsAppAdapter) verifySignature(payload []byte, headers map[string]string) error {
	if a.config.AppSecret == "" {
		return nil // Skip verification if no secret configured
	}

	signature := headers["X-Hub-Signature-256"]
	if signature == "" {
		signature = headers["x-hub-signature-256"]
	}

	if signature == "" {
		return channels.ErrInvalidWebhookSignature()
	}

	// Remove "sha256=" prefix
	signature = strings.TrimPrefix(signature, "sha256=")

	// Calculate expected signature
	mac := hmac.New(sha256.New, []byte(a.config.AppSecret))
	mac.Write(payload)
	expectedSignature := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expectedSignature)) {
		return channels.ErrInvalidWebhookSignature()
	}

	return nil
}

// extractIncomingMessage extracts message from webhook
func (a *WhatsAppAdapter) extractIncomingMessage(webhook WhatsAppWebhook) (*channels.IncomingMessage, error) {
	for _, entry := range webhook.Entry {
		for _, change := range entry.Changes {
			if change.Value.MessagingProduct != "whatsapp" {
				continue
			}

			for _, msg := range change.Value.Messages {
				rawPayload := map[string]any{}
				if b, err := json.Marshal(msg); err == nil {
					_ = json.Unmarshal(b, &rawPayload)
				}
				return &channels.IncomingMessage{
					MessageID: msg.ID,
					ChannelID: kernel.NewChannelID(a.config.PhoneNumberID),
					SenderID:  msg.From,
					Content: channels.MessageContent{
						Type: msg.Type,
						Text: a.extractText(msg),
					},
					Timestamp: msg.Timestamp,
					Metadata: map[string]any{
						"whatsapp_message_id": msg.ID,
					},
					RawPayload: rawPayload,
				}, nil
			}
		}
	}

	return nil, nil // No message found
}

// extractText extracts text from message
func (a *WhatsAppAdapter) extractText(msg WebhookMessage) string {
	if msg.Text != nil {
		return msg.Text.Body
	}
	if msg.Image != nil && msg.Image.Caption != "" {
		return msg.Image.Caption
	}
	return ""
}

// WhatsApp webhook structures
type WhatsAppWebhook struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	ID      string          `json:"id"`
	Changes []WebhookChange `json:"changes"`
}

type WebhookChange struct {
	Value WebhookValue `json:"value"`
	Field string       `json:"field"`
}

type WebhookValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Metadata         WebhookMetadata  `json:"metadata"`
	Messages         []WebhookMessage `json:"messages"`
	Statuses         []WebhookStatus  `json:"statuses"`
}

type WebhookMetadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type WebhookMessage struct {
	ID        kernel.MessageID `json:"id"`
	From      string           `json:"from"`
	Timestamp int64            `json:"timestamp,string"`
	Type      string           `json:"type"`
	Text      *WebhookText     `json:"text,omitempty"`
	Image     *WebhookMedia    `json:"image,omitempty"`
	Document  *WebhookMedia    `json:"document,omitempty"`
	Audio     *WebhookMedia    `json:"audio,omitempty"`
	Video     *WebhookMedia    `json:"video,omitempty"`
}

type WebhookText struct {
	Body string `json:"body"`
}

type WebhookMedia struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	SHA256   string `json:"sha256"`
	Caption  string `json:"caption,omitempty"`
}

type WebhookStatus struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Timestamp   int64  `json:"timestamp,string"`
	RecipientID string `json:"recipient_id"`
}
