// Package whatsapp speaks the WhatsApp Business Cloud API: the inbound
// webhook payload shapes and the outbound Graph API message calls.
package whatsapp

// ObjectBusinessAccount is the only webhook object type this relay accepts.
const ObjectBusinessAccount = "whatsapp_business_account"

// FieldMessages marks the change entries that carry inbound messages.
const FieldMessages = "messages"

// MessageTypeText is the only inbound message type that is relayed.
const MessageTypeText = "text"

// WebhookPayload is the top-level body of a webhook delivery.
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

// WebhookEntry is one account-level entry in a delivery.
type WebhookEntry struct {
	ID      string          `json:"id,omitempty"`
	Changes []WebhookChange `json:"changes"`
}

// WebhookChange is one field change; only field == "messages" is relayed.
type WebhookChange struct {
	Field string             `json:"field"`
	Value WebhookChangeValue `json:"value"`
}

// WebhookChangeValue carries the messages of a change.
type WebhookChangeValue struct {
	MessagingProduct string           `json:"messaging_product,omitempty"`
	Messages         []WebhookMessage `json:"messages"`
}

// WebhookMessage is one provider-delivered message. Timestamp is Unix
// seconds as a decimal string and may be absent.
type WebhookMessage struct {
	ID        string       `json:"id"`
	From      string       `json:"from"`
	Type      string       `json:"type"`
	Text      *MessageText `json:"text,omitempty"`
	Timestamp string       `json:"timestamp,omitempty"`
}

// MessageText is the body of a text message.
type MessageText struct {
	Body string `json:"body"`
}
