// Package domain defines the persistence models and core value types of the
// relay. Persisted types are mapped with GORM; the remaining types are
// ephemeral and only live for the duration of one message pipeline.
package domain

import "time"

// Role values for conversation entries.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Exchange is the durable unit of the system: one inbound request and the
// reply generated for it. Its primary key is the provider-assigned message
// id, which doubles as the deduplication uniqueness constraint: at most one
// Exchange can ever exist per webhook message id.
//
// Rows are created exactly once by the store gateway and never mutated or
// deleted.
type Exchange struct {
	ID          string          `json:"id"           gorm:"type:varchar(128);primaryKey"`
	Sender      string          `json:"sender"       gorm:"type:varchar(32);not null;index:idx_sender_exchanges,priority:1"`
	RequestText string          `json:"request_text" gorm:"type:text;not null"`
	ReplyText   string          `json:"reply_text"   gorm:"type:text;not null"`
	CreatedAt   time.Time       `json:"created_at"   gorm:"index:idx_sender_exchanges,priority:2"`
	Images      []ExchangeImage `json:"images,omitempty" gorm:"foreignKey:ExchangeID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Exchange.
func (Exchange) TableName() string { return "exchanges" }

// ExchangeImage is one image attached to a reply, kept in dispatch order.
type ExchangeImage struct {
	ID         uint   `json:"-"        gorm:"primaryKey;autoIncrement"`
	ExchangeID string `json:"-"        gorm:"type:varchar(128);not null;index"`
	Position   int    `json:"position" gorm:"not null"`
	URL        string `json:"url"      gorm:"type:text;not null"`
	Caption    string `json:"caption"  gorm:"type:text"`
}

// TableName returns the database table name for ExchangeImage.
func (ExchangeImage) TableName() string { return "exchange_images" }

// InboundMessage is one webhook-delivered text message after validation and
// normalization. It is never persisted; only the derived Exchange is.
type InboundMessage struct {
	ID         string
	Sender     string
	Text       string
	ReceivedAt time.Time
}

// ConversationEntry is a single turn of dialogue passed to the completion
// service. Ordering is significant: oldest first.
type ConversationEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ReplyImage is one image extracted from a generated reply.
type ReplyImage struct {
	URL     string `json:"url"`
	Caption string `json:"caption"`
}

// Reply is the output of the completion service: the reply text with any
// markdown-linked images already extracted from it.
type Reply struct {
	Text   string       `json:"text"`
	Images []ReplyImage `json:"images,omitempty"`
}
