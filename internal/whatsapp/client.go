package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kasunw/whatsapp-relay/internal/config"
)

// outboundMessage is the Graph API request body for
// POST /<version>/<phone-number-id>/messages.
type outboundMessage struct {
	MessagingProduct string         `json:"messaging_product"`
	RecipientType    string         `json:"recipient_type"`
	To               string         `json:"to"`
	Type             string         `json:"type"`
	Text             *outboundText  `json:"text,omitempty"`
	Image            *outboundImage `json:"image,omitempty"`
}

type outboundText struct {
	Body string `json:"body"`
}

type outboundImage struct {
	Link    string `json:"link"`
	Caption string `json:"caption,omitempty"`
}

// sendResponse is the minimal Graph API success shape; only message ids are
// of interest for logging.
type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("whatsapp: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// Client sends messages through the WhatsApp Cloud API.
type Client struct {
	baseURL       string
	apiVersion    string
	phoneNumberID string
	accessToken   string
	httpClient    *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the Graph API base URL (used by tests).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/") }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Cloud API client from configuration.
func NewClient(cfg config.WhatsAppConfig, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.PhoneNumberID) == "" {
		return nil, errors.New("whatsapp: phone number id must not be empty")
	}
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, errors.New("whatsapp: access token must not be empty")
	}
	c := &Client{
		baseURL:       "https://graph.facebook.com",
		apiVersion:    cfg.APIVersion,
		phoneNumberID: cfg.PhoneNumberID,
		accessToken:   cfg.AccessToken,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
	}
	if c.apiVersion == "" {
		c.apiVersion = "v22.0"
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SendText delivers one text message to the given phone number.
func (c *Client) SendText(ctx context.Context, to, text string) error {
	return c.send(ctx, outboundMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             &outboundText{Body: text},
	})
}

// SendImage delivers one image message referenced by URL, with an optional
// caption.
func (c *Client) SendImage(ctx context.Context, to, url, caption string) error {
	return c.send(ctx, outboundMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "image",
		Image:            &outboundImage{Link: url, Caption: caption},
	})
}

func (c *Client) messagesURL() string {
	return fmt.Sprintf("%s/%s/%s/messages", c.baseURL, c.apiVersion, c.phoneNumberID)
}

func (c *Client) send(ctx context.Context, msg outboundMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("whatsapp: marshal request: %w", err)
	}

	url := c.messagesURL()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("whatsapp: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return &HTTPStatusError{StatusCode: res.StatusCode, URL: url, Body: string(buf)}
	}

	var payload sendResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<20)).Decode(&payload); err == nil && len(payload.Messages) > 0 {
		log.Debug().Str("to", msg.To).Str("type", msg.Type).Str("provider_id", payload.Messages[0].ID).Msg("message sent")
	}
	return nil
}
