// Webhook HTTP handlers.
//
// This file exposes the two endpoints the messaging provider calls:
//   - GET  /webhook  (subscription verification handshake)
//   - POST /webhook  (message delivery)
//
// Both follow the provider's contract rather than the API envelope: the GET
// echoes the raw challenge string, and the POST answers with a minimal
// {"success": bool} body. The POST returns 200 whenever the payload shape was
// accepted, regardless of per-message outcomes; per-message failures are
// logged and counted inside the pipeline, and a non-200 would only trigger
// provider redelivery of a batch we already worked through.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kasunw/whatsapp-relay/internal/http/middleware"
	"github.com/kasunw/whatsapp-relay/internal/services"
	"github.com/kasunw/whatsapp-relay/internal/whatsapp"
)

// WebhookProcessor consumes a validated webhook delivery.
type WebhookProcessor interface {
	ProcessPayload(ctx context.Context, payload *whatsapp.WebhookPayload) error
}

// webhookAck is the minimal acknowledgement body for POST /webhook.
type webhookAck struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// VerifyWebhook implements the GET handshake. The provider sends
// hub.mode=subscribe, hub.verify_token, and hub.challenge; a token match is
// answered with the raw challenge so the subscription is confirmed.
func VerifyWebhook(verifyToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		mode := c.Query("hub.mode")
		token := c.Query("hub.verify_token")
		challenge := c.Query("hub.challenge")

		if mode == "subscribe" && verifyToken != "" && token == verifyToken {
			middleware.LoggerFrom(c).Info().Msg("webhook verified")
			c.String(http.StatusOK, challenge)
			return
		}

		middleware.LoggerFrom(c).Warn().
			Str("mode", mode).
			Msg("webhook verification rejected")
		c.String(http.StatusForbidden, "Verification failed")
	}
}

// ReceiveWebhook implements the POST delivery endpoint.
func ReceiveWebhook(proc WebhookProcessor) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload whatsapp.WebhookPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, webhookAck{
				Success: false,
				Error:   "invalid payload",
			})
			return
		}

		if err := proc.ProcessPayload(c.Request.Context(), &payload); err != nil {
			if errors.Is(err, services.ErrInvalidPayload) {
				c.AbortWithStatusJSON(http.StatusBadRequest, webhookAck{
					Success: false,
					Error:   "invalid payload",
				})
				return
			}
			middleware.LoggerFrom(c).Error().Err(err).Msg("webhook processing failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, webhookAck{
				Success: false,
				Error:   "internal error",
			})
			return
		}

		ok(c, http.StatusOK, webhookAck{Success: true})
	}
}
