// Manual outbound send handler.
//
// POST /api/v1/send pushes a text message to a recipient outside the inbound
// pipeline, for operator-initiated notifications. It goes through the same
// retrying sender as pipeline replies so delivery semantics match.
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kasunw/whatsapp-relay/internal/domain"
	"github.com/kasunw/whatsapp-relay/internal/http/middleware"
)

// ReplySender delivers a reply to a recipient with retries.
type ReplySender interface {
	Send(ctx context.Context, recipient string, reply *domain.Reply) error
}

// SendRequest is the JSON payload for a manual outbound message.
type SendRequest struct {
	// To is the recipient phone number in international digits-only form.
	To string `json:"to" binding:"required"`
	// Text is the message body.
	Text string `json:"text" binding:"required,min=1"`
}

// SendResponse acknowledges a delivered manual message.
type SendResponse struct {
	Delivered bool `json:"delivered"`
}

// SendMessage handles POST /api/v1/send.
func SendMessage(sender ReplySender) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "to and text are required")
			return
		}

		req.To = strings.TrimSpace(req.To)
		req.Text = strings.TrimSpace(req.Text)
		if req.To == "" || req.Text == "" {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "to and text are required")
			return
		}

		reply := &domain.Reply{Text: req.Text}
		if err := sender.Send(c.Request.Context(), req.To, reply); err != nil {
			middleware.LoggerFrom(c).Error().Err(err).Msg("manual send failed")
			fail(c, http.StatusBadGateway, ErrCodeSendFailed, "message could not be delivered")
			return
		}

		ok(c, http.StatusOK, SendResponse{Delivered: true})
	}
}
