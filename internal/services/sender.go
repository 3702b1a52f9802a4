// Outbound reply delivery with linear backoff. A reply that carries images
// sends each image first (in list order) and the text last; on any failure
// the whole payload is retried from the beginning after sleeping
// BaseDelay * attempt. There is no mid-list resumption, so an image that was
// already delivered can be sent again on a retry. This is a known
// limitation, kept because the provider call is not idempotent and tracking
// partial progress would only narrow, not close, the window.

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kasunw/whatsapp-relay/internal/domain"
)

// MessageSender is the outbound WhatsApp collaborator. Implemented by
// whatsapp.Client; faked in tests.
type MessageSender interface {
	SendText(ctx context.Context, to, text string) error
	SendImage(ctx context.Context, to, url, caption string) error
}

// RetryingSender delivers replies through Client with up to MaxRetries
// attempts per payload.
type RetryingSender struct {
	Client     MessageSender
	MaxRetries int
	// BaseDelay is multiplied by the attempt number to get the backoff
	// before the next attempt. Defaults to one second when zero.
	BaseDelay time.Duration

	// sleep is a seam for tests; defaults to time.Sleep.
	sleep func(time.Duration)
}

// NewRetryingSender constructs a sender over client with the given attempt cap.
func NewRetryingSender(client MessageSender, maxRetries int) *RetryingSender {
	return &RetryingSender{
		Client:     client,
		MaxRetries: maxRetries,
		BaseDelay:  time.Second,
		sleep:      time.Sleep,
	}
}

// Send delivers reply to recipient: images first in list order, then the
// text. Failed attempts back off linearly (BaseDelay * attempt) and restart
// from the first image. After MaxRetries attempts the last error propagates.
func (s *RetryingSender) Send(ctx context.Context, recipient string, reply *domain.Reply) error {
	base := s.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	sleep := s.sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	for attempt := 1; ; attempt++ {
		err := s.sendOnce(ctx, recipient, reply)
		if err == nil {
			return nil
		}
		if attempt >= s.MaxRetries {
			log.Error().Err(err).Str("recipient", recipient).Int("attempts", attempt).Msg("reply delivery failed")
			return fmt.Errorf("%w: %w", ErrReplyNotDelivered, err)
		}
		log.Warn().Err(err).Str("recipient", recipient).Int("attempt", attempt).Msg("send failed, retrying")
		sleep(base * time.Duration(attempt))
	}
}

func (s *RetryingSender) sendOnce(ctx context.Context, recipient string, reply *domain.Reply) error {
	for _, img := range reply.Images {
		if err := s.Client.SendImage(ctx, recipient, img.URL, img.Caption); err != nil {
			return err
		}
	}
	if reply.Text == "" {
		return nil
	}
	return s.Client.SendText(ctx, recipient, reply.Text)
}
