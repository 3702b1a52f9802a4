// Package services implements the per-message relay pipeline: webhook
// payload processing, per-sender serialization, deduplication, rate
// limiting, history assembly, and reply dispatch with retry.
//
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers. Mapping to
// HTTP statuses happens at the handler layer.
package services

import "errors"

var (
	// ErrInvalidPayload indicates a webhook delivery whose shape is not a
	// WhatsApp Business account event. No side effects occur for such
	// payloads.
	ErrInvalidPayload = errors.New("invalid webhook payload")

	// ErrReplyNotDelivered is returned when the outbound send exhausted all
	// retry attempts.
	ErrReplyNotDelivered = errors.New("reply not delivered")
)
