// The webhook orchestrator. One ProcessPayload call handles one webhook
// delivery: validate the payload shape, fan out over the entries' message
// batches, and drive the pipeline for every qualifying text message:
//
//	dedup check → rate check → history build → completion call →
//	store → send with retry → cache update
//
// Messages in a batch run concurrently (bounded by MaxConcurrency) but are
// serialized per sender. A failure in one message's pipeline never affects
// the others, and never fails the HTTP response: once the payload shape
// validated, the provider gets {success:true} regardless of per-message
// outcomes, so it does not redeliver a whole batch for one bad message.

package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/kasunw/whatsapp-relay/internal/domain"
	"github.com/kasunw/whatsapp-relay/internal/repo"
	"github.com/kasunw/whatsapp-relay/internal/whatsapp"
)

// Outcome labels for the pipeline counter.
const (
	outcomeProcessed   = "processed"
	outcomeDuplicate   = "duplicate"
	outcomeRateLimited = "rate_limited"
	outcomeFailed      = "failed"
)

var (
	// pipelineMsgs counts per-message pipeline completions by outcome.
	pipelineMsgs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_messages_total",
			Help: "Total number of relayed messages by pipeline outcome.",
		},
		[]string{"outcome"},
	)

	// pipelineLat records end-to-end pipeline duration for processed messages.
	pipelineLat = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relay_pipeline_duration_seconds",
			Help:    "Duration of the per-message relay pipeline in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms .. ~100s
		},
	)
)

func init() {
	prometheus.MustRegister(pipelineMsgs, pipelineLat)
}

// Completer is the language-model collaborator: an opaque
// generate(history) -> reply function. Implemented by ai.Client.
type Completer interface {
	Generate(ctx context.Context, history []domain.ConversationEntry) (*domain.Reply, error)
}

// Processor drives the relay pipeline for webhook deliveries.
type Processor struct {
	Locks     *SenderLocks
	Limiter   *SenderLimiter
	History   *HistoryManager
	Store     *StoreGateway
	Completer Completer
	Sender    *RetryingSender
	// Messenger sends the rate-limit warning; it is the raw (non-retrying)
	// outbound client, deliberately best-effort.
	Messenger MessageSender

	// MaxConcurrency caps concurrently running pipelines per delivery.
	// Values <= 0 default to 8.
	MaxConcurrency int
}

// ProcessPayload validates and processes one webhook delivery. It returns
// ErrInvalidPayload for non-business-account payloads (no side effects) and
// nil otherwise: per-message failures are logged and counted, not surfaced.
func (p *Processor) ProcessPayload(ctx context.Context, payload *whatsapp.WebhookPayload) error {
	if payload == nil || payload.Object != whatsapp.ObjectBusinessAccount {
		return ErrInvalidPayload
	}

	msgs := collectTextMessages(payload)
	if len(msgs) == 0 {
		return nil
	}

	limit := p.MaxConcurrency
	if limit <= 0 {
		limit = 8
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for _, m := range msgs {
		m := m
		g.Go(func() error {
			if err := p.processMessage(ctx, m); err != nil {
				pipelineMsgs.WithLabelValues(outcomeFailed).Inc()
				log.Error().Err(err).
					Str("message_id", m.ID).
					Str("sender", m.Sender).
					Msg("message pipeline failed")
			}
			// Per-message isolation: never fail the batch.
			return nil
		})
	}
	_ = g.Wait()
	return nil
}

// collectTextMessages flattens entry[].changes[].value.messages[] into
// normalized inbound messages, keeping only non-empty text messages.
func collectTextMessages(payload *whatsapp.WebhookPayload) []domain.InboundMessage {
	var out []domain.InboundMessage
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if change.Field != whatsapp.FieldMessages {
				continue
			}
			for _, wm := range change.Value.Messages {
				if wm.Type != whatsapp.MessageTypeText || wm.Text == nil {
					continue
				}
				text := strings.TrimSpace(wm.Text.Body)
				if text == "" {
					continue
				}
				out = append(out, domain.InboundMessage{
					ID:         wm.ID,
					Sender:     wm.From,
					Text:       text,
					ReceivedAt: parseTimestamp(wm.Timestamp),
				})
			}
		}
	}
	return out
}

// parseTimestamp converts the provider's Unix-seconds string, defaulting to
// arrival time when absent or malformed.
func parseTimestamp(ts string) time.Time {
	if ts != "" {
		if secs, err := strconv.ParseInt(ts, 10, 64); err == nil {
			return time.Unix(secs, 0).UTC()
		}
	}
	return time.Now().UTC()
}

// processMessage runs the full pipeline for one message, serialized with any
// other in-flight message from the same sender.
func (p *Processor) processMessage(ctx context.Context, msg domain.InboundMessage) error {
	tr := otel.Tracer("services/Processor")
	ctx, span := tr.Start(ctx, "processMessage",
		trace.WithAttributes(
			attribute.String("message.id", msg.ID),
			attribute.String("message.sender", msg.Sender),
		),
	)
	defer span.End()

	start := time.Now()

	return p.Locks.WithSenderLock(msg.Sender, func() error {
		if p.Store.IsDuplicate(ctx, msg.ID) {
			pipelineMsgs.WithLabelValues(outcomeDuplicate).Inc()
			log.Debug().Str("message_id", msg.ID).Msg("duplicate delivery skipped")
			return nil
		}

		if p.Limiter.IsLimited(msg.Sender) {
			pipelineMsgs.WithLabelValues(outcomeRateLimited).Inc()
			log.Warn().Str("sender", msg.Sender).Msg("rate limit exceeded")
			if err := p.Messenger.SendText(ctx, msg.Sender, RateLimitWarning); err != nil {
				log.Warn().Err(err).Str("sender", msg.Sender).Msg("rate limit warning not delivered")
			}
			return nil
		}

		history := p.History.BuildContext(ctx, msg.Sender, msg.Text)

		reply, err := p.Completer.Generate(ctx, history)
		if err != nil {
			return err
		}

		// Store before send: the Exchange row is the dedup record, so a
		// redelivery racing the send can never trigger a second reply.
		if err := p.Store.Store(ctx, msg, reply); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				// Two lookups missed; the other pipeline won the insert.
				pipelineMsgs.WithLabelValues(outcomeDuplicate).Inc()
				log.Debug().Str("message_id", msg.ID).Msg("lost insert race, skipping reply")
				return nil
			}
			return err
		}

		if err := p.Sender.Send(ctx, msg.Sender, reply); err != nil {
			return err
		}

		p.History.UpdateCache(msg.Sender, msg.Text, reply.Text)

		pipelineMsgs.WithLabelValues(outcomeProcessed).Inc()
		pipelineLat.Observe(time.Since(start).Seconds())
		return nil
	})
}
