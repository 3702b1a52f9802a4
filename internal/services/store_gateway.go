// Dedup lookups and transactional persistence for the relay pipeline. The
// dedup contract is fail-closed: if the lookup itself errors, the message is
// treated as a duplicate so that an ambiguous state can never cause a second
// completion call or a double reply. At-most-once reply delivery wins over
// availability here.

package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/kasunw/whatsapp-relay/internal/config"
	"github.com/kasunw/whatsapp-relay/internal/domain"
	"github.com/kasunw/whatsapp-relay/internal/repo"
)

// StoreGateway wraps the Exchange repository with the pipeline's dedup and
// persistence policies.
type StoreGateway struct {
	DB    *gorm.DB
	Relay config.RelayConfig
}

// IsDuplicate reports whether an Exchange with the given message id already
// exists. On a lookup failure it returns true (fail-closed).
func (g *StoreGateway) IsDuplicate(ctx context.Context, id string) bool {
	_, err := repo.GetExchange(ctx, g.DB, id)
	if err == nil {
		return true
	}
	if errors.Is(err, repo.ErrNotFound) {
		return false
	}
	log.Warn().Err(err).Str("message_id", id).Msg("duplicate check failed, assuming duplicate")
	return true
}

// Store persists the completed exchange in one transaction bounded by the
// configured timeout. Reply images are stored in dispatch order. The error
// (including repo.ErrDuplicate when a concurrent pipeline won the insert
// race) propagates to the caller, which must skip the send step.
func (g *StoreGateway) Store(ctx context.Context, msg domain.InboundMessage, reply *domain.Reply) error {
	ctx, cancel := context.WithTimeout(ctx, g.Relay.TxTimeout)
	defer cancel()

	ex := &domain.Exchange{
		ID:          msg.ID,
		Sender:      msg.Sender,
		RequestText: msg.Text,
		ReplyText:   reply.Text,
	}
	for i, img := range reply.Images {
		ex.Images = append(ex.Images, domain.ExchangeImage{
			Position: i,
			URL:      img.URL,
			Caption:  img.Caption,
		})
	}

	if err := repo.CreateExchange(ctx, g.DB, ex); err != nil {
		if !errors.Is(err, repo.ErrDuplicate) {
			log.Error().Err(err).Str("message_id", msg.ID).Msg("store transaction failed")
		}
		return err
	}
	return nil
}
