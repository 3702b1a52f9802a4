// This file maintains the bounded per-sender conversation context that is
// passed to the completion service. A warm in-memory cache is authoritative;
// a cold cache is populated from the persisted Exchange store. The cache is
// best-effort: loss on restart is acceptable because the store is
// the source of truth, and a history fetch failure degrades to a context of
// just the new user turn rather than failing the pipeline.

package services

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/kasunw/whatsapp-relay/internal/domain"
	"github.com/kasunw/whatsapp-relay/internal/repo"
)

// HistoryManager owns the per-sender conversation caches. MaxContext caps
// the number of turns kept per sender; oldest turns are evicted first.
//
// Safe for concurrent use, though callers in the relay pipeline already hold
// the per-sender lock when touching a given sender's history.
type HistoryManager struct {
	DB         *gorm.DB
	MaxContext int

	mu    sync.Mutex
	cache map[string][]domain.ConversationEntry
}

// NewHistoryManager constructs a HistoryManager over db keeping at most
// maxContext turns per sender.
func NewHistoryManager(db *gorm.DB, maxContext int) *HistoryManager {
	return &HistoryManager{
		DB:         db,
		MaxContext: maxContext,
		cache:      make(map[string][]domain.ConversationEntry),
	}
}

// BuildContext returns the ordered conversation context for sender, ending
// with the new user turn.
//
// A cache that has reached MaxContext turns is treated as authoritative and
// returned without touching storage. Otherwise the most recent persisted
// exchanges are fetched and expanded (one user turn per exchange plus one
// assistant turn when a reply exists, oldest first) and the cache is
// replaced with the expanded list. On a fetch failure the context degrades
// to the new turn alone.
func (h *HistoryManager) BuildContext(ctx context.Context, sender, newText string) []domain.ConversationEntry {
	newTurn := domain.ConversationEntry{Role: domain.RoleUser, Content: newText}

	h.mu.Lock()
	cached := h.cache[sender]
	if len(cached) >= h.MaxContext {
		out := append(append([]domain.ConversationEntry{}, cached...), newTurn)
		h.mu.Unlock()
		return out
	}
	h.mu.Unlock()

	exchanges, err := repo.ListRecentBySender(ctx, h.DB, sender, h.MaxContext)
	if err != nil {
		log.Error().Err(err).Str("sender", sender).Msg("history fetch failed, degrading to single-turn context")
		return []domain.ConversationEntry{newTurn}
	}

	// Newest-first from the store; expand in chronological order.
	history := make([]domain.ConversationEntry, 0, 2*len(exchanges))
	for i := len(exchanges) - 1; i >= 0; i-- {
		ex := exchanges[i]
		history = append(history, domain.ConversationEntry{Role: domain.RoleUser, Content: ex.RequestText})
		if ex.ReplyText != "" {
			history = append(history, domain.ConversationEntry{Role: domain.RoleAssistant, Content: ex.ReplyText})
		}
	}

	h.mu.Lock()
	h.cache[sender] = history
	h.mu.Unlock()

	return append(append([]domain.ConversationEntry{}, history...), newTurn)
}

// UpdateCache appends the completed user/assistant turn pair to the sender's
// cache, truncating to MaxContext turns from the tail (oldest evicted
// first). Call only after the reply was actually dispatched, so the cache
// never reflects an exchange that was never delivered.
func (h *HistoryManager) UpdateCache(sender, text, replyText string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	history := append(h.cache[sender],
		domain.ConversationEntry{Role: domain.RoleUser, Content: text},
		domain.ConversationEntry{Role: domain.RoleAssistant, Content: replyText},
	)
	if len(history) > h.MaxContext {
		history = history[len(history)-h.MaxContext:]
	}
	h.cache[sender] = history
}

// CachedLen reports the number of cached turns for sender.
func (h *HistoryManager) CachedLen(sender string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.cache[sender])
}
