// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Exchange
// model, which is both the durable request/reply record and the dedup key
// space (primary key = provider message id).
//
// Error semantics:
//   - When an exchange is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - CreateExchange returns ErrDuplicate when the primary key already
//     exists; this is the duplicate-detection boundary of last resort when
//     two concurrent lookups both missed.
//   - On other DB errors the raw gorm error is propagated.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/kasunw/whatsapp-relay/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for consistency across layers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate indicates that an Exchange with the given id already exists.
var ErrDuplicate = errors.New("duplicate exchange")

// GetExchange fetches an exchange by its provider message id, including
// attached images ordered by position.
func GetExchange(ctx context.Context, db *gorm.DB, id string) (*domain.Exchange, error) {
	var ex domain.Exchange
	err := db.WithContext(ctx).
		Preload("Images", func(q *gorm.DB) *gorm.DB { return q.Order("position ASC") }).
		Where("id = ?", id).
		First(&ex).Error
	if err != nil {
		return nil, err
	}
	return &ex, nil
}

// CreateExchange inserts one Exchange row (plus its image rows) in a single
// transaction. If the id already exists the unique constraint fails the
// insert and ErrDuplicate is returned; the row is never overwritten.
func CreateExchange(ctx context.Context, db *gorm.DB, ex *domain.Exchange) error {
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now().UTC()
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(ex).Error
	})
	if err != nil {
		// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// ListRecentBySender returns the most recent exchanges for a sender, newest
// first (CreatedAt DESC, ID DESC for determinism), up to limit.
func ListRecentBySender(ctx context.Context, db *gorm.DB, sender string, limit int) ([]domain.Exchange, error) {
	var out []domain.Exchange
	q := db.WithContext(ctx).
		Where("sender = ?", sender).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// CountExchanges uses a raw COUNT so a missing table surfaces as an error.
func CountExchanges(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw("SELECT COUNT(*) FROM exchanges").Scan(&total).Error
	return total, err
}

// ListExchangesPage returns a paginated slice of exchanges across all
// senders, newest first, with images preloaded in position order.
func ListExchangesPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Exchange, error) {
	var out []domain.Exchange
	err := db.WithContext(ctx).
		Preload("Images", func(q *gorm.DB) *gorm.DB { return q.Order("position ASC") }).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
