// Package store defines trade persistence and its SQL implementation.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"tradertrackr/internal/models"
)

var (
	// ErrNotFound is returned when a trade does not exist or belongs to another user.
	ErrNotFound = errors.New("trade not found")

	// ErrInvalidInput is returned when a trade fails validation.
	ErrInvalidInput = errors.New("invalid input")
)

// TradeRepository persists trade records. Every call is scoped to one owning user.
type TradeRepository interface {
	// List returns the user's trades matching the filter, newest entry first.
	List(ctx context.Context, userID string, filter models.TradeFilter) ([]models.Trade, error)
	Get(ctx context.Context, userID string, id uuid.UUID) (*models.Trade, error)
	Create(ctx context.Context, trade *models.Trade) error
	Update(ctx context.Context, trade *models.Trade) error
	Delete(ctx context.Context, userID string, id uuid.UUID) error
	// DeleteAll removes every trade the user owns and reports how many were removed.
	DeleteAll(ctx context.Context, userID string) (int64, error)
}

// Prepare normalizes and validates a trade for writing.
func Prepare(trade *models.Trade) error {
	if trade == nil {
		return ErrInvalidInput
	}
	trade.Normalize()
	if err := trade.Validate(); err != nil {
		return errors.Join(ErrInvalidInput, err)
	}
	return nil
}
