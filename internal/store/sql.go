package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tradertrackr/internal/models"
	"tradertrackr/internal/observability"
)

// SQLStore implements TradeRepository on top of gorm.
type SQLStore struct {
	db *gorm.DB
}

// Compile-time interface check.
var _ TradeRepository = (*SQLStore)(nil)

// NewSQLStore creates a new SQLStore.
func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

// List returns the user's trades matching the filter ordered by entry date descending.
func (s *SQLStore) List(ctx context.Context, userID string, filter models.TradeFilter) ([]models.Trade, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)

	if filter.Since != nil {
		q = q.Where("entry_date >= ?", filter.Since.UTC())
	}
	if filter.InstrumentType != "" {
		q = q.Where("instrument_type = ?", filter.InstrumentType)
	}
	if filter.TradeType != "" {
		q = q.Where("trade_type = ?", filter.TradeType)
	}
	if filter.Strategy != "" {
		q = q.Where("strategy = ?", filter.Strategy)
	}
	if filter.TickerSubstring != "" {
		q = q.Where("LOWER(ticker) LIKE ?", "%"+strings.ToLower(filter.TickerSubstring)+"%")
	}
	switch filter.ProfitLossSign {
	case models.PnLProfit:
		q = q.Where("profit_loss > 0")
	case models.PnLLoss:
		q = q.Where("profit_loss < 0")
	case models.PnLBreakeven:
		q = q.Where("profit_loss = 0 OR profit_loss IS NULL")
	}

	start := time.Now()
	var trades []models.Trade
	err := q.Order("entry_date desc").Find(&trades).Error
	observability.RecordFetch("sql", "list", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	return trades, nil
}

// Get returns one of the user's trades.
func (s *SQLStore) Get(ctx context.Context, userID string, id uuid.UUID) (*models.Trade, error) {
	var trade models.Trade
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&trade).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get trade: %w", err)
	}
	return &trade, nil
}

// Create validates and inserts a new trade.
func (s *SQLStore) Create(ctx context.Context, trade *models.Trade) error {
	if err := Prepare(trade); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(trade).Error; err != nil {
		return fmt.Errorf("create trade: %w", err)
	}
	return nil
}

// Update validates and replaces an existing trade owned by trade.UserID.
func (s *SQLStore) Update(ctx context.Context, trade *models.Trade) error {
	if err := Prepare(trade); err != nil {
		return err
	}

	existing, err := s.Get(ctx, trade.UserID, trade.ID)
	if err != nil {
		return err
	}
	trade.CreatedAt = existing.CreatedAt

	if err := s.db.WithContext(ctx).Save(trade).Error; err != nil {
		return fmt.Errorf("update trade: %w", err)
	}
	return nil
}

// Delete removes one of the user's trades.
func (s *SQLStore) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Trade{})
	if res.Error != nil {
		return fmt.Errorf("delete trade: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAll removes every trade owned by the user.
func (s *SQLStore) DeleteAll(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, ErrInvalidInput
	}
	res := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Trade{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete all trades: %w", res.Error)
	}
	return res.RowsAffected, nil
}
