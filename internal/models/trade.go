package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DefaultCurrency is stamped on trades created without a currency code.
const DefaultCurrency = "USD"

// Trade represents one logged trade in a user's journal.
type Trade struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID string    `gorm:"index;not null" json:"user_id"`

	Ticker         string         `gorm:"index" json:"ticker"`
	InstrumentType InstrumentType `gorm:"index" json:"instrument_type"`
	TradeType      string         `json:"trade_type"`
	Strategy       string         `json:"strategy,omitempty"`

	EntryDate time.Time  `gorm:"index;not null" json:"entry_date"`
	ExitDate  *time.Time `json:"exit_date,omitempty"`

	EntryPrice   decimal.Decimal     `gorm:"type:numeric;not null" json:"entry_price"`
	ExitPrice    decimal.NullDecimal `gorm:"type:numeric" json:"exit_price"`
	PositionSize decimal.Decimal     `gorm:"type:numeric;not null" json:"position_size"`
	StopLoss     decimal.NullDecimal `gorm:"type:numeric" json:"stop_loss"`
	Target       decimal.NullDecimal `gorm:"type:numeric" json:"target"`
	Fees         decimal.NullDecimal `gorm:"type:numeric" json:"fees"`
	Currency     string              `json:"currency"`

	// ProfitLoss is null for open trades or trades the user has not settled.
	ProfitLoss decimal.NullDecimal `gorm:"type:numeric" json:"profit_loss"`

	Rationale        string `json:"rationale,omitempty"`
	MarketConditions string `json:"market_conditions,omitempty"`
	EmotionBefore    string `json:"emotion_before,omitempty"`
	Reflection       string `json:"reflection,omitempty"`
	ScreenshotURL    string `json:"screenshot_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns an id if the caller did not.
func (t *Trade) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// BeforeSave keeps stored timestamps in UTC so range filters compare consistently across drivers.
func (t *Trade) BeforeSave(tx *gorm.DB) error {
	t.EntryDate = t.EntryDate.UTC()
	if t.ExitDate != nil {
		exit := t.ExitDate.UTC()
		t.ExitDate = &exit
	}
	return nil
}

// ProfitLossValue is the P/L used for arithmetic: null counts as zero.
func (t Trade) ProfitLossValue() decimal.Decimal {
	if !t.ProfitLoss.Valid {
		return decimal.Zero
	}
	return t.ProfitLoss.Decimal
}

// ProfitLossDisplay is the P/L used for row-level display: null renders as "-".
func (t Trade) ProfitLossDisplay() string {
	if !t.ProfitLoss.Valid {
		return "-"
	}
	return t.ProfitLoss.Decimal.StringFixed(2)
}

// FeesValue is the fee amount used for aggregation: null counts as zero.
func (t Trade) FeesValue() decimal.Decimal {
	if !t.Fees.Valid {
		return decimal.Zero
	}
	return t.Fees.Decimal
}

// IsOpen reports whether the trade has no exit yet.
func (t Trade) IsOpen() bool {
	return t.ExitDate == nil
}

// ErrInvalidTrade wraps every validation failure returned by Validate.
var ErrInvalidTrade = errors.New("invalid trade")

// Normalize trims free-text identifiers and fills defaults before validation.
func (t *Trade) Normalize() {
	t.Ticker = strings.ToUpper(strings.TrimSpace(t.Ticker))
	t.TradeType = strings.TrimSpace(t.TradeType)
	t.Strategy = strings.TrimSpace(t.Strategy)
	t.Currency = strings.ToUpper(strings.TrimSpace(t.Currency))
	if t.Currency == "" {
		t.Currency = DefaultCurrency
	}
}

// Validate enforces the fields the write path requires.
func (t *Trade) Validate() error {
	if t.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidTrade)
	}
	if t.Ticker == "" {
		return fmt.Errorf("%w: ticker is required", ErrInvalidTrade)
	}
	if t.EntryDate.IsZero() {
		return fmt.Errorf("%w: entry date is required", ErrInvalidTrade)
	}
	if t.ExitDate != nil && t.ExitDate.Before(t.EntryDate) {
		return fmt.Errorf("%w: exit date precedes entry date", ErrInvalidTrade)
	}
	if !t.EntryPrice.IsPositive() {
		return fmt.Errorf("%w: entry price must be positive", ErrInvalidTrade)
	}
	if !t.PositionSize.IsPositive() {
		return fmt.Errorf("%w: position size must be positive", ErrInvalidTrade)
	}
	if t.Fees.Valid && t.Fees.Decimal.IsNegative() {
		return fmt.Errorf("%w: fees cannot be negative", ErrInvalidTrade)
	}
	if !t.InstrumentType.Valid() {
		return fmt.Errorf("%w: unknown instrument type %q", ErrInvalidTrade, t.InstrumentType)
	}
	if !t.InstrumentType.Allows(t.TradeType) {
		return fmt.Errorf("%w: trade type %q not allowed for %s", ErrInvalidTrade, t.TradeType, t.InstrumentType)
	}
	return nil
}
