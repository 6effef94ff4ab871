// Package otp issues and verifies one-time codes that gate destructive actions.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"go.uber.org/zap"

	"tradertrackr/internal/cache"
	"tradertrackr/internal/config"
	"tradertrackr/internal/observability"
)

// PurposeClearTrades gates deleting every trade of a user.
const PurposeClearTrades = "clear-trades"

const (
	defaultLength = 6
	defaultTTL    = 10 * time.Minute
)

// ErrInvalidCode is returned for a wrong, expired or already used code.
var ErrInvalidCode = errors.New("invalid or expired code")

// Notifier delivers an issued code to the user.
type Notifier interface {
	Deliver(ctx context.Context, userID, purpose, code string, ttl time.Duration) error
}

// LogNotifier writes codes to the log. It is meant for development deployments without a mailer.
type LogNotifier struct {
	logger *zap.Logger
}

var _ Notifier = (*LogNotifier)(nil)

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.Named("otp")}
}

func (n *LogNotifier) Deliver(_ context.Context, userID, purpose, code string, ttl time.Duration) error {
	n.logger.Info("One-time code issued",
		zap.String("user_id", userID),
		zap.String("purpose", purpose),
		zap.String("code", code),
		zap.Duration("ttl", ttl))
	return nil
}

// Service issues codes into a cache and verifies them once.
type Service struct {
	store    cache.Store
	notifier Notifier
	logger   *zap.Logger
	length   int
	ttl      time.Duration
	random   io.Reader
}

// NewService creates a Service. Zero length or ttl fall back to defaults.
func NewService(store cache.Store, notifier Notifier, cfg config.OTP, logger *zap.Logger) *Service {
	s := &Service{
		store:    store,
		notifier: notifier,
		logger:   logger.Named("otp"),
		length:   cfg.Length,
		ttl:      cfg.TTL,
		random:   rand.Reader,
	}
	if s.length <= 0 {
		s.length = defaultLength
	}
	if s.ttl <= 0 {
		s.ttl = defaultTTL
	}
	return s
}

// TTL returns how long an issued code stays valid.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

func key(purpose, userID string) string {
	return fmt.Sprintf("otp:%s:%s", purpose, userID)
}

// Issue generates a fresh code for the user and purpose, replacing any earlier one, and delivers it.
func (s *Service) Issue(ctx context.Context, userID, purpose string) error {
	if userID == "" {
		return errors.New("user id is required")
	}

	code, err := s.generate()
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}
	if err := s.store.Set(ctx, key(purpose, userID), code, s.ttl); err != nil {
		return fmt.Errorf("failed to store code: %w", err)
	}
	if err := s.notifier.Deliver(ctx, userID, purpose, code, s.ttl); err != nil {
		_ = s.store.Delete(ctx, key(purpose, userID))
		return fmt.Errorf("failed to deliver code: %w", err)
	}

	observability.RecordOTPIssued()
	return nil
}

// Verify checks a code. Any verification attempt, right or wrong, consumes the stored code.
func (s *Service) Verify(ctx context.Context, userID, purpose, code string) error {
	k := key(purpose, userID)
	stored, err := s.store.Get(ctx, k)
	if errors.Is(err, cache.ErrMiss) {
		observability.RecordOTPVerification(false)
		return ErrInvalidCode
	}
	if err != nil {
		return fmt.Errorf("failed to load code: %w", err)
	}

	if err := s.store.Delete(ctx, k); err != nil {
		s.logger.Warn("Failed to consume one-time code", zap.String("user_id", userID), zap.Error(err))
	}

	ok := len(code) == len(stored) && subtle.ConstantTimeCompare([]byte(code), []byte(stored)) == 1
	observability.RecordOTPVerification(ok)
	if !ok {
		return ErrInvalidCode
	}
	return nil
}

func (s *Service) generate() (string, error) {
	digits := make([]byte, s.length)
	ten := big.NewInt(10)
	for i := range digits {
		n, err := rand.Int(s.random, ten)
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
