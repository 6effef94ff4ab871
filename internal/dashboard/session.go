// Package dashboard runs live dashboard sessions where the user can switch timeframes
// while earlier computations are still in flight.
package dashboard

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"tradertrackr/internal/analytics"
	"tradertrackr/internal/observability"
)

// Computer produces a dashboard for one user and timeframe.
type Computer interface {
	Dashboard(ctx context.Context, userID string, tf analytics.Timeframe) (*analytics.Dashboard, error)
}

var _ Computer = (*analytics.Engine)(nil)

// State is what the session publishes to the client.
type State struct {
	Generation uint64               `json:"generation"`
	Timeframe  analytics.Timeframe  `json:"timeframe"`
	Loading    bool                 `json:"loading"`
	Dashboard  *analytics.Dashboard `json:"dashboard,omitempty"`
	Error      string               `json:"error,omitempty"`
}

// Session owns the latest timeframe selection of one connected user.
// Only the result of the most recent selection is ever published.
type Session struct {
	computer Computer
	userID   string
	publish  func(State)
	logger   *zap.Logger

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	closed     bool
	wg         sync.WaitGroup
}

// NewSession creates a session. publish is never called concurrently.
func NewSession(computer Computer, userID string, publish func(State), logger *zap.Logger) *Session {
	return &Session{
		computer: computer,
		userID:   userID,
		publish:  publish,
		logger:   logger.Named("dashboard").With(zap.String("user_id", userID)),
	}
}

// Select starts computing the dashboard for tf, superseding any in-flight selection.
// It returns the generation assigned to the request.
func (s *Session) Select(ctx context.Context, tf analytics.Timeframe) uint64 {
	s.mu.Lock()
	if s.closed {
		gen := s.generation
		s.mu.Unlock()
		return gen
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	gen := s.generation
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.publish(State{Generation: gen, Timeframe: tf, Loading: true})
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(runCtx, gen, tf)
	return gen
}

func (s *Session) run(ctx context.Context, gen uint64, tf analytics.Timeframe) {
	defer s.wg.Done()

	d, err := s.computer.Dashboard(ctx, s.userID, tf)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation || s.closed {
		observability.RecordStaleResult()
		s.logger.Debug("Dropping stale dashboard result",
			zap.Uint64("generation", gen),
			zap.Uint64("latest", s.generation))
		return
	}

	state := State{Generation: gen, Timeframe: tf, Dashboard: d}
	if err != nil {
		s.logger.Error("Dashboard computation failed", zap.String("timeframe", string(tf)), zap.Error(err))
		state.Dashboard = analytics.EmptyDashboard(tf)
		state.Error = errorMessage(err)
	}
	s.publish(state)
}

// Generation returns the latest assigned generation.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Close cancels the in-flight computation and waits for it to finish. Nothing is published afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// Wait blocks until every started computation has returned.
func (s *Session) Wait() {
	s.wg.Wait()
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, analytics.ErrUnauthenticated):
		return "not authenticated"
	case errors.Is(err, context.DeadlineExceeded):
		return "loading trades timed out"
	default:
		return "failed to load trades"
	}
}
