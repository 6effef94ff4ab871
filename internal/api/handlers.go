package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tradertrackr/internal/analytics"
	"tradertrackr/internal/backend"
	"tradertrackr/internal/dashboard"
	"tradertrackr/internal/export"
	"tradertrackr/internal/models"
	"tradertrackr/internal/observability"
	"tradertrackr/internal/otp"
	"tradertrackr/internal/store"
)

// AnalyticsService computes dashboard statistics.
type AnalyticsService interface {
	Dashboard(ctx context.Context, userID string, tf analytics.Timeframe) (*analytics.Dashboard, error)
	Calendar(ctx context.Context, userID string, cursor analytics.MonthCursor) (*analytics.MonthGrid, error)
	Now() time.Time
	Location() *time.Location
}

// CodeService issues and verifies one-time codes.
type CodeService interface {
	Issue(ctx context.Context, userID, purpose string) error
	Verify(ctx context.Context, userID, purpose, code string) error
	TTL() time.Duration
}

var (
	_ AnalyticsService = (*analytics.Engine)(nil)
	_ CodeService      = (*otp.Service)(nil)
)

// Handler holds dependencies for the API endpoints.
type Handler struct {
	trades    store.TradeRepository
	analytics AnalyticsService
	codes     CodeService
	sessions  *dashboard.Handler
	weekStart time.Weekday
	log       *zap.Logger
}

// NewHandler creates a new Handler.
func NewHandler(trades store.TradeRepository, analytics AnalyticsService, codes CodeService, sessions *dashboard.Handler, weekStart time.Weekday, log *zap.Logger) *Handler {
	return &Handler{
		trades:    trades,
		analytics: analytics,
		codes:     codes,
		sessions:  sessions,
		weekStart: weekStart,
		log:       log.Named("api"),
	}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Instruments returns the instrument types and the trade types each allows.
func (h *Handler) Instruments(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"instrument_types": models.InstrumentTypes,
		"trade_types":      models.AllowedTradeTypes,
	})
}

// ListTrades returns the user's trades matching the query filters, newest first.
func (h *Handler) ListTrades(c *gin.Context) {
	filter, err := h.parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	trades, err := h.trades.List(c.Request.Context(), UserID(c), filter)
	if err != nil {
		h.respondError(c, "list trades", err)
		return
	}
	c.JSON(http.StatusOK, trades)
}

// GetTrade returns one trade.
func (h *Handler) GetTrade(c *gin.Context) {
	id, ok := h.tradeID(c)
	if !ok {
		return
	}

	trade, err := h.trades.Get(c.Request.Context(), UserID(c), id)
	if err != nil {
		h.respondError(c, "get trade", err)
		return
	}
	c.JSON(http.StatusOK, trade)
}

// CreateTrade logs a new trade for the user.
func (h *Handler) CreateTrade(c *gin.Context) {
	var trade models.Trade
	if err := c.ShouldBindJSON(&trade); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	trade.ID = uuid.Nil
	trade.UserID = UserID(c)

	if err := h.trades.Create(c.Request.Context(), &trade); err != nil {
		h.respondError(c, "create trade", err)
		return
	}
	h.log.Info("Trade created", zap.String("user_id", trade.UserID), zap.String("trade_id", trade.ID.String()))
	c.JSON(http.StatusCreated, trade)
}

// UpdateTrade replaces an existing trade.
func (h *Handler) UpdateTrade(c *gin.Context) {
	id, ok := h.tradeID(c)
	if !ok {
		return
	}

	var trade models.Trade
	if err := c.ShouldBindJSON(&trade); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	trade.ID = id
	trade.UserID = UserID(c)

	if err := h.trades.Update(c.Request.Context(), &trade); err != nil {
		h.respondError(c, "update trade", err)
		return
	}
	c.JSON(http.StatusOK, trade)
}

// DeleteTrade removes one trade.
func (h *Handler) DeleteTrade(c *gin.Context) {
	id, ok := h.tradeID(c)
	if !ok {
		return
	}

	if err := h.trades.Delete(c.Request.Context(), UserID(c), id); err != nil {
		h.respondError(c, "delete trade", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RequestClearCode issues a one-time code that authorizes deleting all trades.
func (h *Handler) RequestClearCode(c *gin.Context) {
	if err := h.codes.Issue(c.Request.Context(), UserID(c), otp.PurposeClearTrades); err != nil {
		h.respondError(c, "issue clear code", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"expires_in": int(h.codes.TTL().Seconds())})
}

type clearRequest struct {
	OTP string `json:"otp" binding:"required"`
}

// ClearTrades deletes every trade of the user after verifying a one-time code.
func (h *Handler) ClearTrades(c *gin.Context) {
	var req clearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "otp is required"})
		return
	}

	userID := UserID(c)
	if err := h.codes.Verify(c.Request.Context(), userID, otp.PurposeClearTrades, req.OTP); err != nil {
		h.respondError(c, "verify clear code", err)
		return
	}

	deleted, err := h.trades.DeleteAll(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, "clear trades", err)
		return
	}
	observability.RecordTradesCleared(deleted)
	h.log.Warn("All trades cleared", zap.String("user_id", userID), zap.Int64("deleted", deleted))
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// ExportTrades streams the user's filtered trades as CSV.
func (h *Handler) ExportTrades(c *gin.Context) {
	filter, err := h.parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	trades, err := h.trades.List(c.Request.Context(), UserID(c), filter)
	if err != nil {
		h.respondError(c, "export trades", err)
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(h.analytics.Now())))
	c.Status(http.StatusOK)
	if err := export.WriteTradesCSV(c.Writer, trades); err != nil {
		h.log.Error("Failed to write CSV export", zap.Error(err))
	}
}

type dashboardResponse struct {
	Dashboard *analytics.Dashboard `json:"dashboard"`
	Error     string               `json:"error,omitempty"`
}

// Analytics returns the dashboard for the requested timeframe.
// A failed fetch yields an empty dashboard with an error, never partial statistics.
func (h *Handler) Analytics(c *gin.Context) {
	tf := analytics.ParseTimeframe(c.Query("timeframe"))

	d, err := h.analytics.Dashboard(c.Request.Context(), UserID(c), tf)
	if err != nil {
		status, msg := h.classify("dashboard", err)
		c.JSON(status, dashboardResponse{Dashboard: analytics.EmptyDashboard(tf), Error: msg})
		return
	}
	c.JSON(http.StatusOK, dashboardResponse{Dashboard: d})
}

type calendarResponse struct {
	Month *analytics.MonthGrid   `json:"month"`
	Prev  analytics.MonthCursor `json:"prev"`
	Next  analytics.MonthCursor `json:"next"`
	Error string                `json:"error,omitempty"`
}

// Calendar returns the month grid for year and month, defaulting to the current month.
func (h *Handler) Calendar(c *gin.Context) {
	cursor, err := h.parseCursor(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp := calendarResponse{Prev: cursor.Prev(), Next: cursor.Next()}
	grid, err := h.analytics.Calendar(c.Request.Context(), UserID(c), cursor)
	if err != nil {
		status, msg := h.classify("calendar", err)
		empty := analytics.BuildMonthGrid(cursor, nil, h.weekStart, h.analytics.Location())
		resp.Month = &empty
		resp.Error = msg
		c.JSON(status, resp)
		return
	}
	resp.Month = grid
	c.JSON(http.StatusOK, resp)
}

// DashboardSocket upgrades to a live dashboard session.
func (h *Handler) DashboardSocket(c *gin.Context) {
	h.sessions.Serve(c.Writer, c.Request, UserID(c))
}

func (h *Handler) parseCursor(c *gin.Context) (analytics.MonthCursor, error) {
	current := analytics.CursorFor(h.analytics.Now())
	yearStr, monthStr := c.Query("year"), c.Query("month")
	if yearStr == "" && monthStr == "" {
		return current, nil
	}

	year, month := current.Year, int(current.Month)
	var err error
	if yearStr != "" {
		if year, err = strconv.Atoi(yearStr); err != nil {
			return analytics.MonthCursor{}, fmt.Errorf("invalid year %q", yearStr)
		}
	}
	if monthStr != "" {
		if month, err = strconv.Atoi(monthStr); err != nil {
			return analytics.MonthCursor{}, fmt.Errorf("invalid month %q", monthStr)
		}
	}
	return analytics.ParseCursor(year, month)
}

// parseFilter reads trade filters from the query string.
// "since" accepts RFC3339 or a date; "timeframe" is used when "since" is absent.
func (h *Handler) parseFilter(c *gin.Context) (models.TradeFilter, error) {
	filter := models.TradeFilter{
		InstrumentType:  models.InstrumentType(c.Query("instrument_type")),
		TradeType:       c.Query("trade_type"),
		Strategy:        c.Query("strategy"),
		ProfitLossSign:  models.ParsePnLSign(c.Query("pnl")),
		TickerSubstring: c.Query("ticker"),
	}

	if filter.InstrumentType != "" && !filter.InstrumentType.Valid() {
		return filter, fmt.Errorf("unknown instrument type %q", filter.InstrumentType)
	}
	if !models.ValidTickerSearch(filter.TickerSubstring) {
		return filter, fmt.Errorf("invalid ticker search %q", filter.TickerSubstring)
	}

	if since := c.Query("since"); since != "" {
		t, err := parseSince(since, h.analytics.Location())
		if err != nil {
			return filter, err
		}
		filter.Since = &t
	} else if tf := c.Query("timeframe"); tf != "" {
		filter.Since = analytics.ParseTimeframe(tf).Filter(h.analytics.Now()).Since
	}
	return filter, nil
}

func parseSince(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(analytics.DateKeyLayout, s, loc); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid since %q: use RFC3339 or YYYY-MM-DD", s)
}

func (h *Handler) tradeID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trade id"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) respondError(c *gin.Context, op string, err error) {
	status, msg := h.classify(op, err)
	c.JSON(status, gin.H{"error": msg})
}

// classify maps an error to an HTTP status and a client-safe message.
func (h *Handler) classify(op string, err error) (int, string) {
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "trade not found"
	case errors.Is(err, store.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, analytics.ErrUnauthenticated):
		return http.StatusUnauthorized, "not authenticated"
	case errors.Is(err, otp.ErrInvalidCode):
		return http.StatusForbidden, otp.ErrInvalidCode.Error()
	case errors.As(err, &apiErr):
		h.log.Error("Backend request failed", zap.String("op", op), zap.Error(err))
		return http.StatusBadGateway, "trade store unavailable"
	default:
		var dataErr *analytics.DataAccessError
		if errors.As(err, &dataErr) {
			h.log.Error("Failed to load trades", zap.String("op", op), zap.Error(err))
			return http.StatusBadGateway, "failed to load trades"
		}
		h.log.Error("Request failed", zap.String("op", op), zap.Error(err))
		return http.StatusInternalServerError, "internal error"
	}
}
