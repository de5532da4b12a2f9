package api

import (
	"time"

	models "CoinSim/internal/domain/models"
	domrepo "CoinSim/internal/domain/repository"
	"CoinSim/internal/service/metrics"
	"CoinSim/internal/usecase"
	xhttp "CoinSim/pkg/http"
	xlogger "CoinSim/pkg/logger"

	"github.com/labstack/echo/v4"
)

// MarketsEchoHandler serves asset snapshots and candle history.
type MarketsEchoHandler struct {
	logger  *xlogger.Logger
	market  *usecase.MarketDataService
	candles *usecase.CandlesUseCase
}

func NewMarketsEchoHandler(logger *xlogger.Logger, market *usecase.MarketDataService, candles *usecase.CandlesUseCase) *MarketsEchoHandler {
	metrics.Register()
	return &MarketsEchoHandler{logger: logger, market: market, candles: candles}
}

func (h *MarketsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.GET("/markets", h.Markets)
	g.GET("/candles/:symbol", h.Candles)
}

func (h *MarketsEchoHandler) Markets(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("markets").Observe(time.Since(start).Seconds()) }()

	assets, err := h.market.Markets(c.Request().Context())
	if err != nil {
		metrics.APIErrors.WithLabelValues("markets").Inc()
		h.logger.Error("markets usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, assets)
}

func (h *MarketsEchoHandler) Candles(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("candles").Observe(time.Since(start).Seconds()) }()

	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := domrepo.NormalizeTimeframe(req.Timeframe)

	// Ranged queries hit the store directly; latest-N goes through the
	// feed read-through cache.
	if from, ok := xhttp.ParseTime(c.QueryParam("from")); ok {
		to := xhttp.ParseTimeDefault(c.QueryParam("to"), time.Now().UTC())
		if from.After(to) {
			return xhttp.BadRequestResponse(c, "from must be <= to")
		}
		res, err := h.candles.GetCandles(c.Request().Context(), usecase.CandleRange{
			Symbol:    req.Symbol,
			From:      from,
			To:        to,
			Timeframe: tf,
			Limit:     req.Limit,
		})
		if err != nil {
			metrics.APIErrors.WithLabelValues("candles").Inc()
			h.logger.Error("candles range error", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, err)
		}
		return xhttp.SuccessResponse(c, res)
	}

	candles, err := h.market.Candles(c.Request().Context(), req.Symbol, tf, req.Limit)
	if err != nil {
		metrics.APIErrors.WithLabelValues("candles").Inc()
		h.logger.Error("candles usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, candles)
}
