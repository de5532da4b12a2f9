package api

import (
	"net/http"
	"time"

	models "CoinSim/internal/domain/models"
	domrepo "CoinSim/internal/domain/repository"
	"CoinSim/internal/service/metrics"
	"CoinSim/internal/service/ratelimit"
	"CoinSim/internal/usecase"
	xhttp "CoinSim/pkg/http"
	xlogger "CoinSim/pkg/logger"

	"github.com/labstack/echo/v4"
)

// SignalsEchoHandler serves signal reads and scan enqueues.
type SignalsEchoHandler struct {
	logger  *xlogger.Logger
	signals *usecase.SignalService
	scanner *usecase.SignalScanner
	rl      *ratelimit.Limiter
}

func NewSignalsEchoHandler(logger *xlogger.Logger, signals *usecase.SignalService, scanner *usecase.SignalScanner) *SignalsEchoHandler {
	metrics.Register()
	return &SignalsEchoHandler{logger: logger, signals: signals, scanner: scanner, rl: ratelimit.New()}
}

func (h *SignalsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.GET("/signals/:symbol", h.Signal)
	g.POST("/signals/scan", h.Scan)
}

func (h *SignalsEchoHandler) Signal(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("signal").Observe(time.Since(start).Seconds()) }()

	req := &models.SignalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":signal", 5, 2) {
		h.logger.Warn("signal rate_limited", xlogger.String("remote", c.RealIP()))
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}

	sig, err := h.signals.Get(c.Request().Context(), usecase.GetSignalParams{
		Symbol:    req.Symbol,
		Timeframe: domrepo.NormalizeTimeframe(req.Timeframe),
		Limit:     req.Limit,
		Profile:   req.Profile,
	})
	if err != nil {
		metrics.APIErrors.WithLabelValues("signal").Inc()
		h.logger.Error("signal usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, sig)
}

// ScanQueued reports how many analyze jobs one scan request enqueued.
type ScanQueued struct {
	Queued int
}

func (h *SignalsEchoHandler) Scan(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("scan").Observe(time.Since(start).Seconds()) }()

	req := &models.ScanRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":scan", 2, 0.5) {
		h.logger.Warn("scan rate_limited", xlogger.String("remote", c.RealIP()))
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}

	n, err := h.scanner.Enqueue(c.Request().Context(), req.Symbols)
	if err != nil {
		metrics.APIErrors.WithLabelValues("scan").Inc()
		h.logger.Error("scan enqueue error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, ScanQueued{Queued: n})
}
