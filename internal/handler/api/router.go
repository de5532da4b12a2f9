package api

import (
	"net/http"
	"time"

	domrepo "CoinSim/internal/domain/repository"

	"github.com/labstack/echo/v4"
)

// Router composes the API handlers into the single route table handed to
// pkg/http.NewServer.
type Router struct {
	signals *SignalsEchoHandler
	markets *MarketsEchoHandler
	trading *TradingEchoHandler
	store   domrepo.CandleStore
	stream  domrepo.MarketStream
	started time.Time
}

func NewRouter(
	signals *SignalsEchoHandler,
	markets *MarketsEchoHandler,
	trading *TradingEchoHandler,
	store domrepo.CandleStore,
	stream domrepo.MarketStream,
) *Router {
	return &Router{
		signals: signals,
		markets: markets,
		trading: trading,
		store:   store,
		stream:  stream,
		started: time.Now(),
	}
}

func (r *Router) RegisterRoutes(e *echo.Echo) {
	r.signals.RegisterRoutes(e)
	r.markets.RegisterRoutes(e)
	r.trading.RegisterRoutes(e)
	e.GET("/healthz", r.Healthz)
}

type healthStatus struct {
	Status     string
	Uptime     string
	Components map[string]string
}

// Healthz reports liveness and per-component status. Degraded components
// never fail the probe; they only flip Status to "degraded".
func (r *Router) Healthz(c echo.Context) error {
	components := map[string]string{}
	if r.store != nil {
		if err := r.store.Health(c.Request().Context()); err != nil {
			components["candle_store"] = err.Error()
		} else {
			components["candle_store"] = "ok"
		}
	}
	if r.stream != nil {
		if r.stream.IsConnected() {
			components["stream"] = "connected"
		} else {
			components["stream"] = "disconnected"
		}
	}
	status := "ok"
	for _, v := range components {
		if v != "ok" && v != "connected" {
			status = "degraded"
		}
	}
	return c.JSON(http.StatusOK, healthStatus{
		Status:     status,
		Uptime:     time.Since(r.started).Round(time.Second).String(),
		Components: components,
	})
}
