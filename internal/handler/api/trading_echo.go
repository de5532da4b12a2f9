package api

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"
	"strings"
	"time"

	models "CoinSim/internal/domain/models"
	"CoinSim/internal/service/metrics"
	"CoinSim/internal/usecase"
	xhttp "CoinSim/pkg/http"
	xlogger "CoinSim/pkg/logger"

	"github.com/labstack/echo/v4"
)

// TradingEchoHandler serves the spot ledger and futures engine endpoints.
// Rule violations (insufficient balance, bad stops) come back as verdicts in
// a 200 body; only malformed requests get a 4xx.
type TradingEchoHandler struct {
	logger  *xlogger.Logger
	trading *usecase.TradingService
}

func NewTradingEchoHandler(logger *xlogger.Logger, trading *usecase.TradingService) *TradingEchoHandler {
	metrics.Register()
	return &TradingEchoHandler{logger: logger, trading: trading}
}

func (h *TradingEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.POST("/trades/validate", h.ValidateTrade)
	g.POST("/trades", h.ExecuteTrade)
	g.GET("/trades", h.Trades)
	g.GET("/portfolio", h.Portfolio)
	g.POST("/futures/validate", h.ValidateFutures)
	g.POST("/futures", h.OpenFutures)
	g.POST("/futures/:id/close", h.CloseFutures)
	g.GET("/futures", h.Positions)
	g.GET("/export/trades.csv", h.ExportTradesCSV)
}

func spotOrder(req *models.TradeRequest) models.SpotOrder {
	// oneof tag already constrains Type; ParseTradeType only normalizes case.
	t, _ := models.ParseTradeType(req.Type)
	symbol := req.Symbol
	if symbol == "" {
		symbol = strings.ToUpper(req.Asset)
	}
	return models.SpotOrder{Asset: req.Asset, Symbol: symbol, Type: t, Quantity: req.Quantity}
}

func futuresOrder(req *models.FuturesOpenRequest) models.FuturesOrder {
	side, _ := models.ParseSide(req.Side)
	return models.FuturesOrder{
		Symbol:     strings.ToUpper(req.Symbol),
		Side:       side,
		Margin:     req.Margin,
		Leverage:   req.Leverage,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
	}
}

func (h *TradingEchoHandler) ValidateTrade(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("trades_validate").Observe(time.Since(start).Seconds()) }()

	req := &models.TradeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res := h.trading.ValidateSpot(c.Request().Context(), spotOrder(req))
	return xhttp.SuccessResponse(c, res)
}

func (h *TradingEchoHandler) ExecuteTrade(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("trades").Observe(time.Since(start).Seconds()) }()

	req := &models.TradeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	trade, res := h.trading.ExecuteSpot(c.Request().Context(), spotOrder(req))
	if trade == nil {
		h.logger.Debug("trade rejected", xlogger.String("asset", req.Asset), xlogger.String("reason", res.Error))
		return xhttp.SuccessResponse(c, res)
	}
	return xhttp.CreatedResponse(c, trade)
}

func (h *TradingEchoHandler) Trades(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("trades_list").Observe(time.Since(start).Seconds()) }()

	req := &models.TradesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.ListResponse(c, h.trading.Trades(req.Limit), int64(h.trading.TradeCount()))
}

func (h *TradingEchoHandler) Portfolio(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("portfolio").Observe(time.Since(start).Seconds()) }()

	return xhttp.SuccessResponse(c, h.trading.Portfolio())
}

func (h *TradingEchoHandler) ValidateFutures(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("futures_validate").Observe(time.Since(start).Seconds()) }()

	req := &models.FuturesOpenRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res := h.trading.ValidateFutures(c.Request().Context(), futuresOrder(req))
	return xhttp.SuccessResponse(c, res)
}

func (h *TradingEchoHandler) OpenFutures(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("futures").Observe(time.Since(start).Seconds()) }()

	req := &models.FuturesOpenRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	pos, res := h.trading.OpenFutures(c.Request().Context(), futuresOrder(req))
	if pos == nil {
		h.logger.Debug("futures open rejected", xlogger.String("symbol", req.Symbol), xlogger.String("reason", res.Error))
		return xhttp.SuccessResponse(c, res)
	}
	return xhttp.CreatedResponse(c, pos)
}

func (h *TradingEchoHandler) CloseFutures(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("futures_close").Observe(time.Since(start).Seconds()) }()

	req := &models.FuturesCloseRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	pos, err := h.trading.CloseFutures(c.Request().Context(), req.ID)
	if err != nil {
		metrics.APIErrors.WithLabelValues("futures_close").Inc()
		h.logger.Warn("futures close failed", xlogger.String("id", req.ID), xlogger.Error(err))
		if strings.Contains(err.Error(), "not found") {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundError(err.Error()))
		}
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	return xhttp.SuccessResponse(c, pos)
}

func (h *TradingEchoHandler) Positions(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("futures_list").Observe(time.Since(start).Seconds()) }()

	req := &models.PositionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	status := models.PositionStatus(strings.ToUpper(req.Status))
	return xhttp.SuccessResponse(c, h.trading.Positions(status))
}

// ExportTradesCSV streams the trade history as a CSV attachment. Date and
// time are split into separate columns; quantity keeps 8 decimals, money
// columns 2.
func (h *TradingEchoHandler) ExportTradesCSV(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("export_trades").Observe(time.Since(start).Seconds()) }()

	trades := h.trading.Trades(0)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"Date", "Time", "Type", "Asset", "Symbol", "Quantity", "Price", "Total", "Fee", "NetTotal"})
	for _, t := range trades {
		at := t.ExecutedAt.UTC()
		_ = w.Write([]string{
			at.Format("2006-01-02"),
			at.Format("15:04:05"),
			string(t.Type),
			t.Asset,
			t.Symbol,
			strconv.FormatFloat(t.Quantity, 'f', 8, 64),
			strconv.FormatFloat(t.Price, 'f', 2, 64),
			strconv.FormatFloat(t.Total, 'f', 2, 64),
			strconv.FormatFloat(t.Fee, 'f', 2, 64),
			strconv.FormatFloat(t.NetTotal, 'f', 2, 64),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		metrics.APIErrors.WithLabelValues("export_trades").Inc()
		h.logger.Error("csv export error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="trades.csv"`)
	return c.Blob(http.StatusOK, "text/csv", buf.Bytes())
}
