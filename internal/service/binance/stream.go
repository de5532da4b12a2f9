package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"CoinSim/internal/domain/models"
	drepo "CoinSim/internal/domain/repository"
	applogger "CoinSim/pkg/logger"
)

const defaultURL = "wss://stream.binance.com:9443/ws"

// Config holds the trade stream settings.
type Config struct {
	URL            string
	Symbols        []string // pair names, e.g. BTCUSDT
	ReconnectDelay time.Duration
	PingInterval   time.Duration
}

// Stream implements MarketStream over a Binance-style trade WebSocket.
// Prices and quantities arrive as strings and are parsed at the boundary;
// unparseable or non-trade frames are skipped.
type Stream struct {
	cfg Config
	l   *applogger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	subID     int
}

// New creates a new Binance trade stream.
func New(cfg Config, l *applogger.Logger) *Stream {
	if cfg.URL == "" {
		cfg.URL = defaultURL
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	return &Stream{cfg: cfg, l: l}
}

// Connect establishes the WebSocket connection.
func (s *Stream) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("binance connect: %w", err)
	}
	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()
	if s.l != nil {
		s.l.Info("binance stream connected", applogger.String("url", s.cfg.URL))
	}
	return nil
}

type subscribeMsg struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int      `json:"id"`
}

// Subscribe subscribes to the trade stream of every configured symbol.
func (s *Stream) Subscribe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil || !s.connected {
		return fmt.Errorf("binance not connected")
	}
	params := make([]string, 0, len(s.cfg.Symbols))
	for _, sym := range s.cfg.Symbols {
		if sym == "" {
			continue
		}
		params = append(params, strings.ToLower(sym)+"@trade")
	}
	if len(params) == 0 {
		return fmt.Errorf("no symbols configured")
	}
	s.subID++
	msg := subscribeMsg{Method: "SUBSCRIBE", Params: params, ID: s.subID}
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	if s.l != nil {
		s.l.Info("binance subscribed", applogger.Strings("streams", params))
	}
	return nil
}

type wsTrade struct {
	Event  string `json:"e"`
	Symbol string `json:"s"`
	Price  string `json:"p"`
	Qty    string `json:"q"`
	TimeMS int64  `json:"T"`
}

// Read streams ticks and errors. The tick channel drops on backpressure;
// a read failure is sent once on the error channel and both channels close.
func (s *Stream) Read(ctx context.Context) (<-chan *models.Tick, <-chan error) {
	ticks := make(chan *models.Tick, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(s.cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.mu.Lock()
				if s.conn != nil {
					_ = s.conn.WriteMessage(websocket.PingMessage, nil)
				}
				s.mu.Unlock()
			}
		}
	}()

	// read loop
	go func() {
		defer close(ticks)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			s.mu.Lock()
			conn := s.conn
			s.mu.Unlock()
			if conn == nil {
				errs <- fmt.Errorf("binance conn nil")
				return
			}
			_, b, err := conn.ReadMessage()
			if err != nil {
				errs <- fmt.Errorf("binance read: %w", err)
				return
			}
			var m wsTrade
			if err := json.Unmarshal(b, &m); err != nil {
				// subscribe acks and other non-trade frames
				continue
			}
			if m.Event != "trade" || m.Symbol == "" {
				continue
			}
			price, perr := strconv.ParseFloat(m.Price, 64)
			qty, qerr := strconv.ParseFloat(m.Qty, 64)
			if perr != nil || qerr != nil || price <= 0 {
				continue
			}
			at := time.Now().UTC()
			if m.TimeMS > 0 {
				at = time.UnixMilli(m.TimeMS).UTC()
			}
			tick := &models.Tick{Symbol: m.Symbol, Price: price, Qty: qty, At: at}
			select {
			case ticks <- tick:
			default:
				// drop on backpressure
			}
		}
	}()

	return ticks, errs
}

// Reconnect closes and re-establishes the connection and subscriptions.
func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.cfg.ReconnectDelay):
	}
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx)
}

// Close closes the WS connection.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

// IsConnected indicates status.
func (s *Stream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

var _ drepo.MarketStream = (*Stream)(nil)
