package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"CoinSim/internal/domain/models"
	"CoinSim/pkg/id"
)

func newTradingFixture(state *fakeStateStore) (*TradingService, *fakeJournal, *fakePrices, *fakeMetrics) {
	acct := NewAccount(100000)
	ledger := NewSpotLedger(acct, id.NewSequence("trade"), WithSpotClock(fixedClock()))
	futures := NewFuturesEngine(acct, id.NewSequence("pos"), WithFuturesClock(fixedClock()))
	pub := &fakeJournal{}
	metrics := newFakeMetrics()
	journal := NewJournalProcessor(pub, &fakeJournal{}, metrics, JournalBackendKafka)
	prices := &fakePrices{prices: map[string]float64{"bitcoin": 50000, "BTCUSDT": 50000}}
	svc := NewTradingService(acct, ledger, futures, journal, state, prices, metrics,
		WithTradingClock(fixedClock()))
	return svc, pub, prices, metrics
}

func spotBuy(qty float64) models.SpotOrder {
	return models.SpotOrder{Asset: "bitcoin", Symbol: "BTC", Type: models.TradeBuy, Quantity: qty}
}

func marketLong(margin float64) models.FuturesOrder {
	return models.FuturesOrder{Symbol: "BTCUSDT", Side: models.SideLong, Margin: margin, Leverage: 10}
}

func TestExecuteSpotJournalsTrade(t *testing.T) {
	svc, pub, _, metrics := newTradingFixture(&fakeStateStore{})
	ctx := context.Background()

	trade, res := svc.ExecuteSpot(ctx, spotBuy(0.1))
	if !res.Valid {
		t.Fatalf("buy rejected: %s", res.Error)
	}
	assertClose(t, "fill price", trade.Price, 50000, 1e-9)

	if pub.len() != 1 {
		t.Fatalf("journal entries = %d, want 1", pub.len())
	}
	e := pub.entries[0]
	if e.Kind != models.JournalTrade || e.Trade == nil {
		t.Errorf("entry = %+v, want trade kind", e)
	}
	if !e.At.Equal(fixedClock()()) {
		t.Errorf("entry at = %v, want fixed clock", e.At)
	}
	if got := metrics.count("trade:BUY"); got != 1 {
		t.Errorf("trade counter = %d, want 1", got)
	}
}

func TestExecuteSpotWithoutPrice(t *testing.T) {
	svc, pub, _, metrics := newTradingFixture(&fakeStateStore{})

	order := models.SpotOrder{Asset: "dogecoin", Symbol: "DOGE", Type: models.TradeBuy, Quantity: 1}
	trade, res := svc.ExecuteSpot(context.Background(), order)
	if trade != nil || res.Valid {
		t.Fatalf("trade executed without a price: %+v", trade)
	}
	if !strings.Contains(res.Error, "no price available for dogecoin") {
		t.Errorf("error = %q", res.Error)
	}
	if pub.len() != 0 {
		t.Error("rejected order reached the journal")
	}
	if got := metrics.count("error:price_lookup"); got != 1 {
		t.Errorf("lookup error counter = %d, want 1", got)
	}
}

func TestValidateSpot(t *testing.T) {
	svc, _, _, _ := newTradingFixture(&fakeStateStore{})
	ctx := context.Background()

	if res := svc.ValidateSpot(ctx, spotBuy(0.1)); !res.Valid {
		t.Errorf("valid order rejected: %s", res.Error)
	}
	bad := models.SpotOrder{Asset: "dogecoin", Type: models.TradeBuy, Quantity: 1}
	if res := svc.ValidateSpot(ctx, bad); res.Valid {
		t.Error("order without a price validated")
	}
}

func TestOpenFuturesFillsEntryPrice(t *testing.T) {
	svc, pub, _, metrics := newTradingFixture(&fakeStateStore{})

	pos, res := svc.OpenFutures(context.Background(), marketLong(1000))
	if !res.Valid {
		t.Fatalf("open rejected: %s", res.Error)
	}
	assertClose(t, "entry", pos.EntryPrice, 50000, 1e-9)
	// margin*leverage/price = 1000*10/50000.
	assertClose(t, "quantity", pos.Quantity, 0.2, 1e-12)

	if pub.len() != 1 || pub.entries[0].Kind != models.JournalPosition {
		t.Errorf("journal = %d entries, want one position entry", pub.len())
	}
	if got := metrics.count("pos_open:LONG"); got != 1 {
		t.Errorf("open counter = %d, want 1", got)
	}
}

func TestOpenFuturesWithoutPrice(t *testing.T) {
	svc, _, _, _ := newTradingFixture(&fakeStateStore{})

	order := models.FuturesOrder{Symbol: "XRPUSDT", Side: models.SideLong, Margin: 1000, Leverage: 10}
	pos, res := svc.OpenFutures(context.Background(), order)
	if pos != nil || res.Valid {
		t.Fatal("position opened without a price")
	}
	if !strings.Contains(res.Error, "no price available for XRPUSDT") {
		t.Errorf("error = %q", res.Error)
	}
}

func TestValidateFuturesFillsEntryPrice(t *testing.T) {
	svc, _, _, _ := newTradingFixture(&fakeStateStore{})
	ctx := context.Background()

	res := svc.ValidateFutures(ctx, marketLong(1000))
	if !res.Valid {
		t.Fatalf("valid order rejected: %s", res.Error)
	}
	// Liquidation derives from the injected market entry.
	assertClose(t, "liquidation", res.LiquidationPrice, 45500, 1e-6)

	bad := models.FuturesOrder{Symbol: "XRPUSDT", Side: models.SideLong, Margin: 1000, Leverage: 10}
	if res := svc.ValidateFutures(ctx, bad); res.Valid {
		t.Error("order without a price validated")
	}
}

func TestCloseFuturesAtMarket(t *testing.T) {
	svc, pub, prices, metrics := newTradingFixture(&fakeStateStore{})
	ctx := context.Background()

	pos, res := svc.OpenFutures(ctx, marketLong(1000))
	if !res.Valid {
		t.Fatalf("open rejected: %s", res.Error)
	}
	prices.prices["BTCUSDT"] = 55000

	closed, err := svc.CloseFutures(ctx, pos.ID)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.Status != models.PositionClosed || closed.CloseReason != models.CloseManual {
		t.Errorf("closed = %s/%s, want CLOSED/MANUAL", closed.Status, closed.CloseReason)
	}
	// pnl 1000 minus 5 open and 5 close fees.
	assertClose(t, "realized", closed.RealizedPnL, 990, 1e-9)
	if got := metrics.count("pos_close:MANUAL"); got != 1 {
		t.Errorf("close counter = %d, want 1", got)
	}
	if pub.len() != 2 {
		t.Errorf("journal entries = %d, want open and close", pub.len())
	}
}

func TestCloseFuturesFallsBackToLastMark(t *testing.T) {
	svc, _, prices, _ := newTradingFixture(&fakeStateStore{})
	ctx := context.Background()

	pos, res := svc.OpenFutures(ctx, marketLong(1000))
	if !res.Valid {
		t.Fatalf("open rejected: %s", res.Error)
	}
	// Feed outage between open and close.
	delete(prices.prices, "BTCUSDT")

	closed, err := svc.CloseFutures(ctx, pos.ID)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	// Settled flat at the last mark, so only the two fees realize.
	assertClose(t, "close price", closed.CurrentPrice, 50000, 1e-9)
	assertClose(t, "realized", closed.RealizedPnL, -10, 1e-9)
}

func TestCloseFuturesUnknownPosition(t *testing.T) {
	svc, _, _, _ := newTradingFixture(&fakeStateStore{})
	_, err := svc.CloseFutures(context.Background(), "pos-404")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestMarkPriceRevaluesAndTriggers(t *testing.T) {
	svc, pub, _, metrics := newTradingFixture(&fakeStateStore{})
	ctx := context.Background()

	if _, res := svc.ExecuteSpot(ctx, spotBuy(0.1)); !res.Valid {
		t.Fatalf("buy rejected: %s", res.Error)
	}
	order := marketLong(1000)
	order.StopLoss = 48000
	if _, res := svc.OpenFutures(ctx, order); !res.Valid {
		t.Fatalf("open rejected: %s", res.Error)
	}

	svc.MarkPrice(ctx, "bitcoin", "BTCUSDT", 47000)

	// The drop crossed the stop, closing the position at the stop price.
	closed := svc.Positions(models.PositionClosed)
	if len(closed) != 1 {
		t.Fatalf("closed positions = %d, want 1", len(closed))
	}
	if closed[0].CloseReason != models.CloseStopLoss {
		t.Errorf("reason = %s, want STOP_LOSS", closed[0].CloseReason)
	}
	assertClose(t, "stop fill", closed[0].CurrentPrice, 48000, 1e-9)
	if got := metrics.count("pos_close:STOP_LOSS"); got != 1 {
		t.Errorf("close counter = %d, want 1", got)
	}

	// Spot holding revalued at the same print.
	h := svc.Portfolio().Holdings["bitcoin"]
	assertClose(t, "holding mark", h.CurrentPrice, 47000, 1e-9)

	// trade, open, triggered close.
	if pub.len() != 3 {
		t.Errorf("journal entries = %d, want 3", pub.len())
	}
	if got := metrics.count("last_price:BTCUSDT"); got != 1 {
		t.Errorf("last price counter = %d, want 1", got)
	}

	// Non-positive prints are ignored.
	svc.MarkPrice(ctx, "bitcoin", "BTCUSDT", 0)
	if got := metrics.count("last_price:BTCUSDT"); got != 1 {
		t.Errorf("zero print recorded, counter = %d", got)
	}
}

func TestFundingSweep(t *testing.T) {
	svc, _, _, _ := newTradingFixture(&fakeStateStore{})
	ctx := context.Background()

	if _, res := svc.OpenFutures(ctx, marketLong(1000)); !res.Valid {
		t.Fatalf("open rejected: %s", res.Error)
	}
	if n := svc.FundingSweep(ctx); n != 1 {
		t.Errorf("funded positions = %d, want 1", n)
	}
	// notional 10000 at the default 0.0001 rate.
	open := svc.Positions(models.PositionOpen)
	if len(open) != 1 {
		t.Fatalf("open positions = %d, want 1", len(open))
	}
	assertClose(t, "funding fees", open[0].FundingFees, 1, 1e-9)

	// Nothing open, nothing funded.
	if _, err := svc.CloseFutures(ctx, open[0].ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	if n := svc.FundingSweep(ctx); n != 0 {
		t.Errorf("funded positions = %d, want 0", n)
	}
}

func TestSaveAndRestoreState(t *testing.T) {
	state := &fakeStateStore{}
	svc, _, _, _ := newTradingFixture(state)
	ctx := context.Background()

	if _, res := svc.ExecuteSpot(ctx, spotBuy(0.1)); !res.Valid {
		t.Fatalf("buy rejected: %s", res.Error)
	}
	if _, res := svc.OpenFutures(ctx, marketLong(1000)); !res.Valid {
		t.Fatalf("open rejected: %s", res.Error)
	}
	if err := svc.SaveState(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}

	snap := state.snap
	if snap == nil {
		t.Fatal("nothing saved")
	}
	// 100000 - (5000 + 5 fee) - (1000 margin + 5 fee).
	assertClose(t, "saved balance", snap.Balance, 93990, 1e-9)
	assertClose(t, "saved initial", snap.InitialBalance, 100000, 1e-9)
	if len(snap.Trades) != 1 || len(snap.Positions) != 1 {
		t.Errorf("snapshot = %d trades / %d positions, want 1/1", len(snap.Trades), len(snap.Positions))
	}
	if !snap.SavedAt.Equal(fixedClock()()) {
		t.Errorf("saved at = %v, want fixed clock", snap.SavedAt)
	}

	// A fresh process restores the same books.
	restored, _, _, _ := newTradingFixture(state)
	if err := restored.RestoreState(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}
	assertClose(t, "restored balance", restored.Portfolio().Balance, 93990, 1e-9)
	if restored.TradeCount() != 1 {
		t.Errorf("restored trades = %d, want 1", restored.TradeCount())
	}
	h, ok := restored.Portfolio().Holdings["bitcoin"]
	if !ok {
		t.Fatal("holding not rebuilt from trades")
	}
	assertClose(t, "restored quantity", h.Quantity, 0.1, 1e-12)
	open := restored.Positions(models.PositionOpen)
	if len(open) != 1 || open[0].ID != "pos-1" {
		t.Errorf("restored positions = %+v, want pos-1 open", open)
	}
}

func TestRestoreStateFreshStart(t *testing.T) {
	svc, _, _, _ := newTradingFixture(&fakeStateStore{})
	if err := svc.RestoreState(context.Background()); err != nil {
		t.Fatalf("restore with no snapshot: %v", err)
	}
	assertClose(t, "balance", svc.Portfolio().Balance, 100000, 1e-9)
}

func TestRestoreStateLoadError(t *testing.T) {
	state := &fakeStateStore{loadErr: errors.New("redis down")}
	svc, _, _, metrics := newTradingFixture(state)

	err := svc.RestoreState(context.Background())
	if err == nil || !strings.Contains(err.Error(), "load state") {
		t.Fatalf("err = %v, want load state", err)
	}
	if got := metrics.count("error:state_load"); got != 1 {
		t.Errorf("load error counter = %d, want 1", got)
	}
}

func TestSaveStateError(t *testing.T) {
	state := &fakeStateStore{saveErr: errors.New("redis down")}
	svc, _, _, metrics := newTradingFixture(state)

	err := svc.SaveState(context.Background())
	if err == nil || !strings.Contains(err.Error(), "save state") {
		t.Fatalf("err = %v, want save state", err)
	}
	if got := metrics.count("error:state_save"); got != 1 {
		t.Errorf("save error counter = %d, want 1", got)
	}
}

func TestPositionsStatusFilter(t *testing.T) {
	svc, _, _, _ := newTradingFixture(&fakeStateStore{})
	ctx := context.Background()

	first, res := svc.OpenFutures(ctx, marketLong(1000))
	if !res.Valid {
		t.Fatalf("open rejected: %s", res.Error)
	}
	if _, res := svc.OpenFutures(ctx, marketLong(500)); !res.Valid {
		t.Fatalf("second open rejected: %s", res.Error)
	}
	if _, err := svc.CloseFutures(ctx, first.ID); err != nil {
		t.Fatalf("close: %v", err)
	}

	if got := len(svc.Positions("")); got != 2 {
		t.Errorf("all positions = %d, want 2", got)
	}
	if got := len(svc.Positions(models.PositionOpen)); got != 1 {
		t.Errorf("open positions = %d, want 1", got)
	}
	if got := len(svc.Positions(models.PositionClosed)); got != 1 {
		t.Errorf("closed positions = %d, want 1", got)
	}
}
