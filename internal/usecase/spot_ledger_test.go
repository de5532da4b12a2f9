package usecase

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"CoinSim/internal/domain/models"
	"CoinSim/pkg/id"
)

func newSpotFixture(balance float64) (*SpotLedger, *Account) {
	acct := NewAccount(balance)
	ledger := NewSpotLedger(acct, id.NewSequence("trade"), WithSpotClock(fixedClock()))
	return ledger, acct
}

func buyOrder(qty float64) models.SpotOrder {
	return models.SpotOrder{Asset: "bitcoin", Symbol: "BTC", Type: models.TradeBuy, Quantity: qty}
}

func sellOrder(qty float64) models.SpotOrder {
	return models.SpotOrder{Asset: "bitcoin", Symbol: "BTC", Type: models.TradeSell, Quantity: qty}
}

func TestBuyCreatesHolding(t *testing.T) {
	ledger, acct := newSpotFixture(200000)

	trade, res := ledger.ExecuteTrade(buyOrder(1), 50000)
	if !res.Valid {
		t.Fatalf("buy rejected: %s", res.Error)
	}
	if trade.ID != "trade-1" {
		t.Errorf("id = %q, want trade-1", trade.ID)
	}
	// Gross 50000, 0.1% fee 50, cash out 50050.
	assertClose(t, "total", trade.Total, 50000, 1e-9)
	assertClose(t, "fee", trade.Fee, 50, 1e-9)
	assertClose(t, "net total", trade.NetTotal, 50050, 1e-9)
	assertClose(t, "balance", acct.Balance(), 149950, 1e-9)

	h, ok := ledger.Holding("bitcoin")
	if !ok {
		t.Fatal("holding missing")
	}
	assertClose(t, "quantity", h.Quantity, 1, 1e-12)
	assertClose(t, "avg", h.AverageBuyPrice, 50000, 1e-9)
	// Fees never enter invested capital.
	assertClose(t, "invested", h.TotalInvested, 50000, 1e-9)
	assertClose(t, "value", h.CurrentValue, 50000, 1e-9)
}

func TestBuyAveragesUp(t *testing.T) {
	ledger, _ := newSpotFixture(200000)
	ledger.ExecuteTrade(buyOrder(1), 50000)
	ledger.ExecuteTrade(buyOrder(1), 60000)

	h, _ := ledger.Holding("bitcoin")
	// (50000 + 60000) / 2 = 55000.
	assertClose(t, "avg", h.AverageBuyPrice, 55000, 1e-9)
	assertClose(t, "quantity", h.Quantity, 2, 1e-12)
	assertClose(t, "invested", h.TotalInvested, 110000, 1e-9)
}

func TestSellKeepsAverageAndRemovesInvestedProportionally(t *testing.T) {
	ledger, acct := newSpotFixture(200000)
	ledger.ExecuteTrade(buyOrder(1), 50000)
	ledger.ExecuteTrade(buyOrder(1), 60000)

	trade, res := ledger.ExecuteTrade(sellOrder(0.5), 70000)
	if !res.Valid {
		t.Fatalf("sell rejected: %s", res.Error)
	}
	// Proceeds 35000 minus 35 fee.
	assertClose(t, "net total", trade.NetTotal, 34965, 1e-9)
	assertClose(t, "balance", acct.Balance(), 200000-50050-60060+34965, 1e-6)

	h, _ := ledger.Holding("bitcoin")
	// A quarter of the position left, so a quarter of invested leaves:
	// 110000 * (0.5/2) = 27500 removed.
	assertClose(t, "quantity", h.Quantity, 1.5, 1e-12)
	assertClose(t, "invested", h.TotalInvested, 82500, 1e-6)
	// Selling never moves the average buy price.
	assertClose(t, "avg", h.AverageBuyPrice, 55000, 1e-9)
}

func TestSellAllRemovesHolding(t *testing.T) {
	ledger, _ := newSpotFixture(200000)
	ledger.ExecuteTrade(buyOrder(2), 50000)
	if _, res := ledger.ExecuteTrade(sellOrder(2), 52000); !res.Valid {
		t.Fatalf("sell rejected: %s", res.Error)
	}
	if _, ok := ledger.Holding("bitcoin"); ok {
		t.Fatal("holding should be removed after a full exit")
	}
}

func TestDustRemovedAfterNearCompleteSell(t *testing.T) {
	ledger, _ := newSpotFixture(200000)
	ledger.ExecuteTrade(buyOrder(1), 50000)
	// Selling all but 1e-9 leaves dust below the removal threshold.
	if _, res := ledger.ExecuteTrade(sellOrder(1-1e-9), 50000); !res.Valid {
		t.Fatalf("sell rejected: %s", res.Error)
	}
	if _, ok := ledger.Holding("bitcoin"); ok {
		t.Fatal("dust holding should be removed")
	}
}

func TestValidateTradeRejections(t *testing.T) {
	ledger, _ := newSpotFixture(1000)
	ledger.ExecuteTrade(models.SpotOrder{
		Asset: "ethereum", Symbol: "ETH", Type: models.TradeBuy, Quantity: 0.2,
	}, 2000)

	cases := []struct {
		name    string
		order   models.SpotOrder
		price   float64
		errPart string
	}{
		{"zero quantity", buyOrder(0), 50000, "quantity"},
		{"no price", buyOrder(1), 0, "no price"},
		{"insufficient", buyOrder(1), 50000, "insufficient balance"},
		{"no holding", sellOrder(1), 50000, "no holding"},
		{"oversell", models.SpotOrder{Asset: "ethereum", Symbol: "ETH", Type: models.TradeSell, Quantity: 0.5}, 2000, "only"},
		{"bad type", models.SpotOrder{Asset: "bitcoin", Symbol: "BTC", Type: "HODL", Quantity: 1}, 50000, "unknown trade type"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := ledger.ValidateTrade(tc.order, tc.price)
			if res.Valid {
				t.Fatal("expected invalid")
			}
			if !strings.Contains(res.Error, tc.errPart) {
				t.Errorf("error %q does not mention %q", res.Error, tc.errPart)
			}
		})
	}
}

func TestBuyWarnsOverHalfBalance(t *testing.T) {
	ledger, _ := newSpotFixture(1000)
	res := ledger.ValidateTrade(buyOrder(0.6), 1000)
	if !res.Valid {
		t.Fatalf("rejected: %s", res.Error)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "half the available balance") {
		t.Errorf("warnings = %v, want balance warning", res.Warnings)
	}
}

func TestUpdatePricesRevalues(t *testing.T) {
	ledger, _ := newSpotFixture(200000)
	ledger.ExecuteTrade(buyOrder(2), 55000)

	ledger.UpdatePrices(map[string]float64{"bitcoin": 60000, "ethereum": 3000})
	h, _ := ledger.Holding("bitcoin")
	assertClose(t, "price", h.CurrentPrice, 60000, 1e-9)
	assertClose(t, "value", h.CurrentValue, 120000, 1e-9)
	// 120000 - 110000 invested.
	assertClose(t, "pnl", h.PnL, 10000, 1e-6)
	assertClose(t, "pnl pct", h.PnLPct, 10000.0/110000*100, 1e-9)

	// Unknown assets and non-positive prices keep the old valuation.
	ledger.UpdatePrices(map[string]float64{"bitcoin": 0})
	h, _ = ledger.Holding("bitcoin")
	assertClose(t, "price kept", h.CurrentPrice, 60000, 1e-9)
}

func TestPortfolioTotals(t *testing.T) {
	ledger, _ := newSpotFixture(200000)
	ledger.ExecuteTrade(buyOrder(1), 50000)
	ledger.ExecuteTrade(models.SpotOrder{
		Asset: "ethereum", Symbol: "ETH", Type: models.TradeBuy, Quantity: 10,
	}, 2000)
	ledger.UpdatePrices(map[string]float64{"bitcoin": 55000, "ethereum": 1800})

	p := ledger.Portfolio()
	// Cash: 200000 - 50050 - 20020 = 129930.
	assertClose(t, "balance", p.Balance, 129930, 1e-6)
	assertClose(t, "invested", p.TotalInvested, 70000, 1e-6)
	// Values: 55000 + 18000 = 73000.
	assertClose(t, "value", p.TotalValue, 129930+73000, 1e-6)
	assertClose(t, "pnl", p.TotalPnL, 3000, 1e-6)
	assertClose(t, "pnl pct", p.TotalPnLPct, 3000.0/70000*100, 1e-9)
	if len(p.Holdings) != 2 {
		t.Fatalf("holdings = %d, want 2", len(p.Holdings))
	}
}

func TestEmptyPortfolio(t *testing.T) {
	ledger, _ := newSpotFixture(10000)
	p := ledger.Portfolio()
	assertClose(t, "balance", p.Balance, 10000, 1e-9)
	assertClose(t, "value", p.TotalValue, 10000, 1e-9)
	assertClose(t, "pnl pct", p.TotalPnLPct, 0, 1e-12)
	if len(p.Holdings) != 0 {
		t.Fatalf("holdings = %d, want 0", len(p.Holdings))
	}
}

func TestTradesLimit(t *testing.T) {
	ledger, _ := newSpotFixture(200000)
	ledger.ExecuteTrade(buyOrder(1), 50000)
	ledger.ExecuteTrade(buyOrder(1), 51000)
	ledger.ExecuteTrade(sellOrder(0.5), 52000)

	all := ledger.Trades(0)
	if len(all) != 3 {
		t.Fatalf("trades = %d, want 3", len(all))
	}
	last := ledger.Trades(2)
	if len(last) != 2 {
		t.Fatalf("limited trades = %d, want 2", len(last))
	}
	if last[0].ID != "trade-2" || last[1].ID != "trade-3" {
		t.Errorf("limit kept %q, %q, want the most recent rows", last[0].ID, last[1].ID)
	}
}

func TestRestoreReplaysTrades(t *testing.T) {
	ledger, _ := newSpotFixture(200000)
	ledger.ExecuteTrade(buyOrder(1), 50000)
	ledger.ExecuteTrade(buyOrder(1), 60000)
	ledger.ExecuteTrade(sellOrder(0.5), 70000)
	want, _ := ledger.Holding("bitcoin")

	fresh, _ := newSpotFixture(0)
	fresh.Restore(ledger.Trades(0))
	got, ok := fresh.Holding("bitcoin")
	if !ok {
		t.Fatal("replay lost the holding")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("replayed holding mismatch (-want +got):\n%s", diff)
	}
	if n := len(fresh.Trades(0)); n != 3 {
		t.Errorf("replayed trades = %d, want 3", n)
	}

	// A replayed full exit leaves no holding behind.
	empty, _ := newSpotFixture(0)
	seq := []models.Trade{
		{ID: "t1", Asset: "bitcoin", Symbol: "BTC", Type: models.TradeBuy, Quantity: 2, Price: 50000, Total: 100000, Fee: 100, NetTotal: 100100},
		{ID: "t2", Asset: "bitcoin", Symbol: "BTC", Type: models.TradeSell, Quantity: 2, Price: 52000, Total: 104000, Fee: 104, NetTotal: 103896},
	}
	empty.Restore(seq)
	if _, ok := empty.Holding("bitcoin"); ok {
		t.Error("replayed full exit should remove the holding")
	}
}
