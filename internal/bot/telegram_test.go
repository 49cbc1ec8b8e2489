package bot

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/albionarb/internal/albion"
	"github.com/web3guy0/albionarb/internal/arbitrage"
	"github.com/web3guy0/albionarb/internal/scanner"
)

var _ ReportProvider = (*scanner.Scanner)(nil)

// alertRow builds a row the way the engine does: ItemID keeps the API id,
// Enchantment is parsed from its suffix.
func alertRow(id string, q albion.Quality, profit int64) arbitrage.Row {
	base, enchantment := arbitrage.SplitItemID(id)
	return arbitrage.Row{
		Name:             "Adept's " + base,
		ItemID:           id,
		Enchantment:      enchantment,
		Quality:          q,
		BlackMarketPrice: decimal.NewFromInt(10000 + profit),
		CityPrice:        decimal.NewFromInt(10000),
		Profit:           decimal.NewFromInt(profit),
	}
}

func TestSelectAlerts(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cfg := AlertConfig{MinProfit: decimal.NewFromInt(1000), Cooldown: 10 * time.Minute, MaxRows: 2}

	rows := []arbitrage.Row{
		alertRow("T8_A", albion.QualityNormal, 5000),
		alertRow("T8_B", albion.QualityGood, 3000),
		alertRow("T8_C", albion.QualityNormal, 1000),
		alertRow("T8_D", albion.QualityNormal, 999),
	}

	tests := []struct {
		name      string
		lastSent  map[alertKey]time.Time
		maxRows   int
		wantIDs   []string
		wantTotal int
	}{
		{"Threshold is inclusive", nil, 10, []string{"T8_A", "T8_B", "T8_C"}, 3},
		{"Capped at max rows", nil, 2, []string{"T8_A", "T8_B"}, 3},
		{"Zero max rows means no cap", nil, 0, []string{"T8_A", "T8_B", "T8_C"}, 3},
		{
			"Cooling down is skipped",
			map[alertKey]time.Time{{"T8_A", 1}: now.Add(-5 * time.Minute)},
			10, []string{"T8_B", "T8_C"}, 2,
		},
		{
			"Expired cooldown alerts again",
			map[alertKey]time.Time{{"T8_A", 1}: now.Add(-10 * time.Minute)},
			10, []string{"T8_A", "T8_B", "T8_C"}, 3,
		},
		{
			"Cooldown is per quality",
			map[alertKey]time.Time{{"T8_B", 1}: now},
			10, []string{"T8_A", "T8_B", "T8_C"}, 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cfg
			c.MaxRows = tt.maxRows
			selected, total := selectAlerts(rows, now, tt.lastSent, c)

			if total != tt.wantTotal {
				t.Errorf("Expected total %d, got %d", tt.wantTotal, total)
			}
			if len(selected) != len(tt.wantIDs) {
				t.Fatalf("Expected %d rows, got %d", len(tt.wantIDs), len(selected))
			}
			for i, id := range tt.wantIDs {
				if selected[i].ItemID != id {
					t.Errorf("Row %d: expected %s, got %s", i, id, selected[i].ItemID)
				}
			}
		})
	}
}

func TestSelectAlertsDoesNotRecord(t *testing.T) {
	lastSent := map[alertKey]time.Time{}
	cfg := AlertConfig{MinProfit: decimal.Zero, Cooldown: time.Minute}

	selectAlerts([]arbitrage.Row{alertRow("T6_X", albion.QualityNormal, 10)}, time.Now(), lastSent, cfg)

	if len(lastSent) != 0 {
		t.Errorf("Expected selectAlerts to leave lastSent untouched, got %v", lastSent)
	}
}

func TestPruneExpired(t *testing.T) {
	now := time.Now()
	lastSent := map[alertKey]time.Time{
		{"OLD", 1}:   now.Add(-time.Hour),
		{"FRESH", 1}: now.Add(-time.Minute),
	}

	pruneExpired(lastSent, now, 10*time.Minute)

	if _, ok := lastSent[alertKey{"OLD", 1}]; ok {
		t.Error("Expected expired entry to be pruned")
	}
	if _, ok := lastSent[alertKey{"FRESH", 1}]; !ok {
		t.Error("Expected fresh entry to be kept")
	}
}

func TestFormatAlert(t *testing.T) {
	rows := []arbitrage.Row{alertRow("T8_BAG@2", albion.QualityExcellent, 2500)}

	msg := formatAlert("Caerleon", rows, 3)

	for _, want := range []string{
		"*3 Black Market opportunities*",
		"1. *Adept's T8\\_BAG*",
		"`T8_BAG@2` Excellent",
		"Caerleon 10000 → BM 12500",
		"profit *2500.00*",
		"…and 2 more",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("Expected message to contain %q, got:\n%s", want, msg)
		}
	}
}

func TestFormatAlertEngineRows(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	stamp := now.Add(-time.Minute).Format("2006-01-02T15:04:05")

	var records []albion.PriceRecord
	for _, id := range []string{"T8_BAG@2", "T8_CAPE"} {
		records = append(records,
			albion.PriceRecord{ItemID: id, Quality: albion.QualityNormal, City: "Black Market", BuyPriceMax: 20000, BuyPriceMaxDate: stamp},
			albion.PriceRecord{ItemID: id, Quality: albion.QualityNormal, City: "Caerleon", SellPriceMin: 10000, SellPriceMinDate: stamp},
		)
	}

	cfg := arbitrage.DefaultEngineConfig()
	cfg.Freshness = arbitrage.Freshness{Offset: 0}
	report := arbitrage.NewEngine(cfg, nil).Process(records, now)
	if len(report.Profitable) != 2 {
		t.Fatalf("Expected 2 profitable rows, got %d", len(report.Profitable))
	}

	msg := formatAlert("Caerleon", report.Profitable, len(report.Profitable))

	for _, want := range []string{"`T8_BAG@2` Normal", "`T8_CAPE` Normal"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Expected message to contain %q, got:\n%s", want, msg)
		}
	}
	for _, bad := range []string{"@2@2", "T8_CAPE@"} {
		if strings.Contains(msg, bad) {
			t.Errorf("Expected no %q in message, got:\n%s", bad, msg)
		}
	}
}

func TestFormatAlertSingle(t *testing.T) {
	msg := formatAlert("Caerleon", []arbitrage.Row{alertRow("T6_A", albion.QualityNormal, 1500)}, 1)

	if !strings.Contains(msg, "*1 Black Market opportunity*") {
		t.Errorf("Expected singular heading, got:\n%s", msg)
	}
	if strings.Contains(msg, "more") {
		t.Errorf("Expected no overflow line, got:\n%s", msg)
	}
}

func TestFormatStatus(t *testing.T) {
	if got := formatStatus(arbitrage.Report{}, false, loopHealth{}); !strings.Contains(got, "No cycle completed yet") {
		t.Errorf("Expected waiting notice, got %q", got)
	}

	report := arbitrage.Report{
		GeneratedAt: time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
		Full:        []arbitrage.Row{alertRow("T6_A", 1, 1500), alertRow("T6_B", 1, -3)},
		Profitable:  []arbitrage.Row{alertRow("T6_A", 1, 1500)},
	}
	got := formatStatus(report, true, loopHealth{})

	for _, want := range []string{"2024-05-01 12:30:00", "Fresh rows: *2*", "Profitable: *1*", "Best profit: *1500.00*"} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected status to contain %q, got:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Failed cycles") || strings.Contains(got, "Circuit breaker") {
		t.Errorf("Expected no failure line for a healthy loop, got:\n%s", got)
	}
}

func TestFormatStatusBreaker(t *testing.T) {
	tests := []struct {
		name   string
		ok     bool
		health loopHealth
		want   string
	}{
		{"Failing", true, loopHealth{failures: 2}, "Failed cycles in a row: *2*"},
		{"Tripped", true, loopHealth{failures: 5, tripped: true, reason: "fetch server time: timeout"}, "Circuit breaker tripped after *5* failed cycles"},
		{"Tripped before any report", false, loopHealth{failures: 5, tripped: true, reason: "x"}, "Circuit breaker tripped"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatStatus(arbitrage.Report{}, tt.ok, tt.health)
			if !strings.Contains(got, tt.want) {
				t.Errorf("Expected status to contain %q, got:\n%s", tt.want, got)
			}
			if tt.health.tripped && !strings.Contains(got, tt.health.reason) {
				t.Errorf("Expected reason %q in status, got:\n%s", tt.health.reason, got)
			}
		})
	}
}
