package arbitrage

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/albionarb/internal/albion"
)

// ═══════════════════════════════════════════════════════════════════════════════
// ENGINE - Black Market ↔ City join
// ═══════════════════════════════════════════════════════════════════════════════
//
// Flow:
//   records → lookups (last wins) → join per city key → profit → gates → sort
//
// Profit = BM buy order × (1 − tax) − city sell order
//
// ═══════════════════════════════════════════════════════════════════════════════

// UnknownItem is shown when an id is missing from the catalog
const UnknownItem = "Unknown Item"

// NameResolver maps a base item id to its display name
type NameResolver interface {
	Name(id string) (string, bool)
}

// EngineConfig holds the join thresholds
type EngineConfig struct {
	BlackMarket       string
	City              string
	MaxAgeBlackMarket float64 // minutes, exclusive
	MaxAgeCity        float64 // minutes, exclusive
	TaxRate           decimal.Decimal
	MinProfit         decimal.Decimal
	EnforceMinProfit  bool
	Freshness         Freshness
}

// DefaultEngineConfig returns the thresholds the scanner ships with
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		BlackMarket:       "Black Market",
		City:              "Caerleon",
		MaxAgeBlackMarket: 100,
		MaxAgeCity:        100,
		TaxRate:           decimal.NewFromFloat(0.03),
		MinProfit:         decimal.NewFromInt(1000),
		Freshness:         NewFreshness(),
	}
}

// Row is one item/quality/enchantment line of the report
type Row struct {
	Name             string
	ItemID           string
	Enchantment      int
	Quality          albion.Quality
	BlackMarketAge   float64
	CityAge          float64
	BlackMarketPrice decimal.Decimal
	CityPrice        decimal.Decimal
	Profit           decimal.Decimal
}

// Report is the outcome of one cycle
type Report struct {
	GeneratedAt time.Time
	Full        []Row // rows within both age thresholds
	Profitable  []Row // subset worth flipping, best first
}

// Engine joins Black Market and city prices
type Engine struct {
	cfg   EngineConfig
	names NameResolver
}

// NewEngine creates a new join engine
func NewEngine(cfg EngineConfig, names NameResolver) *Engine {
	return &Engine{cfg: cfg, names: names}
}

type priceKey struct {
	itemID  string
	quality albion.Quality
}

type recordKey struct {
	itemID  string
	quality albion.Quality
	city    string
}

// recordIndex keeps one record per key. A later record for the same key
// replaces the earlier one but keeps the key's first position, so iteration
// is deterministic for a given input.
type recordIndex struct {
	keys    []recordKey
	records map[recordKey]albion.PriceRecord
}

func buildRecordIndex(records []albion.PriceRecord) *recordIndex {
	idx := &recordIndex{records: make(map[recordKey]albion.PriceRecord, len(records))}
	for _, rec := range records {
		key := recordKey{itemID: rec.ItemID, quality: rec.Quality, city: rec.City}
		if _, exists := idx.records[key]; !exists {
			idx.keys = append(idx.keys, key)
		}
		idx.records[key] = rec
	}
	return idx
}

// buildBlackMarketPrices maps (item, quality) to the Black Market buy order.
// Last record wins on duplicates.
func buildBlackMarketPrices(records []albion.PriceRecord, blackMarket string) map[priceKey]int64 {
	prices := make(map[priceKey]int64)
	for _, rec := range records {
		if rec.City != blackMarket {
			continue
		}
		prices[priceKey{itemID: rec.ItemID, quality: rec.Quality}] = rec.BuyPriceMax
	}
	return prices
}

// Process builds the full and profitable tables for one cycle
func (e *Engine) Process(records []albion.PriceRecord, now time.Time) Report {
	bmPrices := buildBlackMarketPrices(records, e.cfg.BlackMarket)
	idx := buildRecordIndex(records)

	netFactor := decimal.NewFromInt(1).Sub(e.cfg.TaxRate)
	report := Report{GeneratedAt: now}

	for _, key := range idx.keys {
		if key.city != e.cfg.City {
			continue
		}
		if !key.quality.Valid() {
			log.Debug().Str("item", key.itemID).Int("quality", int(key.quality)).Msg("Skipping unknown quality")
			continue
		}
		rec := idx.records[key]

		bmAge := math.Inf(1)
		if bmRec, ok := idx.records[recordKey{itemID: key.itemID, quality: key.quality, city: e.cfg.BlackMarket}]; ok {
			bmAge = e.cfg.Freshness.Age(now, bmRec.BuyPriceMaxDate)
		}
		cityAge := e.cfg.Freshness.Age(now, rec.SellPriceMinDate)

		baseID, enchantment := SplitItemID(key.itemID)
		name := UnknownItem
		if e.names != nil {
			if n, ok := e.names.Name(baseID); ok {
				name = n
			}
		}

		bmPrice := decimal.NewFromInt(bmPrices[priceKey{itemID: key.itemID, quality: key.quality}])
		cityPrice := decimal.NewFromInt(rec.SellPriceMin)
		profit := bmPrice.Mul(netFactor).Sub(cityPrice)

		if !(bmAge < e.cfg.MaxAgeBlackMarket && cityAge < e.cfg.MaxAgeCity) {
			continue
		}

		row := Row{
			Name:             name,
			ItemID:           key.itemID,
			Enchantment:      enchantment,
			Quality:          key.quality,
			BlackMarketAge:   bmAge,
			CityAge:          cityAge,
			BlackMarketPrice: bmPrice,
			CityPrice:        cityPrice,
			Profit:           profit,
		}
		report.Full = append(report.Full, row)

		if e.profitable(row) {
			report.Profitable = append(report.Profitable, row)
		}
	}

	sort.SliceStable(report.Profitable, func(i, j int) bool {
		return report.Profitable[i].Profit.GreaterThan(report.Profitable[j].Profit)
	})

	return report
}

func (e *Engine) profitable(row Row) bool {
	if math.IsInf(row.BlackMarketAge, 0) || math.IsInf(row.CityAge, 0) {
		return false
	}
	if !row.BlackMarketPrice.IsPositive() || !row.CityPrice.IsPositive() {
		return false
	}
	if !row.Profit.IsPositive() {
		return false
	}
	if e.cfg.EnforceMinProfit && row.Profit.LessThan(e.cfg.MinProfit) {
		return false
	}
	return true
}

// SplitItemID separates "T6_BAG@2" into ("T6_BAG", 2). Ids without a numeric
// "@" suffix have enchantment 0.
func SplitItemID(itemID string) (string, int) {
	base, suffix, found := strings.Cut(itemID, "@")
	if !found {
		return itemID, 0
	}
	level, err := strconv.Atoi(suffix)
	if err != nil {
		return base, 0
	}
	return base, level
}
