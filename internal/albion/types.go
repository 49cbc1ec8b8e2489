package albion

import (
	"strconv"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════════
// WIRE TYPES - Albion Online Data price API
// ═══════════════════════════════════════════════════════════════════════════════

// PriceRecord is one (item, quality, city) observation from /stats/prices.
// Dates are kept verbatim; the arbitrage package decides how to read them.
type PriceRecord struct {
	ItemID           string  `json:"item_id"`
	Quality          Quality `json:"quality"`
	City             string  `json:"city"`
	BuyPriceMax      int64   `json:"buy_price_max"`
	BuyPriceMaxDate  string  `json:"buy_price_max_date"`
	SellPriceMin     int64   `json:"sell_price_min"`
	SellPriceMinDate string  `json:"sell_price_min_date"`
}

// Quality is the 1-5 item grade; each grade is priced independently
type Quality int

const (
	QualityNormal      Quality = 1
	QualityGood        Quality = 2
	QualityOutstanding Quality = 3
	QualityExcellent   Quality = 4
	QualityMasterpiece Quality = 5
)

// Qualities lists every grade in ascending order
var Qualities = []Quality{
	QualityNormal,
	QualityGood,
	QualityOutstanding,
	QualityExcellent,
	QualityMasterpiece,
}

var qualityLabels = map[Quality]string{
	QualityNormal:      "Normal",
	QualityGood:        "Good",
	QualityOutstanding: "Outstanding",
	QualityExcellent:   "Excellent",
	QualityMasterpiece: "Masterpiece",
}

// Valid reports whether q is one of the five known grades
func (q Quality) Valid() bool {
	_, ok := qualityLabels[q]
	return ok
}

func (q Quality) String() string {
	if label, ok := qualityLabels[q]; ok {
		return label
	}
	return "Quality(" + strconv.Itoa(int(q)) + ")"
}

// joinQualities renders qualities for the query string, e.g. "1,2,3,4,5"
func joinQualities(qualities []Quality) string {
	parts := make([]string, len(qualities))
	for i, q := range qualities {
		parts[i] = strconv.Itoa(int(q))
	}
	return strings.Join(parts, ",")
}
