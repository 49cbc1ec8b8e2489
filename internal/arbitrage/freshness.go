package arbitrage

import (
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultAgeOffset is added to every computed age. The price API and the time
// service disagree by a fixed amount; the value is carried over as-is.
const DefaultAgeOffset = 300 * time.Minute

// zeroDate is what the API reports for a price that was never observed
const zeroDate = "0001-01-01"

// Zone-less forms are read as UTC
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Freshness turns price timestamps into ages in minutes
type Freshness struct {
	Offset time.Duration
}

// NewFreshness creates a calculator with the default offset
func NewFreshness() Freshness {
	return Freshness{Offset: DefaultAgeOffset}
}

// Age returns minutes elapsed between ts and now, plus the offset.
// Missing, zero-date and unparseable timestamps are +Inf.
func (f Freshness) Age(now time.Time, ts string) float64 {
	ts = strings.TrimSpace(ts)
	if ts == "" || strings.HasPrefix(ts, zeroDate) {
		return math.Inf(1)
	}

	parsed, ok := parseTimestamp(ts)
	if !ok {
		log.Warn().Str("item_time", ts).Msg("Unparseable price timestamp")
		return math.Inf(1)
	}

	return now.Sub(parsed).Minutes() + f.Offset.Minutes()
}

func parseTimestamp(ts string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
