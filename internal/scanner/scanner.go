package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/albionarb/internal/albion"
	"github.com/web3guy0/albionarb/internal/arbitrage"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SCANNER - poll loop
// ═══════════════════════════════════════════════════════════════════════════════
//
// Cycle:
//   server time → fetch prices → join → publish → [snapshot] → [alerts]
//
// Cycles never overlap. A failed cycle is logged and the loop carries on
// after the poll interval, or after the failure cooldown once the circuit
// breaker trips.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Clock supplies the reference time for age calculations
type Clock interface {
	Now(ctx context.Context) (time.Time, error)
}

// Fetcher downloads price records for a batch of items
type Fetcher interface {
	FetchPrices(ctx context.Context, items, locations []string, qualities []albion.Quality) []albion.PriceRecord
}

// Processor turns raw records into a report
type Processor interface {
	Process(records []albion.PriceRecord, now time.Time) arbitrage.Report
}

// Publisher writes the report tables
type Publisher interface {
	Publish(report arbitrage.Report) error
}

// SnapshotStore mirrors the latest report
type SnapshotStore interface {
	ReplaceSnapshot(ctx context.Context, report arbitrage.Report) error
}

// Notifier pushes profitable rows somewhere a human will see them
type Notifier interface {
	NotifyOpportunities(rows []arbitrage.Row) error
}

// Deps are the collaborators of a cycle. Store and Notifier are optional.
type Deps struct {
	Clock     Clock
	Fetcher   Fetcher
	Engine    Processor
	Publisher Publisher
	Store     SnapshotStore
	Notifier  Notifier
}

// Options configures what is scanned and how often
type Options struct {
	Items        []string
	Locations    []string
	Qualities    []albion.Quality
	PollInterval time.Duration
	Once         bool

	// Back off to FailureCooldown after MaxFailures failed cycles in a row.
	// Zero MaxFailures disables it.
	MaxFailures     int
	FailureCooldown time.Duration
}

// Scanner runs the fetch/join/publish cycle
type Scanner struct {
	deps    Deps
	opts    Options
	breaker *CircuitBreaker

	mu         sync.RWMutex
	lastReport arbitrage.Report
	hasReport  bool
	cycles     int
}

// New creates a new scanner
func New(deps Deps, opts Options) *Scanner {
	if len(opts.Qualities) == 0 {
		opts.Qualities = albion.Qualities
	}
	return &Scanner{
		deps:    deps,
		opts:    opts,
		breaker: NewCircuitBreaker(opts.MaxFailures, opts.FailureCooldown),
	}
}

// Run repeats RunCycle until ctx is cancelled, or once with Options.Once.
// Cancellation is a clean exit and returns nil.
func (s *Scanner) Run(ctx context.Context) error {
	log.Info().
		Int("items", len(s.opts.Items)).
		Strs("locations", s.opts.Locations).
		Dur("interval", s.opts.PollInterval).
		Bool("once", s.opts.Once).
		Msg("🔍 Scanner started")

	if s.opts.Once {
		return s.RunCycle(ctx)
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := s.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error().Err(err).Msg("❌ Cycle failed")
			s.breaker.RecordFailure(err)
		} else {
			s.breaker.RecordSuccess()
		}

		wait := s.breaker.Wait(s.opts.PollInterval)
		if s.breaker.IsTripped() {
			log.Warn().Dur("wait", wait).Msg("⏸️ Backing off")
		}

		select {
		case <-ctx.Done():
			log.Info().Int("cycles", s.Cycles()).Msg("🛑 Scanner stopped")
			return nil
		case <-time.After(wait):
		}
	}
}

// RunCycle performs one full scan
func (s *Scanner) RunCycle(ctx context.Context) error {
	start := time.Now()

	now, err := s.deps.Clock.Now(ctx)
	if err != nil {
		return fmt.Errorf("fetch server time: %w", err)
	}

	records := s.deps.Fetcher.FetchPrices(ctx, s.opts.Items, s.opts.Locations, s.opts.Qualities)
	if err := ctx.Err(); err != nil {
		return err
	}

	report := s.deps.Engine.Process(records, now)

	s.mu.Lock()
	s.lastReport = report
	s.hasReport = true
	s.cycles++
	cycle := s.cycles
	s.mu.Unlock()

	if err := s.deps.Publisher.Publish(report); err != nil {
		return fmt.Errorf("publish report: %w", err)
	}

	if s.deps.Store != nil {
		if err := s.deps.Store.ReplaceSnapshot(ctx, report); err != nil {
			log.Error().Err(err).Msg("Failed to mirror snapshot")
		}
	}

	if s.deps.Notifier != nil && len(report.Profitable) > 0 {
		if err := s.deps.Notifier.NotifyOpportunities(report.Profitable); err != nil {
			log.Error().Err(err).Msg("Failed to send alerts")
		}
	}

	log.Info().
		Int("cycle", cycle).
		Int("records", len(records)).
		Int("fresh", len(report.Full)).
		Int("profitable", len(report.Profitable)).
		Dur("took", time.Since(start)).
		Msg("✅ Cycle complete")

	return nil
}

// LastReport returns the most recent processed report
func (s *Scanner) LastReport() (arbitrage.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReport, s.hasReport
}

// Cycles returns how many cycles produced a report
func (s *Scanner) Cycles() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cycles
}

// BreakerStats returns the consecutive failure count and circuit breaker state
func (s *Scanner) BreakerStats() (failures int, tripped bool, reason string) {
	return s.breaker.GetStats()
}
