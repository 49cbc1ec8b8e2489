// Albionarb - Black Market arbitrage scanner for Albion Online
//
// Buys in the city, sells to the Black Market:
// 1. Fetch Black Market and Caerleon prices for the item catalog
// 2. Age every price against the server clock
// 3. Keep fresh pairs, compute profit after the premium tax
// 4. Rewrite full_table.txt and print the profitable rows
//
// Runs every few seconds until interrupted.
package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/web3guy0/albionarb/internal/albion"
	"github.com/web3guy0/albionarb/internal/arbitrage"
	"github.com/web3guy0/albionarb/internal/bot"
	"github.com/web3guy0/albionarb/internal/catalog"
	"github.com/web3guy0/albionarb/internal/config"
	"github.com/web3guy0/albionarb/internal/database"
	"github.com/web3guy0/albionarb/internal/report"
	"github.com/web3guy0/albionarb/internal/scanner"
)

const version = "1.0.0"

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	flag.Parse()

	if err := run(*once); err != nil {
		log.Error().Err(err).Msg("Scanner exited with error")
		os.Exit(1)
	}

	log.Info().Msg("👋 Goodbye!")
}

func run(once bool) error {
	// ═══════════════════════════════════════════════════════════════════════════════
	// BOOTSTRAP
	// ═══════════════════════════════════════════════════════════════════════════════

	bootstrap(os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Info().
		Str("version", version).
		Str("black_market", cfg.BlackMarket).
		Str("city", cfg.City).
		Strs("tiers", cfg.Tiers).
		Msg("⚔️ Albionarb starting...")

	// ═══════════════════════════════════════════════════════════════════════════════
	// INITIALIZE COMPONENTS
	// ═══════════════════════════════════════════════════════════════════════════════

	// 1. Item catalog
	items, err := catalog.Load(cfg.ItemsFile)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.ItemsFile).Msg("Failed to load item catalog")
	}
	scanned := items.FilterByTiers(cfg.Tiers)
	log.Info().Int("catalog", items.Len()).Int("scanned", scanned.Len()).Msg("📦 Item catalog loaded")

	// 2. Market data
	client := albion.NewClient(albion.ClientConfig{
		BaseURL:           cfg.MarketAPIURL,
		ChunkSize:         cfg.ChunkSize,
		Timeout:           cfg.RequestTimeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.RequestBurst,
	})
	clock := albion.NewClock(cfg.TimeAPIURL, cfg.RequestTimeout)

	// 3. Engine
	engine := arbitrage.NewEngine(arbitrage.EngineConfig{
		BlackMarket:       cfg.BlackMarket,
		City:              cfg.City,
		MaxAgeBlackMarket: cfg.MaxAgeBlackMarket,
		MaxAgeCity:        cfg.MaxAgeCity,
		TaxRate:           cfg.TaxRate,
		MinProfit:         cfg.MinProfit,
		EnforceMinProfit:  cfg.EnforceMinProfit,
		Freshness:         arbitrage.Freshness{Offset: cfg.AgeOffset},
	}, items)

	if !cfg.EnforceMinProfit {
		log.Warn().
			Str("min_profit", cfg.MinProfit.String()).
			Msg("⚠️ MIN_PROFIT only gates alerts; every positive profit is listed (set ENFORCE_MIN_PROFIT=true to filter)")
	}

	// 4. Reporter
	reporter := report.New(report.Options{
		City:          cfg.City,
		FullTablePath: cfg.FullTablePath,
		XLSXPath:      cfg.FullTableXLSXPath,
	}, os.Stdout)

	deps := scanner.Deps{
		Clock:     clock,
		Fetcher:   client,
		Engine:    engine,
		Publisher: reporter,
	}

	// 5. Snapshot mirror (optional)
	if cfg.DatabasePath != "" {
		db, err := database.New(cfg.DatabasePath)
		if err != nil {
			log.Warn().Err(err).Msg("Database connection failed, continuing without snapshot mirror")
		} else {
			defer db.Close()
			deps.Store = db
			log.Info().Msg("✅ Snapshot mirror enabled")
			logPreviousSnapshot(db)
		}
	}

	// 6. Telegram alerts (optional)
	var telegramBot *bot.TelegramBot
	if cfg.TelegramEnabled() {
		telegramBot, err = bot.NewTelegramBot(cfg.TelegramToken, cfg.TelegramChatID, bot.AlertConfig{
			City:      cfg.City,
			MinProfit: cfg.MinProfit,
			Cooldown:  cfg.AlertCooldown,
			MaxRows:   cfg.AlertMaxRows,
		})
		if err != nil {
			log.Warn().Err(err).Msg("⚠️ Telegram disabled")
			telegramBot = nil
		} else {
			deps.Notifier = telegramBot
		}
	}

	scan := scanner.New(deps, scanner.Options{
		Items:        scanned.IDs(),
		Locations:    []string{cfg.BlackMarket, cfg.City},
		Qualities:    albion.Qualities,
		PollInterval: cfg.PollInterval,
		Once:         once,

		MaxFailures:     cfg.MaxConsecutiveFailures,
		FailureCooldown: cfg.FailureCooldown,
	})

	if telegramBot != nil && !once {
		telegramBot.SetReportProvider(scan)
		telegramBot.Start()
		telegramBot.NotifyStartup(scanned.Len())
		defer telegramBot.Stop()
	}

	// ═══════════════════════════════════════════════════════════════════════════════
	// RUN
	// ═══════════════════════════════════════════════════════════════════════════════

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-quit:
			log.Info().Msg("🛑 Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	return scan.Run(ctx)
}

// bootstrap sets up console logging, then loads .env
func bootstrap(out io.Writer) {
	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Load environment
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}
}

// logPreviousSnapshot reports what the mirror held from the last run
func logPreviousSnapshot(db *database.Database) {
	ctx := context.Background()

	rows, err := db.LatestSnapshot(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read previous snapshot")
		return
	}
	if len(rows) == 0 {
		return
	}

	profitable, err := db.ProfitableSnapshot(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read previous snapshot")
		return
	}

	event := log.Info().
		Time("generated_at", rows[0].GeneratedAt).
		Int("rows", len(rows)).
		Int("profitable", len(profitable))
	if len(profitable) > 0 {
		event = event.Str("best", profitable[0].Name).Str("profit", profitable[0].Profit.StringFixed(2))
	}
	event.Msg("📂 Previous snapshot")
}
