// Package bot provides Telegram alerts for arbitrage opportunities
package bot

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/albionarb/internal/arbitrage"
)

// ═══════════════════════════════════════════════════════════════════════════════
// TELEGRAM BOT - Black Market opportunity alerts
// ═══════════════════════════════════════════════════════════════════════════════
//
// Features:
//   💰 One message per cycle with the best new opportunities
//   🔕 Per (item, quality) cooldown so a listing is not repeated every 4s
//   🎛️ /status, /top and /ping commands
//
// ═══════════════════════════════════════════════════════════════════════════════

// AlertConfig controls which rows are worth a message
type AlertConfig struct {
	City      string
	MinProfit decimal.Decimal
	Cooldown  time.Duration
	MaxRows   int
}

// ReportProvider exposes the most recent cycle and the loop's failure
// streak for commands
type ReportProvider interface {
	LastReport() (arbitrage.Report, bool)
	BreakerStats() (failures int, tripped bool, reason string)
}

// loopHealth is the failure state shown by /status
type loopHealth struct {
	failures int
	tripped  bool
	reason   string
}

type alertKey struct {
	itemID  string
	quality int
}

// TelegramBot manages the Telegram interface
type TelegramBot struct {
	mu       sync.Mutex
	api      *tgbotapi.BotAPI
	chatID   int64
	cfg      AlertConfig
	lastSent map[alertKey]time.Time
	reports  ReportProvider
	running  bool
	stopCh   chan struct{}
}

// NewTelegramBot creates a new Telegram bot
func NewTelegramBot(token string, chatID int64, cfg AlertConfig) (*TelegramBot, error) {
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN not set")
	}
	if chatID == 0 {
		return nil, fmt.Errorf("TELEGRAM_CHAT_ID not set")
	}
	if cfg.City == "" {
		cfg.City = "Caerleon"
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	bot := &TelegramBot{
		api:      api,
		chatID:   chatID,
		cfg:      cfg,
		lastSent: make(map[alertKey]time.Time),
		stopCh:   make(chan struct{}),
	}

	log.Info().Str("username", api.Self.UserName).Msg("🤖 Telegram bot initialized")

	return bot, nil
}

// SetReportProvider wires the source used by /status and /top
func (b *TelegramBot) SetReportProvider(p ReportProvider) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reports = p
}

// Start begins listening for commands
func (b *TelegramBot) Start() {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return
	}
	b.running = true
	b.mu.Unlock()

	go b.commandLoop()
	log.Info().Msg("📱 Telegram bot started")
}

// Stop stops the bot
func (b *TelegramBot) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running {
		return
	}

	b.running = false
	close(b.stopCh)
	b.api.StopReceivingUpdates()
	log.Info().Msg("Telegram bot stopped")
}

// ═══════════════════════════════════════════════════════════════════════════════
// NOTIFICATIONS
// ═══════════════════════════════════════════════════════════════════════════════

// NotifyOpportunities sends one message covering the rows that cleared the
// profit threshold and are not cooling down. Rows are expected best first.
func (b *TelegramBot) NotifyOpportunities(rows []arbitrage.Row) error {
	now := time.Now()

	b.mu.Lock()
	pruneExpired(b.lastSent, now, b.cfg.Cooldown)
	selected, total := selectAlerts(rows, now, b.lastSent, b.cfg)
	for _, row := range selected {
		b.lastSent[keyOf(row)] = now
	}
	b.mu.Unlock()

	if len(selected) == 0 {
		return nil
	}

	log.Info().Int("alerts", len(selected)).Int("eligible", total).Msg("📣 Sending opportunity alert")
	return b.sendMarkdown(formatAlert(b.cfg.City, selected, total))
}

// NotifyStartup sends startup notification
func (b *TelegramBot) NotifyStartup(items int) {
	msg := fmt.Sprintf(`🚀 *ALBIONARB STARTED*
━━━━━━━━━━━━━━━━━━━━

🏴 Route: *Black Market* ⇄ *%s*
📦 Items: *%d*
💰 Alert threshold: *%s* silver
🔕 Cooldown: *%s*

Use /help for commands`, escapeMarkdown(b.cfg.City), items, b.cfg.MinProfit.StringFixed(0), b.cfg.Cooldown)

	if err := b.sendMarkdown(msg); err != nil {
		log.Error().Err(err).Msg("Failed to send startup message")
	}
}

// selectAlerts picks the rows worth alerting on. It returns at most
// cfg.MaxRows rows plus the number that were eligible before the cap.
// lastSent is read only.
func selectAlerts(rows []arbitrage.Row, now time.Time, lastSent map[alertKey]time.Time, cfg AlertConfig) ([]arbitrage.Row, int) {
	var selected []arbitrage.Row
	total := 0

	for _, row := range rows {
		if row.Profit.LessThan(cfg.MinProfit) {
			continue
		}
		if sent, ok := lastSent[keyOf(row)]; ok && now.Sub(sent) < cfg.Cooldown {
			continue
		}
		total++
		if cfg.MaxRows > 0 && len(selected) >= cfg.MaxRows {
			continue
		}
		selected = append(selected, row)
	}

	return selected, total
}

func formatAlert(city string, rows []arbitrage.Row, total int) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "💰 *%d Black Market opportunit%s*\n", total, plural(total, "y", "ies"))
	sb.WriteString("━━━━━━━━━━━━━━━━━━━━\n")

	for i, row := range rows {
		fmt.Fprintf(&sb, "\n%d. *%s* `%s` %s\n", i+1,
			escapeMarkdown(row.Name), row.ItemID, row.Quality)
		fmt.Fprintf(&sb, "   %s %s → BM %s | profit *%s*\n",
			escapeMarkdown(city), row.CityPrice.StringFixed(0),
			row.BlackMarketPrice.StringFixed(0), row.Profit.StringFixed(2))
	}

	if rest := total - len(rows); rest > 0 {
		fmt.Fprintf(&sb, "\n…and %d more", rest)
	}

	return sb.String()
}

func pruneExpired(lastSent map[alertKey]time.Time, now time.Time, cooldown time.Duration) {
	for key, sent := range lastSent {
		if now.Sub(sent) >= cooldown {
			delete(lastSent, key)
		}
	}
}

func keyOf(row arbitrage.Row) alertKey {
	return alertKey{itemID: row.ItemID, quality: int(row.Quality)}
}

// ═══════════════════════════════════════════════════════════════════════════════
// COMMAND HANDLING
// ═══════════════════════════════════════════════════════════════════════════════

func (b *TelegramBot) commandLoop() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-b.stopCh:
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}

			// Only respond to authorized chat
			if update.Message.Chat.ID != b.chatID {
				continue
			}

			b.handleCommand(update.Message)
		}
	}
}

func (b *TelegramBot) handleCommand(msg *tgbotapi.Message) {
	cmd := strings.ToLower(msg.Command())

	switch cmd {
	case "start", "help":
		b.reply(helpText)
	case "status":
		report, ok := b.lastReport()
		b.reply(formatStatus(report, ok, b.health()))
	case "top":
		report, ok := b.lastReport()
		if !ok || len(report.Profitable) == 0 {
			b.reply("📭 No profitable items in the last cycle")
			return
		}
		rows := report.Profitable
		if len(rows) > 5 {
			rows = rows[:5]
		}
		b.reply(formatAlert(b.cfg.City, rows, len(report.Profitable)))
	case "ping":
		b.reply("🏓 Pong!")
	default:
		b.reply("❓ Unknown command. Use /help")
	}
}

const helpText = `🤖 *ALBIONARB COMMANDS*
━━━━━━━━━━━━━━━━━━━━

📊 /status — Last cycle summary
💰 /top — Best 5 opportunities
🏓 /ping — Test connection`

func formatStatus(report arbitrage.Report, ok bool, health loopHealth) string {
	var sb strings.Builder

	if !ok {
		sb.WriteString("⏳ No cycle completed yet")
	} else {
		best := "—"
		if len(report.Profitable) > 0 {
			best = report.Profitable[0].Profit.StringFixed(2)
		}

		fmt.Fprintf(&sb, `📊 *STATUS*
━━━━━━━━━━━━━━━━━━━━

🕐 Last cycle: *%s*
📋 Fresh rows: *%d*
💰 Profitable: *%d*
🏆 Best profit: *%s*`,
			report.GeneratedAt.UTC().Format("2006-01-02 15:04:05"),
			len(report.Full), len(report.Profitable), best)
	}

	switch {
	case health.tripped:
		fmt.Fprintf(&sb, "\n\n🚨 Circuit breaker tripped after *%d* failed cycles\n`%s`",
			health.failures, strings.ReplaceAll(health.reason, "`", "'"))
	case health.failures > 0:
		fmt.Fprintf(&sb, "\n\n⚠️ Failed cycles in a row: *%d*", health.failures)
	}

	return sb.String()
}

func (b *TelegramBot) lastReport() (arbitrage.Report, bool) {
	b.mu.Lock()
	p := b.reports
	b.mu.Unlock()

	if p == nil {
		return arbitrage.Report{}, false
	}
	return p.LastReport()
}

func (b *TelegramBot) health() loopHealth {
	b.mu.Lock()
	p := b.reports
	b.mu.Unlock()

	if p == nil {
		return loopHealth{}
	}
	failures, tripped, reason := p.BreakerStats()
	return loopHealth{failures: failures, tripped: tripped, reason: reason}
}

// ═══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ═══════════════════════════════════════════════════════════════════════════════

func (b *TelegramBot) reply(text string) {
	if err := b.sendMarkdown(text); err != nil {
		log.Error().Err(err).Msg("Failed to send Telegram message")
	}
}

func (b *TelegramBot) sendMarkdown(text string) error {
	msg := tgbotapi.NewMessage(b.chatID, text)
	msg.ParseMode = "Markdown"
	msg.DisableWebPagePreview = true
	_, err := b.api.Send(msg)
	return err
}

func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"]", "\\]",
		"`", "\\`",
	)
	return replacer.Replace(s)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
