package database

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/web3guy0/albionarb/internal/arbitrage"
)

// ═══════════════════════════════════════════════════════════════════════════════
// DATABASE - latest report mirror
// ═══════════════════════════════════════════════════════════════════════════════
//
// Holds exactly one cycle: every ReplaceSnapshot swaps the whole table, the
// same way full_table.txt is overwritten. No history is kept.
//
// ═══════════════════════════════════════════════════════════════════════════════

type Database struct {
	db *gorm.DB
}

// Models

// ReportRow is one line of the latest full table
type ReportRow struct {
	ID               uint   `gorm:"primaryKey;autoIncrement"`
	ItemID           string `gorm:"index"`
	Name             string
	Enchantment      int
	Quality          int
	QualityLabel     string
	BlackMarketAge   float64
	CityAge          float64
	BlackMarketPrice decimal.Decimal `gorm:"type:decimal(20,2)"`
	CityPrice        decimal.Decimal `gorm:"type:decimal(20,2)"`
	Profit           decimal.Decimal `gorm:"type:decimal(20,2)"`
	Profitable       bool            `gorm:"index"`
	GeneratedAt      time.Time
	CreatedAt        time.Time
}

func New(dbPath string) (*Database, error) {
	var db *gorm.DB
	var err error

	// Check if this is a PostgreSQL connection string
	if strings.HasPrefix(dbPath, "postgres://") || strings.HasPrefix(dbPath, "postgresql://") {
		db, err = gorm.Open(postgres.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, err
		}
		log.Info().Msg("Database connected (PostgreSQL)")
	} else {
		// SQLite fallback
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", dbPath).Msg("Database initialized (SQLite)")
	}

	if err := db.AutoMigrate(&ReportRow{}); err != nil {
		return nil, err
	}

	return &Database{db: db}, nil
}

// ReplaceSnapshot swaps the stored table for the given cycle's full table.
// Rows present in the profitable table are flagged.
func (d *Database) ReplaceSnapshot(ctx context.Context, report arbitrage.Report) error {
	profitable := make(map[string]bool, len(report.Profitable))
	for _, row := range report.Profitable {
		profitable[rowKey(row)] = true
	}

	rows := make([]ReportRow, 0, len(report.Full))
	for _, row := range report.Full {
		rows = append(rows, ReportRow{
			ItemID:           row.ItemID,
			Name:             row.Name,
			Enchantment:      row.Enchantment,
			Quality:          int(row.Quality),
			QualityLabel:     row.Quality.String(),
			BlackMarketAge:   row.BlackMarketAge,
			CityAge:          row.CityAge,
			BlackMarketPrice: row.BlackMarketPrice,
			CityPrice:        row.CityPrice,
			Profit:           row.Profit,
			Profitable:       profitable[rowKey(row)],
			GeneratedAt:      report.GeneratedAt,
		})
	}

	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&ReportRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 200).Error
	})
}

// LatestSnapshot returns the stored table in report order
func (d *Database) LatestSnapshot(ctx context.Context) ([]ReportRow, error) {
	var rows []ReportRow
	err := d.db.WithContext(ctx).Order("id ASC").Find(&rows).Error
	return rows, err
}

// ProfitableSnapshot returns the flagged rows, best first
func (d *Database) ProfitableSnapshot(ctx context.Context) ([]ReportRow, error) {
	var rows []ReportRow
	err := d.db.WithContext(ctx).Where("profitable = ?", true).Order("profit DESC").Order("id ASC").Find(&rows).Error
	return rows, err
}

// Close releases the connection pool
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func rowKey(row arbitrage.Row) string {
	return row.ItemID + "|" + row.Quality.String()
}
