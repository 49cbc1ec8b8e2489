package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/albionarb/internal/arbitrage"
)

// NoProfitableItems is printed instead of an empty profitable table
const NoProfitableItems = "No profitable items found."

// Options selects the report sinks
type Options struct {
	City          string // column label for the sell-side market
	FullTablePath string // overwritten every cycle
	XLSXPath      string // optional workbook, overwritten every cycle
}

// Reporter writes the full table to disk and the profitable table to the console
type Reporter struct {
	opts Options
	out  io.Writer
}

// New creates a reporter printing to out
func New(opts Options, out io.Writer) *Reporter {
	if opts.City == "" {
		opts.City = "Caerleon"
	}
	return &Reporter{opts: opts, out: out}
}

// Publish replaces the snapshot files and prints the profitable rows
func (r *Reporter) Publish(report arbitrage.Report) error {
	if err := writeFileAtomic(r.opts.FullTablePath, []byte(RenderTable(r.opts.City, report.Full))); err != nil {
		return fmt.Errorf("write full table: %w", err)
	}

	if r.opts.XLSXPath != "" {
		if err := WriteWorkbook(r.opts.XLSXPath, r.opts.City, report); err != nil {
			log.Error().Err(err).Str("path", r.opts.XLSXPath).Msg("Failed to write workbook")
		}
	}

	if len(report.Profitable) == 0 {
		_, err := fmt.Fprintln(r.out, NoProfitableItems)
		return err
	}
	_, err := io.WriteString(r.out, RenderTable(r.opts.City, report.Profitable))
	return err
}

// writeFileAtomic swaps the file in one rename so readers never see a
// half-written table.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
