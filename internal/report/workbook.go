package report

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/web3guy0/albionarb/internal/arbitrage"
)

const (
	sheetFull       = "Full"
	sheetProfitable = "Profitable"
)

// WriteWorkbook saves the full and profitable tables as two sheets
func WriteWorkbook(path, city string, report arbitrage.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetFull); err != nil {
		return err
	}
	if _, err := f.NewSheet(sheetProfitable); err != nil {
		return err
	}

	if err := fillSheet(f, sheetFull, city, report.Full); err != nil {
		return err
	}
	if err := fillSheet(f, sheetProfitable, city, report.Profitable); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func fillSheet(f *excelize.File, sheet, city string, rows []arbitrage.Row) error {
	headers := Headers(city)
	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{
			row.Name,
			row.Enchantment,
			row.Quality.String(),
			ageValue(row.BlackMarketAge),
			ageValue(row.CityAge),
			row.BlackMarketPrice.IntPart(),
			row.CityPrice.IntPart(),
			row.Profit.Round(2).InexactFloat64(),
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	return nil
}

// Spreadsheets have no infinity
func ageValue(minutes float64) interface{} {
	if math.IsInf(minutes, 0) {
		return "inf"
	}
	return math.Round(minutes*100) / 100
}
