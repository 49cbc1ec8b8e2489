package report

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/web3guy0/albionarb/internal/arbitrage"
)

// Headers returns the column titles for a Black Market ↔ city table
func Headers(city string) []string {
	return []string{
		"Name",
		"Enchantment",
		"Quality",
		"BM Age (mins)",
		city + " Age (mins)",
		"BM Price",
		city + " Price",
		"Profit",
	}
}

// Cells formats one row in column order
func Cells(row arbitrage.Row) []string {
	return []string{
		row.Name,
		strconv.Itoa(row.Enchantment),
		row.Quality.String(),
		formatAge(row.BlackMarketAge),
		formatAge(row.CityAge),
		row.BlackMarketPrice.StringFixed(0),
		row.CityPrice.StringFixed(0),
		row.Profit.StringFixed(2),
	}
}

func formatAge(minutes float64) string {
	if math.IsInf(minutes, 1) {
		return "inf"
	}
	return strconv.FormatFloat(minutes, 'f', 2, 64)
}

// RenderTable draws rows as a bordered grid with centred cells:
//
//	+------+-------------+
//	| Name | Enchantment |
//	+------+-------------+
//	| Bag  |      2      |
//	+------+-------------+
func RenderTable(city string, rows []arbitrage.Row) string {
	headers := Headers(city)
	cells := make([][]string, len(rows))
	for i, row := range rows {
		cells[i] = Cells(row)
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, line := range cells {
		for i, c := range line {
			widths[i] = max(widths[i], utf8.RuneCountInString(c))
		}
	}

	var sb strings.Builder
	border := borderLine(widths)

	sb.WriteString(border)
	writeLine(&sb, widths, headers)
	sb.WriteString(border)
	for _, line := range cells {
		writeLine(&sb, widths, line)
	}
	if len(cells) > 0 {
		sb.WriteString(border)
	}

	return sb.String()
}

func borderLine(widths []int) string {
	var sb strings.Builder
	sb.WriteByte('+')
	for _, w := range widths {
		sb.WriteString(strings.Repeat("-", w+2))
		sb.WriteByte('+')
	}
	sb.WriteByte('\n')
	return sb.String()
}

func writeLine(sb *strings.Builder, widths []int, values []string) {
	sb.WriteByte('|')
	for i, v := range values {
		sb.WriteByte(' ')
		sb.WriteString(center(v, widths[i]))
		sb.WriteString(" |")
	}
	sb.WriteByte('\n')
}

// center pads s to width; odd padding puts the extra space on the right
func center(s string, width int) string {
	pad := width - utf8.RuneCountInString(s)
	if pad <= 0 {
		return s
	}
	left := pad / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", pad-left)
}
