package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"elizabeth/agent/internal/domain"
	"elizabeth/agent/internal/session"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// TableRenderer writes the result rows as a terminal table with a per-row
// status column and a one-shot highlight of the most recently resolved row.
type TableRenderer struct {
	out io.Writer
}

func NewTableRenderer(out io.Writer) *TableRenderer {
	return &TableRenderer{out: out}
}

// Render draws the whole collection. The session is mutated fully before a
// render is triggered, so the table never shows a partial state.
func (r *TableRenderer) Render(s *session.Session) {
	rows := s.Rows()
	if len(rows) == 0 {
		fmt.Fprintln(r.out, "No results yet. Run a search first.")
		return
	}

	highlightKey := s.TakeHighlight()

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Status", "Article", "Brand", "Name", "Price", "Weight", "L/H/W", "Analog", "OEM", "Image"})

	for _, row := range rows {
		t.AppendRow(table.Row{
			statusLabel(row.Status),
			row.Product.Pin,
			row.Product.Brand,
			row.Product.Name,
			formatPrice(row.Product.Price, row.Product.Currency),
			formatFloat(characteristicsOf(row).Weight),
			formatDimensions(characteristicsOf(row)),
			formatString(characteristicsOf(row).AnalogCode),
			formatOEM(characteristicsOf(row).OEMNumbers),
			formatString(characteristicsOf(row).ImageURL),
		})
	}

	t.SetRowPainter(func(tr table.Row) text.Colors {
		if len(tr) == 0 {
			return nil
		}
		label, _ := tr[0].(string)
		switch {
		case strings.Contains(label, string(domain.StatusSuccess)):
			return text.Colors{text.FgGreen}
		case strings.Contains(label, string(domain.StatusFailed)):
			return text.Colors{text.FgRed}
		case strings.Contains(label, string(domain.StatusProcessing)):
			return text.Colors{text.FgCyan}
		default:
			return nil
		}
	})

	t.Render()
	fmt.Fprintln(r.out, summaryLine(s))

	if highlightKey != "" {
		for _, row := range rows {
			if row.Key == highlightKey {
				fmt.Fprintf(r.out, "Resolved: %s_%s\n", row.Product.Pin, row.Product.Brand)
				break
			}
		}
	}
}

func summaryLine(s *session.Session) string {
	counts := s.StatusCounts()
	return fmt.Sprintf("Ready: %d, processing: %d, waiting: %d, failed: %d",
		counts[domain.StatusSuccess],
		counts[domain.StatusProcessing],
		counts[domain.StatusIdle],
		counts[domain.StatusFailed])
}

func statusLabel(status domain.DetailsStatus) string {
	return string(status)
}

func characteristicsOf(row session.Row) *domain.Characteristics {
	if row.Product.Characteristics != nil {
		return row.Product.Characteristics
	}
	return &domain.Characteristics{}
}

func formatPrice(price *float64, currency string) string {
	if price == nil {
		return "-"
	}
	formatted := strconv.FormatFloat(*price, 'f', 2, 64)
	if currency != "" {
		return formatted + " " + currency
	}
	return formatted
}

func formatFloat(value *float64) string {
	if value == nil {
		return "-"
	}
	return strconv.FormatFloat(*value, 'f', -1, 64)
}

func formatString(value *string) string {
	if value == nil || *value == "" {
		return "-"
	}
	return *value
}

func formatDimensions(chars *domain.Characteristics) string {
	parts := []string{formatFloat(chars.Length), formatFloat(chars.Height), formatFloat(chars.Width)}
	if parts[0] == "-" && parts[1] == "-" && parts[2] == "-" {
		return "-"
	}
	return strings.Join(parts, "/")
}

func formatOEM(numbers []string) string {
	if len(numbers) == 0 {
		return "-"
	}
	if len(numbers) > 3 {
		return strings.Join(numbers[:3], ", ") + fmt.Sprintf(" +%d", len(numbers)-3)
	}
	return strings.Join(numbers, ", ")
}
