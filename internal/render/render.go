// Package render draws binders, categories and transactions for the terminal.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"gestorebinder/internal/core"
)

// Theme colors
var (
	ColorBorder    = lipgloss.Color("#282726")
	ColorTextDim   = lipgloss.Color("#575653")
	ColorTextMuted = lipgloss.Color("#6F6E69")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorAccent    = lipgloss.Color("#3AA99F")
	ColorGreen     = lipgloss.Color("#879A39")
	ColorOrange    = lipgloss.Color("#DA702C")
	ColorRed       = lipgloss.Color("#D14D41")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Align(lipgloss.Center)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	valueStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	mutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	dimStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)

	incomeStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	expenseStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	warnStyle = lipgloss.NewStyle().
			Foreground(ColorOrange)
)

// Table is a bordered text table.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	// Align marks right aligned columns.
	Align []bool
}

// Title renders a centered title bar in a bordered box.
func Title(title string) string {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(55).
		Align(lipgloss.Center).
		Padding(0, 1)

	return border.Render(titleStyle.Render(title))
}

// RenderTable renders a bordered table with headers and rows.
func RenderTable(t Table) string {
	numCols := len(t.Headers)
	if numCols == 0 && len(t.Rows) > 0 {
		numCols = len(t.Rows[0])
	}
	if numCols == 0 {
		return ""
	}

	widths := make([]int, numCols)
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < numCols && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  ")
		b.WriteString(headerStyle.Render(t.Title))
		b.WriteString("\n")
	}

	rule := func(left, mid, right string) {
		b.WriteString(dimStyle.Render(left))
		for i, w := range widths {
			b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render(mid))
			}
		}
		b.WriteString(dimStyle.Render(right))
		b.WriteString("\n")
	}
	line := func(cells []string, style lipgloss.Style) {
		b.WriteString(dimStyle.Render("│"))
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			b.WriteString(style.Render(" " + pad(cell, widths[i], i < len(t.Align) && t.Align[i]) + " "))
			b.WriteString(dimStyle.Render("│"))
		}
		b.WriteString("\n")
	}

	rule("╭", "┬", "╮")
	if len(t.Headers) > 0 {
		line(t.Headers, headerStyle)
		rule("├", "┼", "┤")
	}
	for _, row := range t.Rows {
		line(row, valueStyle)
	}
	rule("╰", "┴", "╯")
	return b.String()
}

func pad(s string, width int, right bool) string {
	gap := width - lipgloss.Width(s)
	if gap <= 0 {
		return s
	}
	if right {
		return strings.Repeat(" ", gap) + s
	}
	return s + strings.Repeat(" ", gap)
}

// Amount colours an amount by sign.
func Amount(m core.Money) string {
	s := core.FormatCurrency(m)
	if m.IsNegative() {
		return expenseStyle.Render(s)
	}
	return incomeStyle.Render(s)
}

// Binders renders the binder list, or its empty state.
func Binders(binders []core.Binder) string {
	if len(binders) == 0 {
		return EmptyState(core.EmptyBinder, "")
	}
	t := Table{
		Title:   "Binder",
		Headers: []string{"ID", "Nome", "Categorie", "Totale"},
		Align:   []bool{true, false, true, true},
	}
	for _, b := range binders {
		t.Rows = append(t.Rows, []string{
			strconv.FormatInt(b.ID, 10),
			b.Name,
			strconv.Itoa(b.CategoriesCount),
			core.FormatCurrency(b.TotalAmount),
		})
	}
	return RenderTable(t)
}

// BinderDetail renders a binder card followed by its categories.
func BinderDetail(b core.Binder, cats []core.Category) string {
	var sb strings.Builder
	sb.WriteString(Card(b.Name, core.FormatCurrency(b.TotalAmount),
		fmt.Sprintf("%d categorie", b.CategoriesCount)))
	sb.WriteString("\n")
	sb.WriteString(Categories(cats))
	return sb.String()
}

// Categories renders a category list with its sum, or its empty state.
func Categories(cats []core.Category) string {
	if len(cats) == 0 {
		return EmptyState(core.EmptyCategory, "")
	}
	t := Table{
		Title:   "Categorie",
		Headers: []string{"ID", "Nome", "Transazioni", "Totale"},
		Align:   []bool{true, false, true, true},
	}
	for _, c := range cats {
		t.Rows = append(t.Rows, []string{
			strconv.FormatInt(c.ID, 10),
			c.Name,
			strconv.Itoa(c.TransactionsCount),
			core.FormatCurrency(c.TotalAmount),
		})
	}
	t.Rows = append(t.Rows, []string{"", "Totale", "", core.FormatCurrency(core.SumCategories(cats))})
	return RenderTable(t)
}

// Transactions renders a transaction listing with its total.
func Transactions(list core.TransactionList) string {
	if len(list.Transactions) == 0 {
		return EmptyState(core.EmptyTransaction, "")
	}
	t := Table{
		Title:   "Transazioni",
		Headers: []string{"ID", "Data", "Descrizione", "Importo"},
		Align:   []bool{true, false, false, true},
	}
	for _, tx := range list.Transactions {
		t.Rows = append(t.Rows, []string{
			strconv.FormatInt(tx.ID, 10),
			core.FormatDateIt(tx.Date.Time),
			tx.Description,
			core.FormatCurrency(tx.Amount),
		})
	}
	t.Rows = append(t.Rows, []string{"", "", "Totale", core.FormatCurrency(list.Total)})
	return RenderTable(t)
}

// Card renders a bordered card with a label, a value and a muted footnote.
func Card(label, value, note string) string {
	content := headerStyle.Render(label) + "\n" +
		valueStyle.Bold(true).Render(value)
	if note != "" {
		content += "\n" + mutedStyle.Render(note)
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1).
		Render(content)
}

// Chart renders one horizontal bar per point, scaled to the largest
// absolute amount. Expenses are red, income green.
func Chart(points []core.ChartPoint, width int) string {
	if len(points) == 0 {
		return mutedStyle.Render("  Nessun dato da mostrare")
	}
	if width < 10 {
		width = 10
	}

	var maxAbs int64
	labelW, amountW := 0, 0
	for _, p := range points {
		if a := abs(p.Amount.Cents); a > maxAbs {
			maxAbs = a
		}
		labelW = max(labelW, lipgloss.Width(p.Label))
		amountW = max(amountW, lipgloss.Width(core.FormatCurrency(p.Amount)))
	}

	var b strings.Builder
	for _, p := range points {
		n := 0
		if maxAbs > 0 {
			n = int(abs(p.Amount.Cents) * int64(width) / maxAbs)
		}
		if n == 0 && p.Amount.Cents != 0 {
			n = 1
		}
		style := incomeStyle
		if p.Amount.IsNegative() {
			style = expenseStyle
		}
		b.WriteString("  ")
		b.WriteString(dimStyle.Render(pad(p.Label, labelW, false)))
		b.WriteString(" ")
		b.WriteString(style.Render(pad(strings.Repeat("█", n), width, false)))
		b.WriteString(" ")
		b.WriteString(valueStyle.Render(pad(core.FormatCurrency(p.Amount), amountW, true)))
		if p.Description != "" {
			b.WriteString("  ")
			b.WriteString(mutedStyle.Render(p.Description))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// EmptyState renders the icon and message of an empty list. An empty text
// uses the icon's default message.
func EmptyState(icon core.EmptyStateIcon, text string) string {
	if text == "" {
		text = icon.Text()
	}
	return "  " + icon.Glyph() + "  " + mutedStyle.Render(text) + "\n"
}

// Loader renders frame n of a loading indicator with its label.
func Loader(v core.LoaderVariant, n int, label string) string {
	if label == "" {
		label = "Caricamento..."
	}
	return headerStyle.Render(v.Frame(n)) + " " + mutedStyle.Render(label)
}

// Notice renders a one-line notification; failures are highlighted.
func Notice(title, description string, failed bool) string {
	style := incomeStyle
	mark := "✓"
	if failed {
		style = warnStyle
		mark = "✗"
	}
	return style.Render(mark+" "+title) + " " + mutedStyle.Render(description)
}
