package printer

import (
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/funnyzak/reqwatch/internal/view"
	"github.com/funnyzak/reqwatch/pkg/capture"
	"github.com/funnyzak/reqwatch/pkg/i18n"
)

const (
	minWidth = 40
	maxWidth = 240
	// clearScreen moves the cursor home and erases the display.
	clearScreen = "\033[H\033[2J"
)

// ColorScheme color scheme
type ColorScheme struct {
	MethodGET    *color.Color
	MethodPOST   *color.Color
	MethodPUT    *color.Color
	MethodDELETE *color.Color
	MethodPATCH  *color.Color
	Header       *color.Color
	Interactive  *color.Color
	Timestamp    *color.Color
	Placeholder  *color.Color
	Status       *color.Color
	HeaderKey    *color.Color
}

// NewColorScheme creates a new color scheme
func NewColorScheme() *ColorScheme {
	return &ColorScheme{
		MethodGET:    color.New(color.FgBlue, color.Bold),
		MethodPOST:   color.New(color.FgGreen, color.Bold),
		MethodPUT:    color.New(color.FgYellow, color.Bold),
		MethodDELETE: color.New(color.FgRed, color.Bold),
		MethodPATCH:  color.New(color.FgMagenta, color.Bold),
		Header:       color.New(color.Bold),
		Interactive:  color.New(color.FgCyan, color.Underline),
		Timestamp:    color.New(color.FgHiBlack),
		Placeholder:  color.New(color.FgHiBlack, color.Italic),
		Status:       color.New(color.FgYellow),
		HeaderKey:    color.New(color.FgCyan),
	}
}

// MethodColor picks the color of an HTTP method.
func (c *ColorScheme) MethodColor(method string) *color.Color {
	switch strings.ToUpper(method) {
	case "GET":
		return c.MethodGET
	case "POST":
		return c.MethodPOST
	case "PUT":
		return c.MethodPUT
	case "DELETE":
		return c.MethodDELETE
	case "PATCH":
		return c.MethodPATCH
	default:
		return c.Header
	}
}

// TablePrinter redraws the whole table on every render.
type TablePrinter struct {
	mu       sync.Mutex
	out      io.Writer
	colors   *ColorScheme
	loc      i18n.Localizer
	terminal bool
	frames   int
}

// NewTablePrinter creates a table printer writing to out. Redraws clear the
// screen only when out is a terminal.
func NewTablePrinter(out io.Writer, loc i18n.Localizer) *TablePrinter {
	p := &TablePrinter{out: out, colors: NewColorScheme(), loc: loc}
	if f, ok := out.(*os.File); ok {
		p.terminal = term.IsTerminal(int(f.Fd()))
	}
	return p
}

// Render implements view.Sink
func (p *TablePrinter) Render(table view.Table) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var b strings.Builder
	if p.terminal {
		b.WriteString(clearScreen)
	} else if p.frames > 0 {
		b.WriteString("\n")
	}
	p.frames++

	p.write(&b, table)
	io.WriteString(p.out, b.String())
}

// Print writes the table once without any redraw handling.
func (p *TablePrinter) Print(table view.Table) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var b strings.Builder
	p.write(&b, table)
	_, err := io.WriteString(p.out, b.String())
	return err
}

func (p *TablePrinter) write(b *strings.Builder, table view.Table) {
	width := p.terminalWidth()
	b.WriteString(p.colors.Status.Sprint(StatusLine(p.loc, table)))
	b.WriteString("\n")

	cells := make([][]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		if row.Placeholder {
			continue
		}
		cells = append(cells, rowCells(table.Columns, row))
	}
	widths := ColumnWidths(table.Columns, cells, width)

	titles := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		title := Fit(HeaderTitle(col), widths[i])
		if col.Interactive {
			titles[i] = p.colors.Interactive.Sprint(title)
		} else {
			titles[i] = p.colors.Header.Sprint(title)
		}
	}
	b.WriteString(strings.TrimRight(strings.Join(titles, "  "), " "))
	b.WriteString("\n")

	next := 0
	for _, row := range table.Rows {
		if row.Placeholder {
			// one row spanning every column
			b.WriteString(p.colors.Placeholder.Sprint(Fit(row.Text, width)))
			b.WriteString("\n")
			continue
		}
		text := cells[next]
		next++
		line := make([]string, len(table.Columns))
		for i, col := range table.Columns {
			line[i] = p.colorCell(col.Key, row, Fit(text[i], widths[i]))
		}
		b.WriteString(strings.TrimRight(strings.Join(line, "  "), " "))
		b.WriteString("\n")
	}
}

func (p *TablePrinter) colorCell(key view.ColumnKey, row view.Row, text string) string {
	switch key {
	case view.ColumnMethod:
		return p.colors.MethodColor(row.Request.Method).Sprint(text)
	case view.ColumnTimestamp:
		return p.colors.Timestamp.Sprint(text)
	case view.ColumnURL:
		if row.URLInteractive {
			return p.colors.Interactive.Sprint(text)
		}
	}
	return text
}

// StatusLine summarises a table as "Showing m of n requests · filter".
func StatusLine(loc i18n.Localizer, table view.Table) string {
	parts := []string{loc.Tf(keyStatusShowing, humanize.Comma(int64(table.Matched)), humanize.Comma(int64(table.Total)))}
	if table.Filtered {
		parts = append(parts, loc.Tf(keyStatusFilter, table.Filter))
	} else {
		parts = append(parts, loc.T(keyStatusUnfiltered))
	}
	return strings.Join(parts, " · ")
}

// StaleNotice tells that stored is ahead of what the table shows, or returns
// "" when it is not.
func StaleNotice(loc i18n.Localizer, table view.Table, stored int) string {
	if stored <= table.Total {
		return ""
	}
	return loc.Tf(keyStatusStale, humanize.Comma(int64(stored)))
}

// HeaderTitle marks the URL header while it clears the filter.
func HeaderTitle(col view.Column) string {
	if col.Interactive {
		return "[" + col.Title + "]"
	}
	return col.Title
}

func rowCells(columns []view.Column, row view.Row) []string {
	cells := make([]string, len(columns))
	for i, col := range columns {
		cells[i] = CellText(col.Key, row)
	}
	return cells
}

// CellText returns the single-line text of a cell.
func CellText(key view.ColumnKey, row view.Row) string {
	switch key {
	case view.ColumnID:
		return row.Request.ID.String()
	case view.ColumnTimestamp:
		return row.Timestamp
	case view.ColumnMethod:
		return row.Request.Method
	case view.ColumnURL:
		return row.Request.URL
	case view.ColumnBody:
		return singleLine(row.Request.Body)
	case view.ColumnHeaders:
		return HeaderSummary(row.Headers)
	default:
		return ""
	}
}

// HeaderSummary joins headers as "Name: value; ...".
func HeaderSummary(headers []capture.Header) string {
	parts := make([]string, 0, len(headers))
	for _, h := range headers {
		parts = append(parts, h.Name+": "+h.Value)
	}
	return singleLine(strings.Join(parts, "; "))
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ColumnWidths sizes every column to its widest cell. The last column takes
// whatever room is left so the row fits the terminal.
func ColumnWidths(columns []view.Column, cells [][]string, total int) []int {
	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = runewidth.StringWidth(HeaderTitle(col))
	}
	for _, row := range cells {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	const gap = 2
	const maxFixed = 48
	used := 0
	for i := 0; i < len(widths)-1; i++ {
		if widths[i] > maxFixed {
			widths[i] = maxFixed
		}
		used += widths[i] + gap
	}
	if last := len(widths) - 1; last >= 0 {
		remaining := total - used
		if remaining < 8 {
			remaining = 8
		}
		if widths[last] > remaining {
			widths[last] = remaining
		}
	}
	return widths
}

// Fit truncates s to width cells and pads it on the right.
func Fit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "…")
	}
	return runewidth.FillRight(s, width)
}

// terminalWidth gets the current terminal width with fallback
func (p *TablePrinter) terminalWidth() int {
	if testWidth := os.Getenv("REQWATCH_TEST_WIDTH"); testWidth != "" {
		if width, err := strconv.Atoi(testWidth); err == nil {
			return clampWidth(width)
		}
	}
	if f, ok := p.out.(*os.File); ok && p.terminal {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil {
			return clampWidth(width)
		}
	}
	return 120
}

func clampWidth(width int) int {
	switch {
	case width < minWidth:
		return minWidth
	case width > maxWidth:
		return maxWidth
	default:
		return width
	}
}
