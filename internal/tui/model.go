package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/funnyzak/reqwatch/internal/logger"
	"github.com/funnyzak/reqwatch/internal/printer"
	"github.com/funnyzak/reqwatch/internal/view"
	"github.com/funnyzak/reqwatch/pkg/i18n"
)

const (
	defaultWidth  = 100
	flashDuration = 3 * time.Second
)

// clipboardWrite is swapped in tests.
var clipboardWrite = clipboard.WriteAll

// Options configures the viewer model.
type Options struct {
	Session   *view.Session
	Backend   view.Backend
	Localizer i18n.Localizer
	Formatter *printer.BodyFormatter
	// Confirm asks before a clear is sent.
	Confirm bool
	Log     logger.Logger
}

// Model is the bubbletea model of the live view. All session calls happen in
// Update, so the session never sees concurrent access.
type Model struct {
	ctx       context.Context
	session   *view.Session
	backend   view.Backend
	loc       i18n.Localizer
	formatter *printer.BodyFormatter
	log       logger.Logger
	confirm   bool

	keys   keyMap
	help   help.Model
	styles styles

	width  int
	height int
	cursor int
	offset int
	detail bool
	live   bool

	flash    string
	flashSeq int

	pulls *pullTracker
}

// pullTracker numbers pulls in the order they are started. Pulls run as
// concurrent commands and may finish in any order; only a result newer than
// the last applied one, and started after the last filter change, is applied.
type pullTracker struct {
	issued  uint64
	applied uint64
	floor   uint64
}

func (p *pullTracker) next() uint64 {
	p.issued++
	return p.issued
}

// filterChanged marks every pull started so far as stale.
func (p *pullTracker) filterChanged() {
	p.floor = p.issued + 1
}

func (p *pullTracker) stale(seq uint64) bool {
	return seq < p.floor || seq <= p.applied
}

func (p *pullTracker) accept(seq uint64) bool {
	if p.stale(seq) {
		return false
	}
	p.applied = seq
	return true
}

// New creates the model. ctx bounds the outbound requests started by effects.
func New(ctx context.Context, opts Options) Model {
	return Model{
		ctx:       ctx,
		session:   opts.Session,
		backend:   opts.Backend,
		loc:       opts.Localizer,
		formatter: opts.Formatter,
		log:       opts.Log,
		confirm:   opts.Confirm,
		keys:      newKeyMap(opts.Localizer),
		help:      help.New(),
		styles:    newStyles(),
		pulls:     &pullTracker{},
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.effectCmds(m.session.Start())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ensureVisible()
		return m, nil

	case PushMsg:
		m.live = true
		cmd := m.effectCmds(m.session.HandleEvent(msg.Event))
		m.ensureVisible()
		return m, cmd

	case StreamEndedMsg:
		m.live = false
		return m, nil

	case fetchResultMsg:
		if m.pulls.stale(msg.seq) {
			m.log.Debug("discarding stale pull", "seq", msg.seq, "url", msg.url)
			return m, nil
		}
		if msg.err != nil {
			return m.setFlash(m.loc.Tf("view.fetch.failed", msg.err))
		}
		m.pulls.accept(msg.seq)
		if err := m.session.ApplySnapshot(msg.requests); err != nil {
			return m.setFlash(m.loc.Tf("view.fetch.failed", err))
		}
		m.ensureVisible()
		return m, nil

	case clearResultMsg:
		if msg.err != nil {
			return m.setFlash(m.loc.Tf("view.clear.failed", msg.err))
		}
		return m.setFlash(m.loc.T("view.clear.requested"))

	case clearFlashMsg:
		if msg.seq == m.flashSeq {
			m.flash = ""
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.session.AwaitingConfirm() {
		switch msg.String() {
		case "y", "Y", "enter":
			return m.gesture(view.ConfirmClear(true))
		case "n", "N", "esc":
			return m.gesture(view.ConfirmClear(false))
		case "ctrl+c":
			return m, tea.Quit
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.cursor--
		m.ensureVisible()
	case key.Matches(msg, m.keys.Down):
		m.cursor++
		m.ensureVisible()
	case key.Matches(msg, m.keys.Filter):
		if row, ok := m.selected(); ok && row.URLInteractive {
			return m.gesture(view.ClickURL(row.Request.URL))
		}
	case key.Matches(msg, m.keys.Unfilter):
		if m.session.Table().Filtered {
			return m.gesture(view.ClickHeader())
		}
	case key.Matches(msg, m.keys.Clear):
		return m.gesture(view.ClickClear())
	case key.Matches(msg, m.keys.Detail):
		m.detail = !m.detail
		m.ensureVisible()
	case key.Matches(msg, m.keys.CopyURL):
		if row, ok := m.selected(); ok {
			return m.copy(m.loc.T("view.columns.url"), row.Request.URL)
		}
	case key.Matches(msg, m.keys.CopyBody):
		if row, ok := m.selected(); ok {
			return m.copy(m.loc.T("view.columns.body"), row.Request.Body)
		}
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m Model) gesture(g view.Gesture) (tea.Model, tea.Cmd) {
	out, err := m.session.HandleGesture(g)
	if err != nil {
		return m, nil
	}
	if out.Prompt && !m.confirm {
		out, _ = m.session.HandleGesture(view.ConfirmClear(true))
	}
	if out.Render {
		m.cursor, m.offset = 0, 0
		m.pulls.filterChanged()
	}
	return m, m.effectCmds(out.Effects)
}

func (m Model) copy(label, text string) (tea.Model, tea.Cmd) {
	if err := clipboardWrite(text); err != nil {
		return m.setFlash(m.loc.Tf("tui.copy_failed", err))
	}
	return m.setFlash(m.loc.Tf("tui.copied", label))
}

func (m Model) setFlash(text string) (tea.Model, tea.Cmd) {
	m.flashSeq++
	m.flash = text
	seq := m.flashSeq
	return m, tea.Tick(flashDuration, func(time.Time) tea.Msg {
		return clearFlashMsg{seq: seq}
	})
}

func (m Model) effectCmds(effects []view.Effect) tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(effects))
	for _, eff := range effects {
		if m.backend == nil {
			m.log.Warn("no backend for effect", "effect", eff.Kind.String())
			continue
		}
		switch eff.Kind {
		case view.EffectFetch:
			cmds = append(cmds, fetchCmd(m.ctx, m.backend, m.pulls.next(), eff.URL))
		case view.EffectClear:
			cmds = append(cmds, clearCmd(m.ctx, m.backend))
		}
	}
	return tea.Batch(cmds...)
}

func fetchCmd(ctx context.Context, backend view.Backend, seq uint64, url string) tea.Cmd {
	return func() tea.Msg {
		requests, err := backend.Fetch(ctx, url)
		return fetchResultMsg{seq: seq, url: url, requests: requests, err: err}
	}
}

func clearCmd(ctx context.Context, backend view.Backend) tea.Cmd {
	return func() tea.Msg {
		return clearResultMsg{err: backend.Clear(ctx)}
	}
}

// selected returns the row under the cursor, if it is a real request.
func (m Model) selected() (view.Row, bool) {
	rows := m.session.Table().Rows
	if m.cursor < 0 || m.cursor >= len(rows) || rows[m.cursor].Placeholder {
		return view.Row{}, false
	}
	return rows[m.cursor], true
}

// ensureVisible clamps the cursor to the table and scrolls it into view.
func (m *Model) ensureVisible() {
	n := len(m.session.Table().Rows)
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	visible := m.visibleRows()
	if visible <= 0 {
		m.offset = 0
		return
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
	if last := n - visible; m.offset > last {
		m.offset = last
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// visibleRows is the number of table rows that fit, or 0 when the height is
// still unknown.
func (m Model) visibleRows() int {
	if m.height <= 0 {
		return 0
	}
	// title, column header, flash and help lines
	reserved := 4
	if m.detail {
		reserved += m.detailHeight()
	}
	if rows := m.height - reserved; rows > 1 {
		return rows
	}
	return 1
}

func (m Model) detailHeight() int {
	return m.height / 2
}

func (m Model) viewWidth() int {
	if m.width > 0 {
		return m.width
	}
	return defaultWidth
}

// View implements tea.Model.
func (m Model) View() string {
	table := m.session.Table()

	var b strings.Builder
	b.WriteString(m.titleLine(table))
	b.WriteString("\n")

	if m.session.AwaitingConfirm() {
		b.WriteString(m.modalView())
	} else {
		b.WriteString(m.tableView(table))
		if m.detail {
			if row, ok := m.selected(); ok {
				b.WriteString(m.detailView(row))
				b.WriteString("\n")
			}
		}
	}

	if m.flash != "" {
		b.WriteString(m.styles.Notice.Render(m.flash))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) titleLine(table view.Table) string {
	state := m.styles.Offline.Render("● " + m.loc.T("tui.disconnected"))
	if m.live {
		state = m.styles.Live.Render("● " + m.loc.T("tui.connected"))
	}
	parts := []string{
		m.styles.Title.Render(m.loc.T("tui.title")),
		state,
		m.styles.Status.Render(printer.StatusLine(m.loc, table)),
	}
	if stale := printer.StaleNotice(m.loc, table, m.session.Len()); stale != "" {
		parts = append(parts, m.styles.Notice.Render(stale))
	}
	return strings.Join(parts, "  ")
}

func (m Model) tableView(table view.Table) string {
	width := m.viewWidth()

	cells := make([][]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		if row.Placeholder {
			continue
		}
		line := make([]string, len(table.Columns))
		for i, col := range table.Columns {
			line[i] = printer.CellText(col.Key, row)
		}
		cells = append(cells, line)
	}
	// two cells for the cursor marker
	widths := printer.ColumnWidths(table.Columns, cells, width-2)

	var b strings.Builder
	titles := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		title := printer.Fit(printer.HeaderTitle(col), widths[i])
		if col.Interactive {
			titles[i] = m.styles.Interactive.Render(title)
		} else {
			titles[i] = m.styles.Header.Render(title)
		}
	}
	b.WriteString("  " + strings.Join(titles, "  "))
	b.WriteString("\n")

	end := len(table.Rows)
	if visible := m.visibleRows(); visible > 0 && m.offset+visible < end {
		end = m.offset + visible
	}
	for i := m.offset; i < end; i++ {
		row := table.Rows[i]
		if row.Placeholder {
			b.WriteString("  " + m.styles.Placeholder.Render(printer.Fit(row.Text, width-2)))
			b.WriteString("\n")
			continue
		}
		b.WriteString(m.rowView(table.Columns, row, cells[i], widths, i == m.cursor))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) rowView(columns []view.Column, row view.Row, text []string, widths []int, selected bool) string {
	parts := make([]string, len(columns))
	for i, col := range columns {
		cell := printer.Fit(text[i], widths[i])
		switch {
		case selected:
			parts[i] = cell
		case col.Key == view.ColumnMethod:
			parts[i] = m.styles.method(strings.ToUpper(row.Request.Method)).Render(cell)
		case col.Key == view.ColumnURL && row.URLInteractive:
			parts[i] = m.styles.Interactive.Render(cell)
		default:
			parts[i] = cell
		}
	}
	line := strings.Join(parts, "  ")
	if selected {
		return m.styles.Selected.Render("▸ " + line)
	}
	return "  " + line
}

func (m Model) detailView(row view.Row) string {
	var b strings.Builder
	b.WriteString(m.styles.DetailTitle.Render(m.loc.T("tui.detail.headers")))
	b.WriteString("\n")

	headers, err := view.VisibleHeaders(row.Request)
	switch {
	case err != nil:
		b.WriteString(m.styles.Notice.Render(m.loc.T("tui.detail.invalid_headers")))
		b.WriteString("\n")
	case len(headers) == 0:
		b.WriteString(m.styles.Notice.Render(m.loc.T("tui.detail.no_headers")))
		b.WriteString("\n")
	default:
		for _, h := range headers {
			fmt.Fprintf(&b, "%s: %s\n", m.styles.HeaderName.Render(h.Name), h.Value)
		}
	}

	b.WriteString(m.styles.DetailTitle.Render(m.loc.T("tui.detail.body")))
	b.WriteString("\n")
	body := m.formatter.Format(row.Request)
	b.WriteString(body.Text)
	for _, notice := range body.Notices {
		b.WriteString("\n")
		b.WriteString(m.styles.Notice.Render(notice))
	}

	content := b.String()
	if limit := m.detailHeight() - 2; m.height > 0 && limit > 0 {
		lines := strings.Split(content, "\n")
		if len(lines) > limit {
			content = strings.Join(lines[:limit], "\n")
		}
	}
	return m.styles.Detail.Width(m.viewWidth() - 2).Render(content)
}

func (m Model) modalView() string {
	box := m.styles.Modal.Render(lipgloss.JoinVertical(lipgloss.Center,
		m.styles.ModalTitle.Render(m.loc.T("view.prompt.clear_modal")),
		"",
		m.styles.ModalHint.Render(m.loc.T("view.prompt.clear_hint")),
	))
	height := lipgloss.Height(box)
	if m.height > 0 {
		height = m.height - 2
	}
	return lipgloss.Place(m.viewWidth(), height, lipgloss.Center, lipgloss.Center, box) + "\n"
}
