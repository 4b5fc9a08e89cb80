package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/funnyzak/reqwatch/internal/logger"
	"github.com/funnyzak/reqwatch/internal/printer"
	"github.com/funnyzak/reqwatch/internal/view"
	"github.com/funnyzak/reqwatch/pkg/capture"
	"github.com/funnyzak/reqwatch/pkg/i18n"
)

type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{})          {}
func (noopLogger) Info(string, ...interface{})           {}
func (noopLogger) Warn(string, ...interface{})           {}
func (noopLogger) Error(string, ...interface{})          {}
func (noopLogger) Fatal(string, ...interface{})          {}
func (l noopLogger) With(...interface{}) logger.Logger { return l }

type fakeBackend struct {
	snapshot []capture.Request
	fetched  []string
	clears   int
	clearErr error
}

func (b *fakeBackend) Fetch(_ context.Context, url string) ([]capture.Request, error) {
	b.fetched = append(b.fetched, url)
	var out []capture.Request
	for _, r := range b.snapshot {
		if url == "" || r.URL == url {
			out = append(out, r)
		}
	}
	return out, nil
}

func (b *fakeBackend) Clear(context.Context) error {
	b.clears++
	return b.clearErr
}

func keyMsg(k string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func specialKeyMsg(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

func req(id, url string) capture.Request {
	return capture.Request{ID: capture.ID(id), Timestamp: "2024-05-01T10:00:0" + id + "Z", Method: "POST", URL: url, Body: "body-" + id}
}

func pushList(t *testing.T, name capture.EventName, reqs ...capture.Request) PushMsg {
	t.Helper()
	ev, err := capture.NewListEvent(name, reqs)
	if err != nil {
		t.Fatalf("NewListEvent failed: %v", err)
	}
	return PushMsg{Event: ev}
}

func pushNew(t *testing.T, r capture.Request) PushMsg {
	t.Helper()
	ev, err := capture.NewRequestEvent(r)
	if err != nil {
		t.Fatalf("NewRequestEvent failed: %v", err)
	}
	return PushMsg{Event: ev}
}

func newTestModel(t *testing.T, mode view.Mode, confirm bool, backend view.Backend) Model {
	t.Helper()
	tr, err := i18n.NewTranslator("en")
	if err != nil {
		t.Fatalf("NewTranslator failed: %v", err)
	}
	loc := tr.For("en")
	session := view.NewSession(view.SessionConfig{
		Mode:   mode,
		Render: printer.RenderOptions(loc, true),
	}, nil, noopLogger{})
	return New(context.Background(), Options{
		Session:   session,
		Backend:   backend,
		Localizer: loc,
		Confirm:   confirm,
		Log:       noopLogger{},
	})
}

// send feeds msg to the model and runs the returned command once, feeding its
// result back as well.
func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	if cmd == nil {
		return m
	}
	switch out := cmd().(type) {
	case fetchResultMsg, clearResultMsg:
		next, _ = m.Update(out)
		m = next.(Model)
	}
	return m
}

// update feeds msg without running the returned command.
func update(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func rowURLs(m Model) []string {
	var urls []string
	for _, row := range m.session.Table().Rows {
		if !row.Placeholder {
			urls = append(urls, row.Request.URL)
		}
	}
	return urls
}

func TestModelFiltersBySelectedRow(t *testing.T) {
	m := newTestModel(t, view.ModePush, true, &fakeBackend{})
	m = send(t, m, tea.WindowSizeMsg{Width: 120, Height: 30})
	m = send(t, m, pushList(t, capture.EventAll, req("1", "/a"), req("2", "/b"), req("3", "/a")))

	if got := rowURLs(m); strings.Join(got, ",") != "/a,/b,/a" {
		t.Fatalf("unexpected rows %v", got)
	}

	m = send(t, m, specialKeyMsg(tea.KeyDown))
	m = send(t, m, specialKeyMsg(tea.KeyEnter))
	if table := m.session.Table(); !table.Filtered || table.Filter != "/b" {
		t.Fatalf("expected filter /b, got %+v", m.session.Filter())
	}
	if m.cursor != 0 {
		t.Fatalf("cursor should reset on filter change, got %d", m.cursor)
	}

	// URL cells are not interactive while filtered
	m = send(t, m, specialKeyMsg(tea.KeyEnter))
	if m.session.Table().Filter != "/b" {
		t.Fatal("enter must not refilter while filtered")
	}

	m = send(t, m, keyMsg("u"))
	if m.session.Table().Filtered {
		t.Fatal("expected filter cleared")
	}
}

func TestModelNewRequestOutsideFilterLeavesTable(t *testing.T) {
	m := newTestModel(t, view.ModePush, true, &fakeBackend{})
	m = send(t, m, pushList(t, capture.EventAll, req("1", "/a")))
	m = send(t, m, specialKeyMsg(tea.KeyEnter))

	m = send(t, m, pushNew(t, req("2", "/b")))
	if got := rowURLs(m); len(got) != 1 || got[0] != "/a" {
		t.Fatalf("unexpected rows %v", got)
	}
	if !strings.Contains(m.View(), "2 stored") {
		t.Fatalf("expected stale notice in view:\n%s", m.View())
	}
}

func TestModelClearWithConfirmation(t *testing.T) {
	backend := &fakeBackend{}
	m := newTestModel(t, view.ModePush, true, backend)
	m = send(t, m, pushList(t, capture.EventAll, req("1", "/a")))

	m = send(t, m, keyMsg("c"))
	if !m.session.AwaitingConfirm() {
		t.Fatal("expected confirmation prompt")
	}
	if !strings.Contains(m.View(), "Clear all captured requests on the server?") {
		t.Fatalf("expected modal in view:\n%s", m.View())
	}

	m = send(t, m, specialKeyMsg(tea.KeyEsc))
	if m.session.AwaitingConfirm() || backend.clears != 0 {
		t.Fatal("esc must decline without clearing")
	}

	m = send(t, m, keyMsg("c"))
	m = send(t, m, keyMsg("y"))
	if backend.clears != 1 {
		t.Fatalf("expected one clear, got %d", backend.clears)
	}
	if m.flash != "Clear requested, waiting for the server" {
		t.Fatalf("unexpected flash %q", m.flash)
	}
	// rows stay until the server confirms
	if len(rowURLs(m)) != 1 {
		t.Fatal("clear must wait for the server event")
	}

	m = send(t, m, pushList(t, capture.EventClear))
	if !m.session.Table().Empty() {
		t.Fatal("expected empty table after clear event")
	}
}

func TestModelClearWithoutConfirmation(t *testing.T) {
	backend := &fakeBackend{clearErr: errors.New("status 500")}
	m := newTestModel(t, view.ModePush, false, backend)

	m = send(t, m, keyMsg("c"))
	if m.session.AwaitingConfirm() {
		t.Fatal("no prompt expected when confirmation is off")
	}
	if backend.clears != 1 || !strings.Contains(m.flash, "status 500") {
		t.Fatalf("expected failed clear flash, got clears=%d flash=%q", backend.clears, m.flash)
	}
}

func TestModelPollMode(t *testing.T) {
	backend := &fakeBackend{snapshot: []capture.Request{req("1", "/a"), req("2", "/b")}}
	m := newTestModel(t, view.ModePoll, true, backend)

	cmd := m.Init()
	if cmd == nil {
		t.Fatal("poll mode must pull on start")
	}
	m = update(m, cmd())
	if got := rowURLs(m); len(got) != 2 {
		t.Fatalf("expected pulled rows, got %v", got)
	}

	m = send(t, m, specialKeyMsg(tea.KeyEnter))
	if got := rowURLs(m); len(got) != 1 || got[0] != "/b" {
		t.Fatalf("expected filtered pull, got %v", got)
	}
	if backend.fetched[len(backend.fetched)-1] != "/b" {
		t.Fatalf("unexpected fetches %v", backend.fetched)
	}

	// a pull answered after the filter moved on is dropped
	m = update(m, fetchResultMsg{seq: 1, url: "", requests: backend.snapshot})
	if got := rowURLs(m); len(got) != 1 {
		t.Fatalf("stale pull applied: %v", got)
	}
}

func TestModelPollDropsOutOfOrderResults(t *testing.T) {
	backend := &fakeBackend{snapshot: []capture.Request{req("1", "/a"), req("2", "/a")}}
	m := newTestModel(t, view.ModePoll, true, backend)

	next, older := m.Update(pushNew(t, req("2", "/a")))
	m = next.(Model)
	olderResult := older()

	backend.snapshot = append(backend.snapshot, req("3", "/a"))
	next, newer := m.Update(pushNew(t, req("3", "/a")))
	m = next.(Model)
	newerResult := newer()

	m = update(m, newerResult)
	m = update(m, olderResult)
	if got := rowURLs(m); len(got) != 3 {
		t.Fatalf("older pull replaced newer one: %v", got)
	}
}

func TestModelPollDropsPullsFromEarlierFilter(t *testing.T) {
	backend := &fakeBackend{snapshot: []capture.Request{req("1", "/a")}}
	m := newTestModel(t, view.ModePoll, true, backend)
	m = update(m, m.Init()())

	// /a, then unfiltered, then /a again; only the last pull counts
	next, first := m.Update(specialKeyMsg(tea.KeyEnter))
	m = next.(Model)
	firstResult := first()
	next, all := m.Update(keyMsg("u"))
	m = next.(Model)
	allResult := all()
	next, last := m.Update(specialKeyMsg(tea.KeyEnter))
	m = next.(Model)
	if f, _ := m.session.Filter().Value(); f != "/a" {
		t.Fatalf("expected filter /a, got %q", f)
	}
	backend.snapshot = append(backend.snapshot, req("2", "/a"))
	lastResult := last()

	m = update(m, firstResult)
	if got := rowURLs(m); len(got) != 1 {
		t.Fatalf("pull from an earlier filter was applied: %v", got)
	}
	m = update(m, lastResult)
	m = update(m, allResult)
	if got := rowURLs(m); len(got) != 2 {
		t.Fatalf("expected latest filtered pull, got %v", got)
	}
}

func TestModelCopyAndDetail(t *testing.T) {
	var copied string
	orig := clipboardWrite
	clipboardWrite = func(text string) error {
		copied = text
		return nil
	}
	t.Cleanup(func() { clipboardWrite = orig })

	m := newTestModel(t, view.ModePush, true, &fakeBackend{})
	r := req("1", "/hook")
	r.Headers = capture.EncodeHeaders(map[string]string{"X-Token": "abc", "Sec-Fetch-Mode": "cors"})
	m = send(t, m, pushList(t, capture.EventAll, r))

	m = update(m, keyMsg("y"))
	if copied != "/hook" || !strings.Contains(m.flash, "Copied URL") {
		t.Fatalf("unexpected copy result %q flash=%q", copied, m.flash)
	}
	m = update(m, keyMsg("Y"))
	if copied != "body-1" {
		t.Fatalf("expected body copied, got %q", copied)
	}

	m = send(t, m, keyMsg("d"))
	out := m.View()
	if !strings.Contains(out, "X-Token") || strings.Contains(out, "Sec-Fetch-Mode: cors") {
		t.Fatalf("unexpected detail pane:\n%s", out)
	}
}

func TestModelConnectionState(t *testing.T) {
	m := newTestModel(t, view.ModePush, true, &fakeBackend{})
	if !strings.Contains(m.View(), "disconnected") {
		t.Fatal("expected disconnected before the first event")
	}
	m = send(t, m, pushList(t, capture.EventAll))
	if !strings.Contains(m.View(), "live") {
		t.Fatal("expected live after an event")
	}
	m = send(t, m, StreamEndedMsg{Err: errors.New("eof")})
	if m.live {
		t.Fatal("expected offline after stream end")
	}
	if !strings.Contains(m.View(), "No requests") {
		t.Fatal("expected placeholder row")
	}
}

func TestModelCursorScrolls(t *testing.T) {
	m := newTestModel(t, view.ModePush, true, &fakeBackend{})
	m = send(t, m, tea.WindowSizeMsg{Width: 80, Height: 7})

	var reqs []capture.Request
	for _, id := range []string{"1", "2", "3", "4", "5", "6", "7", "8", "9"} {
		reqs = append(reqs, req(id, "/"+id))
	}
	m = send(t, m, pushList(t, capture.EventAll, reqs...))

	for i := 0; i < 20; i++ {
		m = send(t, m, keyMsg("j"))
	}
	if m.cursor != 8 {
		t.Fatalf("cursor should stop at last row, got %d", m.cursor)
	}
	if visible := m.visibleRows(); m.offset != 9-visible {
		t.Fatalf("expected offset %d, got %d", 9-visible, m.offset)
	}
	for i := 0; i < 20; i++ {
		m = send(t, m, keyMsg("k"))
	}
	if m.cursor != 0 || m.offset != 0 {
		t.Fatalf("expected top, got cursor=%d offset=%d", m.cursor, m.offset)
	}
}
