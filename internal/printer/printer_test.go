package printer

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/funnyzak/reqwatch/internal/config"
	"github.com/funnyzak/reqwatch/internal/logger"
	"github.com/funnyzak/reqwatch/internal/view"
	"github.com/funnyzak/reqwatch/pkg/capture"
	"github.com/funnyzak/reqwatch/pkg/i18n"
)

func init() {
	color.NoColor = true
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{})          {}
func (noopLogger) Info(string, ...interface{})           {}
func (noopLogger) Warn(string, ...interface{})           {}
func (noopLogger) Error(string, ...interface{})          {}
func (noopLogger) Fatal(string, ...interface{})          {}
func (l noopLogger) With(...interface{}) logger.Logger { return l }

func localizer(t *testing.T, locale string) i18n.Localizer {
	t.Helper()
	tr, err := i18n.NewTranslator("en")
	if err != nil {
		t.Fatalf("NewTranslator failed: %v", err)
	}
	return tr.For(locale)
}

func sampleTable(t *testing.T, filter string, headers bool) view.Table {
	t.Helper()
	snapshot := []capture.Request{
		{ID: "1", Timestamp: "2024-05-01T10:00:01Z", Method: "GET", URL: "/a", Body: ""},
		{ID: "2", Timestamp: "2024-05-01T10:00:02Z", Method: "POST", URL: "/b", Body: "line one\nline two",
			Headers: `{"Content-Type":"text/plain","Sec-Ch-Ua":"x"}`},
	}
	var f view.Filter
	if filter != "" {
		f.Set(filter)
	}
	return view.Render(snapshot, f, RenderOptions(localizer(t, "en"), headers))
}

func TestTablePrinterRender(t *testing.T) {
	t.Setenv("REQWATCH_TEST_WIDTH", "100")
	buf := &bytes.Buffer{}
	p := NewTablePrinter(buf, localizer(t, "en"))

	p.Render(sampleTable(t, "", true))
	out := buf.String()

	if !strings.Contains(out, "Showing 2 of 2 requests · All URLs") {
		t.Fatalf("missing status line:\n%s", out)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected status, header and two rows, got %d lines:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[1], "ID") || strings.Contains(lines[1], "[URL]") {
		t.Fatalf("unexpected header line %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "2 ") || !strings.Contains(lines[2], "2024-05-01 10:00:02Z") {
		t.Fatalf("expected newest row first, got %q", lines[2])
	}
	if !strings.Contains(lines[2], "line one line two") {
		t.Fatalf("body must be flattened to one line, got %q", lines[2])
	}
	if !strings.Contains(lines[2], "Content-Type: text/plain") || strings.Contains(lines[2], "Sec-Ch-Ua") {
		t.Fatalf("unexpected headers cell in %q", lines[2])
	}
}

func TestTablePrinterFilteredAndPlaceholder(t *testing.T) {
	t.Setenv("REQWATCH_TEST_WIDTH", "80")
	buf := &bytes.Buffer{}
	p := NewTablePrinter(buf, localizer(t, "zh-CN"))

	p.Render(sampleTable(t, "/missing", false))
	out := buf.String()
	if !strings.Contains(out, "筛选：/missing") {
		t.Fatalf("missing localized filter status:\n%s", out)
	}
	if !strings.Contains(out, "[URL]") || !strings.Contains(out, "No requests") {
		t.Fatalf("expected interactive header marker and placeholder:\n%s", out)
	}

	buf.Reset()
	p.Render(sampleTable(t, "/a", false))
	if !strings.HasPrefix(buf.String(), "\n") {
		t.Fatal("non-terminal redraws are separated by a blank line")
	}
}

func TestFitTruncatesWideText(t *testing.T) {
	got := Fit("你好世界", 5)
	if runewidth.StringWidth(got) != 5 || !strings.HasPrefix(got, "你") || !strings.Contains(got, "…") {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := Fit("ab", 4); got != "ab  " {
		t.Fatalf("expected padding, got %q", got)
	}
}

func TestJSONPrinterRender(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewJSONPrinter(buf, noopLogger{})

	p.Render(sampleTable(t, "/a", true))
	p.Render(sampleTable(t, "/zzz", false))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected one line per render, got %d", len(lines))
	}

	var first map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if first["type"] != "table" || first["filter"] != "/a" || first["matched"] != float64(1) {
		t.Fatalf("unexpected envelope %v", first)
	}
	rows := first["rows"].([]interface{})
	if len(rows) != 1 || rows[0].(map[string]interface{})["id"] != "1" {
		t.Fatalf("unexpected rows %v", rows)
	}

	var second map[string]interface{}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if second["placeholder"] != "No requests" || len(second["rows"].([]interface{})) != 0 {
		t.Fatalf("expected placeholder envelope, got %v", second)
	}
}

func TestWriteTableFormats(t *testing.T) {
	table := sampleTable(t, "", true)
	loc := localizer(t, "en")

	var jsonBuf bytes.Buffer
	if err := WriteTable(&jsonBuf, FormatJSON, table, loc); err != nil {
		t.Fatalf("json export failed: %v", err)
	}
	var records []RowRecord
	if err := json.Unmarshal(jsonBuf.Bytes(), &records); err != nil {
		t.Fatalf("invalid json export: %v", err)
	}
	if len(records) != 2 || records[0].ID != "2" || records[0].Body != "line one\nline two" {
		t.Fatalf("unexpected records %+v", records)
	}

	var csvBuf bytes.Buffer
	if err := WriteTable(&csvBuf, FormatCSV, table, loc); err != nil {
		t.Fatalf("csv export failed: %v", err)
	}
	rows, err := csv.NewReader(&csvBuf).ReadAll()
	if err != nil {
		t.Fatalf("invalid csv: %v", err)
	}
	if len(rows) != 3 || rows[0][0] != "id" || rows[0][5] != "headers" {
		t.Fatalf("unexpected csv %v", rows)
	}
	if rows[1][4] != "line one\nline two" || !strings.Contains(rows[1][5], "Content-Type") {
		t.Fatalf("unexpected csv row %v", rows[1])
	}
	if rows[2][5] != "" {
		t.Fatalf("expected empty headers cell, got %q", rows[2][5])
	}

	var tableBuf bytes.Buffer
	if err := WriteTable(&tableBuf, "", table, loc); err != nil {
		t.Fatalf("table export failed: %v", err)
	}
	if strings.HasPrefix(tableBuf.String(), "\n") || !strings.Contains(tableBuf.String(), "Showing 2 of 2") {
		t.Fatalf("unexpected table export:\n%s", tableBuf.String())
	}

	if err := WriteTable(&bytes.Buffer{}, "xml", table, loc); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewSelectsPrinter(t *testing.T) {
	buf := &bytes.Buffer{}
	if _, ok := New(config.OutputJSON, Options{Out: buf, Log: noopLogger{}}).(*JSONPrinter); !ok {
		t.Fatal("expected JSON printer")
	}
	if _, ok := New(config.OutputPlain, Options{Out: buf}).(*TablePrinter); !ok {
		t.Fatal("expected table printer")
	}
}

func TestConsoleGestures(t *testing.T) {
	input := strings.NewReader("f /hook\nbogus\nu\nc\ny\nc\nnope\nq\n")
	out := &bytes.Buffer{}
	quit := make(chan struct{})
	console := NewConsole(input, out, localizer(t, "en"), true, func() { close(quit) })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	gestures := console.Gestures(ctx)

	expect := func(kind view.GestureKind) view.Gesture {
		t.Helper()
		select {
		case g := <-gestures:
			if g.Kind != kind {
				t.Fatalf("expected %s, got %s", kind, g.Kind)
			}
			return g
		case <-ctx.Done():
			t.Fatalf("timed out waiting for %s", kind)
		}
		return view.Gesture{}
	}

	if g := expect(view.GestureClickURL); g.URL != "/hook" {
		t.Fatalf("expected /hook, got %q", g.URL)
	}
	expect(view.GestureClickHeader)

	expect(view.GestureClickClear)
	if ok, err := console.Confirm(ctx); err != nil || !ok {
		t.Fatalf("expected accepted prompt, got %v %v", ok, err)
	}

	expect(view.GestureClickClear)
	if ok, _ := console.Confirm(ctx); ok {
		t.Fatal("expected declined prompt")
	}

	select {
	case <-quit:
	case <-ctx.Done():
		t.Fatal("quit was not called")
	}
	if _, open := <-gestures; open {
		t.Fatal("expected gestures channel to close at end of input")
	}
	if !strings.Contains(out.String(), "commands:") {
		t.Fatal("unknown commands should print help")
	}
	if ok, _ := console.Confirm(ctx); ok {
		t.Fatal("end of input must decline")
	}
}

func TestStaleNotice(t *testing.T) {
	loc := localizer(t, "en")
	table := sampleTable(t, "/a", false)

	if got := StaleNotice(loc, table, table.Total); got != "" {
		t.Fatalf("expected no notice, got %q", got)
	}
	if got := StaleNotice(loc, table, 1200); got != "1,200 stored, view waiting for a matching update" {
		t.Fatalf("unexpected notice %q", got)
	}
}
