package printer

import (
	"strings"
	"testing"

	"github.com/funnyzak/reqwatch/internal/config"
	"github.com/funnyzak/reqwatch/pkg/capture"
)

func bodyViewConfig() *config.BodyViewConfig {
	return &config.BodyViewConfig{
		Enable: true,
		Json:   config.JSONViewConfig{Enable: true, Pretty: true},
		Form:   config.FormViewConfig{Enable: true},
		XML:    config.XMLViewConfig{Enable: true, Pretty: true, StripControl: true},
		HTML:   config.HTMLViewConfig{Enable: true, Pretty: true, StripControl: true},
		Binary: config.BinaryViewConfig{HexPreviewEnable: true, HexPreviewBytes: 4},
	}
}

func withContentType(body, contentType string) capture.Request {
	return capture.Request{
		ID:      "1",
		Body:    body,
		Headers: capture.EncodeHeaders(map[string]string{"Content-Type": contentType}),
	}
}

func TestBodyFormatterJSON(t *testing.T) {
	f := NewBodyFormatter(bodyViewConfig(), noopLogger{}, localizer(t, "en"))

	res := f.Format(withContentType(`{"a":1,"b":{"c":"d"}}`, "application/json"))
	if !strings.Contains(res.Text, "\n  \"a\": 1") {
		t.Fatalf("expected indented JSON, got %q", res.Text)
	}

	// content sniffing without a content type
	res = f.Format(capture.Request{Body: `[{"x":true}]`})
	if !strings.Contains(res.Text, `"x": true`) {
		t.Fatalf("expected sniffed JSON, got %q", res.Text)
	}

	cfg := bodyViewConfig()
	cfg.Json.MaxIndentBytes = 4
	res = NewBodyFormatter(cfg, noopLogger{}, localizer(t, "en")).Format(withContentType(`{"a":1}`, "application/json"))
	if res.Text != `{"a":1}` || len(res.Notices) != 1 {
		t.Fatalf("expected raw JSON with notice, got %+v", res)
	}
}

func TestBodyFormatterForm(t *testing.T) {
	f := NewBodyFormatter(bodyViewConfig(), noopLogger{}, localizer(t, "en"))
	res := f.Format(withContentType("b=2&a=1&a=3", "application/x-www-form-urlencoded; charset=utf-8"))

	if !strings.HasPrefix(res.Text, "Form data:") {
		t.Fatalf("expected form title, got %q", res.Text)
	}
	if !strings.Contains(res.Text, "a   │ 1, 3") || strings.Index(res.Text, "a ") > strings.Index(res.Text, "b ") {
		t.Fatalf("expected sorted joined values, got %q", res.Text)
	}
}

func TestBodyFormatterXMLAndHTML(t *testing.T) {
	f := NewBodyFormatter(bodyViewConfig(), noopLogger{}, localizer(t, "en"))

	res := f.Format(withContentType("<a><b>1</b></a>", "application/xml"))
	if !strings.Contains(res.Text, "\n  <b>1</b>") {
		t.Fatalf("expected indented XML, got %q", res.Text)
	}

	res = f.Format(capture.Request{Body: "<!DOCTYPE html><html><body><p>hi</p></body></html>"})
	if !strings.Contains(res.Text, "<p>") || !strings.Contains(res.Text, "hi") {
		t.Fatalf("expected rendered HTML, got %q", res.Text)
	}
}

func TestBodyFormatterEdgeCases(t *testing.T) {
	f := NewBodyFormatter(bodyViewConfig(), noopLogger{}, localizer(t, "en"))

	if res := f.Format(capture.Request{}); res.Text != "(empty body)" {
		t.Fatalf("expected empty marker, got %q", res.Text)
	}

	res := f.Format(capture.Request{Body: string([]byte{0xff, 0xfe, 0x00, 0x01, 0x02, 0x03})})
	if len(res.Notices) != 2 || !strings.Contains(res.Text, "Hex preview") || !strings.Contains(res.Text, "ff fe 00 01") {
		t.Fatalf("expected hex preview with notices, got %+v", res)
	}

	cfg := bodyViewConfig()
	cfg.MaxPreviewBytes = 5
	res = NewBodyFormatter(cfg, noopLogger{}, localizer(t, "en")).Format(capture.Request{Body: "héllo world"})
	if res.Text != "héll" {
		t.Fatalf("unexpected truncation %q", res.Text)
	}
	if len(res.Notices) != 1 {
		t.Fatalf("expected truncation notice, got %v", res.Notices)
	}

	cfg = bodyViewConfig()
	cfg.Enable = false
	res = NewBodyFormatter(cfg, noopLogger{}, localizer(t, "en")).Format(withContentType(`{"a":1}`, "application/json"))
	if res.Text != `{"a":1}` {
		t.Fatalf("disabled formatter must return raw body, got %q", res.Text)
	}
}
