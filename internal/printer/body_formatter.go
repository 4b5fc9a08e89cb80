package printer

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"mime"
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/tidwall/pretty"
	nethtml "golang.org/x/net/html"

	"github.com/funnyzak/reqwatch/internal/config"
	"github.com/funnyzak/reqwatch/internal/logger"
	"github.com/funnyzak/reqwatch/pkg/capture"
	"github.com/funnyzak/reqwatch/pkg/i18n"
)

// BodyFormatter 负责详情视图中的正文格式化
type BodyFormatter struct {
	cfg    *config.BodyViewConfig
	logger logger.Logger
	loc    i18n.Localizer
}

// FormattedBody 格式化结果，Notices 为附加提示
type FormattedBody struct {
	Text    string
	Notices []string
}

// NewBodyFormatter 创建正文格式化器
func NewBodyFormatter(cfg *config.BodyViewConfig, log logger.Logger, loc i18n.Localizer) *BodyFormatter {
	if cfg == nil {
		cfg = &config.BodyViewConfig{}
	}
	return &BodyFormatter{cfg: cfg, logger: log, loc: loc}
}

func (f *BodyFormatter) t(key string) string {
	return f.loc.T(key)
}

// Format 根据 Content-Type 与内容特征选择展示方式
func (f *BodyFormatter) Format(req capture.Request) FormattedBody {
	if f == nil {
		return FormattedBody{Text: req.Body}
	}
	body := []byte(req.Body)
	if len(body) == 0 {
		return FormattedBody{Text: f.t(keyBodyEmpty)}
	}
	if !f.cfg.Enable {
		return FormattedBody{Text: req.Body}
	}
	if !utf8.Valid(body) {
		return f.formatBinary(body)
	}

	res := f.formatText(normalizeMediaType(req.HeaderValue("Content-Type")), body)
	if limit := f.cfg.MaxPreviewBytes; limit > 0 && len(res.Text) > limit {
		total := len(res.Text)
		res.Text = truncateUTF8(res.Text, limit)
		res.Notices = append(res.Notices, fmt.Sprintf(f.t(keyBodyTruncate),
			humanize.Bytes(uint64(limit)), humanize.Bytes(uint64(total))))
	}
	return res
}

func (f *BodyFormatter) formatText(mediaType string, body []byte) FormattedBody {
	if res, ok := f.formatJSON(mediaType, body); ok {
		return res
	}
	if res, ok := f.formatForm(mediaType, body); ok {
		return res
	}
	if res, ok := f.formatXML(mediaType, body); ok {
		return res
	}
	if res, ok := f.formatHTML(mediaType, body); ok {
		return res
	}
	return FormattedBody{Text: string(body)}
}

func (f *BodyFormatter) formatBinary(body []byte) FormattedBody {
	res := FormattedBody{Notices: []string{fmt.Sprintf(f.t(keyBodyBinary), humanize.Bytes(uint64(len(body))))}}
	if !f.cfg.Binary.HexPreviewEnable {
		return res
	}
	preview := body
	limit := f.cfg.Binary.HexPreviewBytes
	if limit > 0 && len(preview) > limit {
		preview = preview[:limit]
		res.Notices = append(res.Notices, fmt.Sprintf(f.t(keyBodyHexTruncate), humanize.Bytes(uint64(limit))))
	}
	res.Text = f.t(keyBodyHexTitle) + "\n" + hex.Dump(preview)
	return res
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func (f *BodyFormatter) formatJSON(mediaType string, body []byte) (FormattedBody, bool) {
	if !f.cfg.Json.Enable {
		return FormattedBody{}, false
	}
	if !looksLikeJSON(mediaType, body) {
		return FormattedBody{}, false
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return FormattedBody{}, false
	}
	if !f.cfg.Json.Pretty {
		return FormattedBody{Text: string(body)}, true
	}
	if f.cfg.Json.MaxIndentBytes > 0 && len(trimmed) > f.cfg.Json.MaxIndentBytes {
		notice := fmt.Sprintf(f.t(keyJSONIndentSkip), humanize.Bytes(uint64(f.cfg.Json.MaxIndentBytes)))
		return FormattedBody{Text: string(body), Notices: []string{notice}}, true
	}
	formatted := pretty.PrettyOptions(trimmed, &pretty.Options{Width: 80, Indent: "  "})
	return FormattedBody{Text: strings.TrimRight(string(formatted), "\n")}, true
}

func (f *BodyFormatter) formatForm(mediaType string, body []byte) (FormattedBody, bool) {
	if !f.cfg.Form.Enable {
		return FormattedBody{}, false
	}
	if !strings.Contains(mediaType, "application/x-www-form-urlencoded") {
		return FormattedBody{}, false
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		if f.logger != nil {
			f.logger.Debug("form parse failed", "error", err)
		}
		return FormattedBody{}, false
	}
	if len(values) == 0 {
		return FormattedBody{Text: string(body)}, true
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	keyHeader := f.t(keyFormKeyHeader)
	valueHeader := f.t(keyFormValueHeader)
	maxKeyWidth := utf8.RuneCountInString(keyHeader)
	for _, key := range keys {
		if w := utf8.RuneCountInString(key); w > maxKeyWidth {
			maxKeyWidth = w
		}
	}
	var builder strings.Builder
	title := f.t(keyFormTitle)
	builder.WriteString(title + "\n")
	fmt.Fprintf(&builder, "%-*s │ %s\n", maxKeyWidth, keyHeader, valueHeader)
	divider := strings.Repeat("─", maxKeyWidth)
	builder.WriteString(divider + "─┼" + strings.Repeat("─", 40) + "\n")
	for _, key := range keys {
		fmt.Fprintf(&builder, "%-*s │ %s\n", maxKeyWidth, key, strings.Join(values[key], ", "))
	}
	return FormattedBody{Text: builder.String()}, true
}

func (f *BodyFormatter) formatXML(mediaType string, body []byte) (FormattedBody, bool) {
	if !f.cfg.XML.Enable {
		return FormattedBody{}, false
	}
	if !strings.Contains(mediaType, "xml") {
		return FormattedBody{}, false
	}
	processed := body
	if f.cfg.XML.StripControl {
		processed = stripControlBytes(processed)
	}
	if !f.cfg.XML.Pretty {
		return FormattedBody{Text: string(processed)}, true
	}
	formatted, err := prettyXML(processed)
	if err != nil {
		if f.logger != nil {
			f.logger.Debug("xml pretty failed", "error", err)
		}
		return FormattedBody{Text: string(processed)}, true
	}
	return FormattedBody{Text: formatted}, true
}

func (f *BodyFormatter) formatHTML(mediaType string, body []byte) (FormattedBody, bool) {
	if !f.cfg.HTML.Enable {
		return FormattedBody{}, false
	}
	if !strings.Contains(mediaType, "html") && !looksLikeHTML(body) {
		return FormattedBody{}, false
	}
	processed := body
	if f.cfg.HTML.StripControl {
		processed = stripControlBytes(processed)
	}
	if !f.cfg.HTML.Pretty {
		return FormattedBody{Text: string(processed)}, true
	}
	formatted, err := prettyHTML(processed)
	if err != nil {
		if f.logger != nil {
			f.logger.Debug("html pretty failed", "error", err)
		}
		return FormattedBody{Text: string(processed)}, true
	}
	return FormattedBody{Text: formatted}, true
}

func normalizeMediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(mediaType)
}

func looksLikeJSON(mediaType string, body []byte) bool {
	if strings.Contains(mediaType, "json") {
		return true
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return false
	}
	first := trimmed[0]
	last := trimmed[len(trimmed)-1]
	return (first == '{' && last == '}') || (first == '[' && last == ']')
}

func looksLikeHTML(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) < 5 {
		return false
	}
	upper := strings.ToLower(string(trimmed[:5]))
	return strings.HasPrefix(upper, "<html") || strings.HasPrefix(upper, "<!doc")
}

func stripControlBytes(b []byte) []byte {
	if len(b) == 0 {
		return b
	}
	buf := make([]byte, 0, len(b))
	for _, ch := range b {
		if ch < 0x20 && ch != '\n' && ch != '\r' && ch != '\t' {
			continue
		}
		buf = append(buf, ch)
	}
	return buf
}

func prettyXML(data []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	var buf bytes.Buffer
	encoder := xml.NewEncoder(&buf)
	encoder.Indent("", "  ")
	for {
		token, err := decoder.Token()
		if err != nil {
			if err == io.EOF {
				break
			}
			return "", err
		}
		if err := encoder.EncodeToken(token); err != nil {
			return "", err
		}
	}
	if err := encoder.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func prettyHTML(data []byte) (string, error) {
	node, err := nethtml.Parse(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	var builder strings.Builder
	renderHTMLNode(&builder, node, 0)
	return builder.String(), nil
}

func renderHTMLNode(builder *strings.Builder, node *nethtml.Node, depth int) {
	switch node.Type {
	case nethtml.DocumentNode:
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			renderHTMLNode(builder, child, depth)
		}
	case nethtml.ElementNode:
		indent := strings.Repeat("  ", depth)
		builder.WriteString(indent)
		builder.WriteString("<" + node.Data)
		for _, attr := range node.Attr {
			builder.WriteString(fmt.Sprintf(" %s=\"%s\"", attr.Key, html.EscapeString(attr.Val)))
		}
		if isVoidElement(node.Data) {
			builder.WriteString(" />\n")
			return
		}
		builder.WriteString(">\n")
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			renderHTMLNode(builder, child, depth+1)
		}
		if node.FirstChild != nil {
			builder.WriteString(indent)
		}
		builder.WriteString("</" + node.Data + ">\n")
	case nethtml.TextNode:
		text := strings.TrimSpace(node.Data)
		if text == "" {
			return
		}
		indent := strings.Repeat("  ", depth)
		builder.WriteString(indent)
		builder.WriteString(text)
		builder.WriteString("\n")
	case nethtml.CommentNode:
		indent := strings.Repeat("  ", depth)
		builder.WriteString(indent)
		builder.WriteString("<!--" + strings.TrimSpace(node.Data) + "-->\n")
	}
}

func isVoidElement(tag string) bool {
	switch strings.ToLower(tag) {
	case "area", "base", "br", "col", "embed", "hr", "img", "input", "keygen", "link", "meta", "param", "source", "track", "wbr":
		return true
	default:
		return false
	}
}
