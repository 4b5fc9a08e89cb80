package printer

import (
	"io"
	"os"

	"github.com/funnyzak/reqwatch/internal/config"
	"github.com/funnyzak/reqwatch/internal/logger"
	"github.com/funnyzak/reqwatch/internal/view"
	"github.com/funnyzak/reqwatch/pkg/i18n"
)

// Options 输出器公共参数
type Options struct {
	Out       io.Writer
	Localizer i18n.Localizer
	Log       logger.Logger
}

// New 创建指定模式的输出器，每次渲染整表输出一次
func New(mode string, opts Options) view.Sink {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	switch mode {
	case config.OutputJSON:
		return NewJSONPrinter(opts.Out, opts.Log)
	default:
		return NewTablePrinter(opts.Out, opts.Localizer)
	}
}

// RenderOptions builds renderer options with localized titles and
// placeholder.
func RenderOptions(loc i18n.Localizer, headers bool) view.Options {
	titles := make(map[view.ColumnKey]string)
	for _, key := range []view.ColumnKey{
		view.ColumnID, view.ColumnTimestamp, view.ColumnMethod,
		view.ColumnURL, view.ColumnBody, view.ColumnHeaders,
	} {
		k := ColumnTitleKey(string(key))
		if text := loc.T(k); text != k {
			titles[key] = text
		}
	}

	placeholder := loc.T(keyPlaceholder)
	if placeholder == keyPlaceholder {
		placeholder = ""
	}
	return view.Options{Headers: headers, Placeholder: placeholder, Titles: titles}
}
