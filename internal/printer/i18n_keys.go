package printer

const (
	keyPlaceholder      = "view.placeholder"
	keyStatusShowing    = "view.status.showing"
	keyStatusFilter     = "view.status.filter"
	keyStatusUnfiltered = "view.status.unfiltered"
	keyStatusStale      = "view.status.stale"
	keyPromptClear      = "view.prompt.clear"
	keyBodyEmpty        = "cli.body.empty"
	keyBodyTruncate     = "cli.body.truncate_hint"
	keyBodyBinary       = "cli.body.binary_summary"
	keyBodyHexTitle     = "cli.body.hex_preview_title"
	keyBodyHexTruncate  = "cli.body.hex_preview_truncate"
	keyJSONIndentSkip   = "cli.json.indent_skipped"
	keyFormTitle        = "cli.form.title"
	keyFormKeyHeader    = "cli.form.key_header"
	keyFormValueHeader  = "cli.form.value_header"
)

// ColumnTitleKey returns the translation key of a column title.
func ColumnTitleKey(key string) string {
	return "view.columns." + key
}
