package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/funnyzak/reqwatch/internal/config"
	"github.com/funnyzak/reqwatch/internal/logger"
	"github.com/funnyzak/reqwatch/internal/printer"
	"github.com/funnyzak/reqwatch/internal/tui"
	"github.com/funnyzak/reqwatch/internal/view"
	"github.com/funnyzak/reqwatch/internal/watch"
	"github.com/funnyzak/reqwatch/pkg/i18n"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "reqwatch",
	Short: "Live terminal viewer for captured HTTP requests",
	Long: `ReqWatch follows a request capture server and shows every captured HTTP request as it arrives.

Filter the table by URL, inspect headers and bodies, and clear the captured set, either in a
full-screen terminal UI or as a plain/JSON stream suitable for pipes.
`,
	SilenceUsage: true,
	RunE:         runWatch,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow captured requests live (default command)",
	RunE:  runWatch,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the captured requests once",
	RunE:  runList,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run:   showVersion,
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringP("server", "s", "", "Capture server base URL")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Timeout of pull and clear requests")
	rootCmd.PersistentFlags().String("locale", "", "Display language (en, zh-CN)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().Bool("log-file-enable", false, "Enable file logging")
	rootCmd.PersistentFlags().String("log-file-path", "", "Log file path")

	// Live view flags, shared by the root and watch commands
	for _, cmd := range []*cobra.Command{rootCmd, watchCmd} {
		cmd.Flags().StringP("transport", "t", "", "Push transport (sse, websocket)")
		cmd.Flags().StringP("mode", "m", "", "Integration mode (push, poll)")
		cmd.Flags().StringP("output", "o", "", "Output mode (tui, plain, json)")
		cmd.Flags().StringP("filter", "u", "", "Start filtered on this URL")
		cmd.Flags().Bool("headers", false, "Show the headers column")
		cmd.Flags().Bool("confirm-clear", true, "Ask before clearing")
	}

	listCmd.Flags().String("url", "", "Only list requests with this URL")
	listCmd.Flags().StringP("format", "f", printer.FormatTable, "Output format (table, json, csv)")
	listCmd.Flags().Bool("headers", false, "Include the headers column")

	bindPersistentFlags(rootCmd)

	rootCmd.AddCommand(watchCmd, listCmd, versionCmd)
}

func bindPersistentFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	viper.BindPFlag("server.base_url", flags.Lookup("server"))
	viper.BindPFlag("server.timeout", flags.Lookup("timeout"))
	viper.BindPFlag("output.locale", flags.Lookup("locale"))
	viper.BindPFlag("log.level", flags.Lookup("log-level"))
	viper.BindPFlag("log.file_logging.enable", flags.Lookup("log-file-enable"))
	viper.BindPFlag("log.file_logging.path", flags.Lookup("log-file-path"))
}

// bindWatchFlags binds the live view flags of the command being run. Only one
// command runs per process, so binding at run time keeps root and watch from
// overwriting each other's bindings.
func bindWatchFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	viper.BindPFlag("watch.transport", flags.Lookup("transport"))
	viper.BindPFlag("watch.mode", flags.Lookup("mode"))
	viper.BindPFlag("output.mode", flags.Lookup("output"))
	viper.BindPFlag("watch.initial_filter", flags.Lookup("filter"))
	viper.BindPFlag("watch.show_headers", flags.Lookup("headers"))
	viper.BindPFlag("watch.confirm_clear", flags.Lookup("confirm-clear"))
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	// Get configuration file path
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.LoadConfig(configPath, viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLocalizer(cfg *config.Config) (i18n.Localizer, error) {
	tr, err := i18n.NewTranslator("en")
	if err != nil {
		return i18n.Localizer{}, fmt.Errorf("failed to load translations: %w", err)
	}
	if !tr.Has(cfg.Output.Locale) {
		return i18n.Localizer{}, fmt.Errorf("unsupported locale %q (supported: %s)",
			cfg.Output.Locale, strings.Join(tr.Supported(), ", "))
	}
	return tr.For(cfg.Output.Locale), nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	bindWatchFlags(cmd)
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	loc, err := newLocalizer(cfg)
	if err != nil {
		return err
	}

	// Create logger
	log := logger.NewLogger(&cfg.Log, cfg.Output.Mode)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := watch.NewSource(cfg.Server, cfg.Watch.Transport, log)
	if err != nil {
		return err
	}
	backend := watch.NewClient(cfg.Server, nil)
	sessionCfg := view.SessionConfig{
		Mode:          view.Mode(cfg.Watch.Mode),
		Render:        printer.RenderOptions(loc, cfg.Watch.ShowHeaders),
		InitialFilter: cfg.Watch.InitialFilter,
		WarnThreshold: cfg.Watch.StoreWarnThreshold,
	}

	log.Info("ReqWatch starting",
		"version", version,
		"server", cfg.Server.BaseURL,
		"transport", cfg.Watch.Transport,
		"mode", cfg.Watch.Mode,
		"output", cfg.Output.Mode,
		"filter", cfg.Watch.InitialFilter,
	)

	if cfg.Output.Mode == config.OutputTUI {
		return tui.Run(ctx, src, watch.DefaultReconnectDelay, tui.Options{
			Session:   view.NewSession(sessionCfg, nil, log),
			Backend:   backend,
			Localizer: loc,
			Formatter: printer.NewBodyFormatter(&cfg.Output.BodyView, log, loc),
			Confirm:   cfg.Watch.ConfirmClear,
			Log:       log,
		})
	}

	if cfg.Output.Mode == config.OutputPlain {
		printStartupBanner(os.Stderr, cfg)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sink := printer.New(cfg.Output.Mode, printer.Options{Out: os.Stdout, Localizer: loc, Log: log})
	console := printer.NewConsole(os.Stdin, os.Stderr, loc, cfg.Watch.ConfirmClear, cancel)

	// A nil prompter sends the clear without asking
	var prompter view.Prompter
	if cfg.Watch.ConfirmClear {
		prompter = console
	}

	runner := &watch.Runner{
		Source:   src,
		Session:  view.NewSession(sessionCfg, sink, log),
		Backend:  backend,
		Prompter: prompter,
		Log:      log,
	}
	return runner.Run(ctx, console.Gestures(ctx))
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	loc, err := newLocalizer(cfg)
	if err != nil {
		return err
	}

	url, _ := cmd.Flags().GetString("url")
	format, _ := cmd.Flags().GetString("format")
	headers, _ := cmd.Flags().GetBool("headers")
	switch format {
	case printer.FormatTable, printer.FormatJSON, printer.FormatCSV:
	default:
		return fmt.Errorf("unsupported format %q (table, json, csv)", format)
	}

	log := logger.NewLogger(&cfg.Log, config.OutputPlain)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	requests, err := watch.NewClient(cfg.Server, nil).Fetch(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to pull requests: %w", err)
	}

	session := view.NewSession(view.SessionConfig{
		Mode:          view.ModePoll,
		Render:        printer.RenderOptions(loc, headers),
		InitialFilter: url,
	}, nil, log)
	if err := session.ApplySnapshot(requests); err != nil {
		return fmt.Errorf("invalid snapshot: %w", err)
	}

	return printer.WriteTable(os.Stdout, format, session.Table(), loc)
}

func showVersion(cmd *cobra.Command, args []string) {
	fmt.Printf("ReqWatch version %s\n", version)
	fmt.Printf("Commit: %s\n", commit)
	fmt.Printf("Built: %s\n", buildDate)
}

func printStartupBanner(w io.Writer, cfg *config.Config) {
	titleLine := fmt.Sprintf("ReqWatch v%s", version)
	subtitleLine := "Live Request Viewer"

	filter := cfg.Watch.InitialFilter
	if filter == "" {
		filter = "(All URLs)"
	}
	lines := []string{
		fmt.Sprintf("🔌 Server:      %s", cfg.Server.BaseURL),
		fmt.Sprintf("📡 Transport:   %s (%s mode)", cfg.Watch.Transport, cfg.Watch.Mode),
		fmt.Sprintf("🎯 Filter:      %s", filter),
		fmt.Sprintf("📊 Log Level:   %s", cfg.Log.Level),
		"",
		"f <url> filter · u all · c clear · q quit",
	}

	// Calculate maximum line length
	maxLength := runewidth.StringWidth(titleLine)
	for _, line := range lines {
		if lineLength := runewidth.StringWidth(line); lineLength > maxLength {
			maxLength = lineLength
		}
	}

	boxWidth := maxLength + 4
	if boxWidth < 50 {
		boxWidth = 50
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
	printBoxContent(w, titleLine, boxWidth, true)
	printBoxContent(w, subtitleLine, boxWidth, true)
	fmt.Fprintf(w, "├%s┤\n", strings.Repeat("─", boxWidth-2))
	for _, line := range lines {
		printBoxContent(w, line, boxWidth, false)
	}
	fmt.Fprintf(w, "└%s┘\n", strings.Repeat("─", boxWidth-2))
	fmt.Fprintln(w)
}

// printBoxContent prints the content line of the box
func printBoxContent(w io.Writer, content string, boxWidth int, center bool) {
	padding := boxWidth - 2 - runewidth.StringWidth(content)
	if padding < 0 {
		padding = 0
	}

	var leftPad, rightPad string
	if center {
		leftPad = strings.Repeat(" ", padding/2)
		rightPad = strings.Repeat(" ", padding-padding/2)
	} else {
		leftPad = "  "
		rightPad = strings.Repeat(" ", max(padding-2, 0))
	}

	fmt.Fprintf(w, "│%s%s%s│\n", leftPad, content, rightPad)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
