// Command discord-thread-export saves every thread of a Discord forum channel
// as HTML with downloaded media, running DiscordChatExporter.Cli once per
// thread.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Sternrassler/discord-thread-export/pkg/cache"
	"github.com/Sternrassler/discord-thread-export/pkg/client"
	"github.com/Sternrassler/discord-thread-export/pkg/config"
	"github.com/Sternrassler/discord-thread-export/pkg/export"
	"github.com/Sternrassler/discord-thread-export/pkg/logging"
	"github.com/Sternrassler/discord-thread-export/pkg/metrics"
	"github.com/Sternrassler/discord-thread-export/pkg/pagination"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// rateLimitReportAge is how old the last rate-limit observation may be and
// still be reported at the end of a run.
const rateLimitReportAge = time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{in: os.Stdin, out: os.Stdout, logOut: os.Stderr}
	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// app holds the process I/O so tests can drive a full run.
type app struct {
	in     io.Reader
	out    io.Writer
	logOut io.Writer

	// runner overrides the exporter process runner; nil uses os/exec.
	runner export.Runner
}

type options struct {
	configPath  string
	envFile     string
	channelID   string
	threadIDs   []string
	output      string
	exporter    string
	format      string
	apiURL      string
	redisURL    string
	logLevel    string
	logJSON     bool
	metricsFile string
	maxAttempts int
}

func newRootCmd(a *app) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "discord-thread-export [channel-id]",
		Short: "Export all threads of a Discord forum channel to HTML",
		Long: `Export all threads of a Discord forum channel to HTML with media.

Threads are listed through the Discord API and exported one by one with
DiscordChatExporter.Cli into <output>/<channel name>/<thread name>.html,
sharing <output>/<channel name>/assets for media.

Configuration is read from an optional TOML file (--config), a .env file,
the environment (DISCORD_TOKEN, DISCORD_EXPORTER_PATH, DISCORD_EXPORT_DIR, ...)
and finally the flags below. When no channel id is given it is read from
stdin.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.channelID = args[0]
			}
			err := a.run(cmd.Context(), cmd, opts)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "path to a TOML config file")
	f.StringVar(&opts.envFile, "env-file", ".env", "path to a .env file (ignored when missing)")
	f.StringVar(&opts.channelID, "channel", "", "forum channel id")
	f.StringArrayVar(&opts.threadIDs, "thread", nil, "export this thread id instead of searching the channel (repeatable)")
	f.StringVarP(&opts.output, "output", "o", "", "base output directory (default \"discord_exports\")")
	f.StringVar(&opts.exporter, "exporter", "", "path to DiscordChatExporter.Cli")
	f.StringVar(&opts.format, "format", "", "export format (default \"HtmlDark\")")
	f.StringVar(&opts.apiURL, "api-url", "", "Discord API base URL")
	f.StringVar(&opts.redisURL, "redis-url", "", "Redis URL for the name cache")
	f.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	f.BoolVar(&opts.logJSON, "log-json", false, "log JSON lines instead of console output")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this file when done")
	f.IntVar(&opts.maxAttempts, "max-attempts", 0, "attempts per API request on 5xx/network errors")

	return cmd
}

// applyFlags overrides cfg with every flag set on the command line.
func applyFlags(cmd *cobra.Command, opts options, cfg *config.Config) {
	f := cmd.Flags()
	set := func(name string, dst *string, v string) {
		if f.Changed(name) {
			*dst = v
		}
	}
	set("output", &cfg.BaseDir, opts.output)
	set("exporter", &cfg.ExporterPath, opts.exporter)
	set("format", &cfg.Format, opts.format)
	set("api-url", &cfg.APIBaseURL, opts.apiURL)
	set("redis-url", &cfg.RedisURL, opts.redisURL)
	set("log-level", &cfg.LogLevel, opts.logLevel)
	set("metrics-file", &cfg.MetricsFile, opts.metricsFile)
	if f.Changed("log-json") {
		cfg.LogJSON = opts.logJSON
	}
	if f.Changed("max-attempts") {
		cfg.MaxAttempts = opts.maxAttempts
	}
}

func (a *app) run(ctx context.Context, cmd *cobra.Command, opts options) error {
	cfg, err := config.Load(opts.configPath, opts.envFile)
	if err != nil {
		return err
	}
	applyFlags(cmd, opts, &cfg)

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: !cfg.LogJSON,
		Output: a.logOut,
		RunID:  uuid.NewString(),
	})

	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.MetricsFile != "" {
		defer func() {
			if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
				logger.Warn().Err(err).Str("path", cfg.MetricsFile).Msg("Could not write metrics")
			}
		}()
	}

	channelID := strings.TrimSpace(opts.channelID)
	if channelID == "" {
		channelID, err = a.prompt("Enter the forum channel ID: ")
		if err != nil {
			return err
		}
	}
	if channelID == "" {
		return errors.New("channel id is required")
	}

	if err := export.CheckBinary(cfg.ExporterPath); err != nil {
		fmt.Fprintf(a.out, "DiscordChatExporter.Cli not found at: %s\n", cfg.ExporterPath)
		fmt.Fprintln(a.out, "Please set DISCORD_EXPORTER_PATH or --exporter to the correct path.")
		return err
	}

	nameCache, closeCache := a.openCache(ctx, cfg.RedisURL, logger)
	defer closeCache()

	dc, err := client.New(client.Config{
		Token:       cfg.Token,
		BaseURL:     cfg.APIBaseURL,
		UserAgent:   cfg.UserAgent,
		MaxAttempts: cfg.MaxAttempts,
		Cache:       nameCache,
	})
	if err != nil {
		return err
	}
	defer dc.Close()

	fmt.Fprintln(a.out, "Fetching channel information...")
	channelName := dc.ChannelName(ctx, channelID)
	fmt.Fprintf(a.out, "Channel name: %s\n", channelName)

	threads, err := a.collectThreads(ctx, dc, channelID, opts.threadIDs)
	if state, ok := dc.RateLimits().Last(); ok && !state.IsStale(rateLimitReportAge) {
		logger.Info().
			Str("bucket", state.Bucket).
			Int("remaining", state.Remaining).
			Int("limit", state.Limit).
			Msg("Rate limit headroom")
	}
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		// Export what was listed before the failing page.
		logger.Error().Err(err).Int("threads", len(threads)).Msg("Thread search stopped early")
	}

	if len(threads) == 0 {
		fmt.Fprintln(a.out, "No threads found in the channel.")
		return nil
	}

	fmt.Fprintf(a.out, "Found %d threads. Starting export...\n", len(threads))

	layout := export.Layout{BaseDir: cfg.BaseDir, ChannelName: channelName}
	exporter := export.New(export.Config{
		BinaryPath: cfg.ExporterPath,
		Token:      cfg.Token,
		Format:     cfg.Format,
		Layout:     layout,
	}, a.runner)

	summary, err := exporter.ExportAll(ctx, threads)
	logger.Info().
		Int("exported", summary.Exported).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Int("messages", summary.Messages).
		Msg("Export finished")
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "\nThread exports completed! Output directory: %s\n", layout.ChannelDir())
	if summary.Failed > 0 {
		fmt.Fprintf(a.out, "%d of %d threads failed, see the log for details.\n", summary.Failed, len(threads))
	}
	return nil
}

func (a *app) collectThreads(ctx context.Context, dc *client.Client, channelID string, threadIDs []string) ([]client.Thread, error) {
	if len(threadIDs) > 0 {
		threads := make([]client.Thread, 0, len(threadIDs))
		for _, id := range threadIDs {
			if id = strings.TrimSpace(id); id != "" {
				threads = append(threads, dc.ThreadInfo(ctx, id))
			}
		}
		return threads, nil
	}

	fmt.Fprintf(a.out, "Fetching threads from channel %s...\n", channelID)
	return pagination.NewPager(dc, pagination.DefaultConfig()).CollectThreads(ctx, channelID)
}

// openCache connects the name cache. A bad URL or an unreachable server
// disables caching for the run.
func (a *app) openCache(ctx context.Context, redisURL string, logger zerolog.Logger) (*cache.Manager, func()) {
	noop := func() {}
	if redisURL == "" {
		return nil, noop
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("Invalid Redis URL, name cache disabled")
		return nil, noop
	}

	rdb := redis.NewClient(opts)
	m := cache.NewManager(rdb, cache.DefaultTTL)
	if err := m.Ping(ctx); err != nil {
		logger.Warn().Err(err).Str("addr", opts.Addr).Msg("Redis unreachable, name cache disabled")
		rdb.Close()
		return nil, noop
	}
	logger.Info().Str("addr", opts.Addr).Msg("Connected to Redis")
	return m, func() { rdb.Close() }
}

func (a *app) prompt(label string) (string, error) {
	fmt.Fprint(a.out, label)
	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read channel id: %w", err)
	}
	return strings.TrimSpace(line), nil
}
