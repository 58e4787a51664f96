package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/discord-thread-export/pkg/client"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	exportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discord_thread_exports_total",
		Help: "Total thread exports by result",
	}, []string{"result"}) // "success", "failed", "skipped"

	exportDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "discord_thread_export_duration_seconds",
		Help:    "Exporter run time per thread in seconds",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})

	exportedMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discord_exported_messages_total",
		Help: "Total messages found in exported HTML files",
	})
)

// ExitError reports a non-zero exporter exit for one thread.
type ExitError struct {
	Thread   client.Thread
	ExitCode int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exporter exited with code %d for thread %s (%s)", e.ExitCode, e.Thread.ID, e.Thread.Name)
}

// Config holds exporter configuration.
type Config struct {
	// BinaryPath is the DiscordChatExporter.Cli executable.
	BinaryPath string

	// Token is passed to the exporter with -t.
	Token string

	// Format is the exporter output format (default HtmlDark).
	Format string

	Layout Layout
}

// Summary counts the outcome of ExportAll.
type Summary struct {
	Exported int
	Failed   int
	// Skipped counts threads left unexported because the run stopped early.
	Skipped  int
	Messages int
}

// Exporter runs the external exporter for each thread of a channel.
type Exporter struct {
	runner Runner
	config Config
	logger zerolog.Logger
}

// New creates an exporter. A nil runner uses ExecRunner.
func New(cfg Config, runner Runner) *Exporter {
	if runner == nil {
		runner = ExecRunner{}
	}
	if cfg.Format == "" {
		cfg.Format = DefaultFormat
	}
	return &Exporter{
		runner: runner,
		config: cfg,
		logger: log.With().Str("component", "exporter").Logger(),
	}
}

// ExportAll exports threads one after another. A failing thread is logged and
// the loop continues; a missing exporter binary or a cancelled context stops
// the run and is returned together with the summary so far.
func (e *Exporter) ExportAll(ctx context.Context, threads []client.Thread) (Summary, error) {
	var summary Summary

	if err := e.config.Layout.Prepare(); err != nil {
		return summary, err
	}

	for i, t := range threads {
		if err := ctx.Err(); err != nil {
			summary.Skipped = len(threads) - i
			exportsTotal.WithLabelValues("skipped").Add(float64(summary.Skipped))
			return summary, fmt.Errorf("export cancelled: %w", err)
		}

		messages, err := e.ExportThread(ctx, t)
		switch {
		case err == nil:
			summary.Exported++
			summary.Messages += messages
		case errors.Is(err, ErrExporterNotFound):
			summary.Skipped = len(threads) - i
			exportsTotal.WithLabelValues("skipped").Add(float64(summary.Skipped))
			e.logger.Error().
				Str("path", e.config.BinaryPath).
				Int("remaining", summary.Skipped).
				Msg("Exporter binary not found, stopping")
			return summary, err
		case ctx.Err() != nil:
			summary.Skipped = len(threads) - i
			exportsTotal.WithLabelValues("skipped").Add(float64(summary.Skipped))
			return summary, fmt.Errorf("export cancelled: %w", ctx.Err())
		default:
			summary.Failed++
		}
	}

	return summary, nil
}

// ExportThread runs the exporter for one thread and returns the number of
// messages found in the produced file.
func (e *Exporter) ExportThread(ctx context.Context, t client.Thread) (int, error) {
	layout := e.config.Layout
	output := layout.OutputFile(t)
	args := Args(e.config.Token, t.ID, e.config.Format, layout.AssetsDir(), output)

	logger := e.logger.With().
		Str("thread_id", t.ID).
		Str("thread_name", t.Name).
		Logger()

	logger.Info().Msg("Exporting thread")

	start := time.Now()
	res, err := e.runner.Run(ctx, e.config.BinaryPath, args)
	exportDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, ErrExporterNotFound) {
			return 0, err
		}
		exportsTotal.WithLabelValues("failed").Inc()
		logger.Error().
			Err(err).
			Str("command", e.commandLine(args)).
			Msg("Unexpected error while exporting thread")
		return 0, fmt.Errorf("run exporter: %w", err)
	}

	if res.ExitCode != 0 {
		exportsTotal.WithLabelValues("failed").Inc()
		logger.Error().
			Str("command", e.commandLine(args)).
			Int("exit_code", res.ExitCode).
			Str("stdout", res.Stdout).
			Str("stderr", res.Stderr).
			Msg("Error exporting thread")
		return 0, &ExitError{Thread: t, ExitCode: res.ExitCode}
	}

	exportsTotal.WithLabelValues("success").Inc()

	if res.Stderr != "" {
		logger.Warn().Str("stderr", res.Stderr).Msg("Exporter wrote to stderr")
	}
	logger.Debug().Str("stdout", res.Stdout).Msg("Exporter output")

	messages, err := CountMessages(output)
	if err != nil {
		logger.Warn().Err(err).Str("output", output).Msg("Could not inspect exported file")
		messages = 0
	}
	exportedMessagesTotal.Add(float64(messages))

	logger.Info().
		Str("output", output).
		Int("messages", messages).
		Dur("duration", time.Since(start)).
		Msg("Thread exported")

	return messages, nil
}

func (e *Exporter) commandLine(args []string) string {
	return strings.Join(append([]string{e.config.BinaryPath}, redactArgs(args)...), " ")
}
