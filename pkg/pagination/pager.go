package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/discord-thread-export/pkg/client"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discord_thread_pages_fetched_total",
		Help: "Total number of thread search pages fetched",
	})

	duplicateThreadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discord_thread_duplicates_total",
		Help: "Total number of threads skipped because they were already seen",
	})
)

// PageFetcher fetches one page of a channel's thread search.
type PageFetcher interface {
	SearchThreads(ctx context.Context, channelID string, offset int) (*client.ThreadPage, error)
}

// Config holds pager configuration.
type Config struct {
	// MaxPages bounds the walk; 0 means DefaultMaxPages.
	MaxPages int
}

// DefaultMaxPages allows 100k threads, far beyond any real forum.
const DefaultMaxPages = 4000

// DefaultConfig returns the default pager configuration.
func DefaultConfig() Config {
	return Config{
		MaxPages: DefaultMaxPages,
	}
}

// Pager collects every thread of a channel.
type Pager struct {
	fetcher PageFetcher
	config  Config
	logger  zerolog.Logger
}

// NewPager creates a new pager.
func NewPager(fetcher PageFetcher, config Config) *Pager {
	if config.MaxPages <= 0 {
		config.MaxPages = DefaultMaxPages
	}

	return &Pager{
		fetcher: fetcher,
		config:  config,
		logger:  log.With().Str("component", "pagination").Logger(),
	}
}

// CollectThreads returns all distinct threads of a channel in the order the
// API returned them. On a page failure it returns the threads collected so
// far together with the error.
func (p *Pager) CollectThreads(ctx context.Context, channelID string) ([]client.Thread, error) {
	start := time.Now()

	var threads []client.Thread
	seen := make(map[client.Thread]struct{})
	totalLogged := false
	offset := 0

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return threads, fmt.Errorf("collect threads: %w", err)
		}

		if page > p.config.MaxPages {
			p.logger.Warn().
				Str("channel_id", channelID).
				Int("max_pages", p.config.MaxPages).
				Int("threads", len(threads)).
				Msg("Page limit reached, stopping")
			break
		}

		result, err := p.fetcher.SearchThreads(ctx, channelID, offset)
		if err != nil {
			p.logger.Error().
				Err(err).
				Str("channel_id", channelID).
				Int("offset", offset).
				Int("threads", len(threads)).
				Msg("Thread search failed - returning partial results")
			return threads, fmt.Errorf("search threads at offset %d: %w", offset, err)
		}
		pagesFetchedTotal.Inc()

		for _, t := range result.Threads {
			if _, dup := seen[t]; dup {
				duplicateThreadsTotal.Inc()
				p.logger.Warn().
					Str("thread_id", t.ID).
					Msg("Skipping thread, seen already")
				continue
			}
			seen[t] = struct{}{}
			threads = append(threads, t)
		}

		if !totalLogged {
			totalLogged = true
			p.logger.Info().
				Str("channel_id", channelID).
				Int("total_results", result.TotalResults).
				Msg("Thread search started")
		}

		p.logger.Debug().
			Int("page", page).
			Int("offset", offset).
			Int("page_threads", len(result.Threads)).
			Bool("has_more", result.HasMore).
			Msg("Fetched thread page")

		if !result.HasMore {
			break
		}
		if len(result.Threads) == 0 {
			p.logger.Warn().
				Str("channel_id", channelID).
				Int("offset", offset).
				Msg("Empty page reported has_more, stopping")
			break
		}

		offset += client.SearchPageSize
	}

	p.logger.Info().
		Str("channel_id", channelID).
		Int("threads", len(threads)).
		Dur("duration", time.Since(start)).
		Msg("Thread search complete")

	return threads, nil
}
