package client

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/Sternrassler/discord-thread-export/pkg/cache"
	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SearchPageSize is the number of threads requested per search page, the
// maximum the endpoint accepts.
const SearchPageSize = 25

var nameFallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "discord_name_fallbacks_total",
	Help: "Total number of names replaced by their raw id because the lookup failed",
}, []string{"kind"})

// Thread is a thread id and its display name.
type Thread struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ThreadPage is one page of the thread search endpoint.
type ThreadPage struct {
	Threads      []Thread
	HasMore      bool
	TotalResults int
}

// threadSearchResponse is the body of GET /channels/{id}/threads/search.
type threadSearchResponse struct {
	Threads      []searchThread `json:"threads"`
	HasMore      bool           `json:"has_more"`
	TotalResults int            `json:"total_results"`
}

// searchThread keeps name a pointer so a missing key can be told apart from
// an empty name.
type searchThread struct {
	ID   string                `json:"id"`
	Name *string               `json:"name"`
	Type discordgo.ChannelType `json:"type"`
}

// channelPath returns the API path of a channel or thread.
func channelPath(id string) string {
	return "/api/v" + discordgo.APIVersion + "/channels/" + url.PathEscape(strings.TrimSpace(id))
}

// Channel fetches GET /channels/{id}. Threads are channels too.
func (c *Client) Channel(ctx context.Context, id string) (*discordgo.Channel, error) {
	var ch discordgo.Channel
	if err := c.getJSON(ctx, channelPath(id), nil, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// ChannelName returns the display name of a channel. It never fails: on any
// lookup error the id itself is returned.
func (c *Client) ChannelName(ctx context.Context, channelID string) string {
	return c.resolveName(ctx, cache.KindChannel, channelID)
}

// ThreadInfo returns a thread's id and display name, using the id as the name
// when the lookup fails.
func (c *Client) ThreadInfo(ctx context.Context, threadID string) Thread {
	id := strings.TrimSpace(threadID)
	return Thread{ID: id, Name: c.resolveName(ctx, cache.KindThread, id)}
}

func (c *Client) resolveName(ctx context.Context, kind cache.Kind, id string) string {
	id = strings.TrimSpace(id)
	key := cache.NameKey{Kind: kind, ID: id}

	if c.cache != nil {
		entry, err := c.cache.Get(ctx, key)
		switch {
		case err == nil:
			c.logger.Debug().Str("id", id).Str("kind", string(kind)).Msg("Name cache hit")
			return entry.Name
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("id", id).Msg("Name cache get error")
		}
	}

	ch, err := c.Channel(ctx, id)
	if err != nil {
		nameFallbacksTotal.WithLabelValues(string(kind)).Inc()
		c.logger.Warn().
			Err(err).
			Str("id", id).
			Str("kind", string(kind)).
			Msg("Name lookup failed, using id")
		return id
	}
	if ch.Name == "" {
		nameFallbacksTotal.WithLabelValues(string(kind)).Inc()
		c.logger.Warn().Str("id", id).Str("kind", string(kind)).Msg("Empty name, using id")
		return id
	}

	c.logger.Debug().
		Str("id", id).
		Str("name", ch.Name).
		Bool("forum", ch.Type == discordgo.ChannelTypeGuildForum).
		Msg("Name resolved")

	if c.cache != nil {
		entry := cache.NewNameEntry(id, ch.Name, int(ch.Type), c.cache.TTL())
		if err := c.cache.Set(ctx, key, entry); err != nil {
			c.logger.Warn().Err(err).Str("id", id).Msg("Failed to cache name")
		}
	}

	return ch.Name
}

// SearchThreads fetches one page of a channel's threads, newest activity
// first, starting at offset.
func (c *Client) SearchThreads(ctx context.Context, channelID string, offset int) (*ThreadPage, error) {
	query := url.Values{
		"sort_by":     {"last_message_time"},
		"sort_order":  {"desc"},
		"limit":       {strconv.Itoa(SearchPageSize)},
		"tag_setting": {"match_some"},
		"offset":      {strconv.Itoa(offset)},
	}

	var body threadSearchResponse
	if err := c.getJSON(ctx, channelPath(channelID)+"/threads/search", query, &body); err != nil {
		return nil, err
	}

	page := &ThreadPage{
		Threads:      make([]Thread, 0, len(body.Threads)),
		HasMore:      body.HasMore,
		TotalResults: body.TotalResults,
	}
	for _, th := range body.Threads {
		if th.ID == "" {
			continue
		}
		name := th.ID
		if th.Name != nil {
			name = *th.Name
		}
		page.Threads = append(page.Threads, Thread{ID: th.ID, Name: name})
	}

	return page, nil
}
