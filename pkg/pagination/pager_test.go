package pagination

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/Sternrassler/discord-thread-export/internal/testutil"
	"github.com/Sternrassler/discord-thread-export/pkg/client"
)

// scriptedFetcher serves pages keyed by offset.
type scriptedFetcher struct {
	pages   map[int]*client.ThreadPage
	errs    map[int]error
	offsets []int
}

func (f *scriptedFetcher) SearchThreads(_ context.Context, _ string, offset int) (*client.ThreadPage, error) {
	f.offsets = append(f.offsets, offset)
	if err := f.errs[offset]; err != nil {
		return nil, err
	}
	if p, ok := f.pages[offset]; ok {
		return p, nil
	}
	return &client.ThreadPage{}, nil
}

func th(id, name string) client.Thread {
	return client.Thread{ID: id, Name: name}
}

func TestNewPager_Defaults(t *testing.T) {
	p := NewPager(&scriptedFetcher{}, Config{})
	if p.config.MaxPages != DefaultMaxPages {
		t.Errorf("MaxPages = %d, want %d", p.config.MaxPages, DefaultMaxPages)
	}
}

func TestCollectThreads(t *testing.T) {
	tests := []struct {
		name        string
		fetcher     *scriptedFetcher
		config      Config
		want        []client.Thread
		wantOffsets []int
		wantErr     bool
	}{
		{
			name: "single page",
			fetcher: &scriptedFetcher{pages: map[int]*client.ThreadPage{
				0: {Threads: []client.Thread{th("1", "a"), th("2", "b")}, TotalResults: 2},
			}},
			want:        []client.Thread{th("1", "a"), th("2", "b")},
			wantOffsets: []int{0},
		},
		{
			name: "multiple pages with duplicates",
			fetcher: &scriptedFetcher{pages: map[int]*client.ThreadPage{
				0:  {Threads: []client.Thread{th("1", "a"), th("2", "b")}, HasMore: true},
				25: {Threads: []client.Thread{th("2", "b"), th("3", "c")}, HasMore: true},
				50: {Threads: []client.Thread{th("1", "a"), th("4", "d")}},
			}},
			want:        []client.Thread{th("1", "a"), th("2", "b"), th("3", "c"), th("4", "d")},
			wantOffsets: []int{0, 25, 50},
		},
		{
			name: "same id with different name is kept",
			fetcher: &scriptedFetcher{pages: map[int]*client.ThreadPage{
				0:  {Threads: []client.Thread{th("1", "old title")}, HasMore: true},
				25: {Threads: []client.Thread{th("1", "new title")}},
			}},
			want:        []client.Thread{th("1", "old title"), th("1", "new title")},
			wantOffsets: []int{0, 25},
		},
		{
			name: "empty page with has_more stops",
			fetcher: &scriptedFetcher{pages: map[int]*client.ThreadPage{
				0:  {Threads: []client.Thread{th("1", "a")}, HasMore: true},
				25: {HasMore: true},
			}},
			want:        []client.Thread{th("1", "a")},
			wantOffsets: []int{0, 25},
		},
		{
			name: "page limit stops",
			fetcher: &scriptedFetcher{pages: map[int]*client.ThreadPage{
				0:  {Threads: []client.Thread{th("1", "a")}, HasMore: true},
				25: {Threads: []client.Thread{th("2", "b")}, HasMore: true},
				50: {Threads: []client.Thread{th("3", "c")}, HasMore: true},
			}},
			config:      Config{MaxPages: 2},
			want:        []client.Thread{th("1", "a"), th("2", "b")},
			wantOffsets: []int{0, 25},
		},
		{
			name: "error returns partial results",
			fetcher: &scriptedFetcher{
				pages: map[int]*client.ThreadPage{
					0: {Threads: []client.Thread{th("1", "a")}, HasMore: true},
				},
				errs: map[int]error{25: errors.New("boom")},
			},
			want:        []client.Thread{th("1", "a")},
			wantOffsets: []int{0, 25},
			wantErr:     true,
		},
		{
			name: "no threads",
			fetcher: &scriptedFetcher{pages: map[int]*client.ThreadPage{
				0: {TotalResults: 0},
			}},
			want:        nil,
			wantOffsets: []int{0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewPager(tt.fetcher, tt.config).CollectThreads(context.Background(), "100")

			if (err != nil) != tt.wantErr {
				t.Fatalf("CollectThreads() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("CollectThreads() = %v, want %v", got, tt.want)
			}
			if !reflect.DeepEqual(tt.fetcher.offsets, tt.wantOffsets) {
				t.Errorf("offsets = %v, want %v", tt.fetcher.offsets, tt.wantOffsets)
			}
		})
	}
}

func TestCollectThreads_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &scriptedFetcher{}
	_, err := NewPager(f, DefaultConfig()).CollectThreads(ctx, "100")

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if len(f.offsets) != 0 {
		t.Errorf("fetched %v after cancellation", f.offsets)
	}
}

func TestCollectThreads_AgainstMockAPI(t *testing.T) {
	mock := testutil.NewMockDiscord()
	defer mock.Close()

	// 60 entries where the thread at the end of page one repeats at the
	// start of page two, as happens when it gets bumped mid-walk.
	threads := testutil.MakeThreads("t", 59)
	withDup := append([]testutil.MockThread{}, threads[:25]...)
	withDup = append(withDup, threads[24])
	withDup = append(withDup, threads[25:]...)
	mock.SetThreads("100", withDup)

	cfg := client.DefaultConfig("token")
	cfg.BaseURL = mock.URL()
	cfg.Timeout = 5 * time.Second
	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	defer c.Close()

	got, err := NewPager(c, DefaultConfig()).CollectThreads(context.Background(), "100")
	if err != nil {
		t.Fatalf("CollectThreads() error = %v", err)
	}

	if len(got) != 59 {
		t.Fatalf("len = %d, want 59", len(got))
	}
	for i, thread := range got {
		if thread.ID != threads[i].ID || thread.Name != threads[i].Name {
			t.Errorf("got[%d] = %+v, want %+v", i, thread, threads[i])
		}
	}
	if offsets := mock.Offsets(); !reflect.DeepEqual(offsets, []int{0, 25, 50}) {
		t.Errorf("offsets = %v, want [0 25 50]", offsets)
	}
}
