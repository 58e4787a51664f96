package ratelimit

import (
	"bytes"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestUpdateFromHeaders(t *testing.T) {
	tests := []struct {
		name          string
		headers       map[string]string
		wantBucket    string
		wantRemaining int
		wantLimit     int
		wantExhausted bool
		wantErr       bool
	}{
		{
			name: "healthy bucket",
			headers: map[string]string{
				HeaderLimit:      "5",
				HeaderRemaining:  "4",
				HeaderResetAfter: "1.000",
				HeaderBucket:     "abcd1234",
			},
			wantBucket:    "abcd1234",
			wantRemaining: 4,
			wantLimit:     5,
		},
		{
			name: "exhausted bucket",
			headers: map[string]string{
				HeaderLimit:      "5",
				HeaderRemaining:  "0",
				HeaderResetAfter: "2.5",
				HeaderBucket:     "abcd1234",
			},
			wantBucket:    "abcd1234",
			wantRemaining: 0,
			wantLimit:     5,
			wantExhausted: true,
		},
		{
			name: "missing bucket header",
			headers: map[string]string{
				HeaderRemaining:  "10",
				HeaderResetAfter: "1",
			},
			wantBucket:    unknownBucket,
			wantRemaining: 10,
		},
		{
			name: "invalid remaining",
			headers: map[string]string{
				HeaderRemaining: "many",
			},
			wantErr: true,
		},
		{
			name: "invalid reset after",
			headers: map[string]string{
				HeaderRemaining:  "1",
				HeaderResetAfter: "soon",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewTracker(zerolog.Nop())

			headers := http.Header{}
			for k, v := range tt.headers {
				headers.Set(k, v)
			}

			err := tracker.UpdateFromHeaders(headers)
			if (err != nil) != tt.wantErr {
				t.Fatalf("UpdateFromHeaders() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if _, ok := tracker.Last(); ok {
					t.Error("Expected no state after invalid headers")
				}
				return
			}

			state, ok := tracker.State(tt.wantBucket)
			if !ok {
				t.Fatalf("No state stored for bucket %q", tt.wantBucket)
			}
			if state.Remaining != tt.wantRemaining {
				t.Errorf("Remaining = %d, want %d", state.Remaining, tt.wantRemaining)
			}
			if state.Limit != tt.wantLimit {
				t.Errorf("Limit = %d, want %d", state.Limit, tt.wantLimit)
			}
			if state.Exhausted() != tt.wantExhausted {
				t.Errorf("Exhausted() = %v, want %v", state.Exhausted(), tt.wantExhausted)
			}
		})
	}
}

func TestUpdateFromHeaders_NoHeaders(t *testing.T) {
	tracker := NewTracker(zerolog.Nop())

	if err := tracker.UpdateFromHeaders(http.Header{}); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}
	if _, ok := tracker.Last(); ok {
		t.Error("Expected no state without rate-limit headers")
	}
}

func TestTracker_LastFollowsMostRecentBucket(t *testing.T) {
	tracker := NewTracker(zerolog.Nop())

	for _, bucket := range []string{"first", "second"} {
		h := http.Header{}
		h.Set(HeaderRemaining, "3")
		h.Set(HeaderResetAfter, "1")
		h.Set(HeaderBucket, bucket)
		if err := tracker.UpdateFromHeaders(h); err != nil {
			t.Fatalf("UpdateFromHeaders() error = %v", err)
		}
	}

	last, ok := tracker.Last()
	if !ok || last.Bucket != "second" {
		t.Errorf("Last() = %+v, %v; want bucket second", last, ok)
	}
}

func TestRecordRateLimited(t *testing.T) {
	tests := []struct {
		name      string
		headers   map[string]string
		wantScope string
		wantDelay time.Duration
	}{
		{
			name:      "user scope",
			headers:   map[string]string{HeaderRetryAfter: "1.5"},
			wantScope: "user",
			wantDelay: 1500 * time.Millisecond,
		},
		{
			name:      "shared scope",
			headers:   map[string]string{HeaderRetryAfter: "3", HeaderScope: "shared"},
			wantScope: "shared",
			wantDelay: 3 * time.Second,
		},
		{
			name:      "global flag",
			headers:   map[string]string{HeaderRetryAfter: "10", HeaderGlobal: "true"},
			wantScope: "global",
			wantDelay: 10 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			tracker := NewTracker(zerolog.New(buf))

			headers := http.Header{}
			for k, v := range tt.headers {
				headers.Set(k, v)
			}

			got := tracker.RecordRateLimited(headers)
			if got != tt.wantDelay {
				t.Errorf("RecordRateLimited() = %v, want %v", got, tt.wantDelay)
			}
			if !strings.Contains(buf.String(), `"scope":"`+tt.wantScope+`"`) {
				t.Errorf("Expected scope %q in log, got %q", tt.wantScope, buf.String())
			}
		})
	}
}
