package cache

import (
	"testing"
	"time"
)

func TestNameEntry_IsExpired(t *testing.T) {
	tests := []struct {
		name    string
		expires time.Time
		want    bool
	}{
		{
			name:    "expired entry",
			expires: time.Now().Add(-1 * time.Hour),
			want:    true,
		},
		{
			name:    "valid entry",
			expires: time.Now().Add(1 * time.Hour),
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &NameEntry{Expires: tt.expires}
			if got := entry.IsExpired(); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNameEntry_TTL(t *testing.T) {
	expired := &NameEntry{Expires: time.Now().Add(-time.Minute)}
	if got := expired.TTL(); got != 0 {
		t.Errorf("TTL() = %v, want 0", got)
	}

	entry := NewNameEntry("1", "general", 15, time.Hour)
	got := entry.TTL()
	if got < 59*time.Minute || got > time.Hour {
		t.Errorf("TTL() = %v, want ~1h", got)
	}
	if entry.ID != "1" || entry.Name != "general" || entry.Type != 15 {
		t.Errorf("NewNameEntry() = %+v", entry)
	}
	if entry.CachedAt.IsZero() {
		t.Error("CachedAt was not set")
	}
}
