package cache

import "testing"

func TestNameKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  NameKey
		want string
	}{
		{
			name: "channel",
			key:  NameKey{Kind: KindChannel, ID: "1234567890"},
			want: "discord-export:name:channel:1234567890",
		},
		{
			name: "thread",
			key:  NameKey{Kind: KindThread, ID: "42"},
			want: "discord-export:name:thread:42",
		},
		{
			name: "empty kind defaults to channel",
			key:  NameKey{ID: "7"},
			want: "discord-export:name:channel:7",
		},
		{
			name: "id whitespace trimmed",
			key:  NameKey{Kind: KindThread, ID: " 99\n"},
			want: "discord-export:name:thread:99",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNameKey_KindsDoNotCollide(t *testing.T) {
	channel := NameKey{Kind: KindChannel, ID: "1"}
	thread := NameKey{Kind: KindThread, ID: "1"}

	if channel.String() == thread.String() {
		t.Errorf("channel and thread keys collide: %q", channel.String())
	}
}
