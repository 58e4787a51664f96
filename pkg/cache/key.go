package cache

import (
	"strings"
)

// Kind distinguishes what a cached name belongs to.
type Kind string

const (
	// KindChannel is a forum or text channel.
	KindChannel Kind = "channel"

	// KindThread is a thread inside a channel.
	KindThread Kind = "thread"
)

// keyPrefix namespaces all keys written by this package.
const keyPrefix = "discord-export"

// NameKey identifies a cached name.
type NameKey struct {
	Kind Kind
	ID   string
}

// String generates the Redis key.
//
// Example:
//
//	discord-export:name:channel:1234567890
func (k NameKey) String() string {
	kind := k.Kind
	if kind == "" {
		kind = KindChannel
	}
	return strings.Join([]string{keyPrefix, "name", string(kind), strings.TrimSpace(k.ID)}, ":")
}
