// Package export runs the external chat exporter once per thread and lays the
// results out on disk:
//
//	<base>/<channel>/<thread name>.html
//	<base>/<channel>/assets/
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sternrassler/discord-thread-export/pkg/client"
)

// AssetsDirName is the media directory shared by all threads of a channel.
const AssetsDirName = "assets"

// invalidChars are replaced with '_' by SanitizeFilename.
var invalidChars = strings.NewReplacer(
	"<", "_",
	">", "_",
	":", "_",
	`"`, "_",
	"/", "_",
	`\`, "_",
	"|", "_",
	"?", "_",
	"*", "_",
)

// SanitizeFilename replaces each of <>:"/\|?* with an underscore. Every other
// character, including whitespace and non-ASCII text, is kept.
func SanitizeFilename(name string) string {
	return invalidChars.Replace(name)
}

// Layout is the on-disk location of one channel's export. The channel name
// is sanitized like thread names so it always stays one directory below
// BaseDir.
type Layout struct {
	BaseDir     string
	ChannelName string
}

// ChannelDir is <base>/<channel>.
func (l Layout) ChannelDir() string {
	return filepath.Join(l.BaseDir, SanitizeFilename(l.ChannelName))
}

// AssetsDir is <base>/<channel>/assets.
func (l Layout) AssetsDir() string {
	return filepath.Join(l.ChannelDir(), AssetsDirName)
}

// OutputFile is <base>/<channel>/<sanitized thread name>.html.
func (l Layout) OutputFile(t client.Thread) string {
	return filepath.Join(l.ChannelDir(), SanitizeFilename(t.Name)+".html")
}

// Prepare creates the channel and assets directories.
func (l Layout) Prepare() error {
	if err := os.MkdirAll(l.AssetsDir(), 0o755); err != nil {
		return fmt.Errorf("create export directories: %w", err)
	}
	return nil
}
