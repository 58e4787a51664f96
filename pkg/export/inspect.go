package export

import (
	"fmt"
	"os"

	"github.com/PuerkitoBio/goquery"
)

// messageSelector matches one rendered message in DiscordChatExporter's HTML
// themes.
const messageSelector = ".chatlog__message"

// CountMessages parses an exported HTML file and returns the number of
// rendered messages.
func CountMessages(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open export: %w", err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return 0, fmt.Errorf("parse export: %w", err)
	}

	return doc.Find(messageSelector).Length(), nil
}
