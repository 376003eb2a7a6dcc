package articles

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"harvest/internal/ingest"
	"harvest/lib/chrono"
)

// UnknownID is what an article without any usable identifier resolves to,
// such articles are never stored.
const UnknownID = "unknown"

// LinkBase prefixes the article id to form the link to the original page.
const LinkBase = "https://scys.com/articleDetail/xq_topic/"

type Article struct {
	ID        string
	Content   string
	AISummary string
	// CreatedAt is canonical "2006-01-02 15:04:05" when the listing gave a
	// parseable time, otherwise the original text.
	CreatedAt string
	Author    string
}

func (a Article) Link() string {
	return LinkBase + a.ID
}

// Item is one raw entry of a listing page.
type Item map[string]any

var idFields = []string{"entityId", "topicId", "articleId"}

// Normalize maps a raw listing entry to an Article. Entries without a
// topic object or without any identifier fail with
// ingest.ErrMissingIdentifier.
func Normalize(item Item, loc *time.Location) (Article, error) {
	topic, ok := item["topicDTO"].(map[string]any)
	if !ok || len(topic) == 0 {
		return Article{}, fmt.Errorf("no topicDTO: %w", ingest.ErrMissingIdentifier)
	}
	user, _ := item["topicUserDTO"].(map[string]any)

	id := UnknownID
	for _, field := range idFields {
		if v := scalar(topic[field]); v != "" {
			id = v
			break
		}
	}
	if id == UnknownID {
		return Article{}, fmt.Errorf("no article id: %w", ingest.ErrMissingIdentifier)
	}

	return Article{
		ID:        id,
		Content:   scalar(topic["articleContent"]),
		AISummary: scalar(topic["aiSummaryContent"]),
		CreatedAt: chrono.Normalize(topic["gmtCreate"], loc),
		Author:    scalar(user["name"]),
	}, nil
}

// scalar renders strings and numbers as text, anything else as "".
func scalar(v any) string {
	switch value := v.(type) {
	case string:
		return strings.TrimSpace(value)
	case json.Number:
		return value.String()
	case float64:
		return fmt.Sprint(value)
	case bool:
		if value {
			return "true"
		}
	}
	return ""
}
