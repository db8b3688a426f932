// Package stories defines the content entry model shared by the fetch
// and resolution pipeline.
package stories

// Story is one fetched content entry. Content holds the dynamically
// shaped content tree; every other field is fixed metadata and is never
// a resolution target.
type Story struct {
	UUID             string         `json:"uuid"`
	Name             string         `json:"name"`
	Slug             string         `json:"slug"`
	FullSlug         string         `json:"full_slug"`
	CreatedAt        string         `json:"created_at,omitempty"`
	PublishedAt      string         `json:"published_at,omitempty"`
	FirstPublishedAt string         `json:"first_published_at,omitempty"`
	Content          map[string]any `json:"content"`
}

// Document returns the story as a plain content-tree value suitable for
// substitution into another story's tree. The content map is deep-copied
// so that substituted trees never alias the dictionary's raw entries.
func (s Story) Document() map[string]any {
	doc := map[string]any{
		"uuid":      s.UUID,
		"name":      s.Name,
		"slug":      s.Slug,
		"full_slug": s.FullSlug,
		"content":   CloneValue(s.Content),
	}
	if s.CreatedAt != "" {
		doc["created_at"] = s.CreatedAt
	}
	if s.PublishedAt != "" {
		doc["published_at"] = s.PublishedAt
	}
	if s.FirstPublishedAt != "" {
		doc["first_published_at"] = s.FirstPublishedAt
	}
	return doc
}

// CloneValue deep-copies a content-tree value. Values are the usual
// decoded JSON shapes: nil, bool, float64, string, []any, map[string]any.
func CloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = CloneValue(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = CloneValue(child)
		}
		return out
	default:
		// Scalars are immutable.
		return v
	}
}

// Dictionary indexes stories by UUID for O(1) relation lookup. It is
// built once per market from the raw fetch and treated as read-only
// while that market resolves.
type Dictionary map[string]Story

// BuildDictionary folds a story list into a Dictionary in a single
// linear pass. The last story with a given UUID wins. No relation
// resolution happens here.
func BuildDictionary(list []Story) Dictionary {
	dict := make(Dictionary, len(list))
	for _, s := range list {
		dict[s.UUID] = s
	}
	return dict
}
