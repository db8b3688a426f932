package resolver

import "github.com/bernardodestefano/storyblok-fast-client/pkg/stories"

// resolveWholeTree walks every field of the content tree. Any string
// scalar equal to a dictionary key becomes the referenced story's
// document, and substitution recurses into the replacement so chains
// expand fully. Termination on cyclic graphs is guaranteed by a
// per-root visited-identifier set plus the depth cap.
func (r *Resolver) resolveWholeTree(story stories.Story, dict stories.Dictionary) {
	visited := map[string]bool{story.UUID: true}
	r.walkMap(story.Content, dict, visited, 0)
}

func (r *Resolver) walkMap(node map[string]any, dict stories.Dictionary, visited map[string]bool, depth int) {
	for key, val := range node {
		if reservedKeys[key] {
			continue
		}
		node[key] = r.substitute(val, dict, visited, depth)
	}
}

func (r *Resolver) substitute(v any, dict stories.Dictionary, visited map[string]bool, depth int) any {
	if depth >= r.config.MaxDepth {
		return v
	}

	switch val := v.(type) {
	case string:
		ref, ok := dict[val]
		if !ok || visited[val] {
			return val
		}

		// visited holds the identifiers on the current substitution
		// chain. Marking before the recursive expansion and unmarking
		// after keeps cycles out while still letting the same story
		// resolve again in a sibling branch.
		visited[val] = true
		substitutionsTotal.WithLabelValues(string(StrategyWholeTree)).Inc()

		doc := ref.Document()
		if content, ok := doc["content"].(map[string]any); ok {
			r.walkMap(content, dict, visited, depth+1)
		}
		delete(visited, val)
		return doc

	case map[string]any:
		r.walkMap(val, dict, visited, depth+1)
		return val

	case []any:
		for i, elem := range val {
			val[i] = r.substitute(elem, dict, visited, depth+1)
		}
		return val

	default:
		// Remaining scalars: nil, bool, float64.
		return v
	}
}
