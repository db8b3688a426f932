package resolver

import (
	"strconv"
	"strings"

	"github.com/bernardodestefano/storyblok-fast-client/pkg/stories"
)

// pathSeparator joins path segments when the subtree is flattened.
const pathSeparator = "."

// resolveDeclaredFields runs the fixed-point loop over the configured
// content subtree: flatten, locate component instances, substitute
// their declared fields, repeat over the whole subtree until an
// iteration changes nothing or the iteration cap is reached.
func (r *Resolver) resolveDeclaredFields(story stories.Story, dict stories.Dictionary) {
	root, ok := story.Content[r.config.RootField]
	if !ok {
		return
	}

	for iteration := 0; iteration < r.config.MaxIterations; iteration++ {
		if !r.declaredFieldPass(root, dict) {
			r.logger.Debug().
				Str("uuid", story.UUID).
				Int("iterations", iteration+1).
				Msg("Resolution reached fixed point")
			return
		}
	}

	iterationCapHitsTotal.Inc()
	r.logger.Warn().
		Str("uuid", story.UUID).
		Int("max_iterations", r.config.MaxIterations).
		Msg("Resolution stopped at iteration cap")
}

// declaredFieldPass performs one flatten-and-substitute sweep and
// reports whether it changed anything.
func (r *Resolver) declaredFieldPass(root any, dict stories.Dictionary) bool {
	leaves := make(map[string]any)
	flattenLeaves(root, "", leaves)

	changed := false
	for path, value := range leaves {
		component, ok := value.(string)
		if !ok {
			continue
		}
		fields, ok := r.config.Relations[component]
		if !ok {
			continue
		}

		// The leaf's parent node is one component instance.
		instance, ok := valueAt(root, parentPath(path)).(map[string]any)
		if !ok {
			continue
		}

		for _, field := range fields {
			if reservedKeys[field] {
				continue
			}
			if r.substituteField(instance, field, dict) {
				changed = true
			}
		}
	}

	return changed
}

// substituteField replaces a declared field's identifier value with
// the referenced story's document. String values substitute directly;
// sequences of strings substitute element-wise. Identifiers absent
// from the dictionary keep their original string. Anything else is
// untouched.
func (r *Resolver) substituteField(instance map[string]any, field string, dict stories.Dictionary) bool {
	value, ok := instance[field]
	if !ok {
		return false
	}

	switch val := value.(type) {
	case string:
		ref, ok := dict[val]
		if !ok {
			return false
		}
		instance[field] = ref.Document()
		substitutionsTotal.WithLabelValues(string(StrategyDeclaredField)).Inc()
		return true

	case []any:
		if len(val) == 0 {
			return false
		}
		for _, elem := range val {
			if _, ok := elem.(string); !ok {
				return false
			}
		}
		changed := false
		for i, elem := range val {
			id := elem.(string)
			ref, ok := dict[id]
			if !ok {
				continue
			}
			val[i] = ref.Document()
			substitutionsTotal.WithLabelValues(string(StrategyDeclaredField)).Inc()
			changed = true
		}
		return changed

	default:
		return false
	}
}

// flattenLeaves builds depth-first path→leaf pairs for every scalar in
// the subtree. Path segments are joined by pathSeparator; sequence
// elements use their index as segment.
func flattenLeaves(v any, prefix string, out map[string]any) {
	switch val := v.(type) {
	case map[string]any:
		for key, child := range val {
			flattenLeaves(child, joinPath(prefix, key), out)
		}
	case []any:
		for i, child := range val {
			flattenLeaves(child, joinPath(prefix, strconv.Itoa(i)), out)
		}
	default:
		out[prefix] = v
	}
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return prefix + pathSeparator + segment
}

// parentPath strips the final segment.
func parentPath(path string) string {
	idx := strings.LastIndex(path, pathSeparator)
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

// valueAt navigates a flattened path back into the subtree.
func valueAt(root any, path string) any {
	if path == "" {
		return root
	}

	current := root
	for _, segment := range strings.Split(path, pathSeparator) {
		switch node := current.(type) {
		case map[string]any:
			current = node[segment]
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil
			}
			current = node[idx]
		default:
			return nil
		}
	}
	return current
}
