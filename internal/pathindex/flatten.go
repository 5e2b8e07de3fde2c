package pathindex

import (
	"sort"
	"strconv"
)

// Separator joins the segments of a path.
const Separator = "."

// Flatten returns one dotted path for every leaf in v.
//
// Mapping keys are visited in sorted order and sequence elements by index,
// so the output order is deterministic. Empty mappings and sequences have
// no leaves and contribute nothing. A bare scalar root has no addressable
// sub-path and yields an empty result.
func Flatten(v Value) []string {
	var paths []string
	visit(v, "", 0, &paths)
	return paths
}

func visit(v Value, prefix string, depth int, out *[]string) {
	switch node := v.(type) {
	case Mapping:
		keys := make([]string, 0, len(node))
		for k := range node {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			visit(node[k], join(prefix, k, depth), depth+1, out)
		}
	case Sequence:
		for i, child := range node {
			visit(child, join(prefix, strconv.Itoa(i), depth), depth+1, out)
		}
	default:
		// Scalars, and nil children of hand-built trees, are leaves.
		if depth > 0 {
			*out = append(*out, prefix)
		}
	}
}

func join(prefix, segment string, depth int) string {
	if depth == 0 {
		return segment
	}
	return prefix + Separator + segment
}
