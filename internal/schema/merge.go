package schema

// MergePolicy names how submitted values combine with stored ones.
type MergePolicy string

const (
	// MergeOverride: every submitted field overrides, empty values
	// included. Absent fields keep their stored value.
	MergeOverride MergePolicy = "override"
	// MergeKeepEmpty: like override, but a blank submitted value (nil, "",
	// empty list or mapping) keeps the stored value.
	MergeKeepEmpty MergePolicy = "keep_empty"
)

// Merge returns a new mapping holding existing overlaid with data. Nested
// mappings present on both sides merge recursively; lists and scalars are
// replaced whole. Neither input is modified.
func Merge(policy MergePolicy, existing, data map[string]any) map[string]any {
	out := make(map[string]any, len(existing)+len(data))
	for k, v := range existing {
		out[k] = v
	}
	for k, v := range data {
		old, had := out[k]
		if had && policy == MergeKeepEmpty && isBlank(v) {
			continue
		}
		newMap, newIsMap := v.(map[string]any)
		oldMap, oldIsMap := old.(map[string]any)
		if had && newIsMap && oldIsMap {
			out[k] = Merge(policy, oldMap, newMap)
			continue
		}
		out[k] = v
	}
	return out
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}
