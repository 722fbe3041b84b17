package yamlmodel

// Merge combines base and overlay using the recursive, list-appending rule
// of §4.1: scalars in overlay replace the same key in base; maps merge
// key-by-key, recursing; lists concatenate (base entries first); a key
// ending in ":" is a terminal literal and is never recursed into, even if
// both sides hold a map at that key. Neither argument is mutated; the
// result is a new value sharing no map/slice with either input that this
// function itself constructs.
func Merge(base, overlay interface{}) interface{} {
	baseMap, baseIsMap := base.(map[string]interface{})
	overlayMap, overlayIsMap := overlay.(map[string]interface{})
	if baseIsMap && overlayIsMap {
		return mergeMaps(baseMap, overlayMap)
	}

	baseList, baseIsList := base.([]interface{})
	overlayList, overlayIsList := overlay.([]interface{})
	if baseIsList && overlayIsList {
		out := make([]interface{}, 0, len(baseList)+len(overlayList))
		out = append(out, baseList...)
		out = append(out, overlayList...)
		return out
	}

	if overlay == nil {
		return base
	}
	return overlay
}

func mergeMaps(base, overlay map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		if isTerminalKey(k) {
			out[k] = v
			continue
		}
		if existing, ok := out[k]; ok {
			out[k] = Merge(existing, v)
		} else {
			out[k] = v
		}
	}
	return out
}

// isTerminalKey reports whether key names a terminal literal: one ending
// in a colon is never recursively merged, matching the Tcl source's
// convention of distinguishing structural keys from leaf keys that happen
// to hold a dict-shaped value (e.g. a raw label map that should be
// replaced wholesale, not deep-merged field by field).
func isTerminalKey(key string) bool {
	return len(key) > 0 && key[len(key)-1] == ':'
}
