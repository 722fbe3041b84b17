package yamlmodel

import "github.com/efrecon/machinery/pkg/log"

// resolveExtends applies each machine's `extends:` list up to maxPasses
// times. A is replaced by merge(B, A) for each B it extends, in listed
// order, so A's own fields win over whatever it inherits. The worklist
// stops as soon as a pass makes no replacement (fixpoint) or the pass
// budget runs out, never by recursing into the reference graph directly
// (§9's design note: bounded-iteration worklist, not recursion).
func resolveExtends(machines map[string]map[string]interface{}, maxPasses int) map[string]map[string]interface{} {
	for pass := 0; pass < maxPasses; pass++ {
		changed := false
		for name, spec := range machines {
			raw, ok := spec["extends"]
			if !ok {
				continue
			}
			refs := toStringList(raw)
			merged := spec
			for _, ref := range refs {
				base, found := machines[ref]
				if !found {
					log.WithComponent("yamlmodel").Warn().
						Str("machine", name).Str("extends", ref).
						Msg("extends reference not found, ignored")
					continue
				}
				merged = Merge(base, merged).(map[string]interface{})
			}
			delete(merged, "extends")
			if !mapsEqual(merged, spec) {
				machines[name] = merged
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return machines
}

func toStringList(v interface{}) []string {
	switch val := v.(type) {
	case string:
		return []string{val}
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, e := range val {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func mapsEqual(a, b map[string]interface{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || !deepEqual(v, bv) {
			return false
		}
	}
	return true
}

func deepEqual(a, b interface{}) bool {
	am, aok := a.(map[string]interface{})
	bm, bok := b.(map[string]interface{})
	if aok && bok {
		return mapsEqual(am, bm)
	}
	al, aok := a.([]interface{})
	bl, bok := b.([]interface{})
	if aok && bok {
		if len(al) != len(bl) {
			return false
		}
		for i := range al {
			if !deepEqual(al[i], bl[i]) {
				return false
			}
		}
		return true
	}
	return a == b
}
