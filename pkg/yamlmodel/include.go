package yamlmodel

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// resolveIncludes merges every path under doc["include"] into doc, in
// listed order, each relative to dir. Recursion (an included file may
// itself include others) is bounded by depth; exceeding it is a
// ResolutionError rather than a silent truncation, since an unbounded
// include graph is a configuration mistake, not expected input.
func resolveIncludes(doc map[string]interface{}, dir string, origin string, depth, maxDepth int) (map[string]interface{}, error) {
	raw, ok := doc["include"]
	if !ok {
		return doc, nil
	}
	if depth >= maxDepth {
		return nil, &ResolutionError{Path: origin, Origin: origin, Err: fmt.Errorf("include depth exceeds %d", maxDepth)}
	}

	entries, _ := raw.([]interface{})
	result := doc
	for _, e := range entries {
		relPath, ok := e.(string)
		if !ok {
			continue
		}
		path := relPath
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &ResolutionError{Path: relPath, Origin: origin, Err: err}
		}

		var included map[string]interface{}
		if err := yaml.Unmarshal(data, &included); err != nil {
			return nil, &ParseError{Path: path, Err: err}
		}

		included, err = resolveIncludes(included, filepath.Dir(path), path, depth+1, maxDepth)
		if err != nil {
			return nil, err
		}

		result = Merge(included, result).(map[string]interface{})
	}
	delete(result, "include")
	return result, nil
}
