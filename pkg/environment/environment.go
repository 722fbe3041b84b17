// Package environment resolves $VAR / ${VAR} / ${VAR:default} references
// against a stack of scoped overlays, and reads/writes KEY=VAL files (the
// on-disk format of both the discovery cache and the classic-swarm token
// side-car).
package environment

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// reference matches $VAR, ${VAR}, and ${VAR:default}.
var reference = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::([^}]*))?\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// Scope is a push/pop stack of variable overlays. The bottom of the stack
// is always the live process environment; Push adds a layer that shadows
// it, Pop removes the most recently pushed layer. Every caller that pushes
// must pop on every exit path (§5's shared-resource rule).
type Scope struct {
	mu     sync.Mutex
	layers []map[string]string
}

// New returns a Scope with no overlays: lookups fall straight through to
// the process environment.
func New() *Scope {
	return &Scope{}
}

// Push adds an overlay on top of the stack. Keys in vars shadow anything
// beneath them, including the process environment.
func (s *Scope) Push(vars map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	layer := make(map[string]string, len(vars))
	for k, v := range vars {
		layer[k] = v
	}
	s.layers = append(s.layers, layer)
}

// Pop removes the most recently pushed overlay. It is a no-op on an empty
// stack so a mismatched Pop during error unwinding never panics.
func (s *Scope) Pop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.layers) == 0 {
		return
	}
	s.layers = s.layers[:len(s.layers)-1]
}

// Lookup returns the value bound to name, searching overlays from the top
// of the stack down, then the process environment.
func (s *Scope) Lookup(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.layers) - 1; i >= 0; i-- {
		if v, ok := s.layers[i][name]; ok {
			return v, true
		}
	}
	return os.LookupEnv(name)
}

// Resolve replaces every $VAR / ${VAR} / ${VAR:default} in str, iterating
// until a pass produces no further replacement (so a default value that
// itself contains a reference is expanded too). It is idempotent on
// strings containing no '$', or only references with no bound value and no
// default.
func (s *Scope) Resolve(str string) string {
	for {
		next := reference.ReplaceAllStringFunc(str, func(match string) string {
			groups := reference.FindStringSubmatch(match)
			bracedName, def, bareName := groups[1], groups[2], groups[3]

			name := bracedName
			hasDefault := bracedName != "" && strings.Contains(match, ":")
			if name == "" {
				name = bareName
			}

			if v, ok := s.Lookup(name); ok {
				return v
			}
			if hasDefault {
				return def
			}
			return match
		})
		if next == str {
			return str
		}
		str = next
	}
}

// ReadFile parses a KEY=VAL file (blank lines and '#' comments ignored)
// into a map, the format shared by the discovery cache and the
// classic-swarm token side-car.
func ReadFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	defer f.Close()

	vars := map[string]string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		vars[strings.TrimSpace(key)] = strings.TrimSpace(val)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	return vars, nil
}

// WriteFile rewrites path wholesale with vars as sorted KEY=VAL lines, the
// way the discovery cache and the classic-swarm token side-car are always
// rewritten in full rather than patched in place (§5).
func WriteFile(path string, vars map[string]string) error {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, vars[k])
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write env file %s: %w", path, err)
	}
	return nil
}
