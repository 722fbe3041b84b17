// Package compose linearizes a compose/stack YAML document into a single
// self-contained file suitable for `docker stack deploy`: v2-style
// `extends:` references inlined, and every `env_file` and top-level
// `configs:`/`secrets:` entry rewritten to a remote path a stack deploy will
// copy alongside it (§4.4's "hardest piece"). Files named by `extends.file`
// are read locally while inlining; they are neither rewritten nor listed
// among the files to copy. It operates on a
// yaml.Node tree rather than a generic map so comments and key order survive
// the rewrite, the technique this package borrows from the pack's own
// config-formatter (DESIGN.md).
package compose

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileRef is one file this document references by relative path: an
// env_file or a configs/secrets `file:` entry. Linearize
// collects these so the caller can SCP them to the manager and knows what
// remote name each was rewritten to.
type FileRef struct {
	Local  string // path as resolved against dir
	Remote string // dirbase = dir-tail + stem, per §4.4 step 2
}

// Document is a linearized compose file plus the local files it references.
type Document struct {
	YAML  []byte
	Files []FileRef
}

// Linearize reads the compose file at path, inlines any extends references
// found within dir (the project directory extends.file paths are relative
// to), and rewrites env_file/configs/secrets references to the remote paths
// they will be copied to.
func Linearize(path string) (*Document, error) {
	dir := filepath.Dir(path)
	root, err := loadNode(path)
	if err != nil {
		return nil, err
	}

	if err := inlineExtends(root, dir); err != nil {
		return nil, fmt.Errorf("linearize %s: %w", path, err)
	}

	var refs []FileRef
	rewriteFileReferences(root, dir, &refs)

	out, err := yaml.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("linearize %s: marshal: %w", path, err)
	}
	return &Document{YAML: out, Files: refs}, nil
}

func loadNode(path string) (*yaml.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		return doc.Content[0], nil
	}
	return &doc, nil
}

// remoteName computes dirbase = dir-tail + stem for local, the naming rule
// §4.4 step 2 specifies for a file copied to the manager's temp directory.
func remoteName(dir, local string) string {
	tail := filepath.Base(dir)
	stem := filepath.Base(local)
	return tail + "-" + stem
}

// rewriteFileReferences walks every service's env_file list and the
// top-level configs:/secrets: file: entries, replacing each local path with
// its remote name and recording the mapping.
func rewriteFileReferences(root *yaml.Node, dir string, refs *[]FileRef) {
	if root.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i < len(root.Content); i += 2 {
		key := root.Content[i].Value
		value := root.Content[i+1]
		switch key {
		case "services":
			rewriteServiceEnvFiles(value, dir, refs)
		case "configs", "secrets":
			rewriteFileEntries(value, dir, refs)
		}
	}
}

func rewriteServiceEnvFiles(services *yaml.Node, dir string, refs *[]FileRef) {
	if services.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i < len(services.Content); i += 2 {
		service := services.Content[i+1]
		if service.Kind != yaml.MappingNode {
			continue
		}
		for j := 0; j < len(service.Content); j += 2 {
			if service.Content[j].Value != "env_file" {
				continue
			}
			rewriteEnvFileNode(service.Content[j+1], dir, refs)
		}
	}
}

func rewriteEnvFileNode(node *yaml.Node, dir string, refs *[]FileRef) {
	switch node.Kind {
	case yaml.ScalarNode:
		node.Value = remoteFor(node.Value, dir, refs)
	case yaml.SequenceNode:
		for _, item := range node.Content {
			if item.Kind == yaml.ScalarNode {
				item.Value = remoteFor(item.Value, dir, refs)
			}
		}
	}
}

func rewriteFileEntries(entries *yaml.Node, dir string, refs *[]FileRef) {
	if entries.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i < len(entries.Content); i += 2 {
		entry := entries.Content[i+1]
		if entry.Kind != yaml.MappingNode {
			continue
		}
		for j := 0; j < len(entry.Content); j += 2 {
			if entry.Content[j].Value == "file" {
				entry.Content[j+1].Value = remoteFor(entry.Content[j+1].Value, dir, refs)
			}
		}
	}
}

func remoteFor(local, dir string, refs *[]FileRef) string {
	remote := remoteName(dir, local)
	*refs = append(*refs, FileRef{Local: filepath.Join(dir, local), Remote: remote})
	return remote
}

// inlineExtends replaces every service's `extends:` entry with a merge
// (mergeServiceNodes) of the referenced service's definition from
// extends.file, recursively, so the linearized document never contains
// `extends:` (v3-incompatible). An `extends:` without `file:`, naming a
// service of the same document, is not resolved: it returns an error.
func inlineExtends(root *yaml.Node, dir string) error {
	servicesNode := mappingValue(root, "services")
	if servicesNode == nil || servicesNode.Kind != yaml.MappingNode {
		return nil
	}

	cache := map[string]*yaml.Node{} // path -> parsed root, avoids re-reading extends.file repeatedly
	for i := 0; i < len(servicesNode.Content); i += 2 {
		service := servicesNode.Content[i+1]
		if err := inlineServiceExtends(service, dir, cache, 0); err != nil {
			return err
		}
	}
	return nil
}

func inlineServiceExtends(service *yaml.Node, dir string, cache map[string]*yaml.Node, depth int) error {
	if depth > 10 {
		return fmt.Errorf("extends chain too deep (possible cycle)")
	}
	if service.Kind != yaml.MappingNode {
		return nil
	}

	extendsIdx := -1
	for i := 0; i < len(service.Content); i += 2 {
		if service.Content[i].Value == "extends" {
			extendsIdx = i
			break
		}
	}
	if extendsIdx < 0 {
		return nil
	}
	extendsNode := service.Content[extendsIdx+1]

	base, err := resolveExtendsTarget(extendsNode, dir, cache)
	if err != nil {
		return err
	}
	if err := inlineServiceExtends(base, dir, cache, depth+1); err != nil {
		return err
	}

	merged := mergeServiceNodes(base, service)
	*service = *merged
	removeKey(service, "extends")
	return nil
}

func resolveExtendsTarget(extendsNode *yaml.Node, dir string, cache map[string]*yaml.Node) (*yaml.Node, error) {
	serviceName := ""
	file := ""
	switch extendsNode.Kind {
	case yaml.ScalarNode:
		serviceName = extendsNode.Value
	case yaml.MappingNode:
		for i := 0; i < len(extendsNode.Content); i += 2 {
			switch extendsNode.Content[i].Value {
			case "service":
				serviceName = extendsNode.Content[i+1].Value
			case "file":
				file = extendsNode.Content[i+1].Value
			}
		}
	}
	if serviceName == "" {
		return nil, fmt.Errorf("extends entry missing service name")
	}

	root := (*yaml.Node)(nil)
	if file == "" {
		return nil, fmt.Errorf("extends %q: same-file extends needs the original document, not supported without file:", serviceName)
	}

	path := filepath.Join(dir, file)
	var err error
	root, ok := cache[path]
	if !ok {
		root, err = loadNode(path)
		if err != nil {
			return nil, fmt.Errorf("extends %s: %w", file, err)
		}
		cache[path] = root
	}

	services := mappingValue(root, "services")
	if services == nil {
		// a bare service map file, not wrapped in a "services:" key
		services = root
	}
	target := mappingValue(services, serviceName)
	if target == nil {
		return nil, fmt.Errorf("extends %s: service %q not found", file, serviceName)
	}
	return target, nil
}

// mergeServiceNodes shallow-merges base under override: override's own keys
// win, base's remaining keys are appended. List-valued keys (volumes,
// environment, ports, etc.) are concatenated rather than replaced, matching
// compose's own extends semantics.
func mergeServiceNodes(base, override *yaml.Node) *yaml.Node {
	result := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	seen := map[string]bool{}

	for i := 0; i < len(override.Content); i += 2 {
		key, value := override.Content[i], override.Content[i+1]
		seen[key.Value] = true
		if baseValue := mappingValue(base, key.Value); baseValue != nil && value.Kind == yaml.SequenceNode && baseValue.Kind == yaml.SequenceNode {
			merged := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
			merged.Content = append(merged.Content, baseValue.Content...)
			merged.Content = append(merged.Content, value.Content...)
			result.Content = append(result.Content, key, merged)
			continue
		}
		result.Content = append(result.Content, key, value)
	}

	for i := 0; i < len(base.Content); i += 2 {
		key, value := base.Content[i], base.Content[i+1]
		if seen[key.Value] {
			continue
		}
		result.Content = append(result.Content, key, value)
	}
	return result
}

func mappingValue(mapping *yaml.Node, key string) *yaml.Node {
	if mapping == nil || mapping.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

func removeKey(mapping *yaml.Node, key string) {
	newContent := make([]*yaml.Node, 0, len(mapping.Content))
	for i := 0; i < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			continue
		}
		newContent = append(newContent, mapping.Content[i], mapping.Content[i+1])
	}
	mapping.Content = newContent
}

// StackName derives a docker-stack-safe name from a cluster-qualified
// project name: lowercased, any run of characters outside [a-z0-9_]
// (dashes included) collapsed to a single '-', leading and trailing dashes
// trimmed.
func StackName(name string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_':
			b.WriteRune(r)
			prevDash = false
		case !prevDash:
			b.WriteRune('-')
			prevDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}
