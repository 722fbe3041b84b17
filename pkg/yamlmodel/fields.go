package yamlmodel

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/efrecon/machinery/pkg/types"
)

// parsePorts accepts entries shaped "8080", "8080:80", or "8080:80/udp".
func parsePorts(v interface{}) []types.PortForward {
	list, _ := v.([]interface{})
	out := make([]types.PortForward, 0, len(list))
	for _, entry := range list {
		s, ok := entry.(string)
		if !ok {
			continue
		}
		proto := "tcp"
		if idx := strings.LastIndex(s, "/"); idx >= 0 {
			proto = s[idx+1:]
			s = s[:idx]
		}
		parts := strings.SplitN(s, ":", 2)
		host, _ := strconv.Atoi(parts[0])
		guest := host
		if len(parts) == 2 {
			guest, _ = strconv.Atoi(parts[1])
		}
		out = append(out, types.PortForward{Host: host, Guest: guest, Protocol: proto})
	}
	return out
}

// parseShares accepts a bare path, "host:guest:type", or a three-element
// list [host, guest, type] (§4.6).
func parseShares(v interface{}, dir string) []types.Share {
	list, _ := v.([]interface{})
	out := make([]types.Share, 0, len(list))
	for _, entry := range list {
		var host, guest, shareType string
		switch e := entry.(type) {
		case string:
			parts := strings.SplitN(e, ":", 3)
			host = parts[0]
			if len(parts) > 1 {
				guest = parts[1]
			}
			if len(parts) > 2 {
				shareType = parts[2]
			}
		case []interface{}:
			if len(e) > 0 {
				host, _ = e[0].(string)
			}
			if len(e) > 1 {
				guest, _ = e[1].(string)
			}
			if len(e) > 2 {
				shareType, _ = e[2].(string)
			}
		default:
			continue
		}
		if guest == "" {
			guest = host
		}
		if !filepath.IsAbs(host) {
			host = filepath.Join(dir, host)
		}
		options := map[string]string{}
		if shareType != "" {
			options["type"] = shareType
		}
		out = append(out, types.Share{Host: host, Guest: guest, Options: options})
	}
	return out
}

func parseCompose(v interface{}, dir string) []types.ComposeProject {
	list, _ := v.([]interface{})
	out := make([]types.ComposeProject, 0, len(list))
	for _, entry := range list {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		file, _ := m["file"].(string)
		if file != "" && !filepath.IsAbs(file) {
			file = filepath.Join(dir, file)
		}
		keep, _ := m["keep"].(bool)
		out = append(out, types.ComposeProject{Name: name, File: file, Keep: keep})
	}
	return out
}

func parseRegistries(v interface{}) []types.Registry {
	list, _ := v.([]interface{})
	out := make([]types.Registry, 0, len(list))
	for _, entry := range list {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, types.Registry{
			URL:      stringOr(m["url"], ""),
			Username: stringOr(m["username"], ""),
			Password: stringOr(m["password"], ""),
		})
	}
	return out
}

func parseFileCopies(v interface{}, dir string) []types.FileCopy {
	list, _ := v.([]interface{})
	out := make([]types.FileCopy, 0, len(list))
	for _, entry := range list {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		host, _ := m["host"].(string)
		guest, _ := m["guest"].(string)
		if host != "" && !filepath.IsAbs(host) {
			host = filepath.Join(dir, host)
		}
		out = append(out, types.FileCopy{Host: host, Guest: guest})
	}
	return out
}

func parseExecSpecs(v interface{}) []types.ExecSpec {
	list, _ := v.([]interface{})
	out := make([]types.ExecSpec, 0, len(list))
	for _, entry := range list {
		switch e := entry.(type) {
		case string:
			out = append(out, types.ExecSpec{Command: strings.Fields(e)})
		case []interface{}:
			cmd := make([]string, 0, len(e))
			for _, part := range e {
				if s, ok := part.(string); ok {
					cmd = append(cmd, s)
				}
			}
			out = append(out, types.ExecSpec{Command: cmd})
		}
	}
	return out
}

// ResolvedEnvironment returns the machine's effective environment: every
// env_file is read and merged in listed order to form the base map, then
// `environment:` entries override matching keys (last-applies-wins, the
// resolution pinned in DESIGN.md for the otherwise-undocumented precedence
// between the two keys).
func ResolvedEnvironment(spec *types.MachineSpec, readFile func(path string) (map[string]string, error)) (map[string]string, error) {
	result := map[string]string{}
	for _, path := range spec.EnvFile {
		vars, err := readFile(path)
		if err != nil {
			return nil, err
		}
		for k, v := range vars {
			result[k] = v
		}
	}
	for k, v := range spec.Environment {
		result[k] = v
	}
	return result, nil
}
