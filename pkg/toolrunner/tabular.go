package toolrunner

import (
	"regexp"
	"strings"
)

// ParseTable turns a command's headered tabular output (the shape of
// `docker-machine ls` / `docker node ls` / `docker stack ls`) into a list
// of records keyed by lowercased, underscore-joined header names. Column
// boundaries are computed from the first occurrence of each header word in
// the header line, so values containing spaces don't shift later columns.
// overrides remaps a header's default key, e.g. {"CONTAINER ID":
// "CONTAINER_ID"} to avoid colliding with a synthesized one.
func ParseTable(lines []string, overrides map[string]string) []map[string]string {
	if len(lines) == 0 {
		return nil
	}

	headers, starts := headerColumns(lines[0])
	if len(headers) == 0 {
		return nil
	}

	keys := make([]string, len(headers))
	for i, h := range headers {
		if k, ok := overrides[h]; ok {
			keys[i] = k
		} else {
			keys[i] = normalizeHeader(h)
		}
	}

	var rows []map[string]string
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		row := make(map[string]string, len(keys))
		for i, start := range starts {
			end := len(line)
			if i+1 < len(starts) {
				end = starts[i+1]
			}
			if start > len(line) {
				row[keys[i]] = ""
				continue
			}
			if end > len(line) {
				end = len(line)
			}
			row[keys[i]] = strings.TrimSpace(line[start:end])
		}
		rows = append(rows, row)
	}
	return rows
}

// headerColumns splits a header line into its words and the byte offset
// each word starts at, treating runs of two-or-more spaces as the column
// separator (the convention every `docker*` tabular command uses).
func headerColumns(headerLine string) (headers []string, starts []int) {
	fields := regexp.MustCompile(`\s{2,}`).Split(strings.TrimRight(headerLine, " "), -1)
	offset := 0
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		idx := strings.Index(headerLine[offset:], f)
		if idx < 0 {
			continue
		}
		start := offset + idx
		headers = append(headers, f)
		starts = append(starts, start)
		offset = start + len(f)
	}
	return headers, starts
}

// normalizeHeader lowercases a header and replaces internal spaces with
// underscores, e.g. "CONTAINER ID" -> "container_id".
func normalizeHeader(header string) string {
	return strings.ReplaceAll(strings.ToLower(header), " ", "_")
}
