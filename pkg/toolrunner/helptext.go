package toolrunner

import "regexp"

// flagPattern matches a `--flag` or `--flag value` token at the start of a
// help-output option line, e.g. "   --virtualbox-cpu-count value  ...".
var flagPattern = regexp.MustCompile(`--([a-zA-Z][a-zA-Z0-9-]*)`)

// ParseOptions extracts the set of recognized `--flag` names from a tool's
// `--help` output, so a driver's option list can be validated before it is
// forwarded to `docker-machine create` (§4.2).
func ParseOptions(helpText string) map[string]bool {
	options := map[string]bool{}
	for _, match := range flagPattern.FindAllStringSubmatch(helpText, -1) {
		options[match[1]] = true
	}
	return options
}
