package yamlmodel

import "fmt"

// ParseError is raised for malformed YAML: syntax errors, or a document
// whose top-level shape isn't a mapping. It always aborts the command
// immediately, per the first failure class in §7.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ResolutionError is raised when an `include:` entry cannot be read from
// disk, or when nested includes exceed the configured depth.
type ResolutionError struct {
	Path   string // the path that could not be resolved
	Origin string // the YAML file that referenced it
	Err    error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %q (referenced from %s): %v", e.Path, e.Origin, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }
