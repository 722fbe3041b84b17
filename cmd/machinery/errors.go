package main

import "errors"

// ErrTransient marks a retried-and-given-up condition (SSH never came up, a
// VM never reached the wanted state, no token was cached yet): the caller
// logs and moves on rather than aborting the whole command.
var ErrTransient = errors.New("transient condition did not resolve")

// ErrToolFailure marks a non-zero exit from docker/docker-machine/
// docker-compose that a command chose to treat as fatal to itself (as
// opposed to the warn-and-skip treatment most sub-operations get).
var ErrToolFailure = errors.New("external tool reported failure")

// ErrInvariant marks a data-model invariant violation caught at the CLI
// boundary (an unresolvable machine name, a stack name with no deploy).
var ErrInvariant = errors.New("invariant violation")
