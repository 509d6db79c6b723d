package policysync

import (
	_ "embed"
)

// basePolicy is the built-in Rego module that turns the pushed role
// mapping document into per-application roles.
//
//go:embed permissions.rego
var basePolicy string
