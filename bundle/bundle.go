package bundle

import "embed"

// Bundle holds the built-in rego policies
//
//go:embed *.rego
var Bundle embed.FS
