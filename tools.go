//go:build tools

// Package roomrelay declares tool dependencies invoked through go generate.
package roomrelay

import (
	_ "go.uber.org/mock/mockgen"
)
