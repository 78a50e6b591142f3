//go:build tools

package tools

import (
	_ "github.com/roblaszczak/go-cleanarch"
)
