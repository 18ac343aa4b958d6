// Package all is a convenience wrapper that registers all known bulb implementations.
// Importing this package enables the golede factory to find drivers for any
// supported bulb.
package all

// Import each implementation package for its side-effects (the init() function).
import (
	_ "github.com/mlsorensen/golede/pkg/bulbs/lede"
	_ "github.com/mlsorensen/golede/pkg/bulbs/mock"
)
