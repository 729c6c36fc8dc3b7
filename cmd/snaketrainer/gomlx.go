//go:build !nogomlx

package main

// Include GoMLX models support: the dueling network, the default estimator.

import (
	_ "github.com/gomlx/gomlx/backends/default"
	_ "github.com/janpfeifer/snakeGo/internal/ai/gomlx"
)
