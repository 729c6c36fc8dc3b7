//go:build nogomlx

package main

import "github.com/janpfeifer/snakeGo/internal/estimators"

func init() {
	// Without GoMLX only the plain network is available.
	estimators.DefaultConfig = "plain"
}
