// Package _default registers the estimators that can be included in any front-end of snakeGo
// without extra requirements.
//
// Currently, it includes the plain feed-forward network ("plain") and the linear model ("linear"). The GoMLX
// dueling network is registered by importing package ai/gomlx.
package _default

import (
	_ "github.com/janpfeifer/snakeGo/internal/ai/linear"
	_ "github.com/janpfeifer/snakeGo/internal/ai/mlp"
)
