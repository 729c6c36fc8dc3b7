package settings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	s := Default()
	require.NoError(t, s.Validate())
	assert.Equal(t, 150, s.Episodes)
	assert.Equal(t, 440, s.BoardWidth)
	assert.Equal(t, float32(0.9), s.Gamma)
	assert.Equal(t, 80, s.EpsilonBase)
	assert.Equal(t, 200, s.EpsilonRange)
	assert.Equal(t, 1000, s.ReplaySize)
	assert.Empty(t, s.WeightsPath)
}

func TestValidate(t *testing.T) {
	for name, modify := range map[string]func(s *Settings){
		"episodes":      func(s *Settings) { s.Episodes = 0 },
		"small board":   func(s *Settings) { s.BoardWidth = 40 },
		"unaligned":     func(s *Settings) { s.BoardHeight = 450 },
		"gamma":         func(s *Settings) { s.Gamma = 1.5 },
		"epsilon range": func(s *Settings) { s.EpsilonRange = 0 },
		"replay":        func(s *Settings) { s.ReplaySize = -1 },
		"speed":         func(s *Settings) { s.Speed = -time.Second },
	} {
		s := Default()
		modify(s)
		assert.Error(t, s.Validate(), "setting %q should be invalid", name)
	}
}
