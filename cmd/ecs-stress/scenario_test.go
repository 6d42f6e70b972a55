package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestLoadScenario(t *testing.T) {
	t.Run("overrides defaults", func(t *testing.T) {
		sc, err := LoadScenario(strings.NewReader(`
duration: 250ms
worlds: 3
entities: 500
churn: 0.5
max_frames: 20
`))
		require.NoError(t, err)
		assert.Equal(t, 250*time.Millisecond, sc.Duration)
		assert.Equal(t, 3, sc.Worlds)
		assert.Equal(t, 500, sc.Entities)
		assert.Equal(t, 0.5, sc.Churn)
		assert.Equal(t, int64(20), sc.MaxFrames)
		assert.Equal(t, DefaultScenario().MinLifetime, sc.MinLifetime)
		assert.NoError(t, sc.Validate())
	})

	t.Run("empty document keeps defaults", func(t *testing.T) {
		sc, err := LoadScenario(strings.NewReader(""))
		require.NoError(t, err)
		assert.Equal(t, DefaultScenario(), sc)
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		_, err := LoadScenario(strings.NewReader("worldz: 3\n"))
		assert.Error(t, err)
	})
}

func TestScenarioValidate(t *testing.T) {
	assert.NoError(t, DefaultScenario().Validate())

	sc := DefaultScenario()
	sc.Worlds = 0
	sc.Churn = 2
	sc.MaxLifetime = 0.5
	err := sc.Validate()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 3)

	sc = DefaultScenario()
	sc.Duration = 0
	assert.Error(t, sc.Validate())
	sc.MaxFrames = 10
	assert.NoError(t, sc.Validate())
}
