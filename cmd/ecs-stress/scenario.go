package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Scenario describes one stress run. Every world in the run is populated and
// driven independently with the same parameters and its own random stream.
type Scenario struct {
	Duration  time.Duration `yaml:"duration"`
	Worlds    int           `yaml:"worlds"`
	Entities  int           `yaml:"entities"`
	MaxFrames int64         `yaml:"max_frames"`
	Seed      uint64        `yaml:"seed"`

	// Churn is the fraction of entities whose component set changes per frame.
	Churn float64 `yaml:"churn"`
	// Lifetime bounds, in seconds, for entities spawned with a Lifetime component.
	MinLifetime float64 `yaml:"min_lifetime"`
	MaxLifetime float64 `yaml:"max_lifetime"`
}

func DefaultScenario() Scenario {
	return Scenario{
		Duration:    10 * time.Second,
		Worlds:      1,
		Entities:    10000,
		Seed:        1,
		Churn:       0.02,
		MinLifetime: 1,
		MaxLifetime: 5,
	}
}

// LoadScenario reads a YAML scenario on top of the defaults.
func LoadScenario(r io.Reader) (Scenario, error) {
	sc := DefaultScenario()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil && !errors.Is(err, io.EOF) {
		return Scenario{}, fmt.Errorf("decode scenario: %w", err)
	}
	return sc, nil
}

func LoadScenarioFile(path string) (Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return Scenario{}, err
	}
	defer f.Close()
	return LoadScenario(f)
}

// Validate reports every invalid field at once.
func (s Scenario) Validate() error {
	var err error
	if s.Duration <= 0 && s.MaxFrames <= 0 {
		err = multierr.Append(err, errors.New("either duration or max_frames must be positive"))
	}
	if s.Worlds < 1 {
		err = multierr.Append(err, fmt.Errorf("worlds must be at least 1, got %d", s.Worlds))
	}
	if s.Entities < 0 {
		err = multierr.Append(err, fmt.Errorf("entities must not be negative, got %d", s.Entities))
	}
	if s.MaxFrames < 0 {
		err = multierr.Append(err, fmt.Errorf("max_frames must not be negative, got %d", s.MaxFrames))
	}
	if s.Churn < 0 || s.Churn > 1 {
		err = multierr.Append(err, fmt.Errorf("churn must be within [0, 1], got %g", s.Churn))
	}
	if s.MinLifetime <= 0 {
		err = multierr.Append(err, fmt.Errorf("min_lifetime must be positive, got %g", s.MinLifetime))
	}
	if s.MaxLifetime < s.MinLifetime {
		err = multierr.Append(err, fmt.Errorf("max_lifetime %g is below min_lifetime %g", s.MaxLifetime, s.MinLifetime))
	}
	return err
}
