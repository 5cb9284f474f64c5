package optim

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DecayPolicy selects how a parameter's learning rate evolves between updates.
type DecayPolicy uint8

// Learning-rate decay policies.
const (
	DecayConstant    DecayPolicy = iota // rate never changes
	DecayExponential                    // rate *= DecayRate after every update
	DecayLinear                         // linear interpolation to EndRate over Horizon updates
	DecayAdaptive                       // RMSProp-like per-element scaling
)

var decayNames = map[DecayPolicy]string{
	DecayConstant:    "constant",
	DecayExponential: "exponential",
	DecayLinear:      "linear",
	DecayAdaptive:    "adaptive",
}

// String returns the policy name used in configuration files.
func (p DecayPolicy) String() string {
	if name, ok := decayNames[p]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (p DecayPolicy) MarshalText() ([]byte, error) {
	if _, ok := decayNames[p]; !ok {
		return nil, errors.Errorf("unknown decay policy %d", p)
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *DecayPolicy) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for policy, n := range decayNames {
		if n == name {
			*p = policy
			return nil
		}
	}
	return errors.Errorf("unknown decay policy %q", name)
}

// MomentumPolicy selects how updates are smoothed across steps.
type MomentumPolicy uint8

// Momentum policies.
const (
	MomentumNone     MomentumPolicy = iota
	MomentumClassic                 // m = decay*m + update; apply m
	MomentumNesterov                // as classic, plus a look-ahead forward read
)

var momentumNames = map[MomentumPolicy]string{
	MomentumNone:     "none",
	MomentumClassic:  "momentum",
	MomentumNesterov: "nesterov",
}

// String returns the policy name used in configuration files.
func (p MomentumPolicy) String() string {
	if name, ok := momentumNames[p]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (p MomentumPolicy) MarshalText() ([]byte, error) {
	if _, ok := momentumNames[p]; !ok {
		return nil, errors.Errorf("unknown momentum policy %d", p)
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *MomentumPolicy) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for policy, n := range momentumNames {
		if n == name {
			*p = policy
			return nil
		}
	}
	return errors.Errorf("unknown momentum policy %q", name)
}

// Config holds the optimizer settings of one parameter node.
//
// Zero fields are replaced by defaults in NewState; only the fields relevant
// to the selected policies are read.
type Config struct {
	LearningRate float32     `yaml:"learning_rate" json:"learning_rate"` // Initial (or global, for adaptive) rate (default: 0.01)
	Decay        DecayPolicy `yaml:"decay" json:"decay"`

	DecayRate float32 `yaml:"decay_rate" json:"decay_rate"` // Exponential factor (default: 0.99)
	EndRate   float32 `yaml:"end_rate" json:"end_rate"`     // Linear schedule target (default: 0)
	Horizon   int     `yaml:"horizon" json:"horizon"`       // Linear schedule length in updates (default: 1000)

	AdaptiveDecay float32 `yaml:"adaptive_decay" json:"adaptive_decay"` // Moving-average factor (default: 0.9)
	Epsilon       float32 `yaml:"epsilon" json:"epsilon"`               // δ added before the square root (default: 1e-8)

	Momentum      MomentumPolicy `yaml:"momentum" json:"momentum"`
	MomentumDecay float32        `yaml:"momentum_decay" json:"momentum_decay"` // Buffer decay (default: 0.9)
}

// DefaultConfig returns plain SGD with a constant rate of 0.01.
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.LearningRate == 0 {
		c.LearningRate = 0.01
	}
	if c.DecayRate == 0 {
		c.DecayRate = 0.99
	}
	if c.Horizon == 0 {
		c.Horizon = 1000
	}
	if c.AdaptiveDecay == 0 {
		c.AdaptiveDecay = 0.9
	}
	if c.Epsilon == 0 {
		c.Epsilon = 1e-8
	}
	if c.MomentumDecay == 0 {
		c.MomentumDecay = 0.9
	}
	return c
}

// Validate checks the settings after defaults are applied.
func (c Config) Validate() error {
	c = c.withDefaults()
	if c.LearningRate < 0 {
		return errors.Errorf("learning rate must be >= 0, got %g", c.LearningRate)
	}
	if _, ok := decayNames[c.Decay]; !ok {
		return errors.Errorf("unknown decay policy %d", c.Decay)
	}
	if _, ok := momentumNames[c.Momentum]; !ok {
		return errors.Errorf("unknown momentum policy %d", c.Momentum)
	}
	if c.DecayRate <= 0 || c.DecayRate > 1 {
		return errors.Errorf("decay rate must be in (0, 1], got %g", c.DecayRate)
	}
	if c.Horizon < 0 {
		return errors.Errorf("horizon must be > 0, got %d", c.Horizon)
	}
	if c.AdaptiveDecay <= 0 || c.AdaptiveDecay >= 1 {
		return errors.Errorf("adaptive decay must be in (0, 1), got %g", c.AdaptiveDecay)
	}
	if c.MomentumDecay < 0 || c.MomentumDecay >= 1 {
		return errors.Errorf("momentum decay must be in [0, 1), got %g", c.MomentumDecay)
	}
	return nil
}

// LoadConfig decodes a YAML optimizer configuration.
//
// Example:
//
//	learning_rate: 0.05
//	decay: exponential
//	decay_rate: 0.95
//	momentum: nesterov
//	momentum_decay: 0.8
func LoadConfig(r io.Reader) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrap(err, "optim: decode config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, errors.WithMessage(err, "optim: invalid config")
	}
	return cfg, nil
}
