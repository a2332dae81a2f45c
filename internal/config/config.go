// Package config loads the benchmark configuration: the ordered model list
// with pricing, and the execution limits for the run.
package config

import (
	"embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var embedded embed.FS

// Duration wraps time.Duration so values like "30s" parse from YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Pricing is the per-million-token price of a model in USD.
type Pricing struct {
	InputPerMTok  float64 `yaml:"input_per_mtok" json:"input_per_mtok"`
	OutputPerMTok float64 `yaml:"output_per_mtok" json:"output_per_mtok"`
}

// ModelConfig identifies one unit of comparison in the benchmark.
type ModelConfig struct {
	Model string `yaml:"model" json:"model"`
	// Provider pins requests to a single upstream provider. Empty means
	// default routing.
	Provider string  `yaml:"provider,omitempty" json:"provider,omitempty"`
	Pricing  Pricing `yaml:"pricing" json:"pricing"`
}

// Config is the full benchmark configuration.
type Config struct {
	Models []ModelConfig `yaml:"models"`

	// Concurrency caps in-flight extraction calls within one suite.
	Concurrency int `yaml:"concurrency"`
	// CallTimeout is the per-call deadline for a single extraction attempt.
	// Note the worst case per test case is CallTimeout * (MaxRetries + 1),
	// multiplied again by the client's schema-repair re-prompts.
	CallTimeout Duration `yaml:"call_timeout"`
	// MaxRetries is how many times a timed-out call is retried.
	MaxRetries int `yaml:"max_retries"`
}

// Load reads the configuration from path, or the embedded default set when
// path is empty.
func Load(path string) (*Config, error) {
	var data []byte
	var err error
	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		data, err = embedded.ReadFile("default.yaml")
		if err != nil {
			return nil, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	// Absent fields keep these defaults; explicit zeros override them.
	cfg := Config{
		Concurrency: 1,
		CallTimeout: Duration(30 * time.Second),
		MaxRetries:  2,
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.clamp()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) clamp() {
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = Duration(30 * time.Second)
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
}

// Validate rejects configurations the benchmark cannot run with. A bad
// pricing table is a configuration fault and aborts the run, it is never
// folded into benchmark outcomes.
func (c *Config) Validate() error {
	if len(c.Models) == 0 {
		return fmt.Errorf("no models configured")
	}
	for i, m := range c.Models {
		if m.Model == "" {
			return fmt.Errorf("model entry %d has no model identifier", i)
		}
		if m.Pricing.InputPerMTok < 0 || m.Pricing.OutputPerMTok < 0 {
			return fmt.Errorf("model %s has negative pricing", m.Model)
		}
	}
	return nil
}

// FilterModels narrows the model list to the named model. An empty name keeps
// the full list.
func (c *Config) FilterModels(name string) error {
	if name == "" {
		return nil
	}
	for _, m := range c.Models {
		if m.Model == name {
			c.Models = []ModelConfig{m}
			return nil
		}
	}
	return fmt.Errorf("model %q not found in configuration", name)
}
