package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the host-side configuration for the luaflow CLI: where script
// modules live, where replayed batches come from, and where filtered
// records go.
type Config struct {
	DataDir   string          `yaml:"data_dir"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Replay    ReplayConfig    `yaml:"replay"`
	Timescale TimescaleConfig `yaml:"timescale"`
	Filter    FilterConfig    `yaml:"filter"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type ReplayConfig struct {
	File string `yaml:"file"`
}

// TimescaleConfig configures the optional database sink. When ConnString
// is empty the CLI falls back to printing forwarded batches.
type TimescaleConfig struct {
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
}

// FilterConfig mirrors the plugin category document in YAML form.
type FilterConfig struct {
	Enable bool   `yaml:"enable"`
	Script string `yaml:"script"`
	Config string `yaml:"config"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Timescale.Table == "" {
		c.Timescale.Table = "records"
	}
	if c.Filter.Config == "" {
		c.Filter.Config = "{}"
	}
}

func (c *Config) validate() error {
	if c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required")
	}
	if !json.Valid([]byte(c.Filter.Config)) {
		return fmt.Errorf("filter.config must be valid JSON")
	}
	return nil
}

// CategoryDocument renders the filter section as the JSON category document
// handed to the plugin init call.
func (f FilterConfig) CategoryDocument() (string, error) {
	blob := f.Config
	if blob == "" {
		blob = "{}"
	}
	doc := map[string]any{
		"plugin": PluginName,
		"enable": f.Enable,
		"script": f.Script,
		"config": json.RawMessage(blob),
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("render category document: %w", err)
	}
	return string(out), nil
}
