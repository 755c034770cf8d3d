// Package config loads a coupling run's YAML configuration, following
// the ghodss/yaml InputParameters.Parse pattern: a plain struct with
// yaml tags, unmarshaled in one call and validated by hand afterward.
package config

import (
	"fmt"
	"io/ioutil"

	"github.com/ghodss/yaml"
)

// LoggingConfig controls the ambient logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// MetricsConfig controls the ambient Prometheus exporter.
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listenAddr"`
}

// NamespaceConfig declares one namespace's ownership: the coupling-group
// ranks it occupies and the physical model tag attached to it.
type NamespaceConfig struct {
	Name          string `yaml:"name"`
	Ranks         []int  `yaml:"ranks"`
	PhysicalModel string `yaml:"physicalModel"`
}

// Config is the coupling run's full configuration: the three transfer-list
// options plus the ambient logging and metrics blocks.
type Config struct {
	Namespaces []NamespaceConfig `yaml:"namespaces"`

	SocketsSendRecv               []string `yaml:"socketsSendRecv"`
	SocketsConnType               []string `yaml:"socketsConnType"`
	SendToRecvVariableTransformer []string `yaml:"sendToRecvVariableTransformer"`

	// LinearTransformers declares named dense-matrix transformers, keyed
	// by the name used in sendToRecvVariableTransformer. Each matrix is
	// out-width rows of in-width columns; unlike "identity" and
	// "truncate", a linear transformer's shape comes entirely from
	// configuration rather than being derived from the sockets it
	// connects.
	LinearTransformers map[string][][]float64 `yaml:"linearTransformers"`

	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// Parse unmarshals YAML bytes into a Config.
func (c *Config) Parse(data []byte) error {
	return yaml.Unmarshal(data, c)
}

// Load reads and parses a configuration file, then validates it.
func Load(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	c := &Config{}
	if err := c.Parse(data); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return c, nil
}

// Validate checks the length constraints placed on the three
// transfer-list options: socketsConnType and sendToRecvVariableTransformer
// must each be either empty (all defaults) or exactly as long as
// socketsSendRecv.
func (c *Config) Validate() error {
	n := len(c.SocketsSendRecv)
	if len(c.SocketsConnType) != 0 && len(c.SocketsConnType) != n {
		return fmt.Errorf("socketsConnType has %d entries, want 0 or %d", len(c.SocketsConnType), n)
	}
	if len(c.SendToRecvVariableTransformer) != 0 && len(c.SendToRecvVariableTransformer) != n {
		return fmt.Errorf("sendToRecvVariableTransformer has %d entries, want 0 or %d", len(c.SendToRecvVariableTransformer), n)
	}
	for name, rows := range c.LinearTransformers {
		if len(rows) == 0 {
			return fmt.Errorf("linearTransformers[%s]: matrix has no rows", name)
		}
		width := len(rows[0])
		for i, row := range rows {
			if len(row) != width {
				return fmt.Errorf("linearTransformers[%s]: row %d has %d columns, want %d", name, i, len(row), width)
			}
		}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	return nil
}
