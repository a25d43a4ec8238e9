// Package config loads rdfstream configuration from YAML files
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aleksaelezovic/rdfstream/internal/logger"
	"github.com/aleksaelezovic/rdfstream/internal/storage"
	"github.com/aleksaelezovic/rdfstream/pkg/errors"
	"github.com/aleksaelezovic/rdfstream/pkg/rdf"
	"github.com/aleksaelezovic/rdfstream/pkg/source"
)

// Config is the complete rdfstream configuration
type Config struct {
	Log     logger.Config `yaml:"log"`
	Ingest  IngestConfig  `yaml:"ingest"`
	Store   StoreConfig   `yaml:"store"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// IngestConfig tunes the ingestion engine
type IngestConfig struct {
	// QueueCapacity bounds how far a bridge worker runs ahead of its consumer.
	QueueCapacity int `yaml:"queue_capacity"`
	// PoolSize bounds concurrently running bridge workers; 0 means 4 per CPU.
	PoolSize int `yaml:"pool_size"`
	// DefaultGraph is the graph triples are lifted into; empty means the
	// default graph.
	DefaultGraph string `yaml:"default_graph"`
	// FailFast stops on the first inconvertible element instead of skipping it.
	FailFast bool `yaml:"fail_fast"`
	// DefaultFormat applies to inputs without a recognised extension.
	DefaultFormat string `yaml:"default_format"`
}

// StoreConfig configures the badger quad store
type StoreConfig struct {
	storage.Config `yaml:",inline"`
	BatchSize      int `yaml:"batch_size"`
}

// MetricsConfig configures Prometheus exposition
type MetricsConfig struct {
	// Addr is the listen address of the /metrics endpoint; empty disables it.
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log: logger.Config{
			Level:    "info",
			Encoding: "console",
		},
		Ingest: IngestConfig{
			QueueCapacity: 1024,
			FailFast:      true,
		},
		Store: StoreConfig{
			Config:    storage.Config{Path: "rdfstream.db"},
			BatchSize: 1000,
		},
	}
}

// Load reads path over the defaults. ${VAR} references are replaced with
// environment values before parsing.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the command line
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to read config file")
	}

	content := substituteEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse YAML")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and names.
func (c *Config) Validate() error {
	switch c.Log.Encoding {
	case "", "json", "console":
	default:
		return errors.Newf(errors.ErrorTypeConfig, "log.encoding must be json or console, got %q", c.Log.Encoding)
	}
	if c.Ingest.QueueCapacity < 1 {
		return errors.Newf(errors.ErrorTypeConfig, "ingest.queue_capacity must be positive, got %d", c.Ingest.QueueCapacity)
	}
	if c.Ingest.PoolSize < 0 {
		return errors.Newf(errors.ErrorTypeConfig, "ingest.pool_size must not be negative, got %d", c.Ingest.PoolSize)
	}
	if c.Ingest.DefaultFormat != "" && source.ParseFormat(c.Ingest.DefaultFormat) == source.FormatUnknown {
		return errors.Newf(errors.ErrorTypeConfig, "ingest.default_format %q is not supported", c.Ingest.DefaultFormat)
	}
	if _, err := c.DefaultGraph(); err != nil {
		return err
	}
	if c.Store.BatchSize < 1 {
		return errors.Newf(errors.ErrorTypeConfig, "store.batch_size must be positive, got %d", c.Store.BatchSize)
	}
	if c.Store.Path == "" && !c.Store.InMemory {
		return errors.New(errors.ErrorTypeConfig, "store.path is required unless store.in_memory is set")
	}
	return nil
}

// DefaultGraph parses Ingest.DefaultGraph. It accepts a bare IRI or one in
// angle brackets; nil means the default graph.
func (c *Config) DefaultGraph() (rdf.Term, error) {
	g := strings.TrimSpace(c.Ingest.DefaultGraph)
	if g == "" {
		return nil, nil
	}
	if !strings.HasPrefix(g, "<") && !strings.HasPrefix(g, "_:") {
		g = "<" + g + ">"
	}
	term, err := rdf.ParseTerm(g)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("ingest.default_graph %q", c.Ingest.DefaultGraph))
	}
	return term, nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values.
// Substituted text is not scanned again.
func substituteEnvVars(content string) string {
	var b strings.Builder
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		b.WriteString(content[:start])
		b.WriteString(os.Getenv(content[start+2 : end]))
		content = content[end+1:]
	}
	b.WriteString(content)
	return b.String()
}
