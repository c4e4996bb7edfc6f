package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pior/fcp"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// config is the YAML configuration file. Command line flags override it.
//
//	nodes: [127.0.0.1:8481]
//	hops_to_live: 15
//	timeout: 2m
//	circuit_breaker:
//	  max_requests: 1
//	  interval: 1m
//	  timeout: 30s
type config struct {
	Nodes             []string       `yaml:"nodes"`
	MaxSessions       int32          `yaml:"max_sessions"`
	HopsToLive        int            `yaml:"hops_to_live"`
	RemoveLocalKey    bool           `yaml:"remove_local_key"`
	Timeout           time.Duration  `yaml:"timeout"`
	Retries           int            `yaml:"retries"`
	MaxRestarts       int            `yaml:"max_restarts"`
	MaxRedirects      int            `yaml:"max_redirects"`
	MaxMetadataLength int64          `yaml:"max_metadata_length"`
	CircuitBreaker    *breakerConfig `yaml:"circuit_breaker"`

	// MetricsFile receives the client metrics in the Prometheus text format
	// once the fetch is done, for the node_exporter textfile collector.
	MetricsFile string `yaml:"metrics_file"`
}

type breakerConfig struct {
	MaxRequests uint32        `yaml:"max_requests"`
	Interval    time.Duration `yaml:"interval"`
	Timeout     time.Duration `yaml:"timeout"`
}

// loadConfig reads a configuration file. An empty path returns the zero
// configuration.
func loadConfig(path string) (*config, error) {
	cfg := &config{}
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// applyFlags overrides the configuration with the flags set on the command line.
func (c *config) applyFlags(flags *pflag.FlagSet, opts *cliOptions) {
	if flags.Changed("node") {
		c.Nodes = opts.nodes
	}
	if flags.Changed("htl") {
		c.HopsToLive = opts.hopsToLive
	}
	if flags.Changed("skip-local") {
		c.RemoveLocalKey = opts.skipLocal
	}
	if flags.Changed("timeout") {
		c.Timeout = opts.timeout
	}
	if flags.Changed("retries") {
		c.Retries = opts.retries
	}
	if flags.Changed("max-redirects") {
		c.MaxRedirects = opts.maxRedirects
	}
	if flags.Changed("metrics-file") {
		c.MetricsFile = opts.metricsFile
	}
}

func (c *config) clientConfig(logger fcp.Logger) fcp.Config {
	cfg := fcp.Config{
		Nodes:       c.Nodes,
		MaxSessions: c.MaxSessions,
		Logger:      logger,
		Options: fcp.Options{
			HopsToLive:        c.HopsToLive,
			RemoveLocalKey:    c.RemoveLocalKey,
			Timeout:           c.Timeout,
			Retries:           c.Retries,
			MaxRestarts:       c.MaxRestarts,
			MaxRedirects:      c.MaxRedirects,
			MaxMetadataLength: c.MaxMetadataLength,
		},
	}
	if b := c.CircuitBreaker; b != nil {
		cfg.NewCircuitBreaker = fcp.NewCircuitBreakerConfig(b.MaxRequests, b.Interval, b.Timeout)
	}
	return cfg
}
