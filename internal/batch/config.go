// Package batch runs many independent allocation requests with a bounded
// worker pool.
package batch

import "fmt"

// Config defines the batch runner configuration.
type Config struct {
	// Workers is the maximum number of requests allocated concurrently.
	Workers int `yaml:"workers"`
	// MaxJobs caps the number of jobs accepted in one batch.
	MaxJobs int `yaml:"max_jobs"`
}

// DefaultConfig returns the default batch configuration.
func DefaultConfig() *Config {
	return &Config{
		Workers: 4,
		MaxJobs: 100,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("batch workers must be at least 1")
	}
	if c.MaxJobs < 1 {
		return fmt.Errorf("batch max_jobs must be at least 1")
	}
	return nil
}
