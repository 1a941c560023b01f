package allocator

import "fmt"

// Config defines engine settings.
type Config struct {
	// CostPrecision is the number of decimals total_cost is rounded to.
	CostPrecision int `yaml:"cost_precision"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		CostPrecision: 2,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.CostPrecision < 0 || c.CostPrecision > 10 {
		return fmt.Errorf("cost_precision must be between 0 and 10, got %d", c.CostPrecision)
	}
	return nil
}
