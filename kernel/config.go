package kernel

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config describes the simulated kernel.
type Config struct {
	// TickHz is the kernel tick frequency.
	TickHz uint32 `yaml:"tick_hz"`
	// MinStackSize is the smallest thread stack the kernel hands out, in bytes.
	MinStackSize int `yaml:"min_stack_size"`
	// MaxThreads caps concurrently allocated threads (0 = unlimited).
	MaxThreads int `yaml:"max_threads"`
	// HeapBytes is the heap budget for kernel objects (0 = unlimited).
	// Allocating past it crashes the kernel.
	HeapBytes int64 `yaml:"heap_bytes"`
}

// DefaultConfig returns the stock firmware configuration.
func DefaultConfig() Config {
	return Config{
		TickHz:       1000,
		MinStackSize: 1024,
	}
}

// ParseConfig decodes YAML on top of DefaultConfig.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("kernel config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("kernel config: %w", err)
	}
	return ParseConfig(data)
}

// Validate checks the config for values the kernel cannot run with.
func (c Config) Validate() error {
	if c.TickHz == 0 {
		return fmt.Errorf("kernel config: tick_hz must be > 0")
	}
	if c.MinStackSize < 0 {
		return fmt.Errorf("kernel config: min_stack_size out of range: %d", c.MinStackSize)
	}
	if c.MaxThreads < 0 {
		return fmt.Errorf("kernel config: max_threads out of range: %d", c.MaxThreads)
	}
	if c.HeapBytes < 0 {
		return fmt.Errorf("kernel config: heap_bytes out of range: %d", c.HeapBytes)
	}
	return nil
}
