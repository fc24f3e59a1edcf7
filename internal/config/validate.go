package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDecode(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if c.Batch.Concurrency < 0 {
		return errors.New("batch.concurrency must be >= 0")
	}
	return c.validateLogging()
}

func (c *Config) validateDecode() error {
	if c.Decode.MergeThresholdMS < 0 {
		return errors.New("decode.merge_threshold_ms must be >= 0")
	}
	return nil
}

func (c *Config) validateOutput() error {
	if c.Output.BaseName == "" {
		return errors.New("output.base_name must be set")
	}
	if strings.ContainsAny(c.Output.BaseName, `/\`) {
		return fmt.Errorf("output.base_name %q must not contain a path separator; use output.dir", c.Output.BaseName)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}
