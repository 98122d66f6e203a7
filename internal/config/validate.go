package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks settings that would otherwise fail deep inside the
// pipeline. Credentials are not required here: commands that need a service
// report the missing key when they reach for it.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.DataDir) == "" {
		problems = append(problems, "paths.data_dir must not be empty")
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not one of console, json", c.Logging.Format))
	}
	if c.Workflow.ItemDelayMS < 0 {
		problems = append(problems, "workflow.item_delay_ms must not be negative")
	}
	if c.Workflow.ClipPollIntervalSeconds <= 0 {
		problems = append(problems, "workflow.clip_poll_interval_seconds must be positive")
	}
	if c.Workflow.ClipPollMaxAttempts <= 0 {
		problems = append(problems, "workflow.clip_poll_max_attempts must be positive")
	}
	if strings.TrimSpace(c.ScriptGen.BaseURL) == "" {
		problems = append(problems, "scriptgen.base_url must not be empty")
	}
	if strings.TrimSpace(c.ImageGen.BaseURL) == "" {
		problems = append(problems, "imagegen.base_url must not be empty")
	}
	if strings.TrimSpace(c.ClipGen.BaseURL) == "" {
		problems = append(problems, "clipgen.base_url must not be empty")
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}
