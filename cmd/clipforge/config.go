package main

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"clipforge/internal/config"
)

func newConfigCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration as TOML",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, _, err := loadEnvironment(root)
				if err != nil {
					return err
				}
				redacted := *cfg
				redacted.ScriptGen.APIKey = redactKey(cfg.ScriptGen.APIKey)
				redacted.ImageGen.APIKey = redactKey(cfg.ImageGen.APIKey)
				redacted.ClipGen.APIKey = redactKey(cfg.ClipGen.APIKey)
				encoded, err := toml.Marshal(redacted)
				if err != nil {
					return fmt.Errorf("encode config: %w", err)
				}
				cmd.Print(string(encoded))
				return nil
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file location",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				path := root.configPath
				if path == "" {
					path = config.DefaultPath()
				}
				expanded, err := config.ExpandPath(path)
				if err != nil {
					return err
				}
				cmd.Println(expanded)
				return nil
			},
		},
	)
	return cmd
}

func redactKey(key string) string {
	if key == "" {
		return ""
	}
	return "<set>"
}
