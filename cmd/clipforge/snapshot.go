package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"clipforge/internal/projectstore"
	"clipforge/internal/snapshot"
)

func newSnapshotCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Export or inspect production snapshots",
	}
	cmd.AddCommand(newSnapshotExportCommand(root), newSnapshotInspectCommand())
	return cmd
}

func newSnapshotExportCommand(root *rootOptions) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the latest journaled snapshot to a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadEnvironment(root)
			if err != nil {
				return err
			}
			store, err := projectstore.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			data, err := store.Latest(cmd.Context())
			if errors.Is(err, projectstore.ErrEmpty) {
				return errors.New("no snapshot journaled yet")
			}
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return fmt.Errorf("write snapshot %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Snapshot written to %s\n", outPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "clipforge-snapshot.json", "output file path")
	return cmd
}

func newSnapshotInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Validate a snapshot file and summarize its contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read snapshot %s: %w", args[0], err)
			}
			st, warnings, err := snapshot.Load(data)
			if err != nil {
				return err
			}
			if warnings.AudioMissing {
				fmt.Fprintln(cmd.OutOrStdout(), "Warning: embedded audio could not be decoded.")
			}
			if warnings.BiblesDropped {
				fmt.Fprintln(cmd.OutOrStdout(), "Warning: bibles were malformed and dropped.")
			}
			if warnings.StoryboardDropped {
				fmt.Fprintln(cmd.OutOrStdout(), "Warning: storyboard was malformed and dropped.")
			}
			renderState(cmd.OutOrStdout(), st)
			return nil
		},
	}
}
