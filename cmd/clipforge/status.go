package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"clipforge/internal/project"
	"clipforge/internal/projectstore"
	"clipforge/internal/snapshot"
)

func newStatusCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the latest journaled production state",
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
				fmt.Fprintln(cmd.OutOrStdout(), "No production journaled yet.")
				return nil
			}
			if err != nil {
				return err
			}
			st, warnings, err := snapshot.Load(data)
			if err != nil {
				return err
			}
			if warnings.AudioMissing {
				fmt.Fprintln(cmd.OutOrStdout(), "Note: journaled audio could not be decoded; re-upload the song before resuming.")
			}
			renderState(cmd.OutOrStdout(), st)
			return listJournal(cmd.Context(), cmd.OutOrStdout(), store)
		},
	}
}

var titleCaser = cases.Title(language.English)

// renderState prints a human summary of one production.
func renderState(out io.Writer, st project.ProjectState) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetStyle(table.StyleRounded)
	if f, ok := out.(*os.File); !ok || !isatty.IsTerminal(f.Fd()) {
		tw.SetStyle(table.StyleDefault)
		tw.Style().Options.DrawBorder = false
	}
	tw.Style().Format.Header = text.FormatDefault

	tw.AppendHeader(table.Row{"Field", "Value"})
	tw.AppendRow(table.Row{"Stage", titleCaser.String(string(st.Stage))})
	if st.Song != nil {
		tw.AppendRow(table.Row{"Song", st.Song.Name})
	}
	if st.Analysis != nil {
		tw.AppendRow(table.Row{"Title", st.Analysis.Title})
		tw.AppendRow(table.Row{"Genre", st.Analysis.Genre})
		tw.AppendRow(table.Row{"Sections", len(st.Analysis.Sections)})
	}
	if st.Bibles != nil {
		tw.AppendRow(table.Row{"Characters", len(st.Bibles.Characters)})
		tw.AppendRow(table.Row{"Locations", len(st.Bibles.Locations)})
	}
	if st.Storyboard != nil {
		shots := st.Storyboard.AllShots()
		imagesReady, clipsReady := 0, 0
		for _, shot := range shots {
			if shot.ImageReady() {
				imagesReady++
			}
			if shot.ClipURL != "" && shot.ClipURL != project.AssetFailed {
				clipsReady++
			}
		}
		tw.AppendRow(table.Row{"Scenes", len(st.Storyboard.Scenes)})
		tw.AppendRow(table.Row{"Shots", len(shots)})
		tw.AppendRow(table.Row{"Images ready", fmt.Sprintf("%d/%d", imagesReady, len(shots))})
		tw.AppendRow(table.Row{"Clips ready", fmt.Sprintf("%d/%d", clipsReady, len(shots))})
	}
	if st.Review != nil && !st.Review.InProgress {
		tw.AppendRow(table.Row{"Review score", st.Review.Score})
	}
	if st.LastError != "" {
		tw.AppendRow(table.Row{"Last error", st.LastError})
	}
	tw.Render()
}

func listJournal(ctx context.Context, out io.Writer, store *projectstore.Store) error {
	entries, err := store.List(ctx, 10)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetStyle(table.StyleDefault)
	tw.Style().Options.DrawBorder = false
	tw.AppendHeader(table.Row{"ID", "Saved", "Stage"})
	for _, entry := range entries {
		tw.AppendRow(table.Row{entry.ID, entry.CreatedAt.Local().Format("2006-01-02 15:04:05"), entry.Stage})
	}
	fmt.Fprintln(out)
	tw.Render()
	return nil
}
