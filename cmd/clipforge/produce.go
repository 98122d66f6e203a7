package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"clipforge/internal/batch"
	"clipforge/internal/clippoll"
	"clipforge/internal/config"
	"clipforge/internal/notifications"
	"clipforge/internal/project"
	"clipforge/internal/projectstore"
	"clipforge/internal/push"
	"clipforge/internal/services/clipgen"
	"clipforge/internal/services/imagegen"
	"clipforge/internal/services/scriptgen"
	"clipforge/internal/workflow"
)

type produceOptions struct {
	lyricsPath string
	gender     string
	tier       string
	skipReview bool
	skipClips  bool
}

func newProduceCommand(root *rootOptions) *cobra.Command {
	opts := &produceOptions{}
	cmd := &cobra.Command{
		Use:   "produce <song-file>",
		Short: "Run the full production pipeline over one song",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProduce(cmd.Context(), root, opts, args[0])
		},
	}
	cmd.Flags().StringVar(&opts.lyricsPath, "lyrics", "", "path to a lyrics text file (required)")
	cmd.Flags().StringVar(&opts.gender, "gender", "female", "singer gender hint (female, male, mixed)")
	cmd.Flags().StringVar(&opts.tier, "tier", "standard", "model quality tier (draft, standard, premium)")
	cmd.Flags().BoolVar(&opts.skipReview, "skip-review", false, "skip the executive review pass")
	cmd.Flags().BoolVar(&opts.skipClips, "skip-clips", false, "stop after preview images, before clip generation")
	_ = cmd.MarkFlagRequired("lyrics")
	return cmd
}

func runProduce(ctx context.Context, root *rootOptions, opts *produceOptions, songPath string) error {
	cfg, logger, err := loadEnvironment(root)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	song, err := readSong(songPath, opts.lyricsPath)
	if err != nil {
		return err
	}

	store, err := projectstore.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	manager := buildManager(cfg, logger, store)

	callback := push.NewServer(cfg.Paths.CallbackBind, manager, logger)
	if err := callback.Start(); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = callback.Stop(shutdownCtx)
	}()

	gender := project.Gender(opts.gender)
	switch gender {
	case project.GenderFemale, project.GenderMale, project.GenderMixed:
	default:
		return fmt.Errorf("unknown gender %q", opts.gender)
	}

	if err := manager.UploadSong(song, gender, project.ParseTier(opts.tier)); err != nil {
		return err
	}
	if err := manager.AnalyzeSong(ctx); err != nil {
		return err
	}
	if err := manager.GeneratePlan(ctx); err != nil {
		return err
	}
	if !opts.skipClips {
		if err := manager.GenerateAllClips(ctx); err != nil {
			return err
		}
	}
	if !opts.skipReview {
		if err := manager.StartReview(ctx); err != nil {
			return err
		}
	}
	if _, err := manager.SaveSnapshot(ctx); err != nil {
		return err
	}

	renderState(os.Stdout, manager.State())
	return nil
}

// buildManager wires the real service clients into a workflow manager.
func buildManager(cfg *config.Config, logger *slog.Logger, store *projectstore.Store) *workflow.Manager {
	script := scriptgen.NewClient(scriptgen.Config{
		APIKey:         cfg.ScriptGen.APIKey,
		BaseURL:        cfg.ScriptGen.BaseURL,
		Model:          cfg.ScriptGen.Model,
		TimeoutSeconds: cfg.ScriptGen.TimeoutSeconds,
	})
	images := imagegen.NewClient(imagegen.Config{
		APIKey:         cfg.ImageGen.APIKey,
		BaseURL:        cfg.ImageGen.BaseURL,
		Model:          cfg.ImageGen.Model,
		TimeoutSeconds: cfg.ImageGen.TimeoutSeconds,
	})
	clips := clipgen.NewClient(clipgen.Config{
		APIKey:         cfg.ClipGen.APIKey,
		BaseURL:        cfg.ClipGen.BaseURL,
		TimeoutSeconds: cfg.ClipGen.TimeoutSeconds,
	})

	return workflow.New(workflow.Deps{
		Analyzer:    script,
		Bibles:      script,
		Storyboard:  script,
		Transitions: script,
		Reviewer:    script,
		Images:      images,
		Clips:       clips,
		Notifier:    notifications.NewService(cfg),
		Store:       store,
		Logger:      logger,
		Batch: batch.Runner{
			Delay:  time.Duration(cfg.Workflow.ItemDelayMS) * time.Millisecond,
			Logger: logger,
		},
		Poll: clippoll.Poller{
			Client:      clips,
			Interval:    time.Duration(cfg.Workflow.ClipPollIntervalSeconds) * time.Second,
			MaxAttempts: cfg.Workflow.ClipPollMaxAttempts,
			Logger:      logger,
		},
		Autosave: cfg.Workflow.Autosave,
	})
}

func readSong(songPath, lyricsPath string) (*project.Song, error) {
	data, err := os.ReadFile(songPath)
	if err != nil {
		return nil, fmt.Errorf("read song %s: %w", songPath, err)
	}
	lyrics, err := os.ReadFile(lyricsPath)
	if err != nil {
		return nil, fmt.Errorf("read lyrics %s: %w", lyricsPath, err)
	}
	return &project.Song{
		Name:     filepath.Base(songPath),
		MimeType: mimeTypeForSong(songPath),
		Data:     data,
		Lyrics:   string(lyrics),
	}, nil
}

func mimeTypeForSong(path string) string {
	switch filepath.Ext(path) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".flac":
		return "audio/flac"
	case ".m4a":
		return "audio/mp4"
	case ".ogg":
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}
