package services

import (
	"context"

	"clipforge/internal/backend"
	"clipforge/internal/project"
)

// Analyzer produces the structural/mood breakdown of the uploaded song.
// Transient upstream failures are retried inside the implementation before
// surfacing.
type Analyzer interface {
	Analyze(ctx context.Context, song *project.Song, gender project.Gender, tier project.Tier) (*project.SongAnalysis, project.TokenUsage, error)
}

// BibleGenerator synthesizes the character and location reference sheets
// from the analysis and the creative brief.
type BibleGenerator interface {
	GenerateBibles(ctx context.Context, analysis *project.SongAnalysis, brief project.CreativeBrief, tier project.Tier) (*project.Bibles, project.TokenUsage, error)
}

// StoryboardGenerator synthesizes the scene/shot breakdown.
type StoryboardGenerator interface {
	GenerateStoryboard(ctx context.Context, analysis *project.SongAnalysis, bibles *project.Bibles, brief project.CreativeBrief, tier project.Tier) (*project.Storyboard, project.TokenUsage, error)
}

// TransitionGenerator suggests the transition list for one scene. The
// returned slice is index-aligned with the scene's shots.
type TransitionGenerator interface {
	GenerateTransitions(ctx context.Context, scene project.Scene, brief project.CreativeBrief, tier project.Tier) ([]*project.Transition, project.TokenUsage, error)
}

// Reviewer runs the executive/visual continuity review over the finished
// storyboard.
type Reviewer interface {
	Review(ctx context.Context, st project.ProjectState) (*project.ReviewState, project.TokenUsage, error)
}

// ImageGenerator renders a single reference or preview image. Safe to call
// once per bible entry or shot; failure is signaled by the returned error,
// not by a timeout contract.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string, tier project.Tier) (string, project.TokenUsage, error)
}

// ClipJob carries everything the clip service needs to start one
// image-to-video job.
type ClipJob struct {
	ShotID         string
	ImageURL       string
	Prompt         string
	DurationSec    float64
	Tier           project.Tier
	CameraMotion   string
	LipSync        bool
	AudioURL       string
	FrameRate      int
	NegativePrompt string
	WorkflowHint   string
	Backend        backend.Backend
}

// JobStatus is one poll result for a long-running clip job.
type JobStatus struct {
	// Progress is nil when the service did not report a numeric value.
	Progress  *int
	Done      bool
	ResultURL string
	// Err is the terminal failure message; non-empty means the job is dead.
	Err string
}

// ClipService submits clip-generation jobs and reports their status.
type ClipService interface {
	Submit(ctx context.Context, job ClipJob) (jobID string, err error)
	Status(ctx context.Context, jobID string) (JobStatus, error)
}
