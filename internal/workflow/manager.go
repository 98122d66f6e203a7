// Package workflow owns the project state and drives every pipeline
// operation against it: analysis, planning, image and clip generation,
// review, and persistence. All mutation goes through Dispatch so the state
// only ever changes one event at a time.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"clipforge/internal/batch"
	"clipforge/internal/clippoll"
	"clipforge/internal/logging"
	"clipforge/internal/notifications"
	"clipforge/internal/project"
	"clipforge/internal/projectstore"
	"clipforge/internal/services"
	"clipforge/internal/snapshot"
	"clipforge/internal/state"
)

// Deps carries everything the manager orchestrates. Notifier and Store are
// optional; a nil Notifier is replaced with the noop service and a nil Store
// disables autosave.
type Deps struct {
	Analyzer    services.Analyzer
	Bibles      services.BibleGenerator
	Storyboard  services.StoryboardGenerator
	Transitions services.TransitionGenerator
	Reviewer    services.Reviewer
	Images      services.ImageGenerator
	Clips       services.ClipService

	Notifier notifications.Service
	Store    *projectstore.Store
	Logger   *slog.Logger

	Batch    batch.Runner
	Poll     clippoll.Poller
	Autosave bool
}

// Manager is the single authority over one production's state.
type Manager struct {
	mu sync.Mutex
	st project.ProjectState

	deps   Deps
	logger *slog.Logger

	// jobs maps in-flight clip job ids to their tracker. An id absent from
	// the map is settled; settlement removes it, which is what makes the
	// push/poll race idempotent.
	jobs map[string]*clipTracker
}

type clipTracker struct {
	shotID string
	push   chan string
}

// New constructs a manager over a fresh project state.
func New(deps Deps) *Manager {
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewNop()
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	if deps.Poll.Client == nil {
		deps.Poll.Client = deps.Clips
	}
	if deps.Poll.Logger == nil {
		deps.Poll.Logger = logger
	}
	if deps.Batch.Logger == nil {
		deps.Batch.Logger = logger
	}
	return &Manager{
		st:     project.Default(),
		deps:   deps,
		logger: logging.NewComponentLogger(logger, "workflow"),
		jobs:   make(map[string]*clipTracker),
	}
}

// State returns a deep copy of the current project state.
func (m *Manager) State() project.ProjectState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.Clone()
}

// Dispatch applies one event to the state.
func (m *Manager) Dispatch(event state.Event) {
	m.mu.Lock()
	m.st = state.Apply(m.st, event)
	m.mu.Unlock()
}

// UploadSong loads a new source song, resetting derived artifacts.
func (m *Manager) UploadSong(song *project.Song, gender project.Gender, tier project.Tier) error {
	if song == nil || len(song.Data) == 0 {
		return services.Wrap(services.ErrValidation, "upload", "song", "song audio required", nil)
	}
	m.Dispatch(state.SongUploaded{Song: song, Gender: gender, Tier: tier})
	m.logger.Info("song uploaded", logging.String("name", song.Name))
	return nil
}

// AnalyzeSong runs the song analysis and advances Upload to Controls.
func (m *Manager) AnalyzeSong(ctx context.Context) error {
	st := m.State()
	if st.Stage != project.StageUpload {
		return services.Wrap(services.ErrValidation, "analysis", "analyze",
			fmt.Sprintf("analysis runs from the upload stage, not %s", st.Stage), nil)
	}
	if st.Song == nil {
		return services.Wrap(services.ErrValidation, "analysis", "analyze", "no song uploaded", nil)
	}

	analysis, usage, err := m.deps.Analyzer.Analyze(ctx, st.Song, st.SingerGender, st.ModelTier)
	if err != nil {
		m.raiseFault(ctx, err, "song analysis")
		return err
	}
	m.Dispatch(state.AnalysisCompleted{Analysis: analysis, Usage: usage})
	m.autosave(ctx)

	m.logger.Info("song analyzed",
		logging.String("title", analysis.Title),
		logging.Int("sections", len(analysis.Sections)),
	)
	if err := m.deps.Notifier.NotifyAnalysisComplete(ctx, analysis.Title); err != nil {
		m.logger.Warn("notification failed", logging.Error(err))
	}
	return nil
}

// PatchBrief merges edited creative-brief fields. Once the storyboard
// exists the brief is frozen; the patch is dropped by the state machine.
func (m *Manager) PatchBrief(patch project.BriefPatch) {
	m.Dispatch(state.BriefPatched{Patch: patch})
}

// StartReview runs the executive review over the finished storyboard.
func (m *Manager) StartReview(ctx context.Context) error {
	st := m.State()
	if st.Stage != project.StageStoryboard && st.Stage != project.StageReview {
		return services.Wrap(services.ErrValidation, "review", "start",
			fmt.Sprintf("review runs from the storyboard stage, not %s", st.Stage), nil)
	}

	m.Dispatch(state.ReviewStarted{})
	review, usage, err := m.deps.Reviewer.Review(ctx, m.State())
	if err != nil {
		m.raiseFault(ctx, err, "executive review")
		return err
	}
	m.Dispatch(state.ReviewCompleted{Review: review, Usage: usage})
	m.autosave(ctx)

	m.logger.Info("review complete", logging.Int("score", review.Score))
	if err := m.deps.Notifier.NotifyReviewComplete(ctx, review.Score); err != nil {
		m.logger.Warn("notification failed", logging.Error(err))
	}
	return nil
}

// RunPostProduction walks the requested enhancement tasks in order. Tasks
// already done are skipped; each remaining one moves idle to processing to
// done with the batch delay between tasks.
func (m *Manager) RunPostProduction(ctx context.Context, tasks ...project.PostTask) error {
	st := m.State()
	if st.Stage != project.StageStoryboard && st.Stage != project.StageReview {
		return services.Wrap(services.ErrValidation, "post", "run",
			fmt.Sprintf("post-production runs from the storyboard stage, not %s", st.Stage), nil)
	}
	if len(tasks) == 0 {
		tasks = []project.PostTask{project.TaskUpscale, project.TaskColorGrade, project.TaskInterpolate}
	}

	pending := make([]project.PostTask, 0, len(tasks))
	for _, task := range tasks {
		if st.PostProduction.Status(task) != project.TaskDone {
			pending = append(pending, task)
		}
	}

	return batch.Run(ctx, m.deps.Batch, pending, func(ctx context.Context, task project.PostTask) error {
		m.Dispatch(state.PostTaskStatusChanged{Task: task, Status: project.TaskProcessing})
		m.Dispatch(state.PostTaskStatusChanged{Task: task, Status: project.TaskDone})
		m.logger.Info("post-production task complete", logging.String("task", string(task)))
		return nil
	}, nil)
}

// Restart abandons the production and returns to a fresh upload stage.
// In-flight clip trackers are dropped; their late completions become no-ops.
func (m *Manager) Restart() {
	m.mu.Lock()
	m.st = state.Apply(m.st, state.StateReplaced{State: project.Default()})
	m.jobs = make(map[string]*clipTracker)
	m.mu.Unlock()
	m.logger.Info("project restarted")
}

// DismissFault clears the last surfaced error.
func (m *Manager) DismissFault() {
	m.Dispatch(state.FaultDismissed{})
}

// SaveSnapshot renders the current state as a snapshot document and, when a
// journal is attached, appends it there too.
func (m *Manager) SaveSnapshot(ctx context.Context) ([]byte, error) {
	st := m.State()
	doc, err := snapshot.Save(st)
	if err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}
	data, err := snapshot.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	if m.deps.Store != nil {
		if _, err := m.deps.Store.Save(ctx, string(st.Stage), data); err != nil {
			return nil, err
		}
	}
	return data, nil
}

// LoadSnapshot replaces the state wholesale from snapshot bytes, repairing
// structural damage where possible.
func (m *Manager) LoadSnapshot(data []byte) (snapshot.Warnings, error) {
	st, warnings, err := snapshot.Load(data)
	if err != nil {
		return warnings, err
	}
	m.mu.Lock()
	m.st = state.Apply(m.st, state.StateReplaced{State: st})
	m.jobs = make(map[string]*clipTracker)
	m.mu.Unlock()

	m.logger.Info("snapshot loaded",
		logging.String(logging.FieldStage, string(st.Stage)),
		logging.Bool("audio_missing", warnings.AudioMissing),
	)
	return warnings, nil
}

// autosave journals the state after a stage milestone when enabled.
func (m *Manager) autosave(ctx context.Context) {
	if !m.deps.Autosave || m.deps.Store == nil {
		return
	}
	if _, err := m.SaveSnapshot(ctx); err != nil {
		m.logger.Warn("autosave failed", logging.Error(err))
	}
}

// raiseFault records a recoverable failure in the last-error slot and pushes
// an error notification. Configuration faults abort rather than recover, but
// they are still surfaced the same way.
func (m *Manager) raiseFault(ctx context.Context, err error, label string) {
	m.Dispatch(state.FaultRaised{Message: services.Message(err)})
	m.logger.Error("operation failed",
		logging.String("operation", label),
		logging.Error(err),
		logging.Bool("recoverable", services.IsRecoverable(err)),
	)
	if notifyErr := m.deps.Notifier.NotifyError(ctx, err, label); notifyErr != nil {
		m.logger.Warn("notification failed", logging.Error(notifyErr))
	}
}

func describeShot(shot project.Shot, brief project.CreativeBrief) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s. Camera: %s. Lighting: %s.", shot.Subject, shot.Camera, shot.Lighting)
	if brief.VisualStyle != "" {
		fmt.Fprintf(&b, " Style: %s.", brief.VisualStyle)
	}
	if brief.ColorGrade != "" {
		fmt.Fprintf(&b, " Color grade: %s.", brief.ColorGrade)
	}
	if brief.Era != "" {
		fmt.Fprintf(&b, " Era: %s.", brief.Era)
	}
	if shot.LyricOverlay != "" {
		fmt.Fprintf(&b, " Lyric overlay: %q.", shot.LyricOverlay)
	}
	return b.String()
}
