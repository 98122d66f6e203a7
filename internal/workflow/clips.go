package workflow

import (
	"context"
	"fmt"
	"strings"

	"clipforge/internal/backend"
	"clipforge/internal/batch"
	"clipforge/internal/logging"
	"clipforge/internal/project"
	"clipforge/internal/services"
	"clipforge/internal/state"
)

// GenerateClip submits an image-to-video job for one shot and blocks until
// it settles, by status poll or by push callback, whichever lands first.
// The shot must have a ready preview image and no job already in flight.
func (m *Manager) GenerateClip(ctx context.Context, shotID string) error {
	shot, st, err := m.claimShot(shotID)
	if err != nil {
		return err
	}

	job := m.buildClipJob(shot, st)
	jobID, err := m.deps.Clips.Submit(ctx, job)
	if err != nil {
		m.markGenerating(shotID, false, 0)
		m.raiseFault(ctx, err, "clip submit for shot "+shotID)
		return err
	}
	push := m.trackJob(jobID, shotID)
	m.logger.Info("clip job submitted",
		logging.String(logging.FieldShotID, shotID),
		logging.String(logging.FieldJobID, jobID),
	)

	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type pollResult struct {
		url string
		err error
	}
	pollDone := make(chan pollResult, 1)
	go func() {
		url, pollErr := m.deps.Poll.Wait(pollCtx, jobID, func(progress int) {
			m.reportProgress(shotID, progress)
		})
		pollDone <- pollResult{url: url, err: pollErr}
	}()

	select {
	case url := <-push:
		cancel()
		<-pollDone
		m.settleClip(ctx, jobID, url, nil)
		return nil
	case result := <-pollDone:
		// A push may have landed while the poll result was in flight;
		// the pushed completion is authoritative in that case.
		select {
		case url := <-push:
			m.settleClip(ctx, jobID, url, nil)
			return nil
		default:
		}
		m.settleClip(ctx, jobID, result.url, result.err)
		return result.err
	}
}

// GenerateAllClips runs clip generation over every shot with a ready image
// and no clip yet, one at a time with the batch delay between submissions.
func (m *Manager) GenerateAllClips(ctx context.Context) error {
	st := m.State()
	if st.Storyboard == nil {
		return services.Wrap(services.ErrValidation, "clip", "generate", "no storyboard generated", nil)
	}
	var pending []string
	for _, shot := range st.Storyboard.AllShots() {
		if shot.ImageReady() && shot.ClipURL == "" && !shot.IsGeneratingClip {
			pending = append(pending, shot.ID)
		}
	}
	return batch.Run(ctx, m.deps.Batch, pending, func(ctx context.Context, shotID string) error {
		return m.GenerateClip(ctx, shotID)
	}, nil)
}

// HandlePushCompletion implements push.CompletionSink. A completion may be
// addressed by job id or by shot id; unknown and already-settled ids are
// dropped. A live tracker receives the result and the in-flight GenerateClip
// call finishes settlement.
func (m *Manager) HandlePushCompletion(jobID, shotID, resultURL string) {
	jobID = strings.TrimSpace(jobID)
	shotID = strings.TrimSpace(shotID)
	resultURL = strings.TrimSpace(resultURL)
	if resultURL == "" || (jobID == "" && shotID == "") {
		return
	}
	m.mu.Lock()
	tracker, ok := m.jobs[jobID]
	if !ok && shotID != "" {
		for _, candidate := range m.jobs {
			if candidate.shotID == shotID {
				tracker, ok = candidate, true
				break
			}
		}
	}
	m.mu.Unlock()
	if !ok {
		m.logger.Debug("push completion for unknown job",
			logging.String(logging.FieldJobID, jobID),
			logging.String(logging.FieldShotID, shotID),
		)
		return
	}
	select {
	case tracker.push <- resultURL:
	default:
		// A completion for this job already arrived; later ones are no-ops.
	}
}

// claimShot validates the clip preconditions and flips the shot's in-flight
// flag in one critical section, so of two concurrent calls for the same shot
// exactly one claims it and the other is rejected. Returns the shot as it
// was at claim time and a deep copy of the state for parameter derivation.
func (m *Manager) claimShot(shotID string) (project.Shot, project.ProjectState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.st.Stage != project.StageStoryboard && m.st.Stage != project.StageReview {
		return project.Shot{}, project.ProjectState{}, services.Wrap(services.ErrValidation, "clip", "generate",
			fmt.Sprintf("clip generation runs from the storyboard stage, not %s", m.st.Stage), nil)
	}
	sceneIdx, shotIdx, ok := m.st.Storyboard.FindShot(shotID)
	if !ok {
		return project.Shot{}, project.ProjectState{}, services.Wrap(services.ErrValidation, "clip", "generate",
			"unknown shot "+shotID, nil)
	}
	shot := m.st.Storyboard.Scenes[sceneIdx].Shots[shotIdx]
	if !shot.ImageReady() {
		return project.Shot{}, project.ProjectState{}, services.Wrap(services.ErrValidation, "clip", "generate",
			"shot "+shotID+" has no preview image to animate", nil)
	}
	if shot.IsGeneratingClip {
		return project.Shot{}, project.ProjectState{}, services.Wrap(services.ErrValidation, "clip", "generate",
			"shot "+shotID+" already has a clip job in flight", nil)
	}

	on := true
	zero := 0
	m.st = state.Apply(m.st, state.ShotPatched{ShotID: shotID, Patch: project.ShotPatch{
		IsGeneratingClip:   &on,
		GenerationProgress: &zero,
	}})
	return shot, m.st.Clone(), nil
}

// buildClipJob derives the submission parameters for one shot.
func (m *Manager) buildClipJob(shot project.Shot, st project.ProjectState) services.ClipJob {
	be := backend.Parse(shot.Backend)
	params := backend.DeriveClipParams(be, shot.Duration())

	lipSync := shot.LipSync && be.Lookup().SupportsLipSync
	audioURL := ""
	if lipSync && st.Song != nil {
		audioURL = st.Song.Name
	}
	return services.ClipJob{
		ShotID:         shot.ID,
		ImageURL:       shot.PreviewImageURL,
		Prompt:         describeShot(shot, st.Brief),
		DurationSec:    shot.Duration(),
		Tier:           st.ModelTier,
		CameraMotion:   shot.Camera,
		LipSync:        lipSync,
		AudioURL:       audioURL,
		FrameRate:      params.FrameRate,
		NegativePrompt: params.NegativePrompt,
		WorkflowHint:   params.WorkflowHint,
		Backend:        be,
	}
}

// trackJob registers an in-flight clip job and returns its push channel.
func (m *Manager) trackJob(jobID, shotID string) chan string {
	tracker := &clipTracker{shotID: shotID, push: make(chan string, 1)}
	m.mu.Lock()
	m.jobs[jobID] = tracker
	m.mu.Unlock()
	return tracker.push
}

// settleClip applies one job's terminal outcome exactly once. The tracker
// is removed under the lock; a second settlement finds no tracker and does
// nothing, which is how the push/poll race resolves in either order.
func (m *Manager) settleClip(ctx context.Context, jobID, resultURL string, jobErr error) {
	m.mu.Lock()
	tracker, ok := m.jobs[jobID]
	if ok {
		delete(m.jobs, jobID)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	shotID := tracker.shotID

	off := false
	if jobErr != nil {
		zero := 0
		m.Dispatch(state.ShotPatched{ShotID: shotID, Patch: project.ShotPatch{
			IsGeneratingClip:   &off,
			GenerationProgress: &zero,
		}})
		m.raiseFault(ctx, jobErr, "clip for shot "+shotID)
		return
	}

	full := 100
	m.Dispatch(state.ShotPatched{ShotID: shotID, Patch: project.ShotPatch{
		IsGeneratingClip:   &off,
		GenerationProgress: &full,
		ClipURL:            &resultURL,
	}})
	m.autosave(ctx)
	m.logger.Info("clip ready",
		logging.String(logging.FieldShotID, shotID),
		logging.String(logging.FieldJobID, jobID),
	)
	if err := m.deps.Notifier.NotifyClipReady(ctx, shotID); err != nil {
		m.logger.Warn("notification failed", logging.Error(err))
	}
}

// markGenerating flips a shot's clip-in-flight pair.
func (m *Manager) markGenerating(shotID string, generating bool, progress int) {
	m.Dispatch(state.ShotPatched{ShotID: shotID, Patch: project.ShotPatch{
		IsGeneratingClip:   &generating,
		GenerationProgress: &progress,
	}})
}

// reportProgress forwards a poll progress value into the shot. Progress
// never moves a settled shot; settlement removed the flag first.
func (m *Manager) reportProgress(shotID string, progress int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sceneIdx, shotIdx, ok := m.st.Storyboard.FindShot(shotID)
	if !ok || !m.st.Storyboard.Scenes[sceneIdx].Shots[shotIdx].IsGeneratingClip {
		return
	}
	m.st = state.Apply(m.st, state.ShotPatched{ShotID: shotID, Patch: project.ShotPatch{
		GenerationProgress: &progress,
	}})
}
