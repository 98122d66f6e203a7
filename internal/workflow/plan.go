package workflow

import (
	"context"
	"fmt"

	"clipforge/internal/batch"
	"clipforge/internal/logging"
	"clipforge/internal/project"
	"clipforge/internal/services"
	"clipforge/internal/state"
)

// GeneratePlan runs the full planning pass: bibles, their reference images,
// the storyboard, and the per-shot preview images. Plan is a transient
// stage; when storyboard generation fails the stage falls back to Controls
// with the bibles kept, so a retry only redoes the failed half.
func (m *Manager) GeneratePlan(ctx context.Context) error {
	st := m.State()
	if st.Stage != project.StageControls {
		return services.Wrap(services.ErrValidation, "plan", "generate",
			fmt.Sprintf("planning runs from the controls stage, not %s", st.Stage), nil)
	}
	if st.Analysis == nil {
		return services.Wrap(services.ErrValidation, "plan", "generate", "song analysis required", nil)
	}

	m.Dispatch(state.PlanStarted{})

	bibles := st.Bibles
	if bibles == nil {
		generated, usage, err := m.deps.Bibles.GenerateBibles(ctx, st.Analysis, st.Brief, st.ModelTier)
		if err != nil {
			m.Dispatch(state.StoryboardFailed{Message: services.Message(err)})
			m.raiseFault(ctx, err, "bible generation")
			return err
		}
		m.Dispatch(state.BiblesGenerated{Bibles: generated, Usage: usage})
		bibles = generated
		if notifyErr := m.deps.Notifier.NotifyPlanReady(ctx, len(generated.Characters), len(generated.Locations)); notifyErr != nil {
			m.logger.Warn("notification failed", logging.Error(notifyErr))
		}
	}

	if err := m.GenerateBibleImages(ctx); err != nil {
		m.Dispatch(state.StoryboardFailed{Message: services.Message(err)})
		return err
	}

	st = m.State()
	storyboard, usage, err := m.deps.Storyboard.GenerateStoryboard(ctx, st.Analysis, st.Bibles, st.Brief, st.ModelTier)
	if err != nil {
		m.Dispatch(state.StoryboardFailed{Message: services.Message(err)})
		m.raiseFault(ctx, err, "storyboard generation")
		return err
	}
	m.Dispatch(state.StoryboardGenerated{Storyboard: storyboard, Usage: usage})
	m.autosave(ctx)

	shots := 0
	for _, scene := range storyboard.Scenes {
		shots += len(scene.Shots)
	}
	m.logger.Info("storyboard generated",
		logging.Int("scenes", len(storyboard.Scenes)),
		logging.Int("shots", shots),
	)
	if notifyErr := m.deps.Notifier.NotifyStoryboardReady(ctx, len(storyboard.Scenes), shots); notifyErr != nil {
		m.logger.Warn("notification failed", logging.Error(notifyErr))
	}

	return m.GenerateShotImages(ctx)
}

// bibleImageTarget addresses one bible entry awaiting reference images.
type bibleImageTarget struct {
	kind  project.BibleKind
	entry project.BibleEntry
}

// GenerateBibleImages renders reference images for every bible entry that
// has none yet or whose previous attempt failed. Entries already carrying
// images are skipped, so re-running after an interruption only does the
// remaining work. Per-entry failure marks that entry and moves on; the only
// error returned is an interruption.
func (m *Manager) GenerateBibleImages(ctx context.Context) error {
	st := m.State()
	if st.Bibles == nil {
		return nil
	}

	var targets []bibleImageTarget
	for _, kind := range []project.BibleKind{project.BibleCharacters, project.BibleLocations} {
		for _, entry := range st.Bibles.Entries(kind) {
			if entry.ImagesPending() || entry.ImagesFailed() {
				targets = append(targets, bibleImageTarget{kind: kind, entry: entry})
			}
		}
	}
	if len(targets) == 0 {
		return nil
	}

	return batch.Run(ctx, m.deps.Batch, targets, func(ctx context.Context, target bibleImageTarget) error {
		prompt := fmt.Sprintf("Reference sheet for %s: %s. Style: %s. Neutral background, consistent identity.",
			target.entry.Name, target.entry.Description, st.Brief.VisualStyle)
		url, usage, err := m.deps.Images.GenerateImage(ctx, prompt, st.ModelTier)
		if err != nil {
			return err
		}
		m.Dispatch(state.BibleImagesUpdated{Kind: target.kind, EntryID: target.entry.ID, Images: []string{url}})
		m.Dispatch(state.UsageAccrued{Delta: usage})
		return nil
	}, func(target bibleImageTarget, err error) {
		m.Dispatch(state.BibleImagesUpdated{Kind: target.kind, EntryID: target.entry.ID, Images: []string{project.AssetFailed}})
		m.raiseFault(ctx, err, "bible image "+target.entry.Name)
	})
}

// RegenerateBibleImages redoes the reference images for one entry,
// addressed by kind and id.
func (m *Manager) RegenerateBibleImages(ctx context.Context, kind project.BibleKind, entryID string) error {
	st := m.State()
	if st.Bibles == nil {
		return services.Wrap(services.ErrValidation, "plan", "regenerate", "no bibles generated", nil)
	}
	var target *project.BibleEntry
	for _, entry := range st.Bibles.Entries(kind) {
		if entry.ID == entryID {
			entry := entry
			target = &entry
			break
		}
	}
	if target == nil {
		return services.Wrap(services.ErrValidation, "plan", "regenerate",
			fmt.Sprintf("unknown %s entry %s", kind, entryID), nil)
	}

	prompt := fmt.Sprintf("Reference sheet for %s: %s. Style: %s. Neutral background, consistent identity.",
		target.Name, target.Description, st.Brief.VisualStyle)
	url, usage, err := m.deps.Images.GenerateImage(ctx, prompt, st.ModelTier)
	if err != nil {
		m.Dispatch(state.BibleImagesUpdated{Kind: kind, EntryID: entryID, Images: []string{project.AssetFailed}})
		m.raiseFault(ctx, err, "bible image "+target.Name)
		return err
	}
	m.Dispatch(state.BibleImagesUpdated{Kind: kind, EntryID: entryID, Images: []string{url}})
	m.Dispatch(state.UsageAccrued{Delta: usage})
	return nil
}

// GenerateShotImages renders preview frames for every shot still awaiting
// one, including shots whose previous attempt failed. Shots that already
// have an image are untouched, which is what makes an interrupted batch
// safely resumable. Identity is by shot id throughout; a shot replaced
// mid-batch under the same id still receives its image.
func (m *Manager) GenerateShotImages(ctx context.Context) error {
	st := m.State()
	if st.Storyboard == nil {
		return services.Wrap(services.ErrValidation, "storyboard", "images", "no storyboard generated", nil)
	}

	var pending []project.Shot
	for _, shot := range st.Storyboard.AllShots() {
		if !shot.ImageReady() {
			pending = append(pending, shot)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	m.logger.Info("generating shot images", logging.Int("pending", len(pending)))

	return batch.Run(ctx, m.deps.Batch, pending, func(ctx context.Context, shot project.Shot) error {
		url, usage, err := m.deps.Images.GenerateImage(ctx, describeShot(shot, st.Brief), st.ModelTier)
		if err != nil {
			return err
		}
		m.Dispatch(state.ShotPatched{ShotID: shot.ID, Patch: project.ShotPatch{PreviewImageURL: &url}})
		m.Dispatch(state.UsageAccrued{Delta: usage})
		return nil
	}, func(shot project.Shot, err error) {
		failed := project.AssetFailed
		m.Dispatch(state.ShotPatched{ShotID: shot.ID, Patch: project.ShotPatch{PreviewImageURL: &failed}})
		m.raiseFault(ctx, err, "shot image "+shot.ID)
	})
}

// UploadShotImage installs a user-provided preview image for a shot. Any
// clip generated from the previous image is stale and dropped. While a clip
// job is in flight the upload is rejected; settling that job would otherwise
// land a clip derived from the replaced image.
func (m *Manager) UploadShotImage(shotID, imageURL string) error {
	st := m.State()
	if st.Storyboard == nil {
		return services.Wrap(services.ErrValidation, "storyboard", "upload-image", "no storyboard generated", nil)
	}
	sceneIdx, shotIdx, ok := st.Storyboard.FindShot(shotID)
	if !ok {
		return services.Wrap(services.ErrValidation, "storyboard", "upload-image", "unknown shot "+shotID, nil)
	}
	if st.Storyboard.Scenes[sceneIdx].Shots[shotIdx].IsGeneratingClip {
		return services.Wrap(services.ErrValidation, "storyboard", "upload-image",
			"shot "+shotID+" has a clip job in flight", nil)
	}
	empty := ""
	m.Dispatch(state.ShotPatched{ShotID: shotID, Patch: project.ShotPatch{
		PreviewImageURL: &imageURL,
		ClipURL:         &empty,
	}})
	return nil
}

// ReplaceShot swaps a shot's creative fields wholesale, addressed by id.
func (m *Manager) ReplaceShot(shot project.Shot) {
	m.Dispatch(state.ShotReplaced{Shot: shot})
}

// PatchShot partially updates a shot, addressed by id.
func (m *Manager) PatchShot(shotID string, patch project.ShotPatch) {
	m.Dispatch(state.ShotPatched{ShotID: shotID, Patch: patch})
}

// GenerateTransitions suggests and installs the transition list for one
// scene. The stored list is index-aligned with the scene's shots.
func (m *Manager) GenerateTransitions(ctx context.Context, sceneID string) error {
	st := m.State()
	if st.Storyboard == nil {
		return services.Wrap(services.ErrValidation, "storyboard", "transitions", "no storyboard generated", nil)
	}
	idx, ok := st.Storyboard.FindScene(sceneID)
	if !ok {
		return services.Wrap(services.ErrValidation, "storyboard", "transitions", "unknown scene "+sceneID, nil)
	}

	transitions, usage, err := m.deps.Transitions.GenerateTransitions(ctx, st.Storyboard.Scenes[idx], st.Brief, st.ModelTier)
	if err != nil {
		m.raiseFault(ctx, err, "transitions for scene "+sceneID)
		return err
	}
	m.Dispatch(state.TransitionsReplaced{SceneID: sceneID, Transitions: transitions})
	m.Dispatch(state.UsageAccrued{Delta: usage})
	return nil
}

// GenerateAllTransitions regenerates transitions scene by scene through the
// throttled runner. A failed scene keeps its previous list; the rest proceed.
func (m *Manager) GenerateAllTransitions(ctx context.Context) error {
	st := m.State()
	if st.Storyboard == nil {
		return services.Wrap(services.ErrValidation, "storyboard", "transitions", "no storyboard generated", nil)
	}
	sceneIDs := make([]string, 0, len(st.Storyboard.Scenes))
	for _, scene := range st.Storyboard.Scenes {
		sceneIDs = append(sceneIDs, scene.ID)
	}
	return batch.Run(ctx, m.deps.Batch, sceneIDs, func(ctx context.Context, sceneID string) error {
		return m.GenerateTransitions(ctx, sceneID)
	}, func(sceneID string, err error) {
		m.logger.Warn("scene transitions failed",
			logging.String(logging.FieldComponent, "workflow"),
			logging.String("scene_id", sceneID),
			logging.Error(err))
	})
}
