// Package state is the single mutation path for project state: a pure
// transition function over a closed event set. Apply never mutates its
// input and never panics on out-of-sequence events; a precondition miss is
// a caller-sequencing bug and yields the state unchanged rather than an
// error the caller could not act on.
package state

import (
	"strings"

	"clipforge/internal/project"
)

// Apply maps (state, event) to the next state. The input is cloned before
// any write, so callers may hold references to the old value. Serializing
// calls to Apply is the owner's job; the function itself is safe from any
// goroutine.
func Apply(s project.ProjectState, ev Event) project.ProjectState {
	switch ev := ev.(type) {
	case SongUploaded:
		next := project.Default()
		next.Song = ev.Song.Clone()
		if ev.Gender != "" {
			next.SingerGender = ev.Gender
		}
		if ev.Tier != "" {
			next.ModelTier = ev.Tier
		}
		return next

	case AnalysisCompleted:
		if s.Stage != project.StageUpload || ev.Analysis == nil {
			return s
		}
		next := s.Clone()
		next.Stage = project.StageControls
		next.Analysis = ev.Analysis.Clone()
		next.TokenUsage = next.TokenUsage.Merge(ev.Usage)
		next.LastError = ""
		return next

	case BriefPatched:
		// The brief freezes once a storyboard exists; edits after that
		// point would silently diverge from the generated shots.
		if s.Storyboard != nil {
			return s
		}
		next := s.Clone()
		next.Brief = ev.Patch.Apply(next.Brief)
		return next

	case PlanStarted:
		if s.Stage != project.StageControls {
			return s
		}
		next := s.Clone()
		next.Stage = project.StagePlan
		return next

	case BiblesGenerated:
		if s.Stage != project.StagePlan || ev.Bibles == nil {
			return s
		}
		next := s.Clone()
		next.Bibles = ev.Bibles.Clone()
		next.TokenUsage = next.TokenUsage.Merge(ev.Usage)
		return next

	case BibleImagesUpdated:
		return applyBibleImages(s, ev)

	case StoryboardGenerated:
		if s.Stage != project.StagePlan || ev.Storyboard == nil {
			return s
		}
		next := s.Clone()
		next.Stage = project.StageStoryboard
		next.Storyboard = ev.Storyboard.Clone()
		next.TokenUsage = next.TokenUsage.Merge(ev.Usage)
		return next

	case StoryboardFailed:
		if s.Stage != project.StagePlan {
			return s
		}
		next := s.Clone()
		next.Stage = project.StageControls
		next.LastError = strings.TrimSpace(ev.Message)
		return next

	case ShotReplaced:
		return replaceShot(s, ev.Shot.ID, func(project.Shot) project.Shot {
			return ev.Shot
		})

	case ShotPatched:
		return replaceShot(s, ev.ShotID, ev.Patch.Apply)

	case TransitionsReplaced:
		return applyTransitions(s, ev)

	case UsageAccrued:
		next := s.Clone()
		next.TokenUsage = next.TokenUsage.Merge(ev.Delta)
		return next

	case PostTaskStatusChanged:
		next := s.Clone()
		next.PostProduction = next.PostProduction.WithStatus(ev.Task, ev.Status)
		return next

	case ReviewStarted:
		if s.Stage != project.StageStoryboard && s.Stage != project.StageReview {
			return s
		}
		next := s.Clone()
		next.Stage = project.StageReview
		next.Review = &project.ReviewState{InProgress: true}
		return next

	case ReviewCompleted:
		if s.Stage != project.StageReview || ev.Review == nil {
			return s
		}
		next := s.Clone()
		next.Review = ev.Review.Clone()
		next.Review.InProgress = false
		next.TokenUsage = next.TokenUsage.Merge(ev.Usage)
		return next

	case FaultRaised:
		next := s.Clone()
		next.LastError = strings.TrimSpace(ev.Message)
		return next

	case FaultDismissed:
		next := s.Clone()
		next.LastError = ""
		return next

	case StateReplaced:
		return ev.State.Clone()
	}

	return s
}

// replaceShot rewrites the shot with the given id through fn. An id that
// matches no shot in any scene leaves the state unchanged: late events from
// abandoned generation runs must be harmless.
func replaceShot(s project.ProjectState, id string, fn func(project.Shot) project.Shot) project.ProjectState {
	sceneIdx, shotIdx, ok := s.Storyboard.FindShot(id)
	if !ok {
		return s
	}
	next := s.Clone()
	shot := next.Storyboard.Scenes[sceneIdx].Shots[shotIdx]
	updated := fn(shot)
	updated.ID = shot.ID
	next.Storyboard.Scenes[sceneIdx].Shots[shotIdx] = updated
	return next
}

func applyBibleImages(s project.ProjectState, ev BibleImagesUpdated) project.ProjectState {
	if s.Bibles == nil {
		return s
	}
	entries := s.Bibles.Entries(ev.Kind)
	idx := -1
	for i, entry := range entries {
		if entry.ID == ev.EntryID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s
	}
	next := s.Clone()
	images := append([]string(nil), ev.Images...)
	if ev.Kind == project.BibleLocations {
		next.Bibles.Locations[idx].SourceImages = images
	} else {
		next.Bibles.Characters[idx].SourceImages = images
	}
	return next
}

func applyTransitions(s project.ProjectState, ev TransitionsReplaced) project.ProjectState {
	idx, ok := s.Storyboard.FindScene(ev.SceneID)
	if !ok {
		return s
	}
	next := s.Clone()
	scene := &next.Storyboard.Scenes[idx]
	transitions := make([]*project.Transition, len(scene.Shots))
	for i := range transitions {
		if i < len(ev.Transitions) && ev.Transitions[i] != nil {
			cp := *ev.Transitions[i]
			transitions[i] = &cp
		}
	}
	scene.Transitions = transitions
	return next
}
