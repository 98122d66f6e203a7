package state

import "clipforge/internal/project"

// Event is one mutation request against the project state. The set is
// closed: every variant lives in this file and is handled by Apply.
type Event interface {
	isEvent()
}

// SongUploaded loads a new source song and its metadata, resetting any
// derived artifacts from a previous song.
type SongUploaded struct {
	Song   *project.Song
	Gender project.Gender
	Tier   project.Tier
}

// AnalysisCompleted records a successful song analysis and advances
// Upload to Controls.
type AnalysisCompleted struct {
	Analysis *project.SongAnalysis
	Usage    project.TokenUsage
}

// BriefPatched shallow-merges edited creative-brief fields.
type BriefPatched struct {
	Patch project.BriefPatch
}

// PlanStarted marks entry into the transient Plan stage.
type PlanStarted struct{}

// BiblesGenerated stores the generated character/location bibles.
type BiblesGenerated struct {
	Bibles *project.Bibles
	Usage  project.TokenUsage
}

// BibleImagesUpdated replaces one bible entry's source-image list,
// addressed by kind and entry id.
type BibleImagesUpdated struct {
	Kind    project.BibleKind
	EntryID string
	Images  []string
}

// StoryboardGenerated stores the storyboard and advances Plan to Storyboard.
type StoryboardGenerated struct {
	Storyboard *project.Storyboard
	Usage      project.TokenUsage
}

// StoryboardFailed reverts the transient Plan stage to Controls. Already
// generated bibles survive the fallback.
type StoryboardFailed struct {
	Message string
}

// ShotReplaced replaces a whole shot, addressed by its id.
type ShotReplaced struct {
	Shot project.Shot
}

// ShotPatched partially updates a shot, addressed by id.
type ShotPatched struct {
	ShotID string
	Patch  project.ShotPatch
}

// TransitionsReplaced replaces one scene's transition list.
type TransitionsReplaced struct {
	SceneID     string
	Transitions []*project.Transition
}

// UsageAccrued folds a usage delta into the token accounting.
type UsageAccrued struct {
	Delta project.TokenUsage
}

// PostTaskStatusChanged updates one post-production task flag.
type PostTaskStatusChanged struct {
	Task   project.PostTask
	Status project.TaskStatus
}

// ReviewStarted enters the Review stage and resets any previous feedback
// to in-progress.
type ReviewStarted struct{}

// ReviewCompleted stores the executive review results.
type ReviewCompleted struct {
	Review *project.ReviewState
	Usage  project.TokenUsage
}

// FaultRaised surfaces a recoverable fault in the last-error slot
// (latest wins).
type FaultRaised struct {
	Message string
}

// FaultDismissed clears the last-error slot.
type FaultDismissed struct{}

// StateReplaced substitutes the whole state (snapshot load or restart).
type StateReplaced struct {
	State project.ProjectState
}

func (SongUploaded) isEvent()          {}
func (AnalysisCompleted) isEvent()     {}
func (BriefPatched) isEvent()          {}
func (PlanStarted) isEvent()           {}
func (BiblesGenerated) isEvent()       {}
func (BibleImagesUpdated) isEvent()    {}
func (StoryboardGenerated) isEvent()   {}
func (StoryboardFailed) isEvent()      {}
func (ShotReplaced) isEvent()          {}
func (ShotPatched) isEvent()           {}
func (TransitionsReplaced) isEvent()   {}
func (UsageAccrued) isEvent()          {}
func (PostTaskStatusChanged) isEvent() {}
func (ReviewStarted) isEvent()         {}
func (ReviewCompleted) isEvent()       {}
func (FaultRaised) isEvent()           {}
func (FaultDismissed) isEvent()        {}
func (StateReplaced) isEvent()         {}
