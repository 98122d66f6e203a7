package project

import "strings"

// Stage identifies a phase of the production pipeline.
type Stage string

const (
	StageUpload     Stage = "upload"
	StageControls   Stage = "controls"
	StagePlan       Stage = "plan"
	StageStoryboard Stage = "storyboard"
	StageReview     Stage = "review"
)

var allStages = []Stage{
	StageUpload,
	StageControls,
	StagePlan,
	StageStoryboard,
	StageReview,
}

var stageSet = func() map[Stage]struct{} {
	set := make(map[Stage]struct{}, len(allStages))
	for _, stage := range allStages {
		set[stage] = struct{}{}
	}
	return set
}()

// AllStages returns the ordered list of pipeline stages.
func AllStages() []Stage {
	cp := make([]Stage, len(allStages))
	copy(cp, allStages)
	return cp
}

// ParseStage converts a string into a known Stage.
func ParseStage(value string) (Stage, bool) {
	normalized := Stage(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stageSet[normalized]
	return normalized, ok
}

// AssetFailed is the sentinel stored in a generated-asset field when
// generation failed, distinguishing "failed" from "not yet generated".
const AssetFailed = "error"

// Gender is the singer gender hint passed to generation services.
type Gender string

const (
	GenderFemale Gender = "female"
	GenderMale   Gender = "male"
	GenderMixed  Gender = "mixed"
)

// Tier selects the generation model quality level.
type Tier string

const (
	TierDraft    Tier = "draft"
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

// ParseTier converts a string into a known Tier, defaulting to standard.
func ParseTier(value string) Tier {
	switch Tier(strings.ToLower(strings.TrimSpace(value))) {
	case TierDraft:
		return TierDraft
	case TierPremium:
		return TierPremium
	default:
		return TierStandard
	}
}

// Song holds the uploaded source audio and its metadata.
type Song struct {
	Name     string
	MimeType string
	Data     []byte
	Lyrics   string
}

// Clone returns a deep copy of the song.
func (s *Song) Clone() *Song {
	if s == nil {
		return nil
	}
	cp := *s
	if s.Data != nil {
		cp.Data = make([]byte, len(s.Data))
		copy(cp.Data, s.Data)
	}
	return &cp
}

// SongSection is one structural segment of the analyzed song.
type SongSection struct {
	Label string  `json:"label"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Mood  string  `json:"mood"`
}

// SongAnalysis is the structural and mood breakdown produced by the
// analysis service. Nil until analysis completes.
type SongAnalysis struct {
	Title    string        `json:"title"`
	Genre    string        `json:"genre"`
	Tempo    float64       `json:"tempo"`
	Duration float64       `json:"duration"`
	Mood     string        `json:"mood"`
	Themes   []string      `json:"themes"`
	Sections []SongSection `json:"sections"`
}

// Clone returns a deep copy of the analysis.
func (a *SongAnalysis) Clone() *SongAnalysis {
	if a == nil {
		return nil
	}
	cp := *a
	cp.Themes = append([]string(nil), a.Themes...)
	cp.Sections = append([]SongSection(nil), a.Sections...)
	return &cp
}

// CreativeBrief is the user-editable creative direction. Editable at any
// point before the storyboard exists; patched shallowly field by field.
type CreativeBrief struct {
	Concept     string `json:"concept"`
	VisualStyle string `json:"visualStyle"`
	ColorGrade  string `json:"colorGrade"`
	Era         string `json:"era"`
	Influences  string `json:"influences"`
	Pacing      string `json:"pacing"`
}

// BriefPatch carries the creative-brief fields to update; nil fields are
// left untouched (shallow merge).
type BriefPatch struct {
	Concept     *string
	VisualStyle *string
	ColorGrade  *string
	Era         *string
	Influences  *string
	Pacing      *string
}

// Apply merges the patch into a copy of the brief.
func (p BriefPatch) Apply(brief CreativeBrief) CreativeBrief {
	if p.Concept != nil {
		brief.Concept = *p.Concept
	}
	if p.VisualStyle != nil {
		brief.VisualStyle = *p.VisualStyle
	}
	if p.ColorGrade != nil {
		brief.ColorGrade = *p.ColorGrade
	}
	if p.Era != nil {
		brief.Era = *p.Era
	}
	if p.Influences != nil {
		brief.Influences = *p.Influences
	}
	if p.Pacing != nil {
		brief.Pacing = *p.Pacing
	}
	return brief
}

// BibleKind distinguishes the two bible collections.
type BibleKind string

const (
	BibleCharacters BibleKind = "characters"
	BibleLocations  BibleKind = "locations"
)

// BibleEntry is one reference sheet (a character or a location) used to keep
// generated imagery visually consistent. SourceImages lifecycle: empty while
// pending, populated when ready, the AssetFailed sentinel as sole element
// when generation failed.
type BibleEntry struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	SourceImages []string `json:"sourceImages"`
}

// ImagesPending reports whether reference images have not been generated yet.
func (e BibleEntry) ImagesPending() bool {
	return len(e.SourceImages) == 0
}

// ImagesFailed reports whether reference-image generation failed.
func (e BibleEntry) ImagesFailed() bool {
	return len(e.SourceImages) == 1 && e.SourceImages[0] == AssetFailed
}

// Clone returns a deep copy of the entry.
func (e BibleEntry) Clone() BibleEntry {
	cp := e
	cp.SourceImages = append([]string(nil), e.SourceImages...)
	return cp
}

// Bibles groups the character and location reference sheets. Nil until the
// plan stage produces them.
type Bibles struct {
	Characters []BibleEntry `json:"characters"`
	Locations  []BibleEntry `json:"locations"`
}

// Clone returns a deep copy of the bibles.
func (b *Bibles) Clone() *Bibles {
	if b == nil {
		return nil
	}
	cp := &Bibles{
		Characters: make([]BibleEntry, len(b.Characters)),
		Locations:  make([]BibleEntry, len(b.Locations)),
	}
	for i, entry := range b.Characters {
		cp.Characters[i] = entry.Clone()
	}
	for i, entry := range b.Locations {
		cp.Locations[i] = entry.Clone()
	}
	return cp
}

// Entries returns the collection for the given kind.
func (b *Bibles) Entries(kind BibleKind) []BibleEntry {
	if b == nil {
		return nil
	}
	if kind == BibleLocations {
		return b.Locations
	}
	return b.Characters
}

// TaskStatus is the lifecycle of one post-production task.
type TaskStatus string

const (
	TaskIdle       TaskStatus = "idle"
	TaskProcessing TaskStatus = "processing"
	TaskDone       TaskStatus = "done"
)

// PostTask names one of the three independent post-production tasks.
type PostTask string

const (
	TaskUpscale     PostTask = "upscale"
	TaskColorGrade  PostTask = "color_grade"
	TaskInterpolate PostTask = "interpolate"
)

// PostProduction tracks the three independent enhancement tasks.
type PostProduction struct {
	Upscale     TaskStatus `json:"upscale"`
	ColorGrade  TaskStatus `json:"colorGrade"`
	Interpolate TaskStatus `json:"interpolate"`
}

// Status returns the status of the named task.
func (p PostProduction) Status(task PostTask) TaskStatus {
	switch task {
	case TaskColorGrade:
		return p.ColorGrade
	case TaskInterpolate:
		return p.Interpolate
	default:
		return p.Upscale
	}
}

// WithStatus returns a copy with the named task set to the given status.
func (p PostProduction) WithStatus(task PostTask, status TaskStatus) PostProduction {
	switch task {
	case TaskColorGrade:
		p.ColorGrade = status
	case TaskInterpolate:
		p.Interpolate = status
	case TaskUpscale:
		p.Upscale = status
	}
	return p
}

// ReviewState carries the executive review feedback and the visual
// continuity report. Nil until a review has been requested.
type ReviewState struct {
	InProgress       bool   `json:"inProgress"`
	Feedback         string `json:"feedback"`
	ContinuityReport string `json:"continuityReport"`
	Score            int    `json:"score"`
}

// Clone returns a copy of the review state.
func (r *ReviewState) Clone() *ReviewState {
	if r == nil {
		return nil
	}
	cp := *r
	return &cp
}

// ProjectState is the canonical, serializable representation of one
// production. It is created empty at process start, replaced wholesale on
// snapshot load or restart, and otherwise evolved one event at a time.
type ProjectState struct {
	Stage          Stage
	Song           *Song
	SingerGender   Gender
	ModelTier      Tier
	Analysis       *SongAnalysis
	Brief          CreativeBrief
	Bibles         *Bibles
	Storyboard     *Storyboard
	TokenUsage     TokenUsage
	PostProduction PostProduction
	Review         *ReviewState
	LastError      string
}

// Default returns a fresh project state in the upload stage.
func Default() ProjectState {
	return ProjectState{
		Stage:        StageUpload,
		SingerGender: GenderFemale,
		ModelTier:    TierStandard,
		TokenUsage:   TokenUsage{},
		PostProduction: PostProduction{
			Upscale:     TaskIdle,
			ColorGrade:  TaskIdle,
			Interpolate: TaskIdle,
		},
	}
}

// Clone returns a deep copy of the whole state.
func (s ProjectState) Clone() ProjectState {
	cp := s
	cp.Song = s.Song.Clone()
	cp.Analysis = s.Analysis.Clone()
	cp.Bibles = s.Bibles.Clone()
	cp.Storyboard = s.Storyboard.Clone()
	cp.TokenUsage = s.TokenUsage.Clone()
	cp.Review = s.Review.Clone()
	return cp
}
