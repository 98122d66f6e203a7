package state

import (
	"reflect"
	"testing"

	"clipforge/internal/project"
)

func sampleSong() *project.Song {
	return &project.Song{Name: "track.mp3", MimeType: "audio/mpeg", Data: []byte{1, 2, 3}, Lyrics: "la la"}
}

func sampleAnalysis() *project.SongAnalysis {
	return &project.SongAnalysis{
		Title:    "Neon Rain",
		Genre:    "synthpop",
		Tempo:    118,
		Duration: 201,
		Sections: []project.SongSection{{Label: "verse", Start: 0, End: 30, Mood: "wistful"}},
	}
}

func sampleBibles() *project.Bibles {
	return &project.Bibles{
		Characters: []project.BibleEntry{{ID: "char-1", Name: "Vee", Description: "singer"}},
		Locations:  []project.BibleEntry{{ID: "loc-1", Name: "Rooftop", Description: "night rooftop"}},
	}
}

func sampleStoryboard() *project.Storyboard {
	return &project.Storyboard{Scenes: []project.Scene{
		{
			ID:    "scene-1",
			Start: 0,
			End:   12,
			Shots: []project.Shot{
				{ID: "shot-1", Start: 0, End: 4, Subject: "Vee on rooftop", Backend: "turbo"},
				{ID: "shot-2", Start: 4, End: 12, Subject: "city skyline", Backend: "cine"},
			},
			Transitions: make([]*project.Transition, 2),
		},
	}}
}

func stateAtStoryboard(t *testing.T) project.ProjectState {
	t.Helper()
	st := Apply(project.Default(), SongUploaded{Song: sampleSong(), Gender: project.GenderFemale, Tier: project.TierStandard})
	st = Apply(st, AnalysisCompleted{Analysis: sampleAnalysis()})
	st = Apply(st, PlanStarted{})
	st = Apply(st, BiblesGenerated{Bibles: sampleBibles()})
	st = Apply(st, StoryboardGenerated{Storyboard: sampleStoryboard()})
	if st.Stage != project.StageStoryboard {
		t.Fatalf("expected storyboard stage, got %s", st.Stage)
	}
	return st
}

func TestApplyHappyPathStages(t *testing.T) {
	st := project.Default()
	if st.Stage != project.StageUpload {
		t.Fatalf("expected upload stage, got %s", st.Stage)
	}

	st = Apply(st, SongUploaded{Song: sampleSong(), Gender: project.GenderMale, Tier: project.TierPremium})
	if st.SingerGender != project.GenderMale || st.ModelTier != project.TierPremium {
		t.Fatalf("upload did not keep gender/tier: %+v", st)
	}

	st = Apply(st, AnalysisCompleted{Analysis: sampleAnalysis()})
	if st.Stage != project.StageControls {
		t.Fatalf("expected controls after analysis, got %s", st.Stage)
	}

	st = Apply(st, PlanStarted{})
	if st.Stage != project.StagePlan {
		t.Fatalf("expected plan stage, got %s", st.Stage)
	}

	st = Apply(st, BiblesGenerated{Bibles: sampleBibles()})
	st = Apply(st, StoryboardGenerated{Storyboard: sampleStoryboard()})
	if st.Stage != project.StageStoryboard {
		t.Fatalf("expected storyboard stage, got %s", st.Stage)
	}

	st = Apply(st, ReviewStarted{})
	if st.Stage != project.StageReview || st.Review == nil || !st.Review.InProgress {
		t.Fatalf("review start did not take: %+v", st.Review)
	}
	st = Apply(st, ReviewCompleted{Review: &project.ReviewState{Feedback: "solid", Score: 82}})
	if st.Review.InProgress || st.Review.Score != 82 {
		t.Fatalf("review completion did not take: %+v", st.Review)
	}
}

func TestApplyOutOfSequenceEventsAreNoOps(t *testing.T) {
	base := project.Default()

	cases := []struct {
		name  string
		event Event
	}{
		{"analysis without payload", AnalysisCompleted{Analysis: nil}},
		{"plan from upload", PlanStarted{}},
		{"bibles outside plan", BiblesGenerated{Bibles: sampleBibles()}},
		{"storyboard outside plan", StoryboardGenerated{Storyboard: sampleStoryboard()}},
		{"storyboard failure outside plan", StoryboardFailed{Message: "boom"}},
		{"review from upload", ReviewStarted{}},
		{"review completion without review", ReviewCompleted{Review: &project.ReviewState{Score: 10}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next := Apply(base, tc.event)
			if !reflect.DeepEqual(next, base) {
				t.Fatalf("event %T changed the state out of sequence", tc.event)
			}
		})
	}

	// A second analysis after leaving the upload stage is equally inert.
	controls := Apply(Apply(project.Default(), SongUploaded{Song: sampleSong()}), AnalysisCompleted{Analysis: sampleAnalysis()})
	if next := Apply(controls, AnalysisCompleted{Analysis: sampleAnalysis()}); !reflect.DeepEqual(next, controls) {
		t.Fatal("analysis outside the upload stage must be a no-op")
	}
}

func TestApplySongUploadResetsDerivedState(t *testing.T) {
	st := stateAtStoryboard(t)
	st = Apply(st, UsageAccrued{Delta: project.TokenUsage{"images": map[string]any{"requests": 3}}})

	next := Apply(st, SongUploaded{Song: sampleSong(), Gender: project.GenderMixed, Tier: project.TierDraft})
	if next.Stage != project.StageUpload {
		t.Fatalf("expected upload stage after new song, got %s", next.Stage)
	}
	if next.Analysis != nil || next.Bibles != nil || next.Storyboard != nil || next.Review != nil {
		t.Fatal("new song upload must drop derived artifacts")
	}
	if len(next.TokenUsage) != 0 {
		t.Fatalf("expected fresh usage, got %v", next.TokenUsage)
	}
}

func TestApplyBriefFreezesOnceStoryboardExists(t *testing.T) {
	concept := "neon noir"
	st := Apply(project.Default(), SongUploaded{Song: sampleSong()})
	st = Apply(st, BriefPatched{Patch: project.BriefPatch{Concept: &concept}})
	if st.Brief.Concept != concept {
		t.Fatalf("brief patch before storyboard must apply, got %q", st.Brief.Concept)
	}

	st = stateAtStoryboard(t)
	late := "something else"
	next := Apply(st, BriefPatched{Patch: project.BriefPatch{Concept: &late}})
	if !reflect.DeepEqual(next, st) {
		t.Fatal("brief patch after storyboard must be dropped")
	}
}

func TestApplyStoryboardFailureFallsBackKeepingBibles(t *testing.T) {
	st := Apply(project.Default(), SongUploaded{Song: sampleSong()})
	st = Apply(st, AnalysisCompleted{Analysis: sampleAnalysis()})
	st = Apply(st, PlanStarted{})
	st = Apply(st, BiblesGenerated{Bibles: sampleBibles()})

	st = Apply(st, StoryboardFailed{Message: "model returned no scenes"})
	if st.Stage != project.StageControls {
		t.Fatalf("expected fallback to controls, got %s", st.Stage)
	}
	if st.Bibles == nil || len(st.Bibles.Characters) != 1 {
		t.Fatal("bibles must survive a storyboard failure")
	}
	if st.LastError != "model returned no scenes" {
		t.Fatalf("expected failure message surfaced, got %q", st.LastError)
	}

	// Retry path: plan restarts from controls with bibles intact.
	st = Apply(st, PlanStarted{})
	if st.Stage != project.StagePlan || st.Bibles == nil {
		t.Fatalf("retry must re-enter plan with bibles, got stage %s", st.Stage)
	}
}

func TestApplyShotEventsAddressedByID(t *testing.T) {
	st := stateAtStoryboard(t)

	url := "https://img.example/shot-1.png"
	next := Apply(st, ShotPatched{ShotID: "shot-1", Patch: project.ShotPatch{PreviewImageURL: &url}})
	if got := next.Storyboard.Scenes[0].Shots[0].PreviewImageURL; got != url {
		t.Fatalf("patch did not land on shot-1, got %q", got)
	}
	if next.Storyboard.Scenes[0].Shots[1].PreviewImageURL != "" {
		t.Fatal("patch leaked onto a sibling shot")
	}

	// Unknown id is a silent no-op: late events from abandoned runs.
	orphan := Apply(next, ShotPatched{ShotID: "shot-gone", Patch: project.ShotPatch{PreviewImageURL: &url}})
	if !reflect.DeepEqual(orphan, next) {
		t.Fatal("patch for unknown shot id must not change the state")
	}

	replacement := project.Shot{ID: "ignored", Start: 0, End: 4, Subject: "replaced subject"}
	replaced := Apply(next, ShotReplaced{Shot: func() project.Shot {
		s := replacement
		s.ID = "shot-2"
		return s
	}()})
	got := replaced.Storyboard.Scenes[0].Shots[1]
	if got.Subject != "replaced subject" {
		t.Fatalf("replacement did not land, got %+v", got)
	}
	if got.ID != "shot-2" {
		t.Fatalf("replacement must preserve the addressed id, got %q", got.ID)
	}
}

func TestApplyBibleImagesAddressedByKindAndID(t *testing.T) {
	st := stateAtStoryboard(t)

	next := Apply(st, BibleImagesUpdated{Kind: project.BibleCharacters, EntryID: "char-1", Images: []string{"https://img.example/vee.png"}})
	if got := next.Bibles.Characters[0].SourceImages; len(got) != 1 || got[0] != "https://img.example/vee.png" {
		t.Fatalf("character images not updated: %v", got)
	}
	if len(next.Bibles.Locations[0].SourceImages) != 0 {
		t.Fatal("location entry must be untouched")
	}

	failed := Apply(next, BibleImagesUpdated{Kind: project.BibleLocations, EntryID: "loc-1", Images: []string{project.AssetFailed}})
	if !failed.Bibles.Locations[0].ImagesFailed() {
		t.Fatal("expected location entry marked failed")
	}

	orphan := Apply(failed, BibleImagesUpdated{Kind: project.BibleCharacters, EntryID: "char-gone", Images: []string{"x"}})
	if !reflect.DeepEqual(orphan, failed) {
		t.Fatal("unknown bible entry must be a no-op")
	}
}

func TestApplyTransitionsNormalizedToShotCount(t *testing.T) {
	st := stateAtStoryboard(t)

	// Longer than the shot list: extra entries dropped.
	long := []*project.Transition{
		{Style: "cut", DurationSec: 0},
		{Style: "dissolve", DurationSec: 0.5},
		{Style: "wipe", DurationSec: 1},
	}
	next := Apply(st, TransitionsReplaced{SceneID: "scene-1", Transitions: long})
	scene := next.Storyboard.Scenes[0]
	if len(scene.Transitions) != len(scene.Shots) {
		t.Fatalf("transition list must match shot count, got %d", len(scene.Transitions))
	}
	if scene.Transitions[1] == nil || scene.Transitions[1].Style != "dissolve" {
		t.Fatalf("transition order lost: %+v", scene.Transitions)
	}

	// Shorter than the shot list: padded with nil.
	short := []*project.Transition{{Style: "cut"}}
	next = Apply(st, TransitionsReplaced{SceneID: "scene-1", Transitions: short})
	scene = next.Storyboard.Scenes[0]
	if len(scene.Transitions) != 2 || scene.Transitions[1] != nil {
		t.Fatalf("short transition list must be nil-padded: %+v", scene.Transitions)
	}

	orphan := Apply(st, TransitionsReplaced{SceneID: "scene-gone", Transitions: short})
	if !reflect.DeepEqual(orphan, st) {
		t.Fatal("unknown scene must be a no-op")
	}
}

func TestApplyUsageAccumulatesByAddition(t *testing.T) {
	st := project.Default()
	st = Apply(st, UsageAccrued{Delta: project.TokenUsage{"analysis": map[string]any{"requests": 1, "totalTokens": 120}}})
	st = Apply(st, UsageAccrued{Delta: project.TokenUsage{"analysis": map[string]any{"requests": 1, "totalTokens": 80}, "images": map[string]any{"credits": 2.5}}})

	analysis := st.TokenUsage["analysis"].(map[string]any)
	if got := analysis["requests"].(float64); got != 2 {
		t.Fatalf("expected 2 requests, got %v", got)
	}
	if got := analysis["totalTokens"].(float64); got != 200 {
		t.Fatalf("expected 200 tokens, got %v", got)
	}
	if images := st.TokenUsage["images"].(map[string]any); images["credits"].(float64) != 2.5 {
		t.Fatalf("expected image credits carried, got %v", images)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	st := stateAtStoryboard(t)
	before := st.Clone()

	url := "https://img.example/a.png"
	_ = Apply(st, ShotPatched{ShotID: "shot-1", Patch: project.ShotPatch{PreviewImageURL: &url}})
	_ = Apply(st, FaultRaised{Message: "boom"})
	_ = Apply(st, BibleImagesUpdated{Kind: project.BibleCharacters, EntryID: "char-1", Images: []string{"x"}})

	if !reflect.DeepEqual(st, before) {
		t.Fatal("Apply mutated its input state")
	}
}

func TestApplyFaultLifecycle(t *testing.T) {
	st := Apply(project.Default(), FaultRaised{Message: "  image service 429  "})
	if st.LastError != "image service 429" {
		t.Fatalf("expected trimmed fault message, got %q", st.LastError)
	}
	st = Apply(st, FaultRaised{Message: "newer fault"})
	if st.LastError != "newer fault" {
		t.Fatalf("latest fault must win, got %q", st.LastError)
	}
	st = Apply(st, FaultDismissed{})
	if st.LastError != "" {
		t.Fatalf("dismiss must clear the fault, got %q", st.LastError)
	}
}

func TestApplyStateReplacedClones(t *testing.T) {
	replacement := stateAtStoryboard(t)
	st := Apply(project.Default(), StateReplaced{State: replacement})

	url := "https://img.example/mutate.png"
	st.Storyboard.Scenes[0].Shots[0].PreviewImageURL = url
	if replacement.Storyboard.Scenes[0].Shots[0].PreviewImageURL == url {
		t.Fatal("replacement state must be cloned, not aliased")
	}
}
