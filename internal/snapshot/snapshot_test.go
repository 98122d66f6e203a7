package snapshot

import (
	"encoding/json"
	"testing"

	"clipforge/internal/project"
)

func sampleState() project.ProjectState {
	st := project.Default()
	st.Stage = project.StageStoryboard
	st.SingerGender = project.GenderMale
	st.ModelTier = project.TierPremium
	st.Song = &project.Song{Name: "track.mp3", MimeType: "audio/mpeg", Data: []byte{1, 2, 3, 4}, Lyrics: "verse one"}
	st.Analysis = &project.SongAnalysis{Title: "Neon Rain", Genre: "synthpop", Tempo: 118, Duration: 200}
	st.Brief = project.CreativeBrief{Concept: "neon noir", VisualStyle: "anamorphic"}
	st.Bibles = &project.Bibles{
		Characters: []project.BibleEntry{{ID: "c1", Name: "Vee", SourceImages: []string{"https://img/c1.png"}}},
		Locations:  []project.BibleEntry{{ID: "l1", Name: "Rooftop"}},
	}
	st.Storyboard = &project.Storyboard{Scenes: []project.Scene{{
		ID:          "sc1",
		Start:       0,
		End:         10,
		Shots:       []project.Shot{{ID: "s1", Start: 0, End: 4, Subject: "Vee", Backend: "turbo", PreviewImageURL: "https://img/s1.png", ClipURL: "https://clips/s1.mp4"}},
		Transitions: []*project.Transition{{Style: "cut", DurationSec: 0.2}},
	}}}
	st.TokenUsage = project.TokenUsage{"analysis": map[string]any{"requests": float64(1), "totalTokens": float64(200)}}
	return st
}

func TestSaveLoadRoundTrip(t *testing.T) {
	original := sampleState()
	doc, err := Save(original)
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	data, err := Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}

	loaded, warnings, err := Load(data)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if warnings != (Warnings{}) {
		t.Fatalf("clean round trip must carry no warnings: %+v", warnings)
	}

	if loaded.Stage != original.Stage || loaded.SingerGender != original.SingerGender || loaded.ModelTier != original.ModelTier {
		t.Fatalf("scalar fields lost: %+v", loaded)
	}
	if loaded.Analysis == nil || loaded.Analysis.Title != "Neon Rain" {
		t.Fatalf("analysis lost: %+v", loaded.Analysis)
	}
	if loaded.Brief != original.Brief {
		t.Fatalf("brief lost: %+v", loaded.Brief)
	}
	if loaded.Bibles == nil || len(loaded.Bibles.Characters) != 1 || loaded.Bibles.Characters[0].SourceImages[0] != "https://img/c1.png" {
		t.Fatalf("bibles lost: %+v", loaded.Bibles)
	}
	if loaded.Storyboard == nil || len(loaded.Storyboard.Scenes) != 1 {
		t.Fatalf("storyboard lost: %+v", loaded.Storyboard)
	}
	shot := loaded.Storyboard.Scenes[0].Shots[0]
	if shot.ID != "s1" || shot.ClipURL != "https://clips/s1.mp4" {
		t.Fatalf("shot fields lost: %+v", shot)
	}
	if loaded.Song == nil || string(loaded.Song.Data) != string(original.Song.Data) || loaded.Song.Lyrics != "verse one" {
		t.Fatalf("audio lost: %+v", loaded.Song)
	}
	if loaded.TokenUsage["analysis"].(map[string]any)["totalTokens"].(float64) != 200 {
		t.Fatalf("usage lost: %v", loaded.TokenUsage)
	}
}

func TestSaveWithoutSongOmitsAudio(t *testing.T) {
	st := project.Default()
	doc, err := Save(st)
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if doc.Audio != nil {
		t.Fatalf("no-song save must omit audio, got %+v", doc.Audio)
	}
}

func TestLoadRejectsUnparseableDocument(t *testing.T) {
	if _, _, err := Load([]byte("not json at all")); err == nil {
		t.Fatal("expected a hard failure for an unparseable document")
	}
}

func TestLoadRepairsMissingSceneCollections(t *testing.T) {
	// A scene with no shots and a bogus transitions value must come back
	// with empty lists, not nils or a dropped storyboard.
	raw := `{
		"stage": "storyboard",
		"storyboard": {"scenes": [
			{"id": "sc1", "description": "intro"},
			{"id": "sc2", "shots": "oops", "transitions": 42}
		]}
	}`
	st, warnings, err := Load([]byte(raw))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if warnings.StoryboardDropped {
		t.Fatal("repairable scenes must not drop the storyboard")
	}
	if st.Storyboard == nil || len(st.Storyboard.Scenes) != 2 {
		t.Fatalf("expected 2 scenes, got %+v", st.Storyboard)
	}
	for i, scene := range st.Storyboard.Scenes {
		if scene.Shots == nil || len(scene.Shots) != 0 {
			t.Fatalf("scene %d shots must repair to an empty list: %+v", i, scene.Shots)
		}
		if scene.Transitions == nil || len(scene.Transitions) != 0 {
			t.Fatalf("scene %d transitions must repair to an empty list: %+v", i, scene.Transitions)
		}
	}
}

func TestLoadDropsStoryboardWhenScenesNotAList(t *testing.T) {
	raw := `{"stage": "storyboard", "storyboard": {"scenes": {"bad": true}}}`
	st, warnings, err := Load([]byte(raw))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !warnings.StoryboardDropped || st.Storyboard != nil {
		t.Fatalf("non-list scenes must drop the storyboard: %+v %+v", warnings, st.Storyboard)
	}
}

func TestLoadDropsBiblesWhenEitherListMalformed(t *testing.T) {
	raw := `{"bibles": {"characters": [{"id":"c1","name":"Vee"}], "locations": "nope"}}`
	st, warnings, err := Load([]byte(raw))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !warnings.BiblesDropped || st.Bibles != nil {
		t.Fatalf("a malformed bible list must drop the bibles wholesale: %+v %+v", warnings, st.Bibles)
	}
}

func TestLoadUndecodableAudioWarnsAndContinues(t *testing.T) {
	raw := `{
		"stage": "controls",
		"songAnalysis": {"title": "Kept"},
		"audio": {"name": "a.mp3", "mimeType": "audio/mpeg", "encodedData": "%%%not-base64%%%"}
	}`
	st, warnings, err := Load([]byte(raw))
	if err != nil {
		t.Fatalf("undecodable audio must not fail the load: %v", err)
	}
	if !warnings.AudioMissing {
		t.Fatal("expected AudioMissing warning")
	}
	if st.Analysis == nil || st.Analysis.Title != "Kept" {
		t.Fatalf("rest of the document must still load: %+v", st.Analysis)
	}
}

func TestLoadUnknownEnumsFallBackToDefaults(t *testing.T) {
	raw := `{"stage": "rendering", "gender": "robot", "modelTier": "ultra"}`
	st, _, err := Load([]byte(raw))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if st.Stage != project.StageUpload {
		t.Fatalf("unknown stage must default to upload, got %s", st.Stage)
	}
	if st.SingerGender != project.GenderFemale {
		t.Fatalf("unknown gender must keep the default, got %s", st.SingerGender)
	}
	if st.ModelTier != project.TierStandard {
		t.Fatalf("unknown tier must default to standard, got %s", st.ModelTier)
	}
}

func TestLoadEmptyDocumentYieldsDefaultState(t *testing.T) {
	st, warnings, err := Load([]byte(`{}`))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if warnings != (Warnings{}) {
		t.Fatalf("empty document carries no warnings: %+v", warnings)
	}
	fresh := project.Default()
	if st.Stage != fresh.Stage || st.Bibles != nil || st.Storyboard != nil || st.Song != nil {
		t.Fatalf("empty document must load as the default state: %+v", st)
	}
}

func TestDocumentOmitsEmptyFields(t *testing.T) {
	doc, err := Save(project.Default())
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	data, err := Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	var generic map[string]any
	if err := json.Unmarshal(data, &generic); err != nil {
		t.Fatalf("document is not valid JSON: %v", err)
	}
	for _, key := range []string{"bibles", "storyboard", "audio", "songAnalysis"} {
		if _, ok := generic[key]; ok {
			t.Fatalf("empty %s must be omitted from the document", key)
		}
	}
}
