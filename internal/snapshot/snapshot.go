// Package snapshot converts project state to and from a portable JSON
// document so a production can be resumed later or elsewhere. Saving embeds
// the source audio as base64; loading never trusts the document's shape and
// repairs what it can instead of failing outright.
package snapshot

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"clipforge/internal/project"
)

// Document is the persisted snapshot shape. Every field is optional on
// load; absent fields fall back to the default project state.
type Document struct {
	Stage         string                 `json:"stage,omitempty"`
	Gender        string                 `json:"gender,omitempty"`
	ModelTier     string                 `json:"modelTier,omitempty"`
	SongAnalysis  *project.SongAnalysis  `json:"songAnalysis,omitempty"`
	CreativeBrief *project.CreativeBrief `json:"creativeBrief,omitempty"`
	Bibles        json.RawMessage        `json:"bibles,omitempty"`
	Storyboard    json.RawMessage        `json:"storyboard,omitempty"`
	TokenUsage    project.TokenUsage     `json:"tokenUsage,omitempty"`
	Audio         *AudioDocument         `json:"audio,omitempty"`
	Lyrics        string                 `json:"lyrics,omitempty"`
}

// AudioDocument embeds the source audio as text.
type AudioDocument struct {
	Name        string `json:"name"`
	MimeType    string `json:"mimeType"`
	EncodedData string `json:"encodedData"`
}

// Warnings reports the non-fatal repairs applied during a load.
type Warnings struct {
	// AudioMissing is set when the document carried audio that could not
	// be decoded; the caller must ask for the source file again.
	AudioMissing bool
	// StoryboardDropped is set when storyboard.scenes was not an ordered
	// collection and the storyboard was rejected wholesale.
	StoryboardDropped bool
	// BiblesDropped is set when the bibles object was missing either
	// entry collection and was rejected wholesale.
	BiblesDropped bool
}

// Save captures the resumable portion of the state as a document. A missing
// song is tolerated; the audio block is simply omitted.
func Save(st project.ProjectState) (Document, error) {
	doc := Document{
		Stage:        string(st.Stage),
		Gender:       string(st.SingerGender),
		ModelTier:    string(st.ModelTier),
		SongAnalysis: st.Analysis.Clone(),
		TokenUsage:   st.TokenUsage.Clone(),
	}
	brief := st.Brief
	doc.CreativeBrief = &brief

	if st.Bibles != nil {
		raw, err := json.Marshal(st.Bibles)
		if err != nil {
			return Document{}, fmt.Errorf("encode bibles: %w", err)
		}
		doc.Bibles = raw
	}
	if st.Storyboard != nil {
		raw, err := json.Marshal(st.Storyboard)
		if err != nil {
			return Document{}, fmt.Errorf("encode storyboard: %w", err)
		}
		doc.Storyboard = raw
	}
	if st.Song != nil {
		doc.Lyrics = st.Song.Lyrics
		if len(st.Song.Data) > 0 {
			doc.Audio = &AudioDocument{
				Name:        st.Song.Name,
				MimeType:    st.Song.MimeType,
				EncodedData: base64.StdEncoding.EncodeToString(st.Song.Data),
			}
		}
	}
	return doc, nil
}

// Marshal renders the document as indented JSON.
func Marshal(doc Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// Load reconstructs a complete, internally consistent project state from
// snapshot bytes. Structural damage is repaired field by field per the
// rules below; only an unparseable document is a hard failure.
func Load(data []byte) (project.ProjectState, Warnings, error) {
	var warnings Warnings
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return project.ProjectState{}, warnings, fmt.Errorf("parse snapshot: %w", err)
	}

	st := project.Default()

	if stage, ok := project.ParseStage(doc.Stage); ok {
		st.Stage = stage
	}
	switch project.Gender(doc.Gender) {
	case project.GenderMale:
		st.SingerGender = project.GenderMale
	case project.GenderMixed:
		st.SingerGender = project.GenderMixed
	case project.GenderFemale:
		st.SingerGender = project.GenderFemale
	}
	if doc.ModelTier != "" {
		st.ModelTier = project.ParseTier(doc.ModelTier)
	}
	if doc.SongAnalysis != nil {
		st.Analysis = doc.SongAnalysis.Clone()
	}
	if doc.CreativeBrief != nil {
		st.Brief = *doc.CreativeBrief
	}
	if doc.TokenUsage != nil {
		st.TokenUsage = doc.TokenUsage.Clone()
	}

	bibles, dropped := decodeBibles(doc.Bibles)
	st.Bibles = bibles
	warnings.BiblesDropped = dropped

	storyboard, dropped := decodeStoryboard(doc.Storyboard)
	st.Storyboard = storyboard
	warnings.StoryboardDropped = dropped

	if doc.Audio != nil {
		audio, err := base64.StdEncoding.DecodeString(doc.Audio.EncodedData)
		if err != nil {
			warnings.AudioMissing = true
		} else {
			st.Song = &project.Song{
				Name:     doc.Audio.Name,
				MimeType: doc.Audio.MimeType,
				Data:     audio,
				Lyrics:   doc.Lyrics,
			}
		}
	}
	if st.Song == nil && doc.Lyrics != "" {
		st.Song = &project.Song{Lyrics: doc.Lyrics}
	}

	return st, warnings, nil
}

// decodeBibles accepts the bibles object only when both entry collections
// are ordered lists; anything else rejects the bibles wholesale.
func decodeBibles(raw json.RawMessage) (*project.Bibles, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, false
	}
	var loose struct {
		Characters json.RawMessage `json:"characters"`
		Locations  json.RawMessage `json:"locations"`
	}
	if err := json.Unmarshal(raw, &loose); err != nil {
		return nil, true
	}
	var characters, locations []project.BibleEntry
	if !decodeList(loose.Characters, &characters) {
		return nil, true
	}
	if !decodeList(loose.Locations, &locations) {
		return nil, true
	}
	return &project.Bibles{Characters: characters, Locations: locations}, false
}

// decodeStoryboard rejects the storyboard wholesale when scenes is not an
// ordered collection, but repairs each scene's shots and transitions to
// empty lists when they are missing or malformed.
func decodeStoryboard(raw json.RawMessage) (*project.Storyboard, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, false
	}
	var loose struct {
		Scenes json.RawMessage `json:"scenes"`
	}
	if err := json.Unmarshal(raw, &loose); err != nil {
		return nil, true
	}
	var rawScenes []json.RawMessage
	if len(loose.Scenes) == 0 || json.Unmarshal(loose.Scenes, &rawScenes) != nil {
		return nil, true
	}

	storyboard := &project.Storyboard{Scenes: make([]project.Scene, 0, len(rawScenes))}
	for _, rawScene := range rawScenes {
		var loose struct {
			ID          string          `json:"id"`
			Start       float64         `json:"start"`
			End         float64         `json:"end"`
			Description string          `json:"description"`
			Shots       json.RawMessage `json:"shots"`
			Transitions json.RawMessage `json:"transitions"`
		}
		if err := json.Unmarshal(rawScene, &loose); err != nil {
			continue
		}
		scene := project.Scene{
			ID:          loose.ID,
			Start:       loose.Start,
			End:         loose.End,
			Description: loose.Description,
			Shots:       []project.Shot{},
			Transitions: []*project.Transition{},
		}
		var shots []project.Shot
		if decodeList(loose.Shots, &shots) {
			scene.Shots = shots
		}
		var transitions []*project.Transition
		if decodeList(loose.Transitions, &transitions) {
			scene.Transitions = transitions
		}
		storyboard.Scenes = append(storyboard.Scenes, scene)
	}
	return storyboard, false
}

// decodeList reports whether raw held a well-formed JSON array decodable
// into target. Missing and malformed both return false.
func decodeList[T any](raw json.RawMessage, target *[]T) bool {
	if len(raw) == 0 || string(raw) == "null" {
		return false
	}
	var probe []json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return false
	}
	if *target == nil {
		*target = []T{}
	}
	return true
}
