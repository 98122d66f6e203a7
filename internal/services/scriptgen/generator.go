package scriptgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"clipforge/internal/backend"
	"clipforge/internal/project"
	"clipforge/internal/services"
)

const analysisSystemPrompt = `You are a music supervisor. Given song lyrics and metadata,
return JSON: {"title","genre","tempo","duration","mood","themes":[],
"sections":[{"label","start","end","mood"}]}. Times are seconds. JSON only.`

const biblesSystemPrompt = `You are a music-video production designer. Given a song analysis
and a creative brief, return JSON: {"characters":[{"name","description"}],
"locations":[{"name","description"}]}. Two to four of each. Descriptions must be
specific enough to drive consistent image generation. JSON only.`

const storyboardSystemPrompt = `You are a music-video director. Given a song analysis,
visual bibles, and a creative brief, return JSON:
{"scenes":[{"start","end","description","shots":[{"start","end","camera",
"lighting","subject","lyricOverlay","backend"}]}]}. Backend is one of
"turbo","cine","lyric". Shots are 2-8 seconds. JSON only.`

const transitionsSystemPrompt = `You are a music-video editor. Given one scene's shot list,
return JSON: {"transitions":[{"style","durationSec"}|null]}, one entry per shot
(the transition following that shot; the last entry may be null). JSON only.`

const reviewSystemPrompt = `You are an executive producer reviewing a finished music-video
storyboard. Return JSON: {"feedback","continuityReport","score"} where score is
0-100. Flag continuity breaks between adjacent shots. JSON only.`

// Analyze implements services.Analyzer.
func (c *Client) Analyze(ctx context.Context, song *project.Song, gender project.Gender, tier project.Tier) (*project.SongAnalysis, project.TokenUsage, error) {
	if song == nil || strings.TrimSpace(song.Lyrics) == "" {
		return nil, nil, services.Wrap(services.ErrValidation, "analysis", "analyze", "song lyrics required", nil)
	}
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Song file: %s\nSinger gender: %s\nModel tier: %s\n\nLyrics:\n%s\n",
		song.Name, gender, tier, song.Lyrics)

	content, usage, err := c.completeJSON(ctx, "analysis", analysisSystemPrompt, prompt.String())
	if err != nil {
		return nil, nil, services.Wrap(services.ErrExternalTool, "analysis", "analyze", "", err)
	}
	var analysis project.SongAnalysis
	if err := DecodeModelJSON(content, &analysis); err != nil {
		return nil, nil, services.Wrap(services.ErrExternalTool, "analysis", "parse", "", err)
	}
	return &analysis, usage, nil
}

// GenerateBibles implements services.BibleGenerator.
func (c *Client) GenerateBibles(ctx context.Context, analysis *project.SongAnalysis, brief project.CreativeBrief, tier project.Tier) (*project.Bibles, project.TokenUsage, error) {
	if analysis == nil {
		return nil, nil, services.Wrap(services.ErrValidation, "bibles", "generate", "song analysis required", nil)
	}
	content, usage, err := c.completeJSON(ctx, "bibles", biblesSystemPrompt, describeContext(analysis, brief, tier))
	if err != nil {
		return nil, nil, services.Wrap(services.ErrExternalTool, "bibles", "generate", "", err)
	}
	var payload struct {
		Characters []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"characters"`
		Locations []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"locations"`
	}
	if err := DecodeModelJSON(content, &payload); err != nil {
		return nil, nil, services.Wrap(services.ErrExternalTool, "bibles", "parse", "", err)
	}
	bibles := &project.Bibles{}
	for _, entry := range payload.Characters {
		bibles.Characters = append(bibles.Characters, project.BibleEntry{
			ID:          uuid.NewString(),
			Name:        strings.TrimSpace(entry.Name),
			Description: strings.TrimSpace(entry.Description),
		})
	}
	for _, entry := range payload.Locations {
		bibles.Locations = append(bibles.Locations, project.BibleEntry{
			ID:          uuid.NewString(),
			Name:        strings.TrimSpace(entry.Name),
			Description: strings.TrimSpace(entry.Description),
		})
	}
	if len(bibles.Characters) == 0 && len(bibles.Locations) == 0 {
		return nil, nil, services.Wrap(services.ErrExternalTool, "bibles", "generate", "model returned no entries", nil)
	}
	return bibles, usage, nil
}

// GenerateStoryboard implements services.StoryboardGenerator.
func (c *Client) GenerateStoryboard(ctx context.Context, analysis *project.SongAnalysis, bibles *project.Bibles, brief project.CreativeBrief, tier project.Tier) (*project.Storyboard, project.TokenUsage, error) {
	if analysis == nil || bibles == nil {
		return nil, nil, services.Wrap(services.ErrValidation, "storyboard", "generate", "analysis and bibles required", nil)
	}
	var prompt strings.Builder
	prompt.WriteString(describeContext(analysis, brief, tier))
	prompt.WriteString("\nBibles:\n")
	for _, entry := range bibles.Characters {
		fmt.Fprintf(&prompt, "- character %s: %s\n", entry.Name, entry.Description)
	}
	for _, entry := range bibles.Locations {
		fmt.Fprintf(&prompt, "- location %s: %s\n", entry.Name, entry.Description)
	}

	content, usage, err := c.completeJSON(ctx, "storyboard", storyboardSystemPrompt, prompt.String())
	if err != nil {
		return nil, nil, services.Wrap(services.ErrExternalTool, "storyboard", "generate", "", err)
	}
	var payload struct {
		Scenes []struct {
			Start       float64 `json:"start"`
			End         float64 `json:"end"`
			Description string  `json:"description"`
			Shots       []struct {
				Start        float64 `json:"start"`
				End          float64 `json:"end"`
				Camera       string  `json:"camera"`
				Lighting     string  `json:"lighting"`
				Subject      string  `json:"subject"`
				LyricOverlay string  `json:"lyricOverlay"`
				Backend      string  `json:"backend"`
			} `json:"shots"`
		} `json:"scenes"`
	}
	if err := DecodeModelJSON(content, &payload); err != nil {
		return nil, nil, services.Wrap(services.ErrExternalTool, "storyboard", "parse", "", err)
	}
	if len(payload.Scenes) == 0 {
		return nil, nil, services.Wrap(services.ErrExternalTool, "storyboard", "generate", "model returned no scenes", nil)
	}
	storyboard := &project.Storyboard{}
	for _, rawScene := range payload.Scenes {
		scene := project.Scene{
			ID:          uuid.NewString(),
			Start:       rawScene.Start,
			End:         rawScene.End,
			Description: strings.TrimSpace(rawScene.Description),
			Shots:       []project.Shot{},
		}
		for _, rawShot := range rawScene.Shots {
			scene.Shots = append(scene.Shots, project.Shot{
				ID:           uuid.NewString(),
				Start:        rawShot.Start,
				End:          rawShot.End,
				Camera:       strings.TrimSpace(rawShot.Camera),
				Lighting:     strings.TrimSpace(rawShot.Lighting),
				Subject:      strings.TrimSpace(rawShot.Subject),
				LyricOverlay: strings.TrimSpace(rawShot.LyricOverlay),
				Backend:      string(backend.Parse(rawShot.Backend)),
			})
		}
		scene.Transitions = make([]*project.Transition, len(scene.Shots))
		storyboard.Scenes = append(storyboard.Scenes, scene)
	}
	return storyboard, usage, nil
}

// GenerateTransitions implements services.TransitionGenerator.
func (c *Client) GenerateTransitions(ctx context.Context, scene project.Scene, brief project.CreativeBrief, tier project.Tier) ([]*project.Transition, project.TokenUsage, error) {
	if len(scene.Shots) == 0 {
		return nil, nil, nil
	}
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Scene: %s\nPacing: %s\nModel tier: %s\nShots:\n", scene.Description, brief.Pacing, tier)
	for i, shot := range scene.Shots {
		fmt.Fprintf(&prompt, "%d. [%0.1f-%0.1f] %s, camera %s\n", i+1, shot.Start, shot.End, shot.Subject, shot.Camera)
	}

	content, usage, err := c.completeJSON(ctx, "transitions", transitionsSystemPrompt, prompt.String())
	if err != nil {
		return nil, nil, services.Wrap(services.ErrExternalTool, "transitions", "generate", "", err)
	}
	var payload struct {
		Transitions []*struct {
			Style       string  `json:"style"`
			DurationSec float64 `json:"durationSec"`
		} `json:"transitions"`
	}
	if err := DecodeModelJSON(content, &payload); err != nil {
		return nil, nil, services.Wrap(services.ErrExternalTool, "transitions", "parse", "", err)
	}
	transitions := make([]*project.Transition, len(scene.Shots))
	for i := range transitions {
		if i < len(payload.Transitions) && payload.Transitions[i] != nil {
			transitions[i] = &project.Transition{
				Style:       strings.TrimSpace(payload.Transitions[i].Style),
				DurationSec: payload.Transitions[i].DurationSec,
			}
		}
	}
	return transitions, usage, nil
}

// Review implements services.Reviewer.
func (c *Client) Review(ctx context.Context, st project.ProjectState) (*project.ReviewState, project.TokenUsage, error) {
	if st.Storyboard == nil {
		return nil, nil, services.Wrap(services.ErrValidation, "review", "run", "storyboard required", nil)
	}
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Concept: %s\nVisual style: %s\n\nStoryboard:\n", st.Brief.Concept, st.Brief.VisualStyle)
	for si, scene := range st.Storyboard.Scenes {
		fmt.Fprintf(&prompt, "Scene %d [%0.1f-%0.1f]: %s\n", si+1, scene.Start, scene.End, scene.Description)
		for hi, shot := range scene.Shots {
			clip := "no clip"
			if shot.ClipURL != "" {
				clip = "clip ready"
			}
			fmt.Fprintf(&prompt, "  Shot %d [%0.1f-%0.1f]: %s (%s, %s)\n", hi+1, shot.Start, shot.End, shot.Subject, shot.Camera, clip)
		}
	}

	content, usage, err := c.completeJSON(ctx, "review", reviewSystemPrompt, prompt.String())
	if err != nil {
		return nil, nil, services.Wrap(services.ErrExternalTool, "review", "run", "", err)
	}
	var payload struct {
		Feedback         string `json:"feedback"`
		ContinuityReport string `json:"continuityReport"`
		Score            int    `json:"score"`
	}
	if err := DecodeModelJSON(content, &payload); err != nil {
		return nil, nil, services.Wrap(services.ErrExternalTool, "review", "parse", "", err)
	}
	return &project.ReviewState{
		Feedback:         strings.TrimSpace(payload.Feedback),
		ContinuityReport: strings.TrimSpace(payload.ContinuityReport),
		Score:            payload.Score,
	}, usage, nil
}

func describeContext(analysis *project.SongAnalysis, brief project.CreativeBrief, tier project.Tier) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Song: %s (%s, %.0f BPM, %.0fs)\nMood: %s\nThemes: %s\n",
		analysis.Title, analysis.Genre, analysis.Tempo, analysis.Duration,
		analysis.Mood, strings.Join(analysis.Themes, ", "))
	for _, section := range analysis.Sections {
		fmt.Fprintf(&b, "- %s [%0.1f-%0.1f] %s\n", section.Label, section.Start, section.End, section.Mood)
	}
	fmt.Fprintf(&b, "\nBrief:\nConcept: %s\nVisual style: %s\nColor grade: %s\nEra: %s\nInfluences: %s\nPacing: %s\nModel tier: %s\n",
		brief.Concept, brief.VisualStyle, brief.ColorGrade, brief.Era, brief.Influences, brief.Pacing, tier)
	return b.String()
}
