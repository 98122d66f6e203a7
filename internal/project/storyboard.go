package project

// Shot is the atomic unit of the storyboard. It owns three independent
// generation-lifecycle fields: PreviewImageURL (empty=pending, AssetFailed
// sentinel=failed, otherwise ready), the clip-generation pair
// IsGeneratingClip/GenerationProgress, and ClipURL (empty until a clip
// exists). A clip may only be requested once the preview image is ready.
type Shot struct {
	ID               string  `json:"id"`
	Start            float64 `json:"start"`
	End              float64 `json:"end"`
	Camera           string  `json:"camera"`
	Lighting         string  `json:"lighting"`
	Subject          string  `json:"subject"`
	LyricOverlay     string  `json:"lyricOverlay"`
	Backend          string  `json:"backend"`
	LipSync          bool    `json:"lipSync"`
	PreviewImageURL  string  `json:"previewImageUrl"`
	IsGeneratingClip bool    `json:"isGeneratingClip"`
	// GenerationProgress runs 0-100 while a clip job is in flight.
	GenerationProgress int    `json:"generationProgress"`
	ClipURL            string `json:"clipUrl"`
}

// Duration returns the shot length in seconds.
func (s Shot) Duration() float64 {
	d := s.End - s.Start
	if d < 0 {
		return 0
	}
	return d
}

// ImagePending reports whether the preview image has not been generated yet.
func (s Shot) ImagePending() bool {
	return s.PreviewImageURL == ""
}

// ImageFailed reports whether preview-image generation failed.
func (s Shot) ImageFailed() bool {
	return s.PreviewImageURL == AssetFailed
}

// ImageReady reports whether a usable preview image exists.
func (s Shot) ImageReady() bool {
	return !s.ImagePending() && !s.ImageFailed()
}

// ShotPatch carries the shot fields to update; nil fields are left
// untouched. Used for partial per-shot updates addressed by id.
type ShotPatch struct {
	Camera             *string
	Lighting           *string
	Subject            *string
	LyricOverlay       *string
	Backend            *string
	LipSync            *bool
	PreviewImageURL    *string
	IsGeneratingClip   *bool
	GenerationProgress *int
	ClipURL            *string
}

// Apply merges the patch into a copy of the shot.
func (p ShotPatch) Apply(shot Shot) Shot {
	if p.Camera != nil {
		shot.Camera = *p.Camera
	}
	if p.Lighting != nil {
		shot.Lighting = *p.Lighting
	}
	if p.Subject != nil {
		shot.Subject = *p.Subject
	}
	if p.LyricOverlay != nil {
		shot.LyricOverlay = *p.LyricOverlay
	}
	if p.Backend != nil {
		shot.Backend = *p.Backend
	}
	if p.LipSync != nil {
		shot.LipSync = *p.LipSync
	}
	if p.PreviewImageURL != nil {
		shot.PreviewImageURL = *p.PreviewImageURL
	}
	if p.IsGeneratingClip != nil {
		shot.IsGeneratingClip = *p.IsGeneratingClip
	}
	if p.GenerationProgress != nil {
		shot.GenerationProgress = *p.GenerationProgress
	}
	if p.ClipURL != nil {
		shot.ClipURL = *p.ClipURL
	}
	return shot
}

// Transition describes the cut between two adjacent shots.
type Transition struct {
	Style       string  `json:"style"`
	DurationSec float64 `json:"durationSec"`
}

// Scene is an ordered group of shots covering one time range of the song.
// Transitions is index-aligned with the gaps after each shot
// (len(Transitions) == len(Shots), entries may be nil).
type Scene struct {
	ID          string        `json:"id"`
	Start       float64       `json:"start"`
	End         float64       `json:"end"`
	Description string        `json:"description"`
	Shots       []Shot        `json:"shots"`
	Transitions []*Transition `json:"transitions"`
}

// Clone returns a deep copy of the scene.
func (sc Scene) Clone() Scene {
	cp := sc
	cp.Shots = append([]Shot(nil), sc.Shots...)
	cp.Transitions = make([]*Transition, len(sc.Transitions))
	for i, tr := range sc.Transitions {
		if tr != nil {
			trCopy := *tr
			cp.Transitions[i] = &trCopy
		}
	}
	return cp
}

// Storyboard is the ordered scene list. Nil until the plan stage produces it.
type Storyboard struct {
	Scenes []Scene `json:"scenes"`
}

// Clone returns a deep copy of the storyboard.
func (sb *Storyboard) Clone() *Storyboard {
	if sb == nil {
		return nil
	}
	cp := &Storyboard{Scenes: make([]Scene, len(sb.Scenes))}
	for i, scene := range sb.Scenes {
		cp.Scenes[i] = scene.Clone()
	}
	return cp
}

// FindShot locates a shot by id across all scenes. Identity is always by
// stable string id, never by position, because sibling generation may still
// be rewriting the surrounding slice.
func (sb *Storyboard) FindShot(id string) (sceneIdx, shotIdx int, ok bool) {
	if sb == nil || id == "" {
		return 0, 0, false
	}
	for si, scene := range sb.Scenes {
		for hi, shot := range scene.Shots {
			if shot.ID == id {
				return si, hi, true
			}
		}
	}
	return 0, 0, false
}

// AllShots returns every shot in storyboard order.
func (sb *Storyboard) AllShots() []Shot {
	if sb == nil {
		return nil
	}
	var out []Shot
	for _, scene := range sb.Scenes {
		out = append(out, scene.Shots...)
	}
	return out
}

// FindScene locates a scene by id.
func (sb *Storyboard) FindScene(id string) (int, bool) {
	if sb == nil || id == "" {
		return 0, false
	}
	for i, scene := range sb.Scenes {
		if scene.ID == id {
			return i, true
		}
	}
	return 0, false
}
