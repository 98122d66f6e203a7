// Package backend models the closed set of clip-generation backends and the
// deterministic derivation of per-job generation parameters from a backend
// choice and a requested duration.
package backend

import "strings"

// Backend selects the clip-generation model family for one shot.
type Backend string

const (
	// Turbo is the fast preview backend: short frame budget, stylized.
	Turbo Backend = "turbo"
	// Cine is the cinematic backend: larger frame budget, slower.
	Cine Backend = "cine"
	// Lyric is the lip-sync-capable performance backend.
	Lyric Backend = "lyric"
)

// Default is the backend used when a shot does not name one.
const Default = Turbo

// Profile carries the static generation table for one backend.
type Profile struct {
	DefaultFPS      int
	MaxFrames       int
	NegativePrompt  string
	WorkflowHint    string
	SupportsLipSync bool
}

var profiles = map[Backend]Profile{
	Turbo: {
		DefaultFPS:     16,
		MaxFrames:      48,
		NegativePrompt: "text, watermark, logo, extra limbs, deformed hands",
		WorkflowHint:   "img2vid-turbo",
	},
	Cine: {
		DefaultFPS:     24,
		MaxFrames:      192,
		NegativePrompt: "text, watermark, logo, flicker, jump cut, frame blending",
		WorkflowHint:   "img2vid-cine",
	},
	Lyric: {
		DefaultFPS:      24,
		MaxFrames:       144,
		NegativePrompt:  "text, watermark, logo, closed mouth, frozen face",
		WorkflowHint:    "img2vid-lipsync",
		SupportsLipSync: true,
	},
}

// Parse normalizes a backend name, falling back to Default for unknown or
// empty values so stale snapshots stay loadable.
func Parse(value string) Backend {
	switch Backend(strings.ToLower(strings.TrimSpace(value))) {
	case Cine:
		return Cine
	case Lyric:
		return Lyric
	case Turbo:
		return Turbo
	default:
		return Default
	}
}

// Lookup returns the profile for a backend.
func (b Backend) Lookup() Profile {
	if profile, ok := profiles[b]; ok {
		return profile
	}
	return profiles[Default]
}

// minFPS is the floor below which clip motion falls apart.
const minFPS = 8

// ClipParams are the derived generation parameters submitted with a clip job.
type ClipParams struct {
	FrameRate      int
	NegativePrompt string
	WorkflowHint   string
}

// DeriveClipParams computes the submission parameters for a backend and a
// requested duration in seconds. The frame rate is capped so that
// frameRate x duration never exceeds the backend's frame budget, and floored
// at 8 fps. Pure and deterministic.
func DeriveClipParams(b Backend, durationSeconds float64) ClipParams {
	profile := b.Lookup()
	fps := profile.DefaultFPS
	if durationSeconds > 0 {
		budget := int(float64(profile.MaxFrames) / durationSeconds)
		if budget < fps {
			fps = budget
		}
	}
	if fps < minFPS {
		fps = minFPS
	}
	return ClipParams{
		FrameRate:      fps,
		NegativePrompt: profile.NegativePrompt,
		WorkflowHint:   profile.WorkflowHint,
	}
}
