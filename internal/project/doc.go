// Package project defines the canonical state of one music-video production:
// the song, its analysis, the creative brief, the visual bibles, the storyboard
// with per-shot generation lifecycles, token accounting, and post-production
// task flags.
//
// ProjectState is owned exclusively by the workflow manager and mutated only
// through internal/state events. Everything here is plain data plus
// copy/lookup helpers so the transition function can stay pure.
package project
