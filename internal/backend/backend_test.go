package backend

import "testing"

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want Backend
	}{
		{"turbo", Turbo},
		{"CINE", Cine},
		{" lyric ", Lyric},
		{"", Default},
		{"unknown-model", Default},
	}
	for _, tc := range cases {
		if got := Parse(tc.in); got != tc.want {
			t.Errorf("Parse(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestDeriveClipParamsFrameRate(t *testing.T) {
	cases := []struct {
		name     string
		backend  Backend
		duration float64
		wantFPS  int
	}{
		// Turbo: 48-frame budget, 16 fps default.
		{"turbo short shot keeps default", Turbo, 2, 16},
		{"turbo mid shot capped by budget", Turbo, 4, 12},
		{"turbo long shot floored", Turbo, 8, 8},
		{"turbo very long shot stays at floor", Turbo, 30, 8},
		// Cine: 192-frame budget, 24 fps default.
		{"cine default", Cine, 6, 24},
		{"cine capped", Cine, 10, 19},
		// Lyric: 144-frame budget, 24 fps default.
		{"lyric default", Lyric, 4, 24},
		{"lyric capped", Lyric, 8, 18},
		// Zero duration cannot cap.
		{"zero duration keeps default", Turbo, 0, 16},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := DeriveClipParams(tc.backend, tc.duration)
			if params.FrameRate != tc.wantFPS {
				t.Fatalf("DeriveClipParams(%s, %v).FrameRate = %d, want %d",
					tc.backend, tc.duration, params.FrameRate, tc.wantFPS)
			}
		})
	}
}

func TestDeriveClipParamsIsDeterministic(t *testing.T) {
	a := DeriveClipParams(Cine, 7.5)
	b := DeriveClipParams(Cine, 7.5)
	if a != b {
		t.Fatalf("derivation must be pure: %+v vs %+v", a, b)
	}
	if a.NegativePrompt == "" || a.WorkflowHint == "" {
		t.Fatalf("profile fields must carry through: %+v", a)
	}
}

func TestLookupUnknownBackendFallsBack(t *testing.T) {
	profile := Backend("bogus").Lookup()
	if profile != profiles[Default] {
		t.Fatalf("unknown backend must use the default profile, got %+v", profile)
	}
}

func TestOnlyLyricSupportsLipSync(t *testing.T) {
	if Turbo.Lookup().SupportsLipSync || Cine.Lookup().SupportsLipSync {
		t.Fatal("lip sync must be lyric-only")
	}
	if !Lyric.Lookup().SupportsLipSync {
		t.Fatal("lyric must support lip sync")
	}
}
