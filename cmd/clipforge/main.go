// Command clipforge turns one song into a generated music video: it
// analyzes the track, plans characters and locations, storyboards the
// scenes, renders preview images and clips, and journals progress locally
// so an interrupted production can resume.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "clipforge: %v\n", err)
		os.Exit(1)
	}
}
