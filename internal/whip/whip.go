// Package whip holds the built-in step set that replaces the typed "抽" easter
// egg in the chat screen with a floating whip button.
package whip

import (
	"embed"
	"fmt"
	"io/fs"
	"sync"

	"github.com/asynkron/whippatch/pkg/patch"
)

// DefaultTarget is the file patched when no path is given.
const DefaultTarget = "src/App.jsx"

//go:embed steps
var stepsFS embed.FS

var (
	steps     []patch.Step
	stepsErr  error
	stepsOnce sync.Once
)

// Steps returns the ordered step list. The manifest is embedded at build time
// and parsed once; callers receive their own copy of the slice.
func Steps() ([]patch.Step, error) {
	stepsOnce.Do(func() {
		payloads, err := fs.Sub(stepsFS, "steps")
		if err != nil {
			stepsErr = fmt.Errorf("whip: open embedded steps: %w", err)
			return
		}
		manifest, err := fs.ReadFile(payloads, "manifest.json")
		if err != nil {
			stepsErr = fmt.Errorf("whip: read manifest: %w", err)
			return
		}
		steps, stepsErr = patch.ParseManifest(manifest, payloads)
	})
	if stepsErr != nil {
		return nil, stepsErr
	}
	return append([]patch.Step(nil), steps...), nil
}
