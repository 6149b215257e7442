package patch

import (
	"context"
	"io/fs"
)

// ApplyToMemory applies steps in order to text and returns the rewritten text
// together with one outcome per step. Steps that match nothing are recorded
// as skipped and never abort the run.
func ApplyToMemory(ctx context.Context, steps []Step, text string, opts Options) (string, []Outcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return apply(ctx, steps, text, opts)
}

// ApplyMemoryManifest parses a manifest and applies it to an in-memory buffer.
func ApplyMemoryManifest(ctx context.Context, manifest []byte, payloads fs.FS, text string, opts Options) (string, []Outcome, error) {
	steps, err := ParseManifest(manifest, payloads)
	if err != nil {
		return "", nil, err
	}
	return ApplyToMemory(ctx, steps, text, opts)
}
