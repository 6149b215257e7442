package patch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/asynkron/whippatch/internal/core/schema"
)

// MatcherKind identifies how a step locates the text it rewrites.
type MatcherKind string

const (
	// MatchLiteral matches an exact substring.
	MatchLiteral MatcherKind = "literal"
	// MatchPattern matches a regular expression.
	MatchPattern MatcherKind = "pattern"
)

// Cardinality controls how many matches a step rewrites.
type Cardinality string

const (
	// CardinalityFirst rewrites the leftmost match only.
	CardinalityFirst Cardinality = "first"
	// CardinalityAll rewrites every non-overlapping match.
	CardinalityAll Cardinality = "all"
)

// Status describes what happened when a step was applied.
type Status string

const (
	StatusApplied        Status = "applied"
	StatusNoMatch        Status = "skipped-no-match"
	StatusAlreadyApplied Status = "skipped-already-applied"
)

// Error codes carried by *Error.
const (
	CodeIO              = "IO_ERROR"
	CodeInvalidStep     = "INVALID_STEP"
	CodeInvalidManifest = "INVALID_MANIFEST"
	CodeCancelled       = "CANCELLED"
)

// Step is one ordered find-and-replace operation.
//
// The exported fields make it possible to declare steps in Go or decode them
// from a manifest.
type Step struct {
	Name        string
	Summary     string
	Kind        MatcherKind
	Match       string
	Replace     string
	Expand      bool
	Multiline   bool
	Cardinality Cardinality
	Guard       bool
	Notes       []string
	// ReportOrder positions the step's summary in the change list. Zero
	// falls back to the step's position.
	ReportOrder int
}

// Outcome records how a single step was applied.
type Outcome struct {
	Number  int    `json:"number"`
	Step    string `json:"step"`
	Status  Status `json:"status"`
	Matches int    `json:"matches"`
}

// Applied reports whether the step rewrote the buffer.
func (o Outcome) Applied() bool {
	return o.Status == StatusApplied
}

// Error represents a structured failure while loading, applying or saving a
// patch. It satisfies the error interface so it can be returned directly
// from Apply* helpers.
type Error struct {
	Message    string
	Code       string
	Path       string
	Outcomes   []Outcome
	FailedStep string
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return "patch error"
}

// Unwrap exposes the underlying cause, e.g. fs.ErrNotExist.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsIOError reports whether err is a filesystem failure.
func IsIOError(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Code == CodeIO
}

// Options configure how steps are applied for both filesystem and in-memory
// operations.
type Options struct {
	// Guard skips steps flagged Guard when their replacement text is already
	// present verbatim.
	Guard bool
}

// FilesystemOptions augments Options with write behaviour.
type FilesystemOptions struct {
	Options
	DryRun bool
	Backup bool
}

type manifest struct {
	Steps []manifestStep `json:"steps"`
}

type manifestStep struct {
	Name        string   `json:"name"`
	Summary     string   `json:"summary"`
	Kind        string   `json:"kind"`
	Match       string   `json:"match"`
	Replace     *string  `json:"replace"`
	ReplaceFile string   `json:"replace_file"`
	Append      string   `json:"append"`
	Expand      bool     `json:"expand"`
	Multiline   bool     `json:"multiline"`
	Cardinality string   `json:"cardinality"`
	Guard       bool     `json:"guard"`
	Notes       []string `json:"notes"`
	ReportOrder int      `json:"report_order"`
}

var (
	manifestSchemaLoader     gojsonschema.JSONLoader
	manifestSchemaLoaderErr  error
	manifestSchemaLoaderOnce sync.Once
)

// ParseManifest converts a JSON step manifest into a slice of steps. Payloads
// referenced through "replace_file" are read from payloads, which may be nil
// when the manifest carries every replacement inline.
//
// "append" is concatenated after the replacement payload. Insertion steps use
// it to re-emit their anchor so the payload lands immediately before it.
func ParseManifest(data []byte, payloads fs.FS) ([]Step, error) {
	if err := validateManifest(data); err != nil {
		return nil, err
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &Error{Message: fmt.Sprintf("invalid manifest: %v", err), Code: CodeInvalidManifest, Err: err}
	}

	steps := make([]Step, 0, len(m.Steps))
	seen := make(map[string]bool, len(m.Steps))
	for _, raw := range m.Steps {
		name := strings.TrimSpace(raw.Name)
		if seen[name] {
			return nil, &Error{Message: fmt.Sprintf("duplicate step name %q", name), Code: CodeInvalidManifest}
		}
		seen[name] = true

		replacement, err := resolveReplacement(raw, payloads)
		if err != nil {
			return nil, err
		}
		cardinality := Cardinality(raw.Cardinality)
		if cardinality == "" {
			cardinality = CardinalityAll
		}
		steps = append(steps, Step{
			Name:        name,
			Summary:     raw.Summary,
			Kind:        MatcherKind(raw.Kind),
			Match:       raw.Match,
			Replace:     replacement + raw.Append,
			Expand:      raw.Expand,
			Multiline:   raw.Multiline,
			Cardinality: cardinality,
			Guard:       raw.Guard,
			Notes:       raw.Notes,
			ReportOrder: raw.ReportOrder,
		})
	}
	return steps, nil
}

func resolveReplacement(raw manifestStep, payloads fs.FS) (string, error) {
	switch {
	case raw.Replace != nil && raw.ReplaceFile != "":
		return "", &Error{Message: fmt.Sprintf("step %s sets both replace and replace_file", raw.Name), Code: CodeInvalidManifest}
	case raw.Replace != nil:
		return *raw.Replace, nil
	case raw.ReplaceFile != "":
		if payloads == nil {
			return "", &Error{Message: fmt.Sprintf("step %s references %s but no payloads were provided", raw.Name, raw.ReplaceFile), Code: CodeInvalidManifest}
		}
		content, err := fs.ReadFile(payloads, raw.ReplaceFile)
		if err != nil {
			return "", &Error{Message: fmt.Sprintf("step %s: failed to read payload %s: %v", raw.Name, raw.ReplaceFile, err), Code: CodeInvalidManifest, Err: err}
		}
		return string(content), nil
	default:
		return "", nil
	}
}

func validateManifest(data []byte) error {
	loader, err := loadManifestSchema()
	if err != nil {
		return &Error{Message: fmt.Sprintf("load manifest schema: %v", err), Code: CodeInvalidManifest, Err: err}
	}

	result, err := gojsonschema.Validate(loader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return &Error{Message: fmt.Sprintf("invalid manifest: %v", err), Code: CodeInvalidManifest, Err: err}
	}
	if result.Valid() {
		return nil
	}

	issues := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		issues = append(issues, desc.String())
	}
	return &Error{Message: "manifest failed schema validation: " + strings.Join(issues, "; "), Code: CodeInvalidManifest}
}

func loadManifestSchema() (gojsonschema.JSONLoader, error) {
	manifestSchemaLoaderOnce.Do(func() {
		schemaMap, err := schema.ManifestSchema()
		if err != nil {
			manifestSchemaLoaderErr = err
			return
		}
		manifestSchemaLoader = gojsonschema.NewGoLoader(schemaMap)
	})
	if manifestSchemaLoaderErr != nil {
		return nil, manifestSchemaLoaderErr
	}
	return manifestSchemaLoader, nil
}
