package patch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// BackupSuffix is appended to the target path when FilesystemOptions.Backup is set.
const BackupSuffix = ".orig"

// Result describes the outcome of patching a file on disk.
type Result struct {
	Path       string
	Changed    bool
	Written    bool
	BackupPath string
	Original   string
	Patched    string
	Outcomes   []Outcome
}

// ApplyFilesystem loads path, applies steps in order and saves the result in
// place. Nothing is written when the run is a dry run or when no step changed
// the text. Load failures never lead to a write.
func ApplyFilesystem(ctx context.Context, path string, steps []Step, opts FilesystemOptions) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	original, err := Load(path)
	if err != nil {
		return Result{Path: path}, err
	}

	patched, outcomes, err := apply(ctx, steps, original, opts.Options)
	if err != nil {
		var pe *Error
		if errors.As(err, &pe) && pe.Path == "" {
			pe.Path = path
		}
		return Result{Path: path, Original: original}, err
	}

	result := Result{
		Path:     path,
		Changed:  patched != original,
		Original: original,
		Patched:  patched,
		Outcomes: outcomes,
	}
	if !result.Changed || opts.DryRun {
		return result, nil
	}
	if err := Commit(&result, opts.Backup); err != nil {
		return result, err
	}
	return result, nil
}

// ApplyFilesystemManifest parses a manifest and applies it to path.
func ApplyFilesystemManifest(ctx context.Context, path string, manifest []byte, payloads fs.FS, opts FilesystemOptions) (Result, error) {
	steps, err := ParseManifest(manifest, payloads)
	if err != nil {
		return Result{Path: path}, err
	}
	return ApplyFilesystem(ctx, path, steps, opts)
}

// Commit writes a previously computed result to disk, optionally keeping a
// copy of the original content next to the target.
func Commit(result *Result, backup bool) error {
	if result == nil {
		return errors.New("nil result")
	}
	if backup {
		backupPath := result.Path + BackupSuffix
		perm := fs.FileMode(0o644)
		if info, err := os.Stat(result.Path); err == nil {
			perm = keptMode(info)
		}
		if err := save(backupPath, result.Original, perm, true); err != nil {
			return err
		}
		result.BackupPath = backupPath
	}
	if err := Save(result.Path, result.Patched); err != nil {
		return err
	}
	result.Written = true
	return nil
}

// Load reads the full content of path.
func Load(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", &Error{Message: "invalid target path", Code: CodeIO}
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &Error{Message: fmt.Sprintf("failed to read %s: file does not exist", path), Code: CodeIO, Path: path, Err: err}
		}
		return "", &Error{Message: fmt.Sprintf("failed to stat %s: %v", path, err), Code: CodeIO, Path: path, Err: err}
	}
	if info.IsDir() {
		return "", &Error{Message: fmt.Sprintf("cannot patch directory %s", path), Code: CodeIO, Path: path}
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", &Error{Message: fmt.Sprintf("failed to read %s: %v", path, err), Code: CodeIO, Path: path, Err: err}
	}
	return string(content), nil
}

// Save replaces path with text. The content is written to a temporary file in
// the same directory and renamed over the target, so readers never observe a
// partially written file. Permission bits of an existing target are kept.
func Save(path, text string) error {
	return save(path, text, 0o644, false)
}

// save writes text atomically. An existing target keeps its mode unless force
// is set, in which case perm always applies.
func save(path, text string, perm fs.FileMode, force bool) error {
	target := path
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		target = resolved
	}

	if info, err := os.Stat(target); err == nil {
		if info.IsDir() {
			return &Error{Message: fmt.Sprintf("cannot write directory %s", path), Code: CodeIO, Path: path}
		}
		if !force {
			perm = keptMode(info)
		}
	}

	dir := filepath.Dir(target)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".tmp-*")
	if err != nil {
		return &Error{Message: fmt.Sprintf("failed to write %s: %v", path, err), Code: CodeIO, Path: path, Err: err}
	}
	tmpPath := tmp.Name()
	cleanup := func(cause error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return &Error{Message: fmt.Sprintf("failed to write %s: %v", path, cause), Code: CodeIO, Path: path, Err: cause}
	}

	if _, err := tmp.WriteString(text); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return &Error{Message: fmt.Sprintf("failed to write %s: %v", path, err), Code: CodeIO, Path: path, Err: err}
	}
	if err := os.Rename(tmpPath, target); err != nil {
		_ = os.Remove(tmpPath)
		return &Error{Message: fmt.Sprintf("failed to replace %s: %v", path, err), Code: CodeIO, Path: path, Err: err}
	}
	return nil
}

func keptMode(info fs.FileInfo) fs.FileMode {
	return info.Mode() & (fs.ModePerm | fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky)
}
