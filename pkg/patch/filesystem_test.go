package patch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

var greetSteps = []Step{{Name: "greet", Kind: MatchLiteral, Match: "one", Replace: "two"}}

func TestApplyFilesystemUpdatesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "foo.txt")
	if err := os.WriteFile(path, []byte("one\n"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	result, err := ApplyFilesystem(context.Background(), path, greetSteps, FilesystemOptions{})
	if err != nil {
		t.Fatalf("ApplyFilesystem returned error: %v", err)
	}
	if !result.Changed || !result.Written {
		t.Fatalf("unexpected result: %#v", result)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	if string(content) != "two\n" {
		t.Fatalf("unexpected content: %q", content)
	}
}

func TestApplyFilesystemDryRunLeavesFileAlone(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "foo.txt")
	if err := os.WriteFile(path, []byte("one\n"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	result, err := ApplyFilesystem(context.Background(), path, greetSteps, FilesystemOptions{DryRun: true})
	if err != nil {
		t.Fatalf("ApplyFilesystem returned error: %v", err)
	}
	if result.Written || result.Patched != "two\n" {
		t.Fatalf("unexpected result: %#v", result)
	}
	content, _ := os.ReadFile(path)
	if string(content) != "one\n" {
		t.Fatalf("dry run modified the file: %q", content)
	}
}

func TestApplyFilesystemMissingFileIsIOError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "missing.txt")

	_, err := ApplyFilesystem(context.Background(), path, greetSteps, FilesystemOptions{})
	if !IsIOError(err) {
		t.Fatalf("expected IO error, got %v", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Fatalf("no file should have been written, stat error: %v", statErr)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected empty directory, found %d entries", len(entries))
	}
}

func TestApplyFilesystemRejectsDirectory(t *testing.T) {
	t.Parallel()

	_, err := ApplyFilesystem(context.Background(), t.TempDir(), greetSteps, FilesystemOptions{})
	if !IsIOError(err) {
		t.Fatalf("expected IO error for directory target, got %v", err)
	}
}

func TestApplyFilesystemNoChangeSkipsWrite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "foo.txt")
	if err := os.WriteFile(path, []byte("zero\n"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	result, err := ApplyFilesystem(context.Background(), path, greetSteps, FilesystemOptions{Backup: true})
	if err != nil {
		t.Fatalf("ApplyFilesystem returned error: %v", err)
	}
	if result.Changed || result.Written || result.BackupPath != "" {
		t.Fatalf("unexpected result: %#v", result)
	}
	if result.Outcomes[0].Status != StatusNoMatch {
		t.Fatalf("expected no-match outcome, got %#v", result.Outcomes)
	}
}

func TestApplyFilesystemKeepsBackup(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "foo.txt")
	if err := os.WriteFile(path, []byte("one\n"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	result, err := ApplyFilesystem(context.Background(), path, greetSteps, FilesystemOptions{Backup: true})
	if err != nil {
		t.Fatalf("ApplyFilesystem returned error: %v", err)
	}
	if result.BackupPath != path+BackupSuffix {
		t.Fatalf("unexpected backup path %q", result.BackupPath)
	}
	backup, err := os.ReadFile(result.BackupPath)
	if err != nil {
		t.Fatalf("failed to read backup: %v", err)
	}
	if string(backup) != "one\n" {
		t.Fatalf("unexpected backup content: %q", backup)
	}
}

func TestApplyFilesystemBackupKeepsSourceMode(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not meaningful on windows")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "secret.txt")
	if err := os.WriteFile(path, []byte("one\n"), 0o600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		t.Fatalf("failed to chmod fixture: %v", err)
	}
	// A stale backup with looser permissions must not keep its mode.
	if err := os.WriteFile(path+BackupSuffix, []byte("stale\n"), 0o644); err != nil {
		t.Fatalf("failed to write stale backup: %v", err)
	}
	if err := os.Chmod(path+BackupSuffix, 0o644); err != nil {
		t.Fatalf("failed to chmod stale backup: %v", err)
	}

	result, err := ApplyFilesystem(context.Background(), path, greetSteps, FilesystemOptions{Backup: true})
	if err != nil {
		t.Fatalf("ApplyFilesystem returned error: %v", err)
	}
	info, err := os.Stat(result.BackupPath)
	if err != nil {
		t.Fatalf("failed to stat backup: %v", err)
	}
	if got := info.Mode().Perm(); got != 0o600 {
		t.Fatalf("expected backup mode 0600, got %o", got)
	}
	backup, err := os.ReadFile(result.BackupPath)
	if err != nil {
		t.Fatalf("failed to read backup: %v", err)
	}
	if string(backup) != "one\n" {
		t.Fatalf("unexpected backup content: %q", backup)
	}
}

func TestSavePreservesModeAndCleansUp(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not meaningful on windows")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "script.sh")
	if err := os.WriteFile(path, []byte("echo one\n"), 0o755); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	if err := os.Chmod(path, 0o755); err != nil {
		t.Fatalf("failed to chmod fixture: %v", err)
	}

	if err := Save(path, "echo two\n"); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("failed to stat file: %v", err)
	}
	if info.Mode()&fs.ModePerm != 0o755 {
		t.Fatalf("expected mode 0755, got %v", info.Mode())
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to list dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the target file, found %d entries", len(entries))
	}
}

func TestSaveFailsOnMissingDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nope", "file.txt")
	if err := Save(path, "x"); !IsIOError(err) {
		t.Fatalf("expected IO error, got %v", err)
	}
}
