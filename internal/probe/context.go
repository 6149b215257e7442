package probe

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
)

// Context inspects a project directory. Tests supply fixture directories and a
// custom command lookup so probes do not depend on the host PATH.
type Context struct {
	root     string
	lookPath func(string) (string, error)
}

// NewContext constructs a Context rooted at the provided path. Commands are
// resolved using exec.LookPath by default.
func NewContext(root string) *Context {
	return &Context{
		root:     root,
		lookPath: exec.LookPath,
	}
}

// NewContextWithLookPath overrides the command lookup used by CommandExists.
func NewContextWithLookPath(root string, lookPath func(string) (string, error)) *Context {
	ctx := NewContext(root)
	if lookPath != nil {
		ctx.lookPath = lookPath
	}
	return ctx
}

// Root returns the directory that probes inspect.
func (c *Context) Root() string {
	return c.root
}

// HasFile reports whether a regular file exists relative to the root.
func (c *Context) HasFile(relPath string) bool {
	if relPath == "" {
		return false
	}
	info, err := os.Stat(filepath.Join(c.root, relPath))
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// ReadFile loads a file relative to the root.
func (c *Context) ReadFile(relPath string) ([]byte, error) {
	if relPath == "" {
		return nil, errors.New("path must be provided")
	}
	return os.ReadFile(filepath.Join(c.root, relPath))
}

// CommandExists reports whether a command is available on PATH.
func (c *Context) CommandExists(name string) bool {
	if name == "" {
		return false
	}
	_, err := c.lookPath(name)
	return err == nil
}

// FindRoot walks up from the directory holding target and returns the first
// directory containing a package.json, or "" when there is none.
func FindRoot(target string) string {
	abs, err := filepath.Abs(target)
	if err != nil {
		return ""
	}
	dir := filepath.Dir(abs)
	for {
		info, err := os.Stat(filepath.Join(dir, "package.json"))
		if err == nil && !info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
