// Package probe inspects the JavaScript project around a patch target so the
// CLI can note when a file does not look like it belongs to a React app.
package probe

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Result captures what was detected about the project root.
type Result struct {
	Root            string
	PackageName     string
	ReactVersion    string
	Indicators      []string
	PackageManagers []string
}

// React reports whether the package declares a react dependency.
func (r Result) React() bool {
	return r.ReactVersion != ""
}

type packageJSON struct {
	Name            string            `json:"name"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

var lockfiles = []struct {
	file    string
	manager string
}{
	{"package-lock.json", "npm"},
	{"yarn.lock", "yarn"},
	{"pnpm-lock.yaml", "pnpm"},
	{"bun.lockb", "bun"},
}

var buildConfigs = []string{
	"vite.config.js",
	"vite.config.ts",
	"next.config.js",
	"tsconfig.json",
	"jsconfig.json",
}

// Run reads package.json under the context root. It returns nil when the root
// holds no package.json.
func Run(ctx *Context) (*Result, error) {
	if !ctx.HasFile("package.json") {
		return nil, nil
	}
	data, err := ctx.ReadFile("package.json")
	if err != nil {
		return nil, err
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("parse package.json: %w", err)
	}

	result := &Result{
		Root:        ctx.Root(),
		PackageName: pkg.Name,
		Indicators:  []string{"package.json"},
	}
	if v, ok := pkg.Dependencies["react"]; ok {
		result.ReactVersion = v
	} else if v, ok := pkg.DevDependencies["react"]; ok {
		result.ReactVersion = v
	}

	for _, name := range buildConfigs {
		if ctx.HasFile(name) {
			result.Indicators = append(result.Indicators, name)
		}
	}
	for _, lf := range lockfiles {
		if ctx.HasFile(lf.file) {
			result.Indicators = append(result.Indicators, lf.file)
			result.PackageManagers = append(result.PackageManagers, lf.manager)
		}
	}
	if len(result.PackageManagers) == 0 && ctx.CommandExists("npm") {
		result.PackageManagers = append(result.PackageManagers, "npm")
	}
	return result, nil
}

// Summary renders a one-line description of the result.
func (r Result) Summary() string {
	name := r.PackageName
	if name == "" {
		name = "(unnamed)"
	}
	kind := "Node project"
	if r.React() {
		kind = "React " + r.ReactVersion + " project"
	}
	line := fmt.Sprintf("%s %s at %s", kind, name, r.Root)
	if len(r.PackageManagers) > 0 {
		line += " (" + strings.Join(r.PackageManagers, ", ") + ")"
	}
	return line
}
