package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrBinaryNotFound is returned when none of the requested tools can be located.
var ErrBinaryNotFound = errors.New("binary not found")

// Executor runs external commands. Implementations own argument quoting,
// process spawning, timeouts and output capture.
type Executor interface {
	// ExecuteCommand runs name with args and reports whether it exited cleanly.
	ExecuteCommand(ctx context.Context, name string, args ...string) bool
	// Output runs name with args and returns its combined output.
	Output(ctx context.Context, name string, args ...string) (string, error)
}

// ErrorReporter receives build errors as plugins emit them.
type ErrorReporter interface {
	ReportError(ctx context.Context, e Error) error
}

// MetaStore persists scalar build metadata.
type MetaStore interface {
	StoreMeta(ctx context.Context, buildID, key string, value int) error
}

// Builder is the facade a plugin uses to reach its build environment.
type Builder struct {
	Build      *Build
	BuildPath  string   // project checkout root
	Ignore     []string // pipeline-wide ignore defaults, relative to BuildPath
	BinaryPath string   // extra directory searched first by FindBinary

	Log    Logger
	Exec   Executor
	Errors ErrorReporter
	Meta   MetaStore
}

// WorkingDirectory resolves a plugin's target directory. Relative paths are
// taken from the build path; an empty directory means the build path itself.
func (b *Builder) WorkingDirectory(directory string) string {
	if directory == "" {
		return filepath.Clean(b.BuildPath)
	}
	directory = b.Interpolate(directory)
	if filepath.IsAbs(directory) {
		return filepath.Clean(directory)
	}
	return filepath.Join(b.BuildPath, directory)
}

// Interpolate substitutes build variables in s.
func (b *Builder) Interpolate(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var id, commit, branch string
	if b.Build != nil {
		id, commit, branch = b.Build.ID, b.Build.Commit, b.Build.Branch
	}
	return strings.NewReplacer(
		"%BUILD_PATH%", b.BuildPath,
		"%BUILD%", id,
		"%COMMIT_ID%", commit,
		"%BRANCH%", branch,
	).Replace(s)
}

// RelativeIgnores rebases ignore paths (relative to the build path, or
// absolute) onto baseDir. Paths that are not strictly below baseDir cannot
// be excluded by a tool scanning baseDir and are dropped.
func (b *Builder) RelativeIgnores(baseDir string, ignores []string) []string {
	out := make([]string, 0, len(ignores))
	for _, item := range ignores {
		trimmed := strings.TrimRight(item, "/"+string(filepath.Separator))
		if trimmed == "" {
			b.logDebug(fmt.Sprintf("ignore %q: empty path, skipped", item))
			continue
		}

		abs := trimmed
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(b.BuildPath, trimmed)
		}
		rel, err := filepath.Rel(baseDir, abs)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			b.logDebug(fmt.Sprintf("ignore %q: not below %s, skipped", item, baseDir))
			continue
		}
		out = append(out, rel)
	}
	return out
}

// FindBinary returns the first of names found in BinaryPath, the project's
// vendor/bin, or $PATH.
func (b *Builder) FindBinary(names ...string) (string, error) {
	var dirs []string
	if b.BinaryPath != "" {
		dirs = append(dirs, b.BinaryPath)
	}
	dirs = append(dirs, filepath.Join(b.BuildPath, "vendor", "bin"))

	for _, name := range names {
		for _, dir := range dirs {
			candidate := filepath.Join(dir, name)
			if isExecutable(candidate) {
				b.logDebug("found binary: " + candidate)
				return candidate, nil
			}
		}
		if p, err := exec.LookPath(name); err == nil {
			b.logDebug("found binary: " + p)
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrBinaryNotFound, strings.Join(names, ", "))
}

// ExecuteCommand runs a command through the configured Executor.
func (b *Builder) ExecuteCommand(ctx context.Context, name string, args ...string) bool {
	return b.Exec.ExecuteCommand(ctx, name, args...)
}

// CommandOutput runs a command and returns its output.
func (b *Builder) CommandOutput(ctx context.Context, name string, args ...string) (string, error) {
	return b.Exec.Output(ctx, name, args...)
}

// ReportError stamps e with the current build and forwards it.
func (b *Builder) ReportError(ctx context.Context, e Error) error {
	if b.Build != nil {
		e.BuildID = b.Build.ID
	}
	return b.Errors.ReportError(ctx, e)
}

// StoreMeta persists a metric for the current build.
func (b *Builder) StoreMeta(ctx context.Context, key string, value int) error {
	var id string
	if b.Build != nil {
		id = b.Build.ID
	}
	return b.Meta.StoreMeta(ctx, id, key, value)
}

func (b *Builder) logDebug(msg string) {
	if b.Log != nil {
		b.Log.LogDebug(msg)
	}
}

func isExecutable(path string) bool {
	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		return false
	}
	return fi.Mode()&0o111 != 0
}
