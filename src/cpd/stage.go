// Package cpd runs the PHP copy/paste detector (phpcpd) as a pipeline
// plugin: ignore rules become exclusion flags, the PMD report is parsed,
// and every duplicated block becomes build errors plus a warnings metric.
package cpd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sofmeright/cpdstage/src/build"
	"github.com/sofmeright/cpdstage/src/stage"
)

// PluginName identifies the plugin in config, build errors and metadata.
const PluginName = "php_cpd"

// MetricKey is the build metadata key holding the duplication count.
const MetricKey = PluginName + "-warnings"

const toolName = "phpcpd"

func init() {
	stage.Register(stage.Definition{
		Name: PluginName,
		New: func(b *build.Builder, raw map[string]any) (stage.Plugin, error) {
			opts, err := DecodeOptions(raw)
			if err != nil {
				return nil, err
			}
			return New(b, opts)
		},
		CanExecute: CanExecuteOnStage,
	})
}

// CanExecuteOnStage reports whether the detector runs in st. Only the test phase.
func CanExecuteOnStage(st build.Stage) bool {
	return st == build.StageTest
}

// State tracks a stage run.
type State int

const (
	StateIdle State = iota
	StateDirectoryResolved
	StateInvoked
	StateParsed
	StatePersisted
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDirectoryResolved:
		return "directory-resolved"
	case StateInvoked:
		return "invoked"
	case StateParsed:
		return "parsed"
	case StatePersisted:
		return "persisted"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Stage is one configured detector run for a build.
type Stage struct {
	builder    *build.Builder
	directory  string
	executable string
	ignore     []string // relative to directory
	version    string
	state      State
}

// New resolves the working directory, tool binary and ignore list.
func New(b *build.Builder, opts Options) (*Stage, error) {
	s := &Stage{builder: b, version: opts.Version}

	if opts.Path != "" && opts.Directory == "" {
		b.Log.LogWarning(`[DEPRECATED] Option "path" is deprecated and will be removed (use option "directory" instead)!`)
		opts.Directory = opts.Path
	}
	s.directory = b.WorkingDirectory(opts.Directory)
	s.state = StateDirectoryResolved
	b.Log.LogDebug("Directory: " + s.directory)

	bin := toolName
	if opts.Binary != "" {
		bin = opts.Binary
	}
	exe, err := b.FindBinary(bin)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", PluginName, err)
	}
	s.executable = exe

	ignore := append([]string(nil), b.Ignore...)
	if opts.Ignore != nil {
		ignore = append(ignore, opts.Ignore...)
	}
	s.ignore = b.RelativeIgnores(s.directory, ignore)

	return s, nil
}

// State returns where the last Run got to.
func (s *Stage) State() State { return s.state }

// Directory is the resolved scan target.
func (s *Stage) Directory() string { return s.directory }

// Run executes the detector and reports its findings. The result mirrors
// the tool's exit status; a report that cannot be parsed always fails the
// stage with a *MalformedReportError. The report file is removed on every
// path out.
func (s *Stage) Run(ctx context.Context) (bool, error) {
	if s.version != "" {
		s.checkVersion(ctx, s.version)
	}

	ex := ResolveExclusions(s.directory, s.ignore)
	inv, err := NewInvocation(s.executable, ex, s.directory)
	if err != nil {
		s.state = StateFailed
		return false, err
	}
	defer func() {
		if cerr := inv.Cleanup(); cerr != nil {
			s.builder.Log.LogWarning(fmt.Sprintf("%s: removing %s: %v", PluginName, inv.Output, cerr))
		}
		if s.state != StateFailed {
			s.state = StateDone
		}
	}()

	s.builder.Log.LogDebug(fmt.Sprintf("%s: %s %s", PluginName, s.executable, strings.Join(inv.Args(), " ")))
	success := s.builder.ExecuteCommand(ctx, s.executable, inv.Args()...)
	s.state = StateInvoked
	if !success {
		s.builder.Log.LogDebug(PluginName + ": tool reported failure, parsing report anyway")
	}

	data, err := os.ReadFile(inv.Output)
	if err != nil {
		s.state = StateFailed
		return false, fmt.Errorf("reading report: %w", err)
	}

	findings, err := ParseReport(data)
	if err != nil {
		s.builder.Log.Log(string(data))
		s.state = StateFailed
		return false, err
	}
	s.state = StateParsed

	em := &Emitter{Reporter: s.builder, Root: s.builder.BuildPath}
	count, err := em.Emit(ctx, findings)
	if err != nil {
		s.state = StateFailed
		return false, err
	}
	if err := s.builder.StoreMeta(ctx, MetricKey, count); err != nil {
		s.state = StateFailed
		return false, fmt.Errorf("storing %s: %w", MetricKey, err)
	}
	s.state = StatePersisted

	s.builder.Log.Log(fmt.Sprintf("%s: %d duplications found", PluginName, count))
	return success, nil
}
