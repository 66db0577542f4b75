package cpd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sofmeright/cpdstage/src/build"
)

// Reporter receives build errors one at a time.
type Reporter interface {
	ReportError(ctx context.Context, e build.Error) error
}

// Emitter turns findings into build errors.
type Emitter struct {
	Reporter Reporter
	Root     string // project root stripped from occurrence paths
}

// Emit reports one build error per occurrence and returns the number of
// findings (not occurrences) processed.
func (em *Emitter) Emit(ctx context.Context, findings []Finding) (int, error) {
	prefix := em.Root
	if prefix != "" && !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}

	count := 0
	for _, f := range findings {
		msg := Message(f.Fragment)
		for _, occ := range f.Occurrences {
			err := em.Reporter.ReportError(ctx, build.Error{
				Plugin:    PluginName,
				Message:   msg,
				Severity:  build.SeverityNormal,
				File:      strings.TrimPrefix(occ.File, prefix),
				LineStart: occ.Line,
				LineEnd:   occ.Line + f.Lines,
			})
			if err != nil {
				return count, fmt.Errorf("reporting %s:%d: %w", occ.File, occ.Line, err)
			}
		}
		count++
	}
	return count, nil
}

// Message formats the build error text for a duplicated fragment.
func Message(fragment string) string {
	return "Copy and paste detected:\n\n```\n" + fragment + "\n```"
}
