// Package build holds the per-build context handed to pipeline plugins:
// the build record, the Builder facade over configuration, process
// execution and the error/metadata sinks, and the diagnostics logger.
package build

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Stage is a pipeline phase a plugin may run in.
type Stage string

const (
	StageSetup    Stage = "setup"
	StageTest     Stage = "test"
	StageDeploy   Stage = "deploy"
	StageComplete Stage = "complete"
	StageSuccess  Stage = "success"
	StageFailure  Stage = "failure"
	StageFixed    Stage = "fixed"
	StageBroken   Stage = "broken"
)

// Stages lists every phase in execution order.
var Stages = []Stage{
	StageSetup, StageTest, StageDeploy, StageComplete,
	StageSuccess, StageFailure, StageFixed, StageBroken,
}

// ParseStage validates a phase name.
func ParseStage(s string) (Stage, error) {
	for _, st := range Stages {
		if string(st) == strings.ToLower(strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q", s)
}

// Build is the persisted record of one pipeline execution.
type Build struct {
	ID        string
	Path      string // project checkout root
	Commit    string
	Branch    string
	CreatedAt time.Time
	Success   map[Stage]bool
}

// NewBuild creates a build record for the checkout at path.
func NewBuild(path string, rev Revision) *Build {
	return &Build{
		ID:        uuid.NewString(),
		Path:      path,
		Commit:    rev.Commit,
		Branch:    rev.Branch,
		CreatedAt: time.Now().UTC(),
		Success:   map[Stage]bool{},
	}
}
