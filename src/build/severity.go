package build

import "fmt"

// Severity indicates how serious a build error is.
// Lower values are more severe.
type Severity int

const (
	SeverityCritical Severity = iota
	SeverityHigh
	SeverityNormal
	SeverityLow
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "critical"
	case SeverityHigh:
		return "high"
	case SeverityNormal:
		return "normal"
	case SeverityLow:
		return "low"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Error is a single build error reported by a plugin.
type Error struct {
	BuildID   string
	Plugin    string
	Message   string
	Severity  Severity
	File      string // relative to the build path
	LineStart int
	LineEnd   int
}
