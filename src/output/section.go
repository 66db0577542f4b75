package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sofmeright/cpdstage/src/stage"
)

const sectionWidth = 61 // inner width between │ and line end

// Section renders a box-drawing framed output section.
type Section struct {
	w     io.Writer
	name  string
	color bool
}

// NewSection creates a section and writes its header.
// If elapsed is non-zero, it appears right-aligned in the header.
func NewSection(w io.Writer, name string, elapsed time.Duration, color bool) *Section {
	s := &Section{w: w, name: name, color: color}
	s.writeHeader(elapsed)
	return s
}

// Row writes a content line inside the section frame.
func (s *Section) Row(format string, args ...any) {
	fmt.Fprintf(s.w, "    │ %s\n", fmt.Sprintf(format, args...))
}

// Close writes the section footer.
func (s *Section) Close() {
	fmt.Fprintf(s.w, "    └%s\n", strings.Repeat("─", sectionWidth))
}

// writeHeader renders: ── Name ──────────────────── elapsed ──
func (s *Section) writeHeader(elapsed time.Duration) {
	label := fmt.Sprintf("── %s ", s.name)
	suffix := "──"
	if elapsed > 0 {
		suffix = fmt.Sprintf(" %s ──", formatElapsed(elapsed))
	}

	fill := sectionWidth + 4 - len(label) - len(suffix)
	if fill < 1 {
		fill = 1
	}

	line := label + strings.Repeat("─", fill) + suffix
	if s.color {
		line = "\033[2;36m" + line + colorReset
	}
	fmt.Fprintf(s.w, "\n    %s\n", line)
}

// Status values understood by StatusIcon.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// StatusIcon returns a status icon, colored when color is set.
func StatusIcon(status string, color bool) string {
	icon, c := "⊘", colorYellow
	switch status {
	case StatusSuccess:
		icon, c = "✓", "\033[32m"
	case StatusFailed:
		icon, c = "✗", colorRed
	}
	if !color {
		return icon
	}
	return c + icon + colorReset
}

// ResultStatus maps a plugin result to a status value.
func ResultStatus(r stage.Result) string {
	switch {
	case r.Skipped:
		return StatusSkipped
	case r.Success && r.Err == nil:
		return StatusSuccess
	default:
		return StatusFailed
	}
}

// SectionResults writes one row per plugin result.
func SectionResults(sec *Section, results []stage.Result, color bool) {
	for _, r := range results {
		detail := ""
		switch {
		case r.Skipped:
			detail = "not run on " + string(r.Stage)
		case r.Err != nil:
			detail = r.Err.Error()
		case !r.Success:
			detail = "failed"
		}
		elapsed := ""
		if r.Elapsed > 0 {
			elapsed = formatElapsed(r.Elapsed)
		}
		sec.Row("%-12s%s  %-8s %s", r.Plugin, StatusIcon(ResultStatus(r), color), elapsed, detail)
	}
}

// KV is a key-value pair for the context block.
type KV struct {
	Key   string
	Value string
}

// ContextBlock prints an aligned key-value header, two pairs per line.
func ContextBlock(w io.Writer, kv []KV) {
	if len(kv) == 0 {
		return
	}
	fmt.Fprintln(w)
	for i := 0; i < len(kv); i += 2 {
		if i+1 < len(kv) {
			fmt.Fprintf(w, "    %-12s%-14s%-11s%s\n", kv[i].Key, kv[i].Value, kv[i+1].Key, kv[i+1].Value)
		} else {
			fmt.Fprintf(w, "    %-12s%s\n", kv[i].Key, kv[i].Value)
		}
	}
}

// formatElapsed formats a duration for display in section headers.
func formatElapsed(d time.Duration) string {
	if d < time.Millisecond {
		return "<1ms"
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	mins := int(d.Minutes())
	secs := d.Seconds() - float64(mins*60)
	return fmt.Sprintf("%dm%.1fs", mins, secs)
}
