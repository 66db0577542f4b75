package output

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/sofmeright/cpdstage/src/build"
)

// Colors for terminal output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// UseColor returns true if colored output should be used.
// Respects NO_COLOR env, TERM=dumb, and terminal detection.
func UseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return isTerminal() || IsCI()
}

// severityTag returns a short severity label, optionally colored.
func severityTag(s build.Severity, color bool) string {
	var tag, c string
	switch s {
	case build.SeverityCritical:
		tag, c = "CRIT", colorRed
	case build.SeverityHigh:
		tag, c = "HIGH", colorRed
	case build.SeverityNormal:
		tag, c = "WARN", colorYellow
	case build.SeverityLow:
		tag, c = "LOW", colorGray
	default:
		return s.String()
	}
	if !color {
		return tag
	}
	return c + tag + colorReset
}

// groupByFile groups build errors by file. Files are sorted lexicographically;
// errors within each file by start line, plugin, message.
func groupByFile(errs []build.Error) ([]string, map[string][]build.Error) {
	byFile := map[string][]build.Error{}
	for _, e := range errs {
		byFile[e.File] = append(byFile[e.File], e)
	}

	files := make([]string, 0, len(byFile))
	for file := range byFile {
		files = append(files, file)
	}
	sort.Strings(files)

	for _, file := range files {
		ee := byFile[file]
		sort.SliceStable(ee, func(i, j int) bool {
			a, b := ee[i], ee[j]
			if a.LineStart != b.LineStart {
				return a.LineStart < b.LineStart
			}
			if a.Plugin != b.Plugin {
				return a.Plugin < b.Plugin
			}
			return a.Message < b.Message
		})
	}
	return files, byFile
}

// lineRange formats the lines an error covers.
func lineRange(e build.Error) string {
	switch {
	case e.LineStart == 0:
		return "-"
	case e.LineEnd > e.LineStart:
		return fmt.Sprintf("%d-%d", e.LineStart, e.LineEnd)
	default:
		return fmt.Sprintf("%d", e.LineStart)
	}
}

// firstLine returns the headline of a multi-line message.
func firstLine(msg string) string {
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return strings.TrimSuffix(strings.TrimSpace(msg), ":")
}

// SectionErrors renders build errors grouped by file inside a section.
// Only the headline of each message is shown; detailed bodies go to the
// store and the JUnit report.
func SectionErrors(sec *Section, errs []build.Error, color bool) {
	if len(errs) == 0 {
		return
	}

	files, byFile := groupByFile(errs)

	sec.Row("")
	for _, file := range files {
		if color {
			sec.Row("%s", colorBold+file+colorReset)
		} else {
			sec.Row("%s", file)
		}

		for _, e := range byFile[file] {
			plugin := e.Plugin
			if color {
				plugin = colorCyan + plugin + colorReset
			}
			sec.Row("  %-10s %-4s  %-10s %s", lineRange(e), severityTag(e.Severity, color), plugin, firstLine(e.Message))
		}
		sec.Row("")
	}
}

// ErrorsSummaryLine returns a one-line summary of build errors, optionally colored.
func ErrorsSummaryLine(errs []build.Error, color bool) string {
	counts := map[build.Severity]int{}
	files := map[string]bool{}
	for _, e := range errs {
		counts[e.Severity]++
		files[e.File] = true
	}

	var parts []string
	for _, s := range []build.Severity{build.SeverityCritical, build.SeverityHigh, build.SeverityNormal, build.SeverityLow} {
		if counts[s] == 0 {
			continue
		}
		p := fmt.Sprintf("%d %s", counts[s], s)
		if color && s <= build.SeverityHigh {
			p = colorRed + p + colorReset
		} else if color && s == build.SeverityNormal {
			p = colorYellow + p + colorReset
		}
		parts = append(parts, p)
	}

	summary := "no errors"
	if len(parts) > 0 {
		summary = strings.Join(parts, ", ")
	}

	total := fmt.Sprintf("%d", len(errs))
	if color {
		total = colorBold + total + colorReset
	}
	return fmt.Sprintf("%s errors in %d files: %s", total, len(files), summary)
}
