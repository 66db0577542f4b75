package output

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sofmeright/cpdstage/src/build"
	"github.com/sofmeright/cpdstage/src/stage"
)

// CI environment detection.

func IsCI() bool {
	return os.Getenv("CI") == "true"
}

func IsGitLabCI() bool {
	return os.Getenv("GITLAB_CI") == "true"
}

// GitLab collapsible section helpers.

func SectionStart(w io.Writer, id, name string) {
	if !IsGitLabCI() {
		return
	}
	fmt.Fprintf(w, "\033[0Ksection_start:%d:%s\r\033[0K%s\n", time.Now().Unix(), id, name)
}

func SectionEnd(w io.Writer, id string) {
	if !IsGitLabCI() {
		return
	}
	fmt.Fprintf(w, "\033[0Ksection_end:%d:%s\r\033[0K\n", time.Now().Unix(), id)
}

// JUnit XML types for CI test reporting.

type JUnitTestSuites struct {
	XMLName  xml.Name         `xml:"testsuites"`
	Name     string           `xml:"name,attr"`
	Tests    int              `xml:"tests,attr"`
	Failures int              `xml:"failures,attr"`
	Time     string           `xml:"time,attr"`
	Suites   []JUnitTestSuite `xml:"testsuite"`
}

type JUnitTestSuite struct {
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Time     string          `xml:"time,attr"`
	Cases    []JUnitTestCase `xml:"testcase"`
}

type JUnitTestCase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
}

type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// BuildJUnit converts plugin results and build errors into a JUnit tree.
// Each plugin becomes a suite. A plugin's errors become one failing case
// per file; a plugin that failed without reporting errors gets one case
// for the run itself.
func BuildJUnit(b *build.Build, results []stage.Result, errs []build.Error) JUnitTestSuites {
	byPlugin := map[string][]build.Error{}
	for _, e := range errs {
		byPlugin[e.Plugin] = append(byPlugin[e.Plugin], e)
	}

	root := JUnitTestSuites{Name: "cpdstage/" + b.ID}
	var total time.Duration

	for _, r := range results {
		if r.Skipped {
			continue
		}
		total += r.Elapsed
		class := "cpdstage." + r.Plugin
		suite := JUnitTestSuite{
			Name: "cpdstage/" + string(r.Stage) + "/" + r.Plugin,
			Time: fmt.Sprintf("%.3f", r.Elapsed.Seconds()),
		}

		files, byFile := groupByFile(byPlugin[r.Plugin])
		for _, file := range files {
			ee := byFile[file]
			worst := build.SeverityLow
			var lines []string
			for _, e := range ee {
				if e.Severity < worst {
					worst = e.Severity
				}
				lines = append(lines, fmt.Sprintf("%s [%s] %s", lineRange(e), e.Severity, e.Message))
			}
			suite.Cases = append(suite.Cases, JUnitTestCase{
				Name:      file,
				Classname: class,
				Time:      "0.000",
				Failure: &JUnitFailure{
					Message: fmt.Sprintf("%d error(s) in %s", len(ee), file),
					Type:    worst.String(),
					Body:    strings.Join(lines, "\n\n"),
				},
			})
			suite.Failures++
		}

		if len(files) == 0 {
			tc := JUnitTestCase{Name: r.Plugin, Classname: class, Time: suite.Time}
			if ResultStatus(r) == StatusFailed {
				msg := "plugin failed"
				if r.Err != nil {
					msg = r.Err.Error()
				}
				tc.Failure = &JUnitFailure{Message: msg, Type: "error"}
				suite.Failures++
			}
			suite.Cases = append(suite.Cases, tc)
		}

		suite.Tests = len(suite.Cases)
		root.Tests += suite.Tests
		root.Failures += suite.Failures
		root.Suites = append(root.Suites, suite)
	}

	root.Time = fmt.Sprintf("%.3f", total.Seconds())
	return root
}

// WriteJUnit writes the JUnit report of a build phase to dir/<phase>.xml
// and returns the file path.
func WriteJUnit(dir string, b *build.Build, st build.Stage, results []stage.Result, errs []build.Error) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report dir: %w", err)
	}

	path := filepath.Join(dir, string(st)+".xml")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(xml.Header); err != nil {
		return "", err
	}
	enc := xml.NewEncoder(f)
	enc.Indent("", "  ")
	if err := enc.Encode(BuildJUnit(b, results, errs)); err != nil {
		return "", fmt.Errorf("encoding junit xml: %w", err)
	}
	if _, err := f.WriteString("\n"); err != nil {
		return "", err
	}
	return path, nil
}
