package output

import (
	"bytes"
	"encoding/xml"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofmeright/cpdstage/src/build"
	"github.com/sofmeright/cpdstage/src/stage"
)

var sampleErrors = []build.Error{
	{BuildID: "b1", Plugin: "php_cpd", Severity: build.SeverityNormal, File: "src/b.php", LineStart: 20, LineEnd: 30, Message: "Copy and paste detected:\n\n```\nfoo\n```"},
	{BuildID: "b1", Plugin: "php_cpd", Severity: build.SeverityNormal, File: "src/a.php", LineStart: 5, LineEnd: 15, Message: "Copy and paste detected:\n\n```\nfoo\n```"},
	{BuildID: "b1", Plugin: "php_cpd", Severity: build.SeverityNormal, File: "src/a.php", LineStart: 1, LineEnd: 11, Message: "Copy and paste detected:\n\n```\nbar\n```"},
}

func TestSectionErrorsGroupedByFile(t *testing.T) {
	var buf bytes.Buffer
	sec := NewSection(&buf, "errors", 0, false)
	SectionErrors(sec, sampleErrors, false)
	sec.Close()

	out := buf.String()
	a := strings.Index(out, "src/a.php")
	b := strings.Index(out, "src/b.php")
	require.True(t, a >= 0 && b >= 0)
	assert.Less(t, a, b)

	first := strings.Index(out, "1-11")
	second := strings.Index(out, "5-15")
	assert.Less(t, first, second)
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "Copy and paste detected")
	assert.NotContains(t, out, "```")
}

func TestErrorsSummaryLine(t *testing.T) {
	assert.Equal(t, "3 errors in 2 files: 3 normal", ErrorsSummaryLine(sampleErrors, false))
	assert.Equal(t, "0 errors in 0 files: no errors", ErrorsSummaryLine(nil, false))
}

func TestSectionResults(t *testing.T) {
	var buf bytes.Buffer
	sec := NewSection(&buf, "test", 1500*time.Millisecond, false)
	SectionResults(sec, []stage.Result{
		{Plugin: "php_cpd", Stage: build.StageTest, Success: true, Elapsed: 20 * time.Millisecond},
		{Plugin: "broken", Stage: build.StageTest, Err: errors.New("boom")},
		{Plugin: "later", Stage: build.StageTest, Skipped: true},
	}, false)
	sec.Close()

	out := buf.String()
	assert.Contains(t, out, "── test ")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "✓")
	assert.Contains(t, out, "✗")
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "not run on test")
}

func TestStatusIcon(t *testing.T) {
	assert.Equal(t, "✓", StatusIcon(StatusSuccess, false))
	assert.Equal(t, "✗", StatusIcon(StatusFailed, false))
	assert.Equal(t, "⊘", StatusIcon(StatusSkipped, false))
	assert.Contains(t, StatusIcon(StatusFailed, true), "\033[31m")
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "<1ms", formatElapsed(time.Microsecond))
	assert.Equal(t, "250ms", formatElapsed(250*time.Millisecond))
	assert.Equal(t, "2.0s", formatElapsed(2*time.Second))
	assert.Equal(t, "1m30.0s", formatElapsed(90*time.Second))
}

func TestBuildJUnit(t *testing.T) {
	b := &build.Build{ID: "b1"}
	results := []stage.Result{
		{Plugin: "php_cpd", Stage: build.StageTest, Elapsed: time.Second},
		{Plugin: "quiet", Stage: build.StageTest, Success: true},
		{Plugin: "crashed", Stage: build.StageTest, Err: errors.New("no binary")},
		{Plugin: "deploy_only", Stage: build.StageTest, Skipped: true},
	}

	root := BuildJUnit(b, results, sampleErrors)
	require.Len(t, root.Suites, 3)
	assert.Equal(t, 4, root.Tests)
	assert.Equal(t, 3, root.Failures)

	cpd := root.Suites[0]
	assert.Equal(t, "cpdstage/test/php_cpd", cpd.Name)
	require.Len(t, cpd.Cases, 2)
	assert.Equal(t, "src/a.php", cpd.Cases[0].Name)
	assert.Equal(t, "2 error(s) in src/a.php", cpd.Cases[0].Failure.Message)
	assert.Equal(t, "normal", cpd.Cases[0].Failure.Type)

	assert.Nil(t, root.Suites[1].Cases[0].Failure)
	assert.Equal(t, "no binary", root.Suites[2].Cases[0].Failure.Message)
}

func TestWriteJUnit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	path, err := WriteJUnit(dir, &build.Build{ID: "b1"}, build.StageTest,
		[]stage.Result{{Plugin: "php_cpd", Stage: build.StageTest}}, sampleErrors)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "test.xml"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), xml.Header))

	var parsed JUnitTestSuites
	require.NoError(t, xml.Unmarshal(data, &parsed))
	assert.Equal(t, 2, parsed.Failures)
	assert.Contains(t, parsed.Suites[0].Cases[1].Failure.Body, "20-30 [normal]")
}

func TestUseColorRespectsNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.False(t, UseColor())
}
