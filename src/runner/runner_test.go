package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureLogger struct {
	debugs, warnings []string
}

func (l *captureLogger) Log(string)              {}
func (l *captureLogger) LogWarning(msg string) { l.warnings = append(l.warnings, msg) }
func (l *captureLogger) LogDebug(msg string)   { l.debugs = append(l.debugs, msg) }

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tool.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestExecuteCommandSuccess(t *testing.T) {
	out := filepath.Join(t.TempDir(), "report.xml")
	script := writeScript(t, `echo "<pmd-cpd/>" > "$2"`)

	log := &captureLogger{}
	e := &Executor{Log: log}
	ok := e.ExecuteCommand(context.Background(), script, "--log-pmd", out)

	assert.True(t, ok)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "<pmd-cpd/>\n", string(data))
	assert.NotEmpty(t, log.debugs)
}

func TestExecuteCommandNonZeroExit(t *testing.T) {
	script := writeScript(t, `echo "found clones" >&2; exit 1`)

	log := &captureLogger{}
	e := &Executor{Log: log}
	assert.False(t, e.ExecuteCommand(context.Background(), script))
	assert.Contains(t, log.debugs, "found clones")
	assert.Empty(t, log.warnings)
}

func TestExecuteCommandMissingBinary(t *testing.T) {
	log := &captureLogger{}
	e := &Executor{Log: log}
	assert.False(t, e.ExecuteCommand(context.Background(), filepath.Join(t.TempDir(), "missing")))
	assert.Len(t, log.warnings, 1)
}

func TestExecuteCommandTimeout(t *testing.T) {
	script := writeScript(t, `exec sleep 5`)

	log := &captureLogger{}
	e := &Executor{Timeout: 50 * time.Millisecond, Log: log}
	assert.False(t, e.ExecuteCommand(context.Background(), script))
	require.Len(t, log.warnings, 1)
	assert.Contains(t, log.warnings[0], "timed out")
}

func TestOutput(t *testing.T) {
	script := writeScript(t, `echo "phpcpd 6.0.3 by Sebastian Bergmann."`)

	e := &Executor{}
	out, err := e.Output(context.Background(), script, "--version")
	require.NoError(t, err)
	assert.Equal(t, "phpcpd 6.0.3 by Sebastian Bergmann.\n", out)
}

func TestCommandLine(t *testing.T) {
	got := CommandLine("/usr/bin/phpcpd", "--log-pmd", "/tmp/php_cpd_1", "--exclude", "my dir", "it's")
	assert.Equal(t, `/usr/bin/phpcpd --log-pmd /tmp/php_cpd_1 --exclude 'my dir' 'it'\''s'`, got)
	assert.Equal(t, "x ''", CommandLine("x", ""))
}
