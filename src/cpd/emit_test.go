package cpd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofmeright/cpdstage/src/build"
)

type errorSink struct {
	errors []build.Error
	failAt int // 1-based; 0 = never
}

func (s *errorSink) ReportError(_ context.Context, e build.Error) error {
	if s.failAt > 0 && len(s.errors)+1 == s.failAt {
		return errors.New("store unavailable")
	}
	s.errors = append(s.errors, e)
	return nil
}

func TestEmitOneFindingTwoFiles(t *testing.T) {
	sink := &errorSink{}
	em := &Emitter{Reporter: sink, Root: "/srv/checkout"}

	count, err := em.Emit(context.Background(), []Finding{{
		Fragment: "echo 1;",
		Lines:    10,
		Occurrences: []Occurrence{
			{File: "/srv/checkout/src/A.php", Line: 5},
			{File: "/srv/checkout/src/B.php", Line: 5},
		},
	}})
	require.NoError(t, err)

	assert.Equal(t, 1, count)
	require.Len(t, sink.errors, 2)
	for i, file := range []string{"src/A.php", "src/B.php"} {
		e := sink.errors[i]
		assert.Equal(t, file, e.File)
		assert.Equal(t, 5, e.LineStart)
		assert.Equal(t, 15, e.LineEnd)
		assert.Equal(t, build.SeverityNormal, e.Severity)
		assert.Equal(t, PluginName, e.Plugin)
		assert.Equal(t, "Copy and paste detected:\n\n```\necho 1;\n```", e.Message)
	}
}

func TestEmitPathOutsideRootUnchanged(t *testing.T) {
	sink := &errorSink{}
	em := &Emitter{Reporter: sink, Root: "/srv/checkout/"}

	_, err := em.Emit(context.Background(), []Finding{{
		Lines:       1,
		Occurrences: []Occurrence{{File: "/opt/shared/Lib.php", Line: 1}, {File: "/srv/checkoutx/C.php", Line: 2}},
	}})
	require.NoError(t, err)
	assert.Equal(t, "/opt/shared/Lib.php", sink.errors[0].File)
	assert.Equal(t, "/srv/checkoutx/C.php", sink.errors[1].File)
}

func TestEmitCountsFindingsWithoutOccurrences(t *testing.T) {
	sink := &errorSink{}
	em := &Emitter{Reporter: sink, Root: "/srv"}

	count, err := em.Emit(context.Background(), []Finding{{Lines: 3}, {Lines: 4}})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Empty(t, sink.errors)
}

func TestEmitReporterFailure(t *testing.T) {
	sink := &errorSink{failAt: 2}
	em := &Emitter{Reporter: sink, Root: "/srv"}

	count, err := em.Emit(context.Background(), []Finding{
		{Occurrences: []Occurrence{{File: "/srv/a.php", Line: 1}}},
		{Occurrences: []Occurrence{{File: "/srv/b.php", Line: 1}}},
	})
	require.Error(t, err)
	assert.Equal(t, 1, count)
	assert.Len(t, sink.errors, 1)
}
