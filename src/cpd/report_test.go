package cpd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoFileReport = `<?xml version="1.0" encoding="UTF-8"?>
<pmd-cpd>
  <duplication lines="10" tokens="54">
    <file path="/srv/checkout/src/A.php" line="5"/>
    <file path="/srv/checkout/src/B.php" line="5"/>
    <codefragment>    public function a()
    {
        return $this-&gt;b;
    }
</codefragment>
  </duplication>
</pmd-cpd>
`

func TestParseReport(t *testing.T) {
	findings, err := ParseReport([]byte(twoFileReport))
	require.NoError(t, err)
	require.Len(t, findings, 1)

	f := findings[0]
	assert.Equal(t, 10, f.Lines)
	assert.Equal(t, 54, f.Tokens)
	assert.Equal(t, []Occurrence{
		{File: "/srv/checkout/src/A.php", Line: 5},
		{File: "/srv/checkout/src/B.php", Line: 5},
	}, f.Occurrences)
	assert.Contains(t, f.Fragment, "return $this->b;")
}

func TestParseReportPreservesDocumentOrder(t *testing.T) {
	report := `<pmd-cpd>
  <duplication lines="3"><file path="z.php" line="9"/><file path="a.php" line="1"/><codefragment>one</codefragment></duplication>
  <duplication lines="4"><file path="m.php" line="2"/><codefragment>two</codefragment></duplication>
</pmd-cpd>`

	findings, err := ParseReport([]byte(report))
	require.NoError(t, err)
	require.Len(t, findings, 2)
	assert.Equal(t, "one", findings[0].Fragment)
	assert.Equal(t, "z.php", findings[0].Occurrences[0].File)
	assert.Equal(t, "a.php", findings[0].Occurrences[1].File)
	assert.Equal(t, "two", findings[1].Fragment)
}

func TestParseReportEmptyButValid(t *testing.T) {
	for _, report := range []string{
		`<?xml version="1.0" encoding="UTF-8"?>` + "\n<pmd-cpd/>\n",
		"<pmd-cpd></pmd-cpd>",
		"<pmd-cpd>\n</pmd-cpd>\n<!-- generated -->\n",
	} {
		findings, err := ParseReport([]byte(report))
		require.NoError(t, err, report)
		assert.Empty(t, findings)
	}
}

func TestParseReportDuplicationWithoutFiles(t *testing.T) {
	findings, err := ParseReport([]byte(`<pmd-cpd><duplication lines="2"><codefragment>x</codefragment></duplication></pmd-cpd>`))
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Empty(t, findings[0].Occurrences)
}

func TestParseReportLenientAttributes(t *testing.T) {
	findings, err := ParseReport([]byte(`<pmd-cpd><duplication lines="12abc"><file path="a.php" line=""/></duplication></pmd-cpd>`))
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, 12, findings[0].Lines)
	assert.Equal(t, 0, findings[0].Occurrences[0].Line)
}

func TestParseReportMalformed(t *testing.T) {
	tests := map[string]string{
		"empty":            "",
		"whitespace":       "  \n ",
		"plain text":       "phpcpd 6.0.3 by Sebastian Bergmann.",
		"unclosed":         "<pmd-cpd><duplication lines=\"1\">",
		"mismatched":       "<pmd-cpd></duplication>",
		"trailing element": "<pmd-cpd/><pmd-cpd/>",
		"trailing text":    "<pmd-cpd/>\nFatal error",
	}

	for name, report := range tests {
		t.Run(name, func(t *testing.T) {
			findings, err := ParseReport([]byte(report))
			assert.Nil(t, findings)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedReport))

			var mErr *MalformedReportError
			require.ErrorAs(t, err, &mErr)
			assert.Equal(t, report, mErr.Raw)
		})
	}
}

func TestLeadingInt(t *testing.T) {
	assert.Equal(t, 42, leadingInt(" 42 "))
	assert.Equal(t, -3, leadingInt("-3"))
	assert.Equal(t, 7, leadingInt("+7x"))
	assert.Equal(t, 0, leadingInt("abc"))
}
