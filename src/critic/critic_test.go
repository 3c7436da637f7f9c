package critic

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseWellFormedRecord(t *testing.T) {
	critiques, err := Parse("2[>]5[>]3[>]Bad thing. Explanation (Policy)[>]Policy::Name[[END]]", "")
	assert.NoError(t, err)
	assert.Equal(t, []Critique{{
		Line:        1,
		Column:      4,
		Severity:    2,
		Summary:     "Bad thing. Explanation (Policy)",
		Explanation: "Policy::Name",
	}}, critiques)
}

func TestParseEmptyOutput(t *testing.T) {
	critiques, err := Parse("", "")
	assert.NoError(t, err)
	assert.Equal(t, []Critique{}, critiques)
}

func TestParseStderrTakesPrecedence(t *testing.T) {
	critiques, err := Parse("2[>]5[>]3[>]msg[>]exp[[END]]", "Can't locate Perl/Critic.pm in @INC")
	assert.Error(t, err)
	assert.Nil(t, critiques)
	assert.Equal(t, "Can't locate Perl/Critic.pm in @INC", err.Error())
}

func TestParseSeverityZeroSkipped(t *testing.T) {
	critiques, err := Parse("1[>]1[>]0[>]x[>]y[[END]]", "")
	assert.NoError(t, err)
	assert.Equal(t, []Critique{}, critiques)
}

func TestParseNonNumericLineIsError(t *testing.T) {
	critiques, err := Parse("x[>]1[>]1[>]msg[>]exp[[END]]", "")
	assert.Error(t, err)
	assert.Nil(t, critiques)
	// The offending record is embedded to aid debugging the --verbose config.
	assert.Contains(t, err.Error(), "x[>]1[>]1[>]msg[>]exp")
	assert.Contains(t, err.Error(), "--verbose")
}

func TestParseNonNumericColumnIsError(t *testing.T) {
	_, err := Parse("1[>]y[>]1[>]msg[>]exp[[END]]", "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "column")
}

func TestParseNonNumericSeverityIsError(t *testing.T) {
	// Severity 0 is silently skipped but a non-numeric severity is a hard error.
	_, err := Parse("1[>]1[>]gentle[>]msg[>]exp[[END]]", "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "severity")
}

func TestParseErrorDiscardsEarlierCritiques(t *testing.T) {
	critiques, err := Parse("2[>]5[>]3[>]ok[>]exp[[END]]x[>]1[>]1[>]bad[>]exp[[END]]", "")
	assert.Error(t, err)
	assert.Nil(t, critiques)
}

func TestParseMultipleRecordsPreserveOrder(t *testing.T) {
	out := "10[>]1[>]5[>]first[>]A[[END]]" +
		"2[>]2[>]0[>]suppressed[>]B[[END]]" +
		"20[>]3[>]1[>]third[>]C[[END]]"
	critiques, err := Parse(out, "")
	assert.NoError(t, err)
	assert.Equal(t, []Critique{
		{Line: 9, Column: 0, Severity: 4, Summary: "first", Explanation: "A"},
		{Line: 19, Column: 2, Severity: 0, Summary: "third", Explanation: "C"},
	}, critiques)
}

func TestParseClampsCoordinatesAtZero(t *testing.T) {
	// Line and column 0 would go negative after the 1- to 0-based conversion.
	critiques, err := Parse("0[>]0[>]5[>]msg[>]exp[[END]]", "")
	assert.NoError(t, err)
	assert.Equal(t, []Critique{{Line: 0, Column: 0, Severity: 4, Summary: "msg", Explanation: "exp"}}, critiques)
}

func TestParseStripsAnsiEscapes(t *testing.T) {
	critiques, err := Parse("\x1b[1;31m2\x1b[0m[>]5[>]3[>]\x1b[32mBad thing\x1b[0m[>]Policy::Name[[END]]", "")
	assert.NoError(t, err)
	assert.Equal(t, []Critique{{
		Line:        1,
		Column:      4,
		Severity:    2,
		Summary:     "Bad thing",
		Explanation: "Policy::Name",
	}}, critiques)
}

func TestParseTrailingBlankRecordIsBenign(t *testing.T) {
	// Output normally ends with the end-of-record marker so the final split
	// segment is empty; that must not be reported as a format error.
	critiques, err := Parse("2[>]5[>]3[>]msg[>]exp[[END]]\n", "")
	assert.NoError(t, err)
	assert.Equal(t, 1, len(critiques))
}

func TestParseWhitespaceOnlyOutput(t *testing.T) {
	critiques, err := Parse("   \n  ", "")
	assert.NoError(t, err)
	assert.Equal(t, []Critique{}, critiques)
}

func TestParseToleratesWhitespaceAroundNumbers(t *testing.T) {
	critiques, err := Parse(" 2 [>] 5 [>] 3 [>] msg [>] exp [[END]]", "")
	assert.NoError(t, err)
	assert.Equal(t, []Critique{{Line: 1, Column: 4, Severity: 2, Summary: "msg", Explanation: "exp"}}, critiques)
}

func TestParseMissingTrailingFields(t *testing.T) {
	// Records can legitimately miss trailing fields; they're left empty.
	critiques, err := Parse("2[>]5[>]3[[END]]", "")
	assert.NoError(t, err)
	assert.Equal(t, []Critique{{Line: 1, Column: 4, Severity: 2}}, critiques)
}

func TestParseMissingNumericFieldIsError(t *testing.T) {
	_, err := Parse("2[>]5[[END]]", "")
	assert.Error(t, err)
}

func TestParseNegativeSeverityIsKept(t *testing.T) {
	// Only a literal 0 is the skip convention; anything else that parses is kept
	// and clamped during normalisation.
	critiques, err := Parse("1[>]1[>]-1[>]msg[>]exp[[END]]", "")
	assert.NoError(t, err)
	assert.Equal(t, []Critique{{Line: 0, Column: 0, Severity: 0, Summary: "msg", Explanation: "exp"}}, critiques)
}

func TestParseSeparatorInsideMessage(t *testing.T) {
	// Extra separators beyond the fourth end up in the explanation; there is no
	// escaping in this format.
	critiques, err := Parse("1[>]1[>]1[>]msg[>]exp[>]more[[END]]", "")
	assert.NoError(t, err)
	assert.Equal(t, []Critique{{Summary: "msg", Explanation: "exp[>]more"}}, critiques)
}

func TestParseManyRecords(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 100; i++ {
		b.WriteString("5[>]1[>]3[>]msg[>]exp[[END]]")
	}
	critiques, err := Parse(b.String(), "")
	assert.NoError(t, err)
	assert.Equal(t, 100, len(critiques))
}

func TestOutputTemplate(t *testing.T) {
	// The template is the wire contract with perlcritic; changing it breaks
	// parsing silently, so pin it.
	assert.Equal(t, "%l[>]%c[>]%s[>]%m. %e (%p)[>]%d[[END]]", OutputTemplate)
}
