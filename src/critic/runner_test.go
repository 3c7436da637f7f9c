package critic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCritique(t *testing.T) {
	critiques, err := NewRunner().Critique(Settings{Executable: "test_data/fake_perlcritic"}, "my $x = 1;\n")
	assert.NoError(t, err)
	assert.Equal(t, []Critique{
		{Line: 1, Column: 4, Severity: 2, Summary: "Bad thing. Explanation (Policy)", Explanation: "Policy::Name"},
		{Line: 4, Column: 0, Severity: 0, Summary: "Other thing (Other)", Explanation: "Other::Policy"},
	}, critiques)
}

func TestCritiqueCleanDocument(t *testing.T) {
	critiques, err := NewRunner().Critique(Settings{Executable: "test_data/clean_perlcritic"}, "print 'ok';\n")
	assert.NoError(t, err)
	assert.Equal(t, []Critique{}, critiques)
}

func TestCritiqueStderrSurfacesVerbatim(t *testing.T) {
	critiques, err := NewRunner().Critique(Settings{Executable: "test_data/broken_perlcritic"}, "")
	assert.Error(t, err)
	assert.Nil(t, critiques)
	assert.Equal(t, "Died at fake_perl_critic line 1.\n", err.Error())
}

func TestCritiqueMissingExecutable(t *testing.T) {
	_, err := NewRunner().Critique(Settings{Executable: "test_data/no_such_perlcritic"}, "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no_such_perlcritic")
}

func TestCritiqueBadAdditionalArguments(t *testing.T) {
	_, err := NewRunner().Critique(Settings{
		Executable:          "test_data/fake_perlcritic",
		AdditionalArguments: `"unterminated`,
	}, "")
	assert.Error(t, err)
}

func TestLookupExecutableCachesLastValidated(t *testing.T) {
	path, err := lookupExecutable("test_data/fake_perlcritic")
	assert.NoError(t, err)
	again, err := lookupExecutable("test_data/fake_perlcritic")
	assert.NoError(t, err)
	assert.Equal(t, path, again)
}

func TestLookupExecutableDirectory(t *testing.T) {
	_, err := lookupExecutable("test_data")
	assert.Error(t, err)
}
