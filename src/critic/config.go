package critic

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/shlex"
	"github.com/hashicorp/go-multierror"
	"github.com/please-build/gcfg"
)

// ConfigFileName is the name of the optional per-workspace config file, read from
// the workspace root. Values in it are overridden by settings sent by the editor.
const ConfigFileName = ".perlcriticls"

// Settings are the tunable options for running perlcritic against a document.
// A snapshot is taken per validation cycle; the zero values of Severity and
// MaxNumberOfProblems mean "leave it to perlcritic's own defaults".
type Settings struct {
	// Executable is the name or path of the perlcritic binary.
	Executable string `json:"executable"`
	// Severity is passed as --severity when nonzero (1=brutal .. 5=gentle).
	Severity int `json:"severity"`
	// OnSave restricts validation to document saves rather than every change.
	OnSave bool `json:"onSave"`
	// MaxNumberOfProblems is passed as --top when nonzero.
	MaxNumberOfProblems int `json:"maxNumberOfProblems"`
	// AdditionalArguments is a shell-quoted string of extra perlcritic arguments.
	AdditionalArguments string `json:"additionalArguments"`
}

// DefaultSettings returns the settings used in the absence of any configuration.
func DefaultSettings() Settings {
	return Settings{
		Executable: "perlcritic",
	}
}

// ReadSettingsFile reads settings from the config file in the given directory,
// overlaid onto the defaults. A missing file is not an error.
func ReadSettingsFile(dir string) (Settings, error) {
	config := struct {
		Perlcritic Settings
	}{Perlcritic: DefaultSettings()}
	filename := filepath.Join(dir, ConfigFileName)
	if err := gcfg.ReadFileInto(&config, filename); err != nil && os.IsNotExist(err) {
		return config.Perlcritic, nil // It's not an error to not have the file at all.
	} else if err != nil {
		return config.Perlcritic, fmt.Errorf("Error reading %s: %s", filename, err)
	}
	log.Debug("Read settings from %s", filename)
	return config.Perlcritic, nil
}

// Validate checks the settings for values that can never work, aggregating
// everything that's wrong rather than stopping at the first problem.
func (s Settings) Validate() error {
	var result *multierror.Error
	if s.Executable == "" {
		result = multierror.Append(result, fmt.Errorf("executable must not be empty"))
	}
	if s.Severity < 0 || s.Severity > 5 {
		result = multierror.Append(result, fmt.Errorf("severity must be between 1 (brutal) and 5 (gentle), was %d", s.Severity))
	}
	if s.MaxNumberOfProblems < 0 {
		result = multierror.Append(result, fmt.Errorf("maxNumberOfProblems must not be negative, was %d", s.MaxNumberOfProblems))
	}
	if _, err := shlex.Split(s.AdditionalArguments); err != nil {
		result = multierror.Append(result, fmt.Errorf("cannot parse additionalArguments: %s", err))
	}
	return result.ErrorOrNil()
}

// Args assembles the perlcritic argument list (excluding the executable itself)
// for these settings.
func (s Settings) Args() ([]string, error) {
	// --quiet suppresses the "source OK" message on clean documents, which would
	// otherwise arrive as an unparseable record.
	args := []string{"--quiet", "--nocolour", "--verbose=" + OutputTemplate}
	if s.Severity > 0 {
		args = append(args, "--severity="+strconv.Itoa(s.Severity))
	}
	if s.MaxNumberOfProblems > 0 {
		args = append(args, "--top="+strconv.Itoa(s.MaxNumberOfProblems))
	}
	extra, err := shlex.Split(s.AdditionalArguments)
	if err != nil {
		return nil, fmt.Errorf("cannot parse additionalArguments: %s", err)
	}
	return append(args, extra...), nil
}
