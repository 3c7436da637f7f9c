package critic

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"gopkg.in/op/go-logging.v1"

	"github.com/sfodje/perlcritic/src/process"
)

var log = logging.MustGetLogger("critic")

// runTimeout bounds a single perlcritic invocation. perlcritic can be slow on
// large documents but anything over this is presumed wedged.
const runTimeout = 60 * time.Second

// perlcritic's exit statuses: 0 means no violations, 2 means violations were
// found. Anything else is a genuine failure.
const exitViolationsFound = 2

// A Runner invokes perlcritic against document text and parses its output.
type Runner struct {
	executor *process.Executor
}

// NewRunner returns a new Runner.
func NewRunner() *Runner {
	return &Runner{executor: process.New()}
}

// Critique runs perlcritic as configured by the given settings, feeding it the
// document text on stdin, and returns the parsed critiques.
// Errors are terminal for the cycle; there is no partial result alongside one.
func (r *Runner) Critique(settings Settings, text string) ([]Critique, error) {
	exe, err := lookupExecutable(settings.Executable)
	if err != nil {
		return nil, err
	}
	args, err := settings.Args()
	if err != nil {
		return nil, err
	}
	log.Debug("Running %s with %d args", exe, len(args))
	stdout, stderr, err := r.executor.ExecWithStdin(runTimeout, text, append([]string{exe}, args...))
	if err != nil && !violationsFound(err) && len(stderr) == 0 {
		return nil, fmt.Errorf("Failed to run perlcritic: %s", err)
	}
	// Anything on stderr takes precedence over the exit status and stdout; Parse
	// surfaces it verbatim.
	return Parse(string(stdout), string(stderr))
}

// violationsFound returns true if the given error is perlcritic telling us,
// via its exit status, that it found violations. That's not a failure.
func violationsFound(err error) bool {
	exit := &exec.ExitError{}
	if errors.As(err, &exit) {
		return exit.ExitCode() == exitViolationsFound
	}
	return false
}

// lastValidated caches the most recently validated executable path so we don't
// stat it again on every keystroke.
var lastValidated struct {
	sync.Mutex
	configured, path string
}

// lookupExecutable resolves and validates the configured perlcritic executable.
func lookupExecutable(executable string) (string, error) {
	lastValidated.Lock()
	defer lastValidated.Unlock()
	if executable != "" && executable == lastValidated.configured {
		return lastValidated.path, nil
	}
	path, err := exec.LookPath(executable)
	if err != nil {
		return "", fmt.Errorf("Cannot find perlcritic executable %q: %s", executable, err)
	}
	if info, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("Cannot find perlcritic executable %q: %s", executable, err)
	} else if info.IsDir() {
		return "", fmt.Errorf("perlcritic executable %q is a directory", path)
	}
	lastValidated.configured = executable
	lastValidated.path = path
	return path, nil
}
