// Package cli contains helper functions related to flag parsing and logging.
package cli

import (
	clilogging "github.com/peterebden/go-cli-init/v5/logging"
	"gopkg.in/op/go-logging.v1"
)

var log = logging.MustGetLogger("cli")

// MaxVerbosity is the maximum verbosity we support.
const MaxVerbosity = clilogging.MaxVerbosity

// A Verbosity is used as a flag to define logging verbosity.
type Verbosity = clilogging.Verbosity

// InitLogging initialises logging backends.
func InitLogging(verbosity Verbosity) {
	clilogging.InitLogging(verbosity)
}
