package cli

import (
	cliflags "github.com/peterebden/go-cli-init/v5/flags"
)

// ParseFlagsOrDie parses the app's flags and dies if unsuccessful.
// Also dies if any unexpected arguments are passed.
// It returns the active command if there is one.
func ParseFlagsOrDie(appname string, data interface{}) string {
	return cliflags.ParseFlagsOrDie(appname, data, nil)
}
