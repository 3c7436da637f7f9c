// Package critic implements parsing of perlcritic's output into structured critiques.
//
// perlcritic is invoked with a custom --verbose template (see OutputTemplate) so
// that its output arrives as a sequence of records with literal delimiters that
// are unlikely to occur in natural policy prose. There is no escaping mechanism;
// the format is a structural assumption on the tool's output, not a general one.
package critic

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/peterebden/go-deferred-regex"
)

const (
	// endOfRecord terminates each record in the --verbose output.
	endOfRecord = "[[END]]"
	// fieldSeparator separates the positional fields within one record.
	fieldSeparator = "[>]"
)

// OutputTemplate is the --verbose template passed to perlcritic. It is the wire
// contract between the tool and Parse; the runner and the parser must agree on
// it exactly.
const OutputTemplate = "%l" + fieldSeparator + "%c" + fieldSeparator + "%s" + fieldSeparator + "%m. %e (%p)" + fieldSeparator + "%d" + endOfRecord

// ansiEscapes matches CSI-style terminal escape sequences; some configurations of
// perlcritic colourise output even when asked not to.
var ansiEscapes = deferredregex.DeferredRegex{Re: "(?:\x1b\\[|)[0-?]*[ -/]*[@-~]"}

// A Critique is a single issue reported by perlcritic, normalised to zero-based
// line and column indices and a zero-based severity rank.
type Critique struct {
	// Line is the zero-based line the critique applies to.
	Line int
	// Column is the zero-based column the critique starts at.
	Column int
	// Severity is the zero-based severity rank; higher is more severe.
	Severity int
	// Summary is the short human-readable message.
	Summary string
	// Explanation is the longer description, usually the policy name.
	Explanation string
}

// Parse parses the complete captured output of one perlcritic run into critiques.
//
// A non-empty stderr indicates the tool itself failed and takes absolute
// precedence; it is returned verbatim as the error and stdout is not parsed.
// Otherwise parsing is all-or-nothing: the first record that fails numeric field
// validation turns the whole result into an error and any critiques accumulated
// from earlier records are discarded.
func Parse(stdout, stderr string) ([]Critique, error) {
	if stderr != "" {
		return nil, errors.New(stderr)
	}
	critiques := []Critique{}
	if stdout == "" {
		return critiques, nil
	}
	for _, record := range strings.Split(stdout, endOfRecord) {
		record = strings.TrimSpace(record)
		if record == "" {
			continue // Benign split artifact; output normally ends with the marker.
		}
		c, ok, err := parseRecord(ansiEscapes.ReplaceAllString(record, ""))
		if err != nil {
			return nil, err
		} else if ok {
			critiques = append(critiques, c)
		}
	}
	return critiques, nil
}

// parseRecord parses a single cleaned record. The second return value is false
// for records that parse but should not produce a critique: perlcritic reports
// severity 0 for suppressed violations and those are silently dropped.
func parseRecord(record string) (Critique, bool, error) {
	fields := strings.SplitN(record, fieldSeparator, 5)
	// Records with missing trailing fields just leave those fields empty.
	for len(fields) < 5 {
		fields = append(fields, "")
	}
	line, err := parseField("line number", fields[0], record)
	if err != nil {
		return Critique{}, false, err
	}
	column, err := parseField("column number", fields[1], record)
	if err != nil {
		return Critique{}, false, err
	}
	severity, err := parseField("severity", fields[2], record)
	if err != nil {
		return Critique{}, false, err
	}
	if severity == 0 {
		return Critique{}, false, nil
	}
	return Critique{
		Line:        clamp(line - 1),
		Column:      clamp(column - 1),
		Severity:    clamp(severity - 1),
		Summary:     strings.TrimSpace(fields[3]),
		Explanation: strings.TrimSpace(fields[4]),
	}, true, nil
}

// parseField parses one numeric field of a record. Non-numeric text here is the
// only reliable signal of malformed output, so it is a hard error; the raw record
// is embedded in the message to aid debugging the --verbose configuration.
func parseField(name, value, record string) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("Unexpected perlcritic output; is the --verbose setting correct? Could not parse %s from %q in record %q", name, value, record)
	}
	return i, nil
}

func clamp(i int) int {
	if i < 0 {
		return 0
	}
	return i
}
