package dbsession

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultTimeZone is the fixed offset applied to every request session.
const DefaultTimeZone = "-08:00"

// strictModeSQL pins standard_conforming_strings. It is already the server
// default, so it only changes behavior where a role or database sets it off.
const strictModeSQL = `SET SESSION standard_conforming_strings = on`

var tzOffsetRe = regexp.MustCompile(`^[+-](0[0-9]|1[0-4]):[0-5][0-9]$`)

// SessionStatements returns the statements applied, in order, to every acquired connection.
// offset must look like "-08:00" or "+05:30"; empty means DefaultTimeZone.
func SessionStatements(offset string) ([]string, error) {
	offset = strings.TrimSpace(offset)
	if offset == "" {
		offset = DefaultTimeZone
	}
	if !tzOffsetRe.MatchString(offset) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimeZone, offset)
	}

	// offset is validated above; it is safe to inline as a literal.
	return []string{
		strictModeSQL,
		`SET SESSION TIME ZONE INTERVAL '` + offset + `' HOUR TO MINUTE`,
	}, nil
}
