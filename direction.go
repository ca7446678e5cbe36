package kvstream

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Direction is the order in which a cursor visits keys.
type Direction uint8

const (
	// Next visits keys in ascending order, including duplicates.
	Next Direction = iota
	// NextUnique visits keys in ascending order, once per distinct key.
	NextUnique
	// Prev visits keys in descending order, including duplicates.
	Prev
	// PrevUnique visits keys in descending order, once per distinct key.
	PrevUnique
)

var directionNames = [...]string{
	Next:       "next",
	NextUnique: "nextunique",
	Prev:       "prev",
	PrevUnique: "prevunique",
}

// Forward reports whether keys are visited in ascending order.
func (d Direction) Forward() bool {
	return d == Next || d == NextUnique
}

// Unique reports whether duplicate keys are skipped.
func (d Direction) Unique() bool {
	return d == NextUnique || d == PrevUnique
}

// Valid reports whether d is one of the defined directions.
func (d Direction) Valid() bool {
	return int(d) < len(directionNames)
}

func (d Direction) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
	return directionNames[d]
}

// ParseDirection parses the text form produced by String.
// The empty string parses as Next.
func ParseDirection(s string) (Direction, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Next, nil
	}
	for d, name := range directionNames {
		if name == s {
			return Direction(d), nil
		}
	}
	return Next, errors.Wrapf(ErrInvalidArgument, "unknown direction %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, errors.Wrapf(ErrInvalidArgument, "unknown direction %d", uint8(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) (err error) {
	*d, err = ParseDirection(string(text))
	return
}
