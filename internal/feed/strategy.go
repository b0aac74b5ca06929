package feed

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownStrategy is returned by ParseStrategy for unrecognised names
var ErrUnknownStrategy = errors.New("unknown feed strategy")

// Strategy is a named ranking rule applied to a proximity filtered post set
type Strategy string

const (
	// Recent orders by creation time, newest first
	Recent Strategy = "recent"
	// Popular orders by engagement score, newest first on ties
	Popular Strategy = "popular"
	// Nearby orders by distance, newest first on ties
	Nearby Strategy = "nearby"
)

// ParseStrategy accepts a strategy name in any case. Empty selects Recent.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", Recent:
		return Recent, nil
	case Popular:
		return Popular, nil
	case Nearby:
		return Nearby, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownStrategy, s)
}

func (s Strategy) String() string {
	return string(s)
}
