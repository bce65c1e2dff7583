package sport

import (
	"fmt"
	"strings"
)

// Sport scopes every canonical identity. Aliases, provider ids and
// events are never matched across sports.
type Sport string

const (
	MLB Sport = "mlb"
	NFL Sport = "nfl"
	NBA Sport = "nba"
	NHL Sport = "nhl"
)

var AllSports = map[Sport]struct{}{
	MLB: {},
	NFL: {},
	NBA: {},
	NHL: {},
}

func Parse(value string) (Sport, error) {
	s := Sport(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := AllSports[s]; !ok {
		return "", fmt.Errorf("unknown sport: %q", value)
	}
	return s, nil
}

func (s Sport) Validate() error {
	if _, ok := AllSports[s]; !ok {
		return fmt.Errorf("invalid sport: %q", string(s))
	}
	return nil
}

func (s Sport) String() string {
	return string(s)
}
