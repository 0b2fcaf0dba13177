package promises

import (
	"strings"
	"time"

	"github.com/markusmobius/go-dateparser"

	"github.com/jimdaga/promise/internal/apperr"
)

// ParseTargetDate parses an explicit deadline. RFC 3339 is tried first, then
// natural language such as "tomorrow 9pm" relative to now. The result must be
// in the future.
func ParseTargetDate(input string, now time.Time) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Time{}, apperr.Validation("target_date is empty")
	}

	t, err := time.Parse(time.RFC3339, input)
	if err != nil {
		cfg := &dateparser.Configuration{
			CurrentTime: now,
		}
		result, perr := dateparser.Parse(cfg, input)
		if perr != nil {
			return time.Time{}, apperr.Validation("could not parse target_date %q", input)
		}
		t = result.Time
	}

	if !t.After(now) {
		return time.Time{}, apperr.Validation("target_date must be in the future")
	}
	return t.UTC(), nil
}
