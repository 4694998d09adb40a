package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period is a duration rendered on the wire as an RFC 3339 period string
// (e.g. "PT10.132S"), the format the report uses for every elapsed-time
// field instead of a raw number of milliseconds.
type Period time.Duration

// NewPeriod converts a time.Duration to a Period.
func NewPeriod(d time.Duration) Period { return Period(d) }

// Duration returns the underlying time.Duration.
func (p Period) Duration() time.Duration { return time.Duration(p) }

func (p Period) String() string {
	seconds := time.Duration(p).Seconds()
	return fmt.Sprintf("PT%sS", strconv.FormatFloat(seconds, 'f', -1, 64))
}

func (p Period) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

func (p *Period) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	d, err := ParsePeriod(s)
	if err != nil {
		return err
	}
	*p = d
	return nil
}

// ParsePeriod parses the restricted subset of RFC 3339 periods this package
// emits: "PT<seconds>S", seconds being a non-negative decimal.
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "PT") || !strings.HasSuffix(s, "S") {
		return 0, fmt.Errorf("types: invalid period %q: want PT<seconds>S", s)
	}
	secondsStr := s[2 : len(s)-1]
	seconds, err := strconv.ParseFloat(secondsStr, 64)
	if err != nil {
		return 0, fmt.Errorf("types: invalid period %q: %w", s, err)
	}
	return Period(time.Duration(seconds * float64(time.Second))), nil
}
