package subtitle

import (
	"errors"
	"fmt"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidFactor     = errors.New("scale factor must be a finite number greater than zero")
	ErrMalformedTimecode = errors.New("malformed timecode")
)

// HH:MM:SS,mmm as written by SRT producers
var timecodeRegex = regexp.MustCompile(`\d{2}:\d{2}:\d{2},\d{3}`)

// Timecode is an SRT timestamp. Hours are unbounded.
type Timecode struct {
	Hours   int64
	Minutes int64
	Seconds int64
	Millis  int64
}

// ParseTimecode parses the canonical "HH:MM:SS,mmm" form. Field ranges are
// not checked: the value is only ever used through TotalMillis.
func ParseTimecode(s string) (Timecode, error) {
	if len(s) != 12 || s[2] != ':' || s[5] != ':' || s[8] != ',' {
		return Timecode{}, fmt.Errorf("%w: %q", ErrMalformedTimecode, s)
	}

	fields := [4]string{s[0:2], s[3:5], s[6:8], s[9:12]}
	var values [4]int64
	for i, f := range fields {
		for _, r := range f {
			if r < '0' || r > '9' {
				return Timecode{}, fmt.Errorf("%w: %q", ErrMalformedTimecode, s)
			}
		}
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return Timecode{}, fmt.Errorf("%w: %q", ErrMalformedTimecode, s)
		}
		values[i] = v
	}

	return Timecode{
		Hours:   values[0],
		Minutes: values[1],
		Seconds: values[2],
		Millis:  values[3],
	}, nil
}

// TimecodeFromMillis decomposes a millisecond count. Negative input is clamped to zero.
func TimecodeFromMillis(ms int64) Timecode {
	if ms < 0 {
		ms = 0
	}
	return Timecode{
		Hours:   ms / 3600000,
		Minutes: (ms % 3600000) / 60000,
		Seconds: (ms % 60000) / 1000,
		Millis:  ms % 1000,
	}
}

func (t Timecode) TotalMillis() int64 {
	return ((t.Hours*60+t.Minutes)*60+t.Seconds)*1000 + t.Millis
}

func (t Timecode) Duration() time.Duration {
	return time.Duration(t.TotalMillis()) * time.Millisecond
}

func (t Timecode) String() string {
	return fmt.Sprintf("%02d:%02d:%02d,%03d", t.Hours, t.Minutes, t.Seconds, t.Millis)
}

// Scale multiplies the timecode by factor, truncating fractional milliseconds.
func (t Timecode) Scale(factor float64) (Timecode, error) {
	if err := ValidateFactor(factor); err != nil {
		return Timecode{}, err
	}
	scaled := math.Floor(float64(t.TotalMillis()) * factor)
	if scaled >= math.MaxInt64 {
		return Timecode{}, fmt.Errorf("%w: %s scaled by %g overflows", ErrInvalidFactor, t, factor)
	}
	return TimecodeFromMillis(int64(scaled)), nil
}

func ValidateFactor(factor float64) error {
	if math.IsNaN(factor) || math.IsInf(factor, 0) || factor <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidFactor, factor)
	}
	return nil
}

// Rescale multiplies every HH:MM:SS,mmm timecode in document by factor and
// leaves all other bytes untouched.
//
// Substitution is by value: each distinct timecode string is computed once
// and every occurrence of it gets the same replacement. Replacements are
// applied at the original match positions in a single pass, so a new value
// that equals some other original value is never rescaled a second time.
// Text that only looks similar (e.g. "1:00:00,000" or "00:00:00.000") is
// left alone.
func Rescale(document string, factor float64) (string, error) {
	if err := ValidateFactor(factor); err != nil {
		return "", err
	}

	locs := timecodeRegex.FindAllStringIndex(document, -1)
	if len(locs) == 0 {
		return document, nil
	}

	replacements := make(map[string]string, len(locs))
	var sb strings.Builder
	sb.Grow(len(document) + len(locs))

	last := 0
	for _, loc := range locs {
		original := document[loc[0]:loc[1]]

		replacement, ok := replacements[original]
		if !ok {
			tc, err := ParseTimecode(original)
			if err != nil {
				// regex only yields canonical matches; keep the text if that ever changes
				replacement = original
			} else {
				scaled, err := tc.Scale(factor)
				if err != nil {
					return "", err
				}
				replacement = scaled.String()
			}
			replacements[original] = replacement
		}

		sb.WriteString(document[last:loc[0]])
		sb.WriteString(replacement)
		last = loc[1]
	}
	sb.WriteString(document[last:])

	return sb.String(), nil
}

// RescaleFile rewrites the timecodes of a subtitle file in place.
// The factor is checked before the file is touched.
func RescaleFile(path string, factor float64) error {
	if err := ValidateFactor(factor); err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat subtitle file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read subtitle file: %w", err)
	}

	rescaled, err := Rescale(string(data), factor)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, []byte(rescaled), info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write subtitle file: %w", err)
	}

	return nil
}
