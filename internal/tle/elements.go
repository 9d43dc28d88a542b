package tle

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// lineLength is the fixed width of both element lines, checksum included.
const lineLength = 69

// ErrMalformed is wrapped by every element-line decoding failure.
var ErrMalformed = errors.New("malformed element set")

// ParseError describes one catalog entry that was skipped while loading.
type ParseError struct {
	Source string // source name, e.g. "stations"
	Index  int    // zero-based group index within the source
	Name   string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("source %q entry %d (%s): %v", e.Source, e.Index, e.Name, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseEntry decodes a name line and two element lines into an Entry.
//
// Every numeric column is decoded exactly as the SGP4 model reads it. The model
// aborts the process on input it cannot read, so nothing reaches it without
// passing here first.
func ParseEntry(name, line1, line2 string) (Entry, error) {
	name = strings.TrimSpace(name)
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)

	if len(line1) != lineLength {
		return Entry{}, fmt.Errorf("%w: line1 length %d, expected %d", ErrMalformed, len(line1), lineLength)
	}
	if len(line2) != lineLength {
		return Entry{}, fmt.Errorf("%w: line2 length %d, expected %d", ErrMalformed, len(line2), lineLength)
	}
	if !strings.HasPrefix(line1, "1 ") {
		return Entry{}, fmt.Errorf("%w: line1 must start with \"1 \"", ErrMalformed)
	}
	if !strings.HasPrefix(line2, "2 ") {
		return Entry{}, fmt.Errorf("%w: line2 must start with \"2 \"", ErrMalformed)
	}

	noradStr := strings.TrimSpace(line1[2:7])
	noradID, err := strconv.Atoi(noradStr)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: invalid catalog number %q", ErrMalformed, noradStr)
	}
	if other := strings.TrimSpace(line2[2:7]); other != noradStr {
		return Entry{}, fmt.Errorf("%w: catalog numbers differ between lines (%q, %q)", ErrMalformed, noradStr, other)
	}

	epochStr := line1[18:32]
	epoch, err := parseEpoch(epochStr)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var el Elements
	el.Classification = line1[7]
	el.IntlDesignator = strings.TrimSpace(line1[9:17])

	fields := []struct {
		label string
		raw   string
		dst   *float64
	}{
		{"mean motion first derivative", squeeze(line1[33:43]), &el.MeanMotionDot},
		{"mean motion second derivative", squeeze(impliedExponent(line1[44:52])), &el.MeanMotionDDot},
		{"bstar", squeeze(impliedExponent(line1[53:61])), &el.BStar},
		{"inclination", squeeze(line2[8:16]), &el.Inclination},
		{"right ascension", squeeze(line2[17:25]), &el.RAAN},
		{"eccentricity", "." + line2[26:33], &el.Eccentricity},
		{"argument of perigee", squeeze(line2[34:42]), &el.ArgPerigee},
		{"mean anomaly", squeeze(line2[43:51]), &el.MeanAnomaly},
		{"mean motion", squeeze(line2[52:63]), &el.MeanMotion},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(f.raw, 64)
		if err != nil {
			return Entry{}, fmt.Errorf("%w: invalid %s %q", ErrMalformed, f.label, f.raw)
		}
		*f.dst = v
	}

	if el.MeanMotion <= 0 {
		return Entry{}, fmt.Errorf("%w: mean motion must be positive, got %g", ErrMalformed, el.MeanMotion)
	}
	if el.Inclination < 0 || el.Inclination > 180 {
		return Entry{}, fmt.Errorf("%w: inclination %g out of range", ErrMalformed, el.Inclination)
	}

	// Bookkeeping columns are not read by the model; tolerate blanks.
	el.ElementSetNumber, _ = strconv.Atoi(strings.TrimSpace(line1[64:68]))
	el.RevolutionNumber, _ = strconv.Atoi(strings.TrimSpace(line2[63:68]))

	return Entry{
		Name:     name,
		NORADID:  noradID,
		Epoch:    epoch,
		Line1:    line1,
		Line2:    line2,
		Elements: el,
	}, nil
}

// squeeze drops at most two blanks, the same normalization the SGP4 reader applies.
func squeeze(s string) string {
	return strings.Replace(s, " ", "", 2)
}

// impliedExponent expands the TLE "assumed decimal point" notation,
// e.g. " 10270-3" -> " .10270e-3".
func impliedExponent(s string) string {
	return s[0:1] + "." + s[1:6] + "e" + s[6:8]
}

// parseEpoch converts a TLE epoch string in YYDDD.DDDDDDDD format to time.Time.
// Year 00-56 → 2000s, 57-99 → 1900s.
func parseEpoch(s string) (time.Time, error) {
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("epoch string too short: %q", s)
	}

	yearStr := s[:2]
	dayStr := s[2:]

	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch year %q: %w", yearStr, err)
	}

	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}

	dayOfYear, err := strconv.ParseFloat(dayStr, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch day %q: %w", dayStr, err)
	}
	if dayOfYear < 1 || dayOfYear >= 367 {
		return time.Time{}, fmt.Errorf("epoch day %g out of range", dayOfYear)
	}

	// dayOfYear is 1-based: day 1.0 = Jan 1 00:00.
	t := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	t = t.Add(time.Duration((dayOfYear - 1) * float64(24*time.Hour)))

	return t, nil
}
