package tle

import (
	"bufio"
	"bytes"
	"fmt"
	"log/slog"
	"strings"
)

// maxLineBytes bounds a single catalog line; real element lines are 69 bytes.
const maxLineBytes = 1 << 20

// Group is one raw name/line1/line2 triple taken from a source.
type Group struct {
	Index int
	Name  string
	Line1 string
	Line2 string
}

// Groups splits a source into consecutive 3-line groups. Lines are never
// skipped or resynchronized: the Nth group is always lines 3N..3N+2.
// A trailing group with fewer than 3 lines is dropped; its length is returned
// as tail.
func Groups(src Source) (groups []Group, tail int, err error) {
	scanner := bufio.NewScanner(bytes.NewReader(src.Data))
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r\n\t "))
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("reading source %q: %w", src.Name, err)
	}

	groups = make([]Group, 0, len(lines)/3)
	for i := 0; i+2 < len(lines); i += 3 {
		groups = append(groups, Group{
			Index: len(groups),
			Name:  lines[i],
			Line1: lines[i+1],
			Line2: lines[i+2],
		})
	}

	return groups, len(lines) % 3, nil
}

// Parse reads 3-line TLE format from src and returns the entries that decode.
// Malformed entries are skipped with a warning log and reported as ParseErrors;
// they never abort the parse. The returned error is only set when the source
// itself cannot be read.
func Parse(src Source, logger *slog.Logger) ([]Entry, []*ParseError, error) {
	groups, tail, err := Groups(src)
	if err != nil {
		return nil, nil, err
	}
	if tail > 0 {
		logger.Debug("discarding incomplete trailing TLE group", "source", src.Name, "lines", tail)
	}

	entries := make([]Entry, 0, len(groups))
	var skipped []*ParseError
	for _, g := range groups {
		entry, err := ParseEntry(g.Name, g.Line1, g.Line2)
		if err != nil {
			pe := &ParseError{Source: src.Name, Index: g.Index, Name: strings.TrimSpace(g.Name), Err: err}
			logger.Warn("skipping malformed TLE entry",
				"source", src.Name,
				"index", g.Index,
				"name", pe.Name,
				"error", err,
			)
			skipped = append(skipped, pe)
			continue
		}
		entry.Index = g.Index
		entries = append(entries, entry)
	}

	return entries, skipped, nil
}
