package models

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// ID is an upstream identifier (stream, category, series or episode id).
// Xtream panels encode ids as JSON numbers or JSON strings depending on the
// endpoint and panel version; ID decodes both and always holds the canonical
// decimal form, so 7, 7.0 and "7" compare equal.
type ID string

// NormalizeID returns the canonical form of a raw identifier.
// Integer-valued input is rendered without sign padding or leading zeros;
// anything else is only trimmed.
func NormalizeID(raw string) ID {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ID(strconv.FormatInt(n, 10))
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) {
		return ID(strconv.FormatInt(int64(f), 10))
	}
	return ID(s)
}

// NormalizeIDs canonicalizes every element and drops empties and duplicates,
// preserving first-seen order.
func NormalizeIDs(raw []string) []ID {
	out := make([]ID, 0, len(raw))
	seen := make(map[ID]struct{}, len(raw))
	for _, r := range raw {
		id := NormalizeID(r)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (id ID) String() string { return string(id) }

// Int returns the numeric value of the id, or 0 when it is not numeric.
func (id ID) Int() int64 {
	n, _ := strconv.ParseInt(string(id), 10, 64)
	return n
}

// UnmarshalJSON accepts a JSON string, number or null.
func (id *ID) UnmarshalJSON(b []byte) error {
	s, err := scalarString(b)
	if err != nil {
		return err
	}
	*id = NormalizeID(s)
	return nil
}

// Flex is a display scalar the upstream sends as either a string or a number
// (ratings, episode numbers, durations).
type Flex string

// UnmarshalJSON accepts a JSON string, number, bool or null.
func (f *Flex) UnmarshalJSON(b []byte) error {
	s, err := scalarString(b)
	if err != nil {
		return err
	}
	*f = Flex(s)
	return nil
}

func (f Flex) String() string { return string(f) }

// Int parses the value as an integer, tolerating a fractional part.
func (f Flex) Int() int {
	s := strings.TrimSpace(string(f))
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return int(v)
	}
	return 0
}

// Float parses the value as a float, returning 0 when empty or invalid.
func (f Flex) Float() float64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(string(f)), 64)
	return v
}

func scalarString(b []byte) (string, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return "", nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	// Numbers and booleans are kept as their literal text.
	return string(b), nil
}
