package linkage

import (
	"fmt"
	"strconv"
	"strings"
)

// Label is the match verdict attached to a candidate pair.
type Label int8

const (
	Unknown Label = iota
	Negative
	Positive
)

func (l Label) String() string {
	switch l {
	case Negative:
		return "negative"
	case Positive:
		return "positive"
	default:
		return "unknown"
	}
}

// Known reports whether the label carries a verdict.
func (l Label) Known() bool {
	return l == Negative || l == Positive
}

// Wire returns the 0/1 encoding used by labelled sources; Unknown encodes as an empty string.
func (l Label) Wire() string {
	switch l {
	case Negative:
		return "0"
	case Positive:
		return "1"
	default:
		return ""
	}
}

// ParseLabel decodes a labelled-source match value. Accepts 0/1 and their float forms.
func ParseLabel(raw string) (Label, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Unknown, nil
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return Unknown, fmt.Errorf("parse match value %q: %w", raw, err)
	}
	switch value {
	case 0:
		return Negative, nil
	case 1:
		return Positive, nil
	default:
		return Unknown, fmt.Errorf("match value %q must be 0 or 1", raw)
	}
}

// Source records where a row's label came from.
type Source string

const (
	SourceGenerated  Source = "generated"
	SourceLabelled   Source = "labelled"
	SourceClassified Source = "classified"
)
