package linkage

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingPartition marks a left record whose partition key has no right-hand group.
	ErrMissingPartition = errors.New("missing partition")
	// ErrMalformedLabelledSource marks labelled data that cannot be used as ground truth.
	ErrMalformedLabelledSource = errors.New("malformed labelled source")
	// ErrEmptyInput marks a stage input with no records.
	ErrEmptyInput = errors.New("empty input")
	// ErrSchemaMismatch marks a feature schema that differs from what a consumer expects.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrModelLoad marks a classifier artifact that could not be read or decoded.
	ErrModelLoad = errors.New("model load failure")
	// ErrEmptyName marks a null name handed to the normalizer.
	ErrEmptyName = errors.New("empty name")
	// ErrNotFound marks a stage with no persisted table.
	ErrNotFound = errors.New("not found")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker so callers can classify it with errors.Is.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		if err != nil {
			return fmt.Errorf("%s: %w", detail, err)
		}
		return errors.New(detail)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Recoverable reports whether a stage may continue after err with degraded input.
func Recoverable(err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrSchemaMismatch):
		return false
	case errors.Is(err, ErrMissingPartition),
		errors.Is(err, ErrMalformedLabelledSource),
		errors.Is(err, ErrModelLoad),
		errors.Is(err, ErrEmptyInput):
		return true
	default:
		return false
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "linkage failure"
	}
	return strings.Join(parts, ": ")
}
