package preflight

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"cpelink/internal/classify"
	"cpelink/internal/labelled"
	"cpelink/internal/linkage"
	"cpelink/internal/records"
	"cpelink/internal/store"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckRecordSet verifies that a CSV record set is readable and its header
// carries the required columns.
func CheckRecordSet(name, path string, required []string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "path not configured"}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	file, err := os.Open(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	defer file.Close()

	header, err := records.ReadHeader(records.NewReader(file))
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if missing := header.Missing(required); len(missing) > 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: missing columns %s)", path, strings.Join(missing, ", "))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (header ok)", path)}
}

// CheckModel verifies that the classifier artifact loads and was trained on
// the stage's feature columns. A stage without a model still runs, so the
// check is advisory.
func CheckModel(name, path string, schema linkage.Schema) Result {
	forest, err := classify.LoadForest(path)
	if err != nil {
		return Result{Name: name, Advisory: true, Detail: fmt.Sprintf("%s (unusable: only labelled matches will be linked)", path)}
	}
	if _, err := classify.New(forest, schema); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d trees, %d features)", path, len(forest.Trees), len(forest.FeatureNames))}
}

// CheckLabelled verifies that the labelled source parses against the stage
// schema. Missing ground truth only weakens a run, so the check is advisory.
func CheckLabelled(name, path string, schema linkage.Schema, foldColumns []string) Result {
	file, err := os.Open(path)
	if err != nil {
		return Result{Name: name, Advisory: true, Detail: fmt.Sprintf("%s (unavailable: %v)", path, errors.Unwrap(err))}
	}
	defer file.Close()
	examples, err := labelled.Read(file, schema, labelled.ReadOptions{FoldColumns: foldColumns})
	if err != nil {
		return Result{Name: name, Advisory: true, Detail: fmt.Sprintf("%s (malformed: %v)", path, err)}
	}
	counts := examples.Counts()
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d positive, %d negative)",
		path, counts[linkage.Positive], counts[linkage.Negative])}
}

// CheckStore verifies that the store database opens with the expected
// schema version. A missing database is created on the first run.
func CheckStore(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "path not configured"}
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		dir := filepath.Dir(path)
		if _, statErr := os.Stat(dir); statErr == nil {
			if err := unix.Access(dir, unix.W_OK); err != nil {
				return Result{Name: name, Detail: fmt.Sprintf("%s (error: directory not writable: %v)", path, err)}
			}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (created on first run)", path)}
	}
	s, err := store.Open(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	defer s.Close()
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (schema ok)", path)}
}
