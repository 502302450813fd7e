package normalize

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LoadStopWords reads a stop-word list. CSV files contribute their first
// column and have a header row; any other file is read one word per line.
// Lines starting with '#' are ignored.
func LoadStopWords(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open stop words: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	if !strings.EqualFold(filepath.Ext(path), ".csv") {
		reader.Comma = '\t'
		reader.LazyQuotes = true
	}

	skipHeader := strings.EqualFold(filepath.Ext(path), ".csv")
	var words []string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read stop words %s: %w", path, err)
		}
		if skipHeader {
			skipHeader = false
			continue
		}
		if len(record) == 0 {
			continue
		}
		if word := strings.TrimSpace(record[0]); word != "" {
			words = append(words, word)
		}
	}
	return words, nil
}
