package records

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cpelink/internal/linkage"
)

// CatalogEntry is one row of the standardized vendor/software dictionary.
type CatalogEntry struct {
	Vendor  string
	Product string
	Release string
	Title   string
	// Name23 is the CPE 2.3 formatted name.
	Name23 string
	// Name is the CPE 2.2 URI carried into software linkage output.
	Name string
}

// InventoryItem is one locally observed software installation. An empty
// Version means the version was not recorded.
type InventoryItem struct {
	Publisher   string
	DisplayName string
	Version     string
}

var (
	catalogColumns   = []string{"vendor", "product", "release", "title", "cpe23_name", "cpe_name"}
	inventoryColumns = []string{"publisher", "display_name", "version"}
)

// CatalogColumns returns the header columns a catalog CSV must carry.
func CatalogColumns() []string { return append([]string(nil), catalogColumns...) }

// InventoryColumns returns the header columns an inventory CSV must carry.
func InventoryColumns() []string { return append([]string(nil), inventoryColumns...) }

// LoadCatalog reads catalog entries from a CSV file with a header row.
func LoadCatalog(path string) ([]CatalogEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer file.Close()
	entries, err := ReadCatalog(file)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return entries, nil
}

// ReadCatalog parses catalog CSV. Extra columns are ignored.
func ReadCatalog(r io.Reader) ([]CatalogEntry, error) {
	var entries []CatalogEntry
	err := readRows(r, catalogColumns, func(v []string) {
		entries = append(entries, CatalogEntry{
			Vendor:  v[0],
			Product: v[1],
			Release: v[2],
			Title:   v[3],
			Name23:  v[4],
			Name:    v[5],
		})
	})
	return entries, err
}

// LoadInventory reads inventory items from a CSV file with a header row.
func LoadInventory(path string) ([]InventoryItem, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open inventory: %w", err)
	}
	defer file.Close()
	items, err := ReadInventory(file)
	if err != nil {
		return nil, fmt.Errorf("read inventory %s: %w", path, err)
	}
	return items, nil
}

// ReadInventory parses inventory CSV. Extra columns are ignored.
func ReadInventory(r io.Reader) ([]InventoryItem, error) {
	var items []InventoryItem
	err := readRows(r, inventoryColumns, func(v []string) {
		items = append(items, InventoryItem{
			Publisher:   v[0],
			DisplayName: v[1],
			Version:     v[2],
		})
	})
	return items, err
}

// Header maps lower-cased, trimmed column names to their position.
type Header map[string]int

// ReadHeader consumes the first record of reader as a header.
func ReadHeader(reader *csv.Reader) (Header, error) {
	names, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, linkage.Wrap(linkage.ErrEmptyInput, "", "header", "no header row", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	header := make(Header, len(names))
	for i, name := range names {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := header[name]; !dup {
			header[name] = i
		}
	}
	return header, nil
}

// Missing returns the required columns absent from the header.
func (h Header) Missing(required []string) []string {
	var missing []string
	for _, column := range required {
		if _, ok := h[strings.ToLower(column)]; !ok {
			missing = append(missing, column)
		}
	}
	return missing
}

// Get returns the trimmed value of column in record, or "" when absent.
func (h Header) Get(record []string, column string) string {
	i, ok := h[strings.ToLower(column)]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// Has reports whether the header names column.
func (h Header) Has(column string) bool {
	_, ok := h[strings.ToLower(column)]
	return ok
}

// NewReader returns a CSV reader tolerant of ragged rows.
func NewReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true
	return reader
}

func readRows(r io.Reader, columns []string, emit func([]string)) error {
	reader := NewReader(r)
	header, err := ReadHeader(reader)
	if err != nil {
		if errors.Is(err, linkage.ErrEmptyInput) {
			return nil
		}
		return err
	}
	if missing := header.Missing(columns); len(missing) > 0 {
		return fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	values := make([]string, len(columns))
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read row: %w", err)
		}
		blank := true
		for i, column := range columns {
			values[i] = header.Get(record, column)
			if values[i] != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		emit(values)
	}
}
