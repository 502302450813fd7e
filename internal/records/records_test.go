package records

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadCatalog(t *testing.T) {
	input := "vendor,product,release,title,cpe23_name,cpe_name,extra\n" +
		"oracle,jre,1.8.0,Oracle JRE 1.8.0,cpe:2.3:a:oracle:jre:1.8.0:*:*:*:*:*:*:*,cpe:/a:oracle:jre:1.8.0,x\n" +
		",,,,,,\n" +
		"adobe,acrobat_reader,-,Adobe Acrobat Reader,cpe:2.3:a:adobe:acrobat_reader:-:*:*:*:*:*:*:*,cpe:/a:adobe:acrobat_reader:-\n"
	entries, err := ReadCatalog(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCatalog: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Vendor != "oracle" || entries[0].Name != "cpe:/a:oracle:jre:1.8.0" {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Release != "-" || entries[1].Title != "Adobe Acrobat Reader" {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
}

func TestReadInventoryColumnOrderAndCase(t *testing.T) {
	input := "\ufeffVersion,Display_Name,Publisher\n" +
		"11.0.23, Adobe Reader ,Adobe Systems Incorporated\n" +
		",7-Zip 19.00,Igor Pavlov\n"
	items, err := ReadInventory(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadInventory: %v", err)
	}
	want := []InventoryItem{
		{Publisher: "Adobe Systems Incorporated", DisplayName: "Adobe Reader", Version: "11.0.23"},
		{Publisher: "Igor Pavlov", DisplayName: "7-Zip 19.00", Version: ""},
	}
	if len(items) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(items))
	}
	for i := range want {
		if items[i] != want[i] {
			t.Fatalf("item %d = %+v, want %+v", i, items[i], want[i])
		}
	}
}

func TestReadInventoryMissingColumn(t *testing.T) {
	_, err := ReadInventory(strings.NewReader("publisher,version\nAcme,1\n"))
	if err == nil || !strings.Contains(err.Error(), "display_name") {
		t.Fatalf("expected missing column error, got %v", err)
	}
}

func TestReadEmptyInput(t *testing.T) {
	items, err := ReadInventory(strings.NewReader(""))
	if err != nil {
		t.Fatalf("expected no error for empty input, got %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no items, got %d", len(items))
	}
}

func TestLoadCatalogMissingFile(t *testing.T) {
	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "absent.csv")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadInventory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.csv")
	if err := os.WriteFile(path, []byte("publisher,display_name,version\nOracle Corporation,Java 8 Update 181,8.0.1810.13\n"), 0o644); err != nil {
		t.Fatalf("write inventory: %v", err)
	}
	items, err := LoadInventory(path)
	if err != nil {
		t.Fatalf("LoadInventory: %v", err)
	}
	if len(items) != 1 || items[0].Publisher != "Oracle Corporation" {
		t.Fatalf("unexpected items: %+v", items)
	}
}
