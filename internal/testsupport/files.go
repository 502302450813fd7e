package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// SampleCatalogCSV is a small catalog whose vendors and products pair with
// SampleInventoryCSV.
const SampleCatalogCSV = `vendor,product,release,title,cpe23_name,cpe_name
oracle,jre,1.8.0,Oracle JRE 1.8.0 Update 181,cpe:2.3:a:oracle:jre:1.8.0:update_181:*:*:*:*:*:*,cpe:/a:oracle:jre:1.8.0:update_181
adobe,flash_player,,Adobe Flash Player,cpe:2.3:a:adobe:flash_player:-:*:*:*:*:*:*:*,cpe:/a:adobe:flash_player:-
microsoft,office,2016,Microsoft Office 2016,cpe:2.3:a:microsoft:office:2016:*:*:*:*:*:*:*,cpe:/a:microsoft:office:2016
`

// SampleInventoryCSV is a small inventory matching SampleCatalogCSV.
const SampleInventoryCSV = `publisher,display_name,version
Oracle Corporation,Java 8 Update 181,8.0.1810
Adobe Systems Incorporated,Adobe Flash Player 32 NPAPI,32.0.0.453
Microsoft Corporation,Microsoft Office Professional Plus 2016,16.0.4266.1001
Unknown Vendor Labs,Widget,
`

// WriteText writes body to path, creating parent directories.
func WriteText(t testing.TB, path, body string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ConstantForest renders a one-tree forest artifact for stage whose single
// leaf predicts Positive when positive is set and Negative otherwise.
func ConstantForest(stage string, features []string, positive bool) string {
	value := [2]float64{1, 0}
	if positive {
		value = [2]float64{0, 1}
	}
	artifact := map[string]any{
		"name":           stage + "-constant",
		"stage":          stage,
		"schema_version": 1,
		"features":       features,
		"trees": []map[string]any{{
			"nodes": []map[string]any{{
				"feature":   -1,
				"threshold": 0,
				"left":      0,
				"right":     0,
				"value":     value,
			}},
		}},
	}
	data, err := json.Marshal(artifact)
	if err != nil {
		panic(err)
	}
	return string(data)
}
