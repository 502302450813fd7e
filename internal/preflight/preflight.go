package preflight

import (
	"cpelink/internal/candidates"
	"cpelink/internal/config"
	"cpelink/internal/linkage"
	"cpelink/internal/matcher"
	"cpelink/internal/records"
)

// Result reports the outcome of a single preflight check. A failed Advisory
// check is reported but does not block a run.
type Result struct {
	Name     string
	Passed   bool
	Advisory bool
	Detail   string
}

// Blocking reports whether the result should stop a run.
func (r Result) Blocking() bool {
	return !r.Passed && !r.Advisory
}

// RunAll executes every preflight check for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckRecordSet("Catalog", cfg.Paths.CatalogCSV, records.CatalogColumns()),
		CheckRecordSet("Inventory", cfg.Paths.InventoryCSV, records.InventoryColumns()),
		CheckStore("Store", cfg.Paths.StorePath),
	}

	stages := []struct {
		name      string
		schema    config.Schema
		modelPath string
		labelled  string
		fold      []string
	}{
		{matcher.StageVendor, cfg.Vendor.Schema, cfg.Vendor.ModelPath, cfg.Vendor.LabelledPath,
			[]string{candidates.ColPublisher, candidates.ColVendor}},
		{matcher.StageSoftware, cfg.Software.Schema, cfg.Software.ModelPath, cfg.Software.LabelledPath,
			[]string{candidates.ColVendor}},
	}
	for _, stage := range stages {
		schema, err := linkage.NewSchema(stage.name, stage.schema.KeyColumns, stage.schema.FeatureColumns, stage.schema.AttrColumns)
		if err != nil {
			results = append(results, Result{Name: stageTitle(stage.name) + " schema", Detail: err.Error()})
			continue
		}
		results = append(results,
			CheckModel(stageTitle(stage.name)+" model", stage.modelPath, schema),
			CheckLabelled(stageTitle(stage.name)+" labelled data", stage.labelled, schema, stage.fold),
		)
	}
	return results
}

// Failed reports whether any blocking check failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if r.Blocking() {
			return true
		}
	}
	return false
}

func stageTitle(stage string) string {
	switch stage {
	case matcher.StageVendor:
		return "Vendor"
	case matcher.StageSoftware:
		return "Software"
	default:
		return stage
	}
}
