// Package store persists linkage tables in SQLite.
//
// Each stage name owns one saved table: a runs row recording the run id, the
// save time, the column layout and the row count, plus one linkage_rows row
// per table row in order. SaveTable replaces a stage's table in a single
// transaction, so readers never observe a partial save.
//
// The database holds derived results and can always be rebuilt by rerunning
// the pipeline. Schema changes bump the version in schema.go; users delete
// the database to adopt the new schema.
package store
