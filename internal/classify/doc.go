// Package classify adapts pretrained binary classifiers to linkage tables.
//
// Models are loaded once per stage from a JSON random-forest artifact that
// carries the ordered feature names it was trained on. The Adapter refuses a
// model whose feature list differs from the stage schema.
package classify
