package candidates

import (
	"fmt"
	"slices"

	"cpelink/internal/linkage"
)

// projector lays named values out in schema column order.
type projector struct {
	keys  []string
	attrs []string
}

func newProjector(schema linkage.Schema, keyNames, attrNames []string) (projector, error) {
	for _, column := range schema.KeyColumns {
		if !slices.Contains(keyNames, column) {
			return projector{}, linkage.Wrap(linkage.ErrSchemaMismatch, schema.Stage, "candidates",
				fmt.Sprintf("key column %q is not produced by this stage", column), nil)
		}
	}
	for _, column := range schema.AttrColumns {
		if !slices.Contains(attrNames, column) {
			return projector{}, linkage.Wrap(linkage.ErrSchemaMismatch, schema.Stage, "candidates",
				fmt.Sprintf("attribute column %q is not produced by this stage", column), nil)
		}
	}
	return projector{keys: slices.Clone(schema.KeyColumns), attrs: slices.Clone(schema.AttrColumns)}, nil
}

func (p projector) key(values map[string]string) []string {
	return pick(p.keys, values)
}

func (p projector) attrValues(values map[string]string) []string {
	return pick(p.attrs, values)
}

func pick(columns []string, values map[string]string) []string {
	out := make([]string, len(columns))
	for i, column := range columns {
		out[i] = values[column]
	}
	return out
}
