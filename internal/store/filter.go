package store

// Filter maps logical field names to constraint values. A nil value
// matches rows where the field is NULL.
type Filter map[string]any

// Clone returns an independent copy of the filter.
func (f Filter) Clone() Filter {
	out := make(Filter, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// WithForced returns a copy of the filter with field set to value,
// overriding any caller-supplied constraint for that field. Composition
// is union-with-override: the forced constraint always wins.
func (f Filter) WithForced(field string, value any) Filter {
	out := f.Clone()
	out[field] = value
	return out
}
