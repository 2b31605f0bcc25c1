package tiers

import "github.com/oklog/ulid/v2"

// IDGenerator produces identifiers for stores that do not assign their own.
type IDGenerator func() string

// NewULID returns a lexically sortable identifier.
func NewULID() string {
	return ulid.Make().String()
}

// documentEdit applies one mutation to a whole-category rule array. Stores
// that persist the category as a single document share these helpers.
type documentEdit func(rules []Range) ([]Range, Range, error)

func documentCreate(id string, draft Draft) documentEdit {
	return func(rules []Range) ([]Range, Range, error) {
		created := draft.Apply(Range{ID: id, Active: true})
		return append(cloneRanges(rules), created), created, nil
	}
}

func documentUpdate(id string, draft Draft) documentEdit {
	return func(rules []Range) ([]Range, Range, error) {
		out := cloneRanges(rules)
		for i := range out {
			if out[i].ID == id {
				out[i] = draft.Apply(out[i])
				return out, out[i], nil
			}
		}
		return nil, Range{}, ErrRangeNotFound
	}
}

func documentSetActive(id string, active bool) documentEdit {
	return func(rules []Range) ([]Range, Range, error) {
		out := cloneRanges(rules)
		for i := range out {
			if out[i].ID == id {
				out[i].Active = active
				return out, out[i], nil
			}
		}
		return nil, Range{}, ErrRangeNotFound
	}
}

func documentDelete(id string) documentEdit {
	return func(rules []Range) ([]Range, Range, error) {
		out := make([]Range, 0, len(rules))
		var removed *Range
		for _, r := range cloneRanges(rules) {
			if r.ID == id {
				r := r
				removed = &r
				continue
			}
			out = append(out, r)
		}
		if removed == nil {
			return nil, Range{}, ErrRangeNotFound
		}
		return out, *removed, nil
	}
}
