// Package tiers implements tiered, non-overlapping numeric ranges that map a
// scalar input (delivery distance, order value) to a linear fee formula.
//
// A category holds a set of ranges. Active ranges never overlap on their
// half-open [min, max) intervals and no two ranges share a lower bound.
// Mutations go through Store, which validates locally before touching the
// remote persistence service.
package tiers

import (
	"math"
	"sort"
	"strings"
)

// Category names one independent set of ranges.
type Category string

const (
	CategoryCommission Category = "delivery-commission"
	CategoryFee        Category = "delivery-fee"
)

// Policy describes how a category behaves.
type Policy struct {
	Category Category
	Title    string
	// InputLabel names what the resolver input measures.
	InputLabel string
	InputUnit  string
	// RequireOne forbids removing or deactivating the last active range.
	RequireOne bool
}

var policies = []Policy{
	{
		Category:   CategoryCommission,
		Title:      "配達パートナー報酬",
		InputLabel: "距離",
		InputUnit:  "km",
		RequireOne: true,
	},
	{
		Category:   CategoryFee,
		Title:      "配送料",
		InputLabel: "注文金額",
		InputUnit:  "円",
	},
}

// Policies returns every known category policy in display order.
func Policies() []Policy {
	out := make([]Policy, len(policies))
	copy(out, policies)
	return out
}

// PolicyFor looks up the policy of the named category.
func PolicyFor(category Category) (Policy, error) {
	for _, p := range policies {
		if p.Category == category {
			return p, nil
		}
	}
	return Policy{}, ErrUnknownCategory
}

// ParseCategory converts a raw path segment into a known category.
func ParseCategory(raw string) (Category, error) {
	category := Category(strings.TrimSpace(strings.ToLower(raw)))
	if _, err := PolicyFor(category); err != nil {
		return "", err
	}
	return category, nil
}

// Formula computes base + perUnit * input.
type Formula struct {
	Base    float64 `json:"base" firestore:"base"`
	PerUnit float64 `json:"perUnit" firestore:"perUnit"`
}

// Range is one tier. A nil Max means the range has no upper bound.
type Range struct {
	ID      string   `json:"id" firestore:"id"`
	Label   string   `json:"label" firestore:"label"`
	Min     float64  `json:"min" firestore:"min"`
	Max     *float64 `json:"max" firestore:"max"`
	Formula Formula  `json:"formula" firestore:"formula"`
	Active  bool     `json:"active" firestore:"active"`
	// Seq orders ranges sharing a display position; assigned locally on merge.
	Seq int `json:"-" firestore:"-"`
}

// Unbounded reports whether the range extends to +Inf.
func (r Range) Unbounded() bool { return r.Max == nil }

// Upper returns the exclusive upper bound, +Inf when unbounded.
func (r Range) Upper() float64 { return upper(r.Max) }

// Contains reports whether input falls inside [Min, Max).
func (r Range) Contains(input float64) bool {
	return input >= r.Min && input < r.Upper()
}

// Draft returns the editable fields of the range.
func (r Range) Draft() Draft {
	return Draft{
		Label:   r.Label,
		Min:     r.Min,
		Max:     cloneBound(r.Max),
		Formula: r.Formula,
	}
}

// Draft is a candidate range as entered by an operator, without identity or state.
type Draft struct {
	Label   string   `json:"label"`
	Min     float64  `json:"min"`
	Max     *float64 `json:"max"`
	Formula Formula  `json:"formula"`
}

// Unbounded reports whether the draft has no upper bound.
func (d Draft) Unbounded() bool { return d.Max == nil }

// Upper returns the exclusive upper bound, +Inf when unbounded.
func (d Draft) Upper() float64 { return upper(d.Max) }

// Apply copies the draft fields onto r, leaving identity and state untouched.
func (d Draft) Apply(r Range) Range {
	r.Label = strings.TrimSpace(d.Label)
	r.Min = d.Min
	r.Max = cloneBound(d.Max)
	r.Formula = d.Formula
	return r
}

func (d Draft) normalized() Draft {
	d.Label = strings.TrimSpace(d.Label)
	d.Max = cloneBound(d.Max)
	return d
}

// Bound is a helper for building finite upper bounds.
func Bound(v float64) *float64 {
	return &v
}

func cloneBound(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func upper(bound *float64) float64 {
	if bound == nil {
		return math.Inf(1)
	}
	return *bound
}

func overlaps(aMin, aMax, bMin, bMax float64) bool {
	return aMin < bMax && bMin < aMax
}

// SortRanges orders ranges by lower bound, then by local sequence.
func SortRanges(ranges []Range) {
	sort.SliceStable(ranges, func(i, j int) bool {
		if ranges[i].Min != ranges[j].Min {
			return ranges[i].Min < ranges[j].Min
		}
		return ranges[i].Seq < ranges[j].Seq
	})
}

func cloneRanges(ranges []Range) []Range {
	if ranges == nil {
		return nil
	}
	out := make([]Range, len(ranges))
	for i, r := range ranges {
		r.Max = cloneBound(r.Max)
		out[i] = r
	}
	return out
}
