package tiers

import (
	"math"

	"github.com/shopspring/decimal"
)

// AmountPlaces is the minor-unit precision applied to resolved amounts.
const AmountPlaces = 2

// Quote is the outcome of resolving one input.
type Quote struct {
	RangeID string
	Label   string
	Input   float64
	Formula Formula
	Amount  decimal.Decimal
}

// AmountString formats the amount with fixed minor-unit precision.
func (q Quote) AmountString() string {
	return q.Amount.StringFixed(AmountPlaces)
}

// Resolve finds the active range whose [min, max) contains input and applies
// its formula, rounding half-up to two decimal places. Gaps are not filled:
// callers receive ErrNoMatchingRange and decide on their own fallback.
func Resolve(ranges []Range, input float64) (Quote, error) {
	if input < 0 || math.IsNaN(input) || math.IsInf(input, 0) {
		return Quote{}, ErrInvalidInput
	}

	sorted := cloneRanges(ranges)
	SortRanges(sorted)
	for _, r := range sorted {
		if !r.Active || !r.Contains(input) {
			continue
		}
		return Quote{
			RangeID: r.ID,
			Label:   r.Label,
			Input:   input,
			Formula: r.Formula,
			Amount:  Amount(r.Formula, input),
		}, nil
	}
	return Quote{}, ErrNoMatchingRange
}

// Amount evaluates base + perUnit*input in decimal arithmetic. Inputs are
// non-negative so rounding half away from zero is round-half-up.
func Amount(f Formula, input float64) decimal.Decimal {
	base := decimal.NewFromFloat(f.Base)
	perUnit := decimal.NewFromFloat(f.PerUnit)
	return base.Add(perUnit.Mul(decimal.NewFromFloat(input))).Round(AmountPlaces)
}

// Gap is an interval no active range covers. A nil Max extends to +Inf.
type Gap struct {
	Min float64
	Max *float64
}

// Gaps lists the uncovered intervals of [0, +Inf) given the active ranges.
func Gaps(ranges []Range) []Gap {
	sorted := cloneRanges(ranges)
	SortRanges(sorted)

	var (
		gaps   []Gap
		cursor = 0.0
	)
	for _, r := range sorted {
		if !r.Active {
			continue
		}
		if r.Min > cursor {
			gaps = append(gaps, Gap{Min: cursor, Max: Bound(r.Min)})
		}
		if r.Upper() > cursor {
			cursor = r.Upper()
		}
		if math.IsInf(cursor, 1) {
			return gaps
		}
	}
	return append(gaps, Gap{Min: cursor})
}
