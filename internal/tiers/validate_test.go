package tiers

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func commissionSet() []Range {
	return []Range{
		{ID: "near", Label: "近距離", Min: 0, Max: Bound(2), Formula: Formula{Base: 20, PerUnit: 15}, Active: true},
		{ID: "far", Label: "遠距離", Min: 2, Formula: Formula{Base: 10, PerUnit: 8}, Active: true},
	}
}

func validationErr(t *testing.T, err error) *ValidationError {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected *ValidationError, got %v", err)
	return verr
}

func TestValidateRejectsOverlapNamingConflict(t *testing.T) {
	t.Parallel()

	existing := []Range{
		{ID: "a", Label: "0-2km", Min: 0, Max: Bound(2), Active: true},
	}
	err := Validate(Draft{Label: "1-3km", Min: 1, Max: Bound(3)}, existing, "")

	verr := validationErr(t, err)
	require.True(t, verr.Has(FieldRange, CodeOverlap))
	overlap := verr.Field(FieldRange)[0]
	require.Equal(t, "a", overlap.ConflictID)
	require.Equal(t, "0-2km", overlap.ConflictLabel)
	require.Contains(t, overlap.Message, "0-2km")
}

func TestValidateAllowsAdjacentRanges(t *testing.T) {
	t.Parallel()

	existing := []Range{
		{ID: "a", Label: "first", Min: 0, Max: Bound(2), Active: true},
	}
	require.NoError(t, Validate(Draft{Label: "second", Min: 2, Max: Bound(5)}, existing, ""))
}

func TestValidateIgnoresInactiveForOverlap(t *testing.T) {
	t.Parallel()

	existing := []Range{
		{ID: "a", Label: "old", Min: 0, Max: Bound(10), Active: false},
	}
	require.NoError(t, Validate(Draft{Label: "new", Min: 1, Max: Bound(3)}, existing, ""))
}

func TestValidateUnboundedUniqueness(t *testing.T) {
	t.Parallel()

	err := Validate(Draft{Label: "another open", Min: 10}, commissionSet(), "")

	verr := validationErr(t, err)
	require.True(t, verr.Has(FieldMax, CodeUnboundedTaken))
	require.True(t, verr.Has(FieldRange, CodeOverlap))
}

func TestValidateEditExcludesItself(t *testing.T) {
	t.Parallel()

	set := commissionSet()
	require.NoError(t, Validate(set[0].Draft(), set, set[0].ID))
	require.NoError(t, Validate(set[1].Draft(), set, set[1].ID))

	err := Validate(set[0].Draft(), set, "")
	require.True(t, validationErr(t, err).Has(FieldMin, CodeDuplicateMin))
}

func TestValidateCollectsEveryViolation(t *testing.T) {
	t.Parallel()

	err := Validate(Draft{
		Label:   "  ",
		Min:     -1,
		Max:     Bound(5),
		Formula: Formula{Base: -2, PerUnit: -0.5},
	}, nil, "")

	verr := validationErr(t, err)
	require.True(t, verr.Has(FieldLabel, CodeRequired))
	require.True(t, verr.Has(FieldMin, CodeNegative))
	require.True(t, verr.Has(FieldBase, CodeNegative))
	require.True(t, verr.Has(FieldPerUnit, CodeNegative))
	require.Len(t, verr.Errors, 4)
}

func TestValidateMaxMustExceedMin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		max  float64
	}{
		{name: "equal", max: 3},
		{name: "below", max: 1},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := Validate(Draft{Label: "x", Min: 3, Max: Bound(tc.max)}, nil, "")
			require.True(t, validationErr(t, err).Has(FieldMax, CodeMaxNotAboveMin))
		})
	}
}

func TestValidateRejectsNonFiniteNumbers(t *testing.T) {
	t.Parallel()

	err := Validate(Draft{Label: "x", Min: math.NaN(), Formula: Formula{Base: math.Inf(1)}}, nil, "")

	verr := validationErr(t, err)
	require.True(t, verr.Has(FieldMin, CodeNotANumber))
	require.True(t, verr.Has(FieldBase, CodeNotANumber))
}

func TestValidateDuplicateMinIncludesInactive(t *testing.T) {
	t.Parallel()

	existing := []Range{
		{ID: "a", Label: "retired", Min: 4, Max: Bound(6), Active: false},
	}
	err := Validate(Draft{Label: "new", Min: 4, Max: Bound(5)}, existing, "")
	require.True(t, validationErr(t, err).Has(FieldMin, CodeDuplicateMin))
}

func TestCheckFormReportsParseAndRuleErrorsTogether(t *testing.T) {
	t.Parallel()

	_, err := CheckForm(FormInput{
		Label:   "",
		Min:     "abc",
		Max:     "",
		Base:    "-1",
		PerUnit: "2",
	}, nil, "")

	verr := validationErr(t, err)
	require.True(t, verr.Has(FieldLabel, CodeRequired))
	require.True(t, verr.Has(FieldMin, CodeNotANumber))
	require.True(t, verr.Has(FieldMax, CodeRequired))
	require.True(t, verr.Has(FieldBase, CodeNegative))
	require.Empty(t, verr.Field(FieldPerUnit))
}

func TestCheckFormUnboundedSkipsMax(t *testing.T) {
	t.Parallel()

	draft, err := CheckForm(FormInput{
		Label:     " 遠距離 ",
		Min:       "6",
		Max:       "ignored",
		Unbounded: true,
		Base:      "30",
		PerUnit:   "6.5",
	}, nil, "")

	require.NoError(t, err)
	require.Equal(t, "遠距離", draft.Label)
	require.True(t, draft.Unbounded())
	require.Equal(t, 6.0, draft.Min)
	require.Equal(t, Formula{Base: 30, PerUnit: 6.5}, draft.Formula)
}

func TestFormFromRangeRoundTrips(t *testing.T) {
	t.Parallel()

	r := Range{ID: "x", Label: "中距離", Min: 2.5, Max: Bound(6), Formula: Formula{Base: 10, PerUnit: 0.75}, Active: true}
	form := FormFromRange(r)
	require.Equal(t, "2.5", form.Min)
	require.Equal(t, "6", form.Max)
	require.False(t, form.Unbounded)

	draft, errs := ParseForm(form)
	require.Empty(t, errs)
	require.Equal(t, r.Draft(), draft)
}
