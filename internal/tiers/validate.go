package tiers

import (
	"fmt"
	"math"
	"strings"
)

// Validate checks a candidate against the existing set. excludeID names the
// range being edited so it never conflicts with itself; pass "" on create.
// It returns nil or a *ValidationError carrying every violation.
func Validate(candidate Draft, existing []Range, excludeID string) error {
	return report(checkDraft(candidate, existing, excludeID, nil))
}

// CheckForm parses raw form text and validates the result in one pass, so
// parse failures and rule violations share a single report.
func CheckForm(input FormInput, existing []Range, excludeID string) (Draft, error) {
	draft, parseErrs := ParseForm(input)
	failed := make(map[string]bool, len(parseErrs))
	for _, fe := range parseErrs {
		failed[fe.Field] = true
	}
	errs := append(parseErrs, checkDraft(draft, existing, excludeID, failed)...)
	return draft, report(errs)
}

func report(errs []FieldError) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: errs}
}

// checkDraft applies the rules in order. Fields listed in skip could not be
// parsed and are not checked again.
func checkDraft(c Draft, existing []Range, excludeID string, skip map[string]bool) []FieldError {
	var errs []FieldError
	add := func(field, code, msg string) {
		errs = append(errs, FieldError{Field: field, Code: code, Message: msg})
	}

	numbers := []struct {
		field string
		value *float64
	}{
		{FieldMin, &c.Min},
		{FieldMax, c.Max},
		{FieldBase, &c.Formula.Base},
		{FieldPerUnit, &c.Formula.PerUnit},
	}
	bad := make(map[string]bool, len(skip))
	for field := range skip {
		bad[field] = true
	}
	for _, n := range numbers {
		if n.value == nil || bad[n.field] {
			continue
		}
		if math.IsNaN(*n.value) || math.IsInf(*n.value, 0) {
			add(n.field, CodeNotANumber, "must be a number")
			bad[n.field] = true
		}
	}
	skip = bad

	if strings.TrimSpace(c.Label) == "" {
		add(FieldLabel, CodeRequired, "is required")
	}

	minOK := !skip[FieldMin]
	maxOK := !skip[FieldMax]
	if minOK && c.Min < 0 {
		add(FieldMin, CodeNegative, "must be zero or greater")
		minOK = false
	}
	if minOK && maxOK && c.Max != nil && *c.Max <= c.Min {
		add(FieldMax, CodeMaxNotAboveMin, "must be greater than min")
		maxOK = false
	}
	if !skip[FieldBase] && c.Formula.Base < 0 {
		add(FieldBase, CodeNegative, "must be zero or greater")
	}
	if !skip[FieldPerUnit] && c.Formula.PerUnit < 0 {
		add(FieldPerUnit, CodeNegative, "must be zero or greater")
	}

	if !minOK {
		return errs
	}

	for _, r := range existing {
		if r.ID == excludeID && excludeID != "" {
			continue
		}
		if r.Min == c.Min {
			errs = append(errs, FieldError{
				Field:         FieldMin,
				Code:          CodeDuplicateMin,
				Message:       fmt.Sprintf("min is already used by %q", r.Label),
				ConflictID:    r.ID,
				ConflictLabel: r.Label,
			})
		}
	}

	if !maxOK {
		return errs
	}

	for _, r := range existing {
		if !r.Active || (r.ID == excludeID && excludeID != "") {
			continue
		}
		if c.Unbounded() && r.Unbounded() {
			errs = append(errs, FieldError{
				Field:         FieldMax,
				Code:          CodeUnboundedTaken,
				Message:       fmt.Sprintf("%q already has no upper bound", r.Label),
				ConflictID:    r.ID,
				ConflictLabel: r.Label,
			})
		}
		if overlaps(c.Min, c.Upper(), r.Min, r.Upper()) {
			errs = append(errs, FieldError{
				Field:         FieldRange,
				Code:          CodeOverlap,
				Message:       fmt.Sprintf("overlaps with %q", r.Label),
				ConflictID:    r.ID,
				ConflictLabel: r.Label,
			})
		}
	}
	return errs
}
