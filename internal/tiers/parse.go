package tiers

import (
	"math"
	"strconv"
	"strings"
)

// FormInput holds the raw text an operator submitted.
type FormInput struct {
	Label     string
	Min       string
	Max       string
	Unbounded bool
	Base      string
	PerUnit   string
}

// FieldUnbounded is the checkbox that clears the upper bound.
const FieldUnbounded = "unbounded"

// FormFromValues reads a form through get, for example r.PostFormValue.
func FormFromValues(get func(string) string) FormInput {
	return FormInput{
		Label:     get(FieldLabel),
		Min:       get(FieldMin),
		Max:       get(FieldMax),
		Unbounded: checked(get(FieldUnbounded)),
		Base:      get(FieldBase),
		PerUnit:   get(FieldPerUnit),
	}
}

// Values returns the form keyed by field name, the inverse of FormFromValues.
func (in FormInput) Values() map[string]string {
	values := map[string]string{
		FieldLabel:   in.Label,
		FieldMin:     in.Min,
		FieldMax:     in.Max,
		FieldBase:    in.Base,
		FieldPerUnit: in.PerUnit,
	}
	if in.Unbounded {
		values[FieldUnbounded] = "on"
	}
	return values
}

func checked(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on", "true", "1", "yes":
		return true
	default:
		return false
	}
}

// FormFromRange renders a stored range back into editable text.
func FormFromRange(r Range) FormInput {
	form := FormInput{
		Label:     r.Label,
		Min:       formatNumber(r.Min),
		Unbounded: r.Unbounded(),
		Base:      formatNumber(r.Formula.Base),
		PerUnit:   formatNumber(r.Formula.PerUnit),
	}
	if r.Max != nil {
		form.Max = formatNumber(*r.Max)
	}
	return form
}

// ParseForm converts text fields to numbers. Every empty or non-numeric field
// is reported; fields that failed to parse are left at zero in the draft.
func ParseForm(in FormInput) (Draft, []FieldError) {
	var (
		draft = Draft{Label: strings.TrimSpace(in.Label)}
		errs  []FieldError
	)

	parse := func(field, raw string, dst *float64) {
		v, fe, ok := parseNumber(field, raw)
		if !ok {
			errs = append(errs, fe)
			return
		}
		*dst = v
	}

	parse(FieldMin, in.Min, &draft.Min)
	if !in.Unbounded {
		if v, fe, ok := parseNumber(FieldMax, in.Max); ok {
			draft.Max = &v
		} else {
			errs = append(errs, fe)
		}
	}
	parse(FieldBase, in.Base, &draft.Formula.Base)
	parse(FieldPerUnit, in.PerUnit, &draft.Formula.PerUnit)

	return draft, errs
}

func parseNumber(field, raw string) (float64, FieldError, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, FieldError{Field: field, Code: CodeRequired, Message: "is required"}, false
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, FieldError{Field: field, Code: CodeNotANumber, Message: "must be a number"}, false
	}
	return v, FieldError{}, true
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
