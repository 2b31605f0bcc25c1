package helpers

import (
	"context"
	"io"
	"math"
	"time"

	"github.com/a-h/templ"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.Japanese)

// Number formats v with digit grouping and at most maxPlaces fraction digits.
func Number(v float64, maxPlaces int) string {
	if math.IsInf(v, 1) {
		return "∞"
	}
	return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(maxPlaces)))
}

// Amount formats a resolved amount with grouping and fixed two decimals.
func Amount(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return printer.Sprint(number.Decimal(f, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

// Date formats the timestamp in the provided layout (defaults to 2006-01-02 15:04 MST).
func Date(ts time.Time, layout string) string {
	if ts.IsZero() {
		return "-"
	}
	if layout == "" {
		layout = "2006-01-02 15:04 MST"
	}
	return ts.In(time.Local).Format(layout)
}

// Relative returns a coarse "time ago" string.
func Relative(now, ts time.Time) string {
	if ts.IsZero() {
		return "未取得"
	}
	diff := now.Sub(ts)
	switch {
	case diff < time.Minute:
		return "たった今"
	case diff < time.Hour:
		return printer.Sprintf("%d分前", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return printer.Sprintf("%d時間前", int(diff.Hours()))
	default:
		return ts.Format("2006-01-02")
	}
}

// NavClass returns sidebar link classes.
func NavClass(active bool) string {
	if active {
		return "flex items-center gap-2 rounded-md bg-slate-900 px-3 py-2 text-sm font-medium text-white shadow-sm"
	}
	return "flex items-center gap-2 rounded-md px-3 py-2 text-sm font-medium text-slate-600 hover:bg-slate-100 hover:text-slate-900"
}

// BadgeClass maps semantic tones to utility classes.
func BadgeClass(tone string) string {
	switch tone {
	case "success":
		return "inline-flex items-center rounded-full bg-emerald-100 px-2 py-1 text-xs font-medium text-emerald-700"
	case "warning":
		return "inline-flex items-center rounded-full bg-amber-100 px-2 py-1 text-xs font-medium text-amber-700"
	case "danger":
		return "inline-flex items-center rounded-full bg-rose-100 px-2 py-1 text-xs font-medium text-rose-700"
	default:
		return "inline-flex items-center rounded-full bg-slate-100 px-2 py-1 text-xs font-medium text-slate-700"
	}
}

// TextComponent returns a templ component that renders escaped text.
func TextComponent(value string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, templ.EscapeString(value))
		return err
	})
}

// JoinPath appends suffix to the admin base path.
func JoinPath(basePath, suffix string) string {
	base := normalizeRoute(basePath)
	suffix = normalizeRoute(suffix)
	if base == "/" {
		return suffix
	}
	if suffix == "/" {
		return base
	}
	return base + suffix
}
