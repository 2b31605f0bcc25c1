package tiers

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"finitefield.org/delivery-admin/internal/admin/templates/helpers"
	admintiers "finitefield.org/delivery-admin/internal/tiers"
)

// TableID is the DOM id every table fragment replaces.
const TableID = "tier-table"

const discardConfirm = "編集中の内容は保存されていません。続行すると入力内容は失われます。よろしいですか？"

// PageData is the full SSR payload of a category screen.
type PageData struct {
	Title      string
	Heading    string
	Category   string
	InputLabel string
	InputUnit  string
	RequireOne bool
	Tabs       []Tab
	Table      TableData
	Quote      QuoteForm
}

// Tab links to a sibling category.
type Tab struct {
	Label  string
	Href   string
	Active bool
}

// TableData renders the editable rule table.
type TableData struct {
	Category    string
	InputUnit   string
	Rows        []RowView
	Create      *FormView
	NewURL      string
	NewConfirm  string
	ReloadURL   string
	CanManage   bool
	Gaps        []string
	Error       string
	UpdatedText string
}

// RowView is one rule; Form is set when the row is open in the editor.
type RowView struct {
	ID            string
	Label         string
	MinText       string
	MaxText       string
	BaseText      string
	PerUnitText   string
	Active        bool
	Form          *FormView
	EditURL       string
	DeleteURL     string
	ToggleURL     string
	EditConfirm   string
	DeleteConfirm string
	ToggleConfirm string
}

// FormView is an inline editor for an existing row or the create row.
type FormView struct {
	RowID     string
	Method    string
	ActionURL string
	CancelURL string
	Label     string
	Min       string
	Max       string
	Unbounded bool
	Base      string
	PerUnit   string
	Errors    map[string][]string
}

// FieldErrors returns the messages recorded for field.
func (f *FormView) FieldErrors(field string) []string {
	if f == nil {
		return nil
	}
	return f.Errors[field]
}

// QuoteForm configures the preview box.
type QuoteForm struct {
	URL        string
	InputLabel string
	InputUnit  string
}

// QuoteView is the result of a preview request.
type QuoteView struct {
	Input   string
	Label   string
	Formula string
	Amount  string
	Error   string
}

// TableParams carries everything BuildTable needs.
type TableParams struct {
	BasePath  string
	Policy    admintiers.Policy
	Ranges    []admintiers.Range
	Editor    *admintiers.Editor
	CanManage bool
	LoadedAt  time.Time
	Now       time.Time
	Error     string
}

// CategoryPath is the screen of category under basePath.
func CategoryPath(basePath string, category admintiers.Category) string {
	return helpers.JoinPath(basePath, "/tiers/"+string(category))
}

// RowPath is the resource path of one rule.
func RowPath(basePath string, category admintiers.Category, id string) string {
	return CategoryPath(basePath, category) + "/" + url.PathEscape(id)
}

// BuildPageData prepares the payload for the full page.
func BuildPageData(basePath string, policy admintiers.Policy, table TableData) PageData {
	page := PageData{
		Title:      policy.Title,
		Heading:    policy.Title + "の料金ルール",
		Category:   string(policy.Category),
		InputLabel: policy.InputLabel,
		InputUnit:  policy.InputUnit,
		RequireOne: policy.RequireOne,
		Table:      table,
		Quote: QuoteForm{
			URL:        CategoryPath(basePath, policy.Category) + "/quote",
			InputLabel: policy.InputLabel,
			InputUnit:  policy.InputUnit,
		},
	}
	for _, p := range admintiers.Policies() {
		page.Tabs = append(page.Tabs, Tab{
			Label:  p.Title,
			Href:   CategoryPath(basePath, p.Category),
			Active: p.Category == policy.Category,
		})
	}
	return page
}

// BuildTable prepares the table fragment. Rows keep the order of params.Ranges.
func BuildTable(params TableParams) TableData {
	category := params.Policy.Category
	base := CategoryPath(params.BasePath, category)
	editor := params.Editor
	if editor == nil {
		editor = admintiers.NewEditor()
	}

	table := TableData{
		Category:    string(category),
		InputUnit:   params.Policy.InputUnit,
		NewURL:      base + "/new",
		ReloadURL:   base + "/table",
		CanManage:   params.CanManage,
		Error:       params.Error,
		UpdatedText: helpers.Relative(params.Now, params.LoadedAt),
	}
	if params.CanManage && editor.Busy(admintiers.NewRowID) {
		table.NewConfirm = discardConfirm
	}

	for _, r := range params.Ranges {
		row := RowView{
			ID:          r.ID,
			Label:       r.Label,
			MinText:     helpers.Number(r.Min, 4),
			MaxText:     "上限なし",
			BaseText:    helpers.Number(r.Formula.Base, 2),
			PerUnitText: helpers.Number(r.Formula.PerUnit, 2),
			Active:      r.Active,
		}
		if r.Max != nil {
			row.MaxText = helpers.Number(*r.Max, 4)
		}
		if params.CanManage {
			rowPath := RowPath(params.BasePath, category, r.ID)
			row.EditURL = rowPath + "/edit"
			row.DeleteURL = rowPath
			row.ToggleURL = rowPath + "/status"
			row.DeleteConfirm = fmt.Sprintf("「%s」を削除します。よろしいですか？", r.Label)
			if editor.Busy(r.ID) {
				row.EditConfirm = discardConfirm
				row.ToggleConfirm = discardConfirm
				row.DeleteConfirm = discardConfirm
			}
			if editor.Editing(r.ID) {
				row.Form = buildForm(editor, r.ID, methodPut, rowPath, base+"/cancel")
			}
		}
		table.Rows = append(table.Rows, row)
	}

	if params.CanManage && editor.Editing(admintiers.NewRowID) {
		table.Create = buildForm(editor, admintiers.NewRowID, methodPost, base, base+"/cancel")
	}

	for _, gap := range admintiers.Gaps(params.Ranges) {
		table.Gaps = append(table.Gaps, GapText(gap, params.Policy.InputUnit))
	}
	return table
}

const (
	methodPost = "post"
	methodPut  = "put"
)
func buildForm(editor *admintiers.Editor, rowID, method, action, cancel string) *FormView {
	input := editor.Input()
	form := &FormView{
		RowID:     rowID,
		Method:    method,
		ActionURL: action,
		CancelURL: cancel,
		Label:     input.Label,
		Min:       input.Min,
		Max:       input.Max,
		Unbounded: input.Unbounded,
		Base:      input.Base,
		PerUnit:   input.PerUnit,
	}
	for _, fe := range editor.FieldErrors() {
		if form.Errors == nil {
			form.Errors = make(map[string][]string)
		}
		form.Errors[fe.Field] = append(form.Errors[fe.Field], FieldMessage(fe))
	}
	return form
}

// NewRowInput suggests a draft that continues after the highest bounded
// active range.
func NewRowInput(ranges []admintiers.Range) admintiers.FormInput {
	input := admintiers.FormInput{Min: "0", Base: "0", PerUnit: "0"}
	next := 0.0
	for _, r := range ranges {
		if r.Active && !r.Unbounded() && *r.Max > next {
			next = *r.Max
		}
	}
	input.Min = strconv.FormatFloat(next, 'f', -1, 64)
	return input
}

// BuildQuote renders the outcome of a preview.
func BuildQuote(policy admintiers.Policy, raw string, quote admintiers.Quote, err error) QuoteView {
	view := QuoteView{Input: strings.TrimSpace(raw)}
	switch {
	case err == nil:
		view.Label = quote.Label
		view.Formula = fmt.Sprintf("%s + %s × %s%s",
			helpers.Number(quote.Formula.Base, 2),
			helpers.Number(quote.Formula.PerUnit, 2),
			helpers.Number(quote.Input, 4),
			policy.InputUnit,
		)
		view.Amount = helpers.Amount(quote.Amount)
	case errors.Is(err, admintiers.ErrInvalidInput):
		view.Error = fmt.Sprintf("%sには 0 以上の数値を入力してください。", policy.InputLabel)
	case errors.Is(err, admintiers.ErrNoMatchingRange):
		view.Error = fmt.Sprintf("この%sに該当する有効なルールがありません。", policy.InputLabel)
	default:
		view.Error = ErrorMessage(err)
	}
	return view
}

// GapText renders an uncovered interval.
func GapText(gap admintiers.Gap, unit string) string {
	if gap.Max == nil {
		return fmt.Sprintf("%s%s 以上", helpers.Number(gap.Min, 4), unit)
	}
	return fmt.Sprintf("%s–%s%s", helpers.Number(gap.Min, 4), helpers.Number(*gap.Max, 4), unit)
}
