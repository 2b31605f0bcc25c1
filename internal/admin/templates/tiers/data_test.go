package tiers

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	admintiers "finitefield.org/delivery-admin/internal/tiers"
)

func commissionPolicy(t *testing.T) admintiers.Policy {
	t.Helper()
	policy, err := admintiers.PolicyFor(admintiers.CategoryCommission)
	require.NoError(t, err)
	return policy
}

func sampleRanges() []admintiers.Range {
	return []admintiers.Range{
		{ID: "near", Label: "近距離", Min: 0, Max: admintiers.Bound(2), Formula: admintiers.Formula{Base: 20, PerUnit: 15}, Active: true},
		{ID: "mid", Label: "中距離", Min: 2, Max: admintiers.Bound(6.5), Formula: admintiers.Formula{Base: 10, PerUnit: 8}, Active: false},
		{ID: "far", Label: "遠距離", Min: 10, Formula: admintiers.Formula{Base: 1200, PerUnit: 0.25}, Active: true},
	}
}

func TestBuildTableRowsAndURLs(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	table := BuildTable(TableParams{
		BasePath:  "/admin",
		Policy:    commissionPolicy(t),
		Ranges:    sampleRanges(),
		CanManage: true,
		LoadedAt:  now.Add(-5 * time.Minute),
		Now:       now,
	})

	require.Equal(t, "/admin/tiers/delivery-commission/new", table.NewURL)
	require.Equal(t, "/admin/tiers/delivery-commission/table", table.ReloadURL)
	require.Empty(t, table.NewConfirm)
	require.Nil(t, table.Create)
	require.Equal(t, "5分前", table.UpdatedText)
	require.Len(t, table.Rows, 3)

	far := table.Rows[2]
	require.Equal(t, "上限なし", far.MaxText)
	require.Equal(t, "1,200", far.BaseText)
	require.Equal(t, "0.25", far.PerUnitText)
	require.Equal(t, "/admin/tiers/delivery-commission/far/edit", far.EditURL)
	require.Equal(t, "/admin/tiers/delivery-commission/far", far.DeleteURL)
	require.Equal(t, "/admin/tiers/delivery-commission/far/status", far.ToggleURL)
	require.Contains(t, far.DeleteConfirm, "遠距離")
	require.Empty(t, far.EditConfirm)

	require.Equal(t, "6.5", table.Rows[1].MaxText)
	require.False(t, table.Rows[1].Active)

	// Only active ranges cover the input axis.
	require.Equal(t, []string{"2–10km"}, table.Gaps)
}

func TestBuildTableWithoutManageHidesActions(t *testing.T) {
	t.Parallel()

	editor := admintiers.NewEditor()
	editor.BeginEdit("near", admintiers.FormInput{Label: "近距離"})

	table := BuildTable(TableParams{
		BasePath: "/admin",
		Policy:   commissionPolicy(t),
		Ranges:   sampleRanges(),
		Editor:   editor,
	})
	for _, row := range table.Rows {
		require.Empty(t, row.EditURL)
		require.Empty(t, row.DeleteURL)
		require.Nil(t, row.Form)
	}
	require.Empty(t, table.NewConfirm)
}

func TestBuildTableEditingRowGuardsOtherRows(t *testing.T) {
	t.Parallel()

	editor := admintiers.NewEditor()
	editor.BeginEdit("mid", admintiers.FormInput{Label: "中距離", Min: "2", Max: "x"})
	require.NoError(t, editor.BeginSave("mid", admintiers.FormInput{Label: "中距離", Min: "2", Max: "x"}))
	editor.Fail(&admintiers.ValidationError{Errors: []admintiers.FieldError{
		{Field: admintiers.FieldMax, Code: admintiers.CodeNotANumber},
	}})

	table := BuildTable(TableParams{
		BasePath:  "/",
		Policy:    commissionPolicy(t),
		Ranges:    sampleRanges(),
		Editor:    editor,
		CanManage: true,
	})

	require.Equal(t, discardConfirm, table.NewConfirm)
	require.Equal(t, discardConfirm, table.Rows[0].EditConfirm)
	require.Equal(t, discardConfirm, table.Rows[2].ToggleConfirm)

	form := table.Rows[1].Form
	require.NotNil(t, form)
	require.Equal(t, methodPut, form.Method)
	require.Equal(t, "/tiers/delivery-commission/mid", form.ActionURL)
	require.Equal(t, "/tiers/delivery-commission/cancel", form.CancelURL)
	require.Equal(t, "x", form.Max)
	require.Equal(t, []string{"上限は数値で入力してください。"}, form.FieldErrors(admintiers.FieldMax))
	require.Empty(t, table.Rows[1].EditConfirm)
}

func TestBuildTableCreateRow(t *testing.T) {
	t.Parallel()

	ranges := sampleRanges()
	editor := admintiers.NewEditor()
	editor.BeginEdit(admintiers.NewRowID, NewRowInput(ranges))

	table := BuildTable(TableParams{
		BasePath:  "/admin",
		Policy:    commissionPolicy(t),
		Ranges:    ranges,
		Editor:    editor,
		CanManage: true,
	})

	require.NotNil(t, table.Create)
	require.Equal(t, methodPost, table.Create.Method)
	require.Equal(t, "/admin/tiers/delivery-commission", table.Create.ActionURL)
	// The inactive 6.5 bound does not count; the next slot starts after near.
	require.Equal(t, "2", table.Create.Min)
	require.Equal(t, discardConfirm, table.Rows[0].EditConfirm)
}

func TestNewRowInputWithoutBoundedRanges(t *testing.T) {
	t.Parallel()

	input := NewRowInput(nil)
	require.Equal(t, "0", input.Min)
	require.Empty(t, input.Max)
	require.False(t, input.Unbounded)
}

func TestBuildPageDataTabs(t *testing.T) {
	t.Parallel()

	policy := commissionPolicy(t)
	page := BuildPageData("/admin", policy, TableData{})

	require.Equal(t, policy.Title, page.Title)
	require.Equal(t, "/admin/tiers/delivery-commission/quote", page.Quote.URL)
	require.Len(t, page.Tabs, 2)
	require.True(t, page.Tabs[0].Active)
	require.False(t, page.Tabs[1].Active)
	require.Equal(t, "/admin/tiers/delivery-fee", page.Tabs[1].Href)
}

func TestBuildQuote(t *testing.T) {
	t.Parallel()

	policy := commissionPolicy(t)

	view := BuildQuote(policy, " 3 ", admintiers.Quote{
		RangeID: "mid",
		Label:   "中距離",
		Input:   3,
		Formula: admintiers.Formula{Base: 10, PerUnit: 8},
		Amount:  decimal.RequireFromString("34"),
	}, nil)
	require.Equal(t, "3", view.Input)
	require.Equal(t, "中距離", view.Label)
	require.Equal(t, "10 + 8 × 3km", view.Formula)
	require.Equal(t, "34.00", view.Amount)
	require.Empty(t, view.Error)

	gap := BuildQuote(policy, "12", admintiers.Quote{}, admintiers.ErrNoMatchingRange)
	require.Contains(t, gap.Error, "該当する有効なルールがありません")

	invalid := BuildQuote(policy, "-1", admintiers.Quote{}, admintiers.ErrInvalidInput)
	require.Contains(t, invalid.Error, "0 以上の数値")
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want string
	}{
		{"validation", &admintiers.ValidationError{Errors: []admintiers.FieldError{{Field: admintiers.FieldRange, Code: admintiers.CodeOverlap, ConflictLabel: "近距離"}}}, "「近距離」の範囲と重なっています。"},
		{"last rule", &admintiers.LastRuleError{Category: admintiers.CategoryCommission, RangeID: "near"}, "最後の有効なルールは削除・無効化できません。"},
		{"remote message", &admintiers.RemoteError{Op: "update", Message: "既に同じ距離の設定があります"}, "既に同じ距離の設定があります"},
		{"not found", admintiers.ErrRangeNotFound, "対象のルールが見つかりません。他の管理者が削除した可能性があります。"},
		{"unknown", errors.New("boom"), "処理に失敗しました。時間をおいて再試行してください。"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, ErrorMessage(tc.err))
		})
	}
	require.Empty(t, ErrorMessage(nil))
}
