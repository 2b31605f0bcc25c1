package dashboard

import (
	"fmt"
	"time"

	admindashboard "finitefield.org/delivery-admin/internal/admin/dashboard"
	"finitefield.org/delivery-admin/internal/admin/templates/helpers"
)

// PageData represents the full dashboard SSR payload.
type PageData struct {
	Title      string
	Cards      []CategoryCard
	Alerts     []AlertView
	Error      string
	RefreshURL string
}

// CategoryCard is the rendered summary of one category.
type CategoryCard struct {
	Key          string
	Title        string
	Href         string
	RuleCount    string
	ActiveCount  string
	Unbounded    bool
	Coverage     string
	CoverageTone string
	UpdatedText  string
}

// AlertView represents a single alert entry.
type AlertView struct {
	ID        string
	Tone      string
	Title     string
	Message   string
	ActionURL string
	Action    string
}

// BuildPageData prepares the template payload for SSR rendering.
func BuildPageData(basePath string, overview admindashboard.Overview, now time.Time) PageData {
	page := PageData{
		Title:      "ダッシュボード",
		RefreshURL: helpers.JoinPath(basePath, "/"),
	}
	for _, summary := range overview.Categories {
		page.Cards = append(page.Cards, toCard(basePath, summary, now))
	}
	for _, alert := range overview.Alerts {
		page.Alerts = append(page.Alerts, AlertView{
			ID:        alert.ID,
			Tone:      string(alert.Severity),
			Title:     alert.Title,
			Message:   alert.Message,
			ActionURL: helpers.JoinPath(basePath, alert.ActionPath),
			Action:    alert.Action,
		})
	}
	return page
}

func toCard(basePath string, summary admindashboard.CategorySummary, now time.Time) CategoryCard {
	card := CategoryCard{
		Key:         string(summary.Category),
		Title:       summary.Title,
		Href:        helpers.JoinPath(basePath, "/tiers/"+string(summary.Category)),
		RuleCount:   fmt.Sprintf("%d件", summary.Total),
		ActiveCount: fmt.Sprintf("%d件", summary.Active),
		Unbounded:   summary.HasUnbounded,
		UpdatedText: helpers.Relative(now, summary.LoadedAt),
	}
	switch {
	case summary.Err != nil:
		card.Coverage = "取得失敗"
		card.CoverageTone = "danger"
	case summary.Covered():
		card.Coverage = "全区間カバー"
		card.CoverageTone = "success"
	default:
		card.Coverage = fmt.Sprintf("未設定の区間 %d件", len(summary.Gaps))
		card.CoverageTone = "warning"
	}
	return card
}
