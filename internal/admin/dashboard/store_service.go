package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"finitefield.org/delivery-admin/internal/platform/observability"
	"finitefield.org/delivery-admin/internal/tiers"
)

// StoreService builds the overview from the shared tier store, refreshing
// each category from the remote first.
type StoreService struct {
	store *tiers.Store
	now   func() time.Time
}

// NewStoreService returns a Service reading from store.
func NewStoreService(store *tiers.Store) *StoreService {
	return &StoreService{store: store, now: time.Now}
}

// Overview refreshes every category. A category that fails to load is
// reported through an alert instead of failing the whole page.
func (s *StoreService) Overview(ctx context.Context, token string) (Overview, error) {
	if s == nil || s.store == nil {
		return Overview{}, ErrNotConfigured
	}
	logger := observability.FromContext(ctx)

	out := Overview{GeneratedAt: s.now()}
	for _, policy := range tiers.Policies() {
		summary := CategorySummary{
			Category:   policy.Category,
			Title:      policy.Title,
			InputLabel: policy.InputLabel,
			InputUnit:  policy.InputUnit,
		}
		ranges, err := s.store.Load(ctx, token, policy.Category)
		if err != nil {
			logger.Warn("dashboard: category refresh failed",
				zap.String("category", string(policy.Category)),
				zap.Error(err),
			)
			summary.Err = err
			ranges = s.store.List(policy.Category)
		}
		summarise(&summary, ranges)
		summary.LoadedAt = s.store.LoadedAt(policy.Category)

		out.Categories = append(out.Categories, summary)
		out.Alerts = append(out.Alerts, alertsFor(policy, summary)...)
	}
	return out, nil
}

func summarise(summary *CategorySummary, ranges []tiers.Range) {
	summary.Total = len(ranges)
	for _, r := range ranges {
		if !r.Active {
			continue
		}
		summary.Active++
		if r.Unbounded() {
			summary.HasUnbounded = true
		}
	}
	summary.Gaps = tiers.Gaps(ranges)
}

func alertsFor(policy tiers.Policy, summary CategorySummary) []Alert {
	path := "/tiers/" + string(policy.Category)
	var alerts []Alert

	if summary.Err != nil {
		alerts = append(alerts, Alert{
			ID:         string(policy.Category) + "-unavailable",
			Category:   policy.Category,
			Severity:   SeverityDanger,
			Title:      policy.Title + "を取得できません",
			Message:    userMessage(summary.Err),
			ActionPath: path,
			Action:     "再読み込み",
		})
		return alerts
	}

	if policy.RequireOne && summary.Active == 0 {
		alerts = append(alerts, Alert{
			ID:         string(policy.Category) + "-empty",
			Category:   policy.Category,
			Severity:   SeverityDanger,
			Title:      policy.Title + "に有効なルールがありません",
			Message:    "少なくとも1件の有効なルールが必要です。",
			ActionPath: path,
			Action:     "ルールを追加",
		})
		return alerts
	}

	if len(summary.Gaps) > 0 {
		spans := make([]string, 0, len(summary.Gaps))
		for _, gap := range summary.Gaps {
			spans = append(spans, GapText(gap, policy.InputUnit))
		}
		alerts = append(alerts, Alert{
			ID:         string(policy.Category) + "-gaps",
			Category:   policy.Category,
			Severity:   SeverityWarning,
			Title:      policy.Title + "に未設定の区間があります",
			Message:    fmt.Sprintf("次の%sは料金が計算されません: %s", policy.InputLabel, strings.Join(spans, "、")),
			ActionPath: path,
			Action:     "区間を確認",
		})
	}
	return alerts
}

// GapText renders a gap as "min–max unit", or "min unit 以上" when unbounded.
func GapText(gap tiers.Gap, unit string) string {
	if gap.Max == nil {
		return fmt.Sprintf("%s%s 以上", trimFloat(gap.Min), unit)
	}
	return fmt.Sprintf("%s–%s%s", trimFloat(gap.Min), trimFloat(*gap.Max), unit)
}

func trimFloat(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}

func userMessage(err error) string {
	var remote *tiers.RemoteError
	if errors.As(err, &remote) {
		return remote.UserMessage()
	}
	return "設定サービスとの通信に失敗しました。"
}
