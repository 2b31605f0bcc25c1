// Package dashboard summarises the state of every tier category for the
// admin landing page.
package dashboard

import (
	"context"
	"errors"
	"time"

	"finitefield.org/delivery-admin/internal/tiers"
)

// ErrNotConfigured indicates the dashboard service dependency has not been provided.
var ErrNotConfigured = errors.New("dashboard service not configured")

// Service exposes data retrieval for the dashboard.
type Service interface {
	// Overview summarises every category and lists the alerts they raise.
	Overview(ctx context.Context, token string) (Overview, error)
}

// Overview is the dashboard payload.
type Overview struct {
	Categories  []CategorySummary
	Alerts      []Alert
	GeneratedAt time.Time
}

// CategorySummary describes one category's rule set.
type CategorySummary struct {
	Category     tiers.Category
	Title        string
	InputLabel   string
	InputUnit    string
	Total        int
	Active       int
	HasUnbounded bool
	Gaps         []tiers.Gap
	LoadedAt     time.Time
	// Err is set when the category could not be refreshed; the remaining
	// fields then describe the last known snapshot.
	Err error
}

// Covered reports whether every non-negative input resolves to a range.
func (s CategorySummary) Covered() bool {
	return s.Err == nil && len(s.Gaps) == 0
}

// Severity grades an alert.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

// Alert captures a dashboard alert entry. ActionPath is relative to the
// admin base path.
type Alert struct {
	ID         string
	Category   tiers.Category
	Severity   Severity
	Title      string
	Message    string
	ActionPath string
	Action     string
}
