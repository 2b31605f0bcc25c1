package ui

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	custommw "finitefield.org/delivery-admin/internal/admin/httpserver/middleware"
	"finitefield.org/delivery-admin/internal/admin/rbac"
	appsession "finitefield.org/delivery-admin/internal/admin/session"
	tierstpl "finitefield.org/delivery-admin/internal/admin/templates/tiers"
	"finitefield.org/delivery-admin/internal/platform/observability"
	"finitefield.org/delivery-admin/internal/tiers"
)

// tierRequest is the per-request view of one category: who is asking, the
// editor restored from their session and whether the snapshot could load.
type tierRequest struct {
	user      *custommw.User
	policy    tiers.Policy
	session   *appsession.Session
	editor    *tiers.Editor
	basePath  string
	canManage bool
	loadErr   error
}

func (t *tierRequest) category() tiers.Category {
	return t.policy.Category
}

// persistEditor records which row is open, and any rejected draft, so the
// next request restores it.
func (t *tierRequest) persistEditor() {
	if t.session == nil {
		return
	}
	category := string(t.category())
	state := t.editor.State()
	t.session.SetEditingRow(category, state.RowID)
	var draft map[string]string
	if state.Draft != nil {
		draft = state.Draft.Values()
	}
	t.session.SetEditingDraft(category, draft)
}

// TiersIndex redirects to the first category.
func (h *Handlers) TiersIndex(w http.ResponseWriter, r *http.Request) {
	policies := tiers.Policies()
	base := custommw.BasePathFromContext(r.Context())
	http.Redirect(w, r, tierstpl.CategoryPath(base, policies[0].Category), http.StatusFound)
}

// TiersPage renders a category screen. The snapshot is refreshed from the
// remote so edits by other operators show up.
func (h *Handlers) TiersPage(w http.ResponseWriter, r *http.Request) {
	req, ok := h.tierRequest(w, r, true)
	if !ok {
		return
	}
	h.renderTable(w, r, req, http.StatusOK)
}

// TiersTable re-fetches the category and returns the table fragment.
func (h *Handlers) TiersTable(w http.ResponseWriter, r *http.Request) {
	req, ok := h.tierRequest(w, r, true)
	if !ok {
		return
	}
	h.renderTable(w, r, req, http.StatusOK)
}

// TiersNew opens the create row.
func (h *Handlers) TiersNew(w http.ResponseWriter, r *http.Request) {
	req, ok := h.tierRequest(w, r, false)
	if !ok {
		return
	}
	if req.editor.BeginEdit(tiers.NewRowID, tierstpl.NewRowInput(h.store.List(req.category()))) {
		custommw.TriggerToast(w, "編集中の変更を破棄しました。", custommw.ToastWarning)
	}
	req.persistEditor()
	h.renderTable(w, r, req, http.StatusOK)
}

// TiersEdit opens an existing row in the inline editor.
func (h *Handlers) TiersEdit(w http.ResponseWriter, r *http.Request) {
	req, ok := h.tierRequest(w, r, false)
	if !ok {
		return
	}
	current, err := h.store.Get(req.category(), chi.URLParam(r, "id"))
	if err != nil {
		h.actionFailed(w, r, req, err)
		return
	}
	if req.editor.BeginEdit(current.ID, tiers.FormFromRange(current)) {
		custommw.TriggerToast(w, "編集中の変更を破棄しました。", custommw.ToastWarning)
	}
	req.persistEditor()
	h.renderTable(w, r, req, http.StatusOK)
}

// TiersCancel closes the editor without saving.
func (h *Handlers) TiersCancel(w http.ResponseWriter, r *http.Request) {
	req, ok := h.tierRequest(w, r, false)
	if !ok {
		return
	}
	req.editor.Cancel()
	req.persistEditor()
	h.renderTable(w, r, req, http.StatusOK)
}

// TiersCreate validates and persists the create row.
func (h *Handlers) TiersCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.tierRequest(w, r, false)
	if !ok {
		return
	}
	input, ok := parseTierForm(w, r)
	if !ok {
		return
	}
	if err := req.editor.BeginSave(tiers.NewRowID, input); err != nil {
		h.actionFailed(w, r, req, err)
		return
	}

	draft, err := tiers.CheckForm(input, h.store.List(req.category()), "")
	var created tiers.Range
	if err == nil {
		created, err = h.store.Create(r.Context(), req.user.Token, req.category(), draft)
	}
	if err != nil {
		h.saveFailed(w, r, req, err)
		return
	}

	req.editor.Succeed()
	req.persistEditor()
	custommw.TriggerToast(w, fmt.Sprintf("「%s」を追加しました。", created.Label), custommw.ToastSuccess)
	h.renderTable(w, r, req, http.StatusOK)
}

// TiersUpdate validates and persists an edited row.
func (h *Handlers) TiersUpdate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.tierRequest(w, r, false)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	input, ok := parseTierForm(w, r)
	if !ok {
		return
	}
	if err := req.editor.BeginSave(id, input); err != nil {
		h.actionFailed(w, r, req, err)
		return
	}

	draft, err := tiers.CheckForm(input, h.store.List(req.category()), id)
	var updated tiers.Range
	if err == nil {
		updated, err = h.store.Update(r.Context(), req.user.Token, req.category(), id, draft)
	}
	if err != nil {
		h.saveFailed(w, r, req, err)
		return
	}

	req.editor.Succeed()
	req.persistEditor()
	custommw.TriggerToast(w, fmt.Sprintf("「%s」を更新しました。", updated.Label), custommw.ToastSuccess)
	h.renderTable(w, r, req, http.StatusOK)
}

// TiersDelete removes a row.
func (h *Handlers) TiersDelete(w http.ResponseWriter, r *http.Request) {
	req, ok := h.tierRequest(w, r, false)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	label := id
	if current, err := h.store.Get(req.category(), id); err == nil {
		label = current.Label
	}

	if err := h.store.Delete(r.Context(), req.user.Token, req.category(), id); err != nil {
		h.actionFailed(w, r, req, err)
		return
	}

	if req.editor.Editing(id) {
		req.editor.Cancel()
		req.persistEditor()
	}
	custommw.TriggerToast(w, fmt.Sprintf("「%s」を削除しました。", label), custommw.ToastSuccess)
	h.renderTable(w, r, req, http.StatusOK)
}

// TiersToggle flips a row between active and inactive.
func (h *Handlers) TiersToggle(w http.ResponseWriter, r *http.Request) {
	req, ok := h.tierRequest(w, r, false)
	if !ok {
		return
	}
	toggled, err := h.store.ToggleActive(r.Context(), req.user.Token, req.category(), chi.URLParam(r, "id"))
	if err != nil {
		h.actionFailed(w, r, req, err)
		return
	}

	message := fmt.Sprintf("「%s」を無効にしました。", toggled.Label)
	if toggled.Active {
		message = fmt.Sprintf("「%s」を有効にしました。", toggled.Label)
	}
	custommw.TriggerToast(w, message, custommw.ToastSuccess)
	h.renderTable(w, r, req, http.StatusOK)
}

// TiersQuote previews the amount for ?input= against the current snapshot.
func (h *Handlers) TiersQuote(w http.ResponseWriter, r *http.Request) {
	req, ok := h.tierRequest(w, r, false)
	if !ok {
		return
	}
	raw := r.URL.Query().Get("input")

	var (
		quote tiers.Quote
		err   error
	)
	value, parseErr := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if parseErr != nil {
		err = tiers.ErrInvalidInput
	} else {
		quote, err = h.store.Resolve(req.category(), value)
	}

	view := tierstpl.BuildQuote(req.policy, raw, quote, err)
	templ.Handler(tierstpl.QuoteResult(view)).ServeHTTP(w, r)
}

// tierRequest resolves the category, user and editor. With refresh set the
// category is always re-read from the remote; otherwise only on first use.
func (h *Handlers) tierRequest(w http.ResponseWriter, r *http.Request, refresh bool) (*tierRequest, bool) {
	ctx := r.Context()
	user, ok := custommw.UserFromContext(ctx)
	if !ok || user == nil {
		unauthorized(w, r)
		return nil, false
	}

	category, err := tiers.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		notifyFailure(w, r, http.StatusNotFound, tierstpl.ErrorMessage(err))
		return nil, false
	}
	policy, _ := tiers.PolicyFor(category)

	req := &tierRequest{
		user:      user,
		policy:    policy,
		basePath:  custommw.BasePathFromContext(ctx),
		canManage: rbac.HasCapability(user.Roles, rbac.CapTiersManage),
	}
	if sess, ok := custommw.SessionFromContext(ctx); ok {
		req.session = sess
	}

	if refresh || !h.store.Loaded(category) {
		if _, err := h.store.Load(ctx, user.Token, category); err != nil {
			observability.FromContext(ctx).Warn("tiers: load failed",
				zap.String("category", string(category)),
				zap.Error(err),
			)
			req.loadErr = err
		}
	}

	req.editor = h.restoreEditor(req)
	return req, true
}

// restoreEditor rebuilds the editor from the session. A rejected draft is
// restored as submitted and re-checked so its field errors show again;
// otherwise the draft is reloaded from the snapshot. Rows that no longer
// exist close the editor.
func (h *Handlers) restoreEditor(req *tierRequest) *tiers.Editor {
	if req.session == nil || !req.canManage {
		return tiers.NewEditor()
	}
	category := req.category()
	state := tiers.EditorState{RowID: req.session.EditingRow(string(category))}
	if values := req.session.EditingDraft(string(category)); len(values) > 0 {
		draft := tiers.FormFromValues(func(key string) string { return values[key] })
		state.Draft = &draft
	}
	editor := tiers.RestoreEditor(state)
	switch rowID := editor.RowID(); {
	case editor.Mode() == tiers.ModeViewing:
	case editor.Rejected():
		exclude := rowID
		if rowID == tiers.NewRowID {
			exclude = ""
		} else if _, err := h.store.Get(category, rowID); err != nil {
			editor.Cancel()
			req.session.ClearEditingRow(string(category))
			break
		}
		if _, err := tiers.CheckForm(editor.Input(), h.store.List(category), exclude); err != nil {
			editor.Fail(err)
		}
	case rowID == tiers.NewRowID:
		editor.BeginEdit(rowID, tierstpl.NewRowInput(h.store.List(category)))
	default:
		current, err := h.store.Get(category, rowID)
		if err != nil {
			editor.Cancel()
			req.session.ClearEditingRow(string(category))
			break
		}
		editor.BeginEdit(rowID, tiers.FormFromRange(current))
	}
	return editor
}

// saveFailed keeps the submitted draft open. Validation failures re-render
// the row with inline errors; everything else is reported as a toast.
func (h *Handlers) saveFailed(w http.ResponseWriter, r *http.Request, req *tierRequest, err error) {
	req.editor.Fail(err)
	req.persistEditor()

	var verr *tiers.ValidationError
	if errors.As(err, &verr) {
		h.renderTable(w, r, req, http.StatusUnprocessableEntity)
		return
	}
	h.actionFailed(w, r, req, err)
}

// actionFailed maps err to a status and toast. Failures that leave local
// state unchanged re-render the table; remote failures keep the page as is.
func (h *Handlers) actionFailed(w http.ResponseWriter, r *http.Request, req *tierRequest, err error) {
	logger := observability.FromContext(r.Context()).With(
		zap.String("category", string(req.category())),
		zap.Error(err),
	)
	message := tierstpl.ErrorMessage(err)

	var (
		verr     *tiers.ValidationError
		lastRule *tiers.LastRuleError
		remote   *tiers.RemoteError
	)
	switch {
	case errors.As(err, &remote):
		logger.Warn("tiers: remote call failed", zap.Bool("timeout", remote.Timeout()))
		notifyFailure(w, r, http.StatusBadGateway, message)
	case errors.As(err, &verr):
		custommw.TriggerToast(w, message, custommw.ToastWarning)
		h.renderTable(w, r, req, http.StatusUnprocessableEntity)
	case errors.As(err, &lastRule):
		custommw.TriggerToast(w, message, custommw.ToastWarning)
		h.renderTable(w, r, req, http.StatusConflict)
	case errors.Is(err, tiers.ErrRangeNotFound):
		if req.editor.Mode() != tiers.ModeViewing && !h.rowExists(req) {
			req.editor.Cancel()
			req.persistEditor()
		}
		custommw.TriggerToast(w, message, custommw.ToastWarning)
		h.renderTable(w, r, req, http.StatusNotFound)
	case errors.Is(err, tiers.ErrSaveInFlight):
		notifyFailure(w, r, http.StatusConflict, "保存処理中です。完了までお待ちください。")
	default:
		logger.Error("tiers: action failed")
		notifyFailure(w, r, http.StatusInternalServerError, message)
	}
}

func (h *Handlers) rowExists(req *tierRequest) bool {
	rowID := req.editor.RowID()
	if rowID == tiers.NewRowID {
		return true
	}
	_, err := h.store.Get(req.category(), rowID)
	return err == nil
}

func (h *Handlers) renderTable(w http.ResponseWriter, r *http.Request, req *tierRequest, status int) {
	errMsg := ""
	if req.loadErr != nil {
		errMsg = "最新のルールを取得できませんでした。表示は前回取得した内容です。" + tierstpl.ErrorMessage(req.loadErr)
	}
	table := tierstpl.BuildTable(tierstpl.TableParams{
		BasePath:  req.basePath,
		Policy:    req.policy,
		Ranges:    h.store.List(req.category()),
		Editor:    req.editor,
		CanManage: req.canManage,
		LoadedAt:  h.store.LoadedAt(req.category()),
		Now:       h.now(),
		Error:     errMsg,
	})

	var component templ.Component
	if custommw.IsHTMXRequest(r.Context()) {
		component = tierstpl.Table(table)
	} else {
		component = tierstpl.Index(tierstpl.BuildPageData(req.basePath, req.policy, table))
	}
	templ.Handler(component, templ.WithStatus(status)).ServeHTTP(w, r)
}

func parseTierForm(w http.ResponseWriter, r *http.Request) (tiers.FormInput, bool) {
	if err := r.ParseForm(); err != nil {
		notifyFailure(w, r, http.StatusBadRequest, "リクエストの解析に失敗しました。")
		return tiers.FormInput{}, false
	}
	return tiers.FormFromValues(r.PostFormValue), true
}

