package tiers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   string
}

type requestLog struct {
	mu   sync.Mutex
	list []recordedRequest
}

func (l *requestLog) all() []recordedRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]recordedRequest(nil), l.list...)
}

func newEnvelopeServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, body string)) (*httptest.Server, *requestLog) {
	t.Helper()
	log := &requestLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		log.mu.Lock()
		log.list = append(log.list, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Auth:   r.Header.Get("Authorization"),
			Body:   string(raw),
		})
		log.mu.Unlock()
		handler(w, r, string(raw))
	}))
	t.Cleanup(srv.Close)
	return srv, log
}

func writeEnvelope(w http.ResponseWriter, status int, success bool, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	payload := map[string]any{"success": success}
	if data != nil {
		payload["data"] = data
	}
	if message != "" {
		payload["message"] = message
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func TestHTTPRemoteList(t *testing.T) {
	t.Parallel()

	srv, reqs := newEnvelopeServer(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		writeEnvelope(w, http.StatusOK, true, map[string]any{
			"rules": []map[string]any{
				{"id": "r1", "label": "近距離", "min": 0, "max": 2, "formula": map[string]any{"base": 20, "perUnit": 15}, "active": true},
				{"id": "r2", "label": "遠距離", "min": 2, "max": nil, "formula": map[string]any{"base": 10, "perUnit": 8}, "active": true},
			},
		}, "")
	})

	remote, err := NewHTTPRemote(srv.URL+"/api/admin", srv.Client())
	require.NoError(t, err)

	ranges, err := remote.List(context.Background(), "secret", CategoryCommission)
	require.NoError(t, err)
	require.Len(t, ranges, 2)
	require.Equal(t, 2.0, *ranges[0].Max)
	require.True(t, ranges[1].Unbounded())

	recorded := reqs.all()
	require.Equal(t, http.MethodGet, recorded[0].Method)
	require.Equal(t, "/api/admin/delivery-commission", recorded[0].Path)
	require.Equal(t, "Bearer secret", recorded[0].Auth)
}

func TestHTTPRemoteMutationsUseRowPaths(t *testing.T) {
	t.Parallel()

	srv, reqs := newEnvelopeServer(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		if r.Method == http.MethodDelete {
			writeEnvelope(w, http.StatusOK, true, nil, "")
			return
		}
		writeEnvelope(w, http.StatusOK, true, map[string]any{
			"id": "r9", "label": "中距離", "min": 2, "max": 6, "formula": map[string]any{"base": 10, "perUnit": 8}, "active": r.Method != http.MethodPatch,
		}, "")
	})
	remote, err := NewHTTPRemote(srv.URL, nil)
	require.NoError(t, err)
	ctx := context.Background()
	draft := Draft{Label: "中距離", Min: 2, Max: Bound(6), Formula: Formula{Base: 10, PerUnit: 8}}

	created, err := remote.Create(ctx, "", CategoryCommission, draft)
	require.NoError(t, err)
	require.Equal(t, "r9", created.ID)

	_, err = remote.Update(ctx, "", CategoryCommission, "r9", draft)
	require.NoError(t, err)

	toggled, err := remote.SetActive(ctx, "", CategoryCommission, "r9", false)
	require.NoError(t, err)
	require.False(t, toggled.Active)

	require.NoError(t, remote.Delete(ctx, "", CategoryCommission, "r9"))

	recorded := reqs.all()
	got := make([]string, 0, len(recorded))
	for _, req := range recorded {
		got = append(got, req.Method+" "+req.Path)
	}
	require.Equal(t, []string{
		"POST /delivery-commission",
		"PUT /delivery-commission/r9",
		"PATCH /delivery-commission/r9/status",
		"DELETE /delivery-commission/r9",
	}, got)
	require.JSONEq(t, `{"label":"中距離","min":2,"max":6,"formula":{"base":10,"perUnit":8}}`, recorded[0].Body)
	require.JSONEq(t, `{"status":false}`, recorded[2].Body)
	require.Empty(t, recorded[3].Auth)
}

func TestHTTPRemoteSurfacesRejectionMessage(t *testing.T) {
	t.Parallel()

	srv, _ := newEnvelopeServer(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		writeEnvelope(w, http.StatusOK, false, nil, "既に同じ距離の設定があります")
	})
	remote, err := NewHTTPRemote(srv.URL, srv.Client())
	require.NoError(t, err)

	_, err = remote.Create(context.Background(), "", CategoryCommission, Draft{Label: "x"})

	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	require.Equal(t, "create", remoteErr.Op)
	require.Equal(t, "既に同じ距離の設定があります", remoteErr.UserMessage())
}

func TestHTTPRemoteNon2xx(t *testing.T) {
	t.Parallel()

	srv, _ := newEnvelopeServer(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	})
	remote, err := NewHTTPRemote(srv.URL, srv.Client())
	require.NoError(t, err)

	_, err = remote.List(context.Background(), "", CategoryFee)

	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	require.Equal(t, http.StatusBadGateway, remoteErr.Status)
	require.Empty(t, remoteErr.Message)
	require.True(t, strings.Contains(remoteErr.UserMessage(), "通信に失敗"))
}

func TestHTTPRemoteCreateRequiresID(t *testing.T) {
	t.Parallel()

	srv, _ := newEnvelopeServer(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		writeEnvelope(w, http.StatusCreated, true, map[string]any{"label": "x"}, "")
	})
	remote, err := NewHTTPRemote(srv.URL, srv.Client())
	require.NoError(t, err)

	_, err = remote.Create(context.Background(), "", CategoryFee, Draft{Label: "x"})
	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
}

func TestNewHTTPRemoteRequiresBaseURL(t *testing.T) {
	t.Parallel()

	_, err := NewHTTPRemote("  ", nil)
	require.Error(t, err)
}

func TestHTTPRemoteSparseRepliesFallBackToRequest(t *testing.T) {
	t.Parallel()

	srv, _ := newEnvelopeServer(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		switch r.Method {
		case http.MethodPost:
			writeEnvelope(w, http.StatusCreated, true, map[string]any{"id": "c", "label": "mid"}, "")
		default:
			writeEnvelope(w, http.StatusOK, true, nil, "")
		}
	})
	remote, err := NewHTTPRemote(srv.URL, srv.Client())
	require.NoError(t, err)
	ctx := context.Background()
	draft := Draft{Label: "near2", Min: 0, Max: Bound(2), Formula: Formula{Base: 300}}

	created, err := remote.Create(ctx, "", CategoryFee, draft)
	require.NoError(t, err)
	require.Equal(t, "c", created.ID)
	require.Equal(t, "mid", created.Label)
	require.True(t, created.Active, "a created range is live unless the backend says otherwise")
	require.Equal(t, 2.0, *created.Max)

	updated, err := remote.Update(ctx, "", CategoryFee, "a", draft)
	require.NoError(t, err)
	require.Equal(t, "a", updated.ID)
	require.Equal(t, "near2", updated.Label)
	require.False(t, updated.Unbounded())

	toggled, err := remote.SetActive(ctx, "", CategoryFee, "a", true)
	require.NoError(t, err)
	require.Equal(t, Range{ID: "a", Active: true}, toggled)
}
