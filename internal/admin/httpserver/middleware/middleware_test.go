package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"finitefield.org/delivery-admin/internal/admin/rbac"
)

type mockAuthenticator struct {
	token string
	user  *User
	err   error
}

func (m *mockAuthenticator) Authenticate(_ *http.Request, token string) (*User, error) {
	if token != m.token {
		return nil, ErrUnauthorized
	}
	return m.user, m.err
}

func TestAuthMiddleware(t *testing.T) {
	auth := &mockAuthenticator{
		token: "valid",
		user:  &User{UID: "ops-1", Token: "valid"},
	}

	handler := HTMX()(Auth(auth, "https://id.example.com/signin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if TokenFromContext(r.Context()) != "valid" {
			t.Fatalf("expected token in context")
		}
		w.WriteHeader(http.StatusOK)
	})))

	t.Run("missing token redirects to sign-in", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/tiers/delivery-fee", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusFound {
			t.Fatalf("expected 302, got %d", rr.Code)
		}
		location, err := url.Parse(rr.Header().Get("Location"))
		if err != nil {
			t.Fatalf("bad location: %v", err)
		}
		if location.Host != "id.example.com" || location.Query().Get("continue") != "/admin/tiers/delivery-fee" {
			t.Fatalf("unexpected redirect %s", location)
		}
	})

	t.Run("htmx unauthorized returns 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("HX-Request", "true")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
		if rr.Header().Get("HX-Redirect") != "https://id.example.com/signin" {
			t.Fatalf("expected HX-Redirect header to sign-in")
		}
	})

	t.Run("valid token passes through", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer valid")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
	})

	t.Run("token from cookie passes through", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.AddCookie(&http.Cookie{Name: "__session", Value: "valid"})
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
	})

	t.Run("expired token triggers refresh header", func(t *testing.T) {
		auth.err = NewAuthError(ReasonTokenExpired, errors.New("expired"))
		defer func() { auth.err = nil }()
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer valid")
		req.Header.Set("HX-Request", "true")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
		if rr.Header().Get("HX-Refresh") != "true" {
			t.Fatalf("expected HX-Refresh header")
		}
	})
}

func TestAuthWithoutSignInURL(t *testing.T) {
	handler := HTMX()(Auth(nil, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestCSRFMiddleware(t *testing.T) {
	store := newSessionStoreForTest(t, &sessionTestClock{now: fixedTestTime})
	var issued string
	handler := Session(store)(CSRF()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		issued = CSRFTokenFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || issued == "" {
		t.Fatalf("expected token to be issued, code=%d", rr.Code)
	}
	cookie := findCookie(rr.Result().Cookies(), "test_session")
	if cookie == nil {
		t.Fatalf("expected session cookie")
	}

	t.Run("rejects unsafe request without token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/admin", nil)
		req.AddCookie(cookie)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rr.Code)
		}
	})

	t.Run("accepts matching header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/admin", nil)
		req.AddCookie(cookie)
		req.Header.Set(CSRFHeader, issued)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
	})

	t.Run("accepts matching form field", func(t *testing.T) {
		form := url.Values{CSRFFormField: {issued}}
		req := httptest.NewRequest(http.MethodPost, "/admin", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(cookie)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
	})

	t.Run("rejects token from another session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/admin", nil)
		req.Header.Set(CSRFHeader, issued)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rr.Code)
		}
	})
}

func TestRequireCapability(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name  string
		roles []string
		htmx  bool
		want  int
	}{
		{name: "ops can manage", roles: []string{"ops"}, want: http.StatusOK},
		{name: "support cannot manage", roles: []string{"support"}, want: http.StatusForbidden},
		{name: "htmx denial", roles: []string{"support"}, htmx: true, want: http.StatusForbidden},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			auth := &mockAuthenticator{token: "t", user: &User{UID: "u", Roles: tc.roles, Token: "t"}}
			handler := HTMX()(Auth(auth, "")(RequireCapability(rbac.CapTiersManage)(ok)))

			req := httptest.NewRequest(http.MethodPost, "/admin/tiers/delivery-fee/rows", nil)
			req.Header.Set("Authorization", "Bearer t")
			if tc.htmx {
				req.Header.Set("HX-Request", "true")
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rr.Code)
			}
			if tc.htmx && rr.Header().Get("HX-Trigger") == "" {
				t.Fatalf("expected toast trigger on htmx denial")
			}
		})
	}
}

func TestTriggerToast(t *testing.T) {
	rr := httptest.NewRecorder()
	TriggerToast(rr, "保存しました", "")

	var payload struct {
		Toast struct {
			Message string `json:"message"`
			Tone    string `json:"tone"`
		} `json:"toast"`
	}
	if err := json.Unmarshal([]byte(rr.Header().Get("HX-Trigger")), &payload); err != nil {
		t.Fatalf("decode HX-Trigger: %v", err)
	}
	if payload.Toast.Message != "保存しました" || payload.Toast.Tone != ToastSuccess {
		t.Fatalf("unexpected toast %+v", payload.Toast)
	}

	blank := httptest.NewRecorder()
	TriggerToast(blank, "  ", ToastDanger)
	if blank.Header().Get("HX-Trigger") != "" {
		t.Fatalf("blank messages must not trigger a toast")
	}
}

func TestHTMXMiddleware(t *testing.T) {
	handler := HTMX()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := HTMXInfoFromContext(r.Context())
		if !info.IsHTMX || info.Target != "tier-table" {
			t.Fatalf("unexpected htmx info %+v", info)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/tiers/delivery-fee", nil)
	req.Header.Set("HX-Request", "true")
	req.Header.Set("HX-Target", "tier-table")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Header().Get("Vary") != "HX-Request" {
		t.Fatalf("expected Vary header")
	}
}

func TestNoStoreMiddleware(t *testing.T) {
	handler := NoStore()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("Cache-Control"); got != "no-store, max-age=0" {
		t.Fatalf("unexpected Cache-Control: %s", got)
	}
	if got := rr.Header().Get("Pragma"); got != "no-cache" {
		t.Fatalf("unexpected Pragma: %s", got)
	}
}

func TestEnvironmentLabels(t *testing.T) {
	cases := map[string]string{"": "Local", "prod": "Production", "STG": "Staging", "qa": "qa"}
	for in, want := range cases {
		if got := environmentLabel(in); got != want {
			t.Fatalf("environmentLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormaliseBase(t *testing.T) {
	cases := map[string]string{"": "/", "/": "/", "admin": "/admin", "/admin/": "/admin", " /ops/tiers/ ": "/ops/tiers"}
	for in, want := range cases {
		if got := NormaliseBase(in); got != want {
			t.Fatalf("NormaliseBase(%q) = %q, want %q", in, got, want)
		}
	}
}
