package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/seminar-scheduler/internal/application"
)

func TestSplitResourcePath(t *testing.T) {
	cases := []struct {
		path   string
		prefix string
		id     int64
		rest   string
		ok     bool
	}{
		{"/plans/7", "/plans/", 7, "", true},
		{"/plans/7/slots", "/plans/", 7, "slots", true},
		{"/plans/7/slots/", "/plans/", 7, "slots", true},
		{"/plans/", "/plans/", 0, "", false},
		{"/plans/abc", "/plans/", 0, "", false},
		{"/plans/0", "/plans/", 0, "", false},
		{"/plans/-3", "/plans/", 0, "", false},
		{"/suggestions/12/workflow", "/suggestions/", 12, "workflow", true},
	}

	for _, tc := range cases {
		id, rest, ok := splitResourcePath(tc.path, tc.prefix)
		if id != tc.id || rest != tc.rest || ok != tc.ok {
			t.Fatalf("path %q: expected (%d, %q, %v), got (%d, %q, %v)",
				tc.path, tc.id, tc.rest, tc.ok, id, rest, ok)
		}
	}
}

func TestRouterMethodNotAllowed(t *testing.T) {
	router := NewRouter(RouterConfig{
		Plans: &PlanHandler{},
		Slots: &SlotHandler{},
	})

	cases := []struct {
		method string
		path   string
		allow  string
	}{
		{http.MethodPut, "/plans", "GET, POST"},
		{http.MethodPost, "/plans/3", "GET, DELETE"},
		{http.MethodDelete, "/plans/3/slots", "GET, POST"},
		{http.MethodGet, "/slots/3", "DELETE"},
		{http.MethodGet, "/slots/3/release", "POST"},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s %s: expected 405, got %d", tc.method, tc.path, rec.Code)
		}
		if got := rec.Header().Get("Allow"); got != tc.allow {
			t.Fatalf("%s %s: expected Allow %q, got %q", tc.method, tc.path, tc.allow, got)
		}
	}
}

func TestRouterRejectsMalformedIDs(t *testing.T) {
	router := NewRouter(RouterConfig{Plans: &PlanHandler{}})

	for _, path := range []string{"/plans/abc", "/plans/0", "/plans/3/unknown"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, rec.Code)
		}
	}
}

type staticAuthenticator struct {
	password string
}

func (a staticAuthenticator) Authenticate(password string) error {
	if password != a.password {
		return application.ErrUnauthorized
	}
	return nil
}

func TestRouterAdminGate(t *testing.T) {
	router := NewRouter(RouterConfig{
		Admin:     &AdminHandler{},
		AdminGate: RequireAdmin(staticAuthenticator{password: "open sesame"}, nil),
	})

	// No password: 401.
	req := httptest.NewRequest(http.MethodGet, "/admin/backups", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without password, got %d", rec.Code)
	}

	// Wrong password: 403.
	req = httptest.NewRequest(http.MethodGet, "/admin/backups", nil)
	req.Header.Set("X-Admin-Password", "wrong")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 with wrong password, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "AUTH_FORBIDDEN") {
		t.Fatalf("expected AUTH_FORBIDDEN in body, got %s", rec.Body.String())
	}

	// Correct password passes the gate; a POST on a GET route proves the
	// inner mux was reached.
	req = httptest.NewRequest(http.MethodPost, "/admin/activity", nil)
	req.Header.Set("X-Admin-Password", "open sesame")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 past the gate, got %d", rec.Code)
	}
}

func TestRouterBackupInspectPath(t *testing.T) {
	router := NewRouter(RouterConfig{Admin: &AdminHandler{}})

	// Only the /inspect suffix under a backup name is routable.
	req := httptest.NewRequest(http.MethodGet, "/admin/backups/snap.db", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a bare backup name, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/admin/backups/snap.db/inspect", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for POST, got %d", rec.Code)
	}
	if got := rec.Header().Get("Allow"); got != "GET" {
		t.Fatalf("unexpected Allow header %q", got)
	}
}

func TestRouterMiddlewareOrder(t *testing.T) {
	var order []string
	tag := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	router := NewRouter(RouterConfig{
		Plans:      &PlanHandler{},
		Middleware: []func(http.Handler) http.Handler{tag("outer"), tag("inner")},
	})

	req := httptest.NewRequest(http.MethodPut, "/plans", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Fatalf("expected outer before inner, got %v", order)
	}
}
