package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/voxa/internal/model"
)

// newChainRouter はセッション復元を全体に、認可ゲートを保護ルートだけに適用したルーターを返す。
func newChainRouter(resolver PrincipalResolver, cookie *SessionCookie) http.Handler {
	r := chi.NewRouter()
	r.Use(NewSessionRestoreMiddleware(resolver, cookie))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("public"))
	})
	r.With(RequireAuth("/login")).Get("/diary", func(w http.ResponseWriter, r *http.Request) {
		userID, _ := UserIDFromContext(r.Context())
		w.Write([]byte(userID))
	})
	return r
}

func TestMiddlewareChain_PublicRouteNeedsNoSession(t *testing.T) {
	router := newChainRouter(&mockPrincipalResolver{}, newTestCookie())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK || w.Body.String() != "public" {
		t.Errorf("status = %d body = %q", w.Code, w.Body.String())
	}
}

func TestMiddlewareChain_ProtectedRouteWithSession(t *testing.T) {
	cookie := newTestCookie()
	router := newChainRouter(resolverFor("tok", &model.Account{ID: "user-chain"}), cookie)

	req := httptest.NewRequest(http.MethodGet, "/diary", nil)
	req.AddCookie(signedSessionCookie(t, cookie, "tok"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.String() != "user-chain" {
		t.Errorf("body = %q, want user-chain", w.Body.String())
	}
}

// 破棄済みセッションのトークンで保護ルートにアクセスするとログインへリダイレクトされる
func TestMiddlewareChain_DestroyedSessionRedirects(t *testing.T) {
	cookie := newTestCookie()
	router := newChainRouter(resolverFor("live", &model.Account{ID: "u"}), cookie)

	req := httptest.NewRequest(http.MethodGet, "/diary", nil)
	req.AddCookie(signedSessionCookie(t, cookie, "destroyed"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if loc := w.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}
}
