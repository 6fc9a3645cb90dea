package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hitoshi/voxa/internal/middleware"
	"github.com/hitoshi/voxa/internal/model"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	rd, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	return rd
}

func newTestSessionCookie() *middleware.SessionCookie {
	return middleware.NewSessionCookie(middleware.CookieConfig{
		Secret: "handler-test-secret",
		MaxAge: 3600,
	})
}

// postForm はフォームボディ付きのPOSTリクエストを生成する。
func postForm(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// withAccount はリクエストコンテキストにプリンシパルを注入する。
func withAccount(req *http.Request, account *model.Account) *http.Request {
	return req.WithContext(middleware.ContextWithAccount(req.Context(), account))
}

func testAccount() *model.Account {
	return &model.Account{ID: "account-1", Email: "alice@example.com"}
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func assertRedirect(t *testing.T, w *httptest.ResponseRecorder, wantStatus int, wantLocation string) {
	t.Helper()
	if w.Code != wantStatus {
		t.Fatalf("status = %d, want %d (body=%s)", w.Code, wantStatus, w.Body.String())
	}
	if got := w.Header().Get("Location"); got != wantLocation {
		t.Errorf("Location = %q, want %q", got, wantLocation)
	}
}
