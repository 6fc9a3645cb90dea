// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/voxa/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// accountContextKey はリクエストコンテキストにプリンシパルを格納するためのキー。
var accountContextKey = contextKey("account")

// PrincipalResolver はセッショントークンからプリンシパルを復元する。
// トークンが無効な場合は nil, nil を返す。
type PrincipalResolver interface {
	CurrentAccount(ctx context.Context, token string) (*model.Account, error)
}

// NewSessionRestoreMiddleware はCookieのセッショントークンからプリンシパルを復元し、
// リクエストコンテキストに注入するミドルウェアを返す。
// 未認証のリクエストもそのまま通し、アクセス可否はRequireAuthが判断する。
// セッションストアの障害は500として扱い、ログインページへのリダイレクトにはしない。
func NewSessionRestoreMiddleware(resolver PrincipalResolver, cookie *SessionCookie) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := cookie.Read(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			account, err := resolver.CurrentAccount(r.Context(), token)
			if err != nil {
				slog.Error("failed to restore session",
					slog.String("error", err.Error()),
					slog.String("path", r.URL.Path),
				)
				WriteInternalServerError(w)
				return
			}
			if account == nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithAccount(r.Context(), account)))
		})
	}
}

// ContextWithAccount はコンテキストにプリンシパルを注入する。
func ContextWithAccount(ctx context.Context, account *model.Account) context.Context {
	return context.WithValue(ctx, accountContextKey, account)
}

// AccountFromContext はリクエストコンテキストからプリンシパルを取得する。未認証ならnil。
func AccountFromContext(ctx context.Context) *model.Account {
	account, _ := ctx.Value(accountContextKey).(*model.Account)
	return account
}

// UserIDFromContext はリクエストコンテキストからアカウントIDを取得する。
// 日記・メモ・画像の所有者フィルタに使う。
func UserIDFromContext(ctx context.Context) (string, error) {
	account := AccountFromContext(ctx)
	if account == nil || account.ID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return account.ID, nil
}
