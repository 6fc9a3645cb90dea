package middleware

import (
	"net/http"

	"github.com/hitoshi/voxa/internal/model"
)

// Decision はルート認可の判定結果。
type Decision struct {
	Allow      bool
	RedirectTo string
}

// Authorize はプリンシパルの有無だけでアクセス可否を判定する。
// ロールや権限の区別は無い。
func Authorize(principal *model.Account, loginPath string) Decision {
	if principal != nil {
		return Decision{Allow: true}
	}
	return Decision{RedirectTo: loginPath}
}

// RequireAuth は保護ルートごとに適用する認可ゲートを返す。
// 未認証のリクエストはエラーステータスではなく、303でログインページへリダイレクトする。
func RequireAuth(loginPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := Authorize(AccountFromContext(r.Context()), loginPath)
			if !decision.Allow {
				http.Redirect(w, r, decision.RedirectTo, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
