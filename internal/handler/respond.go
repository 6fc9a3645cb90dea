package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/voxa/internal/middleware"
	"github.com/hitoshi/voxa/internal/model"
)

// principalID は認可ゲートを通過したリクエストのアカウントIDを返す。
// ゲートの外で呼ばれた場合はログインへリダイレクトしてfalseを返す。
func principalID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return "", false
	}
	return userID, true
}

// writeServiceError はドメインサービスのエラーを画面用のレスポンスに変換する。
// 想定外のエラーは詳細をログにだけ残して汎用の500ページを返す。
func writeServiceError(rd *Renderer, w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		rd.RenderError(w, r, http.StatusBadRequest, model.NewInvalidInputError(err.Error()))
	case errors.Is(err, model.ErrUnsupportedMedia):
		rd.RenderError(w, r, http.StatusUnsupportedMediaType, model.NewUnsupportedMediaError(err.Error()))
	default:
		slog.Error(op+" failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		rd.RenderError(w, r, http.StatusInternalServerError, model.NewInternalError())
	}
}
