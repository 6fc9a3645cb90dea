package middleware

import (
	"fmt"
	"html"
	"net/http"

	"github.com/hitoshi/voxa/internal/model"
)

// WriteErrorResponse はミドルウェア層で発生したエラーを簡易HTMLページとして書き込む。
// テンプレートを持たない層でも原因カテゴリと対処方法を一貫して表示する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Error-Code", apiErr.Code)
	w.WriteHeader(statusCode)
	fmt.Fprintf(w,
		"<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>%d</title></head>"+
			"<body><h1>%s</h1><p>%s</p><p><a href=\"/\">Home</a></p></body></html>",
		statusCode,
		html.EscapeString(apiErr.Message),
		html.EscapeString(apiErr.Action),
	)
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}
