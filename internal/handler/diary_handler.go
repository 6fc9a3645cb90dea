package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/voxa/internal/model"
)

// DiaryService は日記ハンドラーが必要とするサービスインターフェース。
type DiaryService interface {
	List(ctx context.Context, accountID string) ([]model.DiaryEntry, error)
	Add(ctx context.Context, accountID, content, entryDate string) (*model.DiaryEntry, error)
}

// DiaryHandler は日記のHTTPハンドラー。
type DiaryHandler struct {
	service  DiaryService
	renderer *Renderer
}

// NewDiaryHandler はDiaryHandlerを生成する。
func NewDiaryHandler(service DiaryService, renderer *Renderer) *DiaryHandler {
	return &DiaryHandler{service: service, renderer: renderer}
}

// List はプリンシパルの日記を日付順に表示する。
// GET /diary
func (h *DiaryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := principalID(w, r)
	if !ok {
		return
	}

	entries, err := h.service.List(r.Context(), userID)
	if err != nil {
		writeServiceError(h.renderer, w, r, "list diary", err)
		return
	}
	h.renderer.Render(w, http.StatusOK, pageDiary, newPageData(r, "Diary", entries))
}

// Add は日記エントリを追加する。entryDate省略時は当日の日付になる。
// POST /adddiary
func (h *DiaryHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := principalID(w, r)
	if !ok {
		return
	}

	_, err := h.service.Add(r.Context(), userID, r.PostFormValue("content"), r.PostFormValue("entryDate"))
	if err != nil {
		writeServiceError(h.renderer, w, r, "add diary", err)
		return
	}
	http.Redirect(w, r, "/diary", http.StatusSeeOther)
}
