package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hitoshi/voxa/internal/model"
)

// NoteService はメモハンドラーが必要とするサービスインターフェース。
type NoteService interface {
	List(ctx context.Context, accountID string) ([]model.Note, error)
	Add(ctx context.Context, accountID, title string, completed bool) (*model.Note, error)
	Rename(ctx context.Context, accountID, id, title string) error
	Remove(ctx context.Context, accountID, id string) error
}

// NoteHandler はTODOメモのHTTPハンドラー。
type NoteHandler struct {
	service  NoteService
	renderer *Renderer
}

// NewNoteHandler はNoteHandlerを生成する。
func NewNoteHandler(service NoteService, renderer *Renderer) *NoteHandler {
	return &NoteHandler{service: service, renderer: renderer}
}

// List はプリンシパルのメモ一覧を表示する。
// GET /notes
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := principalID(w, r)
	if !ok {
		return
	}

	notes, err := h.service.List(r.Context(), userID)
	if err != nil {
		writeServiceError(h.renderer, w, r, "list notes", err)
		return
	}
	h.renderer.Render(w, http.StatusOK, pageNotes, newPageData(r, "Notes", notes))
}

// Add はメモを追加する。
// POST /add
func (h *NoteHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := principalID(w, r)
	if !ok {
		return
	}

	completed, _ := strconv.ParseBool(r.PostFormValue("completed"))
	if _, err := h.service.Add(r.Context(), userID, r.PostFormValue("newItem"), completed); err != nil {
		writeServiceError(h.renderer, w, r, "add note", err)
		return
	}
	http.Redirect(w, r, "/notes", http.StatusSeeOther)
}

// Edit はメモのタイトルを変更する。
// POST /edit
func (h *NoteHandler) Edit(w http.ResponseWriter, r *http.Request) {
	userID, ok := principalID(w, r)
	if !ok {
		return
	}

	id := r.PostFormValue("updatedItemId")
	err := h.service.Rename(r.Context(), userID, id, r.PostFormValue("updatedItemTitle"))
	if err != nil && !h.ignoreMissing(err, "edit", id) {
		writeServiceError(h.renderer, w, r, "edit note", err)
		return
	}
	http.Redirect(w, r, "/notes", http.StatusSeeOther)
}

// Delete はメモを削除する。
// POST /delete
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := principalID(w, r)
	if !ok {
		return
	}

	id := r.PostFormValue("deleteItemId")
	if err := h.service.Remove(r.Context(), userID, id); err != nil && !h.ignoreMissing(err, "delete", id) {
		writeServiceError(h.renderer, w, r, "delete note", err)
		return
	}
	http.Redirect(w, r, "/notes", http.StatusSeeOther)
}

// ignoreMissing は対象が無い（他人のメモを含む）場合にログだけ残して一覧へ戻す。
func (h *NoteHandler) ignoreMissing(err error, op, id string) bool {
	if !errors.Is(err, model.ErrNotFound) {
		return false
	}
	slog.Warn("note not found",
		slog.String("op", op),
		slog.String("note_id", id),
	)
	return true
}
