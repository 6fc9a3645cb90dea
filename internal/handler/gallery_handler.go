package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/voxa/internal/gallery"
	"github.com/hitoshi/voxa/internal/model"
)

// multipartMemory はmultipartフォーム解析時にメモリに保持する上限。
const multipartMemory = 8 << 20

// GalleryService はギャラリーハンドラーが必要とするサービスインターフェース。
type GalleryService interface {
	List(ctx context.Context, accountID string) ([]gallery.Photo, error)
	Upload(ctx context.Context, accountID string, file io.Reader, caption string) (*model.Image, error)
	Delete(ctx context.Context, accountID, id string) error
}

// GalleryHandler はフォトギャラリーのHTTPハンドラー。
type GalleryHandler struct {
	service  GalleryService
	renderer *Renderer
	maxBytes int64
}

// NewGalleryHandler はGalleryHandlerを生成する。maxBytesは1ファイルあたりの上限。
func NewGalleryHandler(service GalleryService, renderer *Renderer, maxBytes int64) *GalleryHandler {
	return &GalleryHandler{service: service, renderer: renderer, maxBytes: maxBytes}
}

// List はプリンシパルの画像一覧を表示する。
// GET /gallery
func (h *GalleryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := principalID(w, r)
	if !ok {
		return
	}

	photos, err := h.service.List(r.Context(), userID)
	if err != nil {
		writeServiceError(h.renderer, w, r, "list images", err)
		return
	}
	h.renderer.Render(w, http.StatusOK, pageGallery, newPageData(r, "Gallery", photos))
}

// Upload はmultipartフォームの image フィールドを保存する。
// POST /upload
func (h *GalleryHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := principalID(w, r)
	if !ok {
		return
	}

	if r.MultipartForm == nil && h.maxBytes > 0 {
		// multipartのヘッダー分の余裕を持たせる
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartMemory)
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			h.renderer.RenderError(w, r, http.StatusRequestEntityTooLarge, model.NewFileTooLargeError(h.maxBytes))
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			h.renderer.RenderError(w, r, http.StatusBadRequest, model.NewNoFileUploadedError())
		default:
			slog.Warn("failed to read upload",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
			h.renderer.RenderError(w, r, http.StatusBadRequest, model.NewNoFileUploadedError())
		}
		return
	}
	defer file.Close()

	if h.maxBytes > 0 && header.Size > h.maxBytes {
		h.renderer.RenderError(w, r, http.StatusRequestEntityTooLarge, model.NewFileTooLargeError(h.maxBytes))
		return
	}

	if _, err := h.service.Upload(r.Context(), userID, file, r.FormValue("content")); err != nil {
		writeServiceError(h.renderer, w, r, "upload image", err)
		return
	}
	http.Redirect(w, r, "/gallery", http.StatusSeeOther)
}

// Delete はプリンシパルの画像を削除する。
// DELETE /images/{id} （フォームからは POST /images/{id}/delete）
func (h *GalleryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := principalID(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			writeServiceError(h.renderer, w, r, "delete image", err)
			return
		}
		slog.Warn("image not found",
			slog.String("user_id", userID),
			slog.String("image_id", id),
		)
	}
	http.Redirect(w, r, "/gallery", http.StatusSeeOther)
}
