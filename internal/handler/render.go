package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/voxa/internal/middleware"
	"github.com/hitoshi/voxa/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// ページテンプレート名
const (
	pageStart    = "start"
	pageLogin    = "login"
	pageRegister = "register"
	pageHome     = "home"
	pageDiary    = "diary"
	pageNotes    = "notes"
	pageGallery  = "gallery"
	pageError    = "error"
)

var pageNames = []string{
	pageStart, pageLogin, pageRegister, pageHome,
	pageDiary, pageNotes, pageGallery, pageError,
}

// PageData はテンプレートに渡す共通データ。
type PageData struct {
	Title     string
	Account   *model.Account
	CSRFToken string
	Error     *model.APIError
	Data      any
}

// Renderer は埋め込みテンプレートからHTMLページを描画する。
// ページごとにレイアウトを複製して content ブロックを差し替える。
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer は全ページのテンプレートを解析する。
func NewRenderer() (*Renderer, error) {
	funcs := template.FuncMap{
		"formatDate": func(t time.Time) string {
			return t.Format("2006-01-02")
		},
		"csrfFieldName": func() string {
			return middleware.CSRFFormField
		},
	}

	layout, err := template.New("layout").Funcs(funcs).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := layout.Clone()
		if err != nil {
			return nil, fmt.Errorf("failed to clone layout for %s: %w", name, err)
		}
		if _, err := t.ParseFS(templateFS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("failed to parse page %s: %w", name, err)
		}
		pages[name] = t
	}
	return &Renderer{pages: pages}, nil
}

// Render はページを描画する。描画に失敗した場合は部分的なHTMLを送らず500を返す。
func (rd *Renderer) Render(w http.ResponseWriter, status int, name string, data PageData) {
	t, ok := rd.pages[name]
	if !ok {
		slog.Error("unknown page template", slog.String("page", name))
		middleware.WriteInternalServerError(w)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		slog.Error("failed to render page",
			slog.String("page", name),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// RenderError はエラーページを描画する。
func (rd *Renderer) RenderError(w http.ResponseWriter, r *http.Request, status int, apiErr *model.APIError) {
	data := newPageData(r, "Error", nil)
	data.Error = apiErr
	w.Header().Set("X-Error-Code", apiErr.Code)
	rd.Render(w, status, pageError, data)
}

// newPageData はリクエストのプリンシパルとCSRFトークンを埋めたPageDataを返す。
func newPageData(r *http.Request, title string, data any) PageData {
	return PageData{
		Title:     title,
		Account:   middleware.AccountFromContext(r.Context()),
		CSRFToken: middleware.CSRFToken(r.Context()),
		Data:      data,
	}
}
