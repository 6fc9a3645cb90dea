package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/voxa/internal/middleware"
	"github.com/hitoshi/voxa/internal/storage"
)

// loginPath は未認証リクエストのリダイレクト先。
const loginPath = "/login"

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// 画面描画
	Renderer *Renderer

	// ミドルウェア依存
	SessionCookie     *middleware.SessionCookie
	PrincipalResolver middleware.PrincipalResolver
	RateLimiter       *middleware.RateLimiter
	Perimeter         func(next http.Handler) http.Handler
	CSRF              middleware.CSRFConfig
	CookieSecure      bool
	Logger            *slog.Logger
	StatusRecorder    middleware.StatusRecorder

	// 運用
	Health         HealthChecker
	MetricsHandler http.Handler

	// 認証
	AuthService AuthService

	// ジャーナル
	DiaryService   DiaryService
	NoteService    NoteService
	GalleryService GalleryService
	UploadMaxBytes int64
	// UploadDir が空でなければ /uploads/* でディスク上の画像を配信する。
	UploadDir string
}

// NewRouter は全ルートとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → SessionRestore → Logging → CSRF
//
// 保護ルートには個別に RequireAuth → RateLimit(General) を適用する。
// /health と /metrics はセッション復元の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.CookieSecure))

	perimeter := deps.Perimeter
	if perimeter == nil {
		perimeter = func(next http.Handler) http.Handler { return next }
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pageHandler := NewPageHandler(deps.Renderer, deps.Health)
	authHandler := NewAuthHandler(deps.AuthService, deps.SessionCookie, deps.Renderer, AuthHandlerConfig{
		CookieSecure: deps.CookieSecure,
	})
	diaryHandler := NewDiaryHandler(deps.DiaryService, deps.Renderer)
	noteHandler := NewNoteHandler(deps.NoteService, deps.Renderer)
	galleryHandler := NewGalleryHandler(deps.GalleryService, deps.Renderer, deps.UploadMaxBytes)

	// --- 運用エンドポイント ---
	r.Get("/health", pageHandler.Health)
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	accessLog := middleware.NewLoggingMiddleware(logger, deps.StatusRecorder)

	// ログアウトはセッションを復元しない。ストア障害時もCookieを消して戻れるようにする
	r.With(accessLog).Get("/logout", authHandler.Logout)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionRestoreMiddleware(deps.PrincipalResolver, deps.SessionCookie))
		r.Use(accessLog)
		r.Use(middleware.NewCSRFMiddleware(deps.CSRF))

		// --- 認証不要のルート ---
		r.Get("/", pageHandler.Start)
		r.Get("/login", authHandler.LoginPage)
		r.Get("/register", authHandler.RegisterPage)

		r.Group(func(r chi.Router) {
			r.Use(perimeter)

			r.Post("/login", authHandler.Login)
			r.Post("/register", authHandler.Register)

			// OAuthフロー
			r.Route("/auth/google", func(r chi.Router) {
				r.Get("/", authHandler.GoogleLogin)
				r.Get("/callback", authHandler.GoogleCallback)
				r.Get("/home", authHandler.GoogleCallback)
			})
		})

		// --- 認証が必要なルート ---
		// ルートごとに認可ゲートを合成する
		protected := r.With(middleware.RequireAuth(loginPath), deps.RateLimiter.GeneralMiddleware())

		protected.Get("/home", pageHandler.Home)

		protected.Get("/diary", diaryHandler.List)
		protected.Post("/adddiary", diaryHandler.Add)

		protected.Get("/notes", noteHandler.List)
		protected.Post("/add", noteHandler.Add)
		protected.Post("/edit", noteHandler.Edit)
		protected.Post("/delete", noteHandler.Delete)

		protected.Get("/gallery", galleryHandler.List)
		protected.With(deps.RateLimiter.UploadMiddleware()).Post("/upload", galleryHandler.Upload)
		protected.Delete("/images/{id}", galleryHandler.Delete)
		protected.Post("/images/{id}/delete", galleryHandler.Delete)

		if deps.UploadDir != "" {
			files := http.StripPrefix(storage.DiskURLPrefix, http.FileServer(http.Dir(deps.UploadDir)))
			protected.Handle(storage.DiskURLPrefix+"*", noDirectoryListing(files))
		}
	})

	return r
}

// noDirectoryListing はディレクトリへのリクエストを404にする。
func noDirectoryListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
