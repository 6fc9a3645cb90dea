// Package app はサブコマンドごとの起動処理と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/hitoshi/voxa/internal/auth"
	"github.com/hitoshi/voxa/internal/config"
	"github.com/hitoshi/voxa/internal/database"
	"github.com/hitoshi/voxa/internal/diary"
	"github.com/hitoshi/voxa/internal/gallery"
	"github.com/hitoshi/voxa/internal/handler"
	"github.com/hitoshi/voxa/internal/logger"
	"github.com/hitoshi/voxa/internal/metrics"
	"github.com/hitoshi/voxa/internal/middleware"
	"github.com/hitoshi/voxa/internal/note"
	"github.com/hitoshi/voxa/internal/repository"
	"github.com/hitoshi/voxa/internal/security"
	"github.com/hitoshi/voxa/internal/storage"
	"github.com/hitoshi/voxa/internal/worker/cleanup"
)

// multipartOverhead はアップロード上限に加えて許容するmultipartのヘッダー・他フィールド分。
const multipartOverhead = 1 << 20

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. ログレベルの反映
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	if cmd == CommandHelp {
		return writeUsage(w)
	}

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// openDatabase はプール設定を適用してDBに接続し、疎通を確認する。
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL, database.PoolOptions{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// runServe はWebサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established",
		slog.Int("max_open_conns", cfg.DBMaxOpenConns),
		slog.Duration("acquire_timeout", cfg.DBAcquireTimeout),
	)

	// 2. リポジトリの初期化
	accountRepo := repository.NewPostgresAccountRepo(db, cfg.DBAcquireTimeout)
	sessionRepo := repository.NewPostgresSessionRepo(db, cfg.DBAcquireTimeout)
	diaryRepo := repository.NewPostgresDiaryRepo(db, cfg.DBAcquireTimeout)
	noteRepo := repository.NewPostgresNoteRepo(db, cfg.DBAcquireTimeout)
	imageRepo := repository.NewPostgresImageRepo(db, cfg.DBAcquireTimeout)

	// 3. メトリクス
	registry := newMetricsRegistry()
	collector := metrics.NewCollector(registry)

	// 4. 画像ストレージ
	store, uploadDir, err := newObjectStore(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	// 5. ドメインサービスの初期化
	authService := newAuthService(cfg, accountRepo, sessionRepo, collector)
	sanitizer := security.NewTextSanitizer()
	diaryService := diary.NewService(diaryRepo, sanitizer)
	noteService := note.NewService(noteRepo, sanitizer)
	galleryService := gallery.NewService(imageRepo, store, sanitizer, collector, slog.Default())

	// 6. ルーターの構築
	renderer, err := handler.NewRenderer()
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}
	rateLimiter := middleware.NewRateLimiter(rateLimiterConfig(cfg))
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Renderer: renderer,

		SessionCookie: middleware.NewSessionCookie(middleware.CookieConfig{
			Secret: cfg.SessionSecret,
			Domain: cfg.CookieDomain,
			Secure: cfg.CookieSecure,
			MaxAge: cfg.SessionMaxAge,
		}),
		PrincipalResolver: authService,
		RateLimiter:       rateLimiter,
		Perimeter:         middleware.NewPerimeterLimiter(cfg.PerimeterRequests, cfg.PerimeterWindow),
		CSRF: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
			MaxBodyBytes: cfg.UploadMaxBytes + multipartOverhead,
		},
		CookieSecure:   cfg.CookieSecure,
		Logger:         slog.Default(),
		StatusRecorder: collector,

		Health:         db,
		MetricsHandler: metrics.Handler(registry),

		AuthService: authService,

		DiaryService:   diaryService,
		NoteService:    noteService,
		GalleryService: galleryService,
		UploadMaxBytes: cfg.UploadMaxBytes,
		UploadDir:      uploadDir,
	})

	// 7. HTTPサーバーの起動
	server := newHTTPServer(cfg.ServerPort, router)
	return serveUntilSignal(server, "web server")
}

// runWorker はワーカーモードで起動する。
// 期限切れセッションの削除を定期実行し、/health と /metrics を公開する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	// 2. メトリクス
	registry := newMetricsRegistry()
	collector := metrics.NewCollector(registry)

	// 3. クリーンアップジョブの起動
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cleanupJob := cleanup.NewCleanupJob(db, slog.Default(), collector)
	done := make(chan struct{})
	go func() {
		defer close(done)
		cleanupJob.Start(ctx, cfg.SessionCleanupInterval)
	}()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.SessionCleanupInterval),
	)

	// 4. 運用エンドポイント
	server := newHTTPServer(cfg.ServerPort, newWorkerRouter(db, registry))
	err = serveUntilSignal(server, "worker")

	cancel()
	<-done
	slog.Info("worker stopped gracefully")
	return err
}

// newWorkerRouter はワーカー用の運用エンドポイントを構成する。
func newWorkerRouter(health handler.HealthChecker, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware(slog.Default()))
	r.Get("/health", handler.NewPageHandler(nil, health).Health)
	r.Handle("/metrics", metrics.Handler(gatherer))
	return r
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	status, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		if errors.Is(err, database.ErrDirtySchema) {
			slog.Error("schema is dirty; fix the failed migration and force the version before retrying",
				slog.Uint64("version", uint64(status.Version)),
			)
		}
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(status.Version)),
		slog.Uint64("latest", uint64(status.Latest)),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// newAuthService は認証ストラテジーを登録したServiceを生成する。
// GoogleはクライアントIDとシークレットが両方設定されている場合だけ登録する。
func newAuthService(cfg *config.Config, accounts repository.AccountRepository, sessions repository.SessionRepository, recorder auth.MetricsRecorder) *auth.Service {
	registry := auth.NewRegistry()
	registry.Register(auth.NewLocalStrategy(accounts, auth.NewBcryptHasher(auth.DefaultBcryptCost)))

	if cfg.GoogleEnabled() {
		provider := auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
		})
		registry.Register(auth.NewOAuthStrategy(auth.StrategyGoogle, provider, accounts))
		slog.Info("google login enabled", slog.String("redirect_url", cfg.GoogleRedirectURL))
	} else {
		slog.Info("google login disabled")
	}

	sessionManager := auth.NewSessionManager(sessions, time.Duration(cfg.SessionMaxAge)*time.Second)
	return auth.NewService(registry, sessionManager, recorder)
}

// newObjectStore は STORAGE_BACKEND に応じた画像ストレージを生成する。
// ディスク保存の場合は配信用のディレクトリも返す。
func newObjectStore(ctx context.Context, cfg *config.Config) (storage.ObjectStore, string, error) {
	if cfg.StorageBackend == config.StorageS3 {
		store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			return nil, "", err
		}
		slog.Info("image storage: s3", slog.String("bucket", cfg.S3Bucket))
		return store, "", nil
	}

	store, err := storage.NewDiskStore(cfg.UploadDir)
	if err != nil {
		return nil, "", err
	}
	slog.Info("image storage: disk", slog.String("dir", store.Dir()))
	return store, store.Dir(), nil
}

// rateLimiterConfig は req/min 単位の設定値を req/sec に変換する。
func rateLimiterConfig(cfg *config.Config) middleware.RateLimiterConfig {
	rlc := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		rlc.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
		rlc.GeneralBurst = cfg.RateLimitGeneral
	}
	if cfg.RateLimitUpload > 0 {
		rlc.UploadRate = rate.Limit(float64(cfg.RateLimitUpload) / 60.0)
		rlc.UploadBurst = cfg.RateLimitUpload
	}
	return rlc
}

// newMetricsRegistry はGo・プロセスのメトリクスを登録したレジストリを返す。
func newMetricsRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

func newHTTPServer(port string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// serveUntilSignal はサーバーを起動し、SIGINT/SIGTERMでグレースフルシャットダウンする。
// 起動に失敗した場合はそのエラーを返す。
func serveUntilSignal(server *http.Server, name string) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	errCh := make(chan error, 1)
	go func() {
		slog.Info(name+" starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("%s listen error: %w", name, err)
	case <-stop:
	}

	slog.Info("shutting down " + name + "...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("%s shutdown failed: %w", name, err)
	}

	slog.Info(name + " stopped gracefully")
	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
