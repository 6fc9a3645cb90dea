// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/voxa/internal/auth"
	"github.com/hitoshi/voxa/internal/middleware"
	"github.com/hitoshi/voxa/internal/model"
)

const oauthStateCookie = "oauth_state"

// maxPasswordBytes はbcryptが扱えるパスワードの最大バイト数。
const maxPasswordBytes = 72

// AuthService は認証ハンドラーが必要とするサービスインターフェース。
type AuthService interface {
	Register(ctx context.Context, email, password string) (*model.Session, error)
	Login(ctx context.Context, email, password string) (*model.Session, error)
	StrategyAvailable(name string) bool
	OAuthLoginURL(name, state string) (string, error)
	HandleOAuthCallback(ctx context.Context, name, code string) (*model.Session, error)
	Logout(ctx context.Context, token string) error
}

// credentialsForm はログイン・登録フォームの入力。
type credentialsForm struct {
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,max=72"`
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieSecure bool
}

// AuthHandler はローカル認証とOAuth認証のHTTPハンドラー。
type AuthHandler struct {
	service  AuthService
	cookie   *middleware.SessionCookie
	renderer *Renderer
	validate *validator.Validate
	config   AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthService, cookie *middleware.SessionCookie, renderer *Renderer, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		cookie:   cookie,
		renderer: renderer,
		validate: validator.New(),
		config:   config,
	}
}

// LoginPage はログインフォームを表示する。
// GET /login
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, http.StatusOK, pageLogin, newPageData(r, "Login", h.service.StrategyAvailable(auth.StrategyGoogle)))
}

// RegisterPage は登録フォームを表示する。
// GET /register
func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, http.StatusOK, pageRegister, newPageData(r, "Register", nil))
}

// Register はローカルアカウントを作成してログインさせる。
// POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	form := readCredentials(r)
	if err := h.validateCredentials(form); err != nil {
		data := newPageData(r, "Register", form.Email)
		data.Error = model.NewInvalidInputError(err.Error())
		h.renderer.Render(w, http.StatusBadRequest, pageRegister, data)
		return
	}

	session, err := h.service.Register(r.Context(), form.Email, form.Password)
	if err != nil {
		if errors.Is(err, model.ErrAlreadyExists) {
			data := newPageData(r, "Register", form.Email)
			data.Error = model.NewAlreadyExistsError()
			h.renderer.Render(w, http.StatusConflict, pageRegister, data)
			return
		}
		slog.Error("registration failed", slog.String("error", err.Error()))
		h.renderer.RenderError(w, r, http.StatusInternalServerError, model.NewInternalError())
		return
	}

	h.startSession(w, r, session)
}

// Login はメールアドレスとパスワードで認証する。
// 失敗理由はアカウント列挙を防ぐため区別せず、ログイン画面へ戻す。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	form := readCredentials(r)
	if form.Email == "" || form.Password == "" {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	session, err := h.service.Login(r.Context(), form.Email, form.Password)
	if err != nil {
		if model.IsAuthFailure(err) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		slog.Error("login failed", slog.String("error", err.Error()))
		h.renderer.RenderError(w, r, http.StatusInternalServerError, model.NewInternalError())
		return
	}

	h.startSession(w, r, session)
}

// GoogleLogin はGoogle OAuthフローを開始する。
// GET /auth/google
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.service.StrategyAvailable(auth.StrategyGoogle) {
		h.renderStrategyUnavailable(w, r)
		return
	}

	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		h.renderer.RenderError(w, r, http.StatusInternalServerError, model.NewInternalError())
		return
	}

	url, err := h.service.OAuthLoginURL(auth.StrategyGoogle, state)
	if err != nil {
		if errors.Is(err, model.ErrStrategyUnavailable) {
			h.renderStrategyUnavailable(w, r)
			return
		}
		slog.Error("failed to build oauth login url", slog.String("error", err.Error()))
		h.renderer.RenderError(w, r, http.StatusInternalServerError, model.NewInternalError())
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// GoogleCallback はOAuthコールバックを処理する。
// GET /auth/google/callback?code=xxx&state=yyy （/auth/google/home も同じ）
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if !h.service.StrategyAvailable(auth.StrategyGoogle) {
		h.renderStrategyUnavailable(w, r)
		return
	}

	// 1. stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	h.clearStateCookie(w)

	// 2. 利用者が同意を拒否した場合など
	if providerErr := r.URL.Query().Get("error"); providerErr != "" {
		slog.Info("oauth authorization declined", slog.String("reason", providerErr))
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	// 3. 認証処理
	session, err := h.service.HandleOAuthCallback(r.Context(), auth.StrategyGoogle, code)
	if err != nil {
		switch {
		case model.IsAuthFailure(err):
			slog.Info("oauth login returned no user", slog.String("reason", err.Error()))
			http.Redirect(w, r, "/login", http.StatusSeeOther)
		case errors.Is(err, model.ErrStrategyUnavailable):
			h.renderStrategyUnavailable(w, r)
		default:
			slog.Error("oauth callback failed", slog.String("error", err.Error()))
			h.renderer.RenderError(w, r, http.StatusInternalServerError, model.NewInternalError())
		}
		return
	}

	h.startSession(w, r, session)
}

// Logout はセッションを破棄してトップページへ戻す。
// 破棄に失敗してもCookieはクリアする。
// GET /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), h.cookie.Read(r)); err != nil {
		slog.Error("failed to logout", slog.String("error", err.Error()))
	}
	h.cookie.Clear(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// startSession はセッションCookieを書き込んで /home へリダイレクトする。
func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, session *model.Session) {
	if err := h.cookie.Write(w, session.ID); err != nil {
		slog.Error("failed to write session cookie", slog.String("error", err.Error()))
		h.renderer.RenderError(w, r, http.StatusInternalServerError, model.NewInternalError())
		return
	}
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

func (h *AuthHandler) renderStrategyUnavailable(w http.ResponseWriter, r *http.Request) {
	h.renderer.RenderError(w, r, http.StatusNotFound, model.NewStrategyUnavailableError("Google"))
}

func (h *AuthHandler) clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// validateCredentials は登録フォームを検証する。
func (h *AuthHandler) validateCredentials(form credentialsForm) error {
	if err := h.validate.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, strings.ToLower(fe.Field())+"("+fe.Tag()+")")
			}
			return fmt.Errorf("%s", strings.Join(fields, ", "))
		}
		return err
	}
	if len(form.Password) > maxPasswordBytes {
		return fmt.Errorf("password(max=%d bytes)", maxPasswordBytes)
	}
	return nil
}

// readCredentials はフォームからメールアドレスとパスワードを読み取る。
// メールアドレスは username フィールドを優先し、無ければ email フィールドを使う。
// 保存値と完全一致で照合するため、空白除去や大文字小文字の正規化はしない。
func readCredentials(r *http.Request) credentialsForm {
	email := r.PostFormValue("username")
	if email == "" {
		email = r.PostFormValue("email")
	}
	return credentialsForm{
		Email:    email,
		Password: r.PostFormValue("password"),
	}
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
