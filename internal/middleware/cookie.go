package middleware

import (
	"crypto/sha512"
	"net/http"

	"github.com/gorilla/securecookie"
)

const sessionCookieName = "session_id"

// CookieConfig はセッションCookieの設定。
type CookieConfig struct {
	Secret string // SESSION_SECRET。署名鍵の導出に使う
	Domain string
	Secure bool
	MaxAge int // 秒
}

// SessionCookie はセッショントークンを署名付きのHttpOnly Cookieで受け渡す。
type SessionCookie struct {
	codec  *securecookie.SecureCookie
	config CookieConfig
}

// NewSessionCookie はSessionCookieを生成する。
func NewSessionCookie(config CookieConfig) *SessionCookie {
	hashKey := sha512.Sum512([]byte(config.Secret))
	codec := securecookie.New(hashKey[:], nil)
	if config.MaxAge > 0 {
		codec.MaxAge(config.MaxAge)
	}
	return &SessionCookie{codec: codec, config: config}
}

// Write はセッショントークンをCookieに書き込む。
func (c *SessionCookie) Write(w http.ResponseWriter, token string) error {
	encoded, err := c.codec.Encode(sessionCookieName, token)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    encoded,
		Path:     "/",
		Domain:   c.config.Domain,
		MaxAge:   c.config.MaxAge,
		HttpOnly: true,
		Secure:   c.config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Read はCookieからセッショントークンを取り出す。
// Cookieが無い、または署名が不正な場合は空文字を返す。
func (c *SessionCookie) Read(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	var token string
	if err := c.codec.Decode(sessionCookieName, cookie.Value, &token); err != nil {
		return ""
	}
	return token
}

// Clear はセッションCookieを削除する。
func (c *SessionCookie) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   c.config.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
