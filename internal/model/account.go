// Package model はドメインモデルを定義する。
package model

import "time"

// OAuthSentinelPassword はOAuth経由で作成されたアカウントのpassword_hash列に格納する固定値。
// bcryptハッシュとして解釈できないため、どの平文パスワードとも一致しない。
const OAuthSentinelPassword = "google"

// Account はログイン可能なアカウントを表す。
// セッションにはこの構造体全体（password_hashを含む）がそのままシリアライズされる。
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasLocalPassword はローカル認証用のパスワードが設定されているかを返す。
func (a *Account) HasLocalPassword() bool {
	return a.PasswordHash != "" && a.PasswordHash != OAuthSentinelPassword
}

// Session はアカウントのログインセッションを表す。
// Dataにはシリアライズ済みのプリンシパル（Account）が入る。
type Session struct {
	ID        string
	AccountID string
	Data      []byte
	ExpiresAt time.Time
	CreatedAt time.Time
}
