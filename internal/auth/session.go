package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/voxa/internal/model"
	"github.com/hitoshi/voxa/internal/repository"
)

// SessionManager はセッショントークンと認証済みプリンシパルの対応を管理する。
//
// セッションにはパスワードハッシュを含むアカウント全体を保存する。
// 復元時にアカウントの再取得は行わないため、セッションが有効な間は古いアカウント情報が使われる。
type SessionManager struct {
	repo   repository.SessionRepository
	maxAge time.Duration
	now    func() time.Time
}

// NewSessionManager はSessionManagerを生成する。
func NewSessionManager(repo repository.SessionRepository, maxAge time.Duration) *SessionManager {
	return &SessionManager{repo: repo, maxAge: maxAge, now: time.Now}
}

// MaxAge はセッションの有効期間を返す。
func (m *SessionManager) MaxAge() time.Duration { return m.maxAge }

// Serialize はアカウントをセッションペイロードに変換する。
func (m *SessionManager) Serialize(account *model.Account) ([]byte, error) {
	if account == nil {
		return nil, fmt.Errorf("account is required")
	}
	data, err := json.Marshal(account)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize account: %w", err)
	}
	return data, nil
}

// Deserialize はセッションペイロードからアカウントを復元する。
func (m *SessionManager) Deserialize(data []byte) (*model.Account, error) {
	var account model.Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, fmt.Errorf("failed to deserialize account: %w", err)
	}
	if account.ID == "" {
		return nil, fmt.Errorf("session payload has no account id")
	}
	return &account, nil
}

// Establish はアカウントのセッションを作成し永続化する。
func (m *SessionManager) Establish(ctx context.Context, account *model.Account) (*model.Session, error) {
	data, err := m.Serialize(account)
	if err != nil {
		return nil, err
	}

	token, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := m.now().UTC()
	session := &model.Session{
		ID:        token,
		AccountID: account.ID,
		Data:      data,
		ExpiresAt: now.Add(m.maxAge),
		CreatedAt: now,
	}
	if err := m.repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return session, nil
}

// Resolve はトークンに対応するプリンシパルを返す。
// トークンが空・期限切れ・破棄済みの場合は nil, nil を返す。
// 復元できないペイロードのセッションは破棄し、未認証として扱う。
func (m *SessionManager) Resolve(ctx context.Context, token string) (*model.Account, error) {
	if token == "" {
		return nil, nil
	}
	session, err := m.repo.FindByID(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	account, err := m.Deserialize(session.Data)
	if err != nil {
		slog.Warn("discarding unreadable session",
			slog.String("error", err.Error()),
			slog.String("account_id", session.AccountID),
		)
		if derr := m.repo.DeleteByID(ctx, token); derr != nil {
			slog.Error("failed to delete unreadable session", slog.String("error", derr.Error()))
		}
		return nil, nil
	}
	return account, nil
}

// Destroy はセッションを破棄する。空トークンや存在しないトークンはエラーにしない。
func (m *SessionManager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.repo.DeleteByID(ctx, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
