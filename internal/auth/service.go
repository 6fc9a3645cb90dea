// Package auth はパスワード認証・OAuth認証の各ストラテジーとセッション管理を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/voxa/internal/model"
)

// ログイン結果のラベル
const (
	OutcomeSuccess = "success"
	OutcomeDenied  = "denied"
	OutcomeError   = "error"
)

// MetricsRecorder は認証イベントの記録先。
type MetricsRecorder interface {
	RecordLogin(strategy, outcome string)
	RecordRegistration(outcome string)
	RecordSessionCreated()
	RecordSessionDestroyed()
}

type noopMetrics struct{}

func (noopMetrics) RecordLogin(string, string) {}
func (noopMetrics) RecordRegistration(string)  {}
func (noopMetrics) RecordSessionCreated()      {}
func (noopMetrics) RecordSessionDestroyed()    {}

// Service はストラテジーとセッション管理をまとめたログインフローを提供する。
type Service struct {
	registry *Registry
	sessions *SessionManager
	metrics  MetricsRecorder
}

// NewService はServiceを生成する。metricsがnilなら記録しない。
func NewService(registry *Registry, sessions *SessionManager, metrics MetricsRecorder) *Service {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Service{registry: registry, sessions: sessions, metrics: metrics}
}

// Sessions はセッションマネージャーを返す。
func (s *Service) Sessions() *SessionManager { return s.sessions }

// StrategyAvailable は指定ストラテジーが利用可能かを返す。
func (s *Service) StrategyAvailable(name string) bool {
	return s.registry.Has(name)
}

// Register はローカルアカウントを作成し、セッションを発行する。
func (s *Service) Register(ctx context.Context, email, password string) (*model.Session, error) {
	local, err := s.registry.Local()
	if err != nil {
		return nil, err
	}

	account, err := local.Register(ctx, email, password)
	if err != nil {
		if errors.Is(err, model.ErrAlreadyExists) {
			s.metrics.RecordRegistration(OutcomeDenied)
		} else {
			s.metrics.RecordRegistration(OutcomeError)
		}
		return nil, err
	}
	s.metrics.RecordRegistration(OutcomeSuccess)

	return s.establish(ctx, account)
}

// Login はメールアドレスとパスワードで認証し、セッションを発行する。
func (s *Service) Login(ctx context.Context, email, password string) (*model.Session, error) {
	local, err := s.registry.Local()
	if err != nil {
		return nil, err
	}

	account, err := local.Authenticate(ctx, email, password)
	if err != nil {
		s.recordLoginFailure(StrategyLocal, err)
		return nil, err
	}
	s.metrics.RecordLogin(StrategyLocal, OutcomeSuccess)

	return s.establish(ctx, account)
}

// OAuthLoginURL は指定プロバイダーの認可URLを返す。
// ストラテジーが未登録ならネットワーク通信の前に model.ErrStrategyUnavailable を返す。
func (s *Service) OAuthLoginURL(name, state string) (string, error) {
	strategy, err := s.registry.OAuth(name)
	if err != nil {
		return "", err
	}
	return strategy.LoginURL(state), nil
}

// HandleOAuthCallback は認可コードを交換し、セッションを発行する。
func (s *Service) HandleOAuthCallback(ctx context.Context, name, code string) (*model.Session, error) {
	strategy, err := s.registry.OAuth(name)
	if err != nil {
		return nil, err
	}

	account, err := strategy.Authenticate(ctx, code)
	if err != nil {
		s.recordLoginFailure(name, err)
		return nil, err
	}
	s.metrics.RecordLogin(name, OutcomeSuccess)

	return s.establish(ctx, account)
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Destroy(ctx, token); err != nil {
		return err
	}
	if token != "" {
		s.metrics.RecordSessionDestroyed()
		slog.Info("user logged out")
	}
	return nil
}

// CurrentAccount はトークンに対応するプリンシパルを返す。無効なトークンなら nil, nil。
func (s *Service) CurrentAccount(ctx context.Context, token string) (*model.Account, error) {
	return s.sessions.Resolve(ctx, token)
}

func (s *Service) establish(ctx context.Context, account *model.Account) (*model.Session, error) {
	session, err := s.sessions.Establish(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to establish session: %w", err)
	}
	s.metrics.RecordSessionCreated()
	return session, nil
}

func (s *Service) recordLoginFailure(strategy string, err error) {
	if model.IsAuthFailure(err) {
		s.metrics.RecordLogin(strategy, OutcomeDenied)
		return
	}
	s.metrics.RecordLogin(strategy, OutcomeError)
}
