package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/voxa/internal/model"
	"github.com/hitoshi/voxa/internal/repository"
)

// OAuthIdentity はOAuthプロバイダーから取得した利用者情報を表す。
type OAuthIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// LoginURL は認可エンドポイントへのURLを生成する。
	LoginURL(state string) string
	// Exchange は認可コードをトークンに交換し、利用者情報を取得する。
	// 通信・プロトコルエラーは model.ErrProviderExchangeFailure でラップして返す。
	Exchange(ctx context.Context, code string) (*OAuthIdentity, error)
}

// OAuthStrategy は外部IdPで検証済みのメールアドレスからアカウントを特定・作成する。
type OAuthStrategy struct {
	name     string
	provider OAuthProvider
	accounts repository.AccountRepository
}

// NewOAuthStrategy はOAuthStrategyを生成する。
func NewOAuthStrategy(name string, provider OAuthProvider, accounts repository.AccountRepository) *OAuthStrategy {
	return &OAuthStrategy{name: name, provider: provider, accounts: accounts}
}

// Name はストラテジー名を返す。
func (s *OAuthStrategy) Name() string { return s.name }

// LoginURL は認可フロー開始用のURLを返す。
func (s *OAuthStrategy) LoginURL(state string) string {
	return s.provider.LoginURL(state)
}

// Authenticate は認可コードを交換し、メールアドレスに対応するアカウントを返す。
//
// 既存アカウントはそのまま返し、プロバイダーのプロフィールは取り込まない。
// 未登録のメールアドレスならセンチネルパスワードでアカウントを作成する。
// このアカウントにローカルパスワードを設定する手段は存在しない。
// 作成が並行ログインとの競合で一意制約違反になった場合は、勝った側の行を読み直して返す。
func (s *OAuthStrategy) Authenticate(ctx context.Context, code string) (*model.Account, error) {
	identity, err := s.provider.Exchange(ctx, code)
	if err != nil {
		if errors.Is(err, model.ErrProviderExchangeFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", model.ErrProviderExchangeFailure, err)
	}
	if identity == nil || identity.Email == "" || !identity.EmailVerified {
		return nil, model.ErrUserNotFound
	}

	account, err := s.accounts.FindByEmail(ctx, identity.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if account != nil {
		return account, nil
	}

	account = &model.Account{
		Email:        identity.Email,
		PasswordHash: model.OAuthSentinelPassword,
	}
	err = s.accounts.Create(ctx, account)
	if errors.Is(err, model.ErrAlreadyExists) {
		winner, findErr := s.accounts.FindByEmail(ctx, identity.Email)
		if findErr != nil {
			return nil, fmt.Errorf("failed to re-read account: %w", findErr)
		}
		if winner == nil {
			return nil, model.ErrUserNotFound
		}
		return winner, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	slog.Info("account created from oauth login",
		slog.String("account_id", account.ID),
		slog.String("provider", s.name),
	)
	return account, nil
}
