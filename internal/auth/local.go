package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/voxa/internal/model"
	"github.com/hitoshi/voxa/internal/repository"
)

// LocalStrategy はメールアドレスとパスワードによる認証を提供する。
type LocalStrategy struct {
	accounts repository.AccountRepository
	hasher   PasswordHasher
}

// NewLocalStrategy はLocalStrategyを生成する。
func NewLocalStrategy(accounts repository.AccountRepository, hasher PasswordHasher) *LocalStrategy {
	return &LocalStrategy{accounts: accounts, hasher: hasher}
}

// Name はストラテジー名を返す。
func (s *LocalStrategy) Name() string { return StrategyLocal }

// Authenticate はメールアドレスで検索したアカウントのパスワードを照合する。
//
// 未登録なら model.ErrUserNotFound、不一致なら model.ErrInvalidCredentials を返す。
// 保存済みハッシュが不正（OAuth専用アカウントのセンチネル値を含む）な場合も
// ErrInvalidCredentials として扱う。
// 未登録時にダミーハッシュとの比較は行わないため、応答時間からアカウントの有無を推測できる。
func (s *LocalStrategy) Authenticate(ctx context.Context, email, plaintext string) (*model.Account, error) {
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		return nil, model.ErrUserNotFound
	}

	ok, err := s.hasher.Verify(plaintext, account.PasswordHash)
	if err != nil {
		if errors.Is(err, model.ErrHashingFailure) {
			slog.Debug("stored hash could not be verified",
				slog.String("account_id", account.ID),
				slog.String("error", err.Error()),
			)
			return nil, model.ErrInvalidCredentials
		}
		return nil, err
	}
	if !ok {
		return nil, model.ErrInvalidCredentials
	}

	return account, nil
}

// Register は新しいローカルアカウントを作成する。
//
// 事前検索で既存アカウントが見つかれば model.ErrAlreadyExists を返す。
// 事前検索と挿入は不可分ではないため、最終的な重複判定はDBの一意制約が行い、
// その違反も ErrAlreadyExists として返る。
func (s *LocalStrategy) Register(ctx context.Context, email, plaintext string) (*model.Account, error) {
	existing, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if existing != nil {
		return nil, model.ErrAlreadyExists
	}

	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &model.Account{
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	slog.Info("account registered", slog.String("account_id", account.ID))
	return account, nil
}
