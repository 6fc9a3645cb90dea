package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/voxa/internal/model"
)

// PostgresAccountRepo はPostgreSQLを使用したアカウントリポジトリ。
type PostgresAccountRepo struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresAccountRepo はPostgresAccountRepoを生成する。
// timeoutはクエリごとの上限時間で、0以下なら呼び出し元のctxに従う。
func NewPostgresAccountRepo(db *sql.DB, timeout time.Duration) *PostgresAccountRepo {
	return &PostgresAccountRepo{db: db, timeout: timeout}
}

// FindByEmail はメールアドレスの完全一致でアカウントを検索する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.findOne(ctx, "find account by email",
		`SELECT id, email, password_hash, created_at FROM accounts WHERE email = $1`, email)
}

// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	return r.findOne(ctx, "find account by id",
		`SELECT id, email, password_hash, created_at FROM accounts WHERE id = $1`, id)
}

func (r *PostgresAccountRepo) findOne(ctx context.Context, op, query string, arg string) (*model.Account, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	account := &model.Account{}
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&account.ID, &account.Email, &account.PasswordHash, &account.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classifyError(op, err)
	}
	return account, nil
}

// Create はアカウントを作成する。IDと作成日時が未設定なら採番する。
// 一意制約違反は model.ErrAlreadyExists になる。
func (r *PostgresAccountRepo) Create(ctx context.Context, account *model.Account) error {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		account.ID, account.Email, account.PasswordHash, account.CreatedAt,
	)
	return classifyError("insert account", err)
}

// compile-time interface check
var _ AccountRepository = (*PostgresAccountRepo)(nil)
