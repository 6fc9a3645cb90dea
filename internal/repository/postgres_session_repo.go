package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hitoshi/voxa/internal/model"
)

// PostgresSessionRepo はPostgreSQLを使用したセッションリポジトリ。
// セッションをDBに置くことで再起動後も有効で、複数インスタンスで共有できる。
type PostgresSessionRepo struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
func NewPostgresSessionRepo(db *sql.DB, timeout time.Duration) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db, timeout: timeout}
}

// Create はセッションを作成する。
func (r *PostgresSessionRepo) Create(ctx context.Context, session *model.Session) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, account_id, data, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		session.ID, session.AccountID, session.Data, session.ExpiresAt, session.CreatedAt,
	)
	return classifyError("create session", err)
}

// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
func (r *PostgresSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	session := &model.Session{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, account_id, data, expires_at, created_at
		 FROM sessions
		 WHERE id = $1 AND expires_at > now()`,
		id,
	).Scan(&session.ID, &session.AccountID, &session.Data, &session.ExpiresAt, &session.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classifyError("find session", err)
	}

	return session, nil
}

// DeleteByID は指定IDのセッションを削除する。
func (r *PostgresSessionRepo) DeleteByID(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return classifyError("delete session", err)
}

// compile-time interface check
var _ SessionRepository = (*PostgresSessionRepo)(nil)
