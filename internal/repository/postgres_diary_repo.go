package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/voxa/internal/model"
)

// PostgresDiaryRepo はPostgreSQLを使用した日記リポジトリ。
type PostgresDiaryRepo struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresDiaryRepo はPostgresDiaryRepoを生成する。
func NewPostgresDiaryRepo(db *sql.DB, timeout time.Duration) *PostgresDiaryRepo {
	return &PostgresDiaryRepo{db: db, timeout: timeout}
}

// ListByAccount はアカウントの日記を日付の昇順で返す。
func (r *PostgresDiaryRepo) ListByAccount(ctx context.Context, accountID string) ([]model.DiaryEntry, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, account_id, content, entry_date, created_at
		 FROM diary_entries
		 WHERE account_id = $1
		 ORDER BY entry_date ASC, created_at ASC`,
		accountID,
	)
	if err != nil {
		return nil, classifyError("list diary entries", err)
	}
	defer rows.Close()

	var entries []model.DiaryEntry
	for rows.Next() {
		var e model.DiaryEntry
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Content, &e.EntryDate, &e.CreatedAt); err != nil {
			return nil, classifyError("scan diary entry", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError("iterate diary entries", err)
	}
	return entries, nil
}

// Create は日記エントリを作成する。
func (r *PostgresDiaryRepo) Create(ctx context.Context, entry *model.DiaryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO diary_entries (id, account_id, content, entry_date, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		entry.ID, entry.AccountID, entry.Content, entry.EntryDate, entry.CreatedAt,
	)
	return classifyError("insert diary entry", err)
}

var _ DiaryRepository = (*PostgresDiaryRepo)(nil)
