package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/voxa/internal/model"
)

// PostgresNoteRepo はPostgreSQLを使用したメモリポジトリ。
type PostgresNoteRepo struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresNoteRepo はPostgresNoteRepoを生成する。
func NewPostgresNoteRepo(db *sql.DB, timeout time.Duration) *PostgresNoteRepo {
	return &PostgresNoteRepo{db: db, timeout: timeout}
}

// ListByAccount はアカウントのメモを作成順に返す。
func (r *PostgresNoteRepo) ListByAccount(ctx context.Context, accountID string) ([]model.Note, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, account_id, title, completed, created_at
		 FROM notes
		 WHERE account_id = $1
		 ORDER BY created_at ASC`,
		accountID,
	)
	if err != nil {
		return nil, classifyError("list notes", err)
	}
	defer rows.Close()

	var notes []model.Note
	for rows.Next() {
		var n model.Note
		if err := rows.Scan(&n.ID, &n.AccountID, &n.Title, &n.Completed, &n.CreatedAt); err != nil {
			return nil, classifyError("scan note", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError("iterate notes", err)
	}
	return notes, nil
}

// Create はメモを作成する。
func (r *PostgresNoteRepo) Create(ctx context.Context, note *model.Note) error {
	if note.ID == "" {
		note.ID = uuid.New().String()
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notes (id, account_id, title, completed, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		note.ID, note.AccountID, note.Title, note.Completed, note.CreatedAt,
	)
	return classifyError("insert note", err)
}

// UpdateTitle は所有者のメモのタイトルを更新する。
func (r *PostgresNoteRepo) UpdateTitle(ctx context.Context, accountID, id, title string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx,
		`UPDATE notes SET title = $1 WHERE id = $2 AND account_id = $3`,
		title, id, accountID,
	)
	if err != nil {
		return false, classifyError("update note", err)
	}
	return affected(result)
}

// Delete は所有者のメモを削除する。
func (r *PostgresNoteRepo) Delete(ctx context.Context, accountID, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM notes WHERE id = $1 AND account_id = $2`,
		id, accountID,
	)
	if err != nil {
		return false, classifyError("delete note", err)
	}
	return affected(result)
}

func affected(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, classifyError("rows affected", err)
	}
	return n > 0, nil
}

var _ NoteRepository = (*PostgresNoteRepo)(nil)
