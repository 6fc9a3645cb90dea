package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/voxa/internal/model"
)

// PostgresImageRepo はPostgreSQLを使用した画像メタデータリポジトリ。
// ファイル本体はstorageパッケージが管理する。
type PostgresImageRepo struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresImageRepo はPostgresImageRepoを生成する。
func NewPostgresImageRepo(db *sql.DB, timeout time.Duration) *PostgresImageRepo {
	return &PostgresImageRepo{db: db, timeout: timeout}
}

// ListByAccount はアカウントの画像を新しい順に返す。
func (r *PostgresImageRepo) ListByAccount(ctx context.Context, accountID string) ([]model.Image, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, account_id, file_name, caption, created_at
		 FROM images
		 WHERE account_id = $1
		 ORDER BY created_at DESC`,
		accountID,
	)
	if err != nil {
		return nil, classifyError("list images", err)
	}
	defer rows.Close()

	var images []model.Image
	for rows.Next() {
		var img model.Image
		if err := rows.Scan(&img.ID, &img.AccountID, &img.FileName, &img.Caption, &img.CreatedAt); err != nil {
			return nil, classifyError("scan image", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError("iterate images", err)
	}
	return images, nil
}

// Create は画像メタデータを作成する。
func (r *PostgresImageRepo) Create(ctx context.Context, image *model.Image) error {
	if image.ID == "" {
		image.ID = uuid.New().String()
	}
	if image.CreatedAt.IsZero() {
		image.CreatedAt = time.Now().UTC()
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO images (id, account_id, file_name, caption, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		image.ID, image.AccountID, image.FileName, image.Caption, image.CreatedAt,
	)
	return classifyError("insert image", err)
}

// Delete は所有者の画像行を削除し、削除した行を返す。
func (r *PostgresImageRepo) Delete(ctx context.Context, accountID, id string) (*model.Image, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	img := &model.Image{}
	err := r.db.QueryRowContext(ctx,
		`DELETE FROM images WHERE id = $1 AND account_id = $2
		 RETURNING id, account_id, file_name, caption, created_at`,
		id, accountID,
	).Scan(&img.ID, &img.AccountID, &img.FileName, &img.Caption, &img.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classifyError("delete image", err)
	}
	return img, nil
}

var _ ImageRepository = (*PostgresImageRepo)(nil)
