// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/voxa/internal/model"
)

// AccountRepository はアカウントの永続化インターフェース。
// アカウントを変更するのはこのリポジトリだけである。
type AccountRepository interface {
	// FindByEmail はメールアドレスの完全一致でアカウントを検索する。
	// 見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Account, error)

	// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Account, error)

	// Create はアカウントを作成する。
	// メールアドレスが重複している場合は model.ErrAlreadyExists を返す。
	Create(ctx context.Context, account *model.Account) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。存在しなくてもエラーにしない。
	DeleteByID(ctx context.Context, id string) error
}

// DiaryRepository は日記エントリの永続化インターフェース。
type DiaryRepository interface {
	// ListByAccount はアカウントの日記を日付の昇順で返す。
	ListByAccount(ctx context.Context, accountID string) ([]model.DiaryEntry, error)
	// Create は日記エントリを作成する。
	Create(ctx context.Context, entry *model.DiaryEntry) error
}

// NoteRepository はメモの永続化インターフェース。
// すべての操作はアカウントIDで所有者を絞り込む。
type NoteRepository interface {
	ListByAccount(ctx context.Context, accountID string) ([]model.Note, error)
	Create(ctx context.Context, note *model.Note) error
	// UpdateTitle は所有者のメモのタイトルを更新する。対象が無ければfalseを返す。
	UpdateTitle(ctx context.Context, accountID, id, title string) (bool, error)
	// Delete は所有者のメモを削除する。対象が無ければfalseを返す。
	Delete(ctx context.Context, accountID, id string) (bool, error)
}

// ImageRepository はギャラリー画像メタデータの永続化インターフェース。
type ImageRepository interface {
	ListByAccount(ctx context.Context, accountID string) ([]model.Image, error)
	Create(ctx context.Context, image *model.Image) error
	// Delete は所有者の画像行を削除し、削除した行を返す。対象が無ければnilを返す。
	Delete(ctx context.Context, accountID, id string) (*model.Image, error)
}
