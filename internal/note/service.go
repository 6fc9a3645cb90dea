// Package note はTODOメモのドメインロジックを提供する。
// すべての操作はプリンシパルのアカウントIDで所有者を絞り込む。
package note

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/hitoshi/voxa/internal/model"
	"github.com/hitoshi/voxa/internal/repository"
	"github.com/hitoshi/voxa/internal/security"
)

// MaxTitleLength はメモのタイトルの最大文字数。
const MaxTitleLength = 500

// Service はメモのサービス層。
type Service struct {
	repo      repository.NoteRepository
	sanitizer security.TextSanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.NoteRepository, sanitizer security.TextSanitizer) *Service {
	return &Service{repo: repo, sanitizer: sanitizer}
}

// List はアカウントのメモを作成順に返す。
func (s *Service) List(ctx context.Context, accountID string) ([]model.Note, error) {
	notes, err := s.repo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("メモ一覧の取得に失敗しました: %w", err)
	}
	return notes, nil
}

// Add はメモを追加する。
func (s *Service) Add(ctx context.Context, accountID, title string, completed bool) (*model.Note, error) {
	title, err := s.cleanTitle(title)
	if err != nil {
		return nil, err
	}

	n := &model.Note{
		AccountID: accountID,
		Title:     title,
		Completed: completed,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("メモの保存に失敗しました: %w", err)
	}
	return n, nil
}

// Rename はメモのタイトルを変更する。
// 他のアカウントのメモや存在しないメモは model.ErrNotFound を返す。
func (s *Service) Rename(ctx context.Context, accountID, id, title string) error {
	title, err := s.cleanTitle(title)
	if err != nil {
		return err
	}

	ok, err := s.repo.UpdateTitle(ctx, accountID, id, title)
	if err != nil {
		return fmt.Errorf("メモの更新に失敗しました: %w", err)
	}
	if !ok {
		return fmt.Errorf("メモ %s: %w", id, model.ErrNotFound)
	}
	return nil
}

// Remove はメモを削除する。
func (s *Service) Remove(ctx context.Context, accountID, id string) error {
	ok, err := s.repo.Delete(ctx, accountID, id)
	if err != nil {
		return fmt.Errorf("メモの削除に失敗しました: %w", err)
	}
	if !ok {
		return fmt.Errorf("メモ %s: %w", id, model.ErrNotFound)
	}
	return nil
}

func (s *Service) cleanTitle(title string) (string, error) {
	title = s.sanitizer.Sanitize(title)
	if title == "" {
		return "", fmt.Errorf("タイトルが空です: %w", model.ErrInvalidInput)
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", fmt.Errorf("タイトルが%d文字を超えています: %w", MaxTitleLength, model.ErrInvalidInput)
	}
	return title, nil
}
