// Package diary は日記のドメインロジックを提供する。
package diary

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/voxa/internal/model"
	"github.com/hitoshi/voxa/internal/repository"
	"github.com/hitoshi/voxa/internal/security"
)

// DateLayout はフォームで受け付ける日付の形式。
const DateLayout = "2006-01-02"

// MaxContentLength は1エントリの最大文字数。
const MaxContentLength = 10000

// Service は日記のサービス層。
type Service struct {
	repo      repository.DiaryRepository
	sanitizer security.TextSanitizer
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.DiaryRepository, sanitizer security.TextSanitizer) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// List はアカウントの日記を日付の昇順で返す。
func (s *Service) List(ctx context.Context, accountID string) ([]model.DiaryEntry, error) {
	entries, err := s.repo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("日記一覧の取得に失敗しました: %w", err)
	}
	return entries, nil
}

// Add は日記エントリを追加する。
// entryDateが空の場合は当日の日付を使う。
func (s *Service) Add(ctx context.Context, accountID, content, entryDate string) (*model.DiaryEntry, error) {
	content = s.sanitizer.Sanitize(content)
	if content == "" {
		return nil, fmt.Errorf("本文が空です: %w", model.ErrInvalidInput)
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return nil, fmt.Errorf("本文が%d文字を超えています: %w", MaxContentLength, model.ErrInvalidInput)
	}

	date, err := s.parseDate(entryDate)
	if err != nil {
		return nil, err
	}

	entry := &model.DiaryEntry{
		AccountID: accountID,
		Content:   content,
		EntryDate: date,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("日記の保存に失敗しました: %w", err)
	}
	return entry, nil
}

func (s *Service) parseDate(value string) (time.Time, error) {
	if value == "" {
		y, m, d := s.now().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	date, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("日付 %q は YYYY-MM-DD 形式ではありません: %w", value, model.ErrInvalidInput)
	}
	return date, nil
}
