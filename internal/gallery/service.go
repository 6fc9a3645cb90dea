// Package gallery はフォトギャラリーのドメインロジックを提供する。
//
// 画像本体は storage.ObjectStore に、メタデータは images テーブルに保存する。
// 削除は行を先に消してからオブジェクトを消すため、オブジェクトの削除に失敗しても
// 他人から参照できる行が残ることはない。
package gallery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/voxa/internal/model"
	"github.com/hitoshi/voxa/internal/repository"
	"github.com/hitoshi/voxa/internal/security"
	"github.com/hitoshi/voxa/internal/storage"
)

// MaxCaptionLength はキャプションの最大文字数。
const MaxCaptionLength = 1000

// アップロード結果のメトリクスラベル
const (
	OutcomeStored   = "stored"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// sniffLen はContent-Type判定に読む先頭バイト数。
const sniffLen = 512

// allowedTypes は受け付ける画像形式と保存時の拡張子。
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// UploadRecorder はアップロード結果の記録先。
type UploadRecorder interface {
	RecordUpload(outcome string)
}

type noopRecorder struct{}

func (noopRecorder) RecordUpload(string) {}

// Photo は画面表示用に参照URLを付けた画像。
type Photo struct {
	model.Image
	URL string
}

// Service はギャラリーのサービス層。
type Service struct {
	repo      repository.ImageRepository
	store     storage.ObjectStore
	sanitizer security.TextSanitizer
	recorder  UploadRecorder
	logger    *slog.Logger
	newKey    func(ext string) string
}

// NewService はServiceの新しいインスタンスを生成する。recorderはnilでもよい。
func NewService(
	repo repository.ImageRepository,
	store storage.ObjectStore,
	sanitizer security.TextSanitizer,
	recorder UploadRecorder,
	logger *slog.Logger,
) *Service {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Service{
		repo:      repo,
		store:     store,
		sanitizer: sanitizer,
		recorder:  recorder,
		logger:    logger,
		newKey:    func(ext string) string { return uuid.NewString() + ext },
	}
}

// List はアカウントの画像を新しい順に参照URL付きで返す。
func (s *Service) List(ctx context.Context, accountID string) ([]Photo, error) {
	images, err := s.repo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("画像一覧の取得に失敗しました: %w", err)
	}

	photos := make([]Photo, 0, len(images))
	for _, img := range images {
		url, err := s.store.URL(ctx, img.FileName)
		if err != nil {
			return nil, fmt.Errorf("画像URLの生成に失敗しました: %w", err)
		}
		photos = append(photos, Photo{Image: img, URL: url})
	}
	return photos, nil
}

// Upload は画像を保存し、メタデータ行を作成する。
// 先頭バイトから判定した形式が許可リストに無い場合は model.ErrUnsupportedMedia を返す。
func (s *Service) Upload(ctx context.Context, accountID string, file io.Reader, caption string) (*model.Image, error) {
	caption = s.sanitizer.Sanitize(caption)
	if utf8.RuneCountInString(caption) > MaxCaptionLength {
		s.recorder.RecordUpload(OutcomeRejected)
		return nil, fmt.Errorf("キャプションが%d文字を超えています: %w", MaxCaptionLength, model.ErrInvalidInput)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		s.recorder.RecordUpload(OutcomeFailed)
		return nil, fmt.Errorf("アップロードの読み込みに失敗しました: %w", err)
	}
	head = head[:n]
	if n == 0 {
		s.recorder.RecordUpload(OutcomeRejected)
		return nil, fmt.Errorf("ファイルが空です: %w", model.ErrInvalidInput)
	}

	contentType := http.DetectContentType(head)
	ext, ok := allowedTypes[contentType]
	if !ok {
		s.recorder.RecordUpload(OutcomeRejected)
		return nil, fmt.Errorf("%s は対応していない形式です: %w", contentType, model.ErrUnsupportedMedia)
	}

	key := s.newKey(ext)
	if err := s.store.Save(ctx, key, contentType, io.MultiReader(bytes.NewReader(head), file)); err != nil {
		s.recorder.RecordUpload(OutcomeFailed)
		return nil, fmt.Errorf("画像の保存に失敗しました: %w", err)
	}

	img := &model.Image{
		AccountID: accountID,
		FileName:  key,
		Caption:   caption,
	}
	if err := s.repo.Create(ctx, img); err != nil {
		s.recorder.RecordUpload(OutcomeFailed)
		s.discardObject(ctx, key)
		return nil, fmt.Errorf("画像情報の保存に失敗しました: %w", err)
	}

	s.recorder.RecordUpload(OutcomeStored)
	s.logger.Info("image uploaded",
		slog.String("user_id", accountID),
		slog.String("image_id", img.ID),
		slog.String("content_type", contentType),
	)
	return img, nil
}

// Delete はプリンシパルが所有する画像を削除する。
// 行の削除後にオブジェクトを削除し、オブジェクトの削除失敗はログに記録するだけにする。
func (s *Service) Delete(ctx context.Context, accountID, id string) error {
	img, err := s.repo.Delete(ctx, accountID, id)
	if err != nil {
		return fmt.Errorf("画像の削除に失敗しました: %w", err)
	}
	if img == nil {
		return fmt.Errorf("画像 %s: %w", id, model.ErrNotFound)
	}

	s.discardObject(ctx, img.FileName)
	return nil
}

func (s *Service) discardObject(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to delete stored image",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
