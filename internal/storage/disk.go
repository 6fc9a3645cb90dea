package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// DiskURLPrefix はディスク保存した画像を配信するパス。
const DiskURLPrefix = "/uploads/"

// DiskStore はローカルディレクトリに画像を保存する。
type DiskStore struct {
	dir string
}

// NewDiskStore はDiskStoreを生成し、保存先ディレクトリを作成する。
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Dir は保存先ディレクトリを返す。静的配信に使う。
func (s *DiskStore) Dir() string { return s.dir }

// Save は一時ファイルに書き込んでからリネームする。
// 書き込み途中のファイルが配信されることはない。
func (s *DiskStore) Save(ctx context.Context, key, contentType string, body io.Reader) error {
	if err := validateKey(key); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close object: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to store object: %w", err)
	}
	return nil
}

// Delete はファイルを削除する。
func (s *DiskStore) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// URL は /uploads/ 配下のパスを返す。
func (s *DiskStore) URL(ctx context.Context, key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	return DiskURLPrefix + key, nil
}
