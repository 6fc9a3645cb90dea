// Package storage はギャラリー画像の保存先を提供する。
//
// ObjectStore の実装として、ローカルディスクに保存する DiskStore と
// S3互換ストレージに保存する S3Store がある。
package storage

import (
	"context"
	"errors"
	"io"
	"strings"
)

// ErrInvalidKey はオブジェクトキーにパス区切りなどが含まれることを示す。
var ErrInvalidKey = errors.New("invalid object key")

// ObjectStore はアップロード画像の保存・削除・参照URL生成を抽象化する。
type ObjectStore interface {
	// Save はkeyでオブジェクトを保存する。同じkeyは上書きする。
	Save(ctx context.Context, key, contentType string, body io.Reader) error
	// Delete はオブジェクトを削除する。存在しない場合もnilを返す。
	Delete(ctx context.Context, key string) error
	// URL はブラウザから参照するためのURLを返す。
	URL(ctx context.Context, key string) (string, error)
}

// validateKey はkeyが単一のファイル名であることを確認する。
func validateKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return ErrInvalidKey
	}
	return nil
}
