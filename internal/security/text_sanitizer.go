// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer は日記・メモ・キャプションなど利用者が入力したテキストから
// HTMLマークアップを取り除く。bluemondayのStrictPolicyでタグを全て除去し、
// 表示時のエスケープはhtml/templateに任せるためプレーンテキストに戻して保存する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer は入力テキストのサニタイズ機能のインターフェースを定義する。
type TextSanitizer interface {
	// Sanitize はマークアップを除去したプレーンテキストを返す。
	// 前後の空白は取り除く。同一入力に対して常に同一出力を返す。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerの実装。
// bluemondayのポリシーはスレッドセーフなので共有して使う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize はマークアップを除去したプレーンテキストを返す。
func (s *textSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	// StrictPolicyは残ったテキストをエスケープして返すので元の文字に戻す
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}
