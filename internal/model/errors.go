package model

import (
	"errors"
	"fmt"
)

// 認証・永続化で発生するエラーの分類。
// 呼び出し側は errors.Is で判定する。
var (
	// ErrUserNotFound は指定メールアドレスのアカウントが存在しないことを示す。
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials はパスワードが一致しないことを示す。
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAlreadyExists は同じメールアドレスのアカウントが既に存在することを示す。
	ErrAlreadyExists = errors.New("account already exists")
	// ErrHashingFailure はパスワードハッシュの計算・検証そのものが失敗したことを示す。
	ErrHashingFailure = errors.New("password hashing failure")
	// ErrStrategyUnavailable は要求された認証ストラテジーが登録されていないことを示す。
	ErrStrategyUnavailable = errors.New("authentication strategy unavailable")
	// ErrStoreUnavailable はDB接続の取得タイムアウトやクエリ失敗を示す。
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrProviderExchangeFailure はOAuthプロバイダーとの通信・プロトコルエラーを示す。
	ErrProviderExchangeFailure = errors.New("oauth provider exchange failure")
)

// 日記・メモ・ギャラリーの操作で発生するエラーの分類。
var (
	// ErrInvalidInput は入力値が空や形式違反であることを示す。
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound は操作対象が存在しないか、プリンシパルの所有物でないことを示す。
	ErrNotFound = errors.New("not found")
	// ErrUnsupportedMedia はアップロードされたファイルが対応画像形式でないことを示す。
	ErrUnsupportedMedia = errors.New("unsupported media type")
)

// IsAuthFailure は利用者に区別せず提示すべき認証失敗かどうかを返す。
// アカウント列挙を防ぐため、UserNotFoundとInvalidCredentialsは同じ扱いにする。
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrInvalidCredentials)
}

// APIError は画面に表示するエラー情報を表す。
// 原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, journal, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeAlreadyExists       = "ALREADY_EXISTS"
	ErrCodeInvalidInput        = "INVALID_INPUT"
	ErrCodeStrategyUnavailable = "STRATEGY_UNAVAILABLE"
	ErrCodeNoFileUploaded      = "NO_FILE_UPLOADED"
	ErrCodeFileTooLarge        = "FILE_TOO_LARGE"
	ErrCodeUnsupportedMedia    = "UNSUPPORTED_MEDIA"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// NewAlreadyExistsError は登録済みメールアドレスのエラーを生成する。
func NewAlreadyExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyExists,
		Message:  "User already exists, try to login.",
		Category: "auth",
		Action:   "ログイン画面からログインしてください。",
	}
}

// NewInvalidInputError は入力値検証エラーを生成する。
func NewInvalidInputError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidInput,
		Message:  fmt.Sprintf("入力内容が正しくありません: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewStrategyUnavailableError はGoogleログインが無効な場合のエラーを生成する。
func NewStrategyUnavailableError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeStrategyUnavailable,
		Message:  fmt.Sprintf("%s ログインは現在利用できません。", name),
		Category: "auth",
		Action:   "メールアドレスとパスワードでログインしてください。",
	}
}

// NewNoFileUploadedError はアップロードファイルが無い場合のエラーを生成する。
func NewNoFileUploadedError() *APIError {
	return &APIError{
		Code:     ErrCodeNoFileUploaded,
		Message:  "画像ファイルが指定されていません。",
		Category: "validation",
		Action:   "アップロードする画像を選択してください。",
	}
}

// NewFileTooLargeError はアップロードサイズ超過のエラーを生成する。
func NewFileTooLargeError(maxBytes int64) *APIError {
	return &APIError{
		Code:     ErrCodeFileTooLarge,
		Message:  fmt.Sprintf("ファイルサイズが上限（%dバイト）を超えています。", maxBytes),
		Category: "validation",
		Action:   "より小さい画像を選択してください。",
	}
}

// NewUnsupportedMediaError は画像以外のファイルが送られた場合のエラーを生成する。
func NewUnsupportedMediaError(contentType string) *APIError {
	return &APIError{
		Code:     ErrCodeUnsupportedMedia,
		Message:  fmt.Sprintf("画像ファイルではありません: %s", contentType),
		Category: "validation",
		Action:   "JPEG、PNG、GIF、WebP のいずれかを選択してください。",
	}
}

// NewInternalError は内部エラーの汎用メッセージを生成する。
// 詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
