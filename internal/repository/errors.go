package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/voxa/internal/model"
)

// DefaultAcquireTimeout はクエリごとのコネクション取得・実行の上限時間。
const DefaultAcquireTimeout = 2 * time.Second

// uniqueViolation はPostgreSQLの一意制約違反のエラーコード。
const uniqueViolation = "23505"

// withTimeout はtimeoutが正の場合にctxへ期限を設定する。
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// classifyError はドライバのエラーをドメインのエラー分類に変換する。
// 一意制約違反は ErrAlreadyExists、それ以外はすべて ErrStoreUnavailable になる。
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return fmt.Errorf("%s: %w", op, model.ErrAlreadyExists)
	}
	return fmt.Errorf("%s: %w: %w", op, model.ErrStoreUnavailable, err)
}
