package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/voxa/internal/model"
)

// DefaultBcryptCost はパスワードハッシュのワークファクター。
const DefaultBcryptCost = 10

// PasswordHasher はパスワードの一方向ハッシュと照合を行う。
type PasswordHasher interface {
	// Hash はソルト付きハッシュを生成する。
	Hash(plaintext string) (string, error)
	// Verify は平文がハッシュに一致するかを返す。
	// 一致しない場合は false, nil を返し、ハッシュ自体が不正な場合は model.ErrHashingFailure を返す。
	Verify(plaintext, hash string) (bool, error)
}

// BcryptHasher はbcryptによるPasswordHasherの実装。
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher はBcryptHasherを生成する。costが範囲外ならDefaultBcryptCostを使う。
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash はbcryptハッシュを生成する。
func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrHashingFailure, err)
	}
	return string(b), nil
}

// Verify は平文とハッシュを定数時間で比較する。
func (h *BcryptHasher) Verify(plaintext, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %w", model.ErrHashingFailure, err)
	}
}

var _ PasswordHasher = (*BcryptHasher)(nil)
