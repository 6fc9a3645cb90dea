package auth

import (
	"fmt"
	"sync"

	"github.com/hitoshi/voxa/internal/model"
)

// 登録済みストラテジー名
const (
	StrategyLocal  = "local"
	StrategyGoogle = "google"
)

// Strategy は認証方式の共通インターフェース。
type Strategy interface {
	Name() string
}

// Registry はストラテジー名から実装への対応表。
// 起動時に構成され、設定が無い方式は登録されない。
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

// NewRegistry は空のRegistryを生成する。
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

// Register はストラテジーを登録する。同名の登録は上書きする。
func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[s.Name()] = s
}

// Lookup は名前でストラテジーを取得する。未登録なら model.ErrStrategyUnavailable を返す。
func (r *Registry) Lookup(name string) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, model.ErrStrategyUnavailable)
	}
	return s, nil
}

// Has はストラテジーが登録されているかを返す。
func (r *Registry) Has(name string) bool {
	_, err := r.Lookup(name)
	return err == nil
}

// Local はローカル認証ストラテジーを返す。
func (r *Registry) Local() (*LocalStrategy, error) {
	s, err := r.Lookup(StrategyLocal)
	if err != nil {
		return nil, err
	}
	local, ok := s.(*LocalStrategy)
	if !ok {
		return nil, fmt.Errorf("%s: %w", StrategyLocal, model.ErrStrategyUnavailable)
	}
	return local, nil
}

// OAuth は指定名のOAuthストラテジーを返す。
func (r *Registry) OAuth(name string) (*OAuthStrategy, error) {
	s, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	o, ok := s.(*OAuthStrategy)
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, model.ErrStrategyUnavailable)
	}
	return o, nil
}
