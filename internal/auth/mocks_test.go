package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/voxa/internal/model"
	"github.com/hitoshi/voxa/internal/repository"
)

// --- モック定義 ---

type mockAccountRepo struct {
	findByEmailFn func(ctx context.Context, email string) (*model.Account, error)
	findByIDFn    func(ctx context.Context, id string) (*model.Account, error)
	createFn      func(ctx context.Context, account *model.Account) error
}

func (m *mockAccountRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockAccountRepo) Create(ctx context.Context, account *model.Account) error {
	if m.createFn != nil {
		return m.createFn(ctx, account)
	}
	return nil
}

type mockSessionRepo struct {
	createFn     func(ctx context.Context, session *model.Session) error
	findByIDFn   func(ctx context.Context, id string) (*model.Session, error)
	deleteByIDFn func(ctx context.Context, id string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

type mockOAuthProvider struct {
	loginURLFn func(state string) string
	exchangeFn func(ctx context.Context, code string) (*OAuthIdentity, error)
	calls      int
}

func (m *mockOAuthProvider) LoginURL(state string) string {
	if m.loginURLFn != nil {
		return m.loginURLFn(state)
	}
	return "https://idp.example.com/auth?state=" + state
}

func (m *mockOAuthProvider) Exchange(ctx context.Context, code string) (*OAuthIdentity, error) {
	m.calls++
	if m.exchangeFn != nil {
		return m.exchangeFn(ctx, code)
	}
	return nil, nil
}

type mockMetrics struct {
	mu            sync.Mutex
	logins        map[string]int
	registrations map[string]int
	created       int
	destroyed     int
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{logins: map[string]int{}, registrations: map[string]int{}}
}

func (m *mockMetrics) RecordLogin(strategy, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logins[strategy+"/"+outcome]++
}

func (m *mockMetrics) RecordRegistration(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registrations[outcome]++
}

func (m *mockMetrics) RecordSessionCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created++
}

func (m *mockMetrics) RecordSessionDestroyed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.destroyed++
}

// memAccountRepo はemailの一意制約を持つインメモリのアカウントストア。
type memAccountRepo struct {
	mu      sync.Mutex
	byEmail map[string]*model.Account
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{byEmail: map[string]*model.Account{}}
}

func (r *memAccountRepo) FindByEmail(_ context.Context, email string) (*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byEmail[email]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *memAccountRepo) FindByID(_ context.Context, id string) (*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byEmail {
		if a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memAccountRepo) Create(_ context.Context, account *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[account.Email]; ok {
		return model.ErrAlreadyExists
	}
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	cp := *account
	r.byEmail[account.Email] = &cp
	return nil
}

func (r *memAccountRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byEmail)
}

// memSessionRepo はインメモリのセッションストア。期限切れは返さない。
type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
	now      func() time.Time
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: map[string]*model.Session{}, now: time.Now}
}

func (r *memSessionRepo) Create(_ context.Context, session *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *session
	r.sessions[session.ID] = &cp
	return nil
}

func (r *memSessionRepo) FindByID(_ context.Context, id string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || !s.ExpiresAt.After(r.now()) {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *memSessionRepo) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

// --- compile-time interface checks ---
var _ repository.AccountRepository = (*mockAccountRepo)(nil)
var _ repository.AccountRepository = (*memAccountRepo)(nil)
var _ repository.SessionRepository = (*mockSessionRepo)(nil)
var _ repository.SessionRepository = (*memSessionRepo)(nil)
var _ OAuthProvider = (*mockOAuthProvider)(nil)
var _ MetricsRecorder = (*mockMetrics)(nil)
