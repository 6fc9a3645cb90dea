package handler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/voxa/internal/model"
	"github.com/hitoshi/voxa/internal/repository"
)

// --- ルーター結合テスト用のインメモリリポジトリ ---

type memAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*model.Account // email -> account
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{accounts: make(map[string]*model.Account)}
}

func (r *memAccountRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[email]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, nil
}

func (r *memAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.ID == id {
			copied := *a
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memAccountRepo) Create(ctx context.Context, account *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[account.Email]; ok {
		return model.ErrAlreadyExists
	}
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	account.CreatedAt = time.Now().UTC()
	copied := *account
	r.accounts[account.Email] = &copied
	return nil
}

func (r *memAccountRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.accounts)
}

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
	// failErr が設定されている間は全操作がこのエラーを返す
	failErr error
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[string]*model.Session)}
}

func (r *memSessionRepo) Create(ctx context.Context, session *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *session
	r.sessions[session.ID] = &copied
	return nil
}

func (r *memSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return nil, r.failErr
	}
	s, ok := r.sessions[id]
	if !ok || time.Now().After(s.ExpiresAt) {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (r *memSessionRepo) DeleteByID(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}
	delete(r.sessions, id)
	return nil
}

func (r *memSessionRepo) setFailure(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failErr = err
}

func (r *memSessionRepo) corrupt(id string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id].Data = data
}

func (r *memSessionRepo) has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	return ok
}

type memDiaryRepo struct {
	mu      sync.Mutex
	entries []model.DiaryEntry
}

func (r *memDiaryRepo) ListByAccount(ctx context.Context, accountID string) ([]model.DiaryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.DiaryEntry
	for _, e := range r.entries {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EntryDate.Before(out[j].EntryDate) })
	return out, nil
}

func (r *memDiaryRepo) Create(ctx context.Context, entry *model.DiaryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = uuid.NewString()
	r.entries = append(r.entries, *entry)
	return nil
}

type memNoteRepo struct {
	mu    sync.Mutex
	notes []model.Note
}

func (r *memNoteRepo) ListByAccount(ctx context.Context, accountID string) ([]model.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Note
	for _, n := range r.notes {
		if n.AccountID == accountID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *memNoteRepo) Create(ctx context.Context, note *model.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	note.ID = uuid.NewString()
	r.notes = append(r.notes, *note)
	return nil
}

func (r *memNoteRepo) UpdateTitle(ctx context.Context, accountID, id, title string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.notes {
		if r.notes[i].ID == id && r.notes[i].AccountID == accountID {
			r.notes[i].Title = title
			return true, nil
		}
	}
	return false, nil
}

func (r *memNoteRepo) Delete(ctx context.Context, accountID, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.notes {
		if r.notes[i].ID == id && r.notes[i].AccountID == accountID {
			r.notes = append(r.notes[:i], r.notes[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type memImageRepo struct {
	mu     sync.Mutex
	images []model.Image
}

func (r *memImageRepo) ListByAccount(ctx context.Context, accountID string) ([]model.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Image
	for i := len(r.images) - 1; i >= 0; i-- {
		if r.images[i].AccountID == accountID {
			out = append(out, r.images[i])
		}
	}
	return out, nil
}

func (r *memImageRepo) Create(ctx context.Context, image *model.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	image.ID = uuid.NewString()
	r.images = append(r.images, *image)
	return nil
}

func (r *memImageRepo) Delete(ctx context.Context, accountID, id string) (*model.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.images {
		if r.images[i].ID == id && r.images[i].AccountID == accountID {
			deleted := r.images[i]
			r.images = append(r.images[:i], r.images[i+1:]...)
			return &deleted, nil
		}
	}
	return nil, nil
}

var (
	_ repository.AccountRepository = (*memAccountRepo)(nil)
	_ repository.SessionRepository = (*memSessionRepo)(nil)
	_ repository.DiaryRepository   = (*memDiaryRepo)(nil)
	_ repository.NoteRepository    = (*memNoteRepo)(nil)
	_ repository.ImageRepository   = (*memImageRepo)(nil)
)
