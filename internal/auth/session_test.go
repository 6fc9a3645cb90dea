package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/voxa/internal/model"
)

func TestSessionManager_SerializeRoundTrip(t *testing.T) {
	m := NewSessionManager(nil, time.Hour)
	account := &model.Account{
		ID:           "acc-1",
		Email:        "alice@example.com",
		PasswordHash: "$2a$10$hash",
		CreatedAt:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	data, err := m.Serialize(account)
	if err != nil {
		t.Fatalf("Serialize error: %v", err)
	}
	got, err := m.Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize error: %v", err)
	}
	if got.ID != account.ID || got.Email != account.Email || got.PasswordHash != account.PasswordHash {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, account)
	}
	if !got.CreatedAt.Equal(account.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, account.CreatedAt)
	}
}

func TestSessionManager_DeserializeRejectsGarbage(t *testing.T) {
	m := NewSessionManager(nil, time.Hour)
	for _, data := range [][]byte{nil, []byte("{"), []byte(`{}`)} {
		if _, err := m.Deserialize(data); err == nil {
			t.Errorf("Deserialize(%q) should fail", data)
		}
	}
}

func TestSessionManager_EstablishResolveDestroy(t *testing.T) {
	ctx := context.Background()
	repo := newMemSessionRepo()
	m := NewSessionManager(repo, time.Hour)
	account := &model.Account{ID: "acc-1", Email: "alice@example.com", PasswordHash: "h"}

	session, err := m.Establish(ctx, account)
	if err != nil {
		t.Fatalf("Establish error: %v", err)
	}
	if len(session.ID) != 64 {
		t.Errorf("token length = %d, want 64", len(session.ID))
	}
	if session.AccountID != "acc-1" {
		t.Errorf("AccountID = %q, want acc-1", session.AccountID)
	}
	if d := session.ExpiresAt.Sub(session.CreatedAt); d != time.Hour {
		t.Errorf("lifetime = %v, want 1h", d)
	}

	principal, err := m.Resolve(ctx, session.ID)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if principal == nil || principal.ID != "acc-1" {
		t.Fatalf("unexpected principal: %+v", principal)
	}

	if err := m.Destroy(ctx, session.ID); err != nil {
		t.Fatalf("Destroy error: %v", err)
	}
	principal, err = m.Resolve(ctx, session.ID)
	if err != nil {
		t.Fatalf("Resolve after destroy error: %v", err)
	}
	if principal != nil {
		t.Error("destroyed session must resolve to no principal")
	}

	if err := m.Destroy(ctx, session.ID); err != nil {
		t.Errorf("second Destroy should be a no-op, got %v", err)
	}
}

func TestSessionManager_ResolveUnknownOrEmpty(t *testing.T) {
	m := NewSessionManager(newMemSessionRepo(), time.Hour)
	for _, token := range []string{"", "unknown"} {
		principal, err := m.Resolve(context.Background(), token)
		if err != nil || principal != nil {
			t.Errorf("Resolve(%q) = %v, %v; want nil, nil", token, principal, err)
		}
	}
}

func TestSessionManager_ResolveExpired(t *testing.T) {
	ctx := context.Background()
	repo := newMemSessionRepo()
	m := NewSessionManager(repo, time.Minute)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }

	session, err := m.Establish(ctx, &model.Account{ID: "acc-1"})
	if err != nil {
		t.Fatalf("Establish error: %v", err)
	}
	principal, err := m.Resolve(ctx, session.ID)
	if err != nil || principal != nil {
		t.Errorf("expired session resolved to %v, %v", principal, err)
	}
}

// 復元できないペイロードは未認証扱いにし、セッション行も削除する
func TestSessionManager_ResolveUnreadablePayload(t *testing.T) {
	ctx := context.Background()
	for _, payload := range []string{"{corrupt", `{"email":"alice@example.com"}`} {
		repo := newMemSessionRepo()
		m := NewSessionManager(repo, time.Hour)
		session, err := m.Establish(ctx, &model.Account{ID: "acc-1", Email: "alice@example.com"})
		if err != nil {
			t.Fatalf("Establish error: %v", err)
		}
		repo.sessions[session.ID].Data = []byte(payload)

		principal, err := m.Resolve(ctx, session.ID)
		if err != nil || principal != nil {
			t.Errorf("payload %q: Resolve = %v, %v; want nil, nil", payload, principal, err)
		}
		if _, ok := repo.sessions[session.ID]; ok {
			t.Errorf("payload %q: unreadable session should be deleted", payload)
		}
	}
}

// セッションは保存時点のアカウントを返し、ストアとの鮮度確認は行わない
func TestSessionManager_ResolveReturnsStalePrincipal(t *testing.T) {
	ctx := context.Background()
	m := NewSessionManager(newMemSessionRepo(), time.Hour)
	account := &model.Account{ID: "acc-1", Email: "alice@example.com", PasswordHash: "old"}

	session, err := m.Establish(ctx, account)
	if err != nil {
		t.Fatalf("Establish error: %v", err)
	}
	account.PasswordHash = "new"

	principal, _ := m.Resolve(ctx, session.ID)
	if principal.PasswordHash != "old" {
		t.Errorf("PasswordHash = %q, want the value captured at login", principal.PasswordHash)
	}
}

func TestSessionManager_StoreErrors(t *testing.T) {
	ctx := context.Background()
	repo := &mockSessionRepo{
		createFn: func(ctx context.Context, s *model.Session) error { return model.ErrStoreUnavailable },
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return nil, model.ErrStoreUnavailable
		},
		deleteByIDFn: func(ctx context.Context, id string) error { return model.ErrStoreUnavailable },
	}
	m := NewSessionManager(repo, time.Hour)

	if _, err := m.Establish(ctx, &model.Account{ID: "a"}); !errors.Is(err, model.ErrStoreUnavailable) {
		t.Errorf("Establish: expected ErrStoreUnavailable, got %v", err)
	}
	if _, err := m.Resolve(ctx, "tok"); !errors.Is(err, model.ErrStoreUnavailable) {
		t.Errorf("Resolve: expected ErrStoreUnavailable, got %v", err)
	}
	if err := m.Destroy(ctx, "tok"); !errors.Is(err, model.ErrStoreUnavailable) {
		t.Errorf("Destroy: expected ErrStoreUnavailable, got %v", err)
	}
}
