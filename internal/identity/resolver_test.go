package identity

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"agrobot/internal/domain"
	"agrobot/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"), testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"+54 9 11 5555-1111", "+5491155551111"},
		{"54 9 11 5555 1111", "+5491155551111"},
		{"91155551111", "+5491155551111"},
		{"1155551111", "+5491155551111"},
		{"(11) 5555-1111", "+5491155551111"},
		{"0111555511", "0111555511"}, // leading zero, left as delivered
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range cases {
		if got := NormalizePhone(tc.in); got != tc.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestResolveOrderAndUnauthorized(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	r := NewResolver(s, testLogger())

	ownerID, err := s.CreateUser(ctx, domain.User{Name: "Marta", Phone: "+5491155551111", Active: true})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	u, err := r.Resolve(ctx, "54 9 11 5555-1111")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if u.ID != ownerID {
		t.Errorf("resolved user %d, want %d", u.ID, ownerID)
	}

	if _, err := r.Resolve(ctx, "+5491199999999"); err != ErrUnauthorized {
		t.Errorf("unknown phone err = %v, want ErrUnauthorized", err)
	}
	if _, err := r.Resolve(ctx, ""); err != ErrUnauthorized {
		t.Errorf("empty phone err = %v, want ErrUnauthorized", err)
	}
}

func TestResolveViaPersonnelRoster(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	r := NewResolver(s, testLogger())

	ownerID, err := s.CreateUser(ctx, domain.User{Name: "Marta", Phone: "+5491155551111", Active: true})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	ts := s.ForTenant(ownerID)
	if _, err := ts.CreatePersonnel(ctx, domain.Personnel{Name: "Marta", Phone: "+5491155553333"}); err != nil {
		t.Fatalf("CreatePersonnel: %v", err)
	}

	u, err := r.Resolve(ctx, "+5491155553333")
	if err != nil {
		t.Fatalf("Resolve via personnel: %v", err)
	}
	if u.ID != ownerID {
		t.Errorf("resolved user %d, want %d", u.ID, ownerID)
	}
}

func TestResolveCacheDetectsDeactivation(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	r := NewResolver(s, testLogger())

	id, err := s.CreateUser(ctx, domain.User{Name: "Marta", Phone: "+5491155551111", Active: true})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := r.Resolve(ctx, "+5491155551111"); err != nil {
		t.Fatalf("first Resolve: %v", err)
	}

	// Deactivate behind the cache's back; the stale hit must be rejected.
	if err := s.SetUserActive(ctx, id, false); err != nil {
		t.Fatalf("SetUserActive: %v", err)
	}

	if _, err := r.Resolve(ctx, "+5491155551111"); err != ErrUnauthorized {
		t.Errorf("deactivated user err = %v, want ErrUnauthorized", err)
	}
}

func TestCacheExpiry(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	r := NewResolver(s, testLogger())
	base := time.Now()
	r.now = func() time.Time { return base }

	if _, err := s.CreateUser(ctx, domain.User{Name: "Marta", Phone: "+5491155551111", Active: true}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := r.Resolve(ctx, "+5491155551111"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.cached("+5491155551111") == nil {
		t.Fatal("entry not cached")
	}

	base = base.Add(cacheTTL + time.Minute)
	if r.cached("+5491155551111") != nil {
		t.Fatal("expired entry still cached")
	}
}
