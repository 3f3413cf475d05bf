package identity

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"agrobot/internal/domain"
	"agrobot/internal/store"
)

// ErrUnauthorized means the phone resolved to no active user through any of
// the lookup paths.
var ErrUnauthorized = errors.New("phone not authorized")

const cacheTTL = time.Hour

type cacheEntry struct {
	user    *domain.User
	expires time.Time
}

// Resolver maps incoming phone numbers to active users. Lookup order is
// users.phone, then the personnel roster, then the client roster, each
// joined back to an active user. Results are cached per normalized phone.
type Resolver struct {
	store  *store.Store
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	cache map[string]cacheEntry
}

func NewResolver(s *store.Store, logger *slog.Logger) *Resolver {
	return &Resolver{
		store:  s,
		logger: logger,
		now:    time.Now,
		cache:  make(map[string]cacheEntry),
	}
}

// Resolve returns the active user for a raw phone, or ErrUnauthorized.
func (r *Resolver) Resolve(ctx context.Context, rawPhone string) (*domain.User, error) {
	phone := NormalizePhone(rawPhone)
	if phone == "" {
		return nil, ErrUnauthorized
	}

	if u := r.cached(phone); u != nil {
		// A cached user may have been deactivated since.
		fresh, err := r.store.GetUser(ctx, u.ID)
		if err == nil && fresh != nil && fresh.Active {
			return fresh, nil
		}
		r.invalidate(phone)
	}

	u, err := r.lookup(ctx, phone)
	if err != nil {
		return nil, err
	}
	if u == nil {
		r.logger.Warn("unauthorized phone", "phone", phone)
		return nil, ErrUnauthorized
	}

	r.mu.Lock()
	r.cache[phone] = cacheEntry{user: u, expires: r.now().Add(cacheTTL)}
	r.mu.Unlock()
	return u, nil
}

func (r *Resolver) lookup(ctx context.Context, phone string) (*domain.User, error) {
	if u, err := r.store.FindUserByPhone(ctx, phone); err != nil || u != nil {
		return u, err
	}
	if u, err := r.store.FindUserByPersonnelPhone(ctx, phone); err != nil || u != nil {
		return u, err
	}
	return r.store.FindUserByClientPhone(ctx, phone)
}

func (r *Resolver) cached(phone string) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.cache[phone]
	if !ok || r.now().After(e.expires) {
		delete(r.cache, phone)
		return nil
	}
	return e.user
}

func (r *Resolver) invalidate(phone string) {
	r.mu.Lock()
	delete(r.cache, phone)
	r.mu.Unlock()
}

// NormalizePhone applies the Argentina mobile heuristics:
//
//	"54..."            -> "+54..."
//	"9" + 10 digits    -> "+54" prefix
//	10 digits, no "0"  -> "+549" prefix
//
// Formatting characters (spaces, dashes, parentheses) are stripped first.
func NormalizePhone(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	if cleaned == "" {
		return ""
	}
	if strings.HasPrefix(cleaned, "+") {
		return cleaned
	}
	if strings.HasPrefix(cleaned, "54") {
		return "+" + cleaned
	}
	if strings.HasPrefix(cleaned, "9") && len(cleaned) == 11 {
		return "+54" + cleaned
	}
	if len(cleaned) == 10 && !strings.HasPrefix(cleaned, "0") && allDigits(cleaned) {
		return "+549" + cleaned
	}
	return cleaned
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
