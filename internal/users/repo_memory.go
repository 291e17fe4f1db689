package users

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository useful for tests.
// It is not intended for production use.

type MemoryRepo struct {
	mu    sync.Mutex
	users map[string]*User // keyed by canonical phone
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{users: map[string]*User{}}
}

func (r *MemoryRepo) FindByPhone(ctx context.Context, phone string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[phone]
	if !ok {
		return User{}, ErrNotFound
	}
	return cloneUser(*u), nil
}

func (r *MemoryRepo) Insert(ctx context.Context, u User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.Phone]; ok {
		return ErrDuplicatePhone
	}
	cp := cloneUser(u)
	r.users[u.Phone] = &cp
	return nil
}

func (r *MemoryRepo) Update(ctx context.Context, phone string, patch ProfileUpdate, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[phone]
	if !ok {
		return ErrNotFound
	}
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.Profession != nil {
		u.Profession = *patch.Profession
	}
	if patch.Bio != nil {
		u.Bio = *patch.Bio
	}
	if patch.BioParts != nil {
		u.BioParts = *patch.BioParts
	}
	u.LastUpdated = now
	return nil
}

func (r *MemoryRepo) AppendCall(ctx context.Context, phone string, rec CallRecord, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[phone]
	if !ok {
		return ErrNotFound
	}
	u.Calls = append(u.Calls, rec)
	u.LastUpdated = now
	return nil
}

func (r *MemoryRepo) TouchLastUpdated(ctx context.Context, phone string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[phone]
	if !ok {
		return ErrNotFound
	}
	u.LastUpdated = now
	return nil
}

func (r *MemoryRepo) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}

func cloneUser(u User) User {
	out := u
	out.Calls = make([]CallRecord, len(u.Calls))
	copy(out.Calls, u.Calls)
	return out
}
