// Package testutil holds in-memory collaborators shared by package tests.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jjudge-oj/accountsvc/internal/store"
	"github.com/jjudge-oj/accountsvc/types"
)

// AccountRepository is an in-memory account store that enforces email
// uniqueness the way the database constraint does.
type AccountRepository struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]types.Account
	byEmail  map[string]uuid.UUID
	now      func() time.Time
	GetErr   error
	writes   int
	sequence time.Duration
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		byID:    make(map[uuid.UUID]types.Account),
		byEmail: make(map[string]uuid.UUID),
		now:     time.Now,
	}
}

// Writes returns the number of successful Create and Update calls.
func (r *AccountRepository) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

// Len returns the number of stored accounts.
func (r *AccountRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

func (r *AccountRepository) GetByID(_ context.Context, id uuid.UUID) (types.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.GetErr != nil {
		return types.Account{}, r.GetErr
	}
	account, ok := r.byID[id]
	if !ok {
		return types.Account{}, store.ErrNotFound
	}
	return account, nil
}

func (r *AccountRepository) GetByEmail(_ context.Context, email string) (types.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.GetErr != nil {
		return types.Account{}, r.GetErr
	}
	id, ok := r.byEmail[email]
	if !ok {
		return types.Account{}, store.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *AccountRepository) Create(_ context.Context, account types.Account) (types.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[account.Email]; exists {
		return types.Account{}, store.ErrDuplicateEmail
	}
	// Keep creation times strictly increasing so ordering is deterministic.
	r.sequence += time.Microsecond
	now := r.now().UTC().Add(r.sequence)
	account.CreatedAt = now
	account.UpdatedAt = now
	r.byID[account.ID] = account
	r.byEmail[account.Email] = account.ID
	r.writes++
	return account, nil
}

func (r *AccountRepository) Update(_ context.Context, account types.Account) (types.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.byID[account.ID]
	if !ok {
		return types.Account{}, store.ErrNotFound
	}
	if owner, exists := r.byEmail[account.Email]; exists && owner != account.ID {
		return types.Account{}, store.ErrDuplicateEmail
	}
	updatedAt := r.now().UTC()
	if !updatedAt.After(current.UpdatedAt) {
		updatedAt = current.UpdatedAt.Add(time.Microsecond)
	}
	account.CreatedAt = current.CreatedAt
	account.UpdatedAt = updatedAt
	delete(r.byEmail, current.Email)
	r.byEmail[account.Email] = account.ID
	r.byID[account.ID] = account
	r.writes++
	return account, nil
}

func (r *AccountRepository) List(_ context.Context, offset, limit int) ([]types.Account, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]types.Account, 0, len(r.byID))
	for _, account := range r.byID {
		all = append(all, account)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	total := len(all)
	if offset >= total {
		return []types.Account{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

// Notifier records published account events.
type Notifier struct {
	mu     sync.Mutex
	Err    error
	events []types.AccountEvent
}

func (n *Notifier) Notify(_ context.Context, event types.AccountEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.events = append(n.events, event)
	return nil
}

// Events returns a copy of the recorded events.
func (n *Notifier) Events() []types.AccountEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]types.AccountEvent(nil), n.events...)
}
