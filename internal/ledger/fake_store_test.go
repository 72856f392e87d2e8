package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mmynk/splitwose/internal/models"
	"github.com/mmynk/splitwose/internal/storage"
)

// memStore is an in-memory Store for ledger tests. Setting failWith makes
// every call return that error.
type memStore struct {
	mu          sync.Mutex
	users       []*models.User
	expenses    []*models.Expense
	settlements []*models.Settlement
	failWith    error
	failUsers   error
}

func newMemStore() *memStore {
	return &memStore{}
}

func (s *memStore) addUser(name, email string) *models.User {
	u := models.NewUser(email, name, "")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, u)
	return u
}

func (s *memStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	key := models.EmailKey(email)
	for _, u := range s.users {
		if models.EmailKey(u.Email) == key {
			return u, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", email, storage.ErrNotFound)
}

func (s *memStore) GetUsersByIDs(_ context.Context, ids []string) (map[string]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	if s.failUsers != nil {
		return nil, s.failUsers
	}
	out := make(map[string]*models.User)
	for _, id := range ids {
		for _, u := range s.users {
			if u.ID == id {
				out[id] = u
			}
		}
	}
	return out, nil
}

func (s *memStore) GetUsersByEmails(_ context.Context, emails []string) ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	var out []*models.User
	for _, u := range s.users {
		for _, e := range emails {
			if models.EmailKey(u.Email) == models.EmailKey(e) {
				out = append(out, u)
				break
			}
		}
	}
	return out, nil
}

func (s *memStore) ListUsers(_ context.Context) ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	return append([]*models.User(nil), s.users...), nil
}

func (s *memStore) CreateExpense(_ context.Context, e *models.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	if e.ID == "" {
		e.ID = storage.NewID()
	}
	s.expenses = append(s.expenses, e)
	return nil
}

func (s *memStore) ListExpensesInvolving(_ context.Context, userID string, filter storage.ExpenseFilter) ([]*models.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	var out []*models.Expense
	for _, e := range s.expenses {
		if !e.Involves(userID) {
			continue
		}
		if filter.Category != "" && e.Category != filter.Category {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Date, out[j].Date
		if filter.SortBy == storage.SortByAmount {
			if filter.Ascending {
				return out[i].Amount < out[j].Amount
			}
			return out[i].Amount > out[j].Amount
		}
		if filter.Ascending {
			return a < b
		}
		return a > b
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *memStore) CreateSettlement(_ context.Context, st *models.Settlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	if st.ID == "" {
		st.ID = storage.NewID()
	}
	s.settlements = append(s.settlements, st)
	return nil
}

func (s *memStore) ListSettlementsInvolving(_ context.Context, userID string, limit int) ([]*models.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	var out []*models.Settlement
	for i := len(s.settlements) - 1; i >= 0; i-- {
		st := s.settlements[i]
		if st.FromUserID == userID || st.ToUserID == userID {
			out = append(out, st)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
