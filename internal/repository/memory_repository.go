package repository

import (
	"context"
	"sync"
	"time"

	"finboard/internal/models"

	"github.com/google/uuid"
)

// MemoryTransactionStore keeps transactions in process memory. It backs
// STORE_DRIVER=memory and the service tests.
type MemoryTransactionStore struct {
	mu    sync.RWMutex
	users map[string]map[string]models.Transaction
	order map[string][]string
	now   func() time.Time
}

func NewMemoryTransactionStore() *MemoryTransactionStore {
	return &MemoryTransactionStore{
		users: make(map[string]map[string]models.Transaction),
		order: make(map[string][]string),
		now:   time.Now,
	}
}

func (s *MemoryTransactionStore) Create(ctx context.Context, userID string, fields models.TransactionFields) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	tx := models.Transaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	tx.Apply(fields)

	if s.users[userID] == nil {
		s.users[userID] = make(map[string]models.Transaction)
	}
	s.users[userID][tx.ID] = tx
	s.order[userID] = append(s.order[userID], tx.ID)
	return tx.ID, nil
}

func (s *MemoryTransactionStore) Get(ctx context.Context, userID, id string) (*models.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.users[userID][id]
	if !ok {
		return nil, ErrNotFound
	}
	return &tx, nil
}

func (s *MemoryTransactionStore) List(ctx context.Context, userID string) ([]models.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Transaction, 0, len(s.order[userID]))
	for _, id := range s.order[userID] {
		out = append(out, s.users[userID][id])
	}
	return out, nil
}

func (s *MemoryTransactionStore) Update(ctx context.Context, userID, id string, fields models.TransactionFields) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.users[userID][id]
	if !ok {
		return ErrNotFound
	}
	tx.Apply(fields)
	tx.UpdatedAt = s.now()
	s.users[userID][id] = tx
	return nil
}

func (s *MemoryTransactionStore) Delete(ctx context.Context, userID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID][id]; !ok {
		return ErrNotFound
	}
	delete(s.users[userID], id)

	ids := s.order[userID]
	for i, v := range ids {
		if v == id {
			s.order[userID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	return nil
}
