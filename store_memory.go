package phoneconfirm

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a process local ConfirmationStore, useful for tests and
// single instance deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*Confirmation
	keys    map[string]uuid.UUID
}

var _ ConfirmationStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[uuid.UUID]*Confirmation),
		keys:    make(map[string]uuid.UUID),
	}
}

func (s *MemoryStore) Insert(ctx context.Context, record *Confirmation) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if record.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return uuid.Nil, err
		}
		record.ID = id
	}

	if _, exists := s.records[record.ID]; exists {
		return uuid.Nil, ErrDuplicateConfirmation
	}
	if _, exists := s.keys[record.ActivationKey]; exists {
		return uuid.Nil, ErrDuplicateConfirmation
	}

	s.records[record.ID] = record.clone()
	s.keys[record.ActivationKey] = record.ID

	return record.ID, nil
}

func (s *MemoryStore) CountByPhone(ctx context.Context, phoneNumber string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, r := range s.records {
		if r.PhoneNumber == phoneNumber {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) OldestByPhone(ctx context.Context, phoneNumber string) (*Confirmation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := s.filter(func(r *Confirmation) bool {
		return r.PhoneNumber == phoneNumber
	})
	if len(matches) == 0 {
		return nil, ErrConfirmationNotFound
	}
	return matches[0].clone(), nil
}

func (s *MemoryStore) Find(ctx context.Context, phoneNumber, code string, notOlderThan time.Time) (*Confirmation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := s.filter(func(r *Confirmation) bool {
		return r.PhoneNumber == phoneNumber &&
			r.Code == code &&
			!r.CreatedAt.Before(notOlderThan)
	})
	if len(matches) == 0 {
		return nil, ErrConfirmationNotFound
	}
	return matches[len(matches)-1].clone(), nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id uuid.UUID) (*Confirmation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, ErrConfirmationNotFound
	}
	return record.clone(), nil
}

func (s *MemoryStore) Delete(ctx context.Context, record *Confirmation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if record == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if stored, ok := s.records[record.ID]; ok {
		delete(s.keys, stored.ActivationKey)
		delete(s.records, record.ID)
	}
	return nil
}

func (s *MemoryStore) DeleteAllByPhone(ctx context.Context, phoneNumber string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, r := range s.records {
		if r.PhoneNumber != phoneNumber {
			continue
		}
		delete(s.keys, r.ActivationKey)
		delete(s.records, id)
		deleted++
	}
	return deleted, nil
}

// Len reports the number of stored records
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// filter returns matching records ordered by created_at, id ascending.
// Callers must hold the lock.
func (s *MemoryStore) filter(match func(*Confirmation) bool) []*Confirmation {
	out := make([]*Confirmation, 0)
	for _, r := range s.records {
		if match(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}
