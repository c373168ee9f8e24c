package store

import (
	"context"
	"strings"
	"sync"

	"signup/internal/registration/models"
)

// InMemoryStore keeps registrations in maps guarded by a RWMutex.
// The email index mirrors the unique index of the Postgres schema.
type InMemoryStore struct {
	mu           sync.RWMutex
	records      map[models.RegistrationID]models.RegistrationRecord
	byEmail      map[string]models.RegistrationID
	supplemental map[models.RegistrationID]models.SupplementalInfoRecord
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		records:      make(map[models.RegistrationID]models.RegistrationRecord),
		byEmail:      make(map[string]models.RegistrationID),
		supplemental: make(map[models.RegistrationID]models.SupplementalInfoRecord),
	}
}

// InsertRegistration assigns an id and stores the record, or returns
// ErrDuplicateEmail without touching the existing record.
func (s *InMemoryStore) InsertRegistration(_ context.Context, record models.RegistrationRecord) (models.RegistrationID, error) {
	key := strings.ToLower(record.Email)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[key]; taken {
		return models.RegistrationID{}, ErrDuplicateEmail
	}
	record.ID = models.NewRegistrationID()
	s.records[record.ID] = record
	s.byEmail[key] = record.ID
	return record.ID, nil
}

// UpsertSupplemental creates or replaces the supplemental record of id.
func (s *InMemoryStore) UpsertSupplemental(_ context.Context, id models.RegistrationID, record models.SupplementalInfoRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return ErrNotFound
	}
	record.RegistrationID = id
	s.supplemental[id] = record
	return nil
}

func (s *InMemoryStore) FindRegistration(_ context.Context, id models.RegistrationID) (*models.RegistrationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &record, nil
}

func (s *InMemoryStore) FindSupplemental(_ context.Context, id models.RegistrationID) (*models.SupplementalInfoRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.supplemental[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &record, nil
}

// Count returns the number of stored registrations.
func (s *InMemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
