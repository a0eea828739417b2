// Package inmemstore keeps session credentials in process memory. It backs
// local development and tests; a gateway restart logs everyone out.
package inmemstore

import (
	"context"
	"sync"

	"github.com/trezcool/darasa/core/session"
)

type Store struct {
	mutex sync.RWMutex
	table map[string]map[string]string
}

var _ session.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{table: make(map[string]map[string]string)}
}

func (s *Store) Get(_ context.Context, sid, key string) (string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if creds, ok := s.table[sid]; ok {
		if val, ok := creds[key]; ok {
			return val, nil
		}
	}
	return "", session.ErrNotFound
}

func (s *Store) Set(_ context.Context, sid, key, value string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	creds, ok := s.table[sid]
	if !ok {
		creds = make(map[string]string)
		s.table[sid] = creds
	}
	creds[key] = value
	return nil
}

func (s *Store) Clear(_ context.Context, sid, key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if creds, ok := s.table[sid]; ok {
		delete(creds, key)
	}
	return nil
}

func (s *Store) ClearAll(_ context.Context, sid string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.table, sid)
	return nil
}
