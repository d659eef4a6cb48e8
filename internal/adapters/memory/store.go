// Package memory is an in-process implementation of the repository ports.
// It backs the test suites and the STORAGE_DRIVER=memory demo mode. A single
// mutex guards every table, so multi-table writes are atomic.
package memory

import (
	"sync"

	"github.com/kevin07696/paygo-service/internal/domain"
)

const defaultLimit = 100

// Store holds every table
type Store struct {
	mu           sync.RWMutex
	transactions map[string]*domain.Transaction
	terminals    map[string]*domain.Terminal
	cards        map[string]*domain.Card
	users        map[string]*domain.User
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		transactions: make(map[string]*domain.Transaction),
		terminals:    make(map[string]*domain.Terminal),
		cards:        make(map[string]*domain.Card),
		users:        make(map[string]*domain.User),
	}
}

// Transactions returns the transaction ledger view of the store
func (s *Store) Transactions() *TransactionRepository {
	return &TransactionRepository{s: s}
}

// Terminals returns the terminal view of the store
func (s *Store) Terminals() *TerminalRepository {
	return &TerminalRepository{s: s}
}

// Cards returns the card view of the store
func (s *Store) Cards() *CardRepository {
	return &CardRepository{s: s}
}

// Users returns the user view of the store
func (s *Store) Users() *UserRepository {
	return &UserRepository{s: s}
}

// page applies offset and limit to n items and returns the slice bounds
func page(n, offset, limit int) (int, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	if offset > n {
		return n, n
	}
	end := offset + limit
	if end > n {
		end = n
	}
	return offset, end
}
