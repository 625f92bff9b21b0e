package accounts

import (
	"fmt"
	"sort"
	"sync"
)

// Store is the process-lifetime account table. Accounts are never removed.
// It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

// NewStore returns an empty table.
func NewStore() *Store {
	return &Store{accounts: make(map[string]Account)}
}

// AddAccount inserts acct after filling defaults and validating its
// permissions. An existing username yields ErrDuplicateAccount.
func (s *Store) AddAccount(acct Account) error {
	if err := acct.normalize(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[acct.Username]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateAccount, acct.Username)
	}
	s.accounts[acct.Username] = acct
	return nil
}

// Get returns the account for username.
func (s *Store) Get(username string) (Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[username]
	return acct, ok
}

// Has reports whether username exists.
func (s *Store) Has(username string) bool {
	_, ok := s.Get(username)
	return ok
}

// Len returns the number of accounts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

// Usernames returns all usernames in sorted order.
func (s *Store) Usernames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.accounts))
	for name := range s.accounts {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// EnsureRemoteAccount creates a remote-only account for username unless one
// exists. It returns the stored account and whether it was created.
func (s *Store) EnsureRemoteAccount(username string) (Account, bool, error) {
	acct := NewAccount(username, "")
	if err := acct.normalize(); err != nil {
		return Account{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.accounts[username]; ok {
		return existing, false, nil
	}
	s.accounts[username] = acct
	return acct, true, nil
}
