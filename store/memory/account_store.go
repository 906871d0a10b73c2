// Package memstore provides in-memory store implementations for tests and
// single-process deployments that do not need durable accounts.
package memstore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-billing-webhooks/core"
)

// AccountStore keeps accounts in a map guarded by a mutex. Semantics mirror
// the sql-backed store: lookups by customer id, convergent revoke, upsert
// keyed by billing customer id.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[string]core.Account

	Now func() time.Time
}

func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts: map[string]core.Account{},
	}
}

func (s *AccountStore) FindByCustomerID(_ context.Context, customerID string) (core.Account, bool, error) {
	if s == nil {
		return core.Account{}, false, fmt.Errorf("memstore: account store is nil")
	}
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return core.Account{}, false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, account := range s.accounts {
		if account.BillingCustomerID == customerID {
			return account, true, nil
		}
	}
	return core.Account{}, false, nil
}

func (s *AccountStore) RevokeProAccess(_ context.Context, accountID string) (core.Account, error) {
	if s == nil {
		return core.Account{}, fmt.Errorf("memstore: account store is nil")
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return core.Account{}, fmt.Errorf("memstore: account id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	account, exists := s.accounts[accountID]
	if !exists {
		return core.Account{}, core.ErrAccountNotFound
	}
	if account.ProAccess {
		account.ProAccess = false
		account.UpdatedAt = s.now()
		s.accounts[accountID] = account
	}
	return account, nil
}

func (s *AccountStore) Upsert(_ context.Context, in core.UpsertAccountInput) (core.Account, error) {
	if s == nil {
		return core.Account{}, fmt.Errorf("memstore: account store is nil")
	}
	in.Email = strings.TrimSpace(in.Email)
	in.BillingCustomerID = strings.TrimSpace(in.BillingCustomerID)
	if in.BillingCustomerID == "" {
		return core.Account{}, fmt.Errorf("memstore: billing customer id is required")
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, account := range s.accounts {
		if account.BillingCustomerID == in.BillingCustomerID {
			account.Email = in.Email
			account.ProAccess = in.ProAccess
			account.UpdatedAt = now
			s.accounts[id] = account
			return account, nil
		}
	}
	account := core.Account{
		ID:                uuid.NewString(),
		Email:             in.Email,
		BillingCustomerID: in.BillingCustomerID,
		ProAccess:         in.ProAccess,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	s.accounts[account.ID] = account
	return account, nil
}

func (s *AccountStore) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
