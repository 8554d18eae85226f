// Package memory is an in-process LedgerWriter used in tests and local
// development when no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"cassa/internal/core"
	"cassa/internal/export"
)

type Store struct {
	mu    sync.Mutex
	items []core.Payment
}

var _ export.LedgerWriter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// Append stores the payment and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, p core.Payment) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, p)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// Items returns a copy of everything appended so far.
func (s *Store) Items() []core.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Payment(nil), s.items...)
}
