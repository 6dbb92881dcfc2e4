// Package ledger holds the session-scoped record collection and its
// aggregate views. A session is created empty, grows by one record per
// confirmed upload, and is never mutated otherwise.
package ledger

import (
	"sync"

	"billscan/internal/entity"
)

// Session is the in-memory append-only invoice ledger for one run of the
// tool. It replaces the ambient globals the prototypes kept.
type Session struct {
	mu      sync.RWMutex
	records []entity.InvoiceRecord
}

func NewSession() *Session {
	return &Session{}
}

// Append adds one confirmed record to the ledger.
func (s *Session) Append(rec entity.InvoiceRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
}

// Records returns a copy of the ledger in append order.
func (s *Session) Records() []entity.InvoiceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entity.InvoiceRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Len reports the number of records in the session.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
