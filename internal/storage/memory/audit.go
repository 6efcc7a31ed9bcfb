package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/tinoosan/finledger/internal/errs"
	"github.com/tinoosan/finledger/internal/service/audit"
)

// InsertAuditLog appends; records are never updated or removed.
func (s *Store) InsertAuditLog(_ context.Context, l audit.Log) (audit.Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditLogs = append(s.auditLogs, l)
	return l, nil
}

func (s *Store) GetAuditLog(_ context.Context, id uuid.UUID) (audit.Log, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.auditLogs {
		if l.ID == id {
			return l, nil
		}
	}
	return audit.Log{}, errs.ErrNotFound
}

// ListAuditLogs walks the append order backwards, newest first.
func (s *Store) ListAuditLogs(_ context.Context, skip, limit int) ([]audit.Log, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Log, 0, limit)
	for i := len(s.auditLogs) - 1 - skip; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.auditLogs[i])
	}
	return out, nil
}
