package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/finledger/internal/errs"
	"github.com/tinoosan/finledger/internal/service/filing"
)

func (s *Store) CreateFiling(_ context.Context, f filing.Filing) (filing.Filing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.filings[f.ID]; exists {
		return filing.Filing{}, errs.ErrConflict
	}
	s.filings[f.ID] = f
	return f, nil
}

func (s *Store) GetFiling(_ context.Context, id uuid.UUID) (filing.Filing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.filings[id]
	if !ok {
		return filing.Filing{}, errs.ErrNotFound
	}
	return f, nil
}

// ListFilings returns a user's filings, newest year first.
func (s *Store) ListFilings(_ context.Context, userID uuid.UUID) ([]filing.Filing, error) {
	s.mu.RLock()
	out := make([]filing.Filing, 0)
	for _, f := range s.filings {
		if f.UserID == userID {
			out = append(out, f)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) MarkFiled(_ context.Context, id uuid.UUID, at time.Time) (filing.Filing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.filings[id]
	if !ok {
		return filing.Filing{}, errs.ErrNotFound
	}
	if f.Status != filing.StatusPending {
		return filing.Filing{}, errs.ErrConflict
	}
	f.Status = filing.StatusFiled
	f.FiledAt = &at
	s.filings[id] = f
	return f, nil
}
