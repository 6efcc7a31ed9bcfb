package memory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/finledger/internal/errs"
	"github.com/tinoosan/finledger/internal/service/integration"
)

func (s *Store) CreateIntegration(_ context.Context, in integration.Integration) (integration.Integration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(in.Name)
	if _, taken := s.integrationNames[key]; taken {
		return integration.Integration{}, errs.ErrConflict
	}
	s.integrations[in.ID] = in
	s.integrationNames[key] = in.ID
	return in, nil
}

func (s *Store) GetIntegration(_ context.Context, id uuid.UUID) (integration.Integration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	in, ok := s.integrations[id]
	if !ok {
		return integration.Integration{}, errs.ErrNotFound
	}
	return in, nil
}

func (s *Store) MarkSynced(_ context.Context, id uuid.UUID, at time.Time) (integration.Integration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.integrations[id]
	if !ok {
		return integration.Integration{}, errs.ErrNotFound
	}
	in.LastSyncedAt = &at
	s.integrations[id] = in
	return in, nil
}
