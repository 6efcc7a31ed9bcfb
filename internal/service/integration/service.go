// Package integration registers external endpoints and performs a single
// best-effort GET against them on demand.
package integration

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/finledger/internal/errs"
)

type Integration struct {
	ID           uuid.UUID
	Name         string
	EndpointURL  string
	CreatedAt    time.Time
	LastSyncedAt *time.Time
}

type Repo interface {
	GetIntegration(ctx context.Context, id uuid.UUID) (Integration, error)
}

// Writer persists integrations; duplicate names are errs.ErrConflict.
type Writer interface {
	CreateIntegration(ctx context.Context, in Integration) (Integration, error)
	MarkSynced(ctx context.Context, id uuid.UUID, at time.Time) (Integration, error)
}

// Fetcher performs the outbound call.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string) error
}

type Service interface {
	Validate(name, endpoint string) error
	Create(ctx context.Context, name, endpoint string) (Integration, error)
	Get(ctx context.Context, id uuid.UUID) (Integration, error)
	Sync(ctx context.Context, id uuid.UUID) (Integration, error)
}

type service struct {
	repo    Repo
	writer  Writer
	fetcher Fetcher
}

func New(repo Repo, writer Writer, fetcher Fetcher) Service {
	return &service{repo: repo, writer: writer, fetcher: fetcher}
}

func (s *service) Validate(name, endpoint string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", errs.ErrInvalid)
	}
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: endpoint_url must be an absolute http(s) URL", errs.ErrInvalid)
	}
	return nil
}

func (s *service) Create(ctx context.Context, name, endpoint string) (Integration, error) {
	if err := s.Validate(name, endpoint); err != nil {
		return Integration{}, err
	}
	return s.writer.CreateIntegration(ctx, Integration{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(name),
		EndpointURL: strings.TrimSpace(endpoint),
		CreatedAt:   time.Now().UTC(),
	})
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (Integration, error) {
	if id == uuid.Nil {
		return Integration{}, errs.ErrInvalid
	}
	return s.repo.GetIntegration(ctx, id)
}

// Sync calls the endpoint once. Only a successful call moves LastSyncedAt.
func (s *service) Sync(ctx context.Context, id uuid.UUID) (Integration, error) {
	in, err := s.Get(ctx, id)
	if err != nil {
		return Integration{}, err
	}
	if err := s.fetcher.Fetch(ctx, in.EndpointURL); err != nil {
		return Integration{}, fmt.Errorf("sync %s: %w", in.Name, err)
	}
	return s.writer.MarkSynced(ctx, in.ID, time.Now().UTC())
}
