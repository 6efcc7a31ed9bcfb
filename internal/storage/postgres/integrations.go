package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tinoosan/finledger/internal/service/integration"
)

const integrationColumns = `id, name, endpoint_url, created_at, last_synced_at`

func scanIntegration(row pgx.Row) (integration.Integration, error) {
	var in integration.Integration
	err := row.Scan(&in.ID, &in.Name, &in.EndpointURL, &in.CreatedAt, &in.LastSyncedAt)
	return in, err
}

// CreateIntegration stores an integration; names are unique ignoring case.
func (s *Store) CreateIntegration(ctx context.Context, in integration.Integration) (integration.Integration, error) {
	_, err := s.pool.Exec(ctx, `
		insert into integrations (id, name, name_key, endpoint_url, created_at, last_synced_at)
		values ($1,$2,$3,$4,$5,$6)
	`, in.ID, in.Name, strings.ToLower(in.Name), in.EndpointURL, in.CreatedAt, in.LastSyncedAt)
	if err != nil {
		return integration.Integration{}, mapErr("create integration", err)
	}
	return in, nil
}

func (s *Store) GetIntegration(ctx context.Context, id uuid.UUID) (integration.Integration, error) {
	in, err := scanIntegration(s.pool.QueryRow(ctx, `select `+integrationColumns+` from integrations where id = $1`, id))
	if err != nil {
		return integration.Integration{}, mapErr("get integration", err)
	}
	return in, nil
}

func (s *Store) MarkSynced(ctx context.Context, id uuid.UUID, at time.Time) (integration.Integration, error) {
	in, err := scanIntegration(s.pool.QueryRow(ctx, `
		update integrations set last_synced_at = $1
		where id = $2
		returning `+integrationColumns, at, id))
	if err != nil {
		return integration.Integration{}, mapErr("mark synced", err)
	}
	return in, nil
}
