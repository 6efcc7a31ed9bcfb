package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tinoosan/finledger/internal/service/audit"
)

const auditColumns = `id, user_id, action, subject, details, created_at`

func scanAuditLog(row pgx.Row) (audit.Log, error) {
	var l audit.Log
	err := row.Scan(&l.ID, &l.UserID, &l.Action, &l.Subject, &l.Details, &l.Timestamp)
	return l, err
}

// InsertAuditLog appends a record. The table has no update path.
func (s *Store) InsertAuditLog(ctx context.Context, l audit.Log) (audit.Log, error) {
	_, err := s.pool.Exec(ctx, `
		insert into audit_logs (`+auditColumns+`)
		values ($1,$2,$3,$4,$5,$6)
	`, l.ID, l.UserID, l.Action, l.Subject, l.Details, l.Timestamp)
	if err != nil {
		return audit.Log{}, mapErr("insert audit log", err)
	}
	return l, nil
}

func (s *Store) GetAuditLog(ctx context.Context, id uuid.UUID) (audit.Log, error) {
	l, err := scanAuditLog(s.pool.QueryRow(ctx, `select `+auditColumns+` from audit_logs where id = $1`, id))
	if err != nil {
		return audit.Log{}, mapErr("get audit log", err)
	}
	return l, nil
}

// ListAuditLogs pages newest first by insertion order.
func (s *Store) ListAuditLogs(ctx context.Context, skip, limit int) ([]audit.Log, error) {
	rows, err := s.pool.Query(ctx, `
		select `+auditColumns+` from audit_logs
		order by seq desc
		offset $1 limit $2
	`, skip, limit)
	if err != nil {
		return nil, mapErr("list audit logs", err)
	}
	defer rows.Close()
	out := make([]audit.Log, 0)
	for rows.Next() {
		l, err := scanAuditLog(rows)
		if err != nil {
			return nil, mapErr("list audit logs", err)
		}
		out = append(out, l)
	}
	return out, mapErr("list audit logs", rows.Err())
}
