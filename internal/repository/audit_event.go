package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/tradebooks/internal/domain"
)

const auditEventColumns = `id, entity_table, entity_id, action, message, created_at`

type AuditEventRepository struct{}

func NewAuditEventRepository() *AuditEventRepository {
	return &AuditEventRepository{}
}

func (r *AuditEventRepository) Create(ctx context.Context, q Querier, e *domain.AuditEvent) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO audit_events (`+auditEventColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.EntityTable, e.EntityID, e.Action, e.Message, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *AuditEventRepository) ListByEntity(ctx context.Context, q Querier, table string, id uuid.UUID) ([]domain.AuditEvent, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+auditEventColumns+` FROM audit_events
		WHERE entity_table = $1 AND entity_id = $2 ORDER BY created_at, id`,
		table, id,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByEntity: %w", err)
	}
	defer rows.Close()

	var events []domain.AuditEvent
	for rows.Next() {
		var e domain.AuditEvent
		if err := rows.Scan(&e.ID, &e.EntityTable, &e.EntityID, &e.Action, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListByEntity: scan: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByEntity: rows: %w", err)
	}
	return events, nil
}
