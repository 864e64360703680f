package domain

import (
	"time"

	"github.com/google/uuid"
)

type AuditEvent struct {
	ID          uuid.UUID
	EntityTable string
	EntityID    uuid.UUID
	Action      string
	Message     string
	CreatedAt   time.Time
}
