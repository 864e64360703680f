package audit

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/tradebooks/internal/domain"
	"github.com/josh-kwaku/tradebooks/internal/logging"
	"github.com/josh-kwaku/tradebooks/internal/repository"
)

const (
	ActionReconciled       = "reconciled"
	ActionReconcileFailed  = "reconcile_failed"
	ActionBalanceRefreshed = "balance_refreshed"
	ActionBalanceAnomaly   = "balance_anomaly"
	ActionPaymentRecorded  = "payment_recorded"
	ActionTxnRecorded      = "transaction_recorded"
	ActionTxnCancelled     = "transaction_cancelled"
	ActionTxnReversed      = "transaction_reversed"
	ActionTransferRecorded = "transfer_recorded"
	ActionPolicyWarning    = "receivable_policy_warning"
)

type eventStore interface {
	Create(ctx context.Context, q repository.Querier, e *domain.AuditEvent) error
}

// Recorder writes audit events outside the caller's transaction so failed
// operations still leave a trace. Write failures are logged and swallowed.
type Recorder struct {
	store eventStore
	q     repository.Querier
	now   func() time.Time
}

func NewRecorder(store eventStore, q repository.Querier) *Recorder {
	return &Recorder{store: store, q: q, now: time.Now}
}

func (r *Recorder) Record(ctx context.Context, entityTable string, entityID uuid.UUID, action, message string) {
	if r == nil {
		return
	}
	action = strings.TrimSpace(action)
	if action == "" {
		action = "unknown"
	}

	e := &domain.AuditEvent{
		ID:          uuid.New(),
		EntityTable: entityTable,
		EntityID:    entityID,
		Action:      action,
		Message:     message,
		CreatedAt:   r.now().UTC(),
	}
	if err := r.store.Create(ctx, r.q, e); err != nil {
		logging.FromContext(ctx).Warn("audit write failed",
			"entity_table", entityTable,
			"entity_id", entityID,
			"action", action,
			"error", err,
		)
	}
}
