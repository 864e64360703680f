package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/josh-kwaku/tradebooks/internal/domain"
)

const namespace = "ledger"

// unknownStatusLabel keeps policy_warnings bounded when the order module
// introduces statuses this package does not recognize.
const unknownStatusLabel = "unknown"

const (
	OperationAccountBalance   = "account_balance"
	OperationInvoice          = "invoice"
	OperationFinancialSummary = "financial_summary"
	OperationTransferGate     = "transfer_gate"
)

const (
	OutcomeOK           = "ok"
	OutcomeNotFound     = "not_found"
	OutcomeInvalidState = "invalid_state"
	OutcomeConflict     = "conflict"
	OutcomeError        = "error"
)

type Ledger struct {
	anomalies       *prometheus.CounterVec
	policyWarnings  *prometheus.CounterVec
	reconciliations *prometheus.CounterVec
}

// New registers the ledger collectors on reg. A nil reg leaves them
// unregistered, which tests use to read counters in isolation.
func New(reg prometheus.Registerer) *Ledger {
	m := &Ledger{
		anomalies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "balance_anomalies_total",
			Help:      "Transactions folded into a balance with a best-effort fallback amount.",
		}, []string{"kind"}),
		policyWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receivable_policy_warnings_total",
			Help:      "Invoices whose outstanding balance was deferred because the order status is not recognized.",
		}, []string{"status"}),
		reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliations_total",
			Help:      "Reconciliation computations by operation and outcome.",
		}, []string{"operation", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.anomalies, m.policyWarnings, m.reconciliations)
	}
	return m
}

func (m *Ledger) BalanceAnomaly(kind string) {
	if m == nil {
		return
	}
	m.anomalies.WithLabelValues(kind).Inc()
}

func (m *Ledger) PolicyWarning(status domain.OrderStatus) {
	if m == nil {
		return
	}
	label := string(status)
	if !status.IsKnown() {
		label = unknownStatusLabel
	}
	m.policyWarnings.WithLabelValues(label).Inc()
}

func (m *Ledger) Reconciliation(operation string, err error) {
	if m == nil {
		return
	}
	m.reconciliations.WithLabelValues(operation, Classify(err)).Inc()
}

func Classify(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, domain.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, domain.ErrInvalidLedgerState):
		return OutcomeInvalidState
	case errors.Is(err, domain.ErrVersionConflict):
		return OutcomeConflict
	default:
		return OutcomeError
	}
}
