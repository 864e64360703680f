package reconcile

import (
	"fmt"

	"github.com/josh-kwaku/tradebooks/internal/domain"
)

type Recognition string

const (
	// RecognitionStandalone: invoice has no order, outstanding is owed now.
	RecognitionStandalone Recognition = "standalone"
	// RecognitionShipped: linked order shipped or delivered.
	RecognitionShipped Recognition = "shipped"
	// RecognitionDeferred: order not shipped yet; collected money is advance.
	RecognitionDeferred Recognition = "deferred"
	// RecognitionUnknownStatus: order status outside the known set. Treated
	// like deferred so receivables are under- rather than over-reported.
	RecognitionUnknownStatus Recognition = "unknown_status"
)

// Recognized reports whether the invoice carries a real receivable.
func (r Recognition) Recognized() bool {
	return r == RecognitionStandalone || r == RecognitionShipped
}

// RecognizeReceivable is the one place that decides whether an invoice's
// unpaid amount counts as outstanding. Every outstanding figure in the system
// goes through here.
func RecognizeReceivable(inv *domain.Invoice, order *domain.Order) (Recognition, error) {
	if inv.IsStandalone {
		return RecognitionStandalone, nil
	}
	if inv.OrderID == nil {
		return "", fmt.Errorf("RecognizeReceivable: invoice %s is neither standalone nor linked to an order: %w",
			inv.ID, domain.ErrInvalidLedgerState)
	}
	if order == nil {
		return "", fmt.Errorf("RecognizeReceivable: invoice %s references missing order %s: %w",
			inv.ID, *inv.OrderID, domain.ErrInvalidLedgerState)
	}
	if order.ID != *inv.OrderID {
		return "", fmt.Errorf("RecognizeReceivable: invoice %s is linked to order %s, got %s: %w",
			inv.ID, *inv.OrderID, order.ID, domain.ErrInvalidLedgerState)
	}

	switch {
	case order.Status.HasShipped():
		return RecognitionShipped, nil
	case order.Status.IsKnown():
		return RecognitionDeferred, nil
	default:
		return RecognitionUnknownStatus, nil
	}
}
