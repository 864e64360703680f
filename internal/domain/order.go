package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending      OrderStatus = "pending"
	OrderStatusInProduction OrderStatus = "in_production"
	OrderStatusShipped      OrderStatus = "shipped"
	OrderStatusDelivered    OrderStatus = "delivered"
	OrderStatusCancelled    OrderStatus = "cancelled"
)

func (s OrderStatus) IsKnown() bool {
	switch s {
	case OrderStatusPending, OrderStatusInProduction, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) HasShipped() bool {
	return s == OrderStatusShipped || s == OrderStatusDelivered
}

// InPipeline is true for orders that are committed but not yet shipped.
func (s OrderStatus) InPipeline() bool {
	return s == OrderStatusPending || s == OrderStatusInProduction
}

// Order is owned by the order module; this package only branches on Status.
type Order struct {
	ID          uuid.UUID
	ClientID    uuid.UUID
	Status      OrderStatus
	FiscalYear  int
	Currency    Currency
	TotalAmount decimal.Decimal
	CreatedAt   time.Time
}

func (o *Order) Total() Money {
	return NewMoney(o.TotalAmount, o.Currency)
}
