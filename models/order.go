package models

import "time"

type OrderStatus string

const (
	OrderStatusPendingConfirmation OrderStatus = "PENDING_CONFIRMATION"
	OrderStatusConfirmed           OrderStatus = "CONFIRMED"
	OrderStatusProcessing          OrderStatus = "PROCESSING"
	OrderStatusPackaging           OrderStatus = "PACKAGING"
	OrderStatusShipped             OrderStatus = "SHIPPED"
	OrderStatusOutForDelivery      OrderStatus = "OUT_FOR_DELIVERY"
	OrderStatusDelivered           OrderStatus = "DELIVERED"
	OrderStatusCancelled           OrderStatus = "CANCELLED"
	OrderStatusReturned            OrderStatus = "RETURNED"
	OrderStatusRefunded            OrderStatus = "REFUNDED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPendingConfirmation, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusPackaging, OrderStatusShipped, OrderStatusOutForDelivery,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturned, OrderStatusRefunded:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending        PaymentStatus = "PAYMENT_PENDING"
	PaymentStatusAuthorized     PaymentStatus = "PAYMENT_AUTHORIZED"
	PaymentStatusCaptured       PaymentStatus = "PAYMENT_CAPTURED"
	PaymentStatusFailed         PaymentStatus = "PAYMENT_FAILED"
	PaymentStatusCancelled      PaymentStatus = "PAYMENT_CANCELLED"
	PaymentStatusRefundPending  PaymentStatus = "REFUND_PENDING"
	PaymentStatusRefundComplete PaymentStatus = "REFUND_COMPLETED"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusAuthorized, PaymentStatusCaptured,
		PaymentStatusFailed, PaymentStatusCancelled, PaymentStatusRefundPending,
		PaymentStatusRefundComplete:
		return true
	}
	return false
}

type FulfillmentStatus string

const (
	FulfillmentStatusPending   FulfillmentStatus = "PENDING"
	FulfillmentStatusAllocated FulfillmentStatus = "ALLOCATED"
	FulfillmentStatusPacked    FulfillmentStatus = "PACKED"
	FulfillmentStatusShipped   FulfillmentStatus = "SHIPPED"
	FulfillmentStatusDelivered FulfillmentStatus = "DELIVERED"
	FulfillmentStatusCancelled FulfillmentStatus = "CANCELLED"
	FulfillmentStatusReturned  FulfillmentStatus = "RETURNED"
)

type Order struct {
	ID                 int64           `json:"id"`
	Reference          string          `json:"reference"`
	CustomerName       string          `json:"customer_name"`
	CustomerEmail      string          `json:"customer_email"`
	Total              float64         `json:"total"`
	Subtotal           float64         `json:"subtotal"`
	Tax                float64         `json:"tax"`
	Shipping           float64         `json:"shipping"`
	Status             OrderStatus     `json:"status"`
	PaymentStatus      PaymentStatus   `json:"payment_status"`
	ShippingLine1      string          `json:"shipping_line1"`
	ShippingLine2      string          `json:"shipping_line2"`
	ShippingCity       string          `json:"shipping_city"`
	ShippingState      string          `json:"shipping_state"`
	ShippingPostalCode string          `json:"shipping_postal_code"`
	ShippingCountry    string          `json:"shipping_country"`
	TrackingNumber     string          `json:"tracking_number"`
	CancellationReason string          `json:"cancellation_reason"`
	AdminNotes         string          `json:"admin_notes"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`
	Items              []OrderLineItem `json:"items,omitempty"`
}

// OrderLineItem freezes the product's name, description and unit price at
// order time. Later catalog edits never touch these rows.
type OrderLineItem struct {
	ID                  int64             `json:"id"`
	OrderID             int64             `json:"order_id"`
	ProductID           int64             `json:"product_id"`
	Quantity            int               `json:"quantity"`
	UnitPrice           float64           `json:"unit_price"`
	LineTotal           float64           `json:"line_total"`
	NameSnapshot        string            `json:"name_snapshot"`
	DescriptionSnapshot string            `json:"description_snapshot"`
	Discount            float64           `json:"discount"`
	FulfillmentStatus   FulfillmentStatus `json:"fulfillment_status"`
	CreatedAt           time.Time         `json:"created_at"`
}

type CreateOrderItemRequest struct {
	ProductID int64   `json:"product_id" binding:"required"`
	Quantity  int     `json:"quantity" binding:"required,gte=1"`
	Discount  float64 `json:"discount" binding:"gte=0"`
}

type CreateOrderRequest struct {
	Reference          string                   `json:"reference"`
	CustomerName       string                   `json:"customer_name" binding:"required"`
	CustomerEmail      string                   `json:"customer_email" binding:"required,email"`
	Total              float64                  `json:"total" binding:"gte=0"`
	Subtotal           float64                  `json:"subtotal" binding:"gte=0"`
	Tax                float64                  `json:"tax" binding:"gte=0"`
	Shipping           float64                  `json:"shipping" binding:"gte=0"`
	Status             OrderStatus              `json:"status"`
	PaymentStatus      PaymentStatus            `json:"payment_status"`
	ShippingLine1      string                   `json:"shipping_line1"`
	ShippingLine2      string                   `json:"shipping_line2"`
	ShippingCity       string                   `json:"shipping_city"`
	ShippingState      string                   `json:"shipping_state"`
	ShippingPostalCode string                   `json:"shipping_postal_code"`
	ShippingCountry    string                   `json:"shipping_country"`
	AdminNotes         string                   `json:"admin_notes"`
	Items              []CreateOrderItemRequest `json:"items"`
}

// UpdateOrderRequest carries the constrained mutable field set; nil fields
// are left untouched.
type UpdateOrderRequest struct {
	Status         *OrderStatus   `json:"status"`
	PaymentStatus  *PaymentStatus `json:"payment_status"`
	ShippingLine1  *string        `json:"shipping_line1"`
	ShippingCity   *string        `json:"shipping_city"`
	TrackingNumber *string        `json:"tracking_number"`
	AdminNotes     *string        `json:"admin_notes"`
}

// OrderFilter narrows List queries; zero values mean "no constraint".
type OrderFilter struct {
	Status        OrderStatus
	PaymentStatus PaymentStatus
	Start         *time.Time
	End           *time.Time
	MinAmount     *float64
	MaxAmount     *float64
	Search        string
}

// TopSellingProduct aggregates line items per product over a date range.
type TopSellingProduct struct {
	ProductID    int64   `json:"product_id"`
	ProductName  string  `json:"product_name"`
	QuantitySold int64   `json:"quantity_sold"`
	Revenue      float64 `json:"revenue"`
}

type OrderEvent struct {
	OrderID       int64         `json:"order_id"`
	Reference     string        `json:"reference"`
	Status        OrderStatus   `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Total         float64       `json:"total"`
	EventType     string        `json:"event_type"` // order_created, order_updated, order_deleted
}
