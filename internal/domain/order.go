package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type CustomerInfo struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

type OrderItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// OrderRequest is the body of POST /orders.
type OrderRequest struct {
	CustomerInfo CustomerInfo `json:"customer_info"`
	Items        []OrderItem  `json:"items"`
	Notes        string       `json:"notes"`
}

type OrderSuccess struct {
	OrderID     string           `json:"order_id"`
	Message     string           `json:"message"`
	TotalAmount *decimal.Decimal `json:"total_amount,omitempty"`
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type Order struct {
	ID           string          `json:"id"`
	CustomerInfo CustomerInfo    `json:"customer_info"`
	Items        []OrderItem     `json:"items"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Status       OrderStatus     `json:"status"`
	OrderDate    time.Time       `json:"order_date"`
	Notes        string          `json:"notes,omitempty"`
}
