package http

import (
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/payment"
	"github.com/shopspring/decimal"
)

type CartLineDTO struct {
	Product  domain.Product  `json:"product"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type CartResponseDTO struct {
	State string          `json:"state"`
	Lines []CartLineDTO   `json:"lines"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

type CheckoutResponseDTO struct {
	State     string                 `json:"state"`
	Visible   bool                   `json:"visible"`
	Customer  domain.CustomerInfo    `json:"customer"`
	Notes     string                 `json:"notes"`
	CanSubmit bool                   `json:"can_submit"`
	Message   string                 `json:"message,omitempty"`
	Success   *domain.OrderSuccess   `json:"success,omitempty"`
	Widget    *payment.WidgetOptions `json:"widget,omitempty"`
	Cart      CartResponseDTO        `json:"cart"`
}

type CatalogResponseDTO struct {
	Products   []domain.Product `json:"products"`
	Categories []string         `json:"categories"`
	Selected   string           `json:"selected"`
}

func cartView(c *checkout.Coordinator) CartResponseDTO {
	lines := c.CartLines()
	dto := CartResponseDTO{
		State: c.State().String(),
		Lines: make([]CartLineDTO, 0, len(lines)),
		Count: c.CartLen(),
		Total: c.CartTotal(),
	}
	for _, l := range lines {
		dto.Lines = append(dto.Lines, CartLineDTO{Product: l.Product, Quantity: l.Quantity, Subtotal: l.Subtotal()})
	}
	return dto
}

func checkoutView(c *checkout.Coordinator) CheckoutResponseDTO {
	return CheckoutResponseDTO{
		State:     c.State().String(),
		Visible:   c.State().CheckoutVisible(),
		Customer:  c.Customer(),
		Notes:     c.Notes(),
		CanSubmit: c.CanSubmit(),
		Message:   c.Message(),
		Success:   c.Success(),
		Widget:    c.WidgetOptions(),
		Cart:      cartView(c),
	}
}
