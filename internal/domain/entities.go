package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Address is a normalized postal address. Missing fields are empty strings.
type Address struct {
	Name     string `json:"name"`
	Company  string `json:"company,omitempty"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2,omitempty"`
	City     string `json:"city"`
	Province string `json:"province,omitempty"`
	Zip      string `json:"zip"`
	Country  string `json:"country"`
	Phone    string `json:"phone,omitempty"`
}

// LineItem is one normalized order line
type LineItem struct {
	UpstreamID string          `json:"upstream_id"`
	SKU        string          `json:"sku"`
	Title      string          `json:"title"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
}

// Order is the normalized form of an upstream order
type Order struct {
	Name              string          `json:"name"`
	Number            int64           `json:"number"`
	Email             string          `json:"email"`
	Phone             string          `json:"phone"`
	ContactName       string          `json:"contact_name"`
	FinancialStatus   string          `json:"financial_status"`
	FulfillmentStatus string          `json:"fulfillment_status"`
	Currency          string          `json:"currency"`
	TotalPrice        decimal.Decimal `json:"total_price"`
	SubtotalPrice     decimal.Decimal `json:"subtotal_price"`
	TotalTax          decimal.Decimal `json:"total_tax"`
	TotalDiscounts    decimal.Decimal `json:"total_discounts"`
	LineItems         []LineItem      `json:"line_items"`
	ShippingAddress   *Address        `json:"shipping_address,omitempty"`
	BillingAddress    *Address        `json:"billing_address,omitempty"`
	CustomerID        string          `json:"customer_id,omitempty"`
	CancelledAt       *time.Time      `json:"cancelled_at,omitempty"`
	ProcessedAt       *time.Time      `json:"processed_at,omitempty"`
}

// Customer is the normalized form of an upstream customer
type Customer struct {
	Email          string          `json:"email"`
	FirstName      string          `json:"first_name"`
	LastName       string          `json:"last_name"`
	Phone          string          `json:"phone"`
	State          string          `json:"state"`
	OrdersCount    int             `json:"orders_count"`
	TotalSpent     decimal.Decimal `json:"total_spent"`
	Tags           []string        `json:"tags,omitempty"`
	DefaultAddress *Address        `json:"default_address,omitempty"`
}

// ReturnLineItem is one line of a return request
type ReturnLineItem struct {
	UpstreamID        string `json:"upstream_id"`
	FulfillmentLineID string `json:"fulfillment_line_item_id,omitempty"`
	Quantity          int    `json:"quantity"`
	Reason            string `json:"reason"`
	CustomerNote      string `json:"customer_note,omitempty"`
}

// Return is the normalized form of an upstream return
type Return struct {
	Name          string           `json:"name"`
	OrderID       string           `json:"order_id"`
	Status        string           `json:"status"`
	TotalQuantity int              `json:"total_quantity"`
	LineItems     []ReturnLineItem `json:"line_items"`
}
