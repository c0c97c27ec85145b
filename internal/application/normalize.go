package application

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"archie-core-shopify-sync/internal/domain"

	"github.com/shopspring/decimal"
)

// Normalization turns raw upstream JSON into the typed domain structs.
// Defaults: missing strings are "", missing money is zero, missing addresses are nil.
// updated_at falls back to created_at; returns, whose payloads may carry neither,
// fall back to the observation time. Anything else without a timestamp is invalid.

// upstreamID accepts a JSON number, a numeric string or a GraphQL gid
type upstreamID string

func (id *upstreamID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if i := strings.LastIndex(s, "/"); strings.HasPrefix(s, "gid://") && i >= 0 {
			s = s[i+1:]
		}
		*id = upstreamID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = upstreamID(n.String())
	return nil
}

// flexTime tolerates null and empty strings
type flexTime struct {
	time.Time
}

func (t *flexTime) UnmarshalJSON(b []byte) error {
	s := string(bytes.TrimSpace(b))
	if s == "null" || s == `""` {
		return nil
	}
	unquoted, err := strconv.Unquote(s)
	if err != nil {
		return fmt.Errorf("timestamp %s: %w", s, err)
	}
	parsed, err := time.Parse(time.RFC3339, unquoted)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t flexTime) ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.UTC()
	return &v
}

type wireAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Name      string `json:"name"`
	Company   string `json:"company"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2"`
	City      string `json:"city"`
	Province  string `json:"province"`
	Zip       string `json:"zip"`
	Country   string `json:"country"`
	Phone     string `json:"phone"`
}

func (a *wireAddress) toDomain() *domain.Address {
	if a == nil {
		return nil
	}
	return &domain.Address{
		Name:     a.fullName(),
		Company:  a.Company,
		Address1: a.Address1,
		Address2: a.Address2,
		City:     a.City,
		Province: a.Province,
		Zip:      a.Zip,
		Country:  a.Country,
		Phone:    a.Phone,
	}
}

func (a *wireAddress) fullName() string {
	if a == nil {
		return ""
	}
	if a.Name != "" {
		return a.Name
	}
	return joinName(a.FirstName, a.LastName)
}

type wireLineItem struct {
	ID       upstreamID      `json:"id"`
	SKU      string          `json:"sku"`
	Title    string          `json:"title"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type wireCustomer struct {
	ID             upstreamID      `json:"id"`
	Email          string          `json:"email"`
	FirstName      string          `json:"first_name"`
	LastName       string          `json:"last_name"`
	Phone          string          `json:"phone"`
	State          string          `json:"state"`
	OrdersCount    int             `json:"orders_count"`
	TotalSpent     decimal.Decimal `json:"total_spent"`
	Tags           string          `json:"tags"`
	DefaultAddress *wireAddress    `json:"default_address"`
	CreatedAt      flexTime        `json:"created_at"`
	UpdatedAt      flexTime        `json:"updated_at"`
}

type wireOrder struct {
	ID                upstreamID      `json:"id"`
	Name              string          `json:"name"`
	OrderNumber       int64           `json:"order_number"`
	Email             string          `json:"email"`
	ContactEmail      string          `json:"contact_email"`
	Phone             string          `json:"phone"`
	FinancialStatus   string          `json:"financial_status"`
	FulfillmentStatus string          `json:"fulfillment_status"`
	Currency          string          `json:"currency"`
	TotalPrice        decimal.Decimal `json:"total_price"`
	SubtotalPrice     decimal.Decimal `json:"subtotal_price"`
	TotalTax          decimal.Decimal `json:"total_tax"`
	TotalDiscounts    decimal.Decimal `json:"total_discounts"`
	LineItems         []wireLineItem  `json:"line_items"`
	ShippingAddress   *wireAddress    `json:"shipping_address"`
	BillingAddress    *wireAddress    `json:"billing_address"`
	Customer          json.RawMessage `json:"customer"`
	CancelledAt       flexTime        `json:"cancelled_at"`
	ProcessedAt       flexTime        `json:"processed_at"`
	CreatedAt         flexTime        `json:"created_at"`
	UpdatedAt         flexTime        `json:"updated_at"`
}

type wireReturnLineItem struct {
	ID                  upstreamID `json:"id"`
	FulfillmentLineItem *struct {
		ID upstreamID `json:"id"`
	} `json:"fulfillment_line_item"`
	Quantity     int    `json:"quantity"`
	ReturnReason string `json:"return_reason"`
	CustomerNote string `json:"customer_note"`
}

type wireReturn struct {
	ID      upstreamID `json:"id"`
	Name    string     `json:"name"`
	Status  string     `json:"status"`
	OrderID upstreamID `json:"order_id"`
	Order   *struct {
		ID upstreamID `json:"id"`
	} `json:"order"`
	TotalReturnLineItems int                  `json:"total_return_line_items"`
	ReturnLineItems      []wireReturnLineItem `json:"return_line_items"`
	CreatedAt            flexTime             `json:"created_at"`
	UpdatedAt            flexTime             `json:"updated_at"`
}

// embeddedResource is a related entity carried inside another payload
type embeddedResource struct {
	kind    domain.ResourceKind
	payload []byte
}

// normalized is one payload turned into a record plus the entities it embeds
type normalized struct {
	record   *domain.Record
	embedded []embeddedResource
}

// normalize parses a payload of the given kind. observedAt is only used for
// returns that carry no timestamp at all.
func normalize(kind domain.ResourceKind, payload []byte, observedAt time.Time) (*normalized, error) {
	switch kind {
	case domain.KindOrder:
		return normalizeOrder(payload)
	case domain.KindCustomer:
		return normalizeCustomer(payload)
	case domain.KindReturn:
		return normalizeReturn(payload, observedAt)
	default:
		return nil, fmt.Errorf("unknown resource kind %q: %w", kind, domain.ErrInvalidPayload)
	}
}

func normalizeOrder(payload []byte) (*normalized, error) {
	var w wireOrder
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, fmt.Errorf("failed to parse order: %v: %w", err, domain.ErrInvalidPayload)
	}
	if w.ID == "" {
		return nil, fmt.Errorf("order without id: %w", domain.ErrInvalidPayload)
	}
	updatedAt, err := upstreamUpdatedAt(w.UpdatedAt, w.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", w.ID, err)
	}

	var customer *wireCustomer
	if hasObject(w.Customer) {
		customer = &wireCustomer{}
		if err := json.Unmarshal(w.Customer, customer); err != nil {
			return nil, fmt.Errorf("failed to parse order %s customer: %v: %w", w.ID, err, domain.ErrInvalidPayload)
		}
	}

	order := &domain.Order{
		Name:              w.Name,
		Number:            w.OrderNumber,
		Email:             firstNonEmpty(w.Email, w.ContactEmail, customerField(customer, func(c *wireCustomer) string { return c.Email })),
		Phone:             firstNonEmpty(w.Phone, customerField(customer, func(c *wireCustomer) string { return c.Phone }), addressPhone(w.ShippingAddress), addressPhone(w.BillingAddress)),
		ContactName:       firstNonEmpty(customerField(customer, func(c *wireCustomer) string { return joinName(c.FirstName, c.LastName) }), w.ShippingAddress.fullName(), w.BillingAddress.fullName()),
		FinancialStatus:   w.FinancialStatus,
		FulfillmentStatus: w.FulfillmentStatus,
		Currency:          w.Currency,
		TotalPrice:        w.TotalPrice,
		SubtotalPrice:     w.SubtotalPrice,
		TotalTax:          w.TotalTax,
		TotalDiscounts:    w.TotalDiscounts,
		LineItems:         make([]domain.LineItem, 0, len(w.LineItems)),
		ShippingAddress:   w.ShippingAddress.toDomain(),
		BillingAddress:    w.BillingAddress.toDomain(),
		CancelledAt:       w.CancelledAt.ptr(),
		ProcessedAt:       w.ProcessedAt.ptr(),
	}
	for _, li := range w.LineItems {
		order.LineItems = append(order.LineItems, domain.LineItem{
			UpstreamID: string(li.ID),
			SKU:        li.SKU,
			Title:      firstNonEmpty(li.Title, li.Name),
			Quantity:   li.Quantity,
			Price:      li.Price,
		})
	}

	n := &normalized{
		record: &domain.Record{
			Kind:       domain.KindOrder,
			UpstreamID: string(w.ID),
			UpdatedAt:  updatedAt,
			Order:      order,
		},
	}
	if customer != nil && customer.ID != "" {
		order.CustomerID = string(customer.ID)
		n.embedded = append(n.embedded, embeddedResource{kind: domain.KindCustomer, payload: w.Customer})
	}
	return n, nil
}

func normalizeCustomer(payload []byte) (*normalized, error) {
	var w wireCustomer
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, fmt.Errorf("failed to parse customer: %v: %w", err, domain.ErrInvalidPayload)
	}
	if w.ID == "" {
		return nil, fmt.Errorf("customer without id: %w", domain.ErrInvalidPayload)
	}
	updatedAt, err := upstreamUpdatedAt(w.UpdatedAt, w.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("customer %s: %w", w.ID, err)
	}

	return &normalized{
		record: &domain.Record{
			Kind:       domain.KindCustomer,
			UpstreamID: string(w.ID),
			UpdatedAt:  updatedAt,
			Customer: &domain.Customer{
				Email:          w.Email,
				FirstName:      w.FirstName,
				LastName:       w.LastName,
				Phone:          firstNonEmpty(w.Phone, addressPhone(w.DefaultAddress)),
				State:          w.State,
				OrdersCount:    w.OrdersCount,
				TotalSpent:     w.TotalSpent,
				Tags:           splitTags(w.Tags),
				DefaultAddress: w.DefaultAddress.toDomain(),
			},
		},
	}, nil
}

func normalizeReturn(payload []byte, observedAt time.Time) (*normalized, error) {
	var w wireReturn
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, fmt.Errorf("failed to parse return: %v: %w", err, domain.ErrInvalidPayload)
	}
	if w.ID == "" {
		return nil, fmt.Errorf("return without id: %w", domain.ErrInvalidPayload)
	}
	updatedAt, err := upstreamUpdatedAt(w.UpdatedAt, w.CreatedAt)
	if err != nil {
		if observedAt.IsZero() {
			return nil, fmt.Errorf("return %s: %w", w.ID, err)
		}
		updatedAt = observedAt.UTC()
	}

	ret := &domain.Return{
		Name:          w.Name,
		OrderID:       string(w.OrderID),
		Status:        strings.ToLower(w.Status),
		TotalQuantity: 0,
		LineItems:     make([]domain.ReturnLineItem, 0, len(w.ReturnLineItems)),
	}
	if ret.OrderID == "" && w.Order != nil {
		ret.OrderID = string(w.Order.ID)
	}
	for _, li := range w.ReturnLineItems {
		item := domain.ReturnLineItem{
			UpstreamID:   string(li.ID),
			Quantity:     li.Quantity,
			Reason:       li.ReturnReason,
			CustomerNote: li.CustomerNote,
		}
		if li.FulfillmentLineItem != nil {
			item.FulfillmentLineID = string(li.FulfillmentLineItem.ID)
		}
		ret.TotalQuantity += li.Quantity
		ret.LineItems = append(ret.LineItems, item)
	}

	return &normalized{
		record: &domain.Record{
			Kind:       domain.KindReturn,
			UpstreamID: string(w.ID),
			UpdatedAt:  updatedAt,
			Return:     ret,
		},
	}, nil
}

// peekUpstreamID extracts the id of a payload without full normalization
func peekUpstreamID(payload []byte) string {
	var w struct {
		ID upstreamID `json:"id"`
	}
	if err := json.Unmarshal(payload, &w); err != nil {
		return ""
	}
	return string(w.ID)
}

func upstreamUpdatedAt(updatedAt, createdAt flexTime) (time.Time, error) {
	switch {
	case !updatedAt.IsZero():
		return updatedAt.UTC(), nil
	case !createdAt.IsZero():
		return createdAt.UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("no updated_at or created_at: %w", domain.ErrInvalidPayload)
	}
}

func hasObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func customerField(c *wireCustomer, get func(*wireCustomer) string) string {
	if c == nil {
		return ""
	}
	return get(c)
}

func addressPhone(a *wireAddress) string {
	if a == nil {
		return ""
	}
	return a.Phone
}

func joinName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func splitTags(tags string) []string {
	var out []string
	for _, t := range strings.Split(tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
