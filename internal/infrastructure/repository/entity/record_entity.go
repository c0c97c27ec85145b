package entity

import (
	"time"

	"archie-core-shopify-sync/internal/domain"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoRecordDoc represents one mirrored resource in its kind's collection.
// Money fields are stored as decimal strings.
type MongoRecordDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	TenantID      string             `bson:"tenantId"`
	UpstreamID    string             `bson:"upstreamId"`
	Kind          string             `bson:"kind"`
	DataSource    string             `bson:"dataSource"`
	LastWebhookAt *time.Time         `bson:"lastWebhookAt,omitempty"`
	LastSyncAt    *time.Time         `bson:"lastSyncAt,omitempty"`
	UpdatedAt     time.Time          `bson:"updatedAt"`
	CreatedAt     time.Time          `bson:"createdAt,omitempty"`

	Order    *MongoOrderDoc    `bson:"order,omitempty"`
	Customer *MongoCustomerDoc `bson:"customer,omitempty"`
	Return   *MongoReturnDoc   `bson:"return,omitempty"`
}

type MongoAddressDoc struct {
	Name     string `bson:"name"`
	Company  string `bson:"company,omitempty"`
	Address1 string `bson:"address1"`
	Address2 string `bson:"address2,omitempty"`
	City     string `bson:"city"`
	Province string `bson:"province,omitempty"`
	Zip      string `bson:"zip"`
	Country  string `bson:"country"`
	Phone    string `bson:"phone,omitempty"`
}

type MongoLineItemDoc struct {
	UpstreamID string `bson:"upstreamId"`
	SKU        string `bson:"sku"`
	Title      string `bson:"title"`
	Quantity   int    `bson:"quantity"`
	Price      string `bson:"price"`
}

type MongoOrderDoc struct {
	Name              string             `bson:"name"`
	Number            int64              `bson:"number"`
	Email             string             `bson:"email"`
	Phone             string             `bson:"phone"`
	ContactName       string             `bson:"contactName"`
	FinancialStatus   string             `bson:"financialStatus"`
	FulfillmentStatus string             `bson:"fulfillmentStatus"`
	Currency          string             `bson:"currency"`
	TotalPrice        string             `bson:"totalPrice"`
	SubtotalPrice     string             `bson:"subtotalPrice"`
	TotalTax          string             `bson:"totalTax"`
	TotalDiscounts    string             `bson:"totalDiscounts"`
	LineItems         []MongoLineItemDoc `bson:"lineItems"`
	ShippingAddress   *MongoAddressDoc   `bson:"shippingAddress,omitempty"`
	BillingAddress    *MongoAddressDoc   `bson:"billingAddress,omitempty"`
	CustomerID        string             `bson:"customerId,omitempty"`
	CancelledAt       *time.Time         `bson:"cancelledAt"`
	ProcessedAt       *time.Time         `bson:"processedAt,omitempty"`
}

type MongoCustomerDoc struct {
	Email          string           `bson:"email"`
	FirstName      string           `bson:"firstName"`
	LastName       string           `bson:"lastName"`
	Phone          string           `bson:"phone"`
	State          string           `bson:"state"`
	OrdersCount    int              `bson:"ordersCount"`
	TotalSpent     string           `bson:"totalSpent"`
	Tags           []string         `bson:"tags,omitempty"`
	DefaultAddress *MongoAddressDoc `bson:"defaultAddress,omitempty"`
}

type MongoReturnLineItemDoc struct {
	UpstreamID        string `bson:"upstreamId"`
	FulfillmentLineID string `bson:"fulfillmentLineItemId,omitempty"`
	Quantity          int    `bson:"quantity"`
	Reason            string `bson:"reason"`
	CustomerNote      string `bson:"customerNote,omitempty"`
}

type MongoReturnDoc struct {
	Name          string                   `bson:"name"`
	OrderID       string                   `bson:"orderId"`
	Status        string                   `bson:"status"`
	TotalQuantity int                      `bson:"totalQuantity"`
	LineItems     []MongoReturnLineItemDoc `bson:"lineItems"`
}

// ToDomain converts the MongoDB document to a domain record
func (d *MongoRecordDoc) ToDomain() *domain.Record {
	rec := &domain.Record{
		Kind:       domain.ResourceKind(d.Kind),
		TenantID:   d.TenantID,
		UpstreamID: d.UpstreamID,
		Provenance: domain.Provenance{
			DataSource:    domain.DataSource(d.DataSource),
			LastWebhookAt: utcPtr(d.LastWebhookAt),
			LastSyncAt:    utcPtr(d.LastSyncAt),
		},
		UpdatedAt: d.UpdatedAt.UTC(),
		CreatedAt: d.CreatedAt.UTC(),
	}
	if d.Order != nil {
		rec.Order = d.Order.toDomain()
	}
	if d.Customer != nil {
		rec.Customer = d.Customer.toDomain()
	}
	if d.Return != nil {
		rec.Return = d.Return.toDomain()
	}
	return rec
}

// MongoRecordDocFromDomain converts a domain record to a MongoDB document
func MongoRecordDocFromDomain(rec *domain.Record) *MongoRecordDoc {
	doc := &MongoRecordDoc{
		TenantID:      rec.TenantID,
		UpstreamID:    rec.UpstreamID,
		Kind:          rec.Kind.String(),
		DataSource:    string(rec.Provenance.DataSource),
		LastWebhookAt: rec.Provenance.LastWebhookAt,
		LastSyncAt:    rec.Provenance.LastSyncAt,
		UpdatedAt:     rec.UpdatedAt,
		CreatedAt:     rec.CreatedAt,
	}
	if rec.Order != nil {
		doc.Order = orderDocFromDomain(rec.Order)
	}
	if rec.Customer != nil {
		doc.Customer = customerDocFromDomain(rec.Customer)
	}
	if rec.Return != nil {
		doc.Return = returnDocFromDomain(rec.Return)
	}
	return doc
}

func (d *MongoOrderDoc) toDomain() *domain.Order {
	o := &domain.Order{
		Name:              d.Name,
		Number:            d.Number,
		Email:             d.Email,
		Phone:             d.Phone,
		ContactName:       d.ContactName,
		FinancialStatus:   d.FinancialStatus,
		FulfillmentStatus: d.FulfillmentStatus,
		Currency:          d.Currency,
		TotalPrice:        parseMoney(d.TotalPrice),
		SubtotalPrice:     parseMoney(d.SubtotalPrice),
		TotalTax:          parseMoney(d.TotalTax),
		TotalDiscounts:    parseMoney(d.TotalDiscounts),
		LineItems:         make([]domain.LineItem, 0, len(d.LineItems)),
		ShippingAddress:   d.ShippingAddress.toDomain(),
		BillingAddress:    d.BillingAddress.toDomain(),
		CustomerID:        d.CustomerID,
		CancelledAt:       utcPtr(d.CancelledAt),
		ProcessedAt:       utcPtr(d.ProcessedAt),
	}
	for _, li := range d.LineItems {
		o.LineItems = append(o.LineItems, domain.LineItem{
			UpstreamID: li.UpstreamID,
			SKU:        li.SKU,
			Title:      li.Title,
			Quantity:   li.Quantity,
			Price:      parseMoney(li.Price),
		})
	}
	return o
}

func orderDocFromDomain(o *domain.Order) *MongoOrderDoc {
	doc := &MongoOrderDoc{
		Name:              o.Name,
		Number:            o.Number,
		Email:             o.Email,
		Phone:             o.Phone,
		ContactName:       o.ContactName,
		FinancialStatus:   o.FinancialStatus,
		FulfillmentStatus: o.FulfillmentStatus,
		Currency:          o.Currency,
		TotalPrice:        o.TotalPrice.String(),
		SubtotalPrice:     o.SubtotalPrice.String(),
		TotalTax:          o.TotalTax.String(),
		TotalDiscounts:    o.TotalDiscounts.String(),
		LineItems:         make([]MongoLineItemDoc, 0, len(o.LineItems)),
		ShippingAddress:   addressDocFromDomain(o.ShippingAddress),
		BillingAddress:    addressDocFromDomain(o.BillingAddress),
		CustomerID:        o.CustomerID,
		CancelledAt:       o.CancelledAt,
		ProcessedAt:       o.ProcessedAt,
	}
	for _, li := range o.LineItems {
		doc.LineItems = append(doc.LineItems, MongoLineItemDoc{
			UpstreamID: li.UpstreamID,
			SKU:        li.SKU,
			Title:      li.Title,
			Quantity:   li.Quantity,
			Price:      li.Price.String(),
		})
	}
	return doc
}

func (d *MongoCustomerDoc) toDomain() *domain.Customer {
	return &domain.Customer{
		Email:          d.Email,
		FirstName:      d.FirstName,
		LastName:       d.LastName,
		Phone:          d.Phone,
		State:          d.State,
		OrdersCount:    d.OrdersCount,
		TotalSpent:     parseMoney(d.TotalSpent),
		Tags:           d.Tags,
		DefaultAddress: d.DefaultAddress.toDomain(),
	}
}

func customerDocFromDomain(c *domain.Customer) *MongoCustomerDoc {
	return &MongoCustomerDoc{
		Email:          c.Email,
		FirstName:      c.FirstName,
		LastName:       c.LastName,
		Phone:          c.Phone,
		State:          c.State,
		OrdersCount:    c.OrdersCount,
		TotalSpent:     c.TotalSpent.String(),
		Tags:           c.Tags,
		DefaultAddress: addressDocFromDomain(c.DefaultAddress),
	}
}

func (d *MongoReturnDoc) toDomain() *domain.Return {
	r := &domain.Return{
		Name:          d.Name,
		OrderID:       d.OrderID,
		Status:        d.Status,
		TotalQuantity: d.TotalQuantity,
		LineItems:     make([]domain.ReturnLineItem, 0, len(d.LineItems)),
	}
	for _, li := range d.LineItems {
		r.LineItems = append(r.LineItems, domain.ReturnLineItem(li))
	}
	return r
}

func returnDocFromDomain(r *domain.Return) *MongoReturnDoc {
	doc := &MongoReturnDoc{
		Name:          r.Name,
		OrderID:       r.OrderID,
		Status:        r.Status,
		TotalQuantity: r.TotalQuantity,
		LineItems:     make([]MongoReturnLineItemDoc, 0, len(r.LineItems)),
	}
	for _, li := range r.LineItems {
		doc.LineItems = append(doc.LineItems, MongoReturnLineItemDoc(li))
	}
	return doc
}

func (d *MongoAddressDoc) toDomain() *domain.Address {
	if d == nil {
		return nil
	}
	a := domain.Address(*d)
	return &a
}

func addressDocFromDomain(a *domain.Address) *MongoAddressDoc {
	if a == nil {
		return nil
	}
	doc := MongoAddressDoc(*a)
	return &doc
}

func parseMoney(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// MongoSnapshotDoc is the raw payload last observed for a record
type MongoSnapshotDoc struct {
	TenantID   string    `bson:"tenantId"`
	UpstreamID string    `bson:"upstreamId"`
	Kind       string    `bson:"kind"`
	DataSource string    `bson:"dataSource"`
	Topic      string    `bson:"topic,omitempty"`
	DeliveryID string    `bson:"deliveryId,omitempty"`
	Payload    string    `bson:"payload"`
	ReceivedAt time.Time `bson:"receivedAt"`
}

// MongoSnapshotDocFromDomain converts a raw snapshot to a MongoDB document
func MongoSnapshotDocFromDomain(s *domain.RawSnapshot) *MongoSnapshotDoc {
	return &MongoSnapshotDoc{
		TenantID:   s.TenantID,
		UpstreamID: s.UpstreamID,
		Kind:       s.Kind.String(),
		DataSource: string(s.DataSource),
		Topic:      string(s.Topic),
		DeliveryID: s.DeliveryID,
		Payload:    string(s.Payload),
		ReceivedAt: s.ReceivedAt,
	}
}
