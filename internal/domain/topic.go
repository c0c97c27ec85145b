package domain

// Topic is a Shopify webhook topic this service subscribes to.
// The set is closed: anything else is acknowledged and ignored.
type Topic string

const (
	TopicOrdersCreate             Topic = "orders/create"
	TopicOrdersUpdated            Topic = "orders/updated"
	TopicOrdersPaid               Topic = "orders/paid"
	TopicOrdersCancelled          Topic = "orders/cancelled"
	TopicOrdersFulfilled          Topic = "orders/fulfilled"
	TopicOrdersPartiallyFulfilled Topic = "orders/partially_fulfilled"
	TopicCustomersCreate          Topic = "customers/create"
	TopicCustomersUpdate          Topic = "customers/update"
	TopicCustomersEnable          Topic = "customers/enable"
	TopicCustomersDisable         Topic = "customers/disable"
	TopicReturnsRequest           Topic = "returns/request"
	TopicReturnsApprove           Topic = "returns/approve"
	TopicReturnsDecline           Topic = "returns/decline"
	TopicReturnsReopen            Topic = "returns/reopen"
	TopicReturnsClose             Topic = "returns/close"
	TopicReturnsCancel            Topic = "returns/cancel"
	TopicAppUninstalled           Topic = "app/uninstalled"
)

// DefaultTopics is what Setup subscribes to when no topics are requested
var DefaultTopics = []Topic{
	TopicOrdersCreate,
	TopicOrdersUpdated,
	TopicOrdersCancelled,
	TopicCustomersCreate,
	TopicCustomersUpdate,
	TopicReturnsRequest,
	TopicReturnsApprove,
	TopicReturnsClose,
	TopicAppUninstalled,
}

// ParseTopic maps a raw header value onto the closed topic set
func ParseTopic(s string) (Topic, bool) {
	t := Topic(s)
	if t.IsValid() {
		return t, true
	}
	return "", false
}

// IsValid returns true if the topic is part of the supported set
func (t Topic) IsValid() bool {
	switch t {
	case TopicOrdersCreate, TopicOrdersUpdated, TopicOrdersPaid, TopicOrdersCancelled,
		TopicOrdersFulfilled, TopicOrdersPartiallyFulfilled,
		TopicCustomersCreate, TopicCustomersUpdate, TopicCustomersEnable, TopicCustomersDisable,
		TopicReturnsRequest, TopicReturnsApprove, TopicReturnsDecline, TopicReturnsReopen,
		TopicReturnsClose, TopicReturnsCancel,
		TopicAppUninstalled:
		return true
	default:
		return false
	}
}

// ResourceKind returns the resource kind carried by the topic's payload.
// ok is false for lifecycle topics such as app/uninstalled.
func (t Topic) ResourceKind() (kind ResourceKind, ok bool) {
	switch t {
	case TopicOrdersCreate, TopicOrdersUpdated, TopicOrdersPaid, TopicOrdersCancelled,
		TopicOrdersFulfilled, TopicOrdersPartiallyFulfilled:
		return KindOrder, true
	case TopicCustomersCreate, TopicCustomersUpdate, TopicCustomersEnable, TopicCustomersDisable:
		return KindCustomer, true
	case TopicReturnsRequest, TopicReturnsApprove, TopicReturnsDecline, TopicReturnsReopen,
		TopicReturnsClose, TopicReturnsCancel:
		return KindReturn, true
	case TopicAppUninstalled:
		return "", false
	default:
		return "", false
	}
}

// String returns the string representation of Topic
func (t Topic) String() string {
	return string(t)
}
