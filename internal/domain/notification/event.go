package notification

import (
	"encoding/json"
	"time"
)

// Event type discriminators sent by the backend.
const (
	TypeCouponUpdate         = "COUPON_UPDATE"
	TypeCouponQuantityUpdate = "COUPON_QUANTITY_UPDATE"
	TypeCouponOutOfStock     = "COUPON_OUT_OF_STOCK"
	TypeOrderWithCoupon      = "ORDER_WITH_COUPON"
)

// Event is a decoded broker message. The concrete type is one of
// *RefreshEvent, *CouponUpdateEvent, *CouponQuantityEvent,
// *CouponOutOfStockEvent or *OrderWithCouponEvent.
type Event interface {
	EventType() string
	Topic() string
	Raw() json.RawMessage
	isEvent()
}

// Meta carries the fields shared by every event.
type Meta struct {
	Type      string          `json:"type"`
	Action    string          `json:"action,omitempty"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`

	topic string
	raw   json.RawMessage
}

func (m Meta) EventType() string    { return m.Type }
func (m Meta) Topic() string        { return m.topic }
func (m Meta) Raw() json.RawMessage { return m.raw }
func (Meta) isEvent()               {}

// Time parses Timestamp. The backend serialises LocalDateTime either as an
// ISO string without zone or as a [y, m, d, h, min, s, nanos] array; both
// are read in the local zone.
func (m Meta) Time() (time.Time, bool) {
	if len(m.Timestamp) == 0 {
		return time.Time{}, false
	}

	var s string
	if err := json.Unmarshal(m.Timestamp, &s); err == nil {
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"} {
			if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	}

	var parts []int
	if err := json.Unmarshal(m.Timestamp, &parts); err != nil || len(parts) < 3 {
		return time.Time{}, false
	}
	for len(parts) < 7 {
		parts = append(parts, 0)
	}
	return time.Date(parts[0], time.Month(parts[1]), parts[2], parts[3], parts[4], parts[5], parts[6], time.Local), true
}

// RefreshEvent is the general refresh signal: an entity kind in Type, an
// Action and an opaque Payload. Unrecognised types on the refresh and
// notifications topics decode to this.
type RefreshEvent struct {
	Meta
	Payload json.RawMessage `json:"payload,omitempty"`
}

type CouponUpdateEvent struct {
	Meta
	CouponID int64  `json:"couponId"`
	Code     string `json:"code"`
	Name     string `json:"name,omitempty"`
	Quantity *int   `json:"quantity,omitempty"`
	Status   *int   `json:"status,omitempty"`
	Message  string `json:"message,omitempty"`
}

type CouponQuantityEvent struct {
	Meta
	CouponID int64  `json:"couponId"`
	Code     string `json:"code"`
	Quantity *int   `json:"quantity,omitempty"`
	Status   *int   `json:"status,omitempty"`
}

type CouponOutOfStockEvent struct {
	Meta
	CouponID int64  `json:"couponId"`
	Code     string `json:"code"`
}

// OrderWithCouponEvent reports an order that consumed a coupon. The backend
// emits two layouts (couponCode/couponQuantity, or code/quantity plus
// customer details); both are captured.
type OrderWithCouponEvent struct {
	Meta
	OrderID        int64  `json:"orderId"`
	OrderCode      string `json:"orderCode"`
	CouponID       int64  `json:"couponId,omitempty"`
	CouponCode     string `json:"couponCode,omitempty"`
	CouponQuantity *int   `json:"couponQuantity,omitempty"`
	Code           string `json:"code,omitempty"`
	Quantity       *int   `json:"quantity,omitempty"`
	CustomerName   string `json:"customerName,omitempty"`
	Message        string `json:"message,omitempty"`
}

// CouponCodeOrFallback returns whichever coupon code field was populated.
func (e *OrderWithCouponEvent) CouponCodeOrFallback() string {
	if e.CouponCode != "" {
		return e.CouponCode
	}
	return e.Code
}
