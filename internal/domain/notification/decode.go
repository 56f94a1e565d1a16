package notification

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMalformed marks a body that is not a JSON object with a type.
	ErrMalformed = errors.New("malformed event body")
	// ErrUnknownShape marks a well-formed body whose type the topic does not carry.
	ErrUnknownShape = errors.New("unknown event shape")
)

// Decode turns a message body received on topic into a typed Event.
func Decode(topic string, body []byte) (Event, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: body is not a JSON object", ErrMalformed)
	}

	var head struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(trimmed, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if head.Type == nil || *head.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}

	var (
		ev   Event
		meta *Meta
	)
	switch *head.Type {
	case TypeCouponUpdate:
		e := &CouponUpdateEvent{}
		ev, meta = e, &e.Meta
	case TypeCouponQuantityUpdate:
		e := &CouponQuantityEvent{}
		ev, meta = e, &e.Meta
	case TypeCouponOutOfStock:
		e := &CouponOutOfStockEvent{}
		ev, meta = e, &e.Meta
	case TypeOrderWithCoupon:
		e := &OrderWithCouponEvent{}
		ev, meta = e, &e.Meta
	default:
		if !acceptsGeneric(topic) {
			return nil, fmt.Errorf("%w: type %q on %s", ErrUnknownShape, *head.Type, topic)
		}
		e := &RefreshEvent{}
		ev, meta = e, &e.Meta
	}

	if err := json.Unmarshal(trimmed, ev); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, *head.Type, err)
	}
	meta.topic = topic
	meta.raw = append(json.RawMessage(nil), trimmed...)
	return ev, nil
}
