// Package notification defines the broker topics the storefront listens on
// and the typed events decoded from their message bodies.
package notification

import "strings"

// Broker topics subscribed on every connect.
const (
	TopicRefresh       = "/topic/refresh"
	TopicAdminCoupon   = "/topic/admin/coupon"
	TopicAdminOrders   = "/topic/admin/orders"
	TopicCouponStatus  = "/topic/coupon/status"
	TopicNotifications = "/topic/notifications"
)

// EntityTopicPrefix scopes a subscription to one coupon id or code.
const EntityTopicPrefix = "/topic/coupons/"

// Category names a listener registry.
type Category int

const (
	CategoryRefresh Category = iota
	CategoryCoupon
	CategoryOrder
)

func (c Category) String() string {
	switch c {
	case CategoryRefresh:
		return "refresh"
	case CategoryCoupon:
		return "coupon"
	case CategoryOrder:
		return "order"
	default:
		return "unknown"
	}
}

// SubscribedTopics returns the fixed topic set in subscription order.
func SubscribedTopics() []string {
	return []string{
		TopicRefresh,
		TopicAdminCoupon,
		TopicAdminOrders,
		TopicCouponStatus,
		TopicNotifications,
	}
}

// CategoriesFor maps a topic to the registries its messages are delivered
// to, in delivery order. The catch-all topic reaches every registry.
func CategoriesFor(topic string) []Category {
	switch topic {
	case TopicRefresh:
		return []Category{CategoryRefresh}
	case TopicAdminCoupon, TopicCouponStatus:
		return []Category{CategoryCoupon}
	case TopicAdminOrders:
		return []Category{CategoryOrder}
	case TopicNotifications:
		return []Category{CategoryRefresh, CategoryCoupon, CategoryOrder}
	default:
		return nil
	}
}

// EntityTopic returns the per-coupon destination for an id or code.
func EntityTopic(idOrCode string) string {
	return EntityTopicPrefix + idOrCode
}

// IsEntityTopic reports whether topic is a per-coupon destination.
func IsEntityTopic(topic string) bool {
	return strings.HasPrefix(topic, EntityTopicPrefix) && len(topic) > len(EntityTopicPrefix)
}

// acceptsGeneric reports whether unrecognised event types are delivered on
// topic as RefreshEvent instead of being rejected.
func acceptsGeneric(topic string) bool {
	return topic == TopicRefresh || topic == TopicNotifications
}
