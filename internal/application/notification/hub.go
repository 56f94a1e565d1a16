// Package notification keeps one live broker connection for the process and
// fans decoded events out to in-process listeners.
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jonboulle/clockwork"

	"github.com/shoozy-shop/storefront/internal/domain/notification"
	appErrors "github.com/shoozy-shop/storefront/internal/shared/errors"
	"github.com/shoozy-shop/storefront/internal/shared/logger"
)

const defaultReconnectDelay = 5 * time.Second

type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Hub owns the broker connection. It subscribes the fixed topic set on every
// connect and reconnects after a constant delay until Disconnect.
type Hub struct {
	dialer         notification.Dialer
	clock          clockwork.Clock
	reconnectDelay time.Duration
	logger         logger.Interface

	registries map[notification.Category]*registry

	mu      sync.Mutex
	state   State
	conn    notification.Conn
	cancel  context.CancelFunc
	done    chan struct{}
	onState func(State)
}

type HubOption func(*Hub)

func WithClock(c clockwork.Clock) HubOption {
	return func(h *Hub) {
		h.clock = c
	}
}

func WithReconnectDelay(d time.Duration) HubOption {
	return func(h *Hub) {
		if d > 0 {
			h.reconnectDelay = d
		}
	}
}

// WithStateListener registers fn for state transitions. fn runs with no hub
// lock held.
func WithStateListener(fn func(State)) HubOption {
	return func(h *Hub) {
		h.onState = fn
	}
}

func NewHub(dialer notification.Dialer, log logger.Interface, opts ...HubOption) *Hub {
	h := &Hub{
		dialer:         dialer,
		clock:          clockwork.NewRealClock(),
		reconnectDelay: defaultReconnectDelay,
		logger:         log,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.registries = map[notification.Category]*registry{
		notification.CategoryRefresh: newRegistry(notification.CategoryRefresh, log),
		notification.CategoryCoupon:  newRegistry(notification.CategoryCoupon, log),
		notification.CategoryOrder:   newRegistry(notification.CategoryOrder, log),
	}
	return h
}

// OnStateChange replaces the state transition callback.
func (h *Hub) OnStateChange(fn func(State)) {
	h.mu.Lock()
	h.onState = fn
	h.mu.Unlock()
}

// Connect starts the connection loop. It returns immediately and is a no-op
// while a loop is already running. Cancelling ctx has the same effect as
// Disconnect.
func (h *Hub) Connect(ctx context.Context) {
	h.mu.Lock()
	if h.cancel != nil {
		h.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	h.cancel = cancel
	h.done = done
	h.mu.Unlock()

	go h.run(runCtx, done)
}

// Disconnect closes the connection and stops reconnecting. It does not wait
// for the loop to exit; use Wait for that.
func (h *Hub) Disconnect() {
	h.mu.Lock()
	cancel := h.cancel
	conn := h.conn
	h.cancel = nil
	h.conn = nil
	h.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if conn != nil {
		if err := conn.Close(); err != nil {
			h.logger.Warnw("failed to close broker connection", "error", err)
		}
	}
	h.setState(StateIdle)
	h.logger.Infow("notification hub disconnected")
}

// Wait blocks until the most recently started loop has exited or ctx ends.
func (h *Hub) Wait(ctx context.Context) error {
	h.mu.Lock()
	done := h.done
	h.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) IsConnected() bool {
	return h.State() == StateConnected
}

func (h *Hub) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *Hub) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer h.release(done)

	policy := backoff.NewConstantBackOff(h.reconnectDelay)
	for {
		if ctx.Err() != nil {
			return
		}

		h.setStateIfRunning(ctx, StateConnecting)
		err := h.runOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		h.setStateIfRunning(ctx, StateIdle)

		delay := policy.NextBackOff()
		h.logger.Warnw("broker connection lost, reconnecting",
			"delay", delay,
			"error", err,
		)

		timer := h.clock.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.Chan():
		}
	}
}

// release forgets a loop that ended because its parent context was
// cancelled, so a later Connect starts a fresh one.
func (h *Hub) release(done chan struct{}) {
	h.mu.Lock()
	if h.done != done || h.cancel == nil {
		h.mu.Unlock()
		return
	}
	h.cancel()
	h.cancel = nil
	h.conn = nil
	h.mu.Unlock()

	h.setState(StateIdle)
}

// runOnce dials, subscribes and blocks until the connection ends.
func (h *Hub) runOnce(ctx context.Context) error {
	conn, err := h.dialer.Dial(ctx)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}

	for _, topic := range notification.SubscribedTopics() {
		if _, err := conn.Subscribe(topic, h.route); err != nil {
			conn.Close()
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}

	h.mu.Lock()
	if ctx.Err() != nil {
		h.mu.Unlock()
		conn.Close()
		return ctx.Err()
	}
	h.conn = conn
	h.state = StateConnected
	onState := h.onState
	h.mu.Unlock()

	h.logger.Infow("notification hub connected")
	if onState != nil {
		onState(StateConnected)
	}

	select {
	case <-conn.Done():
	case <-ctx.Done():
		conn.Close()
	}

	h.mu.Lock()
	if h.conn == conn {
		h.conn = nil
	}
	h.mu.Unlock()

	if err := conn.Err(); err != nil {
		return err
	}
	return errors.New("connection closed")
}

// route decodes one broker message and delivers it to the registries its
// topic maps to.
func (h *Hub) route(msg notification.Message) {
	ev, err := notification.Decode(msg.Destination, msg.Body)
	if err != nil {
		h.logger.Warnw("dropping undecodable message",
			"topic", msg.Destination,
			"error", err,
		)
		return
	}
	for _, c := range notification.CategoriesFor(msg.Destination) {
		h.registries[c].dispatch(ev)
	}
}

func (h *Hub) setState(s State) {
	h.mu.Lock()
	changed := h.state != s
	h.state = s
	onState := h.onState
	h.mu.Unlock()

	if changed && onState != nil {
		onState(s)
	}
}

// setStateIfRunning ignores transitions from a loop that Disconnect has
// already stopped.
func (h *Hub) setStateIfRunning(ctx context.Context, s State) {
	h.mu.Lock()
	if ctx.Err() != nil {
		h.mu.Unlock()
		return
	}
	changed := h.state != s
	h.state = s
	onState := h.onState
	h.mu.Unlock()

	if changed && onState != nil {
		onState(s)
	}
}

// Send serialises payload as JSON and transmits it when connected. While
// disconnected the message is dropped.
func (h *Hub) Send(destination string, payload any) error {
	h.mu.Lock()
	conn := h.conn
	connected := h.state == StateConnected
	h.mu.Unlock()

	if conn == nil || !connected {
		h.logger.Warnw("not connected, message dropped", "destination", destination)
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return appErrors.NewValidationError("payload is not serialisable", err.Error())
	}
	if err := conn.Send(destination, body); err != nil {
		return appErrors.NewTransportError("failed to send message").WithCause(err)
	}
	return nil
}

// EntitySubscription is a per-coupon subscription.
type EntitySubscription struct {
	topic string
	sub   notification.Subscription
	once  sync.Once
}

func (s *EntitySubscription) Topic() string {
	return s.topic
}

// Unsubscribe is idempotent.
func (s *EntitySubscription) Unsubscribe() {
	s.once.Do(func() {
		_ = s.sub.Unsubscribe()
	})
}

// SubscribeToEntity listens on the per-coupon topic for idOrCode. It returns
// nil when not connected or idOrCode is empty. The subscription does not
// survive a reconnect.
func (h *Hub) SubscribeToEntity(idOrCode string, fn Listener) *EntitySubscription {
	if idOrCode == "" {
		h.logger.Warnw("entity subscription needs an id or code")
		return nil
	}

	h.mu.Lock()
	conn := h.conn
	connected := h.state == StateConnected
	h.mu.Unlock()
	if conn == nil || !connected {
		h.logger.Warnw("not connected, entity subscription skipped", "entity", idOrCode)
		return nil
	}

	topic := notification.EntityTopic(idOrCode)
	sub, err := conn.Subscribe(topic, func(msg notification.Message) {
		ev, err := notification.Decode(msg.Destination, msg.Body)
		if err != nil {
			h.logger.Warnw("dropping undecodable message", "topic", msg.Destination, "error", err)
			return
		}
		fn(ev)
	})
	if err != nil {
		h.logger.Errorw("entity subscription failed", "topic", topic, "error", err)
		return nil
	}
	return &EntitySubscription{topic: topic, sub: sub}
}

func (h *Hub) AddRefreshListener(fn Listener) ListenerID {
	return h.registries[notification.CategoryRefresh].add(fn)
}

func (h *Hub) RemoveRefreshListener(id ListenerID) {
	h.registries[notification.CategoryRefresh].remove(id)
}

func (h *Hub) AddCouponListener(fn Listener) ListenerID {
	return h.registries[notification.CategoryCoupon].add(fn)
}

func (h *Hub) RemoveCouponListener(id ListenerID) {
	h.registries[notification.CategoryCoupon].remove(id)
}

func (h *Hub) AddOrderListener(fn Listener) ListenerID {
	return h.registries[notification.CategoryOrder].add(fn)
}

func (h *Hub) RemoveOrderListener(id ListenerID) {
	h.registries[notification.CategoryOrder].remove(id)
}

// ListenerCount reports the number of listeners for category.
func (h *Hub) ListenerCount(category notification.Category) int {
	r, ok := h.registries[category]
	if !ok {
		return 0
	}
	return r.len()
}
