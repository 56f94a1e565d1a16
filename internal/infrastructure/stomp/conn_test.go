package stomp

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoozy-shop/storefront/internal/domain/notification"
	"github.com/shoozy-shop/storefront/internal/shared/logger"
	"github.com/shoozy-shop/storefront/internal/shared/testutil"
)

type inbox struct {
	mu   sync.Mutex
	msgs []notification.Message
}

func (i *inbox) add(m notification.Message) {
	i.mu.Lock()
	i.msgs = append(i.msgs, m)
	i.mu.Unlock()
}

func (i *inbox) len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.msgs)
}

func (i *inbox) at(n int) notification.Message {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.msgs[n]
}

func dial(t *testing.T, broker *testutil.Broker) notification.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := NewDialer(broker.URL(), logger.NewNop()).Dial(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestConn_SubscribeAndReceive(t *testing.T) {
	broker := testutil.NewBroker(t)
	conn := dial(t, broker)
	assert.Equal(t, 1, broker.Connects())

	var got inbox
	_, err := conn.Subscribe(notification.TopicAdminCoupon, got.add)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return broker.Subscribers(notification.TopicAdminCoupon) == 1
	}, 2*time.Second, 10*time.Millisecond)

	broker.Publish(notification.TopicAdminCoupon, []byte(`{"type":"COUPON_UPDATE","code":"SALE50"}`))

	require.Eventually(t, func() bool { return got.len() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, notification.TopicAdminCoupon, got.at(0).Destination)
	assert.JSONEq(t, `{"type":"COUPON_UPDATE","code":"SALE50"}`, string(got.at(0).Body))
}

func TestConn_UnsubscribeIsIdempotent(t *testing.T) {
	broker := testutil.NewBroker(t)
	conn := dial(t, broker)

	sub, err := conn.Subscribe(notification.EntityTopic("SALE50"), func(notification.Message) {})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return broker.Subscribers(notification.EntityTopic("SALE50")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, sub.Unsubscribe())
	require.NoError(t, sub.Unsubscribe())
	require.Eventually(t, func() bool {
		return broker.Subscribers(notification.EntityTopic("SALE50")) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConn_Send(t *testing.T) {
	broker := testutil.NewBroker(t)
	conn := dial(t, broker)

	require.NoError(t, conn.Send("/app/coupon/ping", []byte(`{"hello":"world"}`)))

	require.Eventually(t, func() bool { return len(broker.Sent()) == 1 }, 2*time.Second, 10*time.Millisecond)
	sent := broker.Sent()[0]
	assert.Equal(t, "/app/coupon/ping", sent.Destination)
	assert.JSONEq(t, `{"hello":"world"}`, string(sent.Body))
}

func TestConn_DoneOnBrokerDrop(t *testing.T) {
	broker := testutil.NewBroker(t)
	conn := dial(t, broker)

	broker.DropAll()

	select {
	case <-conn.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("connection did not report the drop")
	}
	assert.Error(t, conn.Err())
	assert.ErrorIs(t, conn.Send("/app/x", []byte(`{}`)), ErrClosed)
}

func TestConn_LocalCloseHasNoError(t *testing.T) {
	broker := testutil.NewBroker(t)
	conn := dial(t, broker)

	require.NoError(t, conn.Close())
	<-conn.Done()
	assert.NoError(t, conn.Err())
	require.NoError(t, conn.Close())
}

func TestDialer_Refused(t *testing.T) {
	broker := testutil.NewBroker(t)
	broker.Refuse(true)

	_, err := NewDialer(broker.URL(), logger.NewNop()).Dial(context.Background())
	assert.Error(t, err)
}
